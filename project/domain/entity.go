package domain

import (
	"fmt"
	"strings"
)

// WorkspaceConfig は監視対象ワークスペース（転送元）ごとの設定です
// 起動時に一度だけ構築され、以降は変更されません
type WorkspaceConfig struct {
	// Key はルーティング用のワークスペース識別子（URL パスの {workspace_id}）
	Key string

	// TeamID は Slack のチームID。イベント本文の team_id からの逆引きに使用します
	TeamID string

	// Name は転送メッセージのヘッダーに表示するワークスペース名
	Name string

	// SourceToken は転送元ワークスペースの Bot トークン（名前解決に使用）
	SourceToken string

	// SigningSecret は HTTP 受信時の署名検証用シークレット
	SigningSecret string

	// AppToken は Socket Mode 接続用のアプリレベルトークン
	AppToken string

	// TargetUserID はメンションを監視するユーザーのID
	TargetUserID string
}

// DisplayName はヘッダー表示用の名前を返します。未設定の場合は Key を使います
func (w WorkspaceConfig) DisplayName() string {
	if strings.TrimSpace(w.Name) != "" {
		return w.Name
	}
	return w.Key
}

// Validate は WorkspaceConfig の必須項目を検証します
func (w WorkspaceConfig) Validate() error {
	if strings.TrimSpace(w.Key) == "" {
		return fmt.Errorf("%w: Keyは必須項目です", ErrInvalid)
	}
	if strings.TrimSpace(w.SourceToken) == "" {
		return fmt.Errorf("%w: SourceTokenは必須項目です (workspace=%s)", ErrInvalid, w.Key)
	}
	if strings.TrimSpace(w.TargetUserID) == "" {
		return fmt.Errorf("%w: TargetUserIDは必須項目です (workspace=%s)", ErrInvalid, w.Key)
	}
	return nil
}

// DestinationConfig は転送先チャンネルの設定です（プロセス内で1つ）
type DestinationConfig struct {
	// Token は転送先ワークスペースの Bot トークン
	Token string

	// ChannelID は転送先チャンネルのID
	ChannelID string
}

// Validate は DestinationConfig の必須項目を検証します
func (d DestinationConfig) Validate() error {
	if strings.TrimSpace(d.Token) == "" {
		return fmt.Errorf("%w: 転送先トークンは必須項目です", ErrInvalid)
	}
	if strings.TrimSpace(d.ChannelID) == "" {
		return fmt.Errorf("%w: 転送先チャンネルは必須項目です", ErrInvalid)
	}
	return nil
}

// InboundEvent は受信したメッセージイベント1件を表します
// HTTP / Socket Mode のどちらで受信しても同じ形に正規化されます
type InboundEvent struct {
	// WorkspaceID はイベントの所属ワークスペース（Key または TeamID）
	WorkspaceID string

	// EventID は Slack が付与するイベントID（再送検知に使用）
	EventID string

	// Type はイベント種別（"message" など）
	Type string

	// SubType はメッセージのサブタイプ（"message_changed" など）
	SubType string

	// SenderUserID はメッセージ送信者のユーザーID
	SenderUserID string

	// ChannelID は投稿チャンネルのID
	ChannelID string

	// Text はメッセージ本文
	Text string

	// Timestamp はメッセージの ts
	Timestamp string

	// BotID は Bot 投稿の場合に設定されます
	BotID string
}

// ForwardedMessage は転送用に組み立てたメッセージです
type ForwardedMessage struct {
	WorkspaceName   string
	SenderName      string
	ChannelName     string
	QuotedBody      string
	LeadingMentions []string
}

// WorkspaceRecord は Firestore に保存されたワークスペース設定です
// 認証情報そのものは持たず、Secret Manager のシークレット名を参照します
type WorkspaceRecord struct {
	Key                string
	TeamID             string
	Name               string
	TargetUserID       string
	BotTokenSecretName string
	SigningSecretName  string
	AppTokenSecretName string
}

// Validate は WorkspaceRecord の必須項目を検証します
func (r WorkspaceRecord) Validate() error {
	if strings.TrimSpace(r.Key) == "" {
		return fmt.Errorf("%w: workspace_idは必須項目です", ErrInvalid)
	}
	if strings.TrimSpace(r.TargetUserID) == "" {
		return fmt.Errorf("%w: target_user_idは必須項目です (workspace=%s)", ErrInvalid, r.Key)
	}
	if strings.TrimSpace(r.BotTokenSecretName) == "" {
		return fmt.Errorf("%w: bot_token_secret_nameは必須項目です (workspace=%s)", ErrInvalid, r.Key)
	}
	return nil
}
