package dto

import "mention-relay/project/domain"

// Events API のエンベロープ種別
const (
	TypeURLVerification = "url_verification"
	TypeEventCallback   = "event_callback"
)

// SlackEventRequest は Slack Events API のリクエスト全体を表します
type SlackEventRequest struct {
	Token          string               `json:"token"`
	TeamID         string               `json:"team_id"`
	APIAppID       string               `json:"api_app_id"`
	Event          SlackEvent           `json:"event"`
	Type           string               `json:"type"` // "event_callback", "url_verification"
	EventID        string               `json:"event_id"`
	EventTime      int64                `json:"event_time"`
	Challenge      string               `json:"challenge,omitempty"` // URL検証時のみ
	Authorizations []SlackAuthorization `json:"authorizations,omitempty"`
}

// SlackEvent は message イベントの本体です
type SlackEvent struct {
	Type        string `json:"type"`                   // "message" など
	User        string `json:"user"`                   // メッセージ送信者
	Text        string `json:"text"`                   // メッセージ本文
	Channel     string `json:"channel"`                // チャンネルID
	ChannelType string `json:"channel_type,omitempty"` // "channel", "im" など
	Timestamp   string `json:"ts"`                     // メッセージTS
	ThreadTs    string `json:"thread_ts,omitempty"`    // スレッドTS（スレッド内の場合）
	BotID       string `json:"bot_id,omitempty"`       // Bot投稿の場合
	SubType     string `json:"subtype,omitempty"`      // "bot_message", "message_changed" など
	Team        string `json:"team,omitempty"`         // 投稿者の所属チーム
}

// SlackAuthorization は OAuth 認可情報を表します
type SlackAuthorization struct {
	EnterpriseID string `json:"enterprise_id,omitempty"`
	TeamID       string `json:"team_id"`
	UserID       string `json:"user_id"`
	IsBot        bool   `json:"is_bot"`
}

// ToInboundEvent はエンベロープを domain.InboundEvent に変換します
func (r SlackEventRequest) ToInboundEvent(workspaceID string) *domain.InboundEvent {
	return &domain.InboundEvent{
		WorkspaceID:  workspaceID,
		EventID:      r.EventID,
		Type:         r.Event.Type,
		SubType:      r.Event.SubType,
		SenderUserID: r.Event.User,
		ChannelID:    r.Event.Channel,
		Text:         r.Event.Text,
		Timestamp:    r.Event.Timestamp,
		BotID:        r.Event.BotID,
	}
}

// ChallengeResponse は url_verification への応答です
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
}

// AckResponse はイベント受信への応答です
type AckResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
