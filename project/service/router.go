package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"mention-relay/project/domain"
)

// 処理対象外のメッセージサブタイプ（編集・削除は転送しない）
var ignoredSubTypes = map[string]bool{
	"message_changed": true,
	"message_deleted": true,
}

// 疎通確認メッセージと、その返信
const (
	connectivityCheckText = "test"
	connectivityReplyText = "テストメッセージを受信しました！"
)

// EventRouter は受信イベントを所属ワークスペースの設定で処理し、転送するサービスです
type EventRouter interface {
	// Route は workspaceID のワークスペース設定でイベントを処理します
	// 未登録のワークスペースの場合は domain.ErrUnknownWorkspace を返します
	// 転送の失敗はログに記録するのみで、エラーとしては返しません
	Route(ctx context.Context, workspaceID string, ev *domain.InboundEvent) error
}

// eventRouter は EventRouter の実装です
type eventRouter struct {
	registry        *Registry
	forwarder       ForwardPort
	guard           RedeliveryGuard
	leadingMentions []string
	testReply       bool
	log             zerolog.Logger
}

// RouterOption は EventRouter の任意設定です
type RouterOption func(*eventRouter)

// WithConnectivityReply は本文が "test" と完全一致するメッセージに返信する疎通確認を有効にします
func WithConnectivityReply(enabled bool) RouterOption {
	return func(er *eventRouter) {
		er.testReply = enabled
	}
}

// NewEventRouter は EventRouter のインスタンスを作成します
// guard が nil の場合は再送検知を行いません
func NewEventRouter(
	registry *Registry,
	forwarder ForwardPort,
	guard RedeliveryGuard,
	leadingMentions []string,
	log zerolog.Logger,
	opts ...RouterOption,
) EventRouter {
	er := &eventRouter{
		registry:        registry,
		forwarder:       forwarder,
		guard:           guard,
		leadingMentions: append([]string(nil), leadingMentions...),
		log:             log,
	}
	for _, opt := range opts {
		opt(er)
	}
	return er
}

// Route はメンション検知・整形・転送を順に行います
func (er *eventRouter) Route(ctx context.Context, workspaceID string, ev *domain.InboundEvent) error {
	if ev == nil {
		return fmt.Errorf("Route: %w: イベントが空です", domain.ErrMalformedEvent)
	}

	ws, ok := er.registry.Lookup(workspaceID)
	if !ok {
		er.log.Warn().Str("workspace", workspaceID).Msg("未登録のワークスペースです")
		return fmt.Errorf("Route: %w (workspace=%s)", domain.ErrUnknownWorkspace, workspaceID)
	}

	log := er.log.With().
		Str("workspace", ws.Config.Key).
		Str("channel", ev.ChannelID).
		Str("ts", ev.Timestamp).
		Logger()

	// テキストを持たないイベント（チャンネル参加など）は対象外
	if ev.Text == "" {
		log.Debug().Str("subtype", ev.SubType).Msg("テキストが含まれていません")
		return nil
	}
	if ignoredSubTypes[ev.SubType] {
		log.Debug().Str("subtype", ev.SubType).Msg("編集・削除イベントはスキップします")
		return nil
	}

	if er.testReply && ev.Text == connectivityCheckText {
		er.replyConnectivity(ctx, ws, ev, log)
		return nil
	}

	if !IsTargetMentioned(ev.Text, ws.Config.TargetUserID) {
		log.Debug().Msg("監視対象のユーザーがメンションされていません")
		return nil
	}

	if er.guard != nil && ev.EventID != "" {
		if er.guard.Seen(ws.Config.Key + ":" + ev.EventID) {
			log.Info().Str("event_id", ev.EventID).Msg("再送されたイベントのためスキップします")
			return nil
		}
	}

	text := er.buildMessage(ctx, ws, ev, log)

	// 転送失敗は受信側の応答に影響させない
	if err := er.forwarder.Forward(ctx, text); err != nil {
		log.Error().Err(err).Msg("メッセージの転送に失敗しました")
		return nil
	}

	log.Info().Str("sender", ev.SenderUserID).Msg("メッセージの転送に成功しました")
	return nil
}

// replyConnectivity は疎通確認メッセージに受信元チャンネルで返信します
// 返信の失敗はログに記録するのみです
func (er *eventRouter) replyConnectivity(ctx context.Context, ws Workspace, ev *domain.InboundEvent, log zerolog.Logger) {
	if ws.Replier == nil {
		log.Debug().Msg("返信クライアントが未設定のため疎通確認に返信しません")
		return
	}
	if err := ws.Replier.Reply(ctx, ev.ChannelID, connectivityReplyText); err != nil {
		log.Error().Err(err).Msg("疎通確認への返信に失敗しました")
		return
	}
	log.Info().Str("sender", ev.SenderUserID).Msg("疎通確認メッセージに返信しました")
}

// buildMessage は名前解決を行い、転送用テキストを組み立てます
func (er *eventRouter) buildMessage(ctx context.Context, ws Workspace, ev *domain.InboundEvent, log zerolog.Logger) string {
	names := make(map[string]string)
	for _, userID := range uniqueIDs(ExtractMentionIDs(ev.Text)) {
		names[userID] = resolveUserName(ctx, ws.Resolver, userID, log)
	}

	msg := domain.ForwardedMessage{
		WorkspaceName:   ws.Config.DisplayName(),
		SenderName:      resolveUserName(ctx, ws.Resolver, ev.SenderUserID, log),
		ChannelName:     resolveChannelName(ctx, ws.Resolver, ev.ChannelID, log),
		QuotedBody:      QuoteBody(ReplaceMentions(ev.Text, names)),
		LeadingMentions: er.leadingMentions,
	}

	return FormatMessage(msg)
}

// resolveUserName はユーザー名を取得します。失敗時は代替表示を返します
func resolveUserName(ctx context.Context, r NameResolver, userID string, log zerolog.Logger) string {
	if userID == "" {
		return UnknownUserName(userID)
	}
	name, err := r.ResolveUser(ctx, userID)
	if err != nil || name == "" {
		log.Warn().Err(err).Str("user", userID).Msg("ユーザー情報の取得に失敗しました")
		return UnknownUserName(userID)
	}
	return name
}

// resolveChannelName はチャンネル名を取得します。失敗時は代替表示を返します
func resolveChannelName(ctx context.Context, r NameResolver, channelID string, log zerolog.Logger) string {
	if channelID == "" {
		return UnknownChannelName(channelID)
	}
	name, err := r.ResolveChannel(ctx, channelID)
	if err != nil || name == "" {
		log.Warn().Err(err).Str("channel_id", channelID).Msg("チャンネル情報の取得に失敗しました")
		return UnknownChannelName(channelID)
	}
	return name
}
