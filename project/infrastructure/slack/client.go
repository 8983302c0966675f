package slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"mention-relay/project/domain"
)

// デフォルトの Slack Web API エンドポイント
const defaultAPIBase = "https://slack.com/api/"

// NewAPI はトークンから Slack API クライアントを作成します
// apiBase が空の場合は Slack 本番の API を使用します（テストではモックサーバーを指定）
func NewAPI(token, apiBase string, opts ...slack.Option) *slack.Client {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		base = defaultAPIBase
	}
	base = strings.TrimRight(base, "/") + "/"

	options := []slack.Option{
		slack.OptionHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		slack.OptionAPIURL(base),
	}
	options = append(options, opts...)

	return slack.New(token, options...)
}

// Resolver は service.NameResolver の Slack SDK 実装です
// 転送元ワークスペースの Bot トークンで作成します
type Resolver struct {
	api *slack.Client
}

// NewResolver は名前解決クライアントを作成します
func NewResolver(api *slack.Client) *Resolver {
	return &Resolver{api: api}
}

// ResolveUser は users.info でユーザーの表示名を取得します
// profile.real_name → real_name → name の順で最初に空でない値を返します
func (r *Resolver) ResolveUser(ctx context.Context, userID string) (string, error) {
	user, err := r.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("slack: %w: ユーザー情報取得失敗 (user=%s): %w", domain.ErrLookup, userID, err)
	}

	for _, name := range []string{user.Profile.RealName, user.RealName, user.Name} {
		if strings.TrimSpace(name) != "" {
			return name, nil
		}
	}

	return "", fmt.Errorf("slack: %w: ユーザー名が空です (user=%s)", domain.ErrLookup, userID)
}

// ResolveChannel は conversations.info でチャンネル名を取得します
func (r *Resolver) ResolveChannel(ctx context.Context, channelID string) (string, error) {
	ch, err := r.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		return "", fmt.Errorf("slack: %w: チャンネル情報取得失敗 (channel=%s): %w", domain.ErrLookup, channelID, err)
	}

	if strings.TrimSpace(ch.Name) == "" {
		return "", fmt.Errorf("slack: %w: チャンネル名が空です (channel=%s)", domain.ErrLookup, channelID)
	}

	return ch.Name, nil
}

// Forwarder は service.ForwardPort の Slack SDK 実装です
// 転送先ワークスペースの Bot トークンで作成し、固定のチャンネルに投稿します
type Forwarder struct {
	api       *slack.Client
	channelID string
}

// NewForwarder は転送クライアントを作成します
func NewForwarder(api *slack.Client, channelID string) *Forwarder {
	return &Forwarder{
		api:       api,
		channelID: channelID,
	}
}

// Forward は chat.postMessage で転送先チャンネルにメッセージを投稿します
// 再送は行いません
func (f *Forwarder) Forward(ctx context.Context, text string) error {
	_, _, err := f.api.PostMessageContext(
		ctx,
		f.channelID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return fmt.Errorf("slack: %w: メッセージ投稿失敗 (channel=%s): %w", domain.ErrDelivery, f.channelID, err)
	}

	return nil
}

// Replier は service.ReplyPort の Slack SDK 実装です
// 転送元ワークスペースの Bot トークンで作成します
type Replier struct {
	api *slack.Client
}

// NewReplier は返信クライアントを作成します
func NewReplier(api *slack.Client) *Replier {
	return &Replier{api: api}
}

// Reply は chat.postMessage で channelID に投稿します
func (r *Replier) Reply(ctx context.Context, channelID, text string) error {
	if _, _, err := r.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack: %w: 返信失敗 (channel=%s): %w", domain.ErrDelivery, channelID, err)
	}
	return nil
}
