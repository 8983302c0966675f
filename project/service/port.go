package service

import "context"

// NameResolver は Slack のユーザーID・チャンネルIDを表示名に解決するポートです
// 転送元ワークスペースごとに1つ用意されます
type NameResolver interface {
	// ResolveUser はユーザーIDから表示名を取得します
	// 取得できない場合は domain.ErrLookup をラップしたエラーを返します
	ResolveUser(ctx context.Context, userID string) (string, error)

	// ResolveChannel はチャンネルIDからチャンネル名を取得します
	// 取得できない場合は domain.ErrLookup をラップしたエラーを返します
	ResolveChannel(ctx context.Context, channelID string) (string, error)
}

// ForwardPort は転送先チャンネルへの投稿ポートです
type ForwardPort interface {
	// Forward は整形済みテキストを転送先チャンネルに投稿します
	// 失敗時は domain.ErrDelivery をラップしたエラーを返します
	Forward(ctx context.Context, text string) error
}

// ReplyPort は転送元ワークスペースのチャンネルへ返信するポートです
type ReplyPort interface {
	// Reply は channelID に text を投稿します
	Reply(ctx context.Context, channelID, text string) error
}

// RedeliveryGuard は Slack のイベント再送を検知するポートです
type RedeliveryGuard interface {
	// Seen は key が既に処理済みなら true を返します。未処理なら処理済みとして記録します
	Seen(key string) bool
}
