package service

import "mention-relay/project/domain"

// Workspace はルーティング対象の転送元ワークスペースです
// 設定値と、そのワークスペースのトークンで作られた名前解決クライアントを組で保持します
type Workspace struct {
	// Config はワークスペース設定（起動後は変更されません）
	Config domain.WorkspaceConfig

	// Resolver はこのワークスペースのユーザー名・チャンネル名を解決します
	Resolver NameResolver

	// Replier は疎通確認の返信に使います（nil の場合は返信しません）
	Replier ReplyPort
}
