package domain

import (
	"context"
)

// WorkspaceRepository はリモートに保存されたワークスペース設定の読み出しを担当します
type WorkspaceRepository interface {
	// ListWorkspaces は登録済みのワークスペース設定をすべて返します
	// 起動時に一度だけ呼ばれます。1件もない場合は空スライスを返します
	ListWorkspaces(ctx context.Context) ([]WorkspaceRecord, error)
}
