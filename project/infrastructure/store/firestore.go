package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"mention-relay/project/domain"
)

// isNotFound は Firestore の NotFound エラーを判定するヘルパー関数です
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}

// workspaceDoc は Firestore 上のワークスペース設定ドキュメントです
type workspaceDoc struct {
	WorkspaceID        string `firestore:"workspace_id"`
	TeamID             string `firestore:"team_id"`
	Name               string `firestore:"name"`
	TargetUserID       string `firestore:"target_user_id"`
	BotTokenSecretName string `firestore:"bot_token_secret_name"`
	SigningSecretName  string `firestore:"signing_secret_name"`
	AppTokenSecretName string `firestore:"app_token_secret_name"`
	Disabled           bool   `firestore:"disabled"`
}

// toRecord はドキュメントを domain.WorkspaceRecord に変換します
// workspace_id が空の場合はドキュメントIDを Key として使います
func (d workspaceDoc) toRecord(docID string) domain.WorkspaceRecord {
	key := d.WorkspaceID
	if key == "" {
		key = docID
	}
	return domain.WorkspaceRecord{
		Key:                key,
		TeamID:             d.TeamID,
		Name:               d.Name,
		TargetUserID:       d.TargetUserID,
		BotTokenSecretName: d.BotTokenSecretName,
		SigningSecretName:  d.SigningSecretName,
		AppTokenSecretName: d.AppTokenSecretName,
	}
}

// FirestoreRepo は domain.WorkspaceRepository の Firestore 実装です
type FirestoreRepo struct {
	cli           *firestore.Client
	workspacesCol string
}

// NewFirestoreRepo は Firestore リポジトリを初期化します
func NewFirestoreRepo(ctx context.Context, projectID, workspacesCol string) (*FirestoreRepo, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: クライアント初期化失敗: %w", err)
	}

	return &FirestoreRepo{
		cli:           client,
		workspacesCol: workspacesCol,
	}, nil
}

// ListWorkspaces はコレクション内のワークスペース設定をドキュメントID順にすべて返します
// disabled が true のドキュメントは除外します
func (repo *FirestoreRepo) ListWorkspaces(ctx context.Context) ([]domain.WorkspaceRecord, error) {
	iter := repo.cli.Collection(repo.workspacesCol).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var records []domain.WorkspaceRecord
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("firestore: %w (collection=%s)", domain.ErrNotFound, repo.workspacesCol)
			}
			return nil, fmt.Errorf("firestore: ワークスペース一覧取得失敗 (collection=%s): %w", repo.workspacesCol, err)
		}

		var doc workspaceDoc
		if err := snapshot.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore: ワークスペース構造体変換失敗 (docID=%s): %w", snapshot.Ref.ID, err)
		}
		if doc.Disabled {
			continue
		}

		records = append(records, doc.toRecord(snapshot.Ref.ID))
	}

	return records, nil
}

// Close は Firestore クライアントを閉じます
func (repo *FirestoreRepo) Close() error {
	if repo.cli != nil {
		return repo.cli.Close()
	}
	return nil
}
