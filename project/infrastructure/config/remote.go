package config

import (
	"context"
	"fmt"

	"mention-relay/project/domain"
)

// SecretSource はシークレット名から値を取得するポートです（Secret Manager 実装を想定）
type SecretSource interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// LoadRemoteWorkspaces は Firestore のワークスペース設定を読み込み、
// 認証情報を Secret Manager から解決して WorkspaceConfig に変換します
func LoadRemoteWorkspaces(ctx context.Context, repo domain.WorkspaceRepository, secrets SecretSource) ([]domain.WorkspaceConfig, error) {
	records, err := repo.ListWorkspaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("config: %w: リモート設定の読み込み失敗: %w", domain.ErrConfiguration, err)
	}

	workspaces := make([]domain.WorkspaceConfig, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("config: %w: %w", domain.ErrConfiguration, err)
		}

		ws := domain.WorkspaceConfig{
			Key:          rec.Key,
			TeamID:       rec.TeamID,
			Name:         rec.Name,
			TargetUserID: rec.TargetUserID,
		}

		if ws.SourceToken, err = secrets.GetSecret(ctx, rec.BotTokenSecretName); err != nil {
			return nil, fmt.Errorf("config: %w: Botトークン取得失敗 (workspace=%s): %w", domain.ErrConfiguration, rec.Key, err)
		}
		if rec.SigningSecretName != "" {
			if ws.SigningSecret, err = secrets.GetSecret(ctx, rec.SigningSecretName); err != nil {
				return nil, fmt.Errorf("config: %w: 署名シークレット取得失敗 (workspace=%s): %w", domain.ErrConfiguration, rec.Key, err)
			}
		}
		if rec.AppTokenSecretName != "" {
			if ws.AppToken, err = secrets.GetSecret(ctx, rec.AppTokenSecretName); err != nil {
				return nil, fmt.Errorf("config: %w: アプリトークン取得失敗 (workspace=%s): %w", domain.ErrConfiguration, rec.Key, err)
			}
		}

		workspaces = append(workspaces, ws)
	}

	return workspaces, nil
}

// MergeWorkspaces は環境変数とリモートのワークスペース設定を結合します
// Key の重複、またはワークスペースが1件もない場合は domain.ErrConfiguration を返します
func (c *Config) MergeWorkspaces(remote []domain.WorkspaceConfig) ([]domain.WorkspaceConfig, error) {
	merged := make([]domain.WorkspaceConfig, 0, len(c.Workspaces)+len(remote))
	seen := make(map[string]bool)

	for _, ws := range append(append([]domain.WorkspaceConfig(nil), c.Workspaces...), remote...) {
		if seen[ws.Key] {
			return nil, fmt.Errorf("config: %w: ワークスペースが重複しています (workspace=%s)", domain.ErrConfiguration, ws.Key)
		}
		if err := c.CheckWorkspace(ws); err != nil {
			return nil, err
		}
		seen[ws.Key] = true
		merged = append(merged, ws)
	}

	if len(merged) == 0 {
		return nil, fmt.Errorf("config: %w: 転送元ワークスペースが1件も設定されていません", domain.ErrConfiguration)
	}

	return merged, nil
}
