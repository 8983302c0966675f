package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"mention-relay/project/domain"
)

// 受信方式
const (
	TransportHTTP   = "http"
	TransportSocket = "socket"
)

// 単一ワークスペース構成（開発用）で使うワークスペース Key
const DefaultWorkspaceKey = "default"

// Config は環境変数から読み込まれるアプリケーション設定を表します
// 起動時に一度だけ読み込まれ、以降は変更されません
type Config struct {
	// 基本設定
	Port      string `envconfig:"PORT" default:"10000"`
	Transport string `envconfig:"TRANSPORT" default:"http"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	// 転送先設定
	DestToken   string `envconfig:"DEST_SLACK_BOT_TOKEN" required:"true"`
	DestChannel string `envconfig:"DEST_CHANNEL" required:"true"`

	// 転送元ワークスペースの Key 一覧（例: workspace_b,workspace_c）
	WorkspaceKeys []string `envconfig:"RELAY_WORKSPACES"`

	// 転送メッセージの先頭に付けるメンション対象
	NotifyUserIDs []string `envconfig:"NOTIFY_USER_IDS"`

	// 本文が "test" のメッセージに返信する疎通確認
	TestReply bool `envconfig:"TEST_REPLY" default:"false"`

	// 再送検知の保持期間（0 で無効）
	DedupTTL time.Duration `envconfig:"DEDUP_TTL" default:"10m"`

	// キープアライブ設定（PING_URL が空なら無効）
	PingURL      string        `envconfig:"PING_URL"`
	PingInterval time.Duration `envconfig:"PING_INTERVAL" default:"600s"`

	// Slack API のベースURL（テスト・プロキシ用）
	SlackAPIBase string `envconfig:"SLACK_API_BASE"`

	// Firestore / Secret Manager 設定（GCP_PROJECT が空なら無効）
	GcpProject          string `envconfig:"GCP_PROJECT"`
	FirestoreProjectID  string `envconfig:"FIRESTORE_PROJECT_ID"`
	CollectionWorkspace string `envconfig:"FS_COLLECTION_WORKSPACES" default:"relay_workspaces"`

	// Workspaces は環境変数から読み込んだ転送元ワークスペース
	Workspaces []domain.WorkspaceConfig `ignored:"true"`
}

// WorkspaceEnv はワークスペースごとの環境変数です
// prefix に Key の大文字を指定して読み込みます（例: WORKSPACE_B_SOURCE_TOKEN）
// envconfig タグを付けると prefix なしの同名変数が代替キーとして参照されるため、
// split_words でフィールド名からキーを作り、prefix 付きのキーのみを読みます
type WorkspaceEnv struct {
	SourceToken   string `split_words:"true" required:"true"`
	SigningSecret string `split_words:"true"`
	AppToken      string `split_words:"true"`
	TargetUserID  string `split_words:"true" required:"true"`
	TeamID        string `split_words:"true"`
	Name          string
}

// legacyEnv は単一ワークスペース構成の環境変数です
type legacyEnv struct {
	SourceToken   string `envconfig:"SOURCE_SLACK_BOT_TOKEN"`
	SigningSecret string `envconfig:"SOURCE_SIGNING_SECRET"`
	AppToken      string `envconfig:"SOURCE_APP_TOKEN"`
	TargetUserID  string `envconfig:"TARGET_USER_ID"`
	TeamID        string `envconfig:"SOURCE_TEAM_ID"`
}

// NewConfig は環境変数から設定を読み込み、Config構造体を返します
// 必須項目が不足している場合は domain.ErrConfiguration をラップしたエラーを返します
func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w: %w", domain.ErrConfiguration, err)
	}

	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport != TransportHTTP && cfg.Transport != TransportSocket {
		return nil, fmt.Errorf("config: %w: TRANSPORT は http か socket を指定してください (value=%s)", domain.ErrConfiguration, cfg.Transport)
	}
	if cfg.FirestoreProjectID == "" {
		cfg.FirestoreProjectID = cfg.GcpProject
	}

	keys := normalizeKeys(cfg.WorkspaceKeys)
	for _, key := range keys {
		ws, err := loadWorkspace(key)
		if err != nil {
			return nil, err
		}
		cfg.Workspaces = append(cfg.Workspaces, ws)
	}

	// ワークスペース一覧もリモート設定もない場合は単一ワークスペース構成として読み込む
	if len(keys) == 0 && cfg.GcpProject == "" {
		ws, err := loadLegacyWorkspace()
		if err != nil {
			return nil, err
		}
		cfg.Workspaces = append(cfg.Workspaces, ws)
	}

	for _, ws := range cfg.Workspaces {
		if err := cfg.CheckWorkspace(ws); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Destination は転送先設定を返します
func (c *Config) Destination() domain.DestinationConfig {
	return domain.DestinationConfig{
		Token:     c.DestToken,
		ChannelID: c.DestChannel,
	}
}

// RemoteEnabled は Firestore からワークスペース設定を読み込むかどうかを返します
func (c *Config) RemoteEnabled() bool {
	return c.GcpProject != ""
}

// CheckWorkspace はワークスペース設定が受信方式に必要な認証情報を持っているか検証します
func (c *Config) CheckWorkspace(ws domain.WorkspaceConfig) error {
	if err := ws.Validate(); err != nil {
		return fmt.Errorf("config: %w: %w", domain.ErrConfiguration, err)
	}
	switch c.Transport {
	case TransportHTTP:
		if strings.TrimSpace(ws.SigningSecret) == "" {
			return fmt.Errorf("config: %w: HTTP 受信には署名シークレットが必要です (workspace=%s)", domain.ErrConfiguration, ws.Key)
		}
	case TransportSocket:
		if strings.TrimSpace(ws.AppToken) == "" {
			return fmt.Errorf("config: %w: Socket Mode にはアプリトークンが必要です (workspace=%s)", domain.ErrConfiguration, ws.Key)
		}
	}
	return nil
}

// loadWorkspace は Key を prefix としてワークスペースの環境変数を読み込みます
func loadWorkspace(key string) (domain.WorkspaceConfig, error) {
	var env WorkspaceEnv
	if err := envconfig.Process(EnvPrefix(key), &env); err != nil {
		return domain.WorkspaceConfig{}, fmt.Errorf("config: %w: ワークスペース設定の読み込み失敗 (workspace=%s): %w", domain.ErrConfiguration, key, err)
	}

	return domain.WorkspaceConfig{
		Key:           key,
		TeamID:        env.TeamID,
		Name:          env.Name,
		SourceToken:   env.SourceToken,
		SigningSecret: env.SigningSecret,
		AppToken:      env.AppToken,
		TargetUserID:  env.TargetUserID,
	}, nil
}

// loadLegacyWorkspace は単一ワークスペース構成の環境変数を読み込みます
func loadLegacyWorkspace() (domain.WorkspaceConfig, error) {
	var env legacyEnv
	if err := envconfig.Process("", &env); err != nil {
		return domain.WorkspaceConfig{}, fmt.Errorf("config: %w: %w", domain.ErrConfiguration, err)
	}
	if env.SourceToken == "" || env.TargetUserID == "" {
		return domain.WorkspaceConfig{}, fmt.Errorf("config: %w: RELAY_WORKSPACES または SOURCE_SLACK_BOT_TOKEN / TARGET_USER_ID を設定してください", domain.ErrConfiguration)
	}

	return domain.WorkspaceConfig{
		Key:           DefaultWorkspaceKey,
		TeamID:        env.TeamID,
		SourceToken:   env.SourceToken,
		SigningSecret: env.SigningSecret,
		AppToken:      env.AppToken,
		TargetUserID:  env.TargetUserID,
	}, nil
}

// EnvPrefix はワークスペース Key から環境変数の prefix を作ります
// 例: "workspace-b" -> "WORKSPACE_B"
func EnvPrefix(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// normalizeKeys は空要素と重複を取り除きます
func normalizeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	var result []string
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, key)
	}
	return result
}
