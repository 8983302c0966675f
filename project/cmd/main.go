package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mention-relay/project/domain"
	"mention-relay/project/handler"
	"mention-relay/project/infrastructure/config"
	"mention-relay/project/infrastructure/dedup"
	"mention-relay/project/infrastructure/keepalive"
	"mention-relay/project/infrastructure/logging"
	"mention-relay/project/infrastructure/secret"
	"mention-relay/project/infrastructure/slack"
	"mention-relay/project/infrastructure/store"
	"mention-relay/project/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. 設定を読み込む
	cfg, err := config.NewConfig()
	if err != nil {
		bootLog := logging.New("info", "console", os.Stderr)
		bootLog.Fatal().Err(err).Msg("設定読み込み失敗")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("起動失敗")
	}
}

// run は依存関係を初期化し、シグナルを受けるまでサーバーを動かします
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// 2. 転送元ワークスペースを確定する（環境変数 + Firestore）
	workspaces, err := loadWorkspaces(ctx, cfg, log)
	if err != nil {
		return err
	}
	logSummary(cfg, workspaces, log)

	// 3. サービス層を初期化
	entries := make([]service.Workspace, 0, len(workspaces))
	for _, ws := range workspaces {
		api := slack.NewAPI(ws.SourceToken, cfg.SlackAPIBase)
		entries = append(entries, service.Workspace{
			Config:   ws,
			Resolver: slack.NewResolver(api),
			Replier:  slack.NewReplier(api),
		})
	}
	registry, err := service.NewRegistry(entries)
	if err != nil {
		return err
	}

	dest := cfg.Destination()
	if err := dest.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	forwarder := slack.NewForwarder(slack.NewAPI(dest.Token, cfg.SlackAPIBase), dest.ChannelID)

	// nil ポインタを interface に入れないよう、無効時は guard 自体を nil にする
	var guard service.RedeliveryGuard
	if cfg.DedupTTL > 0 {
		guard = dedup.NewCache(cfg.DedupTTL)
	}

	router := service.NewEventRouter(registry, forwarder, guard, cfg.NotifyUserIDs, log,
		service.WithConnectivityReply(cfg.TestReply),
	)

	// 4. HTTP ハンドラーを設定
	mux := handler.NewServeMux(
		handler.NewEventsHandler(registry, router, log),
		handler.NewHealthHandler(),
	)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           handler.Recover(mux, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 5. サーバー・リスナー起動
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("サーバー起動")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーエラー: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("サーバー停止中")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Transport == config.TransportSocket {
		listener := handler.NewSocketListener(registry, router, cfg.SlackAPIBase, log)
		g.Go(func() error {
			return listener.Run(ctx)
		})
	}

	if cfg.PingURL != "" {
		pinger := keepalive.NewPinger(cfg.PingURL, cfg.PingInterval, log)
		defer pinger.Close()
		g.Go(func() error {
			pinger.Run(ctx)
			return nil
		})
	}

	return g.Wait()
}

// loadWorkspaces は環境変数のワークスペースに Firestore 上の設定を合わせて返します
func loadWorkspaces(ctx context.Context, cfg *config.Config, log zerolog.Logger) ([]domain.WorkspaceConfig, error) {
	if !cfg.RemoteEnabled() {
		return cfg.MergeWorkspaces(nil)
	}

	// Secret Manager
	secretMgr, err := secret.NewManager(ctx, cfg.GcpProject)
	if err != nil {
		return nil, err
	}
	defer secretMgr.Close()

	// Firestore リポジトリ
	repo, err := store.NewFirestoreRepo(ctx, cfg.FirestoreProjectID, cfg.CollectionWorkspace)
	if err != nil {
		return nil, err
	}
	defer repo.Close()

	remote, err := config.LoadRemoteWorkspaces(ctx, repo, secretMgr)
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", len(remote)).Str("collection", cfg.CollectionWorkspace).Msg("Firestore からワークスペース設定を読み込みました")

	return cfg.MergeWorkspaces(remote)
}

// logSummary は起動時の設定をトークンを伏せて出力します
func logSummary(cfg *config.Config, workspaces []domain.WorkspaceConfig, log zerolog.Logger) {
	log.Info().
		Str("transport", cfg.Transport).
		Str("dest_channel", cfg.DestChannel).
		Str("dest_token", logging.Mask(cfg.DestToken)).
		Strs("notify_user_ids", cfg.NotifyUserIDs).
		Dur("dedup_ttl", cfg.DedupTTL).
		Bool("test_reply", cfg.TestReply).
		Msg("設定を読み込みました")

	for _, ws := range workspaces {
		log.Info().
			Str("workspace", ws.Key).
			Str("name", ws.DisplayName()).
			Str("team_id", ws.TeamID).
			Str("target_user_id", ws.TargetUserID).
			Str("source_token", logging.Mask(ws.SourceToken)).
			Str("signing_secret", logging.Mask(ws.SigningSecret)).
			Msg("転送元ワークスペース")
	}
}
