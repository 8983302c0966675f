package keepalive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// デフォルトの実行間隔（ホスティング側のアイドル停止を防ぐ）
const DefaultInterval = 600 * time.Second

// Pinger は一定間隔で自サービスのヘルスチェックエンドポイントを呼び出します
// 失敗はログに記録するのみで、呼び出し元には伝えません
type Pinger struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// NewPinger は Pinger を初期化します
func NewPinger(url string, interval time.Duration, log zerolog.Logger) *Pinger {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pinger{
		url:        url,
		interval:   interval,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "keepalive").Logger(),
	}
}

// Run は ctx がキャンセルされるまで定期的に Ping を実行します
func (p *Pinger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info().Str("url", p.url).Dur("interval", p.interval).Msg("キープアライブ開始")

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("キープアライブ停止")
			return
		case <-ticker.C:
			if err := p.Ping(ctx); err != nil {
				p.log.Warn().Err(err).Msg("キープアライブ失敗")
				continue
			}
			p.log.Debug().Msg("キープアライブ成功")
		}
	}
}

// Ping はヘルスチェックエンドポイントを1回呼び出します
func (p *Pinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("keepalive: リクエスト作成失敗: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keepalive: リクエスト送信失敗 (url=%s): %w", p.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("keepalive: 異常なステータス (status=%d, url=%s)", resp.StatusCode, p.url)
	}

	return nil
}

// Close はアイドル接続を閉じます
func (p *Pinger) Close() error {
	if p.httpClient != nil {
		p.httpClient.CloseIdleConnections()
	}
	return nil
}
