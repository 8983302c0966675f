package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mention-relay/project/domain"
	"mention-relay/project/service"
)

// 転送パイプライン1件あたりの処理時間の上限
const routeTimeout = 30 * time.Second

// goSpawn は f を新しい goroutine で実行します
func goSpawn(f func()) { go f() }

// dispatch は転送パイプラインを spawn 経由で起動します
// パイプライン内の panic はログに記録し、プロセスは停止させません
func dispatch(spawn func(func()), router service.EventRouter, log zerolog.Logger, workspaceKey string, ev *domain.InboundEvent) {
	spawn(func() {
		defer func() {
			if p := recover(); p != nil {
				log.Error().
					Interface("panic", p).
					Str("event_id", ev.EventID).
					Msg("イベント処理中に panic が発生しました")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), routeTimeout)
		defer cancel()

		if err := router.Route(ctx, workspaceKey, ev); err != nil {
			log.Error().Err(err).Str("event_id", ev.EventID).Msg("イベント処理エラー")
		}
	})
}
