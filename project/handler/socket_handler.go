package handler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"golang.org/x/sync/errgroup"

	"mention-relay/project/domain"
	infraslack "mention-relay/project/infrastructure/slack"
	"mention-relay/project/service"
)

// socketConn は Socket Mode 接続のうち、リスナーが使う操作です
// *socketmode.Client が実装します
type socketConn interface {
	Ack(req socketmode.Request, payload ...interface{})
	RunContext(ctx context.Context) error
}

// SocketListener は Socket Mode でワークスペースごとにイベントを受信します
type SocketListener struct {
	registry *service.Registry
	router   service.EventRouter
	apiBase  string
	log      zerolog.Logger

	// connect はワークスペースの接続とイベントチャネルを作成します（テストでは差し替える）
	connect func(ws domain.WorkspaceConfig) (socketConn, <-chan socketmode.Event)
	// spawn は転送パイプラインを起動します（テストでは同期実行に差し替える）
	spawn func(func())
}

// NewSocketListener は Socket Mode リスナーを作成します
func NewSocketListener(registry *service.Registry, router service.EventRouter, apiBase string, log zerolog.Logger) *SocketListener {
	l := &SocketListener{
		registry: registry,
		router:   router,
		apiBase:  apiBase,
		log:      log.With().Str("component", "socket_listener").Logger(),
		spawn:    goSpawn,
	}
	l.connect = l.dial
	return l
}

// dial は Slack への Socket Mode クライアントを作成します
func (l *SocketListener) dial(ws domain.WorkspaceConfig) (socketConn, <-chan socketmode.Event) {
	api := infraslack.NewAPI(ws.SourceToken, l.apiBase, slack.OptionAppLevelToken(ws.AppToken))
	client := socketmode.New(api)
	return client, client.Events
}

// Run は登録済みの全ワークスペースについて Socket Mode 接続を開始し、ctx が終了するまでブロックします
// アプリトークンのないワークスペースがある場合は接続を1つも開始せずにエラーを返します
// いずれかの接続が失敗した場合は他の接続も停止してエラーを返します
func (l *SocketListener) Run(ctx context.Context) error {
	keys := l.registry.Keys()
	workspaces := make([]domain.WorkspaceConfig, 0, len(keys))
	for _, key := range keys {
		ws, _ := l.registry.Lookup(key)
		if ws.Config.AppToken == "" {
			return fmt.Errorf("socket: %w: アプリトークンが未設定です (workspace=%s)", domain.ErrConfiguration, key)
		}
		workspaces = append(workspaces, ws.Config)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, ws := range workspaces {
		conn, events := l.connect(ws)
		g.Go(func() error {
			return l.listen(ctx, ws.Key, conn, events)
		})
	}

	return g.Wait()
}

// listen は1ワークスペース分の Socket Mode 接続を処理します
func (l *SocketListener) listen(ctx context.Context, workspaceKey string, conn socketConn, events <-chan socketmode.Event) error {
	log := l.log.With().Str("workspace", workspaceKey).Logger()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				l.handle(log, workspaceKey, conn, evt)
			}
		}
	}()

	log.Info().Msg("Socket Mode 接続を開始します")
	if err := conn.RunContext(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("socket: 接続エラー (workspace=%s): %w", workspaceKey, err)
	}
	return nil
}

// handle は Socket Mode のイベント1件を処理します
// EventsAPI のイベントは先に ack を返し、転送は spawn 経由で行います
func (l *SocketListener) handle(log zerolog.Logger, workspaceKey string, conn socketConn, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		log.Debug().Msg("Socket Mode 接続中")
	case socketmode.EventTypeConnected:
		log.Info().Msg("Socket Mode 接続完了")
	case socketmode.EventTypeConnectionError:
		log.Warn().Interface("data", evt.Data).Msg("Socket Mode 接続失敗")
	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			conn.Ack(*evt.Request)
		}
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		ev, ok := ConvertEventsAPIEvent(workspaceKey, apiEvent)
		if !ok {
			return
		}
		dispatch(l.spawn, l.router, log, workspaceKey, ev)
	}
}

// ConvertEventsAPIEvent は Socket Mode で受信した EventsAPI イベントを domain.InboundEvent に変換します
// message 以外のイベントの場合は false を返します
func ConvertEventsAPIEvent(workspaceKey string, apiEvent slackevents.EventsAPIEvent) (*domain.InboundEvent, bool) {
	if apiEvent.Type != slackevents.CallbackEvent {
		return nil, false
	}

	msg, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok || msg == nil {
		return nil, false
	}

	var eventID string
	if cb, ok := apiEvent.Data.(*slackevents.EventsAPICallbackEvent); ok && cb != nil {
		eventID = cb.EventID
	}

	return &domain.InboundEvent{
		WorkspaceID:  workspaceKey,
		EventID:      eventID,
		Type:         msg.Type,
		SubType:      msg.SubType,
		SenderUserID: msg.User,
		ChannelID:    msg.Channel,
		Text:         msg.Text,
		Timestamp:    msg.TimeStamp,
		BotID:        msg.BotID,
	}, true
}
