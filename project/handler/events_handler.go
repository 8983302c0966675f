package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"mention-relay/project/dto"
	"mention-relay/project/infrastructure/httpsec"
	"mention-relay/project/service"
)

// Slack のイベントペイロードとして受け付ける最大サイズ
const maxBodyBytes = 1 << 20

// 応答ボディに入れるエラーコード
const (
	errCodeUnknownWorkspace = "unknown_workspace"
	errCodeInvalidSignature = "invalid_signature"
	errCodeMalformedEvent   = "malformed_event"
	errCodeInternal         = "internal_error"
)

// EventsHandler は Slack Events API からのイベントを処理します
type EventsHandler struct {
	registry *service.Registry
	router   service.EventRouter
	log      zerolog.Logger

	// spawn は転送パイプラインを起動します（テストでは同期実行に差し替える）
	spawn func(func())
}

// NewEventsHandler はイベントハンドラーを作成します
func NewEventsHandler(registry *service.Registry, router service.EventRouter, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		registry: registry,
		router:   router,
		log:      log.With().Str("component", "events_handler").Logger(),
		spawn:    goSpawn,
	}
}

// ServeHTTP は Slack イベント受信エンドポイントです
// 応答は受信の検証結果のみで決まり、転送の成否には影響されません
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// リクエスト本体を読み込む
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.log.Warn().Int64("limit", tooLarge.Limit).Msg("リクエスト本体が大きすぎます")
			writeJSON(w, http.StatusRequestEntityTooLarge, dto.AckResponse{Error: errCodeMalformedEvent})
			return
		}
		writeJSON(w, http.StatusBadRequest, dto.AckResponse{Error: errCodeMalformedEvent})
		return
	}
	defer r.Body.Close()

	var req dto.SlackEventRequest
	decodeErr := json.Unmarshal(body, &req)

	// url_verification はワークスペース解決や署名検証より前に応答する
	if decodeErr == nil && req.Type == dto.TypeURLVerification {
		writeJSON(w, http.StatusOK, dto.ChallengeResponse{Challenge: req.Challenge})
		return
	}

	// ワークスペースIDはパス → エンベロープの team_id の順に決定する
	workspaceID := r.PathValue("workspace_id")
	if workspaceID == "" {
		workspaceID = req.TeamID
	}
	if workspaceID == "" {
		h.log.Warn().Err(decodeErr).Msg("ワークスペースIDを決定できません")
		writeJSON(w, http.StatusBadRequest, dto.AckResponse{Error: errCodeMalformedEvent})
		return
	}

	ws, ok := h.registry.Lookup(workspaceID)
	if !ok {
		h.log.Warn().Str("workspace", workspaceID).Msg("未登録のワークスペースからのリクエスト")
		writeJSON(w, http.StatusNotFound, dto.AckResponse{Error: errCodeUnknownWorkspace})
		return
	}
	log := h.log.With().Str("workspace", ws.Config.Key).Logger()

	// Slack 署名検証（署名シークレットのないワークスペースは HTTP では受け付けない）
	if ws.Config.SigningSecret == "" {
		log.Warn().Msg("署名シークレット未設定のワークスペースへの HTTP リクエストを拒否しました")
		writeJSON(w, http.StatusUnauthorized, dto.AckResponse{Error: errCodeInvalidSignature})
		return
	}
	if err := httpsec.VerifySlackRequest(ws.Config.SigningSecret, r.Header, body); err != nil {
		log.Warn().Err(err).Msg("署名検証失敗")
		writeJSON(w, http.StatusUnauthorized, dto.AckResponse{Error: errCodeInvalidSignature})
		return
	}

	if decodeErr != nil {
		log.Warn().Err(decodeErr).Msg("JSON パース失敗")
		writeJSON(w, http.StatusBadRequest, dto.AckResponse{Error: errCodeMalformedEvent})
		return
	}

	if retry := r.Header.Get("X-Slack-Retry-Num"); retry != "" {
		log.Info().
			Str("retry_num", retry).
			Str("retry_reason", r.Header.Get("X-Slack-Retry-Reason")).
			Str("event_id", req.EventID).
			Msg("Slack からの再送を受信")
	}

	// event_callback の message イベントのみ処理
	if req.Type != dto.TypeEventCallback || req.Event.Type != "message" {
		writeJSON(w, http.StatusOK, dto.AckResponse{OK: true})
		return
	}

	dispatch(h.spawn, h.router, log, ws.Config.Key, req.ToInboundEvent(ws.Config.Key))

	writeJSON(w, http.StatusOK, dto.AckResponse{OK: true})
}

// writeJSON は JSON 形式で応答を書き込みます
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
