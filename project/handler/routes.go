package handler

import "net/http"

// NewServeMux は受信エンドポイントとヘルスチェックを登録した ServeMux を返します
func NewServeMux(events, health http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// Slack イベント受信（パスでワークスペースを指定しない場合は team_id で解決）
	mux.Handle("POST /slack/events", events)
	mux.Handle("POST /slack/events/{workspace_id}", events)
	mux.Handle("POST /events", events)
	mux.Handle("POST /events/{workspace_id}", events)

	// ヘルスチェック（GET は HEAD も受け付ける）
	mux.Handle("GET /{$}", health)
	mux.Handle("GET /health", health)

	return mux
}
