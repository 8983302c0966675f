package handler

import "net/http"

// HealthHandler は稼働確認用のエンドポイントです
type HealthHandler struct{}

// NewHealthHandler はヘルスチェックハンドラーを作成します
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	w.Write([]byte("ok"))
}
