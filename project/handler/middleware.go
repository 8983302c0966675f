package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mention-relay/project/dto"
)

// statusRecorder は応答ステータスを記録するための ResponseWriter です
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wrote {
		return
	}
	s.status = code
	s.wrote = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}

// Recover はハンドラー内の panic を捕捉して 500 を返すミドルウェアです
// あわせてリクエストごとのアクセスログを出力します
func Recover(next http.Handler, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if p := recover(); p != nil {
				log.Error().
					Interface("panic", p).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("ハンドラーで panic が発生しました")
				// 応答を書き始めた後はステータスを変更できない
				if !rec.wrote {
					writeJSON(rec, http.StatusInternalServerError, dto.AckResponse{Error: errCodeInternal})
				}
			}

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("elapsed", time.Since(start)).
				Msg("リクエスト処理完了")
		}()

		next.ServeHTTP(rec, r)
	})
}
