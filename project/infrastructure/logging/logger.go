package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New はログレベルと出力形式から zerolog.Logger を作成します
// format が "json" の場合は JSON、それ以外はコンソール向けの整形出力になります
// level が解釈できない場合は info を使います
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	out := w
	if !strings.EqualFold(strings.TrimSpace(format), "json") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: true}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Mask はトークン類をログに出す際に先頭10文字だけ残して伏せます
func Mask(value string) string {
	if value == "" {
		return "(未設定)"
	}
	if len(value) <= 10 {
		return value[:min(len(value), 4)] + "..."
	}
	return value[:10] + "..."
}
