package httpsec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// computeSignature は Slack 形式の署名 "v0=<hex>" を計算します
func computeSignature(secret, ts string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte("v0:" + ts + ":"))
	h.Write(body)
	return "v0=" + hex.EncodeToString(h.Sum(nil))
}

func signedHeader(secret, ts string, body []byte) http.Header {
	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", ts)
	h.Set("X-Slack-Signature", computeSignature(secret, ts, body))
	return h
}

func TestVerifySlackRequest(t *testing.T) {
	body := []byte(`{"type":"event_callback"}`)
	now := strconv.FormatInt(time.Now().Unix(), 10)

	require.NoError(t, VerifySlackRequest("secret", signedHeader("secret", now, body), body))
}

func TestVerifySlackRequest_Rejects(t *testing.T) {
	body := []byte(`{"type":"event_callback"}`)
	now := strconv.FormatInt(time.Now().Unix(), 10)
	old := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)

	tests := []struct {
		name   string
		header http.Header
		body   []byte
	}{
		{name: "wrong secret", header: signedHeader("other", now, body), body: body},
		{name: "tampered body", header: signedHeader("secret", now, body), body: []byte(`{"type":"x"}`)},
		{name: "expired timestamp", header: signedHeader("secret", old, body), body: body},
		{name: "missing headers", header: http.Header{}, body: body},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, VerifySlackRequest("secret", tt.header, tt.body))
		})
	}
}
