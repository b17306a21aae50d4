package translator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepLXTranslator_Translate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Cookie"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body deeplRPCRequest
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, "LMT_handle_texts", body.Method)
		assert.Equal(t, "2.0", body.JSONRPC)
		require.Len(t, body.Params.Texts, 1)
		assert.Equal(t, "Good morning", body.Params.Texts[0].Text)
		assert.Equal(t, "EN", body.Params.Lang.SourceLangUserSelected)
		assert.Equal(t, "PT-BR", body.Params.Lang.TargetLang)
		assert.Equal(t, "newlines", body.Params.Splitting)

		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"texts":[{"text":"Bom dia","alternatives":[]}],"lang":"EN"}}`))
	}))
	defer server.Close()

	tr := NewDeepLXTranslator(DeepLXConfig{URL: server.URL})
	got, err := tr.Translate(context.Background(), Request{
		Text:       "Good morning",
		Source:     "en-us",
		Target:     "pt-br",
		Credential: "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bom dia", got)
	assert.Equal(t, "deeplx", tr.Name())
}

func TestDeepLXTranslator_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		retryable  bool
	}{
		{name: "http 429", status: http.StatusTooManyRequests, body: `{}`, wantStatus: 429, retryable: true},
		{name: "http 503", status: http.StatusServiceUnavailable, body: ``, wantStatus: 503, retryable: true},
		{name: "rpc too many requests", status: 200, body: `{"error":{"code":1042912,"message":"Too many requests"}}`, wantStatus: 429, retryable: true},
		{name: "rpc invalid", status: 200, body: `{"error":{"code":-32600,"message":"Invalid Request"}}`, wantStatus: 400, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewDeepLXTranslator(DeepLXConfig{URL: server.URL}).Translate(context.Background(), Request{Text: "x", Source: "en", Target: "de"})
			require.Error(t, err)
			assert.Equal(t, tt.wantStatus, StatusOf(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestDeepLXTranslator_MethodSpacing(t *testing.T) {
	tr := NewDeepLXTranslator(DeepLXConfig{}).(*deeplxTranslator)
	tr.now = func() time.Time { return time.UnixMilli(1700000000000) }

	// (id+3)%13 == 0
	tr.nextID = func() int64 { return 10 }
	body, err := tr.buildBody(Request{Text: "hi", Source: "en", Target: "de"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `"method" : "LMT_handle_texts"`))

	tr.nextID = func() int64 { return 8300000 }
	body, err = tr.buildBody(Request{Text: "hi", Source: "en", Target: "de"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `"method": "LMT_handle_texts"`))
}

func TestDeepLTimestamp(t *testing.T) {
	now := time.UnixMilli(1000)

	assert.Equal(t, int64(1000), deeplTimestamp(now, "no letter"))
	// two i's -> modulus 3
	assert.Equal(t, int64(1000-1000%3+3), deeplTimestamp(now, "hi hi"))
}

func TestDeepLLangCodes(t *testing.T) {
	assert.Equal(t, "auto", deeplSourceLang(""))
	assert.Equal(t, "auto", deeplSourceLang("AUTO"))
	assert.Equal(t, "ZH", deeplSourceLang("zh-hant"))
	assert.Equal(t, "ZH-HANT", deeplTargetLang("zh-hant"))
}
