package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

const DefaultDeepLXURL = "https://www2.deepl.com/jsonrpc"

// DeepLXConfig configures the keyless DeepL web client.
type DeepLXConfig struct {
	URL     string
	Timeout time.Duration
}

// deeplxTranslator speaks the JSON-RPC protocol of the DeepL web app, the same
// contract the "deeplx" family of clients implements.
type deeplxTranslator struct {
	url        string
	httpClient *http.Client

	// overridable in tests
	now    func() time.Time
	nextID func() int64
}

func NewDeepLXTranslator(cfg DeepLXConfig, opts ...Option) Translator {
	o := buildOptions(cfg.Timeout, opts)
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		endpoint = DefaultDeepLXURL
	}
	return &deeplxTranslator{
		url:        endpoint,
		httpClient: o.httpClient,
		now:        time.Now,
		nextID:     func() int64 { return (8300000 + rand.Int64N(99999)) * 1000 },
	}
}

func (t *deeplxTranslator) Name() string {
	return "deeplx"
}

type deeplRPCRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	ID      int64          `json:"id"`
	Params  deeplRPCParams `json:"params"`
}

type deeplRPCParams struct {
	Texts           []deeplText    `json:"texts"`
	Splitting       string         `json:"splitting"`
	Lang            deeplLang      `json:"lang"`
	Timestamp       int64          `json:"timestamp"`
	CommonJobParams deeplJobParams `json:"commonJobParams"`
}

type deeplText struct {
	Text                string `json:"text"`
	RequestAlternatives int    `json:"requestAlternatives"`
}

type deeplLang struct {
	SourceLangUserSelected string `json:"source_lang_user_selected"`
	TargetLang             string `json:"target_lang"`
}

type deeplJobParams struct {
	WasSpoken    bool   `json:"wasSpoken"`
	TranscribeAS string `json:"transcribe_as"`
}

type deeplRPCResponse struct {
	Result *struct {
		Texts []struct {
			Text string `json:"text"`
		} `json:"texts"`
		Lang string `json:"lang"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *deeplxTranslator) Translate(ctx context.Context, req Request) (string, error) {
	payload, err := t.buildBody(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("deeplx: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Set("User-Agent", "DeepL-iOS/2.9.1 iOS 16.3.0 (iPhone13,2)")
	httpReq.Header.Set("x-app-os-name", "iOS")
	httpReq.Header.Set("x-app-os-version", "16.3.0")
	httpReq.Header.Set("x-app-device", "iPhone13,2")
	httpReq.Header.Set("x-app-build", "510265")
	httpReq.Header.Set("x-app-version", "2.9.1")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("deeplx: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deeplx: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{Backend: t.Name(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed deeplRPCResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("deeplx: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", &HTTPError{
			Backend:    t.Name(),
			StatusCode: rpcErrorStatus(parsed.Error.Message),
			Body:       fmt.Sprintf("rpc error %d: %s", parsed.Error.Code, parsed.Error.Message),
		}
	}
	if parsed.Result == nil || len(parsed.Result.Texts) == 0 {
		return "", fmt.Errorf("deeplx: empty result")
	}
	return parsed.Result.Texts[0].Text, nil
}

func (t *deeplxTranslator) buildBody(req Request) ([]byte, error) {
	id := t.nextID()
	body := deeplRPCRequest{
		JSONRPC: "2.0",
		Method:  "LMT_handle_texts",
		ID:      id,
		Params: deeplRPCParams{
			Texts:     []deeplText{{Text: req.Text, RequestAlternatives: 3}},
			Splitting: "newlines",
			Lang: deeplLang{
				SourceLangUserSelected: deeplSourceLang(req.Source),
				TargetLang:             deeplTargetLang(req.Target),
			},
			Timestamp: deeplTimestamp(t.now(), req.Text),
		},
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("deeplx: encode body: %w", err)
	}

	// The endpoint fingerprints the spacing after "method" depending on the id.
	spaced := `"method": "`
	if (id+5)%29 == 0 || (id+3)%13 == 0 {
		spaced = `"method" : "`
	}
	return bytes.Replace(encoded, []byte(`"method":"`), []byte(spaced), 1), nil
}

// deeplTimestamp aligns the millisecond timestamp to the number of 'i' runes
// in the text, as the web client does.
func deeplTimestamp(now time.Time, text string) int64 {
	ts := now.UnixMilli()
	iCount := int64(strings.Count(text, "i"))
	if iCount == 0 {
		return ts
	}
	iCount++
	return ts - ts%iCount + iCount
}

func deeplSourceLang(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, "auto") {
		return "auto"
	}
	base, _, _ := strings.Cut(code, "-")
	return strings.ToUpper(base)
}

func deeplTargetLang(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func rpcErrorStatus(message string) int {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "too many requests"):
		return http.StatusTooManyRequests
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "bad request"):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
