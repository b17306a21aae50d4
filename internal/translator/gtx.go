package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultGTXBaseURL   = "https://translate.googleapis.com"
	DefaultGTXUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
)

// GTXConfig configures the Google Translate "gtx" client.
type GTXConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// gtxTranslator talks to the public translate_a/single endpoint. It is the
// backend that may answer with a CAPTCHA and the one that accepts the
// GOOGLE_ABUSE_EXEMPTION cookie.
type gtxTranslator struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewGTXTranslator(cfg GTXConfig, opts ...Option) Translator {
	o := buildOptions(cfg.Timeout, opts)
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultGTXBaseURL
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = DefaultGTXUserAgent
	}
	return &gtxTranslator{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: o.httpClient,
	}
}

func (t *gtxTranslator) Name() string {
	return "gtx"
}

func (t *gtxTranslator) Translate(ctx context.Context, req Request) (string, error) {
	endpoint := t.requestURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("gtx: new request: %w", err)
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	if req.Credential != "" {
		httpReq.Header.Set("Cookie", req.Credential)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gtx: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gtx: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if req.DetectBlock && strings.Contains(strings.ToLower(string(body)), "captcha") {
			challenge := endpoint
			// a redirect to the "sorry" page is the better place to send a human
			if resp.Request != nil && resp.Request.URL != nil {
				challenge = resp.Request.URL.String()
			}
			return "", &BlockedError{Backend: t.Name(), ChallengeURL: challenge}
		}
		return "", &HTTPError{Backend: t.Name(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	return parseGTXResponse(body)
}

func (t *gtxTranslator) requestURL(req Request) string {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", req.Source)
	q.Set("tl", req.Target)
	q.Set("dt", "t")
	q.Set("q", req.Text)
	return t.baseURL + "/translate_a/single?" + q.Encode()
}

// parseGTXResponse joins the translated segments of
// [[["seg1","src1",...],["seg2","src2",...]], ...].
func parseGTXResponse(body []byte) (string, error) {
	var data []json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("gtx: decode response: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("gtx: empty response")
	}

	var segments [][]any
	if err := json.Unmarshal(data[0], &segments); err != nil {
		return "", fmt.Errorf("gtx: decode segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}
	return sb.String(), nil
}
