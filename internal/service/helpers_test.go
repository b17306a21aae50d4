package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MimeLyc/trxsrt/internal/persistence"
	"github.com/MimeLyc/trxsrt/internal/retry"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/stretchr/testify/require"
)

// sampleSRT has two non-content lines and three content lines.
const sampleSRT = "1\n00:00:01,000 --> 00:00:02,000\nHello\nHow are you\nBye"

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeBackend struct {
	name   string
	events *eventLog
	fn     func(req translator.Request) (string, error)

	mu       sync.Mutex
	requests []translator.Request
}

func newFakeBackend(name string, events *eventLog) *fakeBackend {
	return &fakeBackend{name: name, events: events}
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Translate(_ context.Context, req translator.Request) (string, error) {
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()
	b.events.add(b.name + ":" + req.Target + ":" + req.Text)

	if b.fn != nil {
		return b.fn(req)
	}
	return req.Target + "|" + req.Text, nil
}

func (b *fakeBackend) calls() []translator.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]translator.Request(nil), b.requests...)
}

type fakePrompter struct {
	events *eventLog
	value  string
	err    error

	mu   sync.Mutex
	urls []string
}

func (p *fakePrompter) Request(_ context.Context, challengeURL string) (string, error) {
	p.mu.Lock()
	p.urls = append(p.urls, challengeURL)
	p.mu.Unlock()
	p.events.add("prompt:" + challengeURL)
	return p.value, p.err
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func cacheKey(source, target, text string) string {
	return source + "|" + target + "|" + text
}

func (c *memoryCache) GetTranslation(_ context.Context, source, target, text string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[cacheKey(source, target, text)]
	return v, ok, nil
}

func (c *memoryCache) PutTranslation(_ context.Context, entry persistence.CachedTranslation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(entry.Source, entry.Target, entry.Text)] = entry.Translated
	c.puts++
	return nil
}

func testPolicy(count, threshold int) *retry.Policy {
	return retry.NewPolicy(
		retry.Config{Count: count, BaseDelay: time.Millisecond, Threshold: threshold},
		nil,
		retry.WithSleeper(func(time.Duration) {}),
	)
}

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
