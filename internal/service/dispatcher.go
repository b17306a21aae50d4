package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MimeLyc/trxsrt/internal/persistence"
	"github.com/MimeLyc/trxsrt/internal/retry"
	"github.com/MimeLyc/trxsrt/internal/subtitle"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/MimeLyc/trxsrt/pkg/log"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 10

type translationCache interface {
	GetTranslation(ctx context.Context, source, target, text string) (string, bool, error)
	PutTranslation(ctx context.Context, entry persistence.CachedTranslation) error
}

// Dispatcher fans the content lines of a document out to the backends, one
// unit per line, behind an admission gate.
type Dispatcher struct {
	rotation     *translator.Rotation
	policy       *retry.Policy
	cache        translationCache
	progress     ProgressFactory
	detectBlocks bool
}

type DispatcherOption func(*Dispatcher)

// WithCache serves already-known lines from cache and stores fresh ones.
func WithCache(cache translationCache) DispatcherOption {
	return func(d *Dispatcher) {
		d.cache = cache
	}
}

func WithProgress(factory ProgressFactory) DispatcherOption {
	return func(d *Dispatcher) {
		if factory != nil {
			d.progress = factory
		}
	}
}

// WithBlockDetection controls whether bulk requests report CAPTCHA pages as
// blocks (terminal) or as plain HTTP failures (retried). On by default.
func WithBlockDetection(enabled bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.detectBlocks = enabled
	}
}

// NewDispatcher shares rotation and policy (and so the breaker) across every
// job it runs.
func NewDispatcher(rotation *translator.Rotation, policy *retry.Policy, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		rotation:     rotation,
		policy:       policy,
		progress:     DiscardProgress,
		detectBlocks: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TranslateJob translates every content line of doc into target and returns
// the rebuilt document. Any unit failure fails the job.
func (d *Dispatcher) TranslateJob(
	ctx context.Context,
	doc *subtitle.Document,
	source string,
	target string,
	concurrency int,
	credential string,
) (string, error) {
	text, _, err := d.translateJob(ctx, doc, source, target, concurrency, credential)
	return text, err
}

func (d *Dispatcher) translateJob(
	ctx context.Context,
	doc *subtitle.Document,
	source string,
	target string,
	concurrency int,
	credential string,
) (string, JobStats, error) {
	start := time.Now()
	if doc.Empty() {
		return "", JobStats{}, NewError(ErrParseEmpty, "no subtitle text to translate")
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	lines := doc.ContentLines()
	total := len(lines)
	translated := make([]string, total)
	pending := d.fillFromCache(ctx, lines, translated, source, target)
	stats := JobStats{Lines: total, CachedLines: total - len(pending)}

	progress := d.progress(target, total)
	defer progress.Finish()

	var completed atomic.Int64
	completed.Store(int64(stats.CachedLines))
	progress.Update(stats.CachedLines, total)

	var failed atomic.Bool
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, idx := range pending {
		// once a unit has failed, queued units are dropped; in-flight ones finish
		if failed.Load() {
			break
		}
		backend := d.rotation.Next()
		text := lines[idx]
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			err := SafeExecute(func() error {
				return d.translateUnit(ctx, backend, idx, text, source, target, credential, translated)
			})
			if err != nil {
				failed.Store(true)
				return err
			}
			progress.Update(int(completed.Add(1)), total)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		stats.Duration = time.Since(start)
		return "", stats, err
	}

	out, err := doc.Rebuild(translated)
	stats.Duration = time.Since(start)
	if err != nil {
		return "", stats, NewErrorWithCause(ErrUnknown, "rebuild translated document", err)
	}
	return out, stats, nil
}

func (d *Dispatcher) translateUnit(
	ctx context.Context,
	backend translator.Translator,
	idx int,
	text string,
	source string,
	target string,
	credential string,
	translated []string,
) error {
	out, err := retry.Do(ctx, d.policy, func(ctx context.Context) (string, error) {
		return backend.Translate(ctx, translator.Request{
			Text:        text,
			Source:      source,
			Target:      target,
			Credential:  credential,
			DetectBlock: d.detectBlocks,
		})
	})
	if err != nil {
		return fmt.Errorf("line %d via %s: %w", idx+1, backend.Name(), err)
	}
	translated[idx] = out

	if d.cache != nil {
		if err := d.cache.PutTranslation(ctx, persistence.CachedTranslation{
			Source:     source,
			Target:     target,
			Text:       text,
			Translated: out,
			Backend:    backend.Name(),
		}); err != nil {
			log.Warn("Failed to cache translation: %v", err)
		}
	}
	return nil
}

// fillFromCache copies cached translations into translated and returns the
// positions that still need a backend call.
func (d *Dispatcher) fillFromCache(ctx context.Context, lines, translated []string, source, target string) []int {
	pending := make([]int, 0, len(lines))
	for i, line := range lines {
		if d.cache == nil {
			pending = append(pending, i)
			continue
		}
		value, ok, err := d.cache.GetTranslation(ctx, source, target, line)
		if err != nil {
			log.Warn("Translation cache lookup failed: %v", err)
		}
		if err != nil || !ok {
			pending = append(pending, i)
			continue
		}
		translated[i] = value
	}
	return pending
}
