package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MimeLyc/trxsrt/internal/captcha"
	"github.com/MimeLyc/trxsrt/internal/language"
	"github.com/MimeLyc/trxsrt/internal/persistence"
	"github.com/MimeLyc/trxsrt/internal/subtitle"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/MimeLyc/trxsrt/pkg/file"
	"github.com/MimeLyc/trxsrt/pkg/log"
	"github.com/dustin/go-humanize"
)

const DefaultLanguagePause = 500 * time.Millisecond

type jobRecorder interface {
	NewJobRecord(inputPath, source, target string, lines int) persistence.JobRecord
	UpsertJob(ctx context.Context, job persistence.JobRecord) error
}

// TransService runs one invocation: it reads the input once, probes for a
// block, then translates into each target language in turn.
type TransService struct {
	dispatcher *Dispatcher
	guard      *captcha.Guard
	newReader  func(path string) subtitle.Reader
	writer     subtitle.Writer
	jobs       jobRecorder
	pause      time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

type ServiceOption func(*TransService)

// WithLanguagePause sets the wait between two target languages.
func WithLanguagePause(d time.Duration) ServiceOption {
	return func(s *TransService) {
		if d >= 0 {
			s.pause = d
		}
	}
}

// WithJobRecorder keeps a history row per target language.
func WithJobRecorder(r jobRecorder) ServiceOption {
	return func(s *TransService) {
		s.jobs = r
	}
}

func WithWriter(w subtitle.Writer) ServiceOption {
	return func(s *TransService) {
		if w != nil {
			s.writer = w
		}
	}
}

func WithReaderFactory(fn func(path string) subtitle.Reader) ServiceOption {
	return func(s *TransService) {
		if fn != nil {
			s.newReader = fn
		}
	}
}

func withSleep(fn func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *TransService) {
		s.sleep = fn
	}
}

func NewTransService(dispatcher *Dispatcher, guard *captcha.Guard, opts ...ServiceOption) *TransService {
	s := &TransService{
		dispatcher: dispatcher,
		guard:      guard,
		newReader:  subtitle.NewReader,
		writer:     subtitle.NewWriter(),
		pause:      DefaultLanguagePause,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run translates req.InputPath into every target. A failing language is
// recorded and the run goes on; only fatal errors stop it early, in which
// case the partial summary is returned along with the error.
func (s *TransService) Run(ctx context.Context, req RunRequest) (*Summary, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	doc, err := s.newReader(req.InputPath).Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewErrorWithCause(ErrFileNotFound, "input file not found", err).WithContext("path", req.InputPath)
		}
		return nil, NewErrorWithCause(ErrFileRead, "read input file", err).WithContext("path", req.InputPath)
	}
	if doc.Empty() {
		return nil, NewError(ErrParseEmpty, "no subtitle text found").WithContext("path", req.InputPath)
	}

	source, err := resolveSource(req.Source, doc)
	if err != nil {
		return nil, err
	}

	targets := req.Targets
	if req.AllLanguages {
		targets = language.Except(source.Code)
	}

	summary := &Summary{InputPath: req.InputPath, Source: source}
	log.Info("Translating %s lines from %s to %d language(s)",
		humanize.Comma(int64(doc.Len())), source.String(), len(targets))

	if err := s.guard.Preflight(ctx, source.Code, targets[0].Code); err != nil {
		summary.Aborted = classifyRun(ctx, err)
		return summary, summary.Aborted
	}

	challenge := ""
	for i, target := range targets {
		if challenge != "" {
			log.Warn("A CAPTCHA was hit during the previous language, asking for a new cookie")
			if err := s.guard.Recover(ctx, challenge); err != nil {
				summary.Aborted = classifyRun(ctx, err)
				return summary, summary.Aborted
			}
			challenge = ""
		}

		log.Info("[%d/%d] %s", i+1, len(targets), target.String())
		result := s.runLanguage(ctx, req, doc, source, target)
		summary.Results = append(summary.Results, result)

		if result.Err != nil {
			log.Error("[%s] %s", target.Code, result.Err.Reason())
			if result.Err.Type.Fatal() {
				summary.Aborted = result.Err
				return summary, result.Err
			}
			var blocked *translator.BlockedError
			if errors.As(result.Err, &blocked) {
				challenge = blocked.ChallengeURL
			}
		}

		if i < len(targets)-1 {
			if err := s.sleep(ctx, s.pause); err != nil {
				summary.Aborted = classifyRun(ctx, err)
				return summary, summary.Aborted
			}
		}
	}

	log.Info("%s", summary.Line())
	return summary, nil
}

func (s *TransService) runLanguage(
	ctx context.Context,
	req RunRequest,
	doc *subtitle.Document,
	source language.Language,
	target language.Language,
) LanguageResult {
	result := LanguageResult{
		Language:   target,
		OutputPath: file.OutputPath(req.InputPath, req.OutputDir, target.Code),
	}

	var record persistence.JobRecord
	if s.jobs != nil {
		record = s.jobs.NewJobRecord(req.InputPath, source.Code, target.Code, doc.Len())
		s.saveJob(ctx, record)
	}

	text, stats, err := s.dispatcher.translateJob(ctx, doc, source.Code, target.Code, req.Concurrency, s.guard.Credential())
	result.Stats = stats
	if err == nil {
		if werr := s.writer.Write(result.OutputPath, text); werr != nil {
			err = NewErrorWithCause(ErrFileWrite, "write translated file", werr).WithContext("path", result.OutputPath)
		}
	}
	if err != nil {
		result.Err = classifyRun(ctx, err)
	} else {
		log.Info("[%s] Wrote %s", target.Code, result.OutputPath)
	}

	if s.jobs != nil {
		record.Lines = stats.Lines
		record.CachedLines = stats.CachedLines
		record.UpdatedAt = time.Now().UTC()
		if result.Err != nil {
			record.Status = persistence.JobStatusFailed
			record.Error = result.Err.Reason()
		} else {
			record.Status = persistence.JobStatusSucceeded
			record.OutputPath = result.OutputPath
		}
		s.saveJob(ctx, record)
	}
	return result
}

// classifyRun reports any failure seen after the run context ended as an
// interruption, whatever the backend call returned.
func classifyRun(ctx context.Context, err error) *TransError {
	if ctx.Err() != nil {
		return NewErrorWithCause(ErrCanceled, "run interrupted", err)
	}
	return Classify(err)
}

func (s *TransService) saveJob(ctx context.Context, record persistence.JobRecord) {
	// history must not outlive an interrupted run's context
	if err := s.jobs.UpsertJob(context.WithoutCancel(ctx), record); err != nil {
		log.Warn("Failed to record job %s: %v", record.ID, err)
	}
}

func validateRequest(req RunRequest) error {
	if strings.TrimSpace(req.InputPath) == "" {
		return NewError(ErrValidation, "input path is required")
	}
	if len(req.Targets) == 0 && !req.AllLanguages {
		return NewError(ErrValidation, "at least one target language is required, or all languages")
	}
	if req.Concurrency < 0 {
		return NewError(ErrValidation, "concurrency must be a positive number").WithContext("concurrency", req.Concurrency)
	}
	return nil
}

func resolveSource(input string, doc *subtitle.Document) (language.Language, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.EqualFold(input, AutoSource) {
		code := doc.DetectLanguage()
		if code == "" {
			return language.Language{}, NewError(ErrValidation, "could not detect the source language, pass --from")
		}
		lang, ok := language.Resolve(code)
		if !ok {
			return language.Language{}, NewError(ErrValidation, fmt.Sprintf("detected source language %q is not supported, pass --from", code))
		}
		log.Info("Detected source language: %s", lang.String())
		return lang, nil
	}

	lang, ok := language.Resolve(input)
	if !ok {
		return language.Language{}, NewError(ErrValidation, fmt.Sprintf("unknown source language %q", input)).
			WithContext("available", language.Available())
	}
	return lang, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
