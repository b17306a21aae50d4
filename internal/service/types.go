package service

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MimeLyc/trxsrt/internal/language"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// AutoSource asks the service to detect the source language from the file.
const AutoSource = "auto"

// RunRequest is one invocation: one input file, one or more target languages.
type RunRequest struct {
	InputPath string
	OutputDir string
	// Source is a language code, a language name or AutoSource.
	Source  string
	Targets []language.Language
	// AllLanguages targets every supported language except the resolved source.
	AllLanguages bool
	Concurrency  int
}

// JobStats describes how a single Translation Job was served.
type JobStats struct {
	Lines       int
	CachedLines int
	Duration    time.Duration
}

// LanguageResult is the outcome for one target language.
type LanguageResult struct {
	Language   language.Language
	OutputPath string
	Stats      JobStats
	Err        *TransError
}

func (r LanguageResult) Succeeded() bool {
	return r.Err == nil
}

// Summary is the per-language report of a run.
type Summary struct {
	InputPath string
	Source    language.Language
	Results   []LanguageResult
	// Aborted is set when a fatal error stopped the run before every target ran.
	Aborted *TransError
}

func (s *Summary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

func (s *Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

func (s *Summary) Failures() []LanguageResult {
	ret := make([]LanguageResult, 0)
	for _, r := range s.Results {
		if !r.Succeeded() {
			ret = append(ret, r)
		}
	}
	return ret
}

// OK is true when every requested language was produced.
func (s *Summary) OK() bool {
	return s.Aborted == nil && s.Failed() == 0
}

func (s *Summary) Line() string {
	return fmt.Sprintf("Done! %d succeeded, %d failed.", s.Succeeded(), s.Failed())
}

// Render writes the per-language table, the totals line and any failure reasons.
func (s *Summary) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Language", "Code", "Status", "Lines", "Cached", "Time", "Output"})
	for _, r := range s.Results {
		status := "ok"
		output := r.OutputPath
		if !r.Succeeded() {
			status = "failed"
			output = "-"
		}
		tw.AppendRow(table.Row{
			r.Language.Name,
			r.Language.Code,
			status,
			humanize.Comma(int64(r.Stats.Lines)),
			humanize.Comma(int64(r.Stats.CachedLines)),
			r.Stats.Duration.Round(time.Millisecond).String(),
			output,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	if len(s.Results) > 0 {
		tw.Render()
	}

	fmt.Fprintln(w, s.Line())
	failures := s.Failures()
	if len(failures) > 0 {
		fmt.Fprintln(w, "Failed languages:")
		for _, r := range failures {
			fmt.Fprintf(w, "  - %s: %s\n", r.Language.String(), r.Err.Reason())
		}
	}
	if s.Aborted != nil {
		fmt.Fprintf(w, "Run aborted: %s\n", strings.TrimSpace(s.Aborted.Reason()))
	}
}
