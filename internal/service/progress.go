package service

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Progress receives completion ticks for one Translation Job.
type Progress interface {
	Update(completed, total int)
	Finish()
}

// ProgressFactory starts a Progress for a job labelled with the target code.
type ProgressFactory func(label string, total int) Progress

// NewProgressFactory draws a bar when w is a terminal and prints plain
// "[lang] Translating... n/total" lines otherwise.
func NewProgressFactory(w io.Writer) ProgressFactory {
	if isTerminalWriter(w) {
		return func(label string, total int) Progress {
			return newBarProgress(w, label, total)
		}
	}
	return func(label string, total int) Progress {
		return newLineProgress(w, label)
	}
}

// DiscardProgress drops every update.
func DiscardProgress(string, int) Progress {
	return noopProgress{}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type noopProgress struct{}

func (noopProgress) Update(int, int) {}
func (noopProgress) Finish()         {}

// barProgress only moves forward: ticks from concurrent units can arrive out
// of order.
type barProgress struct {
	bar *progressbar.ProgressBar

	mu   sync.Mutex
	last int
}

func newBarProgress(w io.Writer, label string, total int) *barProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(fmt.Sprintf("[%s] Translating...", label)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &barProgress{bar: bar}
}

func (p *barProgress) Update(completed, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if completed <= p.last {
		return
	}
	p.last = completed
	_ = p.bar.Set(completed)
}

func (p *barProgress) Finish() {
	_ = p.bar.Finish()
}

// lineProgress prints one line per completed unit.
type lineProgress struct {
	w     io.Writer
	label string

	mu   sync.Mutex
	last int
}

func newLineProgress(w io.Writer, label string) *lineProgress {
	return &lineProgress{w: w, label: label}
}

func (p *lineProgress) Update(completed, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if completed <= p.last {
		return
	}
	p.last = completed
	fmt.Fprintf(p.w, "[%s] Translating... %d/%d\n", p.label, completed, total)
}

func (p *lineProgress) Finish() {}
