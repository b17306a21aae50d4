package captcha

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MimeLyc/trxsrt/internal/credential"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/MimeLyc/trxsrt/pkg/log"
	"golang.org/x/sync/singleflight"
)

// ProbeText is sent once before the bulk of a run to surface a block early.
const ProbeText = "hello"

type State int

const (
	StateNormal State = iota
	StateAwaitingCredential
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateAwaitingCredential:
		return "awaiting_credential"
	default:
		return "unknown"
	}
}

// Prompter obtains a bypass credential from a human.
type Prompter interface {
	Request(ctx context.Context, challengeURL string) (string, error)
}

// RecoveryError means a block was seen but no credential could be obtained.
type RecoveryError struct {
	ChallengeURL string
	Err          error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("CAPTCHA required: solve it at %s then re-run with --cookie <GOOGLE_ABUSE_EXEMPTION=...>: %v", e.ChallengeURL, e.Err)
}

func (e *RecoveryError) Unwrap() error {
	return e.Err
}

// Guard owns the bypass credential for a run. It probes the credential-bearing
// backend before bulk work and walks the recovery protocol when that backend
// reports a block.
type Guard struct {
	backend  translator.Translator
	store    credential.Store
	prompter Prompter

	mu         sync.RWMutex
	state      State
	credential string

	group singleflight.Group
}

// NewGuard starts in StateNormal with initial as the credential ("" for none).
// A nil store skips persistence.
func NewGuard(backend translator.Translator, store credential.Store, prompter Prompter, initial string) *Guard {
	return &Guard{
		backend:    backend,
		store:      store,
		prompter:   prompter,
		credential: initial,
	}
}

func (g *Guard) Credential() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.credential
}

func (g *Guard) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Preflight sends ProbeText with block detection on. A block leads straight
// into Recover; any other failure is logged and left to the retry policy.
func (g *Guard) Preflight(ctx context.Context, source, target string) error {
	log.Info("Checking API access...")
	_, err := g.backend.Translate(ctx, translator.Request{
		Text:        ProbeText,
		Source:      source,
		Target:      target,
		Credential:  g.Credential(),
		DetectBlock: true,
	})
	if err == nil {
		log.Info("API access OK")
		return nil
	}

	var blocked *translator.BlockedError
	if errors.As(err, &blocked) {
		return g.Recover(ctx, blocked.ChallengeURL)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	log.Warn("Preflight probe failed, continuing: %v", err)
	return nil
}

// Recover asks the prompter for a credential and attaches it to every later
// request. Concurrent callers share a single prompt.
func (g *Guard) Recover(ctx context.Context, challengeURL string) error {
	g.setState(StateAwaitingCredential)

	_, err, _ := g.group.Do("recover", func() (any, error) {
		value, err := g.prompter.Request(ctx, challengeURL)
		if err != nil {
			return nil, &RecoveryError{ChallengeURL: challengeURL, Err: err}
		}

		if g.store != nil {
			if err := g.store.Set(value); err != nil {
				log.Warn("Failed to save cookie, it will only be used for this run: %v", err)
			} else {
				log.Info("Cookie saved for future runs")
			}
		}

		g.mu.Lock()
		g.credential = value
		g.state = StateNormal
		g.mu.Unlock()
		return nil, nil
	})
	return err
}

func (g *Guard) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}
