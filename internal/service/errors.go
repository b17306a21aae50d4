package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/MimeLyc/trxsrt/internal/captcha"
	"github.com/MimeLyc/trxsrt/internal/retry"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/MimeLyc/trxsrt/pkg/log"
)

type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrParseEmpty
	ErrBlocked
	ErrAuthRejected
	ErrTransient
	ErrCircuitOpen
	ErrRecoveryUnavailable
	ErrCanceled
	ErrFileNotFound
	ErrFileRead
	ErrFileWrite
	ErrValidation
	ErrConfig
)

type TransError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *TransError {
	return &TransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *TransError {
	return &TransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *TransError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var ctxParts []string
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *TransError) Unwrap() error {
	return e.Cause
}

func (e *TransError) WithContext(key string, value any) *TransError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Reason is the short form used in the run summary.
func (e *TransError) Reason() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Type.String(), e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type.String(), e.Message)
}

func (t ErrorType) String() string {
	switch t {
	case ErrParseEmpty:
		return "ParseEmpty"
	case ErrBlocked:
		return "Blocked"
	case ErrAuthRejected:
		return "AuthRejected"
	case ErrTransient:
		return "Transient"
	case ErrCircuitOpen:
		return "CircuitOpen"
	case ErrRecoveryUnavailable:
		return "RecoveryUnavailable"
	case ErrCanceled:
		return "Canceled"
	case ErrFileNotFound:
		return "FileNotFound"
	case ErrFileRead:
		return "FileRead"
	case ErrFileWrite:
		return "FileWrite"
	case ErrValidation:
		return "Validation"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// Fatal types end the whole run instead of a single target language.
func (t ErrorType) Fatal() bool {
	switch t {
	case ErrCircuitOpen, ErrRecoveryUnavailable, ErrCanceled:
		return true
	default:
		return false
	}
}

// Classify maps any error from the pipeline onto the taxonomy. Errors that
// already carry a TransError keep their type.
func Classify(err error) *TransError {
	if err == nil {
		return nil
	}

	var transErr *TransError
	if errors.As(err, &transErr) {
		return transErr
	}

	var recErr *captcha.RecoveryError
	var blocked *translator.BlockedError
	switch {
	case errors.As(err, &recErr):
		return NewErrorWithCause(ErrRecoveryUnavailable, "no bypass credential could be obtained", err).
			WithContext("challenge_url", recErr.ChallengeURL)
	case errors.Is(err, retry.ErrCircuitOpen):
		return NewErrorWithCause(ErrCircuitOpen, "too many consecutive failures, giving up", err)
	case errors.As(err, &blocked):
		return NewErrorWithCause(ErrBlocked, "backend requires a CAPTCHA", err).
			WithContext("challenge_url", blocked.ChallengeURL)
	case errors.Is(err, context.Canceled):
		// a client timeout also matches context.DeadlineExceeded; it stays transient
		return NewErrorWithCause(ErrCanceled, "run interrupted", err)
	}

	switch status := translator.StatusOf(err); {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return NewErrorWithCause(ErrAuthRejected, "backend rejected the request", err).
			WithContext("status", status)
	case translator.IsRetryable(err):
		return NewErrorWithCause(ErrTransient, "backend failed after retries", err)
	case status != 0:
		return NewErrorWithCause(ErrUnknown, "backend returned an unexpected status", err).
			WithContext("status", status)
	}
	return NewErrorWithCause(ErrUnknown, "translation failed", err)
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Type.Fatal()
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *TransError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

func (h *DefaultErrorHandler) Handle(err error) bool {
	var transErr *TransError
	if !errors.As(err, &transErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	advice := h.GetAdvice(transErr)
	log.Error("Error Detail: %v\n advice: %s", err, advice)

	return true
}

// GetAdvice returns error handling advice
func (h *DefaultErrorHandler) GetAdvice(err *TransError) string {
	switch err.Type {
	case ErrParseEmpty:
		return "The file has no subtitle text after its first timing line; check that it is a valid SRT file"
	case ErrBlocked:
		return "Open the challenge URL in a browser, solve the CAPTCHA and pass the GOOGLE_ABUSE_EXEMPTION cookie with --cookie"
	case ErrAuthRejected:
		return "The backend refused the request; the saved cookie may have expired, pass a fresh one with --cookie"
	case ErrTransient:
		return "The backend kept failing; wait a few minutes or lower --concurrency and try again"
	case ErrCircuitOpen:
		return "Too many requests failed in a row; the backend is probably rate limiting you, try again later"
	case ErrRecoveryUnavailable:
		return "Run in an interactive terminal to paste a cookie, or solve the CAPTCHA and re-run with --cookie"
	case ErrCanceled:
		return "The run was interrupted before it finished"
	case ErrFileNotFound:
		return "Please check that the file path is correct and ensure the file exists with read permissions"
	case ErrFileRead:
		return "Please check file permissions to ensure read access and verify the file is not corrupted"
	case ErrFileWrite:
		return "Please ensure the output directory exists and has write permissions"
	case ErrValidation:
		return "Please verify the command line arguments; run `trxsrt languages` for the supported codes"
	case ErrConfig:
		return "Please check that configuration files or environment variables are set correctly"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var transErr *TransError
	if errors.As(err, &transErr) {
		return transErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *TransError {
	return NewErrorWithCause(errorType, message, err)
}

// SafeExecute turns a panic in fn into an ErrUnknown error.
func SafeExecute(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewError(ErrUnknown, fmt.Sprintf("runtime error: %v", r))
		}
	}()

	return fn()
}
