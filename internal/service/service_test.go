package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MimeLyc/trxsrt/internal/captcha"
	"github.com/MimeLyc/trxsrt/internal/language"
	"github.com/MimeLyc/trxsrt/internal/persistence"
	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const challengeURL = "https://www.google.com/sorry/index?continue=translate"

type testRig struct {
	gtx      *fakeBackend
	deeplx   *fakeBackend
	prompter *fakePrompter
	guard    *captcha.Guard
	service  *TransService
	events   *eventLog
}

func newTestRig(t *testing.T, threshold int, opts ...ServiceOption) *testRig {
	t.Helper()
	events := &eventLog{}
	rig := &testRig{
		gtx:      newFakeBackend("gtx", events),
		deeplx:   newFakeBackend("deeplx", events),
		prompter: &fakePrompter{events: events, value: "GOOGLE_ABUSE_EXEMPTION=solved"},
		events:   events,
	}
	rig.guard = captcha.NewGuard(rig.gtx, nil, rig.prompter, "")
	dispatcher := NewDispatcher(translator.NewRotation(rig.gtx, rig.deeplx), testPolicy(2, threshold))
	opts = append([]ServiceOption{WithLanguagePause(0)}, opts...)
	rig.service = NewTransService(dispatcher, rig.guard, opts...)
	return rig
}

func mustLanguages(t *testing.T, codes ...string) []language.Language {
	t.Helper()
	ret := make([]language.Language, 0, len(codes))
	for _, code := range codes {
		l, ok := language.Resolve(code)
		require.True(t, ok, code)
		ret = append(ret, l)
	}
	return ret
}

func TestRun_TwoLanguages(t *testing.T) {
	rig := newTestRig(t, 100)
	input := writeInput(t, "movie.srt", sampleSRT)
	outDir := filepath.Join(t.TempDir(), "out")

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath:   input,
		OutputDir:   outDir,
		Source:      "en",
		Targets:     mustLanguages(t, "es", "fr"),
		Concurrency: 2,
	})
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 0, summary.Failed())
	assert.True(t, summary.OK())
	assert.Equal(t, "Done! 2 succeeded, 0 failed.", summary.Line())

	for _, code := range []string{"es", "fr"} {
		data, err := os.ReadFile(filepath.Join(outDir, "movie."+code+".srt"))
		require.NoError(t, err)
		lines := strings.Split(string(data), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "1", lines[0])
		assert.Equal(t, "00:00:01,000 --> 00:00:02,000", lines[1])
		assert.Equal(t, code+"|Hello", lines[2])
		assert.Equal(t, code+"|How are you", lines[3])
		assert.Equal(t, code+"|Bye", lines[4])
	}

	// the probe plus six units, alternating across both languages
	assert.Len(t, rig.gtx.calls(), 4)
	assert.Len(t, rig.deeplx.calls(), 3)
	assert.Equal(t, captcha.ProbeText, rig.gtx.calls()[0].Text)
}

func TestRun_PreflightBlockRecoversBeforeBulk(t *testing.T) {
	rig := newTestRig(t, 100)
	rig.gtx.fn = func(req translator.Request) (string, error) {
		if req.Credential == "" {
			return "", &translator.BlockedError{Backend: "gtx", ChallengeURL: challengeURL}
		}
		return req.Target + "|" + req.Text, nil
	}
	input := writeInput(t, "movie.srt", sampleSRT)

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath:   input,
		Source:      "en",
		Targets:     mustLanguages(t, "es", "fr"),
		Concurrency: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded())

	events := rig.events.snapshot()
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, "gtx:es:hello", events[0])
	assert.Equal(t, "prompt:"+challengeURL, events[1])

	calls := rig.gtx.calls()
	require.Len(t, calls, 4)
	for _, req := range calls[1:] {
		assert.Equal(t, "GOOGLE_ABUSE_EXEMPTION=solved", req.Credential)
	}
	for _, req := range rig.deeplx.calls() {
		assert.Equal(t, "GOOGLE_ABUSE_EXEMPTION=solved", req.Credential)
	}
	assert.Equal(t, "GOOGLE_ABUSE_EXEMPTION=solved", rig.guard.Credential())
}

func TestRun_RecoveryUnavailableAbortsBeforeBulk(t *testing.T) {
	rig := newTestRig(t, 100)
	rig.gtx.fn = func(req translator.Request) (string, error) {
		return "", &translator.BlockedError{Backend: "gtx", ChallengeURL: challengeURL}
	}
	rig.prompter.err = captcha.ErrNoInteractiveChannel
	input := writeInput(t, "movie.srt", sampleSRT)

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath: input,
		Source:    "en",
		Targets:   mustLanguages(t, "es"),
	})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrRecoveryUnavailable))
	assert.True(t, IsFatal(err))
	assert.Contains(t, err.Error(), challengeURL)
	require.NotNil(t, summary)
	assert.Empty(t, summary.Results)
	assert.False(t, summary.OK())
	assert.Len(t, rig.gtx.calls(), 1)
	assert.Empty(t, rig.deeplx.calls())
}

func TestRun_EmptyDocumentMakesNoNetworkCall(t *testing.T) {
	rig := newTestRig(t, 100)
	input := writeInput(t, "empty.srt", "just a header\nwithout timings\n")

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath: input,
		Source:    "en",
		Targets:   mustLanguages(t, "es"),
	})
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, IsErrorType(err, ErrParseEmpty))
	assert.Empty(t, rig.events.snapshot())
}

func TestRun_LanguageFailureDoesNotAbort(t *testing.T) {
	rig := newTestRig(t, 100)
	rig.deeplx.fn = func(req translator.Request) (string, error) {
		if req.Target == "fr" {
			return "", &translator.HTTPError{Backend: "deeplx", StatusCode: http.StatusForbidden}
		}
		return req.Target + "|" + req.Text, nil
	}
	input := writeInput(t, "movie.srt", sampleSRT)

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath:   input,
		Source:      "English",
		Targets:     mustLanguages(t, "fr", "de"),
		Concurrency: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.False(t, summary.OK())

	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "fr", failures[0].Language.Code)
	assert.Equal(t, ErrAuthRejected, failures[0].Err.Type)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(input), "movie.fr.srt"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(filepath.Dir(input), "movie.de.srt"))
	assert.NoError(t, statErr)

	var buf bytes.Buffer
	summary.Render(&buf)
	assert.Contains(t, buf.String(), "Done! 1 succeeded, 1 failed.")
	assert.Contains(t, buf.String(), "Failed languages:")
	assert.Contains(t, buf.String(), "French (fr): AuthRejected")
}

func TestRun_CircuitOpenAbortsRemainingLanguages(t *testing.T) {
	rig := newTestRig(t, 3)
	failing := func(req translator.Request) (string, error) {
		if req.Text == captcha.ProbeText {
			return "ok", nil
		}
		return "", &translator.HTTPError{Backend: "x", StatusCode: http.StatusBadGateway}
	}
	rig.gtx.fn = failing
	rig.deeplx.fn = failing
	input := writeInput(t, "movie.srt", sampleSRT)

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath:   input,
		Source:      "en",
		Targets:     mustLanguages(t, "es", "fr", "de"),
		Concurrency: 1,
	})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrCircuitOpen))
	require.NotNil(t, summary)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "es", summary.Results[0].Language.Code)
	assert.NotNil(t, summary.Aborted)

	for _, req := range append(rig.gtx.calls(), rig.deeplx.calls()...) {
		assert.NotEqual(t, "fr", req.Target)
		assert.NotEqual(t, "de", req.Target)
	}
}

func TestRun_MidBatchBlockRecoversBeforeNextLanguage(t *testing.T) {
	rig := newTestRig(t, 100)
	rig.gtx.fn = func(req translator.Request) (string, error) {
		if req.Text != captcha.ProbeText && req.Credential == "" {
			return "", &translator.BlockedError{Backend: "gtx", ChallengeURL: challengeURL}
		}
		return req.Target + "|" + req.Text, nil
	}
	input := writeInput(t, "movie.srt", sampleSRT)

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath:   input,
		Source:      "en",
		Targets:     mustLanguages(t, "es", "fr"),
		Concurrency: 1,
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, ErrBlocked, summary.Results[0].Err.Type)
	assert.True(t, summary.Results[1].Succeeded())
	assert.Equal(t, []string{challengeURL}, rig.prompter.urls)

	for _, req := range rig.gtx.calls() {
		if req.Target == "fr" {
			assert.Equal(t, "GOOGLE_ABUSE_EXEMPTION=solved", req.Credential)
		}
	}
}

func TestRun_AutoDetectsSource(t *testing.T) {
	rig := newTestRig(t, 100)
	input := writeInput(t, "talk.srt", strings.Join([]string{
		"1",
		"00:00:01,000 --> 00:00:04,000",
		"I think we should leave before the weather gets any worse tonight.",
		"",
		"2",
		"00:00:05,000 --> 00:00:08,000",
		"Everyone in the village already knows what happened at the river.",
		"",
		"3",
		"00:00:09,000 --> 00:00:12,000",
		"Nobody wanted to believe the old man when he told them the story.",
		"",
	}, "\n"))

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath: input,
		Source:    AutoSource,
		Targets:   mustLanguages(t, "de"),
	})
	require.NoError(t, err)
	assert.Equal(t, "en", summary.Source.Code)
	assert.Equal(t, "en", rig.gtx.calls()[0].Source)
}

func TestRun_Validation(t *testing.T) {
	rig := newTestRig(t, 100)
	input := writeInput(t, "movie.srt", sampleSRT)

	tests := []struct {
		name string
		req  RunRequest
		want ErrorType
	}{
		{name: "no input", req: RunRequest{Targets: mustLanguages(t, "es")}, want: ErrValidation},
		{name: "no targets", req: RunRequest{InputPath: input, Source: "en"}, want: ErrValidation},
		{name: "negative concurrency", req: RunRequest{InputPath: input, Source: "en", Targets: mustLanguages(t, "es"), Concurrency: -1}, want: ErrValidation},
		{name: "unknown source", req: RunRequest{InputPath: input, Source: "xx-unknown", Targets: mustLanguages(t, "es")}, want: ErrValidation},
		{name: "missing file", req: RunRequest{InputPath: filepath.Join(t.TempDir(), "nope.srt"), Source: "en", Targets: mustLanguages(t, "es")}, want: ErrFileNotFound},
		{name: "not srt", req: RunRequest{InputPath: filepath.Join(t.TempDir(), "movie.ass"), Source: "en", Targets: mustLanguages(t, "es")}, want: ErrFileRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rig.service.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, IsErrorType(err, tt.want), err.Error())
		})
	}
	assert.Empty(t, rig.events.snapshot())
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Write(path string, text string) error {
	args := m.Called(path, text)
	return args.Error(0)
}

func TestRun_WriteFailureIsReported(t *testing.T) {
	writer := &mockWriter{}
	writer.On("Write", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	rig := newTestRig(t, 100, WithWriter(writer))
	input := writeInput(t, "movie.srt", sampleSRT)

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath: input,
		OutputDir: "/out",
		Source:    "en",
		Targets:   mustLanguages(t, "es"),
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, ErrFileWrite, summary.Results[0].Err.Type)
	writer.AssertCalled(t, "Write", filepath.Join("/out", "movie.es.srt"), mock.Anything)
}

type memoryJobs struct {
	records map[string]persistence.JobRecord
	order   []string
}

func (m *memoryJobs) NewJobRecord(inputPath, source, target string, lines int) persistence.JobRecord {
	id := target + "-job"
	return persistence.JobRecord{ID: id, InputPath: inputPath, Source: source, Target: target, Lines: lines, Status: persistence.JobStatusRunning}
}

func (m *memoryJobs) UpsertJob(_ context.Context, job persistence.JobRecord) error {
	if m.records == nil {
		m.records = map[string]persistence.JobRecord{}
	}
	m.records[job.ID] = job
	m.order = append(m.order, string(job.Status))
	return nil
}

func TestRun_RecordsJobHistory(t *testing.T) {
	jobs := &memoryJobs{}
	rig := newTestRig(t, 100, WithJobRecorder(jobs))
	input := writeInput(t, "movie.srt", sampleSRT)

	_, err := rig.service.Run(context.Background(), RunRequest{
		InputPath: input,
		Source:    "en",
		Targets:   mustLanguages(t, "es"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"running", "succeeded"}, jobs.order)
	rec := jobs.records["es-job"]
	assert.Equal(t, persistence.JobStatusSucceeded, rec.Status)
	assert.Equal(t, 3, rec.Lines)
	assert.Equal(t, filepath.Join(filepath.Dir(input), "movie.es.srt"), rec.OutputPath)
}

func TestRun_AllLanguagesSkipsSource(t *testing.T) {
	rig := newTestRig(t, 100)
	input := writeInput(t, "movie.srt", sampleSRT)

	summary, err := rig.service.Run(context.Background(), RunRequest{
		InputPath:    input,
		OutputDir:    t.TempDir(),
		Source:       "en",
		AllLanguages: true,
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, len(language.All())-1)
	assert.True(t, summary.OK())
	for _, r := range summary.Results {
		assert.NotEqual(t, "en", r.Language.Code)
	}
}
