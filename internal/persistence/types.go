package persistence

import "time"

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobRecord is one (input file, target language) job of a run.
type JobRecord struct {
	ID          string
	InputPath   string
	OutputPath  string
	Source      string
	Target      string
	Status      JobStatus
	Error       string
	Lines       int
	CachedLines int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CachedTranslation struct {
	Source     string
	Target     string
	Text       string
	Translated string
	Backend    string
	UpdatedAt  time.Time
}
