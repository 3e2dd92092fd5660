package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusDownloading JobStatus = "downloading"
	StatusUploading   JobStatus = "uploading"
	StatusDone        JobStatus = "done"
	StatusFailed      JobStatus = "failed"
	StatusCancelled   JobStatus = "cancelled"
)

// Terminal reports whether a job in this status will never change again.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusCancelled
}

// Job represents one retrieval-and-delivery request. Identity and request
// fields are immutable after creation; lifecycle fields are guarded by the
// job's own mutex so workers and cancel paths never race.
type Job struct {
	ID         string
	ChatID     int64
	UserID     int64
	URL        string
	Metadata   MediaMetadata
	Format     FormatOption
	CustomName string
	BatchID    string
	CreatedAt  time.Time

	mu                sync.Mutex
	status            JobStatus
	progress          float64
	lastError         string
	progressMessageID int

	cancelled atomic.Bool
}

// NewJob builds a QUEUED job. The caller assigns the ID (ksuid) so the queue
// package stays the only place that mints identifiers.
func NewJob(id string, chatID, userID int64, url string, meta MediaMetadata, format FormatOption) *Job {
	return &Job{
		ID:        id,
		ChatID:    chatID,
		UserID:    userID,
		URL:       url,
		Metadata:  meta,
		Format:    format,
		CreatedAt: time.Now(),
		status:    StatusQueued,
	}
}

func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// SetStatus applies a lifecycle transition. Once a terminal status is
// reached it latches; later transitions are ignored and SetStatus returns
// false.
func (j *Job) SetStatus(s JobStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return false
	}
	j.status = s
	return true
}

func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// SetProgress keeps the recorded percentage monotone within a phase.
func (j *Job) SetProgress(pct float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if pct > j.progress {
		j.progress = pct
	}
}

func (j *Job) LastError() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastError
}

func (j *Job) SetLastError(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastError = msg
}

// ProgressMessageID returns the identifier of the live status notification,
// or 0 when none was created.
func (j *Job) ProgressMessageID() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progressMessageID
}

func (j *Job) SetProgressMessageID(id int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progressMessageID = id
}

// ClaimProgressMessageID records id as the live status notification unless
// one was already claimed. Concurrent lazy creations race to claim; the
// loser's message is simply never edited again.
func (j *Job) ClaimProgressMessageID(id int) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.progressMessageID != 0 {
		return false
	}
	j.progressMessageID = id
	return true
}

// MarkCancelled sets the one-way cancellation flag. The worker observes it
// at its checkpoints; it never resets.
func (j *Job) MarkCancelled() {
	j.cancelled.Store(true)
}

func (j *Job) Cancelled() bool {
	return j.cancelled.Load()
}

// BatchStats aggregates job counts per status for one batch.
type BatchStats struct {
	Total       int `json:"total"`
	Queued      int `json:"queued"`
	Downloading int `json:"downloading"`
	Uploading   int `json:"uploading"`
	Done        int `json:"done"`
	Failed      int `json:"failed"`
	Cancelled   int `json:"cancelled"`
}
