package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/mramrohaleem/telegram-bot/internal/app"
	"github.com/mramrohaleem/telegram-bot/internal/domain"
	"github.com/segmentio/ksuid"
)

// Manager owns the job store, the per-user active set, the batch index and
// the shared FIFO queue a fixed pool of workers drains. All registry
// mutations happen under one lock; job lifecycle fields are guarded by the
// job itself.
type Manager struct {
	app *app.Context

	mu         sync.RWMutex
	jobs       map[string]*domain.Job
	userActive map[int64]map[string]struct{}
	batches    map[string][]string
	retrCancel map[string]context.CancelFunc

	pending chan *domain.Job
	editSem chan struct{}

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stopped atomic.Bool
}

// maxInflightEdits bounds the fire-and-forget notification edits spawned
// from progress callbacks so a slow Telegram API cannot pile up goroutines.
const maxInflightEdits = 8

func NewManager(app *app.Context) *Manager {
	return &Manager{
		app:        app,
		jobs:       make(map[string]*domain.Job),
		userActive: make(map[int64]map[string]struct{}),
		batches:    make(map[string][]string),
		retrCancel: make(map[string]context.CancelFunc),
		pending:    make(chan *domain.Job, app.Config.Queue.Capacity),
		editSem:    make(chan struct{}, maxInflightEdits),
	}
}

// NewJobID mints a job identifier. KSUIDs sort chronologically, which keeps
// listings in enqueue order without a separate counter.
func NewJobID() string {
	return ksuid.New().String()
}

// NewBatchID mints a batch identifier.
func NewBatchID() string {
	return uuid.NewString()
}

// Start launches the worker pool. Workers run until Stop is called.
func (m *Manager) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	for i := 0; i < m.app.Config.Queue.MaxConcurrentDownloads; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	m.app.Logger.Info("queue started with %d workers", m.app.Config.Queue.MaxConcurrentDownloads)
}

// Stop signals all workers and waits for them to exit. In-flight jobs are
// abandoned in their current state; queued jobs stay QUEUED in the store.
func (m *Manager) Stop() {
	if !m.stopped.CompareAndSwap(false, true) {
		return
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.app.Logger.Info("queue stopped")
}

// CanEnqueue reports whether userID is below the active-job limit. A
// non-positive limit falls back to the configured default. Callers must
// check this before enqueueing; Enqueue itself does not.
func (m *Manager) CanEnqueue(userID int64, limit int) bool {
	if limit <= 0 {
		limit = m.app.Config.Queue.UserJobLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userActive[userID]) < limit
}

// Enqueue registers the job and pushes it onto the shared queue.
func (m *Manager) Enqueue(job *domain.Job) error {
	if m.stopped.Load() {
		return domain.ErrQueueStopped
	}

	m.register(job)

	select {
	case m.pending <- job:
	default:
		m.unregister(job)
		m.forget(job)
		return domain.ErrQueueFull
	}

	m.app.Logger.Info("enqueued job %s for user %d url=%s format=%s",
		job.ID, job.UserID, job.URL, job.Format.Label)
	return nil
}

// Job looks up a job by id.
func (m *Manager) Job(id string) (*domain.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// Jobs returns a snapshot of every job the store has seen.
func (m *Manager) Jobs() []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelJob flags the job for cancellation. A queued job is discarded at the
// dequeue checkpoint; an in-flight job stops at its next checkpoint (the
// retrieval context is cancelled too so the transfer can abort early).
// Already-terminal jobs are unaffected.
func (m *Manager) CancelJob(ctx context.Context, jobID string, notify bool) error {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	var retrCancel context.CancelFunc
	if ok {
		retrCancel = m.retrCancel[jobID]
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrJobNotFound
	}

	if job.Status().Terminal() {
		return nil
	}

	job.MarkCancelled()
	job.SetStatus(domain.StatusCancelled)

	if retrCancel != nil {
		retrCancel()
	}

	if notify && job.ProgressMessageID() != 0 {
		// Best effort: the message may already be gone.
		_ = m.app.Notifier.EditMessage(ctx, job.ChatID, job.ProgressMessageID(), "❌ Download cancelled")
	}

	m.unregister(job)
	return nil
}

// CancelBatch cancels every member of the batch. Missing jobs are skipped.
func (m *Manager) CancelBatch(ctx context.Context, batchID string, notify bool) {
	m.mu.RLock()
	ids := append([]string(nil), m.batches[batchID]...)
	m.mu.RUnlock()

	for _, id := range ids {
		_ = m.CancelJob(ctx, id, notify)
	}
}

// BatchStats counts batch members per status. The counts are a best-effort
// snapshot; jobs may transition while we read.
func (m *Manager) BatchStats(batchID string) domain.BatchStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := domain.BatchStats{}
	for _, id := range m.batches[batchID] {
		job, ok := m.jobs[id]
		if !ok {
			continue
		}
		stats.Total++
		switch job.Status() {
		case domain.StatusQueued:
			stats.Queued++
		case domain.StatusDownloading:
			stats.Downloading++
		case domain.StatusUploading:
			stats.Uploading++
		case domain.StatusDone:
			stats.Done++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// BatchJobs returns the batch members in creation order, optionally filtered
// by status (empty status means all).
func (m *Manager) BatchJobs(batchID string, status domain.JobStatus) []*domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var jobs []*domain.Job
	for _, id := range m.batches[batchID] {
		job, ok := m.jobs[id]
		if !ok {
			continue
		}
		if status != "" && job.Status() != status {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func (m *Manager) register(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.ID] = job
	active, ok := m.userActive[job.UserID]
	if !ok {
		active = make(map[string]struct{})
		m.userActive[job.UserID] = active
	}
	active[job.ID] = struct{}{}
	if job.BatchID != "" {
		m.batches[job.BatchID] = append(m.batches[job.BatchID], job.ID)
	}
}

// unregister removes the job from per-user accounting only; the job store
// keeps the entry so history and batch stats stay queryable.
func (m *Manager) unregister(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.userActive[job.UserID], job.ID)
}

// forget fully removes a job that never made it onto the queue.
func (m *Manager) forget(job *domain.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, job.ID)
	if job.BatchID != "" {
		ids := m.batches[job.BatchID]
		for i, id := range ids {
			if id == job.ID {
				m.batches[job.BatchID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	}
}

func (m *Manager) setRetrievalCancel(jobID string, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrCancel[jobID] = cancel
}

func (m *Manager) clearRetrievalCancel(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.retrCancel, jobID)
}
