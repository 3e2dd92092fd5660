package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mramrohaleem/telegram-bot/internal/domain"
	"github.com/mramrohaleem/telegram-bot/internal/retrieval"
)

// worker drains the shared queue until the pool is stopped. Every failure
// the protocol does not map itself ends the job FAILED with a generic
// notice; the worker never dies with it.
func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.pending:
			// A stop that raced the dequeue wins; the job stays QUEUED in
			// the store.
			select {
			case <-ctx.Done():
				return
			default:
			}
			m.runJob(ctx, job)
		}
	}
}

func (m *Manager) runJob(ctx context.Context, job *domain.Job) {
	defer m.unregister(job)

	// Checkpoint: a job cancelled while queued is discarded before any
	// network or file work.
	if job.Cancelled() {
		job.SetStatus(domain.StatusCancelled)
		return
	}

	if err := m.processJob(ctx, job); err != nil {
		m.app.Logger.Error("job %s failed: %v", job.ID, err)
		job.SetLastError(err.Error())
		job.SetStatus(domain.StatusFailed)
		m.sendFailure(ctx, job, "Unexpected error occurred during download.")
	}
}

// processJob drives one job DOWNLOADING -> UPLOADING -> DONE. Cancellation
// and the size limit are handled here and end the job without error; any
// returned error is mapped to FAILED by runJob.
func (m *Manager) processJob(ctx context.Context, job *domain.Job) error {
	job.SetStatus(domain.StatusDownloading)
	if job.ProgressMessageID() != 0 {
		m.editProgress(ctx, job, "⬇️ Starting download...")
	}

	// The retrieval context lets a cancel abort the transfer early; the
	// job's flag stays authoritative at the checkpoints below.
	retrCtx, cancelRetr := context.WithCancel(ctx)
	m.setRetrievalCancel(job.ID, cancelRetr)
	defer func() {
		cancelRetr()
		m.clearRetrievalCancel(job.ID)
	}()

	th := newThrottle(time.Now)
	onProgress := func(ev domain.ProgressEvent) {
		if job.Cancelled() {
			return
		}
		if ev.Status != domain.ProgressDownloading {
			return
		}
		pct, text, ok := th.observe(ev)
		if !ok {
			return
		}
		job.SetProgress(pct)
		m.spawnEdit(job, text)
	}

	res, err := m.app.Retriever.Retrieve(retrCtx, job.URL, m.app.Config.Download.Dir, job.Format.FormatID, onProgress)

	// Checkpoint: cancellation during the transfer wins over whatever the
	// engine returned. Partial output is removed, never delivered.
	if job.Cancelled() {
		if res != nil {
			removeQuiet(res.FilePath)
		}
		job.SetStatus(domain.StatusCancelled)
		return nil
	}
	if err != nil {
		// A pool shutdown aborts the transfer through the worker context.
		// That is not a download failure: the job is abandoned in its
		// current state and the user hears nothing.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			if res != nil {
				removeQuiet(res.FilePath)
			}
			return nil
		}
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if res.FileSize > m.app.Config.Download.MaxFileSizeBytes() {
		removeQuiet(res.FilePath)
		msg := fmt.Sprintf("File is too large (%.1f MB). Limit is %d MB.",
			float64(res.FileSize)/1024/1024, m.app.Config.Download.MaxFileSizeMB)
		job.SetLastError(msg)
		job.SetStatus(domain.StatusFailed)
		m.sendFailure(ctx, job, msg)
		return nil
	}

	job.SetStatus(domain.StatusUploading)
	if job.ProgressMessageID() != 0 {
		m.editProgress(ctx, job, "⬆️ Uploading to Telegram...")
	}

	name := job.CustomName
	if name == "" {
		name = retrieval.SanitizeFilename(res.Title)
	}

	kind := domain.FileVideo
	if res.IsAudio {
		kind = domain.FileAudio
	} else if m.app.Prefs.VideoAsDocument(job.UserID) {
		kind = domain.FileDocument
	}

	if err := m.app.Notifier.SendFile(ctx, job.ChatID, res.FilePath, name, kind); err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	job.SetStatus(domain.StatusDone)
	if job.ProgressMessageID() != 0 {
		m.editProgress(ctx, job, "✅ Download complete")
	}

	if err := os.Remove(res.FilePath); err != nil && !os.IsNotExist(err) {
		m.app.Logger.Warn("failed to delete file %s: %v", res.FilePath, err)
	}
	return nil
}

// editProgress updates the job's live status message, creating it lazily on
// first use. Edit failures are swallowed: the message may have been deleted
// by the user and the job must not care.
func (m *Manager) editProgress(ctx context.Context, job *domain.Job, text string) {
	if job.ProgressMessageID() == 0 {
		id, err := m.app.Notifier.SendMessage(ctx, job.ChatID, text)
		if err != nil {
			return
		}
		job.ClaimProgressMessageID(id)
		return
	}
	_ = m.app.Notifier.EditMessage(ctx, job.ChatID, job.ProgressMessageID(), text)
}

// spawnEdit fires a notification edit without blocking the progress
// callback. When too many edits are already in flight the update is dropped;
// the next qualifying sample will carry fresher numbers anyway.
func (m *Manager) spawnEdit(job *domain.Job, text string) {
	select {
	case m.editSem <- struct{}{}:
	default:
		return
	}

	go func() {
		defer func() { <-m.editSem }()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m.editProgress(ctx, job, text)
	}()
}

func (m *Manager) sendFailure(ctx context.Context, job *domain.Job, text string) {
	text = "❌ " + text
	if job.ProgressMessageID() != 0 {
		if err := m.app.Notifier.EditMessage(ctx, job.ChatID, job.ProgressMessageID(), text); err != nil {
			_, _ = m.app.Notifier.SendMessage(ctx, job.ChatID, text)
		}
		return
	}
	_, _ = m.app.Notifier.SendMessage(ctx, job.ChatID, text)
}

func removeQuiet(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}
