package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mramrohaleem/telegram-bot/internal/app"
	"github.com/mramrohaleem/telegram-bot/internal/domain"
	"github.com/mramrohaleem/telegram-bot/internal/infra/config"
	"github.com/mramrohaleem/telegram-bot/internal/infra/logger"
)

type fakeRetriever struct {
	mu      sync.Mutex
	calls   []string
	size    int64
	title   string
	isAudio bool
	err     error
	// hook runs inside Retrieve before the result is produced
	hook func(ctx context.Context, url string)
	// block makes Retrieve wait for context cancellation
	block bool
}

func (f *fakeRetriever) Retrieve(ctx context.Context, url, destDir, formatID string, onProgress func(domain.ProgressEvent)) (*domain.RetrievalResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	n := len(f.calls)
	f.mu.Unlock()

	if f.hook != nil {
		f.hook(ctx, url)
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}

	path := filepath.Join(destDir, fmt.Sprintf("out-%d.mp4", n))
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		return nil, err
	}

	title := f.title
	if title == "" {
		title = "Test Title"
	}
	return &domain.RetrievalResult{
		FilePath: path,
		IsAudio:  f.isAudio,
		FileSize: f.size,
		Title:    title,
	}, nil
}

func (f *fakeRetriever) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRetriever) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type deliveredFile struct {
	chatID int64
	path   string
	name   string
	kind   domain.FileKind
}

type fakeNotifier struct {
	mu       sync.Mutex
	nextID   int
	messages []string
	edits    []string
	files    []deliveredFile
	editErr  error
}

func (f *fakeNotifier) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, text)
	return f.nextID, nil
}

func (f *fakeNotifier) EditMessage(_ context.Context, chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeNotifier) SendFile(_ context.Context, chatID int64, path, displayName string, kind domain.FileKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, deliveredFile{chatID: chatID, path: path, name: displayName, kind: kind})
	return nil
}

func (f *fakeNotifier) deliveredFiles() []deliveredFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]deliveredFile(nil), f.files...)
}

func (f *fakeNotifier) allTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := append([]string(nil), f.messages...)
	return append(texts, f.edits...)
}

type fakePrefs struct {
	asDocument bool
}

func (f *fakePrefs) VideoAsDocument(userID int64) bool { return f.asDocument }

func newTestManager(t *testing.T, workers int, retr app.Retriever, notif app.Notifier, prefs app.Preferences) *Manager {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Download: config.DownloadConfig{Dir: dir, MaxFileSizeMB: 1},
		Queue: config.QueueConfig{
			MaxConcurrentDownloads: workers,
			Capacity:               16,
			UserJobLimit:           5,
		},
	}

	log, err := logger.New(filepath.Join(dir, "test.log"), logger.LevelError, false)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	appCtx := app.NewContext(cfg, log)
	appCtx.Retriever = retr
	appCtx.Notifier = notif
	if prefs == nil {
		prefs = &fakePrefs{}
	}
	appCtx.Prefs = prefs

	return NewManager(appCtx)
}

func newTestJob(userID int64, url string) *domain.Job {
	return domain.NewJob(NewJobID(), userID, userID, url,
		domain.MediaMetadata{Title: "Test Title"},
		domain.FormatOption{FormatID: "22", Label: "Video 720p"})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestCanEnqueueLimit(t *testing.T) {
	m := newTestManager(t, 1, &fakeRetriever{}, &fakeNotifier{}, nil)

	if !m.CanEnqueue(7, 2) {
		t.Fatal("Expected admission for user with no active jobs")
	}

	for i := 0; i < 2; i++ {
		if err := m.Enqueue(newTestJob(7, fmt.Sprintf("https://example.com/%d", i))); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if m.CanEnqueue(7, 2) {
		t.Error("Expected admission to be denied at the limit")
	}
	if !m.CanEnqueue(8, 2) {
		t.Error("Expected other users to be unaffected")
	}
}

func TestAdmissionFreedOnCompletion(t *testing.T) {
	retr := &fakeRetriever{size: 100}
	m := newTestManager(t, 1, retr, &fakeNotifier{}, nil)
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/v")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "job to finish", func() bool { return job.Status() == domain.StatusDone })
	waitFor(t, "admission slot to free up", func() bool { return m.CanEnqueue(7, 1) })
}

func TestProcessJobSuccess(t *testing.T) {
	retr := &fakeRetriever{size: 100, title: "Cool Video"}
	notif := &fakeNotifier{}
	m := newTestManager(t, 1, retr, notif, nil)
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/v")
	job.SetProgressMessageID(1)
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "job to finish", func() bool { return job.Status() == domain.StatusDone })

	files := notif.deliveredFiles()
	if len(files) != 1 {
		t.Fatalf("Expected 1 delivered file, got %d", len(files))
	}
	if files[0].kind != domain.FileVideo {
		t.Errorf("Expected video delivery, got %s", files[0].kind)
	}
	// Title noise words are stripped for the display name
	if files[0].name != "Cool" {
		t.Errorf("Expected sanitized name 'Cool', got %q", files[0].name)
	}
	if _, err := os.Stat(files[0].path); !os.IsNotExist(err) {
		t.Errorf("Expected local file to be deleted after delivery")
	}
}

func TestCustomNameOverridesTitle(t *testing.T) {
	retr := &fakeRetriever{size: 100, title: "Ignored Title"}
	notif := &fakeNotifier{}
	m := newTestManager(t, 1, retr, notif, nil)
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/v")
	job.CustomName = "My Pick"
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "job to finish", func() bool { return job.Status() == domain.StatusDone })

	files := notif.deliveredFiles()
	if len(files) != 1 || files[0].name != "My Pick" {
		t.Fatalf("Expected delivery under custom name, got %+v", files)
	}
}

func TestAudioAndDocumentDelivery(t *testing.T) {
	retr := &fakeRetriever{size: 100, isAudio: true}
	notif := &fakeNotifier{}
	m := newTestManager(t, 1, retr, notif, nil)
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/a")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	waitFor(t, "audio job to finish", func() bool { return job.Status() == domain.StatusDone })

	files := notif.deliveredFiles()
	if len(files) != 1 || files[0].kind != domain.FileAudio {
		t.Fatalf("Expected audio delivery, got %+v", files)
	}
}

func TestVideoAsDocumentPreference(t *testing.T) {
	retr := &fakeRetriever{size: 100}
	notif := &fakeNotifier{}
	m := newTestManager(t, 1, retr, notif, &fakePrefs{asDocument: true})
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/v")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	waitFor(t, "job to finish", func() bool { return job.Status() == domain.StatusDone })

	files := notif.deliveredFiles()
	if len(files) != 1 || files[0].kind != domain.FileDocument {
		t.Fatalf("Expected document delivery, got %+v", files)
	}
}

func TestCancelQueuedJobNeverRetrieved(t *testing.T) {
	retr := &fakeRetriever{size: 100}
	m := newTestManager(t, 1, retr, &fakeNotifier{}, nil)

	job := newTestJob(7, "https://example.com/v")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	if err := m.CancelJob(context.Background(), job.ID, false); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	if job.Status() != domain.StatusCancelled {
		t.Fatalf("Expected cancelled status, got %s", job.Status())
	}
	if !m.CanEnqueue(7, 1) {
		t.Error("Expected cancel to free the admission slot immediately")
	}

	// Workers started after the cancel must discard the job at the
	// dequeue checkpoint.
	m.Start()
	defer m.Stop()
	time.Sleep(100 * time.Millisecond)

	if retr.callCount() != 0 {
		t.Errorf("Expected retrieval to never run, got %d calls", retr.callCount())
	}
}

func TestCancelDuringRetrieval(t *testing.T) {
	notif := &fakeNotifier{}
	retr := &fakeRetriever{size: 100}
	m := newTestManager(t, 1, retr, notif, nil)

	var jobID string
	retr.hook = func(ctx context.Context, url string) {
		// Cancellation lands while the transfer is in flight
		_ = m.CancelJob(context.Background(), jobID, false)
	}

	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/v")
	jobID = job.ID
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "job to be cancelled", func() bool { return job.Status() == domain.StatusCancelled })

	if got := notif.deliveredFiles(); len(got) != 0 {
		t.Errorf("Expected no delivery for cancelled job, got %+v", got)
	}

	// The partial output must be removed
	entries, err := os.ReadDir(m.app.Config.Download.Dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".mp4" {
			t.Errorf("Expected partial output to be deleted, found %s", e.Name())
		}
	}
}

func TestCancelCompletedJobIsNoop(t *testing.T) {
	retr := &fakeRetriever{size: 100}
	m := newTestManager(t, 1, retr, &fakeNotifier{}, nil)
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/v")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	waitFor(t, "job to finish", func() bool { return job.Status() == domain.StatusDone })

	if err := m.CancelJob(context.Background(), job.ID, true); err != nil {
		t.Fatalf("CancelJob failed: %v", err)
	}
	if job.Status() != domain.StatusDone {
		t.Errorf("Expected done job to stay done, got %s", job.Status())
	}
}

func TestCancelMissingJob(t *testing.T) {
	m := newTestManager(t, 1, &fakeRetriever{}, &fakeNotifier{}, nil)

	err := m.CancelJob(context.Background(), "no-such-job", false)
	if !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestSizeLimitExceeded(t *testing.T) {
	// Limit is 1 MB in the test config; report 2 MB
	retr := &fakeRetriever{size: 2 * 1024 * 1024}
	notif := &fakeNotifier{}
	m := newTestManager(t, 1, retr, notif, nil)
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/big")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "job to fail", func() bool { return job.Status() == domain.StatusFailed })

	lastErr := job.LastError()
	if !strings.Contains(lastErr, "2.0 MB") || !strings.Contains(lastErr, "Limit is 1 MB") {
		t.Errorf("Expected last error to mention actual and allowed sizes, got %q", lastErr)
	}

	var sawFailureText bool
	for _, text := range notif.allTexts() {
		if strings.Contains(text, "too large") {
			sawFailureText = true
		}
	}
	if !sawFailureText {
		t.Error("Expected a user-facing failure notification")
	}

	if got := notif.deliveredFiles(); len(got) != 0 {
		t.Errorf("Expected no delivery for oversized file, got %+v", got)
	}
}

func TestRetrievalFailure(t *testing.T) {
	retr := &fakeRetriever{err: errors.New("unsupported source")}
	notif := &fakeNotifier{}
	m := newTestManager(t, 1, retr, notif, nil)
	m.Start()
	defer m.Stop()

	job := newTestJob(7, "https://example.com/v")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "job to fail", func() bool { return job.Status() == domain.StatusFailed })

	if !strings.Contains(job.LastError(), "unsupported source") {
		t.Errorf("Expected retrieval error to be retained, got %q", job.LastError())
	}
}

func TestFIFOOrder(t *testing.T) {
	retr := &fakeRetriever{size: 100}
	m := newTestManager(t, 1, retr, &fakeNotifier{}, nil)
	m.Start()
	defer m.Stop()

	urls := []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"}
	jobs := make([]*domain.Job, 0, len(urls))
	for _, u := range urls {
		job := newTestJob(7, u)
		if err := m.Enqueue(job); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		jobs = append(jobs, job)
	}

	waitFor(t, "all jobs to finish", func() bool {
		for _, job := range jobs {
			if job.Status() != domain.StatusDone {
				return false
			}
		}
		return true
	})

	order := retr.callOrder()
	for i, u := range urls {
		if order[i] != u {
			t.Fatalf("Expected FIFO order %v, got %v", urls, order)
		}
	}
}

func TestBatchStatsAndFilter(t *testing.T) {
	m := newTestManager(t, 1, &fakeRetriever{}, &fakeNotifier{}, nil)

	batchID := NewBatchID()
	var jobs []*domain.Job
	for i := 0; i < 4; i++ {
		job := newTestJob(7, fmt.Sprintf("https://example.com/%d", i))
		job.BatchID = batchID
		if err := m.Enqueue(job); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		jobs = append(jobs, job)
	}

	jobs[0].SetStatus(domain.StatusDone)
	jobs[1].SetStatus(domain.StatusDone)

	stats := m.BatchStats(batchID)
	if stats.Total != 4 || stats.Done != 2 || stats.Queued != 2 {
		t.Errorf("Expected total=4 done=2 queued=2, got %+v", stats)
	}

	queued := m.BatchJobs(batchID, domain.StatusQueued)
	if len(queued) != 2 {
		t.Errorf("Expected 2 queued batch jobs, got %d", len(queued))
	}
	all := m.BatchJobs(batchID, "")
	if len(all) != 4 {
		t.Errorf("Expected 4 batch jobs, got %d", len(all))
	}
}

func TestCancelBatch(t *testing.T) {
	m := newTestManager(t, 1, &fakeRetriever{}, &fakeNotifier{}, nil)

	batchID := NewBatchID()
	var jobs []*domain.Job
	for i := 0; i < 3; i++ {
		job := newTestJob(7, fmt.Sprintf("https://example.com/%d", i))
		job.BatchID = batchID
		if err := m.Enqueue(job); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		jobs = append(jobs, job)
	}

	m.CancelBatch(context.Background(), batchID, false)

	for _, job := range jobs {
		if job.Status() != domain.StatusCancelled {
			t.Errorf("Expected job %s cancelled, got %s", job.ID, job.Status())
		}
	}

	stats := m.BatchStats(batchID)
	if stats.Cancelled != 3 {
		t.Errorf("Expected 3 cancelled in stats, got %+v", stats)
	}
}

func TestStopLeavesQueuedJobs(t *testing.T) {
	retr := &fakeRetriever{block: true}
	m := newTestManager(t, 1, retr, &fakeNotifier{}, nil)
	m.Start()

	inflight := newTestJob(7, "https://example.com/inflight")
	queued := newTestJob(8, "https://example.com/queued")
	if err := m.Enqueue(inflight); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := m.Enqueue(queued); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "first job to be picked up", func() bool { return retr.callCount() == 1 })

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not complete within the bounded wait")
	}

	if queued.Status() != domain.StatusQueued {
		t.Errorf("Expected undispatched job to stay queued, got %s", queued.Status())
	}
	if _, ok := m.Job(queued.ID); !ok {
		t.Error("Expected queued job to remain in the store")
	}

	if err := m.Enqueue(newTestJob(9, "https://example.com/late")); !errors.Is(err, domain.ErrQueueStopped) {
		t.Errorf("Expected ErrQueueStopped after Stop, got %v", err)
	}
}

// A shutdown aborts in-flight transfers through the worker context. That must
// not read as a download failure: the job keeps its current state and the
// user gets no error notice.
func TestStopAbandonsInflightJob(t *testing.T) {
	retr := &fakeRetriever{block: true}
	notif := &fakeNotifier{}
	m := newTestManager(t, 1, retr, notif, nil)
	m.Start()

	job := newTestJob(7, "https://example.com/inflight")
	if err := m.Enqueue(job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	waitFor(t, "job to be picked up", func() bool { return retr.callCount() == 1 })

	m.Stop()

	if job.Status() != domain.StatusDownloading {
		t.Errorf("Expected in-flight job to keep its state at stop, got %s", job.Status())
	}
	if job.LastError() != "" {
		t.Errorf("Expected no recorded error, got %q", job.LastError())
	}
	for _, text := range notif.allTexts() {
		if strings.Contains(text, "❌") {
			t.Errorf("Expected no failure notification at shutdown, got %q", text)
		}
	}
}

func TestEnqueueQueueFull(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Download: config.DownloadConfig{Dir: dir, MaxFileSizeMB: 1},
		Queue: config.QueueConfig{
			MaxConcurrentDownloads: 1,
			Capacity:               1,
			UserJobLimit:           5,
		},
	}
	log, err := logger.New(filepath.Join(dir, "test.log"), logger.LevelError, false)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	appCtx := app.NewContext(cfg, log)
	appCtx.Retriever = &fakeRetriever{}
	appCtx.Notifier = &fakeNotifier{}
	appCtx.Prefs = &fakePrefs{}
	m := NewManager(appCtx)

	if err := m.Enqueue(newTestJob(7, "https://example.com/1")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	overflow := newTestJob(7, "https://example.com/2")
	if err := m.Enqueue(overflow); !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("Expected ErrQueueFull, got %v", err)
	}

	// The rejected job must not linger in the store or active set
	if _, ok := m.Job(overflow.ID); ok {
		t.Error("Expected rejected job to be forgotten")
	}
	if !m.CanEnqueue(7, 2) {
		t.Error("Expected rejected job to not count against admission")
	}
}

