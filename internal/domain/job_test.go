package domain

import "testing"

func TestStatusTerminal(t *testing.T) {
	terminal := []JobStatus{StatusDone, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}

	active := []JobStatus{StatusQueued, StatusDownloading, StatusUploading}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("Expected %s to not be terminal", s)
		}
	}
}

func TestSetStatusLatchesTerminal(t *testing.T) {
	job := NewJob("job1", 1, 1, "https://example.com/v", MediaMetadata{}, FormatOption{})

	if job.Status() != StatusQueued {
		t.Fatalf("Expected initial status queued, got %s", job.Status())
	}

	if !job.SetStatus(StatusDownloading) {
		t.Error("Expected transition to downloading to succeed")
	}
	if !job.SetStatus(StatusDone) {
		t.Error("Expected transition to done to succeed")
	}

	if job.SetStatus(StatusFailed) {
		t.Error("Expected transition out of done to be rejected")
	}
	if job.Status() != StatusDone {
		t.Errorf("Expected status to stay done, got %s", job.Status())
	}
}

func TestSetProgressMonotone(t *testing.T) {
	job := NewJob("job1", 1, 1, "https://example.com/v", MediaMetadata{}, FormatOption{})

	job.SetProgress(40)
	job.SetProgress(25)

	if got := job.Progress(); got != 40 {
		t.Errorf("Expected progress 40, got %v", got)
	}
}

func TestClaimProgressMessageIDFirstWriterWins(t *testing.T) {
	job := NewJob("job1", 1, 1, "https://example.com/v", MediaMetadata{}, FormatOption{})

	if !job.ClaimProgressMessageID(5) {
		t.Fatal("Expected first claim to succeed")
	}
	if job.ClaimProgressMessageID(7) {
		t.Error("Expected second claim to be rejected")
	}
	if got := job.ProgressMessageID(); got != 5 {
		t.Errorf("Expected message id 5, got %d", got)
	}
}

func TestMarkCancelledIsOneWay(t *testing.T) {
	job := NewJob("job1", 1, 1, "https://example.com/v", MediaMetadata{}, FormatOption{})

	if job.Cancelled() {
		t.Fatal("Expected new job to not be cancelled")
	}
	job.MarkCancelled()
	if !job.Cancelled() {
		t.Error("Expected job to be cancelled")
	}
}
