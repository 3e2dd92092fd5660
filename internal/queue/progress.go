package queue

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mramrohaleem/telegram-bot/internal/domain"
)

// Throttle gates for progress notifications: both must be exceeded relative
// to the last emitted update.
const (
	minProgressStep   = 5.0
	minUpdateInterval = 3 * time.Second
)

// throttle rate-limits progress notifications for one job. Raw events can
// arrive at arbitrary frequency from the retrieval engine, and may be
// delivered from a different goroutine than the worker's.
type throttle struct {
	mu         sync.Mutex
	now        func() time.Time
	lastPct    float64
	lastUpdate time.Time
}

func newThrottle(now func() time.Time) *throttle {
	return &throttle{now: now, lastUpdate: now()}
}

// observe applies the throttle to one raw event: an update is emitted only
// when the percentage gained at least minProgressStep points AND
// minUpdateInterval elapsed since the last emit. When the event qualifies it
// returns the computed percentage and the rendered notification text. With
// an unknown total the percentage sticks at zero and the wall-time gate
// alone limits updates.
func (t *throttle) observe(ev domain.ProgressEvent) (float64, string, bool) {
	var pct float64
	if ev.TotalBytes > 0 {
		pct = float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * 100
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := t.now().Sub(t.lastUpdate)
	if elapsed < minUpdateInterval {
		return 0, "", false
	}
	if ev.TotalBytes > 0 && pct-t.lastPct < minProgressStep {
		return 0, "", false
	}
	t.lastPct = pct
	t.lastUpdate = t.now()

	return pct, renderProgress(pct, ev), true
}

func renderProgress(pct float64, ev domain.ProgressEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⬇️ Downloading %.1f%%\n", pct)
	if ev.TotalBytes > 0 {
		fmt.Fprintf(&b, "%.2f / %.2f MB\n",
			float64(ev.DownloadedBytes)/1024/1024, float64(ev.TotalBytes)/1024/1024)
	} else {
		fmt.Fprintf(&b, "%.2f MB\n", float64(ev.DownloadedBytes)/1024/1024)
	}
	if ev.Speed > 0 {
		fmt.Fprintf(&b, "Speed: %.2f MB/s\n", ev.Speed/1024/1024)
	}
	if ev.ETA > 0 {
		fmt.Fprintf(&b, "ETA: %d s", ev.ETA)
	}
	return b.String()
}
