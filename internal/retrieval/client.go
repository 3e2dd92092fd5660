package retrieval

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/mramrohaleem/telegram-bot/internal/domain"
	"github.com/mramrohaleem/telegram-bot/internal/infra/logger"
)

// Client drives yt-dlp. It implements the retrieval contract the queue
// consumes: resolve a URL into metadata, or download one format into a
// directory while streaming progress events.
type Client struct {
	log *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return &Client{log: log}
}

// Metadata resolves a URL without downloading anything.
func (c *Client) Metadata(ctx context.Context, url string) (*domain.MediaMetadata, error) {
	dl := ytdlp.New().
		DumpJSON().
		SkipDownload().
		NoPlaylist().
		NoCheckCertificates().
		Quiet().
		NoWarnings()

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("metadata extraction failed: %w", err)
	}

	info, err := firstInfo(result)
	if err != nil {
		return nil, err
	}

	meta := &domain.MediaMetadata{
		Title:      strOr(info.Title, "Unknown title"),
		Uploader:   strOr(info.Uploader, ""),
		Duration:   int(f64Or(info.Duration, 0)),
		WebpageURL: strOr(info.WebpageURL, url),
		Formats:    SimplifyFormats(rawFormats(info)),
	}
	return meta, nil
}

// Retrieve downloads one format of the URL into destDir. onProgress is
// invoked from yt-dlp's progress goroutine; the caller's throttle handles
// frequency.
func (c *Client) Retrieve(ctx context.Context, url, destDir, formatID string, onProgress func(domain.ProgressEvent)) (*domain.RetrievalResult, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	dl := ytdlp.New().
		Format(formatID).
		Output(destDir + "/%(title).200s-%(id)s.%(ext)s").
		PrintJSON().
		NoPlaylist().
		NoCheckCertificates().
		Quiet().
		NoWarnings()

	if onProgress != nil {
		dl.ProgressFunc(250*time.Millisecond, func(update ytdlp.ProgressUpdate) {
			onProgress(toEvent(update))
		})
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	info, err := firstInfo(result)
	if err != nil {
		return nil, err
	}
	if info.Filename == nil || *info.Filename == "" {
		return nil, fmt.Errorf("yt-dlp reported no output file for %s", url)
	}
	path := *info.Filename

	var size int64
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	} else {
		c.log.Warn("downloaded file missing from disk: %s", path)
	}

	vcodec := strOr(info.VCodec, "")
	acodec := strOr(info.ACodec, "")
	isAudio := vcodec == "none" || (acodec != "" && acodec != "none" && vcodec == "")

	return &domain.RetrievalResult{
		FilePath: path,
		IsAudio:  isAudio,
		FileSize: size,
		Title:    strOr(info.Title, trimExt(path)),
	}, nil
}

// toEvent maps a yt-dlp progress sample onto the engine's event shape.
// Speed and ETA are derived from elapsed wall time since yt-dlp does not
// expose them directly here.
func toEvent(update ytdlp.ProgressUpdate) domain.ProgressEvent {
	ev := domain.ProgressEvent{
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
	}

	switch update.Status {
	case ytdlp.ProgressStatusDownloading:
		ev.Status = domain.ProgressDownloading
	case ytdlp.ProgressStatusFinished:
		ev.Status = domain.ProgressFinished
	default:
		ev.Status = string(update.Status)
	}

	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started).Seconds()
		if elapsed > 0 && update.DownloadedBytes > 0 {
			ev.Speed = float64(update.DownloadedBytes) / elapsed
			if update.TotalBytes > update.DownloadedBytes {
				remaining := float64(update.TotalBytes - update.DownloadedBytes)
				ev.ETA = int(remaining / ev.Speed)
			}
		}
	}
	return ev
}

func firstInfo(result *ytdlp.Result) (*ytdlp.ExtractedInfo, error) {
	info, err := result.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("yt-dlp returned no media info")
	}
	return info[0], nil
}

func rawFormats(info *ytdlp.ExtractedInfo) []rawFormat {
	raw := make([]rawFormat, 0, len(info.Formats))
	for _, f := range info.Formats {
		if f == nil {
			continue
		}
		raw = append(raw, rawFormat{
			ID:     strOr(f.FormatID, ""),
			VCodec: strOr(f.VCodec, ""),
			ACodec: strOr(f.ACodec, ""),
			Height: f64Or(f.Height, 0),
			ABR:    f64Or(f.ABR, 0),
		})
	}
	return raw
}

func strOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func f64Or(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
