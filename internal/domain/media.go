package domain

// FormatOption is one downloadable rendition of a media source.
type FormatOption struct {
	FormatID string `json:"format_id"`
	Label    string `json:"label"`
	IsAudio  bool   `json:"is_audio"`
}

// MediaMetadata is the resolved description of a media URL.
type MediaMetadata struct {
	Title      string         `json:"title"`
	Uploader   string         `json:"uploader"`
	Duration   int            `json:"duration"`
	WebpageURL string         `json:"webpage_url"`
	Formats    []FormatOption `json:"formats"`
}

// RetrievalResult describes the file the retrieval engine produced.
type RetrievalResult struct {
	FilePath string
	IsAudio  bool
	FileSize int64
	Title    string
}

// Progress status tags as reported by the retrieval engine.
const (
	ProgressDownloading = "downloading"
	ProgressFinished    = "finished"
)

// ProgressEvent is one raw progress sample from an in-flight retrieval.
// TotalBytes may be zero when the source reports no size estimate; Speed and
// ETA are best-effort and zero when unknown.
type ProgressEvent struct {
	Status          string
	DownloadedBytes int64
	TotalBytes      int64
	Speed           float64 // bytes per second
	ETA             int     // seconds
}

// FileKind selects the delivery mode for a finished file.
type FileKind string

const (
	FileAudio    FileKind = "audio"
	FileVideo    FileKind = "video"
	FileDocument FileKind = "document"
)
