package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/mramrohaleem/telegram-bot/internal/retrieval"
)

// EditResult is the output of a tag-editing transform.
type EditResult struct {
	FilePath string
	Title    string
}

// CopyToTemp duplicates an audio file into the scratch directory so edits
// never touch the delivered original.
func CopyToTemp(sourcePath, tempDir string) (string, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}

	tempPath := filepath.Join(tempDir, filepath.Base(sourcePath))
	if err := copyFile(sourcePath, tempPath); err != nil {
		return "", err
	}
	return tempPath, nil
}

// Rename re-containers the audio with a rewritten title tag and a sanitized
// file name. The stream is copied, not re-encoded.
func Rename(ctx context.Context, source, tempDir, newTitle string) (*EditResult, error) {
	sanitized := retrieval.SanitizeFilename(newTitle)
	target := filepath.Join(tempDir, sanitized+filepath.Ext(source))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", source,
		"-c", "copy",
		"-metadata", "title="+sanitized,
		"-y", target,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg rename failed: %w: %s", err, out)
	}

	return &EditResult{FilePath: target, Title: sanitized}, nil
}

// EmbedCover attaches cover art to the audio file, optionally retitling it.
// An empty newTitle keeps the source's base name.
func EmbedCover(ctx context.Context, source, tempDir, imagePath, newTitle string) (*EditResult, error) {
	title := newTitle
	if title == "" {
		base := filepath.Base(source)
		title = base[:len(base)-len(filepath.Ext(base))]
	} else {
		title = retrieval.SanitizeFilename(title)
	}
	target := filepath.Join(tempDir, title+filepath.Ext(source))

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", source,
		"-i", imagePath,
		"-map", "0", "-map", "1",
		"-c", "copy",
		"-id3v2_version", "3",
		"-metadata:s:v", "title=Cover",
		"-metadata:s:v:0", "comment=Cover",
		"-y", target,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg cover embed failed: %w: %s", err, out)
	}

	return &EditResult{FilePath: target, Title: title}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		os.Remove(dst)
		return err
	}
	return out.Sync()
}
