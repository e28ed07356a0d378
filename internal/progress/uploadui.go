package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// UploadUI manages multiple concurrent image upload bars using mpb
type UploadUI struct {
	progress   *mpb.Progress
	out        io.Writer // summary lines when not on a terminal
	pathCache  sync.Map  // folderID -> human path
	isTerminal bool
	totalFiles int
	started    int32 // Atomic counter for file index (1, 2, 3, ...)
}

// FileBar represents a single image upload bar
type FileBar struct {
	bar        *mpb.Bar
	ui         *UploadUI
	index      int
	filepath   string
	folderPath string
	size       int64
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
}

// NewUploadUI creates a new upload UI for totalFiles uploads, drawing bars
// on stderr when it is a terminal.
func NewUploadUI(totalFiles int) *UploadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	if isTerminal {
		// Enable ANSI escape sequences on Windows for proper progress bar rendering
		enableANSIOnWindows(os.Stderr)
	}
	return newUploadUI(totalFiles, os.Stdout, isTerminal)
}

func newUploadUI(totalFiles int, out io.Writer, isTerminal bool) *UploadUI {
	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(os.Stderr),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(80),
		)
	} else {
		// Non-TTY: disable progress bars, just use text output
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &UploadUI{
		progress:   p,
		out:        out,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

// SetFolderPath caches a human-readable path for a folder ID
func (u *UploadUI) SetFolderPath(folderID, path string) {
	u.pathCache.Store(folderID, path)
}

// cachedPath returns the cached human-readable path for a folder ID.
func (u *UploadUI) cachedPath(folderID string) string {
	if path, ok := u.pathCache.Load(folderID); ok {
		return path.(string)
	}
	return folderID
}

// AddFileBar creates a new progress bar for an image upload
func (u *UploadUI) AddFileBar(localPath, folderID string, size int64) FileBarHandle {
	folderPath := u.cachedPath(folderID)

	// Atomic increment to get unique file index across all concurrent uploads
	index := int(atomic.AddInt32(&u.started, 1))
	sourcePath := truncatePath(localPath, 2)

	fb := &FileBar{
		ui:         u,
		index:      index,
		filepath:   localPath,
		folderPath: folderPath,
		size:       size,
		startTime:  time.Now(),
		lastUpdate: time.Now(),
	}

	if u.isTerminal {
		label := fmt.Sprintf("[%d/%d] %s (%.1f KiB) → %s",
			index, u.totalFiles, sourcePath, float64(size)/1024, folderPath)
		fb.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Name(label, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "Uploading [%d/%d]: %s → %s\n", index, u.totalFiles, sourcePath, folderPath)
	}

	return fb
}

// UpdateProgress updates the progress bar based on a fraction (0.0 to 1.0).
// Updates are throttled to keep redraws cheap.
func (f *FileBar) UpdateProgress(fraction float64) {
	if f.bar == nil || fraction < 0 {
		return
	}
	if fraction > 1 {
		fraction = 1
	}

	now := time.Now()
	elapsed := now.Sub(f.lastUpdate)
	currentBytes := int64(fraction * float64(f.size))

	const updateInterval = 300 * time.Millisecond
	if elapsed >= updateInterval || fraction == 1 {
		f.bar.EwmaIncrBy(int(currentBytes-f.lastBytes), elapsed)
		f.lastBytes = currentBytes
		f.lastUpdate = now
	}
}

// Complete marks the upload as finished and prints a summary
func (f *FileBar) Complete(imageID string, err error) {
	elapsed := time.Since(f.startTime)

	var msg string
	if err == nil {
		if f.bar != nil {
			f.bar.SetCurrent(f.size)
			f.bar.SetTotal(f.size, true)
		}
		msg = fmt.Sprintf("✓ %s → %s (ImageID: %s, %.1f KiB, %s)\n",
			truncatePath(f.filepath, 2), f.folderPath, imageID,
			float64(f.size)/1024, elapsed.Round(time.Millisecond))
	} else {
		if f.bar != nil {
			f.bar.Abort(false)
		}
		msg = fmt.Sprintf("✗ %s → %s: %v\n", truncatePath(f.filepath, 2), f.folderPath, err)
	}

	// Write through mpb's writer on a terminal so the bars are not torn
	_, _ = f.ui.Writer().Write([]byte(msg))
}

// Wait blocks until all progress bars complete
func (u *UploadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns an io.Writer for output during progress operations.
func (u *UploadUI) Writer() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return u.out
}

// IsTerminal returns true if output is to a terminal (progress bars are active).
func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}

// truncatePath truncates a file path to show only the last N components
// Example: truncatePath("/a/b/c/d/cat.png", 3) → "…/c/d/cat.png"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}

// enableANSIOnWindows enables Virtual Terminal processing on Windows; no-op elsewhere.
func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
