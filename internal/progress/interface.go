package progress

import "io"

// ProgressUI defines the interface for progress tracking during multi-file uploads.
type ProgressUI interface {
	// AddFileBar creates a new progress bar for one upload
	AddFileBar(localPath, folderID string, size int64) FileBarHandle

	// SetFolderPath caches a human-readable path for a folder ID
	SetFolderPath(folderID, path string)

	// Wait blocks until all progress bars complete
	Wait()

	// Writer returns an io.Writer that safely outputs above the progress bars.
	Writer() io.Writer

	// IsTerminal returns true if output is to a terminal (progress bars are active)
	IsTerminal() bool
}

// FileBarHandle represents a handle to a single file's progress bar
type FileBarHandle interface {
	// UpdateProgress updates the progress bar based on a fraction (0.0 to 1.0)
	UpdateProgress(fraction float64)

	// Complete marks the upload as finished and prints a summary
	Complete(imageID string, err error)
}
