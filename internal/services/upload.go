package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/drivemanager/drivectl/internal/constants"
	"github.com/drivemanager/drivectl/internal/progress"
)

// UploadImages uploads local files into folderID with bounded concurrency.
// names, when non-nil, gives the display name per path; otherwise the file's
// base name is used. Results are returned in input order. Per-file failures
// are recorded in the results; an auth rejection stops the remaining uploads
// and is also returned.
func (s *FolderService) UploadImages(ctx context.Context, folderID string, paths []string, names []string, ui progress.ProgressUI) ([]UploadResult, error) {
	if folderID == "" {
		return nil, fmt.Errorf("cannot upload to the root folder")
	}

	results := make([]UploadResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.UploadConcurrency)

	for i, path := range paths {
		name := filepath.Base(path)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		results[i] = UploadResult{Path: path, Name: name}

		i := i
		g.Go(func() error {
			res := &results[i]
			res.Err = s.uploadOne(gctx, folderID, res, ui)
			if res.Err != nil && fatal(gctx, res.Err) {
				return res.Err
			}
			return nil
		})
	}

	err := g.Wait()
	ui.Wait()
	return results, err
}

func (s *FolderService) uploadOne(ctx context.Context, folderID string, res *UploadResult, ui progress.ProgressUI) error {
	info, err := os.Stat(res.Path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", res.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", res.Path)
	}
	res.Size = info.Size()
	if res.Size > constants.MaxImageUploadSize {
		return fmt.Errorf("%w: %s is %d bytes", ErrImageTooLarge, res.Path, res.Size)
	}

	f, err := os.Open(res.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", res.Path, err)
	}
	defer f.Close()

	bar := ui.AddFileBar(res.Path, folderID, res.Size)
	reporter := progress.MultiReporter(
		progress.BarReporter(bar, res.Size),
		progress.NewEventProgress(s.eventBus, res.Name, folderID),
	)
	reporter.Start(res.Size, res.Name)

	img, err := s.remote.UploadImage(ctx, folderID, res.Name, progress.NewProgressReader(f, res.Size, reporter))
	if err != nil {
		reporter.Error(err)
		bar.Complete("", err)
		return err
	}

	res.Image = img
	reporter.Finish()
	bar.Complete(img.ID, nil)
	s.logger.Debug().Str("image_id", img.ID).Str("name", res.Name).Int64("bytes", res.Size).Msg("Image uploaded")
	return nil
}
