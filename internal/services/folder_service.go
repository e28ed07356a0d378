package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/drivemanager/drivectl/internal/api"
	"github.com/drivemanager/drivectl/internal/constants"
	"github.com/drivemanager/drivectl/internal/events"
	"github.com/drivemanager/drivectl/internal/logging"
	"github.com/drivemanager/drivectl/internal/models"
	"github.com/drivemanager/drivectl/internal/state"
)

// FolderService combines FolderService calls for the CLI.
// It is frontend-agnostic: it writes nothing to the terminal itself.
type FolderService struct {
	remote   state.FolderService
	eventBus *events.EventBus
	logger   *logging.Logger
}

// NewFolderService creates a new FolderService.
func NewFolderService(remote state.FolderService, eventBus *events.EventBus) *FolderService {
	return &FolderService{
		remote:   remote,
		eventBus: eventBus,
		logger:   logging.NewComponentLogger("folder-service"),
	}
}

// Children lists the direct children of folderID ("" for the root level).
func (s *FolderService) Children(ctx context.Context, folderID string) ([]models.Folder, error) {
	if folderID == "" {
		return s.remote.ListRootFolders(ctx)
	}
	return s.remote.ListSubfolders(ctx, folderID)
}

// Tree walks the hierarchy below rootID ("" for the root) level by level,
// listing each level's folders concurrently. Listing failures are recorded
// on the node; an auth rejection or cancellation aborts the walk.
func (s *FolderService) Tree(ctx context.Context, rootID string, opts TreeOptions) (*TreeNode, error) {
	start := models.RootFolder()
	if rootID != "" {
		f, err := s.remote.GetFolder(ctx, rootID)
		if err != nil {
			return nil, err
		}
		start = *f
	}

	root := &TreeNode{Folder: start, ImageCount: -1}
	level := []*TreeNode{root}

	for depth := 0; len(level) > 0; depth++ {
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(constants.TreeWalkConcurrency)

		for _, node := range level {
			node := node
			g.Go(func() error {
				return s.expand(gctx, node, opts.CountImages)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []*TreeNode
		for _, node := range level {
			next = append(next, node.Children...)
		}
		level = next
	}

	return root, nil
}

// expand fills node.Children (and ImageCount). Only fatal errors are returned.
func (s *FolderService) expand(ctx context.Context, node *TreeNode, countImages bool) error {
	children, err := s.Children(ctx, node.Folder.ID)
	if err != nil {
		if fatal(ctx, err) {
			return err
		}
		s.logger.Warn().Err(err).Str("folder_id", node.Folder.ID).Msg("Failed to list subfolders")
		node.Err = err
		return nil
	}

	node.Children = make([]*TreeNode, 0, len(children))
	for _, c := range children {
		node.Children = append(node.Children, &TreeNode{Folder: c, Depth: node.Depth + 1, ImageCount: -1})
	}

	if countImages && node.Folder.ID != "" {
		images, err := s.remote.ListImages(ctx, node.Folder.ID)
		if err != nil {
			if fatal(ctx, err) {
				return err
			}
			node.Err = err
			return nil
		}
		node.ImageCount = len(images)
	}
	return nil
}

// fatal reports whether err should stop a multi-call operation.
func fatal(ctx context.Context, err error) bool {
	return api.IsAuthRejected(err) || ctx.Err() != nil
}

// ResolvePath resolves a slash-separated folder path from the root by name,
// e.g. "Docs/2024/Trips". Names are matched exactly; the first match wins.
// "" and "/" resolve to the root placeholder.
func (s *FolderService) ResolvePath(ctx context.Context, path string) (*models.Folder, error) {
	current := models.RootFolder()
	var walked []string

	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		walked = append(walked, segment)

		children, err := s.Children(ctx, current.ID)
		if err != nil {
			return nil, err
		}

		found := false
		for _, c := range children {
			if c.Name == segment {
				current = c
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: /%s", ErrPathNotFound, strings.Join(walked, "/"))
		}
	}
	return &current, nil
}

// Resolve accepts either a folder id or an absolute path ("/Docs/2024").
func (s *FolderService) Resolve(ctx context.Context, ref string) (*models.Folder, error) {
	if ref == "" || strings.HasPrefix(ref, "/") {
		return s.ResolvePath(ctx, ref)
	}
	return s.remote.GetFolder(ctx, ref)
}

// PathOf builds the display path of folderID by following parent references.
func (s *FolderService) PathOf(ctx context.Context, folderID string) (string, error) {
	var names []string
	seen := make(map[string]bool)

	for id := folderID; id != ""; {
		if seen[id] {
			return "", fmt.Errorf("folder %s has a parent cycle", folderID)
		}
		seen[id] = true

		f, err := s.remote.GetFolder(ctx, id)
		if err != nil {
			return "", err
		}
		names = append([]string{f.Name}, names...)
		id = f.ParentIDOrEmpty()
	}
	return "/" + strings.Join(names, "/"), nil
}
