package state

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/drivemanager/drivectl/internal/api"
	"github.com/drivemanager/drivectl/internal/events"
	"github.com/drivemanager/drivectl/internal/models"
)

// Operation names used in events and logs.
const (
	OpGetFolder      = "getFolder"
	OpListSubfolders = "listSubfolders"
	OpListImages     = "listImages"
	OpCreateFolder   = "createFolder"
	OpDeleteFolder   = "deleteFolder"
	OpUploadImage    = "uploadImage"
	OpDeleteImage    = "deleteImage"
)

// Option configures a Navigator.
type Option func(*Navigator)

// WithLoginRedirect sets the callback run when the server rejects the session.
// It runs at most once per navigation generation.
func WithLoginRedirect(fn func()) Option {
	return func(n *Navigator) {
		n.loginRedirect = fn
	}
}

// WithSession lets the navigator clear the session itself on auth rejection.
// The api client already does this; fakes in tests rely on the navigator.
func WithSession(s SessionClearer) Option {
	return func(n *Navigator) {
		n.session = s
	}
}

// Navigator resolves one folder at a time into a Snapshot.
//
// Each Navigate call starts a new generation. Fetch results are applied only
// while their generation and folder id still match the current ones, so a
// slow response for a folder the user already left can never overwrite the
// newer snapshot. Thread-safe for concurrent access.
type Navigator struct {
	svc           FolderService
	eventBus      *events.EventBus
	session       SessionClearer
	loginRedirect func()
	logger        zerolog.Logger

	mu         sync.Mutex
	generation uint64
	snap       Snapshot
	done       chan struct{}
	redirected bool // login redirect already fired for this generation
}

// NewNavigator creates an idle navigator positioned at the root.
func NewNavigator(svc FolderService, eventBus *events.EventBus, opts ...Option) *Navigator {
	done := make(chan struct{})
	close(done)

	n := &Navigator{
		svc:      svc,
		eventBus: eventBus,
		logger:   log.With().Str("component", "navigator").Logger(),
		snap:     newSnapshot("", 0),
		done:     done,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Snapshot returns a copy of the current snapshot.
func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snap.clone()
}

// Phase returns the current phase.
func (n *Navigator) Phase() Phase {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snap.Phase
}

// CurrentFolderID returns the id being displayed ("" for root).
func (n *Navigator) CurrentFolderID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.snap.FolderID
}

// Navigate discards the current snapshot and starts loading folderID ("" for
// root). Folder metadata, subfolders and images are fetched concurrently; the
// call returns immediately with the new generation. Use Wait to block until
// the fetches finish.
func (n *Navigator) Navigate(ctx context.Context, folderID string) uint64 {
	n.mu.Lock()
	from := n.snap.Phase
	n.generation++
	gen := n.generation
	n.snap = newSnapshot(folderID, gen)
	n.snap.Phase = PhaseLoading
	n.redirected = false
	done := make(chan struct{})
	n.done = done
	snap := n.snap.clone()
	n.mu.Unlock()

	n.logger.Debug().Str("folder_id", folderID).Uint64("generation", gen).Msg("Navigating")
	n.eventBus.Publish(NewNavigationStartedEvent(folderID, gen))
	n.publishPhase(folderID, from, PhaseLoading)
	n.eventBus.Publish(NewSnapshotChangedEvent(snap))

	var wg sync.WaitGroup

	if folderID == "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			folders, err := n.svc.ListRootFolders(ctx)
			n.applyFetch(gen, folderID, OpListSubfolders, err, func(s *Snapshot) {
				s.SubfoldersErr = err
				if err == nil {
					s.Subfolders = folders
				}
				s.SubfoldersLoaded = true
			})
		}()
	} else {
		wg.Add(3)
		go func() {
			defer wg.Done()
			folder, err := n.svc.GetFolder(ctx, folderID)
			n.applyFetch(gen, folderID, OpGetFolder, err, func(s *Snapshot) {
				s.FolderErr = err
				if err == nil {
					s.Folder = folder
				}
				s.FolderLoaded = true
			})
		}()
		go func() {
			defer wg.Done()
			folders, err := n.svc.ListSubfolders(ctx, folderID)
			n.applyFetch(gen, folderID, OpListSubfolders, err, func(s *Snapshot) {
				s.SubfoldersErr = err
				if err == nil {
					s.Subfolders = folders
				}
				s.SubfoldersLoaded = true
			})
		}()
		go func() {
			defer wg.Done()
			images, err := n.svc.ListImages(ctx, folderID)
			n.applyFetch(gen, folderID, OpListImages, err, func(s *Snapshot) {
				s.ImagesErr = err
				if err == nil {
					s.Images = images
					s.refilter()
				}
				s.ImagesLoaded = true
			})
		}()
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	return gen
}

// Refresh re-runs navigation for the current folder.
func (n *Navigator) Refresh(ctx context.Context) uint64 {
	return n.Navigate(ctx, n.CurrentFolderID())
}

// Wait blocks until every fetch of the current generation has completed
// (applied or discarded) or ctx is done.
func (n *Navigator) Wait(ctx context.Context) error {
	n.mu.Lock()
	done := n.done
	n.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// applyFetch writes one fetch result into the snapshot if it is still relevant.
func (n *Navigator) applyFetch(gen uint64, folderID, op string, err error, update func(*Snapshot)) {
	n.mu.Lock()
	if n.generation != gen || n.snap.FolderID != folderID {
		current := n.snap.FolderID
		n.mu.Unlock()
		n.logger.Debug().Str("op", op).Str("folder_id", folderID).Str("current", current).
			Msg("Discarding stale result")
		return
	}
	if n.snap.Phase == PhaseUnauthenticated {
		n.mu.Unlock()
		return
	}
	if api.IsAuthRejected(err) {
		r := n.markUnauthenticated(op)
		n.mu.Unlock()
		n.fireRejection(r)
		return
	}

	from := n.snap.Phase
	update(&n.snap)
	n.snap.settle()
	to := n.snap.Phase
	snap := n.snap.clone()
	n.mu.Unlock()

	if err != nil {
		n.logger.Warn().Err(err).Str("op", op).Str("folder_id", folderID).Msg("Fetch failed")
		n.eventBus.Publish(NewOperationFailedEvent(op, folderID, err))
	}
	if from != to {
		n.publishPhase(folderID, from, to)
	}
	n.eventBus.Publish(NewSnapshotChangedEvent(snap))
}

// rejection carries what markUnauthenticated decided, for the side effects
// that run after the lock is released.
type rejection struct {
	op       string
	folderID string
	from     Phase
	first    bool
	snap     Snapshot
}

// rejectSession moves the current generation to Unauthenticated, clears the
// session and fires the login redirect once.
func (n *Navigator) rejectSession(op string) {
	n.mu.Lock()
	r := n.markUnauthenticated(op)
	n.mu.Unlock()
	n.fireRejection(r)
}

// markUnauthenticated must be called with n.mu held.
func (n *Navigator) markUnauthenticated(op string) rejection {
	r := rejection{
		op:       op,
		folderID: n.snap.FolderID,
		from:     n.snap.Phase,
		first:    !n.redirected,
	}
	n.snap.Phase = PhaseUnauthenticated
	n.redirected = true
	r.snap = n.snap.clone()
	return r
}

func (n *Navigator) fireRejection(r rejection) {
	if !r.first {
		return
	}

	n.logger.Warn().Str("op", r.op).Msg("Session rejected by server, login required")
	if n.session != nil {
		if err := n.session.Logout(); err != nil {
			n.logger.Error().Err(err).Msg("Failed to clear session")
		}
	}
	if r.from != PhaseUnauthenticated {
		n.publishPhase(r.folderID, r.from, PhaseUnauthenticated)
	}
	n.eventBus.Publish(NewSnapshotChangedEvent(r.snap))
	n.eventBus.Publish(&events.LoginRequiredEvent{
		BaseEvent: events.NewBaseEvent(events.EventLoginRequired),
		Operation: r.op,
	})
	if n.loginRedirect != nil {
		n.loginRedirect()
	}
}

// position returns the generation and folder a mutation starts in.
func (n *Navigator) position() (uint64, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.generation, n.snap.FolderID
}

// applyMutation runs update if the navigator is still on the generation the
// mutation started in. Returns whether the update was applied.
func (n *Navigator) applyMutation(gen uint64, folderID, op string, update func(*Snapshot)) bool {
	n.mu.Lock()
	if n.generation != gen || n.snap.FolderID != folderID || n.snap.Phase == PhaseUnauthenticated {
		n.mu.Unlock()
		n.logger.Debug().Str("op", op).Str("folder_id", folderID).Msg("Navigator moved on, skipping local update")
		return false
	}
	update(&n.snap)
	n.snap.refilter()
	snap := n.snap.clone()
	n.mu.Unlock()

	n.eventBus.Publish(NewSnapshotChangedEvent(snap))
	return true
}

// failMutation routes a mutation error: auth rejections take the login path,
// everything else is published and returned.
func (n *Navigator) failMutation(op, folderID string, err error) error {
	if api.IsAuthRejected(err) {
		n.rejectSession(op)
		return err
	}
	n.logger.Warn().Err(err).Str("op", op).Str("folder_id", folderID).Msg("Operation failed")
	n.eventBus.Publish(NewOperationFailedEvent(op, folderID, err))
	return err
}

// CreateSubfolder creates name inside the current folder and appends it to
// the child list once the server confirms. At the root only folders the
// server reports as root-level are appended.
func (n *Navigator) CreateSubfolder(ctx context.Context, name string) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	gen, folderID := n.position()
	folder, err := n.svc.CreateFolder(ctx, name, models.StringPtr(folderID))
	if err != nil {
		return nil, n.failMutation(OpCreateFolder, folderID, err)
	}

	n.applyMutation(gen, folderID, OpCreateFolder, func(s *Snapshot) {
		if s.IsRoot() && !folder.IsRoot() {
			return
		}
		s.Subfolders = appendFolder(s.Subfolders, *folder)
	})
	return folder, nil
}

// DeleteFolder deletes a child folder and removes it from the list.
func (n *Navigator) DeleteFolder(ctx context.Context, id string) error {
	gen, folderID := n.position()
	if err := n.svc.DeleteFolder(ctx, id); err != nil {
		return n.failMutation(OpDeleteFolder, folderID, err)
	}

	n.applyMutation(gen, folderID, OpDeleteFolder, func(s *Snapshot) {
		s.Subfolders = removeFolder(s.Subfolders, id)
	})
	return nil
}

// UploadImage uploads content into the current folder and appends the
// returned image. The root cannot hold images.
func (n *Navigator) UploadImage(ctx context.Context, name string, content io.Reader) (*models.Image, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	gen, folderID := n.position()
	if folderID == "" {
		return nil, ErrRootUpload
	}

	img, err := n.svc.UploadImage(ctx, folderID, name, content)
	if err != nil {
		return nil, n.failMutation(OpUploadImage, folderID, err)
	}

	n.applyMutation(gen, folderID, OpUploadImage, func(s *Snapshot) {
		s.Images = appendImage(s.Images, *img)
	})
	return img, nil
}

// DeleteImage deletes an image and removes it from the list. Removing an id
// that is not listed leaves the list as is.
func (n *Navigator) DeleteImage(ctx context.Context, id string) error {
	gen, folderID := n.position()
	if err := n.svc.DeleteImage(ctx, id); err != nil {
		return n.failMutation(OpDeleteImage, folderID, err)
	}

	n.applyMutation(gen, folderID, OpDeleteImage, func(s *Snapshot) {
		s.Images = removeImage(s.Images, id)
	})
	return nil
}

// SetSearchQuery stores q and recomputes the filtered image list. It makes no
// request and returns the new filtered list.
func (n *Navigator) SetSearchQuery(q string) []models.Image {
	n.mu.Lock()
	n.snap.Query = q
	n.snap.refilter()
	snap := n.snap.clone()
	n.mu.Unlock()

	n.eventBus.Publish(NewSnapshotChangedEvent(snap))
	return snap.Filtered
}

func (n *Navigator) publishPhase(folderID string, from, to Phase) {
	n.eventBus.Publish(NewPhaseChangedEvent(folderID, from, to))
}
