// Package state provides the observable folder navigator.
// It emits events when its snapshot changes so any front end (the CLI
// browser, tests) can subscribe and re-render.
package state

import (
	"context"
	"io"

	"github.com/drivemanager/drivectl/internal/events"
	"github.com/drivemanager/drivectl/internal/models"
)

// State event types
const (
	EventSnapshotChanged   events.EventType = "snapshot_changed"
	EventPhaseChanged      events.EventType = "phase_changed"
	EventOperationFailed   events.EventType = "operation_failed"
	EventNavigationStarted events.EventType = "navigation_started"
)

// FolderService is the remote side the Navigator drives. *api.Client implements it.
type FolderService interface {
	ListRootFolders(ctx context.Context) ([]models.Folder, error)
	ListSubfolders(ctx context.Context, folderID string) ([]models.Folder, error)
	GetFolder(ctx context.Context, folderID string) (*models.Folder, error)
	CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error)
	DeleteFolder(ctx context.Context, folderID string) error
	ListImages(ctx context.Context, folderID string) ([]models.Image, error)
	UploadImage(ctx context.Context, folderID, name string, content io.Reader) (*models.Image, error)
	DeleteImage(ctx context.Context, imageID string) error
}

// SessionClearer is the part of the session store the Navigator needs.
type SessionClearer interface {
	Logout() error
}

// SnapshotChangedEvent carries a copy of the snapshot after every change.
type SnapshotChangedEvent struct {
	events.BaseEvent
	Snapshot Snapshot
}

// PhaseChangedEvent is published when the navigator moves between phases.
type PhaseChangedEvent struct {
	events.BaseEvent
	FolderID string
	From     Phase
	To       Phase
}

// OperationFailedEvent is published for application and transport failures of
// fetches and mutations. Auth rejections go through EventLoginRequired instead.
type OperationFailedEvent struct {
	events.BaseEvent
	Operation string
	FolderID  string
	Error     error
}

// NavigationStartedEvent is published when Navigate begins a new generation.
type NavigationStartedEvent struct {
	events.BaseEvent
	FolderID   string
	Generation uint64
}

// NewSnapshotChangedEvent creates a new SnapshotChangedEvent.
func NewSnapshotChangedEvent(snap Snapshot) *SnapshotChangedEvent {
	return &SnapshotChangedEvent{
		BaseEvent: events.NewBaseEvent(EventSnapshotChanged),
		Snapshot:  snap,
	}
}

// NewPhaseChangedEvent creates a new PhaseChangedEvent.
func NewPhaseChangedEvent(folderID string, from, to Phase) *PhaseChangedEvent {
	return &PhaseChangedEvent{
		BaseEvent: events.NewBaseEvent(EventPhaseChanged),
		FolderID:  folderID,
		From:      from,
		To:        to,
	}
}

// NewOperationFailedEvent creates a new OperationFailedEvent.
func NewOperationFailedEvent(operation, folderID string, err error) *OperationFailedEvent {
	return &OperationFailedEvent{
		BaseEvent: events.NewBaseEvent(EventOperationFailed),
		Operation: operation,
		FolderID:  folderID,
		Error:     err,
	}
}

// NewNavigationStartedEvent creates a new NavigationStartedEvent.
func NewNavigationStartedEvent(folderID string, generation uint64) *NavigationStartedEvent {
	return &NavigationStartedEvent{
		BaseEvent:  events.NewBaseEvent(EventNavigationStarted),
		FolderID:   folderID,
		Generation: generation,
	}
}
