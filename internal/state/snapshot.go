package state

import (
	"errors"

	"github.com/drivemanager/drivectl/internal/models"
	"github.com/drivemanager/drivectl/internal/util/filter"
)

// Navigator errors returned before any request is made.
var (
	ErrEmptyName  = errors.New("name cannot be empty")
	ErrRootUpload = errors.New("images cannot be uploaded to the root folder; create or open a folder first")
)

// Phase is the navigator's position in Idle -> Loading -> {Loaded, Failed},
// with Unauthenticated as a terminal exit from any of them.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseLoaded
	PhaseFailed
	PhaseUnauthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseFailed:
		return "failed"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is the navigator's view of one folder. Values handed out by the
// Navigator are copies; mutating them has no effect on the navigator.
type Snapshot struct {
	FolderID   string // "" is the root
	Generation uint64
	Phase      Phase

	Folder     *models.Folder
	Subfolders []models.Folder
	Images     []models.Image

	Query    string
	Filtered []models.Image

	FolderErr     error
	SubfoldersErr error
	ImagesErr     error

	FolderLoaded     bool
	SubfoldersLoaded bool
	ImagesLoaded     bool
}

// IsRoot reports whether the snapshot is for the root folder.
func (s Snapshot) IsRoot() bool {
	return s.FolderID == ""
}

// Err returns the error a view should show first: folder metadata, then subfolders.
func (s Snapshot) Err() error {
	if s.FolderErr != nil {
		return s.FolderErr
	}
	return s.SubfoldersErr
}

// FolderName returns the display name, or "" while metadata is unresolved.
func (s Snapshot) FolderName() string {
	if s.Folder == nil {
		return ""
	}
	return s.Folder.Name
}

// FindSubfolder returns the child folder whose name is ref, falling back to
// a match on id.
func (s Snapshot) FindSubfolder(ref string) (models.Folder, bool) {
	for _, f := range s.Subfolders {
		if f.Name == ref {
			return f, true
		}
	}
	for _, f := range s.Subfolders {
		if f.ID == ref {
			return f, true
		}
	}
	return models.Folder{}, false
}

// FindImage returns the listed image whose name is ref, falling back to a
// match on id.
func (s Snapshot) FindImage(ref string) (models.Image, bool) {
	for _, img := range s.Images {
		if img.Name == ref {
			return img, true
		}
	}
	for _, img := range s.Images {
		if img.ID == ref {
			return img, true
		}
	}
	return models.Image{}, false
}

func newSnapshot(folderID string, generation uint64) Snapshot {
	s := Snapshot{
		FolderID:   folderID,
		Generation: generation,
		Subfolders: []models.Folder{},
		Images:     []models.Image{},
		Filtered:   []models.Image{},
	}
	if folderID == "" {
		// Root: the placeholder stands in for metadata and there are no images
		root := models.RootFolder()
		s.Folder = &root
		s.FolderLoaded = true
		s.ImagesLoaded = true
	}
	return s
}

// clone deep-copies the slices and the folder pointer.
func (s Snapshot) clone() Snapshot {
	out := s
	if s.Folder != nil {
		f := *s.Folder
		out.Folder = &f
	}
	out.Subfolders = append([]models.Folder{}, s.Subfolders...)
	out.Images = append([]models.Image{}, s.Images...)
	out.Filtered = append([]models.Image{}, s.Filtered...)
	return out
}

// refilter recomputes Filtered from Images and Query.
func (s *Snapshot) refilter() {
	s.Filtered = filter.ByQuery(s.Images, imageName, s.Query)
}

// settle moves Loading to Loaded or Failed once metadata and subfolders have both resolved.
func (s *Snapshot) settle() {
	if s.Phase != PhaseLoading || !s.FolderLoaded || !s.SubfoldersLoaded {
		return
	}
	if s.FolderErr != nil && s.SubfoldersErr != nil {
		s.Phase = PhaseFailed
		return
	}
	s.Phase = PhaseLoaded
}

func imageName(img models.Image) string { return img.Name }

// appendFolder appends f unless a folder with the same id is already listed.
func appendFolder(list []models.Folder, f models.Folder) []models.Folder {
	for _, existing := range list {
		if existing.ID == f.ID {
			return list
		}
	}
	return append(list, f)
}

func appendImage(list []models.Image, img models.Image) []models.Image {
	for _, existing := range list {
		if existing.ID == img.ID {
			return list
		}
	}
	return append(list, img)
}

func removeFolder(list []models.Folder, id string) []models.Folder {
	out := make([]models.Folder, 0, len(list))
	for _, f := range list {
		if f.ID != id {
			out = append(out, f)
		}
	}
	return out
}

func removeImage(list []models.Image, id string) []models.Image {
	out := make([]models.Image, 0, len(list))
	for _, img := range list {
		if img.ID != id {
			out = append(out, img)
		}
	}
	return out
}
