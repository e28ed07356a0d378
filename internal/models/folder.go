package models

import (
	"time"

	"github.com/drivemanager/drivectl/internal/constants"
)

// Folder is a node in the remote folder hierarchy.
// A nil ParentID means the folder lives at the root level.
type Folder struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId"`
	Owner     string    `json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsRoot reports whether the folder has no parent.
func (f Folder) IsRoot() bool {
	return f.ParentID == nil || *f.ParentID == ""
}

// ParentIDOrEmpty returns the parent identifier, or "" for root-level folders.
func (f Folder) ParentIDOrEmpty() string {
	if f.ParentID == nil {
		return ""
	}
	return *f.ParentID
}

// IsPlaceholder reports whether this is the synthetic root returned for navigation to root.
func (f Folder) IsPlaceholder() bool {
	return f.ID == ""
}

// RootFolder returns the synthetic root placeholder. It has no identifier and
// therefore cannot be the target of uploads or deletes.
func RootFolder() Folder {
	return Folder{Name: constants.RootFolderName}
}

// StringPtr returns a pointer to s, or nil when s is empty.
// Used to build nullable parent references.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FolderResponse wraps GET /folders/{id} and POST /folders/create-folder.
type FolderResponse struct {
	Folder  *Folder `json:"folder"`
	Message string  `json:"message,omitempty"`
}

// FoldersResponse wraps GET /folders and GET /folders/subfolders/{id}.
type FoldersResponse struct {
	Folders []Folder `json:"folders"`
}

// CreateFolderRequest is the JSON body for POST /folders/create-folder.
// ParentID is serialized as null for root-level folders.
type CreateFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}
