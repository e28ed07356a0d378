// Package services provides frontend-agnostic operations that need more than
// one API call: tree walks, path resolution and batch uploads.
package services

import (
	"errors"

	"github.com/drivemanager/drivectl/internal/models"
)

// ErrPathNotFound is returned by ResolvePath when a segment has no matching folder.
var ErrPathNotFound = errors.New("folder path not found")

// ErrImageTooLarge is returned for local files above constants.MaxImageUploadSize.
var ErrImageTooLarge = errors.New("image exceeds the maximum upload size")

// TreeNode is one folder in a Tree walk.
type TreeNode struct {
	Folder   models.Folder
	Depth    int
	Children []*TreeNode

	// ImageCount is the number of images directly in the folder, or -1 when
	// images were not counted (root, or counting disabled).
	ImageCount int

	// Err is set when this node's children or images could not be listed.
	Err error
}

// Walk calls fn for n and every descendant, depth first, in server order.
func (n *TreeNode) Walk(fn func(*TreeNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// TreeOptions controls a Tree walk.
type TreeOptions struct {
	// MaxDepth limits how many levels below the start folder are listed.
	// Zero or negative means unlimited.
	MaxDepth int

	// CountImages lists each folder's images to fill ImageCount.
	CountImages bool
}

// UploadResult is the outcome for one local file in UploadImages.
type UploadResult struct {
	Path  string
	Name  string
	Size  int64
	Image *models.Image
	Err   error
}
