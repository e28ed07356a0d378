package api

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"

	"github.com/drivemanager/drivectl/internal/models"
)

// ListRootFolders returns the folders that have no parent.
// GET /folders returns every folder the user owns, so nested ones are filtered here.
func (c *Client) ListRootFolders(ctx context.Context) ([]models.Folder, error) {
	var resp models.FoldersResponse
	if err := c.do(ctx, request{method: nethttp.MethodGet, path: "/folders"}, &resp); err != nil {
		return nil, err
	}

	roots := make([]models.Folder, 0, len(resp.Folders))
	for _, f := range resp.Folders {
		if f.IsRoot() {
			roots = append(roots, f)
		}
	}
	return roots, nil
}

// ListSubfolders returns the direct children of folderID.
// An empty folderID lists the root level.
func (c *Client) ListSubfolders(ctx context.Context, folderID string) ([]models.Folder, error) {
	if folderID == "" {
		return c.ListRootFolders(ctx)
	}

	var resp models.FoldersResponse
	path := "/folders/subfolders/" + url.PathEscape(folderID)
	if err := c.do(ctx, request{method: nethttp.MethodGet, path: path}, &resp); err != nil {
		return nil, err
	}
	if resp.Folders == nil {
		return []models.Folder{}, nil
	}
	return resp.Folders, nil
}

// GetFolder returns the metadata of one folder. The root is answered locally
// with the placeholder.
func (c *Client) GetFolder(ctx context.Context, folderID string) (*models.Folder, error) {
	if folderID == "" {
		root := models.RootFolder()
		return &root, nil
	}

	var resp models.FolderResponse
	path := "/folders/" + url.PathEscape(folderID)
	if err := c.do(ctx, request{method: nethttp.MethodGet, path: path}, &resp); err != nil {
		return nil, err
	}
	if resp.Folder == nil {
		return nil, &TransportError{Message: msgInvalidResponse}
	}
	return resp.Folder, nil
}

// CreateFolder creates a folder under parentID; a nil parentID creates it at the root.
func (c *Client) CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error) {
	body := models.CreateFolderRequest{Name: name, ParentID: parentID}

	var resp models.FolderResponse
	err := c.do(ctx, request{method: nethttp.MethodPost, path: "/folders/create-folder", jsonBody: body}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Folder == nil {
		return nil, &TransportError{Message: msgInvalidResponse}
	}
	return resp.Folder, nil
}

// DeleteFolder deletes a folder. What happens to its contents is up to the backend.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	if folderID == "" {
		return fmt.Errorf("cannot delete the root folder")
	}
	path := "/folders/delete-folder/" + url.PathEscape(folderID)
	return c.do(ctx, request{method: nethttp.MethodDelete, path: path}, nil)
}
