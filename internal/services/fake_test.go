package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/drivemanager/drivectl/internal/models"
)

// memRemote is a map-backed FolderService.
type memRemote struct {
	mu       sync.Mutex
	folders  map[string]models.Folder
	children map[string][]string
	images   map[string][]models.Image
	errs     map[string]error // keyed by "op:id"
	uploaded map[string][]byte
	nextID   int
}

func newMemRemote() *memRemote {
	return &memRemote{
		folders:  make(map[string]models.Folder),
		children: make(map[string][]string),
		images:   make(map[string][]models.Image),
		errs:     make(map[string]error),
		uploaded: make(map[string][]byte),
	}
}

func (m *memRemote) add(id, name, parent string) {
	m.folders[id] = models.Folder{ID: id, Name: name, ParentID: models.StringPtr(parent)}
	m.children[parent] = append(m.children[parent], id)
}

func (m *memRemote) err(op, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[op+":"+id]
}

func (m *memRemote) list(parent string) []models.Folder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Folder{}
	for _, id := range m.children[parent] {
		out = append(out, m.folders[id])
	}
	return out
}

func (m *memRemote) ListRootFolders(ctx context.Context) ([]models.Folder, error) {
	if err := m.err("list", ""); err != nil {
		return nil, err
	}
	return m.list(""), nil
}

func (m *memRemote) ListSubfolders(ctx context.Context, id string) ([]models.Folder, error) {
	if err := m.err("list", id); err != nil {
		return nil, err
	}
	return m.list(id), nil
}

func (m *memRemote) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	if id == "" {
		root := models.RootFolder()
		return &root, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s not found", id)
	}
	return &f, nil
}

func (m *memRemote) CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *memRemote) DeleteFolder(ctx context.Context, id string) error {
	return fmt.Errorf("not implemented")
}

func (m *memRemote) ListImages(ctx context.Context, id string) ([]models.Image, error) {
	if err := m.err("images", id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Image{}, m.images[id]...), nil
}

func (m *memRemote) UploadImage(ctx context.Context, folderID, name string, content io.Reader) (*models.Image, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	if err := m.err("upload", name); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	img := models.Image{ID: fmt.Sprintf("img-%d", m.nextID), Name: name, FolderID: folderID}
	m.images[folderID] = append(m.images[folderID], img)
	m.uploaded[name] = data
	return &img, nil
}

func (m *memRemote) DeleteImage(ctx context.Context, id string) error {
	return fmt.Errorf("not implemented")
}
