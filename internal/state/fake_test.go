package state

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/drivemanager/drivectl/internal/models"
)

// fakeService is an in-memory FolderService. Calls whose key ("op:id") has a
// gate block until the gate is closed; keys in errs fail with that error.
type fakeService struct {
	mu       sync.Mutex
	folders  map[string]models.Folder
	children map[string][]models.Folder // "" holds the root level
	images   map[string][]models.Image
	gates    map[string]chan struct{}
	errs     map[string]error
	created  []*models.Folder // queued CreateFolder results, used before generating ids
	calls    []string
	nextID   int
}

func newFakeService() *fakeService {
	return &fakeService{
		folders:  make(map[string]models.Folder),
		children: make(map[string][]models.Folder),
		images:   make(map[string][]models.Image),
		gates:    make(map[string]chan struct{}),
		errs:     make(map[string]error),
	}
}

func (f *fakeService) addFolder(id, name, parent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	folder := models.Folder{ID: id, Name: name, ParentID: models.StringPtr(parent)}
	f.folders[id] = folder
	f.children[parent] = append(f.children[parent], folder)
}

func (f *fakeService) addImage(folderID, id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[folderID] = append(f.images[folderID], models.Image{ID: id, Name: name, FolderID: folderID})
}

func (f *fakeService) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeService) setErr(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, key)
		return
	}
	f.errs[key] = err
}

func (f *fakeService) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeService) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// enter records the call, waits on its gate and returns its configured error.
func (f *fakeService) enter(ctx context.Context, op, id string) error {
	key := op + ":" + id
	f.mu.Lock()
	f.calls = append(f.calls, op)
	ch := f.gates[key]
	f.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs[key]
}

func (f *fakeService) ListRootFolders(ctx context.Context) ([]models.Folder, error) {
	if err := f.enter(ctx, OpListSubfolders, ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Folder{}, f.children[""]...), nil
}

func (f *fakeService) ListSubfolders(ctx context.Context, folderID string) ([]models.Folder, error) {
	if err := f.enter(ctx, OpListSubfolders, folderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Folder{}, f.children[folderID]...), nil
}

func (f *fakeService) GetFolder(ctx context.Context, folderID string) (*models.Folder, error) {
	if err := f.enter(ctx, OpGetFolder, folderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	folder, ok := f.folders[folderID]
	if !ok {
		return nil, fmt.Errorf("folder %s not found", folderID)
	}
	return &folder, nil
}

func (f *fakeService) CreateFolder(ctx context.Context, name string, parentID *string) (*models.Folder, error) {
	parent := ""
	if parentID != nil {
		parent = *parentID
	}
	if err := f.enter(ctx, OpCreateFolder, parent); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) > 0 {
		next := f.created[0]
		f.created = f.created[1:]
		return next, nil
	}
	f.nextID++
	folder := models.Folder{ID: fmt.Sprintf("new-%d", f.nextID), Name: name, ParentID: models.StringPtr(parent)}
	f.folders[folder.ID] = folder
	f.children[parent] = append(f.children[parent], folder)
	return &folder, nil
}

func (f *fakeService) DeleteFolder(ctx context.Context, folderID string) error {
	return f.enter(ctx, OpDeleteFolder, folderID)
}

func (f *fakeService) ListImages(ctx context.Context, folderID string) ([]models.Image, error) {
	if err := f.enter(ctx, OpListImages, folderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Image{}, f.images[folderID]...), nil
}

func (f *fakeService) UploadImage(ctx context.Context, folderID, name string, content io.Reader) (*models.Image, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return nil, err
	}
	if err := f.enter(ctx, OpUploadImage, folderID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	img := models.Image{ID: fmt.Sprintf("img-%d", f.nextID), Name: name, FolderID: folderID}
	f.images[folderID] = append(f.images[folderID], img)
	return &img, nil
}

func (f *fakeService) DeleteImage(ctx context.Context, imageID string) error {
	return f.enter(ctx, OpDeleteImage, imageID)
}
