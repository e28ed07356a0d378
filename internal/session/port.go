// Package session holds the bearer credential for the current user and
// persists it through a pluggable storage port.
package session

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/drivemanager/drivectl/internal/config"
)

// ErrNotFound is returned by a Port when the key has never been set or was deleted.
var ErrNotFound = errors.New("session key not found")

// Port is the durable key-value slot the Store persists into.
type Port interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryPort keeps values in process memory. Used by tests and --session-backend memory.
type MemoryPort struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryPort creates an empty in-memory port.
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{values: make(map[string]string)}
}

func (p *MemoryPort) Get(key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (p *MemoryPort) Set(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[key] = value
	return nil
}

func (p *MemoryPort) Delete(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, key)
	return nil
}

// FilePort stores each key as a 0600 file inside a directory.
// The "token" key therefore lands at ~/.config/drivectl/token.
type FilePort struct {
	dir string
}

// NewFilePort creates a port rooted at dir.
func NewFilePort(dir string) *FilePort {
	return &FilePort{dir: dir}
}

func (p *FilePort) path(key string) string {
	return filepath.Join(p.dir, key)
}

func (p *FilePort) Get(key string) (string, error) {
	v, err := config.ReadTokenFile(p.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (p *FilePort) Set(key, value string) error {
	return config.WriteTokenFile(p.path(key), value)
}

func (p *FilePort) Delete(key string) error {
	return config.RemoveTokenFile(p.path(key))
}
