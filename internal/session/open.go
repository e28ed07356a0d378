package session

import (
	"fmt"
	"io"

	"github.com/drivemanager/drivectl/internal/config"
	"github.com/drivemanager/drivectl/internal/events"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the Store for cfg.SessionBackend. The returned closer must be
// called when the process is done with the session (it releases the bolt lock).
func Open(cfg *config.Config, eventBus *events.EventBus) (*Store, io.Closer, error) {
	var (
		port   Port
		closer io.Closer = nopCloser{}
	)

	switch cfg.SessionBackend {
	case config.SessionBackendFile, "":
		port = NewFilePort(config.ConfigDir())
	case config.SessionBackendBolt:
		bp, err := OpenBoltPort(config.DefaultSessionDBPath())
		if err != nil {
			return nil, nil, err
		}
		port, closer = bp, bp
	case config.SessionBackendMemory:
		port = NewMemoryPort()
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	store, err := NewStore(port, eventBus)
	if err != nil {
		return store, closer, err
	}
	return store, closer, nil
}
