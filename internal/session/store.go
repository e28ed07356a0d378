package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/drivemanager/drivectl/internal/constants"
	"github.com/drivemanager/drivectl/internal/events"
)

// ErrEmptyToken is returned by Login when the credential is blank after normalization.
var ErrEmptyToken = errors.New("token is empty")

// Store owns the current bearer credential. It is read from the port once at
// construction and written through on every Login/Logout.
// Safe for concurrent use.
type Store struct {
	port     Port
	eventBus *events.EventBus

	mu    sync.RWMutex
	token string
}

// NewStore creates a Store and loads any persisted token from port.
// A port read failure other than ErrNotFound is returned, but the Store is
// still usable (logged out).
func NewStore(port Port, eventBus *events.EventBus) (*Store, error) {
	s := &Store{port: port, eventBus: eventBus}

	token, err := port.Get(constants.SessionTokenKey)
	switch {
	case err == nil:
		s.token = NormalizeToken(token)
	case errors.Is(err, ErrNotFound):
	default:
		return s, fmt.Errorf("failed to read persisted session: %w", err)
	}
	return s, nil
}

// NormalizeToken trims whitespace and strips an optional "Bearer " scheme prefix
// (case-insensitive).
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

// Login normalizes the credential, persists it and makes it current.
func (s *Store) Login(token string) error {
	token = NormalizeToken(token)
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	if err := s.port.Set(constants.SessionTokenKey, token); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.token = token
	s.mu.Unlock()

	s.publish(true)
	return nil
}

// Logout clears the persisted credential and the current value.
// Calling it while logged out is harmless.
func (s *Store) Logout() error {
	s.mu.Lock()
	err := s.port.Delete(constants.SessionTokenKey)
	s.token = ""
	s.mu.Unlock()

	s.publish(false)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to clear persisted session: %w", err)
	}
	return nil
}

// CurrentToken returns the active credential and whether one exists.
func (s *Store) CurrentToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// IsLoggedIn reports whether a credential is present.
func (s *Store) IsLoggedIn() bool {
	_, ok := s.CurrentToken()
	return ok
}

func (s *Store) publish(loggedIn bool) {
	s.eventBus.Publish(&events.SessionChangedEvent{
		BaseEvent: events.NewBaseEvent(events.EventSessionChanged),
		LoggedIn:  loggedIn,
	})
}
