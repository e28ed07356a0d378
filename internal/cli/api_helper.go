package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/drivemanager/drivectl/internal/api"
	"github.com/drivemanager/drivectl/internal/config"
	"github.com/drivemanager/drivectl/internal/constants"
	"github.com/drivemanager/drivectl/internal/events"
	drivehttp "github.com/drivemanager/drivectl/internal/http"
	"github.com/drivemanager/drivectl/internal/logging"
	"github.com/drivemanager/drivectl/internal/session"
)

// clientEnv bundles what an API-backed command needs. Close releases the
// session backend and the event bus.
type clientEnv struct {
	cfg      *config.Config
	store    *session.Store
	client   *api.Client
	eventBus *events.EventBus
	closer   io.Closer
}

func (e *clientEnv) Close() error {
	e.eventBus.Close()
	if dropped := e.eventBus.GetDroppedEventCount(); dropped > 0 {
		GetLogger().Debug().Int64("dropped", dropped).Msg("Events dropped by slow subscribers")
	}
	return e.closer.Close()
}

// traceEvents logs bus traffic at debug level until the bus is closed.
// Intermediate upload progress is skipped; only completions are logged.
func traceEvents(eventBus *events.EventBus, logger *logging.Logger) {
	ch := eventBus.SubscribeAll()
	go func() {
		for ev := range ch {
			if pe, ok := ev.(*events.ProgressEvent); ok && !pe.Done {
				continue
			}
			entry := logger.Debug().Str("event", string(ev.Type()))
			switch e := ev.(type) {
			case *events.ProgressEvent:
				entry = entry.Str("name", e.Name).Float64("fraction", e.Fraction())
			case *events.ErrorEvent:
				entry = entry.Str("operation", e.Operation).Err(e.Error)
			case *events.SessionChangedEvent:
				entry = entry.Bool("logged_in", e.LoggedIn)
			case *events.LoginRequiredEvent:
				entry = entry.Str("operation", e.Operation)
			}
			entry.Msg("Event")
		}
	}()
}

// loadConfig resolves the effective configuration from the global flags.
// A proxy password is prompted for when the proxy needs one.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, apiBaseURL, sessionBackend)
	if err != nil {
		return nil, err
	}

	if drivehttp.NeedsProxyPassword(cfg) {
		password, err := newPrompter(cmd).readPassword(fmt.Sprintf("Proxy password for %s: ", cfg.ProxyUser))
		if err != nil {
			return nil, err
		}
		cfg.ProxyPassword = password
	}
	return cfg, nil
}

// openSession loads config and the session store without building a client.
func openSession(cmd *cobra.Command) (*config.Config, *session.Store, io.Closer, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, closer, err := session.Open(cfg, nil)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, nil, nil, fmt.Errorf("failed to open session: %w", err)
	}
	return cfg, store, closer, nil
}

// getAPIClient loads configuration, the session and an API client.
// This is the standard way to get an API client in CLI commands.
// When the server rejects the session the client has already cleared it;
// the hook only tells the user how to sign in again.
func getAPIClient(cmd *cobra.Command) (*clientEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	eventBus := events.NewEventBus(constants.EventBusDefaultBuffer)
	traceEvents(eventBus, GetLogger())

	store, closer, err := session.Open(cfg, eventBus)
	if err != nil {
		eventBus.Close()
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	errOut := cmd.ErrOrStderr()
	client, err := api.NewClient(cfg, store,
		api.WithAuthRejectedHook(func() {
			fmt.Fprintln(errOut, "Session rejected by the server. Run 'drivectl login' to sign in again.")
		}),
	)
	if err != nil {
		eventBus.Close()
		closer.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &clientEnv{
		cfg:      cfg,
		store:    store,
		client:   client,
		eventBus: eventBus,
		closer:   closer,
	}, nil
}

// requireLogin returns a friendly error when no session exists. Requests would
// otherwise go out anonymously and come back as 401.
func requireLogin(env *clientEnv) error {
	if !env.store.IsLoggedIn() {
		return fmt.Errorf("not logged in: run 'drivectl login' first")
	}
	return nil
}

// apiFailure wraps err with wording that matches how the backend failed.
func apiFailure(action string, err error) error {
	switch {
	case api.IsNotFound(err):
		return fmt.Errorf("%s: %w (it may have been deleted; check the ID or path)", action, err)
	case api.IsServerError(err):
		return fmt.Errorf("%s: server error, try again later: %w", action, err)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
