package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/mhub-bridge/internal/entity"
	"github.com/nerrad567/mhub-bridge/internal/entry"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/config"
	"github.com/nerrad567/mhub-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// DeviceSource is the coordinator surface the API reads. *mhub.Coordinator
// implements it.
type DeviceSource interface {
	Host() string
	Snapshot() *mhub.Snapshot
	Capabilities() mhub.Capabilities
	Status() mhub.Status
	Refresh(ctx context.Context) error
	Subscribe(l mhub.Listener) (unsubscribe func())
}

// EntityRegistry is the entity surface the API reads and commands.
// *entity.Registry implements it.
type EntityRegistry interface {
	States() []entity.State
	Get(uniqueID string) (entity.Entity, bool)
	Handle(ctx context.Context, uniqueID string, cmd entity.Command) error
}

// EntryStore lists stored config entries. *entry.SQLiteRepository
// implements it.
type EntryStore interface {
	List(ctx context.Context) ([]entry.Entry, error)
}

// HostValidator checks a host the way the setup flow does. *entry.Flow
// implements it.
type HostValidator interface {
	Validate(ctx context.Context, host string) (entry.DeviceInfo, error)
}

// Deps holds the dependencies of the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Entry     *entry.Entry
	Device    DeviceSource
	Entities  EntityRegistry
	Entries   EntryStore
	Validator HostValidator

	// Hub is used instead of a server-owned hub when set, so the entity
	// registry can publish to it before the server starts.
	Hub *Hub

	Version string
}

// Server is the HTTP API server.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	entry     *entry.Entry
	device    DeviceSource
	entities  EntityRegistry
	entries   EntryStore
	validator HostValidator
	version   string

	server      *http.Server
	listener    net.Listener
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
	unsubscribe func()
}

// New creates a server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Device == nil {
		return nil, fmt.Errorf("device source is required")
	}
	if deps.Entities == nil {
		return nil, fmt.Errorf("entity registry is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		entry:     deps.Entry,
		device:    deps.Device,
		entities:  deps.Entities,
		entries:   deps.Entries,
		validator: deps.Validator,
		version:   deps.Version,
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}
	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start subscribes to device updates for the event stream and begins
// serving in the background.
func (s *Server) Start(ctx context.Context) error {
	srvCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	s.unsubscribe = s.device.Subscribe(s.broadcastDeviceUpdate)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		cancel()
		s.unsubscribe()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close stops the event subscription and shuts the server down, waiting up
// to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server is serving.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// broadcastDeviceUpdate turns coordinator updates into device events.
func (s *Server) broadcastDeviceUpdate(u mhub.Update) {
	if u.Err != nil {
		s.hub.Broadcast(ChannelDeviceUnavailable, map[string]any{
			"host":   s.device.Host(),
			"error":  u.Err.Error(),
			"status": s.device.Status(),
		})
		return
	}
	s.hub.Broadcast(ChannelDeviceUpdated, map[string]any{
		"host":         s.device.Host(),
		"capabilities": u.Capabilities,
		"status":       s.device.Status(),
	})
}
