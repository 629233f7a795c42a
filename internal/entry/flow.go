package entry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/mhub-bridge/internal/infrastructure/config"
	"github.com/nerrad567/mhub-bridge/internal/mhub"
)

// DefaultSetupTimeout bounds the validation request.
const DefaultSetupTimeout = 8 * time.Second

// Fetcher issues a raw GET against a hub. *mhub.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, path string) (status int, body []byte, err error)
}

// Logger is the logging surface used by Flow.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// FlowOptions configures a Flow.
type FlowOptions struct {
	Repository Repository

	// NewFetcher builds the client used to validate host. Defaults to an
	// mhub.Client with default options.
	NewFetcher func(host string) Fetcher

	SetupTimeout time.Duration
	Logger       Logger
}

// Flow validates hosts and creates entries for them.
type Flow struct {
	repo       Repository
	newFetcher func(host string) Fetcher
	timeout    time.Duration
	logger     Logger
}

// NewFlow returns a Flow backed by opts.Repository.
func NewFlow(opts FlowOptions) (*Flow, error) {
	if opts.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	f := &Flow{
		repo:       opts.Repository,
		newFetcher: opts.NewFetcher,
		timeout:    opts.SetupTimeout,
		logger:     opts.Logger,
	}
	if f.newFetcher == nil {
		f.newFetcher = func(host string) Fetcher {
			return mhub.NewClient(host, mhub.ClientOptions{})
		}
	}
	if f.timeout <= 0 {
		f.timeout = DefaultSetupTimeout
	}
	if f.logger == nil {
		f.logger = noopLogger{}
	}
	return f, nil
}

// Validate checks that host answers the info endpoint with status 200 and a
// body carrying header.version. The title is the device's official name,
// or the host when the device does not report one.
func (f *Flow) Validate(ctx context.Context, host string) (DeviceInfo, error) {
	host = strings.TrimSpace(host)
	if !config.ValidHost(host) {
		return DeviceInfo{}, fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	status, body, err := f.newFetcher(host).Get(ctx, mhub.InfoPath)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("%w: %s: %w", ErrCannotConnect, host, err)
	}
	if status != http.StatusOK {
		return DeviceInfo{}, fmt.Errorf("%w: %s: GET %s returned %d", ErrCannotConnect, host, mhub.InfoPath, status)
	}
	doc, err := mhub.DecodeDocument(body)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("%w: %s: %w", ErrCannotConnect, host, err)
	}

	header, _ := doc["header"].(map[string]any)
	version, ok := header["version"]
	if !ok || version == nil {
		return DeviceInfo{}, fmt.Errorf("%w: %s: response has no header.version", ErrCannotConnect, host)
	}

	info := DeviceInfo{Host: host, Title: host, APIVersion: fmt.Sprint(version)}
	data, _ := doc["data"].(map[string]any)
	base, _ := data["mhub"].(map[string]any)
	if name, ok := base["mhub_official_name"].(string); ok && name != "" {
		info.Title = name
	}
	return info, nil
}

// Setup validates host and stores a new entry for it.
func (f *Flow) Setup(ctx context.Context, host string) (*Entry, error) {
	host = strings.TrimSpace(host)

	existing, err := f.repo.GetByHost(ctx, host)
	switch {
	case err == nil:
		return existing, fmt.Errorf("%s: %w", host, ErrAlreadyConfigured)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	info, err := f.Validate(ctx, host)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:    uuid.NewString(),
		Title: info.Title,
		Host:  info.Host,
	}
	if err := f.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	f.logger.Info("config entry created", "id", e.ID, "host", e.Host, "title", e.Title)
	return e, nil
}

// Resolve returns the entry the bridge should run. With a host it returns
// the stored entry for that host, creating it through Setup when missing.
// Without one it returns the oldest stored entry.
func (f *Flow) Resolve(ctx context.Context, host string) (*Entry, error) {
	host = strings.TrimSpace(host)
	if host != "" {
		e, err := f.repo.GetByHost(ctx, host)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return f.Setup(ctx, host)
	}

	entries, err := f.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no device host configured: %w", ErrNotFound)
	}
	if len(entries) > 1 {
		f.logger.Warn("multiple config entries stored, using the oldest",
			"count", len(entries), "host", entries[0].Host)
	}
	return &entries[0], nil
}
