package cli

import (
	"fmt"
	"os"

	"github.com/corvid-labs/hasp/internal/build"
	"github.com/corvid-labs/hasp/internal/catalog"
	"github.com/corvid-labs/hasp/internal/config"
	"github.com/corvid-labs/hasp/internal/home"
	"github.com/corvid-labs/hasp/internal/journal"
	"github.com/corvid-labs/hasp/internal/pipeline"
	"github.com/corvid-labs/hasp/internal/registry"
	"github.com/rs/zerolog"
)

// session bundles the opened home layout, catalog, and journal every
// subcommand needs, plus the wired-up pipeline.Engine for install.
type session struct {
	Home    *home.Home
	Catalog *catalog.Catalog
	Events  *journal.Logger
	Config  *config.Config
	Engine  *pipeline.Engine
	log     zerolog.Logger
}

// openSession discovers the home directory (honoring opts.Home), opens
// the catalog and journal, and loads configuration. Callers must call
// close() when done.
func openSession(opts *RootOptions) (*session, error) {
	logger := newLogger(opts.Verbose)

	if opts.Home != "" {
		if err := os.Setenv("HASP_HOME", opts.Home); err != nil {
			return nil, fmt.Errorf("set HASP_HOME: %w", err)
		}
	}

	h, err := home.Discover()
	if err != nil {
		return nil, fmt.Errorf("discover home: %w", err)
	}

	events, err := journal.Open(h.EventsDBPath())
	if err != nil {
		return nil, fmt.Errorf("open event journal: %w", err)
	}

	cat, err := catalog.Open(h.MainDBPath(), h.PackagesDBPath(), events)
	if err != nil {
		events.Close()
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		cat.Close()
		events.Close()
		return nil, fmt.Errorf("load config: %w", err)
	}

	engine := &pipeline.Engine{
		Catalog: cat,
		Home:    h,
		Events:  events,
		Registry: func(ns string) (registry.Client, error) {
			nsCfg, err := cfg.For(ns)
			if err != nil {
				return nil, err
			}
			return registry.HTTPClient{IndexBaseURL: nsCfg.Registry.IndexURL}, nil
		},
		Build: func(ns string) (build.Tool, error) {
			nsCfg, err := cfg.For(ns)
			if err != nil {
				return nil, err
			}
			return build.CommandTool{Name: nsCfg.Build.Command, Args: nsCfg.Build.Args}, nil
		},
	}

	return &session{Home: h, Catalog: cat, Events: events, Config: cfg, Engine: engine, log: logger}, nil
}

func (s *session) close() {
	if err := s.Catalog.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close catalog")
	}
	if err := s.Events.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close event journal")
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()
}
