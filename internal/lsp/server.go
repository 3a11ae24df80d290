package lsp

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jsvensson/embedls/internal/cache"
	"github.com/jsvensson/embedls/internal/config"
	"github.com/jsvensson/embedls/internal/document"
	"github.com/jsvensson/embedls/internal/embedded"
	"github.com/jsvensson/embedls/internal/metrics"
	"github.com/jsvensson/embedls/internal/mode"
)

const serverName = "embedls"

var log = commonlog.GetLogger("embedls.lsp")

// Options configures NewServer.
type Options struct {
	// Config is the starting configuration. The workspace embedls.hcl and
	// editor settings are layered on top of it.
	Config config.Config
	// ConfigPath overrides the embedls.hcl lookup in the workspace root.
	ConfigPath string
	// Metrics, when set, observes every cache the server creates.
	Metrics *metrics.Collector
	// Components resolves child components for tag classification. Nil
	// disables it.
	Components mode.ComponentSource
}

type Server struct {
	handler protocol.Handler
	docs    *document.Store
	version string
	opts    Options

	mu       sync.RWMutex
	base     config.Config
	cfg      config.Config
	regions  *cache.Cache[*embedded.Regions]
	modes    []mode.Mode
	disposed bool
}

func NewServer(version string, opts Options) (*Server, error) {
	s := &Server{
		docs:    document.NewStore(),
		version: version,
		opts:    opts,
		base:    opts.Config.Clone(),
	}
	if err := s.apply(opts.Config); err != nil {
		return nil, err
	}

	s.handler = protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		Exit:                            s.exit,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.textDocumentDidOpen,
		TextDocumentDidChange:           s.textDocumentDidChange,
		TextDocumentDidClose:            s.textDocumentDidClose,
		TextDocumentDocumentSymbol:      s.textDocumentDocumentSymbol,
		TextDocumentDocumentHighlight:   s.textDocumentDocumentHighlight,
		WorkspaceDidChangeConfiguration: s.workspaceDidChangeConfiguration,
	}

	return s, nil
}

func (s *Server) Run() error {
	srv := server.NewServer(&s.handler, serverName, false)
	return srv.RunStdio()
}

// apply makes cfg current. Caches are rebuilt only when their bounds
// changed; other settings are handed to the running modes.
func (s *Server) apply(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.regions != nil && cfg.Cache == s.cfg.Cache {
		for _, m := range s.modes {
			m.Configure(cfg)
		}
		s.cfg = cfg.Clone()
		return nil
	}

	regions, err := cache.New[*embedded.Regions](
		cfg.CacheConfig(),
		cache.ProducerFunc[*embedded.Regions](func(doc *document.Document) (*embedded.Regions, error) {
			return embedded.Scan(doc), nil
		}),
		cache.WithName("regions"),
	)
	if err != nil {
		return fmt.Errorf("creating regions cache: %w", err)
	}
	markup, err := mode.NewMarkup(regions, mode.MarkupOptions{
		Config:     cfg,
		Components: s.opts.Components,
	})
	if err != nil {
		regions.Dispose()
		return err
	}

	s.disposeLocked()
	s.regions = regions
	s.modes = []mode.Mode{markup}
	s.cfg = cfg.Clone()
	s.disposed = false

	if s.opts.Metrics != nil {
		s.opts.Metrics.Set(s.observablesLocked()...)
	}
	return nil
}

func (s *Server) observablesLocked() []cache.Observable {
	out := []cache.Observable{s.regions}
	for _, m := range s.modes {
		out = append(out, m.Caches()...)
	}
	return out
}

func (s *Server) disposeLocked() {
	if s.disposed || s.regions == nil {
		return
	}
	for _, m := range s.modes {
		m.Dispose()
	}
	s.regions.Dispose()
	s.disposed = true
}

// Dispose stops every cache. Requests after Dispose still answer but
// nothing is memoized.
func (s *Server) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposeLocked()
}

// Config returns the configuration in effect.
func (s *Server) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

func (s *Server) state() (*cache.Cache[*embedded.Regions], []mode.Mode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regions, s.modes
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.mu.RLock()
	cfg := s.base
	s.mu.RUnlock()

	if path := s.configPath(params); path != "" {
		loaded, err := config.LoadFile(path, workspaceRoot(params))
		switch {
		case err == nil:
			log.Infof("loaded %s", path)
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			log.Warningf("ignoring %s: %s", path, err)
		}
	}
	s.mu.Lock()
	s.base = cfg.Clone()
	s.mu.Unlock()

	if params.InitializationOptions != nil {
		var err error
		if cfg, err = config.FromSettings(cfg, params.InitializationOptions); err != nil {
			log.Warningf("ignoring initialization options: %s", err)
		}
	}
	if err := s.apply(cfg); err != nil {
		log.Errorf("applying configuration: %s", err)
	}

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) configPath(params *protocol.InitializeParams) string {
	if s.opts.ConfigPath != "" {
		return s.opts.ConfigPath
	}
	if root := workspaceRoot(params); root != "" {
		return filepath.Join(root, config.FileName)
	}
	return ""
}

// workspaceRoot returns the filesystem path of the client's root, or "".
func workspaceRoot(params *protocol.InitializeParams) string {
	if params.RootURI != nil {
		if u, err := url.Parse(*params.RootURI); err == nil && u.Scheme == "file" {
			return filepath.FromSlash(u.Path)
		}
	}
	if params.RootPath != nil {
		return *params.RootPath
	}
	return ""
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.Dispose()
	return nil
}

func (s *Server) exit(_ *glsp.Context) error {
	s.Dispose()
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) workspaceDidChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	s.mu.RLock()
	base := s.base
	s.mu.RUnlock()

	cfg, err := config.FromSettings(base, params.Settings)
	if err != nil {
		log.Warningf("ignoring settings: %s", err)
		return nil
	}
	if err := s.apply(cfg); err != nil {
		log.Warningf("ignoring settings: %s", err)
		return nil
	}

	for _, uri := range s.docs.URIs() {
		if doc, ok := s.docs.Get(uri); ok {
			s.validate(ctx, doc)
		}
	}
	return nil
}
