package server

import (
	"errors"
	"net/url"
	"path/filepath"
	"time"

	"mozuku/internal/augment"
	"mozuku/internal/cache"
	"mozuku/internal/config"
	"mozuku/internal/extract"
	"mozuku/internal/llm"
	"mozuku/internal/morph"
	"mozuku/internal/parser"
	"mozuku/internal/scheduler"
	"mozuku/internal/session"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const pruneInterval = 6 * time.Hour

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	s.track(context)

	// Config
	root := workspaceRoot(params)
	cfg, err := config.Load(root)
	if err != nil {
		log.Errorf("%v, using defaults", err)
	}
	if err := cfg.Merge(params.InitializationOptions); err != nil {
		log.Errorf("initializationOptions: %v", err)
	}

	// Tokenizer
	tokenizer := s.opts.Tokenizer
	if tokenizer == nil {
		k, err := morph.NewKagome()
		if err != nil {
			return nil, err
		}
		tokenizer = k
	}

	extractor := extract.NewEngine()
	manager := session.NewManager(session.Options{
		Extract:   extractor,
		Tokenizer: tokenizer,
		Rules:     cfg.Rules(),
		Publisher: s,
	})

	// Slow path
	sched := scheduler.NewScheduler(cfg.Augment.Workers, cfg.Augment.QueueSize)
	sched.RunScheduler()
	var coordinator *augment.Coordinator
	var responses cache.Cache
	provider, err := cfg.NewProvider()
	switch {
	case errors.Is(err, llm.ErrDisabled):
		log.Infof("llm augmentation disabled: %v", err)
	case err != nil:
		log.Errorf("llm augmentation disabled: %v", err)
	default:
		responses = s.openCache(cfg)
		coordinator = augment.New(provider, manager, sched, responses, extractor, cfg.AugmentOptions())
		manager.SetAugmenter(coordinator)
		log.Infof("llm augmentation with %s (%s)", provider.Name(), provider.Model())
		if maxAge := cfg.CacheMaxAge(); maxAge > 0 {
			sched.SchedulePeriodicTask(pruneInterval, scheduler.Task{
				Name: "prune response cache",
				Execute: func() error {
					n, err := responses.Prune(maxAge)
					if n > 0 {
						log.Infof("pruned %d cached responses", n)
					}
					return err
				},
			})
		}
	}

	s.mu.Lock()
	s.root = root
	s.config = cfg
	s.manager = manager
	s.scheduler = sched
	s.coordinator = coordinator
	s.cache = responses
	s.mu.Unlock()

	syncKind := protocol.TextDocumentSyncKindIncremental

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	capabilities.HoverProvider = true
	capabilities.CodeActionProvider = protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{
			protocol.CodeActionKindQuickFix,
			protocol.CodeActionKindRefactorRewrite,
		},
		ResolveProvider: &protocol.True,
	}
	capabilities.SemanticTokensProvider = protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     morph.SemanticLegend,
			TokenModifiers: []string{},
		},
		Full: true,
	}

	version := s.opts.Version
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &version,
		},
	}, nil
}

// openCache opens the persistent response cache, falling back to memory.
func (s *Server) openCache(cfg config.Config) cache.Cache {
	if s.opts.NoCache || !cfg.Augment.Cache {
		return cache.NewMemory()
	}
	path := cfg.Augment.CachePath
	if path == "" {
		dir, err := config.StateHome(Name)
		if err != nil {
			log.Warningf("%v, caching in memory", err)
			return cache.NewMemory()
		}
		path = filepath.Join(dir, "responses.db")
	}
	c, err := cache.NewHybrid(path)
	if err != nil {
		log.Warningf("%v, caching in memory", err)
		return cache.NewMemory()
	}
	log.Infof("response cache at %s", path)
	return c
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	s.mu.Lock()
	manager, sched, coordinator, responses := s.manager, s.scheduler, s.coordinator, s.cache
	s.manager, s.scheduler, s.coordinator, s.cache = nil, nil, nil, nil
	s.mu.Unlock()

	coordinator.Close()
	if manager != nil {
		manager.CloseAll()
	}
	if sched != nil {
		sched.StopScheduler()
	}
	parser.ClosePools()
	if responses != nil {
		if err := responses.Close(); err != nil {
			log.Warningf("closing response cache: %v", err)
		}
	}
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) exit(context *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// workspaceRoot is the file system path of the first workspace the client
// names, or "".
func workspaceRoot(params *protocol.InitializeParams) string {
	var uris []string
	if params.RootURI != nil {
		uris = append(uris, *params.RootURI)
	}
	for _, f := range params.WorkspaceFolders {
		uris = append(uris, f.URI)
	}
	for _, raw := range uris {
		if p := uriToPath(raw); p != "" {
			return p
		}
	}
	if params.RootPath != nil {
		return *params.RootPath
	}
	return ""
}

func uriToPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.FromSlash(u.Path)
}
