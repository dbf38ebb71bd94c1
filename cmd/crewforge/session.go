package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/crewforge/internal/agent"
	"github.com/ShayCichocki/crewforge/internal/api"
	"github.com/ShayCichocki/crewforge/internal/config"
	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/internal/orchestrator"
	"github.com/ShayCichocki/crewforge/internal/orchestrator/policy"
	"github.com/ShayCichocki/crewforge/internal/specgen"
	"github.com/ShayCichocki/crewforge/internal/state"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// session holds what outlives a single run: config, logger, model client and
// the roster cache. Interactive mode builds many runs from one session.
type session struct {
	cfg     *config.Config
	account models.AccountType
	policy  *policy.Config
	logger  *logging.DebugLogger
	client  *api.Client
	cache   *specgen.SpecCache
}

// newSession loads configuration and opens the run log. The model client is
// only created when withModel is set, so classify works without credentials.
func newSession(withModel bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	account := cfg.AccountType()
	if flagAccount != "" {
		account = models.AccountType(strings.ToLower(flagAccount))
		if !account.Valid() {
			return nil, fmt.Errorf("invalid --account %q: must be paid or free", flagAccount)
		}
	}

	pol, err := policy.LoadFile(cfg.Policy.File)
	if err != nil {
		return nil, err
	}

	logPath := cfg.Logging.DebugLog
	if logPath == "" {
		logPath = logging.DefaultLogPath()
	}
	logger, err := logging.NewDebugLogger(logPath)
	if err != nil {
		// Logging is optional
		fmt.Fprintf(os.Stderr, "Warning: debug log unavailable: %v\n", err)
		logger = logging.NopLogger()
	}
	if flagVerbose {
		logger.SetMirror(os.Stderr)
	}

	s := &session{
		cfg:     cfg,
		account: account,
		policy:  pol,
		logger:  logger,
		cache:   specgen.NewSpecCache(specgen.DefaultCacheTTL),
	}

	if withModel {
		if err := config.RequireCredentials(cfg); err != nil {
			logger.Close()
			return nil, err
		}
		s.client, err = newModelClient(cfg)
		if err != nil {
			logger.Close()
			return nil, err
		}
	}
	return s, nil
}

// newModelClient creates the Anthropic client from provider settings.
func newModelClient(cfg *config.Config) (*api.Client, error) {
	key := ""
	if !cfg.Provider.UseBedrock {
		var err error
		if key, err = config.GetAPIKey(cfg); err != nil {
			return nil, err
		}
	}
	client, err := api.NewClient(api.ClientConfig{
		Model:          anthropic.Model(cfg.Provider.Model),
		APIKey:         key,
		UseAWSBedrock:  cfg.Provider.UseBedrock,
		AWSRegion:      cfg.Provider.AWSRegion,
		AWSProfile:     cfg.Provider.AWSProfile,
		RequestTimeout: cfg.Provider.RequestTimeout,
		BaseURL:        cfg.Provider.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}
	return client, nil
}

// Close releases the run log.
func (s *session) Close() {
	if s.client != nil {
		in, out := s.client.Tracker().Total()
		s.logger.Log("[session] %d model calls, %d input / %d output tokens", s.client.Tracker().Calls(), in, out)
	}
	s.logger.Close()
}

// runSetup is everything needed to build one team.
type runSetup struct {
	rc      *orchestrator.RunContext
	factory *agent.Factory
	builder *orchestrator.TeamBuilder
}

// newRun creates a fresh run context, factory and builder. The spec cache is
// shared with earlier runs of the same session.
func (s *session) newRun() (*runSetup, error) {
	retryPolicy := s.cfg.RetryPolicy()
	rc, err := orchestrator.NewRunContext(orchestrator.RunOptions{
		Account:      s.account,
		Limits:       s.cfg.LimitsFor(s.account),
		Retry:        &retryPolicy,
		Policy:       s.policy,
		Logger:       s.logger,
		WorkspaceDir: s.cfg.Workspace.BaseDir,
	})
	if err != nil {
		return nil, err
	}

	var model api.Model = s.client
	gen := specgen.New(model, rc.Retrier, s.policy,
		specgen.WithCache(s.cache),
		specgen.WithLogger(s.logger),
		specgen.WithParams(api.Params{
			Temperature: api.Float(0.2),
			MaxTokens:   s.cfg.Provider.MaxTokens,
		}),
	)
	factory := agent.NewFactory(model, rc.Retrier, rc.Workspaces,
		agent.WithFactoryLogger(s.logger),
		agent.WithAgentParams(api.Params{
			Temperature: api.Float(s.cfg.Provider.Temperature),
			MaxTokens:   s.cfg.Provider.MaxTokens,
		}),
		agent.WithCodeExecutor(agent.NewCodeExecutor(nil, s.cfg.Workspace.ExecTimeout)),
	)

	return &runSetup{
		rc:      rc,
		factory: factory,
		builder: orchestrator.NewTeamBuilder(rc, gen, factory),
	}, nil
}

// dbPath returns the configured history database path.
func (s *session) dbPath() string {
	if s.cfg.State.DBPath != "" {
		return s.cfg.State.DBPath
	}
	return state.DefaultDBPath()
}

// openHistory opens and migrates the history database.
func (s *session) openHistory() (*state.DB, error) {
	db, err := state.Open(s.dbPath())
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return db, nil
}

// signalsStateDir is where operator signal files live.
func (s *session) signalsStateDir() string {
	return filepath.Dir(s.dbPath())
}

// taskFromArgs joins the positional arguments, or returns the default task.
func taskFromArgs(args []string) string {
	task := strings.TrimSpace(strings.Join(args, " "))
	if task == "" {
		return defaultTask
	}
	return task
}
