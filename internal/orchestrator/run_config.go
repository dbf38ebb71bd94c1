package orchestrator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/crewforge/internal/agent"
	"github.com/ShayCichocki/crewforge/internal/logging"
	"github.com/ShayCichocki/crewforge/internal/orchestrator/policy"
	"github.com/ShayCichocki/crewforge/internal/ratelimit"
	"github.com/ShayCichocki/crewforge/internal/retry"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// RunOptions configures NewRunContext. Zero values select defaults.
type RunOptions struct {
	// ID identifies the run. A UUID is generated when empty.
	ID string
	// Account selects default rate limits when Limits is zero.
	Account models.AccountType
	Limits  ratelimit.Limits
	Retry   *retry.Policy
	Policy  *policy.Config
	Logger  logging.Logger
	// WorkspaceDir is the parent of per-run workspace directories.
	WorkspaceDir string

	LimiterOptions []ratelimit.Option
	RetryOptions   []retry.Option
	Clock          func() time.Time
}

// RunContext is everything one run shares. It is built once per run and
// passed explicitly; nothing in it outlives the run.
type RunContext struct {
	ID         string
	Account    models.AccountType
	Policy     *policy.Config
	Logger     logging.Logger
	Limiter    *ratelimit.Limiter
	Retrier    *retry.Retrier
	Workspaces *agent.WorkspaceManager
	StartedAt  time.Time
}

// NewRunContext wires a limiter, retrier and workspace manager for one run.
func NewRunContext(opts RunOptions) (*RunContext, error) {
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}

	account := opts.Account
	if account == "" {
		account = models.AccountPaid
	}
	if !account.Valid() {
		return nil, fmt.Errorf("invalid account type %q", account)
	}

	pol := opts.Policy
	if pol == nil {
		pol = policy.Default()
	}
	if err := pol.Validate(); err != nil {
		return nil, fmt.Errorf("team policy: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	limits := opts.Limits
	if limits == (ratelimit.Limits{}) {
		limits = ratelimit.LimitsFor(account)
	}
	limiterOpts := append([]ratelimit.Option{ratelimit.WithLogger(logger), ratelimit.WithClock(clock)}, opts.LimiterOptions...)
	limiter := ratelimit.New(limits, limiterOpts...)

	retryPolicy := retry.DefaultPolicy()
	if opts.Retry != nil {
		retryPolicy = *opts.Retry
	}
	retryOpts := append([]retry.Option{retry.WithLogger(logger)}, opts.RetryOptions...)
	retrier := retry.New(limiter, retryPolicy, retryOpts...)

	workspaces, err := agent.NewWorkspaceManager(opts.WorkspaceDir, id)
	if err != nil {
		return nil, err
	}

	logger.Log("[run] %s account=%s limits=%d..%d (base %d)", id, account, limiter.Limits().MinRPM, limiter.Limits().MaxRPM, limiter.Limits().BaseRPM)

	return &RunContext{
		ID:         id,
		Account:    account,
		Policy:     pol,
		Logger:     logger,
		Limiter:    limiter,
		Retrier:    retrier,
		Workspaces: workspaces,
		StartedAt:  clock(),
	}, nil
}
