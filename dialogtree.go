package dialogtree

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/maxbot-ai/dialogtree/internal/adapters/memory"
	"github.com/maxbot-ai/dialogtree/internal/evaluator"
	"github.com/maxbot-ai/dialogtree/internal/logging"
	"github.com/maxbot-ai/dialogtree/internal/runtime"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/graph"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
	"github.com/maxbot-ai/dialogtree/pkg/schema"
	"github.com/maxbot-ai/dialogtree/pkg/session"
)

// Bot is the high-level entry point for the dialogtree library.
// It wraps the internal runtime with session persistence and per-session
// exclusion, and provides a simplified API for consumers.
type Bot struct {
	def      *schema.Definition
	graph    *graph.Graph
	engine   *runtime.Engine
	sessions *session.Manager

	store       ports.SessionStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	eval        ports.Evaluator
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	runtimeOpts []runtime.Option
	name        string
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithSessionStore injects a custom session store. Defaults to the
// in-memory store.
func WithSessionStore(store ports.SessionStore) Option {
	return func(b *Bot) {
		b.store = store
	}
}

// WithLocker enables distributed per-session locking for multi-replica
// deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(b *Bot) {
		b.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(b *Bot) {
		b.lockTTL = ttl
	}
}

// WithEvaluator sets a custom condition evaluator and template renderer.
func WithEvaluator(eval ports.Evaluator) Option {
	return func(b *Bot) {
		b.eval = eval
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithName sets a descriptive name used to enrich log records.
func WithName(name string) Option {
	return func(b *Bot) {
		b.name = name
	}
}

// WithMaxDirectiveHops bounds directive-driven control transfers within
// one turn.
func WithMaxDirectiveHops(n int) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithMaxHops(n))
	}
}

// WithFallbackResponse sets the reply used when no node matches the input.
func WithFallbackResponse(text string) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithFallbackResponse(text))
	}
}

// WithFailsafeResponse sets the reply used when a turn aborts on the
// directive hop bound.
func WithFailsafeResponse(text string) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithFailsafeResponse(text))
	}
}

// WithResumePolicy sets the default digression resume policy for nodes
// that declare none.
func WithResumePolicy(policy domain.ResumePolicy) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithResumePolicy(policy))
	}
}

// WithRevisionPolicy controls what happens when a filled slot without a
// found handler receives a different value.
func WithRevisionPolicy(policy runtime.RevisionPolicy) Option {
	return func(b *Bot) {
		b.runtimeOpts = append(b.runtimeOpts, runtime.WithRevisionPolicy(policy))
	}
}

// New builds a Bot from a validated definition. The definition is
// compiled once; jump targets and RPC declarations are resolved here, so
// a Bot that constructs successfully cannot hit unknown labels from
// declared handlers at runtime.
func New(def *schema.Definition, opts ...Option) (*Bot, error) {
	if def == nil {
		return nil, fmt.Errorf("definition is required")
	}

	bot := &Bot{def: def}
	for _, opt := range opts {
		opt(bot)
	}

	g, err := graph.Compile(def)
	if err != nil {
		return nil, fmt.Errorf("failed to compile dialog graph: %w", err)
	}
	bot.graph = g

	if bot.logger == nil {
		bot.logger = logging.NewNop()
	}
	if bot.name == "" {
		bot.name = def.Name
	}
	if bot.name != "" {
		bot.logger = bot.logger.With("bot", bot.name)
	}
	if bot.eval == nil {
		bot.eval = evaluator.New()
	}
	if bot.store == nil {
		bot.store = memory.NewStore()
	}

	managerOpts := []session.Option{session.WithLogger(bot.logger)}
	if bot.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(bot.locker))
	}
	if bot.lockTTL > 0 {
		managerOpts = append(managerOpts, session.WithLockTTL(bot.lockTTL))
	}
	bot.sessions = session.NewManager(bot.store, managerOpts...)

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(bot.logger),
		runtime.WithLifecycleHooks(bot.hooks),
	}
	runtimeOpts = append(runtimeOpts, bot.runtimeOpts...)
	bot.engine = runtime.NewEngine(g, bot.eval, runtimeOpts...)

	return bot, nil
}

// Open loads a definition from a YAML or JSON file and builds a Bot.
func Open(path string, opts ...Option) (*Bot, error) {
	def, err := schema.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(def, opts...)
}

// ProcessTurn runs one user turn against its session. The turn commits
// all-or-nothing: the stored session advances only when the whole turn
// succeeds, so a failed turn can be retried against unchanged state.
func (b *Bot) ProcessTurn(ctx context.Context, in domain.TurnInput) (*domain.TurnOutput, error) {
	if in.SessionKey == "" {
		return nil, domain.ErrMissingSessionKey
	}
	return b.process(ctx, in.SessionKey, func(ctx context.Context, sess *domain.Session) (*domain.TurnOutput, error) {
		return b.engine.ProcessTurn(ctx, sess, in)
	})
}

// ProcessRPC runs one RPC trigger against its session. Method and
// required-parameter validation happens before the session lock is
// taken, so malformed calls never touch stored state.
func (b *Bot) ProcessRPC(ctx context.Context, in domain.RPCInput) (*domain.TurnOutput, error) {
	if in.SessionKey == "" {
		return nil, domain.ErrMissingSessionKey
	}
	method, ok := b.graph.RPC(in.Method)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMethod, in.Method)
	}
	if missing := method.MissingRequired(in.Params); len(missing) > 0 {
		return nil, &domain.RequiredParamError{Method: in.Method, Params: missing}
	}
	return b.process(ctx, in.SessionKey, func(ctx context.Context, sess *domain.Session) (*domain.TurnOutput, error) {
		return b.engine.ProcessRPC(ctx, sess, in)
	})
}

func (b *Bot) process(ctx context.Context, key string, fn func(context.Context, *domain.Session) (*domain.TurnOutput, error)) (*domain.TurnOutput, error) {
	var out *domain.TurnOutput
	err := b.sessions.WithLock(ctx, key, func(ctx context.Context) error {
		sess, err := b.sessions.LoadOrCreate(ctx, key)
		if err != nil {
			return err
		}
		out, err = fn(ctx, sess)
		if err != nil {
			return err
		}
		return b.sessions.Store().Save(ctx, key, out.Session)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Session returns a snapshot of the stored session state.
func (b *Bot) Session(ctx context.Context, key string) (*domain.Session, error) {
	return b.sessions.Load(ctx, key)
}

// ResetSession removes all stored state for the session.
func (b *Bot) ResetSession(ctx context.Context, key string) error {
	return b.sessions.Delete(ctx, key)
}

// Sessions returns the keys of all active sessions.
func (b *Bot) Sessions(ctx context.Context) ([]string, error) {
	return b.sessions.List(ctx)
}

// Graph exposes the compiled dialog graph for inspection tooling.
func (b *Bot) Graph() *graph.Graph {
	return b.graph
}

// Definition returns the source definition the Bot was built from.
func (b *Bot) Definition() *schema.Definition {
	return b.def
}

// Name returns the Bot's descriptive name.
func (b *Bot) Name() string {
	return b.name
}
