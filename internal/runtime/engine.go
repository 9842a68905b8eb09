// Package runtime implements the turn state machine: node selection,
// ordered slot-filling, digression handling, and the directive
// interpreter. It operates on a compiled graph and a session snapshot and
// never performs I/O beyond the injected evaluator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/maxbot-ai/dialogtree/internal/metrics"
	"github.com/maxbot-ai/dialogtree/pkg/domain"
	"github.com/maxbot-ai/dialogtree/pkg/graph"
	"github.com/maxbot-ai/dialogtree/pkg/ports"
)

// DefaultMaxHops bounds directive-driven re-entries (listen_again loops,
// unconditional jumps) within a single external turn.
const DefaultMaxHops = 20

const (
	defaultFallback = "Sorry, I didn't get that."
	defaultFailsafe = "Something went wrong on my side. Let's start over."
)

// RevisionPolicy selects what happens when a filled slot's value changes
// mid-flow and the slot declares no found handler.
type RevisionPolicy string

const (
	// RevisionReplace silently stores the new value.
	RevisionReplace RevisionPolicy = "replace"
	// RevisionReset deletes the slot so its prompt fires again.
	RevisionReset RevisionPolicy = "reset"
)

// LoopLimitError is a fatal control-flow error for one turn: directive
// processing exceeded the configured hop bound. The turn's uncommitted
// state is discarded by the caller.
type LoopLimitError struct {
	Hops int
}

func (e *LoopLimitError) Error() string {
	return fmt.Sprintf("directive processing exceeded %d hops", e.Hops)
}

// Engine walks the compiled graph one turn at a time. It is stateless
// across turns and safe for concurrent use over distinct sessions; the
// caller enforces per-session exclusion.
type Engine struct {
	graph    *graph.Graph
	eval     ports.Evaluator
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	maxHops  int
	fallback string
	failsafe string
	resume   domain.ResumePolicy
	revision RevisionPolicy
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a structured logger for evaluation diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithMaxHops overrides the directive iteration bound.
func WithMaxHops(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// WithFallbackResponse sets the reply used when no top-level node matches.
func WithFallbackResponse(text string) Option {
	return func(e *Engine) { e.fallback = text }
}

// WithFailsafeResponse sets the reply used when a turn is aborted.
func WithFailsafeResponse(text string) Option {
	return func(e *Engine) { e.failsafe = text }
}

// WithResumePolicy sets the engine-wide default digression resume policy.
func WithResumePolicy(policy domain.ResumePolicy) Option {
	return func(e *Engine) {
		if policy != "" {
			e.resume = policy
		}
	}
}

// WithRevisionPolicy sets the default for filled-slot value changes that
// have no found handler to report them.
func WithRevisionPolicy(policy RevisionPolicy) Option {
	return func(e *Engine) {
		if policy != "" {
			e.revision = policy
		}
	}
}

// NewEngine creates an engine over a compiled graph.
func NewEngine(g *graph.Graph, eval ports.Evaluator, opts ...Option) *Engine {
	e := &Engine{
		graph:    g,
		eval:     eval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxHops:  DefaultMaxHops,
		fallback: defaultFallback,
		failsafe: defaultFailsafe,
		resume:   domain.ResumeReturn,
		revision: RevisionReplace,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the compiled graph the engine runs.
func (e *Engine) Graph() *graph.Graph {
	return e.graph
}

// ProcessTurn interprets one NLU-resolved turn against the session. The
// session itself is never mutated: the returned output carries either the
// post-turn snapshot to commit, or the pre-turn snapshot when the turn
// was aborted and rolled back.
func (e *Engine) ProcessTurn(ctx context.Context, sess *domain.Session, in domain.TurnInput) (*domain.TurnOutput, error) {
	scope := e.baseScope(in.Text, in.Intents, in.Entities, in.Profile, nil)
	return e.process(ctx, sess, scope)
}

// ProcessRPC interprets one webhook trigger. Required params must be
// validated by the caller before any session state is loaded; here the
// trigger is dispatched through ordinary node selection with an rpc
// scope, so nodes condition on rpc.method and rpc.params.
func (e *Engine) ProcessRPC(ctx context.Context, sess *domain.Session, in domain.RPCInput) (*domain.TurnOutput, error) {
	rpcScope := map[string]any{
		"method": in.Method,
		"params": in.Params,
	}
	scope := e.baseScope("", nil, nil, nil, rpcScope)
	return e.process(ctx, sess, scope)
}

func (e *Engine) process(ctx context.Context, sess *domain.Session, inputs ports.Scope) (*domain.TurnOutput, error) {
	started := time.Now()
	turnID := uuid.NewString()

	work := sess.Clone()
	t := &turn{
		e:      e,
		sess:   work,
		inputs: inputs,
		turnID: turnID,
		logger: e.logger.With("session_key", sess.Key, "turn_id", turnID),
	}

	err := t.run(ctx)
	metrics.TurnDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		var loopErr *LoopLimitError
		if errors.As(err, &loopErr) {
			// Fatal for this turn only: discard mutations, answer safely.
			t.logger.Error("directive loop aborted, rolling back turn", "err", err)
			metrics.TurnsProcessed.WithLabelValues("loop_abort").Inc()
			metrics.DirectiveLoopAborts.Inc()
			e.emitTurnEnd(ctx, t, false)
			return &domain.TurnOutput{
				TurnID:  turnID,
				Texts:   []string{e.failsafe},
				Session: sess.Clone(),
			}, nil
		}
		metrics.TurnsProcessed.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.TurnsProcessed.WithLabelValues("ok").Inc()
	e.emitTurnEnd(ctx, t, true)
	return &domain.TurnOutput{
		TurnID:  turnID,
		Texts:   t.texts,
		Session: work,
	}, nil
}

// baseScope assembles the turn-scoped render context. Slot and retry maps
// are live views of the working session so conditions observe mutations
// made earlier in the same turn.
func (e *Engine) baseScope(text string, intents domain.Intents, entities domain.Entities, profile map[string]any, rpc map[string]any) ports.Scope {
	if intents == nil {
		intents = domain.Intents{}
	}
	if entities == nil {
		entities = domain.Entities{}
	}
	scope := ports.Scope{
		"text":     text,
		"intents":  intents,
		"entities": entities,
	}
	if profile != nil {
		scope["user"] = profile
	}
	if rpc != nil {
		scope["rpc"] = rpc
	}
	return scope
}

func (e *Engine) emitTurnEnd(ctx context.Context, t *turn, committed bool) {
	if e.hooks.OnTurnEnd == nil {
		return
	}
	e.hooks.OnTurnEnd(ctx, &domain.TurnEvent{
		EventBase: t.eventBase(domain.EventTurnEnd),
		Texts:     len(t.texts),
		Committed: committed,
	})
}
