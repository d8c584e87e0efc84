// Package action implements the executable-content runner: the
// collaborator the microstep driver calls to run onentry/onexit blocks
// and transition content.
//
// The sum of executable-content kinds it dispatches on — raise, log,
// assign, if/elseif/else, foreach, and a send stub — covers the content
// SCXML documents attach to states and transitions. Actual external
// communication for <send> is out of this runner's scope; the
// Dispatcher hook exists so a host can plug a real transport in.
package action

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/statecraft-run/scxml/datamodel"
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
)

// Func is the function-valued Action shape: a Go closure a builder can
// attach directly to a state's OnEntry/OnExit/transition content.
type Func func(ctx *datamodel.Context, evt event.Event, raise func(event.Event)) error

// Raise is executable content that raises an internal event.
type Raise struct {
	Event string
	Data  any
}

// Log is executable content that logs a labeled value, mirroring
// SCXML's <log> element.
type Log struct {
	Label string
	Expr  func(*datamodel.Context) any
}

// Assign is executable content that writes a value into the data
// model, mirroring SCXML's <assign>. Value takes precedence; when nil,
// Expr is evaluated through the runner's evaluator (datamodel.
// ValueEvaluator) instead.
type Assign struct {
	Location string
	Value    func(*datamodel.Context) any
	Expr     any
}

// If is executable content with elseif/else branches, mirroring
// SCXML's <if>/<elseif>/<else>.
type If struct {
	Branches []IfBranch // evaluated in order; first true branch runs
	Else     []any      // runs if no branch matched
}

// IfBranch is one <if>/<elseif> arm.
type IfBranch struct {
	Cond document.Cond
	Do   []any
}

// ForEach is executable content that iterates a slice-valued data
// model location, mirroring SCXML's <foreach>.
type ForEach struct {
	Array string
	Item  string
	Index string
	Do    []any
}

// Send is a stub for SCXML's <send>: the runner invokes Dispatch if one
// is configured, otherwise returns ErrNoDispatcher. External
// communication semantics beyond this hook are out of scope.
type Send struct {
	Event string
	Data  any
	Delay time.Duration
}

// Invoke is a stub for SCXML's <invoke>: the runner delegates to an
// InvokeHandler if one is configured, otherwise returns
// ErrNoInvokeHandler. Child-session semantics are the handler's
// concern.
type Invoke struct {
	Type string
	Src  string
	ID   string
	Data any
}

// InvokeHandler starts an invoked service; it may raise events back
// into the machine via raise.
type InvokeHandler interface {
	Invoke(inv Invoke, evt event.Event, raise func(event.Event)) error
}

// Runner executes one piece of executable content.
type Runner interface {
	Run(ctx *datamodel.Context, a any, evt event.Event, raise func(event.Event)) error
}

// Dispatcher sends an external event, e.g. over a message bus or HTTP.
// A host that wires external communication implements this and passes
// it to NewDefaultRunner.
type Dispatcher interface {
	Dispatch(evt event.Event, delay time.Duration) error
}

// ErrNoDispatcher is returned by Send content when no Dispatcher is
// configured.
var ErrNoDispatcher = fmt.Errorf("action: no dispatcher configured for <send>")

// ErrNoInvokeHandler is returned by Invoke content when no
// InvokeHandler is configured.
var ErrNoInvokeHandler = fmt.Errorf("action: no handler configured for <invoke>")

// DefaultRunner dispatches each of the executable-content kinds this
// package defines, plus the Func closure escape hatch.
type DefaultRunner struct {
	eval       datamodel.Evaluator
	dispatcher Dispatcher
	invoker    InvokeHandler
}

// NewDefaultRunner returns a Runner using eval to evaluate If/guard
// conditions. dispatcher may be nil, in which case Send content fails
// with ErrNoDispatcher.
func NewDefaultRunner(eval datamodel.Evaluator, dispatcher Dispatcher) *DefaultRunner {
	return &DefaultRunner{eval: eval, dispatcher: dispatcher}
}

// WithInvokeHandler sets the <invoke> delegate and returns r.
func (r *DefaultRunner) WithInvokeHandler(h InvokeHandler) *DefaultRunner {
	r.invoker = h
	return r
}

// Run implements Runner.
func (r *DefaultRunner) Run(ctx *datamodel.Context, a any, evt event.Event, raise func(event.Event)) error {
	switch act := a.(type) {
	case nil:
		return nil
	case Func:
		return act(ctx, evt, raise)
	case func(*datamodel.Context, event.Event, func(event.Event)) error:
		return act(ctx, evt, raise)
	case Raise:
		if act.Event == "" {
			return fmt.Errorf("action: raise with empty event name")
		}
		raise(event.NewInternal(act.Event, act.Data))
		return nil
	case Log:
		var v any
		if act.Expr != nil {
			v = act.Expr(ctx)
		}
		slog.Info("scxml log", "label", act.Label, "value", v)
		return nil
	case Assign:
		if act.Location == "" {
			return fmt.Errorf("action: assign with empty location")
		}
		var v any
		if act.Value != nil {
			v = act.Value(ctx)
		} else if ve, ok := r.eval.(datamodel.ValueEvaluator); ok {
			v = ve.EvalValue(ctx, act.Expr, evt)
		} else {
			v = act.Expr
		}
		ctx.Set(act.Location, v)
		return nil
	case If:
		return r.runIf(ctx, act, evt, raise)
	case ForEach:
		return r.runForEach(ctx, act, evt, raise)
	case Send:
		if r.dispatcher == nil {
			return ErrNoDispatcher
		}
		return r.dispatcher.Dispatch(event.New(act.Event, act.Data), act.Delay)
	case Invoke:
		if r.invoker == nil {
			return ErrNoInvokeHandler
		}
		return r.invoker.Invoke(act, evt, raise)
	case string:
		return fmt.Errorf("action: id %q not registered", act)
	default:
		return fmt.Errorf("action: unknown action type %T", a)
	}
}

func (r *DefaultRunner) runIf(ctx *datamodel.Context, act If, evt event.Event, raise func(event.Event)) error {
	for _, branch := range act.Branches {
		if r.eval.EvalCond(ctx, branch.Cond, evt) {
			return r.runAll(ctx, branch.Do, evt, raise)
		}
	}
	return r.runAll(ctx, act.Else, evt, raise)
}

func (r *DefaultRunner) runForEach(ctx *datamodel.Context, act ForEach, evt event.Event, raise func(event.Event)) error {
	v, ok := ctx.Get(act.Array)
	if !ok {
		return fmt.Errorf("action: foreach array %q not found", act.Array)
	}
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("action: foreach array %q is not a slice", act.Array)
	}
	for i, item := range items {
		ctx.Set(act.Item, item)
		if act.Index != "" {
			ctx.Set(act.Index, float64(i))
		}
		if err := r.runAll(ctx, act.Do, evt, raise); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultRunner) runAll(ctx *datamodel.Context, actions []any, evt event.Event, raise func(event.Event)) error {
	for _, a := range actions {
		if err := r.Run(ctx, a, evt, raise); err != nil {
			return err
		}
	}
	return nil
}

// LoggingRunner wraps a Runner and logs before/after each action.
type LoggingRunner struct {
	inner  Runner
	logger *slog.Logger
}

// NewLoggingRunner wraps inner with structured logging via logger (or
// slog.Default if nil).
func NewLoggingRunner(inner Runner, logger *slog.Logger) *LoggingRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingRunner{inner: inner, logger: logger}
}

// Run implements Runner.
func (r *LoggingRunner) Run(ctx *datamodel.Context, a any, evt event.Event, raise func(event.Event)) error {
	start := time.Now()
	err := r.inner.Run(ctx, a, evt, raise)
	r.logger.Debug("action executed", "action", fmt.Sprintf("%T", a), "event", evt.Name, "elapsed", time.Since(start), "error", err)
	return err
}
