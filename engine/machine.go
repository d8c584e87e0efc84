// Package engine ties document, configuration, event, history,
// datamodel, action, selector, and microstep together into the
// runnable interpreter: the macrostep/microstep driver loop, its
// pluggable collaborators, and its observable state.
//
// The functional-options pattern and the pluggable action.Runner/
// datamodel.Evaluator/Persister/Publisher/Visualizer/Registry seams
// give a host the same exit-actions/transition-actions/entry-actions/
// snapshot sequencing regardless of how it wires the Machine up. The
// core itself runs on a single-owner, no-internal-goroutines discipline:
// SendEvent/Initialize run synchronously to completion rather than
// spawning a worker goroutine. Hosts that want a channel-fed dispatch
// loop anyway get it as the opt-in Actor wrapper in actor.go.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/statecraft-run/scxml/action"
	"github.com/statecraft-run/scxml/configuration"
	"github.com/statecraft-run/scxml/datamodel"
	"github.com/statecraft-run/scxml/document"
	"github.com/statecraft-run/scxml/event"
	"github.com/statecraft-run/scxml/history"
	"github.com/statecraft-run/scxml/internal/microstep"
	"github.com/statecraft-run/scxml/internal/selector"
	"github.com/statecraft-run/scxml/observability"
	"github.com/statecraft-run/scxml/validate"
)

// DefaultEventlessCap is the default ceiling on microsteps within one
// macrostep, guarding against a livelock where an eventless transition
// cycle (or a self-triggering event loop) never stabilizes.
const DefaultEventlessCap = 100

// Persister saves and loads a Machine's serializable state.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, machineID string) (Snapshot, error)
}

// Publisher observes every event a Machine processes.
type Publisher interface {
	Publish(ctx context.Context, evt event.Event, meta Metadata) error
	Close() error
}

// Metadata describes one processed transition for a Publisher.
type Metadata struct {
	MachineID  string
	Transition string
}

// Visualizer renders the machine's document/configuration.
type Visualizer interface {
	ExportDOT(doc *document.Document, leaves []document.StateID) string
	ExportJSON(doc *document.Document) ([]byte, error)
}

// Registry versions snapshots across machine instances.
type Registry interface {
	Register(ctx context.Context, machineID string, snapshot Snapshot) error
	Latest(ctx context.Context, machineID string) (Snapshot, error)
}

// Status is the interpreter's own lifecycle state, distinct from the
// document's state configuration.
type Status int

const (
	Uninitialized Status = iota
	Stable
	Terminated
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Stable:
		return "stable"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Machine is the synchronous SCXML interpreter core. It owns a
// document, its active configuration, its data model, and its
// pluggable collaborators. A Machine is not safe for concurrent use;
// callers serialize access to Initialize/SendEvent themselves, or use
// the Actor wrapper for a channel-fed equivalent.
type Machine struct {
	// mu guards only the snapshot-reading accessors below
	// (ActiveLeaves, ActiveAll, IsActive, IsTerminated, Status), so a
	// host may poll state from another goroutine while a macrostep
	// runs on the owning goroutine. It does NOT make Initialize/
	// SendEvent safe to call concurrently with each other or with
	// themselves — that remains the caller's responsibility.
	mu sync.Mutex

	doc    *document.Document
	config *configuration.Configuration
	ctx    *datamodel.Context
	status Status

	tracker *history.Tracker
	queues  *event.Queues

	runner action.Runner
	eval   datamodel.Evaluator
	logger *slog.Logger
	tracer observability.Tracer

	persister  Persister
	publisher  Publisher
	visualizer Visualizer
	registry   Registry

	eventlessCap int
}

// Option configures a Machine via the functional-options pattern.
type Option func(*Machine)

// WithActionRunner overrides the default executable-content runner.
func WithActionRunner(r action.Runner) Option { return func(m *Machine) { m.runner = r } }

// WithEvaluator overrides the default condition evaluator.
func WithEvaluator(e datamodel.Evaluator) Option { return func(m *Machine) { m.eval = e } }

// WithLogger overrides the default structured logger.
func WithLogger(l *slog.Logger) Option { return func(m *Machine) { m.logger = l } }

// WithTracer attaches an observability.Tracer, opening one span per
// macrostep and one per microstep. Without this option the Machine
// traces through a no-op Tracer.
func WithTracer(t observability.Tracer) Option { return func(m *Machine) { m.tracer = t } }

// WithPersister attaches a snapshot persister.
func WithPersister(p Persister) Option { return func(m *Machine) { m.persister = p } }

// WithPublisher attaches an event publisher.
func WithPublisher(p Publisher) Option { return func(m *Machine) { m.publisher = p } }

// WithVisualizer attaches a visualizer.
func WithVisualizer(v Visualizer) Option { return func(m *Machine) { m.visualizer = v } }

// WithRegistry attaches a snapshot registry.
func WithRegistry(r Registry) Option { return func(m *Machine) { m.registry = r } }

// WithEventlessCap overrides DefaultEventlessCap.
func WithEventlessCap(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.eventlessCap = n
		}
	}
}

// New validates doc and constructs an uninitialized Machine. Call
// Initialize to enter the document's initial configuration.
func New(doc *document.Document, opts ...Option) (*Machine, error) {
	result := validate.Validate(doc)
	if result.HasErrors() {
		return nil, result
	}

	m := &Machine{
		doc:          doc,
		config:       configuration.New(),
		ctx:          datamodel.NewContext(),
		status:       Uninitialized,
		tracker:      history.NewTracker(),
		queues:       event.NewQueues(),
		eval:         datamodel.NewSimpleEvaluator(),
		logger:       slog.Default(),
		tracer:       observability.NewTracer(nil),
		eventlessCap: DefaultEventlessCap,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = observability.NewLogger(m.logger)
	if m.runner == nil {
		m.runner = action.NewDefaultRunner(m.eval, nil)
	}
	// Action failures are logged and absorbed: the chart continues
	// without that action's effect, and SendEvent never surfaces them.
	m.runner = &recoveringRunner{inner: m.runner, logger: m.logger}

	// Back the In(id) guard predicate with the live configuration.
	m.ctx.BindActive(func(id document.StateID) bool {
		return m.config.Contains(m.doc, id)
	})
	return m, nil
}

// recoveringRunner absorbs action errors so a broken onentry/onexit or
// transition-content action never aborts a macrostep.
type recoveringRunner struct {
	inner  action.Runner
	logger *slog.Logger
}

func (r *recoveringRunner) Run(ctx *datamodel.Context, a any, evt event.Event, raise func(event.Event)) error {
	if err := r.inner.Run(ctx, a, evt, raise); err != nil {
		r.logger.Warn("engine: action failed, continuing", "event", evt.Name, "error", err)
	}
	return nil
}

// Initialize enters the document's top-level initial configuration via
// the entry algorithm (running onentry actions and raising done.state.*
// like any other entry), then runs eventless transitions to stability.
// Internal events raised during initialization stay queued for the
// first SendEvent.
func (m *Machine) Initialize(ctx context.Context) error {
	if m.status != Uninitialized {
		return fmt.Errorf("engine: already initialized (status=%s)", m.status)
	}

	raise := func(e event.Event) { m.queues.EnqueueInternal(e) }

	// Absent an explicit initial, the first top-level state in document
	// order is entered, per the SCXML default.
	targets := append([]document.StateID(nil), m.doc.Initial...)
	if len(targets) == 0 {
		if roots := m.doc.Children(document.RootID); len(roots) > 0 {
			targets = roots[:1]
		}
	}

	// A synthetic transition from the root: its domain is the root, so
	// the entry set is exactly the initial targets plus their descent.
	boot := &document.Transition{
		Source:  document.RootID,
		Targets: targets,
	}
	res, err := microstep.Apply(m.doc, nil, []*document.Transition{boot}, m.tracker, m.runner, m.ctx, event.Event{}, raise)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.config.Replace(res.Leaves)
	m.mu.Unlock()
	m.setStatus(Stable)
	m.logger.Debug("engine initialized", "machine", m.doc.ID, "leaves", res.Leaves)

	if m.enteredTopLevelFinal(res.Leaves) {
		m.setStatus(Terminated)
		m.snapshotAndPublish(ctx, event.Event{Name: "__initialize__"})
		return nil
	}
	if err := m.runToStability(ctx, event.Event{}, false); err != nil {
		return err
	}
	m.snapshotAndPublish(ctx, event.Event{Name: "__initialize__"})
	return nil
}

// SendEvent delivers an external event and runs the resulting
// macrostep to stability, synchronously. It returns once the machine
// is stable again. Events sent to a terminated machine are ignored.
func (m *Machine) SendEvent(ctx context.Context, evt event.Event) error {
	switch m.Status() {
	case Terminated:
		m.logger.Debug("engine: event ignored, machine terminated", "machine", m.doc.ID, "event", evt.Name)
		return nil
	case Uninitialized:
		return fmt.Errorf("engine: cannot send event before Initialize")
	}

	m.queues.EnqueueExternal(evt)
	for m.Status() == Stable {
		// Internal events left over from a prior step drain first.
		next, ok := m.queues.Dequeue()
		if !ok {
			break
		}
		if err := m.runToStability(ctx, next, true); err != nil {
			return err
		}
	}
	m.snapshotAndPublish(ctx, evt)
	return nil
}

// runToStability drives one macrostep: the triggering event is matched
// exactly once, eventless transitions run to closure after every
// microstep, and (when drainInternal is set) each internally-raised
// event then becomes the current event in turn. The microstep count
// across the whole macrostep is capped to guard against
// transition-cycle livelock.
func (m *Machine) runToStability(ctx context.Context, triggering event.Event, drainInternal bool) error {
	ctx, span := m.tracer.StartMacrostep(ctx, m.doc.ID, triggering.Name)
	defer span.End()

	raise := func(e event.Event) { m.queues.EnqueueInternal(e) }

	current := triggering
	pending := current.Name != "" // current not yet offered to the selector
	steps := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// current stays visible to conditions and actions during the
		// eventless closure; only the matching rule changes.
		active := m.config.AllActive(m.doc)
		transitions := selector.Select(m.doc, active, current, m.ctx, m.eval, true, m.tracker)
		if len(transitions) == 0 && pending {
			pending = false
			transitions = selector.Select(m.doc, active, current, m.ctx, m.eval, false, m.tracker)
		}

		if len(transitions) == 0 {
			if !drainInternal || !m.queues.HasInternal() {
				return nil
			}
			next, _ := m.queues.Dequeue()
			current = next
			pending = true
			continue
		}

		steps++
		if steps > m.eventlessCap {
			m.logger.Warn("engine: microstep cap exceeded, stabilizing anyway", "machine", m.doc.ID, "cap", m.eventlessCap)
			return nil
		}

		_, microSpan := m.tracer.StartMicrostep(ctx, m.doc.ID, len(transitions))
		res, err := microstep.Apply(m.doc, active, transitions, m.tracker, m.runner, m.ctx, current, raise)
		microSpan.End()
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.config.Replace(res.Leaves)
		m.mu.Unlock()
		m.logger.Debug("microstep applied", "machine", m.doc.ID, "event", current.Name, "exited", res.Exited, "entered", res.Entered, "leaves", res.Leaves)

		if m.enteredTopLevelFinal(res.Leaves) {
			m.setStatus(Terminated)
			return nil
		}
	}
}

// enteredTopLevelFinal reports whether any active leaf is a Final child
// of the document root, which terminates the machine.
func (m *Machine) enteredTopLevelFinal(leaves []document.StateID) bool {
	for _, id := range leaves {
		s, ok := m.doc.FindState(id)
		if ok && s.Kind == document.Final && s.Parent == document.RootID {
			return true
		}
	}
	return false
}

func (m *Machine) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

func (m *Machine) snapshotAndPublish(ctx context.Context, evt event.Event) {
	if m.persister != nil {
		snap := m.Snapshot()
		if err := m.persister.Save(ctx, snap); err != nil {
			m.logger.Warn("engine: snapshot save failed", "machine", m.doc.ID, "error", err)
		}
	}
	if m.publisher != nil {
		meta := Metadata{MachineID: m.doc.ID, Transition: fmt.Sprintf("%v", m.config.Leaves())}
		if err := m.publisher.Publish(ctx, evt, meta); err != nil {
			m.logger.Warn("engine: publish failed", "machine", m.doc.ID, "error", err)
		}
	}
	if m.registry != nil {
		if err := m.registry.Register(ctx, m.doc.ID, m.Snapshot()); err != nil {
			m.logger.Warn("engine: registry register failed", "machine", m.doc.ID, "error", err)
		}
	}
}

// ActiveLeaves returns the currently active leaf states, document order.
func (m *Machine) ActiveLeaves() []document.StateID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Leaves()
}

// ActiveAll returns every active state including ancestors, document order.
func (m *Machine) ActiveAll() []document.StateID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.AllActive(m.doc)
}

// IsActive reports whether id is active (leaf or ancestor).
func (m *Machine) IsActive(id document.StateID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Contains(m.doc, id)
}

// IsTerminated reports whether the machine reached a top-level final
// configuration.
func (m *Machine) IsTerminated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status == Terminated
}

// Status returns the interpreter's lifecycle status.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Context returns the machine's data model, for hosts that need direct
// read access (e.g. to seed initial values before Initialize).
func (m *Machine) Context() *datamodel.Context { return m.ctx }

// Document returns the machine's underlying document.
func (m *Machine) Document() *document.Document { return m.doc }
