package provisioning

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/autokube/provisioner/internal/provisioning/fault"
)

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "probe", "execute")
	Message   string            // Human-readable message
	Node      string            // Node name if the event is node-scoped
	Kind      fault.Kind        // Failure kind for failure events
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventPhaseStarted indicates a provisioning phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a provisioning phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a provisioning phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventNodeReachable indicates a node answered the connectivity probe.
	EventNodeReachable EventType = "node.reachable"
	// EventNodeUnreachable indicates a node failed the connectivity probe.
	EventNodeUnreachable EventType = "node.unreachable"
	// EventNodeExcluded indicates a node was dropped from the target set.
	EventNodeExcluded EventType = "node.excluded"
	// EventNodeFailed indicates a node-scoped failure outside probing.
	EventNodeFailed EventType = "node.failed"

	// EventValidationWarning indicates a validation warning.
	EventValidationWarning EventType = "validation.warning"
	// EventValidationError indicates a validation error.
	EventValidationError EventType = "validation.error"

	// EventProgress indicates progress in a long-running operation.
	EventProgress EventType = "progress"
)

// LogrusObserver implements Observer on a logrus entry.
type LogrusObserver struct {
	entry *logrus.Entry
}

// NewLogrusObserver creates an observer writing to logger, or to the
// logrus standard logger when logger is nil.
func NewLogrusObserver(logger *logrus.Logger) *LogrusObserver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusObserver{entry: logrus.NewEntry(logger)}
}

// Printf implements Logger.
func (o *LogrusObserver) Printf(format string, v ...interface{}) {
	o.entry.Infof(format, v...)
}

// Event implements Observer.
func (o *LogrusObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	fields := logrus.Fields{"event": string(event.Type)}
	if event.Phase != "" {
		fields["stage"] = event.Phase
	}
	if event.Node != "" {
		fields["node"] = event.Node
	}
	if event.Kind != "" {
		fields["kind"] = string(event.Kind)
	}
	for k, v := range event.Fields {
		fields[k] = v
	}

	o.entry.WithFields(fields).WithTime(event.Timestamp).Log(levelFor(event.Type), event.Message)
}

// Progress implements Observer.
func (o *LogrusObserver) Progress(phase string, current, total int) {
	entry := o.entry.WithFields(logrus.Fields{"stage": phase, "current": current, "total": total})
	if total == 0 {
		entry.Infof("progress %d/%d", current, total)
		return
	}
	entry.Infof("progress %d/%d (%d%%)", current, total, (current*100)/total)
}

// WithFields implements Observer.
func (o *LogrusObserver) WithFields(fields map[string]string) Observer {
	lf := make(logrus.Fields, len(fields))
	for k, v := range fields {
		lf[k] = v
	}
	return &LogrusObserver{entry: o.entry.WithFields(lf)}
}

func levelFor(t EventType) logrus.Level {
	switch t {
	case EventPhaseFailed, EventNodeFailed, EventValidationError:
		return logrus.ErrorLevel
	case EventNodeUnreachable, EventNodeExcluded, EventValidationWarning:
		return logrus.WarnLevel
	case EventProgress, EventNodeReachable:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event, tagged with the failure's
// kind and node when it carries them.
func LogPhaseFailed(observer Observer, phase string, err error) {
	ev := Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	}
	if fe, ok := fault.As(err); ok {
		ev.Kind = fe.Kind
		ev.Node = fe.Node
	}
	observer.Event(ev)
}

// LogNodeProbed logs the probe outcome of one node.
func LogNodeProbed(observer Observer, phase, node string, ok bool, detail string) {
	if ok {
		observer.Event(Event{Type: EventNodeReachable, Phase: phase, Node: node, Message: "reachable"})
		return
	}
	observer.Event(Event{
		Type:    EventNodeUnreachable,
		Phase:   phase,
		Node:    node,
		Kind:    fault.KindProbe,
		Message: fmt.Sprintf("unreachable: %s", detail),
	})
}

// LogNodeExcluded logs that a node was dropped from the target set.
func LogNodeExcluded(observer Observer, phase, node, reason string) {
	observer.Event(Event{
		Type:    EventNodeExcluded,
		Phase:   phase,
		Node:    node,
		Message: fmt.Sprintf("excluded: %s", reason),
	})
}

// LogWarning logs a non-fatal problem found by a phase.
func LogWarning(observer Observer, phase, msg string) {
	observer.Event(Event{
		Type:    EventValidationWarning,
		Phase:   phase,
		Message: msg,
	})
}
