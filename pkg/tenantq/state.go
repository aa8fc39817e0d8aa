package tenantq

import "context"

// State is the lifecycle state of a task builder.
type State int

const (
	// StateUnstarted is a builder that has not run since its last change.
	StateUnstarted State = iota
	// StateStarted is a builder whose current definition has been enqueued.
	StateStarted
)

func (s State) String() string {
	if s == StateStarted {
		return "started"
	}
	return "unstarted"
}

// lifecycle is shared by AsyncTask, Iter and Chain. Changing a started
// builder first purges what its previous run stored, then returns it to
// StateUnstarted.
type lifecycle struct {
	state State
	purge func(ctx context.Context) error
}

func (l *lifecycle) State() State {
	return l.state
}

func (l *lifecycle) started() {
	l.state = StateStarted
}

// mutate runs before every change of the builder definition.
func (l *lifecycle) mutate(ctx context.Context) error {
	if l.state != StateStarted {
		return nil
	}
	if err := l.purge(ctx); err != nil {
		return err
	}
	l.state = StateUnstarted
	return nil
}
