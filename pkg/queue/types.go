package queue

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// SchemaKwarg is the keyword argument that carries the tenant schema of a task.
// Workers enter this schema before the task function runs.
const SchemaKwarg = "schema_name"

// Link is one step of a chain: a function with its arguments.
type Link struct {
	Func   string         `json:"func"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// NewLink creates a chain link.
func NewLink(fn string, args []any, kwargs map[string]any) Link {
	return Link{Func: fn, Args: args, Kwargs: kwargs}
}

// Schema returns the schema carried by the link's kwargs.
func (l Link) Schema() string {
	return schemaOf(l.Kwargs)
}

// Task is the package handed to a broker. It is signed before transport and
// owned by the cluster once enqueued.
type Task struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Func       string         `json:"func"`
	Args       []any          `json:"args,omitempty"`
	Kwargs     map[string]any `json:"kwargs,omitempty"`
	Group      string         `json:"group,omitempty"`
	Chain      []Link         `json:"chain,omitempty"`
	Cached     bool           `json:"cached,omitempty"`
	Sync       bool           `json:"sync,omitempty"`
	Save       bool           `json:"save"`
	Hook       string         `json:"hook,omitempty"`
	IterCount  int            `json:"iter_count,omitempty"`
	IterCached bool           `json:"iter_cached,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Schema returns the schema the task must execute in, or "" when none was attached.
func (t *Task) Schema() string {
	return schemaOf(t.Kwargs)
}

// Result is the record of a finished task. Synchronous and worker execution
// produce the same shape.
type Result struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Func    string          `json:"func"`
	Args    []any           `json:"args,omitempty"`
	Kwargs  map[string]any  `json:"kwargs,omitempty"`
	Group   string          `json:"group,omitempty"`
	Value   json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Success bool            `json:"success"`
	Started time.Time       `json:"started"`
	Stopped time.Time       `json:"stopped"`
}

// Schema returns the schema the task ran in.
func (r *Result) Schema() string {
	return schemaOf(r.Kwargs)
}

// Duration returns how long the task ran.
func (r *Result) Duration() time.Duration {
	return r.Stopped.Sub(r.Started)
}

// Decode unmarshals the task's return value into v.
func (r *Result) Decode(v any) error {
	if len(r.Value) == 0 {
		return fmt.Errorf("task %s has no result value", r.ID)
	}
	return json.Unmarshal(r.Value, v)
}

// Options are the per-task settings understood by the cluster.
// There is a single options structure; kwargs are reserved for the task function.
type Options struct {
	Name   string
	Group  string
	Cached bool
	Sync   bool
	Save   bool
	Hook   string
	// Broker overrides the cluster broker for this task. Never serialized.
	Broker Broker

	Chain      []Link
	IterCount  int
	IterCached bool
}

// DefaultOptions returns the options used when nothing is specified.
func DefaultOptions() Options {
	return Options{Save: true}
}

// ScheduleKind selects how a schedule entry advances after each run.
type ScheduleKind string

const (
	ScheduleOnce      ScheduleKind = "once"
	ScheduleMinutes   ScheduleKind = "minutes"
	ScheduleHourly    ScheduleKind = "hourly"
	ScheduleDaily     ScheduleKind = "daily"
	ScheduleWeekly    ScheduleKind = "weekly"
	ScheduleMonthly   ScheduleKind = "monthly"
	ScheduleQuarterly ScheduleKind = "quarterly"
	ScheduleYearly    ScheduleKind = "yearly"
)

// RepeatForever marks a schedule entry that never runs out of repeats.
const RepeatForever = -1

// ScheduleEntry is a recurring or one-shot task definition stored per schema.
type ScheduleEntry struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Func    string         `json:"func"`
	Args    []any          `json:"args,omitempty"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	Hook    string         `json:"hook,omitempty"`
	Kind    ScheduleKind   `json:"kind"`
	Minutes int            `json:"minutes,omitempty"`
	Repeats int            `json:"repeats"`
	NextRun time.Time      `json:"next_run"`
	LastRun *time.Time     `json:"last_run,omitempty"`
	Task    string         `json:"task,omitempty"`
}

// Schema returns the schema the scheduled task runs in.
func (e *ScheduleEntry) Schema() string {
	return schemaOf(e.Kwargs)
}

func schemaOf(kwargs map[string]any) string {
	if kwargs == nil {
		return ""
	}
	s, _ := kwargs[SchemaKwarg].(string)
	return s
}

// withoutSchema returns a copy of kwargs without the schema entry.
func withoutSchema(kwargs map[string]any) map[string]any {
	out := make(map[string]any, len(kwargs))
	maps.Copy(out, kwargs)
	delete(out, SchemaKwarg)
	return out
}
