package queue

// TaskOption is a functional option for AsyncTask and AsyncChain
type TaskOption func(*Options)

// WithOptions replaces all options with o
func WithOptions(o Options) TaskOption {
	return func(dst *Options) {
		*dst = o
	}
}

// WithTaskName sets a human readable task name
func WithTaskName(name string) TaskOption {
	return func(o *Options) {
		if name != "" {
			o.Name = name
		}
	}
}

// WithGroup assigns the task to a group
func WithGroup(group string) TaskOption {
	return func(o *Options) {
		o.Group = group
	}
}

// WithCached stores the result in the broker cache instead of the result store
func WithCached(cached bool) TaskOption {
	return func(o *Options) {
		o.Cached = cached
	}
}

// WithSync executes the task on the calling goroutine
func WithSync(sync bool) TaskOption {
	return func(o *Options) {
		o.Sync = sync
	}
}

// WithSave controls whether successful results are stored. Failures are always stored.
func WithSave(save bool) TaskOption {
	return func(o *Options) {
		o.Save = save
	}
}

// WithHook names a registered hook called with the task result
func WithHook(hook string) TaskOption {
	return func(o *Options) {
		o.Hook = hook
	}
}

// WithBroker overrides the cluster broker for a single task
func WithBroker(b Broker) TaskOption {
	return func(o *Options) {
		if b != nil {
			o.Broker = b
		}
	}
}

// WithChain attaches the links to run after the task, in order
func WithChain(links []Link) TaskOption {
	return func(o *Options) {
		o.Chain = links
	}
}

// WithIterCount marks the task as one of n members of an iter group
func WithIterCount(n int) TaskOption {
	return func(o *Options) {
		if n >= 0 {
			o.IterCount = n
		}
	}
}

// WithIterCached keeps the collated iter result in the cache instead of the result store
func WithIterCached(cached bool) TaskOption {
	return func(o *Options) {
		o.IterCached = cached
	}
}

// NewOptions applies opts on top of DefaultOptions
func NewOptions(opts ...TaskOption) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
