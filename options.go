package framegraph

// Default driver limits.
const (
	// DefaultMaxIdleFrames is how many frames an idle transient resource
	// is kept before it is destroyed.
	DefaultMaxIdleFrames = 8

	// DefaultMaxIdlePerDescriptor caps idle transient resources per descriptor.
	DefaultMaxIdlePerDescriptor = 16
)

// DriverOption configures a Driver during creation.
//
// Example:
//
//	drv := framegraph.NewDriver(dev,
//		framegraph.WithMaxIdleFrames(4),
//		framegraph.WithObserver(metrics.NewObserver(reg)),
//	)
type DriverOption func(*driverOptions)

// driverOptions holds optional configuration for Driver creation.
type driverOptions struct {
	maxIdleFrames        int
	maxIdlePerDescriptor int
	observer             Observer
	labelPrefix          string
}

// defaultDriverOptions returns the default driver options.
func defaultDriverOptions() driverOptions {
	return driverOptions{
		maxIdleFrames:        DefaultMaxIdleFrames,
		maxIdlePerDescriptor: DefaultMaxIdlePerDescriptor,
		labelPrefix:          "framegraph",
	}
}

// WithMaxIdleFrames sets how many retired frames an unused transient
// resource survives in the cache. A negative value keeps idle resources
// until the driver is closed.
func WithMaxIdleFrames(n int) DriverOption {
	return func(o *driverOptions) {
		o.maxIdleFrames = n
	}
}

// WithMaxIdlePerDescriptor caps how many idle resources with the same
// descriptor the cache keeps. The oldest are destroyed first. Zero or a
// negative value means no limit.
func WithMaxIdlePerDescriptor(n int) DriverOption {
	return func(o *driverOptions) {
		o.maxIdlePerDescriptor = n
	}
}

// WithObserver installs an Observer notified once per finished frame.
func WithObserver(obs Observer) DriverOption {
	return func(o *driverOptions) {
		o.observer = obs
	}
}

// WithLabelPrefix sets the prefix of the debug labels passed to
// Device.CreateResource.
func WithLabelPrefix(prefix string) DriverOption {
	return func(o *driverOptions) {
		o.labelPrefix = prefix
	}
}
