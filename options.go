package featcache

import (
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/featcache/internal/dispatch"
	"github.com/gogpu/featcache/label"
)

// Option configures a Store during creation.
//
// Example:
//
//	s := featcache.NewStore(
//	    featcache.WithMaterializers(display.Materializers()),
//	    featcache.WithWindowProvider(app),
//	)
type Option func(*options)

type options struct {
	logger         *slog.Logger
	contentChanged func()
	editSink       EditSink
	retry          time.Duration
	materializers  *Materializers
	labelOpts      label.Options
	labelCacheSize int
	registerer     prometheus.Registerer
	snapshotMemo   bool
}

func defaultOptions() options {
	return options{
		retry:        dispatch.DefaultRetryInterval,
		labelOpts:    label.DefaultOptions(),
		snapshotMemo: true,
	}
}

// WithLogger sets the store logger. Without it the package logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithContentChanged sets the callback invoked from the dispatcher goroutine
// when a new query would see different data. It replaces any callback set by
// an earlier option.
func WithContentChanged(fn func()) Option {
	return func(o *options) {
		o.contentChanged = fn
	}
}

// WithWindowProvider requests a redraw from wp whenever content changes.
// gpucontext.NullWindowProvider can be used for headless operation.
func WithWindowProvider(wp gpucontext.WindowProvider) Option {
	return func(o *options) {
		if wp == nil {
			o.contentChanged = nil
			return
		}
		o.contentChanged = wp.RequestRedraw
	}
}

// WithEditSink attaches a sink that receives live updates for objects in edit mode.
func WithEditSink(sink EditSink) Option {
	return func(o *options) {
		o.editSink = sink
	}
}

// WithRedispatchInterval sets how long the dispatcher waits for a query
// after a signal before signalling again. Non-positive values use the default.
func WithRedispatchInterval(d time.Duration) Option {
	return func(o *options) {
		if d <= 0 {
			d = dispatch.DefaultRetryInterval
		}
		o.retry = d
	}
}

// WithMaterializers sets the materializer table. A store without one
// supports no display objects.
func WithMaterializers(m *Materializers) Option {
	return func(o *options) {
		o.materializers = m
	}
}

// WithLabelOptions sets label layout limits and the layout cache size.
// A non-positive cacheSize uses label.DefaultCacheSize.
func WithLabelOptions(opts label.Options, cacheSize int) Option {
	return func(o *options) {
		o.labelOpts = opts
		o.labelCacheSize = cacheSize
	}
}

// WithRegisterer exports store metrics to reg. Each registerer can hold the
// metrics of one store; wrap it with prometheus.WrapRegistererWith to
// register several.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithSnapshotMemo controls whether the ordered record snapshot is reused
// across queries while the live set is unchanged. It is on by default.
func WithSnapshotMemo(on bool) Option {
	return func(o *options) {
		o.snapshotMemo = on
	}
}
