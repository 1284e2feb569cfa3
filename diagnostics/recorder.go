package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/vismatch/blobstore"
	"github.com/hupe1980/vismatch/codec"
	"github.com/hupe1980/vismatch/model"
	"golang.org/x/time/rate"
)

// Extension is the file extension of snapshot blobs.
const Extension = ".vmr"

// Options configures a Recorder.
type Options struct {
	// Codec encodes refsets. Defaults to codec.Default.
	Codec codec.Codec
	// Compression is applied to the encoded refset.
	Compression Compression
	// Prefix is prepended to every blob name. Defaults to "refsets/".
	Prefix string
	// Limit is the sustained number of snapshots per second. Zero or
	// negative disables rate limiting.
	Limit float64
	// Burst is the number of snapshots allowed above Limit.
	Burst int
	// Timeout bounds a single store write.
	Timeout time.Duration
	// Logger receives export failures. Defaults to a discarding logger.
	Logger *slog.Logger
}

// DefaultOptions contains the default recorder settings.
var DefaultOptions = Options{
	Codec:       codec.Default,
	Compression: CompressionZSTD,
	Prefix:      "refsets/",
	Limit:       0,
	Burst:       1,
	Timeout:     10 * time.Second,
}

// WithCodec sets the codec.
func WithCodec(c codec.Codec) func(*Options) {
	return func(o *Options) { o.Codec = c }
}

// WithCompression sets the compression algorithm.
func WithCompression(c Compression) func(*Options) {
	return func(o *Options) { o.Compression = c }
}

// WithPrefix sets the blob name prefix.
func WithPrefix(prefix string) func(*Options) {
	return func(o *Options) { o.Prefix = prefix }
}

// WithRateLimit caps snapshots to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) func(*Options) {
	return func(o *Options) {
		o.Limit = perSecond
		o.Burst = burst
	}
}

// WithTimeout bounds each store write.
func WithTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.Timeout = d }
}

// WithLogger sets the logger for export failures.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// Stats counts recorder outcomes.
type Stats struct {
	Written int64
	Dropped int64
	Failed  int64
}

// Recorder writes a snapshot of every observed enrollment to a Store.
// It is safe for concurrent use.
type Recorder struct {
	store   blobstore.Store
	opts    Options
	limiter *rate.Limiter

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store blobstore.Store, optFns ...func(*Options)) *Recorder {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	limit := rate.Inf
	if opts.Limit > 0 {
		limit = rate.Limit(opts.Limit)
	}

	return &Recorder{
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(limit, max(1, opts.Burst)),
	}
}

// ObserveEnrollment encodes refset and writes it to the store. Failures are
// logged and counted.
func (r *Recorder) ObserveEnrollment(ctx context.Context, refset model.Refset) {
	_, err := r.Record(ctx, refset)
	switch {
	case err == nil:
	case errors.Is(err, ErrRateLimited):
		r.opts.Logger.DebugContext(ctx, "refset export dropped", slog.Int("image_id", refset.ImageID))
	default:
		r.opts.Logger.WarnContext(ctx, "refset export failed",
			slog.Int("image_id", refset.ImageID),
			slog.String("error", err.Error()),
		)
	}
}

// ErrRateLimited is returned by Record when the snapshot was dropped by the
// rate limiter.
var ErrRateLimited = errors.New("diagnostics: rate limited")

// Record writes refset and returns the blob name.
func (r *Recorder) Record(ctx context.Context, refset model.Refset) (string, error) {
	if !r.limiter.Allow() {
		r.dropped.Add(1)
		return "", ErrRateLimited
	}

	data, err := Encode(refset, r.opts.Codec, r.opts.Compression)
	if err != nil {
		r.failed.Add(1)
		return "", err
	}

	// The snapshot outlives a cancelled enrollment context.
	ctx = context.WithoutCancel(ctx)
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	name := r.name(refset.ImageID)
	if err := r.store.Put(ctx, name, data); err != nil {
		r.failed.Add(1)
		return "", fmt.Errorf("diagnostics: put %s: %w", name, err)
	}

	r.written.Add(1)
	return name, nil
}

func (r *Recorder) name(imageID int) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return r.opts.Prefix + strconv.Itoa(imageID) + "/" + id.String() + Extension
}

// Stats returns a snapshot of the outcome counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Written: r.written.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
	}
}

// List returns the snapshot names recorded for imageID, oldest first.
func List(ctx context.Context, store blobstore.Store, prefix string, imageID int) ([]string, error) {
	names, err := store.List(ctx, prefix+strconv.Itoa(imageID)+"/")
	if err != nil {
		return nil, err
	}

	out := names[:0]
	for _, n := range names {
		if strings.HasSuffix(n, Extension) {
			out = append(out, n)
		}
	}
	return out, nil
}

// Load reads and decodes the snapshot stored under name. Stores that
// implement blobstore.Viewer are decoded in place.
func Load(ctx context.Context, store blobstore.Store, name string) (model.Refset, error) {
	var refset model.Refset
	decode := func(data []byte) error {
		var err error
		if refset, _, err = Decode(data); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	if v, ok := store.(blobstore.Viewer); ok {
		if err := v.View(ctx, name, decode); err != nil {
			return model.Refset{}, err
		}
		return refset, nil
	}

	data, err := store.Get(ctx, name)
	if err != nil {
		return model.Refset{}, err
	}
	if err := decode(data); err != nil {
		return model.Refset{}, err
	}
	return refset, nil
}
