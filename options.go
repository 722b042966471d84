package recall

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"
)

// Options configures a cache handle. The core never reads ambient globals:
// everything it needs arrives here, at construction.
type Options struct {
	// Enabled toggles caching. When false, Call runs the producer directly
	// and touches no storage.
	Enabled bool

	// Strict propagates storage and contention errors instead of degrading
	// to uncached execution.
	Strict bool

	// LockWait bounds how long a call waits for a competing writer before
	// applying the fallback policy. Zero means no wait.
	LockWait time.Duration

	// StaleWriterAfter is the age past which an in-progress generation is
	// presumed crashed and reaped by the next writer.
	StaleWriterAfter time.Duration

	// Logger receives hit/miss decisions at debug level and degraded-path
	// conditions at warn level.
	Logger *slog.Logger

	unions map[reflect.Type][]reflect.Type
	dates  map[reflect.Type]bool
}

func defaultOptions() Options {
	return Options{
		Enabled:          true,
		StaleWriterAfter: 30 * time.Minute,
		Logger:           slog.Default(),
		unions:           map[reflect.Type][]reflect.Type{},
		dates:            map[reflect.Type]bool{reflect.TypeOf(Date{}): true},
	}
}

// Option mutates Options at construction.
type Option func(*Options)

// WithEnabled toggles caching; a disabled cache runs producers directly.
func WithEnabled(enabled bool) Option {
	return func(o *Options) { o.Enabled = enabled }
}

// WithStrict propagates storage and contention errors to the caller instead
// of degrading to uncached execution.
func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

// WithLockWait bounds the wait for a competing writer before falling back.
func WithLockWait(d time.Duration) Option {
	return func(o *Options) { o.LockWait = d }
}

// WithStaleWriterAfter sets the age past which an abandoned in-progress
// generation is reaped.
func WithStaleWriterAfter(d time.Duration) Option {
	return func(o *Options) { o.StaleWriterAfter = d }
}

// WithLogger injects the logger used for cache decisions and degraded paths.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithUnion registers the ordered variant set for an interface type, the
// explicit registry Go shapes need in place of native sum types. The first
// argument is a nil interface pointer, the rest are variant prototype
// values:
//
//	recall.WithUnion((*Shape)(nil), Circle{}, Square{})
//
// Variant order is load-bearing: it feeds the schema fingerprint and breaks
// ties when decoding legacy payloads without a discriminant.
func WithUnion(iface any, variants ...any) Option {
	return func(o *Options) {
		t := reflect.TypeOf(iface)
		if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
			panic(fmt.Sprintf("recall.WithUnion: want a nil interface pointer like (*Shape)(nil), got %T", iface))
		}
		vts := make([]reflect.Type, len(variants))
		for i, v := range variants {
			vts[i] = reflect.TypeOf(v)
		}
		o.unions[t.Elem()] = vts
	}
}

// WithDateType registers an additional type to compile as the date
// primitive. The type must be a struct with integer Year, Month and Day
// fields; recall.Date is registered by default.
func WithDateType(prototype any) Option {
	return func(o *Options) { o.dates[reflect.TypeOf(prototype)] = true }
}

// DefaultDir returns the default directory for cache databases, rooted at
// the user cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(base, "recall"), nil
}
