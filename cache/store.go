package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/furechan/tempcache/observe"
)

const (
	// DefaultName is the directory created under os.TempDir when no root is
	// configured.
	DefaultName = "tempcache"

	// DefaultDirPerm is the permission used when creating the store root.
	DefaultDirPerm os.FileMode = 0o700

	itemSuffix = ".tmp"
)

var (
	invalidNameRe = regexp.MustCompile(`\.\.|/|\\`)
	prefixRe      = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	digestRe      = regexp.MustCompile(`^[0-9a-f]+$`)
)

// Config configures a Store.
type Config struct {
	// Name is the directory name under os.TempDir used when Root is empty.
	// Default: "tempcache"
	Name string

	// Root is the directory holding the items. It is created with its parents
	// when missing.
	Root string

	// MaxAge is how long an item stays valid after its last write. It must be
	// positive.
	MaxAge time.Duration

	// Source is mixed into every digest so that otherwise identical keys from
	// different programs do not collide. Ignored when Keyer is set.
	Source string

	// Prefix namespaces item files as <prefix>-<digest>.tmp.
	Prefix string

	// Serializer encodes item content.
	// Default: GobSerializer
	Serializer Serializer

	// Keyer derives digests from keys.
	// Default: DefaultKeyer salted with Source
	Keyer Keyer

	// Clock supplies the time for expiry decisions.
	// Default: SystemClock
	Clock Clock

	// DirPerm is the permission for created directories.
	// Default: 0o700
	DirPerm os.FileMode

	// Observer receives logs, metrics and spans.
	// Default: observe.NopMiddleware()
	Observer *observe.Middleware

	// Breaker configures the I/O breaker used by GetOrCompute.
	Breaker BreakerConfig
}

// DefaultConfig returns a configuration for the "tempcache" directory under
// os.TempDir with a one week max age.
func DefaultConfig() Config {
	return Config{
		Name:   DefaultName,
		MaxAge: DefaultMaxAge,
	}
}

// Validate checks the configuration without touching the filesystem.
func (c Config) Validate() error {
	if err := (Policy{MaxAge: c.MaxAge}).Validate(); err != nil {
		return err
	}
	if c.Name != "" && invalidNameRe.MatchString(c.Name) {
		return fmt.Errorf("%w: invalid name %q", ErrConfiguration, c.Name)
	}
	if c.Prefix != "" {
		if !prefixRe.MatchString(c.Prefix) || strings.Contains(c.Prefix, "..") {
			return fmt.Errorf("%w: invalid prefix %q", ErrConfiguration, c.Prefix)
		}
	}
	return nil
}

// Store maps cache keys to item files in one flat directory and enforces a
// max-age expiry policy. A Store is safe for concurrent use; several
// processes may share a directory.
type Store struct {
	root       string
	name       string
	source     string
	prefix     string
	policy     Policy
	serializer Serializer
	keyer      Keyer
	clock      Clock
	dirPerm    os.FileMode
	pattern    *regexp.Regexp

	mw      *observe.Middleware
	meta    observe.StoreMeta
	log     observe.Logger
	breaker *breaker

	flight   singleflight.Group
	sweeping atomic.Bool
}

// Open validates cfg, creates the root directory if needed and returns a
// Store. All failures wrap ErrConfiguration.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = DefaultName
	}
	root := cfg.Root
	if root == "" {
		root = filepath.Join(os.TempDir(), name)
	} else if cfg.Name == "" {
		name = filepath.Base(root)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root: %w", ErrConfiguration, err)
	}

	perm := cfg.DirPerm
	if perm == 0 {
		perm = DefaultDirPerm
	}
	if err := os.MkdirAll(root, perm); err != nil {
		return nil, fmt.Errorf("%w: create root: %w", ErrConfiguration, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: stat root: %w", ErrConfiguration, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", ErrConfiguration, root)
	}

	s := &Store{
		root:       root,
		name:       name,
		source:     cfg.Source,
		prefix:     cfg.Prefix,
		policy:     Policy{MaxAge: cfg.MaxAge},
		serializer: cfg.Serializer,
		keyer:      cfg.Keyer,
		clock:      cfg.Clock,
		dirPerm:    perm,
		mw:         cfg.Observer,
	}
	if s.serializer == nil {
		s.serializer = GobSerializer{}
	}
	if s.keyer == nil {
		s.keyer = NewDefaultKeyer(cfg.Source)
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.mw == nil {
		s.mw = observe.NopMiddleware()
	}

	if s.prefix != "" {
		s.pattern = regexp.MustCompile(`^` + regexp.QuoteMeta(s.prefix) + `-[0-9a-f]+\.tmp$`)
	} else {
		s.pattern = regexp.MustCompile(`^[0-9a-f]+\.tmp$`)
	}

	s.meta = observe.StoreMeta{Name: name, Root: root, Source: cfg.Source, Prefix: cfg.Prefix}
	s.log = s.mw.Logger(s.meta)
	s.breaker = newBreaker(cfg.Breaker, s.clock, func(from, to BreakerState) {
		s.log.Warn(context.Background(), "io breaker state changed",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
	})

	return s, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// MaxAge returns the configured max age.
func (s *Store) MaxAge() time.Duration { return s.policy.MaxAge }

// Source returns the digest salt.
func (s *Store) Source() string { return s.source }

// Prefix returns the item file prefix.
func (s *Store) Prefix() string { return s.prefix }

// Keyer returns the keyer used for digests.
func (s *Store) Keyer() Keyer { return s.keyer }

// Meta returns the store's telemetry identity.
func (s *Store) Meta() observe.StoreMeta { return s.meta }

// BreakerState returns the state of the I/O breaker.
func (s *Store) BreakerState() BreakerState { return s.breaker.State() }

func (s *Store) String() string {
	return fmt.Sprintf("Store(%q)", s.root)
}

// Expiry returns the current expiry threshold: items last written before it
// are expired.
func (s *Store) Expiry() time.Time {
	return s.policy.Threshold(s.clock.Now())
}

// fileName returns the item file name for digest.
func (s *Store) fileName(digest string) string {
	if s.prefix != "" {
		return s.prefix + "-" + digest + itemSuffix
	}
	return digest + itemSuffix
}

// owns reports whether a directory entry name is an item of this store.
func (s *Store) owns(name string) bool {
	return s.pattern.MatchString(name)
}

func (s *Store) item(path string) *Item {
	return &Item{path: path, store: s}
}

// ItemForDigest returns the item for a lowercase hex digest. An expired item
// file is deleted before returning, so the item reads as absent. The item is
// returned whether or not it exists.
func (s *Store) ItemForDigest(ctx context.Context, digest string) (*Item, error) {
	if !digestRe.MatchString(digest) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDigest, digest)
	}

	it := s.item(filepath.Join(s.root, s.fileName(digest)))
	if it.OlderThan(s.Expiry()) {
		if err := it.Delete(ctx); err != nil {
			s.reportFailure(ctx, "expire", it.path, err)
		}
	}
	return it, nil
}

// ItemForKey digests key and returns its item.
func (s *Store) ItemForKey(ctx context.Context, key any) (*Item, error) {
	digest, err := s.keyer.Digest(key)
	if err != nil {
		return nil, err
	}
	return s.ItemForDigest(ctx, digest)
}

// ItemForCall binds args and kwargs against sig and returns the item for the
// resulting call.
func (s *Store) ItemForCall(ctx context.Context, sig Signature, args []any, kwargs map[string]any) (*Item, error) {
	digest, err := DigestCall(s.keyer, sig, args, kwargs)
	if err != nil {
		return nil, err
	}
	return s.ItemForDigest(ctx, digest)
}

// reportFailure logs and counts an error the store absorbs, and feeds the
// I/O breaker.
func (s *Store) reportFailure(ctx context.Context, op, path string, err error) {
	s.mw.Failure(ctx, s.meta, op, path, err)
	s.breaker.record(err)
}
