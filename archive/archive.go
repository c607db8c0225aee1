package archive

import (
	"os"
	"sort"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/ctf"
	"github.com/wippyai/ctf/container"
	"github.com/wippyai/ctf/errors"
	"github.com/wippyai/ctf/format"
)

// DefaultCacheSize is the number of open member containers kept alive
// when no explicit size is configured.
const DefaultCacheSize = 8

// Option configures an opened archive.
type Option func(*config)

type config struct {
	cacheSize int
}

// WithCacheSize sets how many member containers the archive keeps open.
func WithCacheSize(n int) Option {
	return func(cfg *config) { cfg.cacheSize = n }
}

// Archive is a read-only collection of dictionaries backed by a single
// buffer, either mapped from a file or supplied by the caller. It is safe
// for concurrent use.
type Archive struct {
	mu      sync.Mutex
	data    []byte
	unmap   func() error
	entries []format.ArchiveEntry
	cache   *lru.Cache[string, *container.Container]
	closed  bool

	// opening holds member names currently being opened so a parent
	// chain that loops back on itself is caught instead of recursing.
	opening map[string]struct{}

	// evictErr collects close errors from evicted members; surfaced by
	// Close.
	evictErr error

	// live counts the archive handle plus every member container still
	// holding a view into data; the backing is released when it drops
	// to zero.
	live atomic.Int32
}

// OpenBytes opens an archive over a caller-owned buffer. The buffer must
// stay valid until the archive and every container obtained from it are
// closed.
func OpenBytes(data []byte, opts ...Option) (*Archive, error) {
	return open(data, nil, opts...)
}

// OpenFile memory-maps path and opens it as an archive. On platforms
// without mmap support the file is read into memory instead.
func OpenFile(path string, opts ...Option) (*Archive, error) {
	data, unmap, err := mapFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseArchive, errors.KindParse).
			Path(path).
			Detail("cannot map archive").
			Cause(err).
			Build()
	}
	a, err := open(data, unmap, opts...)
	if err != nil {
		if unmap != nil {
			_ = unmap()
		}
		return nil, err
	}
	return a, nil
}

func open(data []byte, unmap func() error, opts ...Option) (*Archive, error) {
	cfg := config{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheSize < 1 {
		cfg.cacheSize = 1
	}

	entries, err := format.DecodeArchive(data)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		data:    data,
		unmap:   unmap,
		entries: entries,
		opening: make(map[string]struct{}),
	}
	a.live.Store(1)
	a.cache, err = lru.NewWithEvict(cfg.cacheSize,
		func(_ string, c *container.Container) {
			if cerr := c.Close(); cerr != nil {
				a.evictErr = multierr.Append(a.evictErr, cerr)
			}
		})
	if err != nil {
		return nil, errors.Corrupt(errors.PhaseArchive, "cache init: %v", err)
	}

	Logger().Debug("archive opened",
		zap.Int("members", len(entries)),
		zap.Int("bytes", len(data)),
		zap.Bool("mapped", unmap != nil))
	return a, nil
}

// Len returns the number of members.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Names returns the member names in sorted order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Get opens the named member, attaching its parent member automatically
// when the member's header names one. The returned container holds its
// own reference and must be closed by the caller; the archive keeps its
// cached copy until eviction or Close.
func (a *Archive) Get(name string) (*container.Container, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getLocked(name)
}

func (a *Archive) getLocked(name string) (*container.Container, error) {
	if a.closed {
		return nil, errors.Closed(errors.PhaseArchive, "archive")
	}
	if c, ok := a.cache.Get(name); ok {
		return c.Ref(), nil
	}

	i := sort.Search(len(a.entries), func(i int) bool { return a.entries[i].Name >= name })
	if i >= len(a.entries) || a.entries[i].Name != name {
		return nil, errors.NotFound(errors.PhaseArchive, "archive member", name)
	}
	e := a.entries[i]

	if _, busy := a.opening[name]; busy {
		return nil, errors.Corrupt(errors.PhaseArchive,
			"parent chain cycles through member %q", name)
	}
	a.opening[name] = struct{}{}
	defer delete(a.opening, name)

	c, err := container.Open(ctf.Section{Name: name, Data: a.data[e.Off : e.Off+e.Size]})
	if err != nil {
		return nil, errors.New(errors.PhaseArchive, errors.KindParse).
			Path(name).
			Detail("cannot open archive member").
			Cause(err).
			Build()
	}
	a.live.Add(1)
	c.SetReleaseHook(a.release)

	if _, pname := c.ParentNames(); pname != "" && pname != name {
		parent, err := a.getLocked(pname)
		if err != nil {
			_ = c.Close()
			return nil, errors.New(errors.PhaseArchive, errors.KindNotFound).
				Path(name).
				Detail("parent member %q", pname).
				Cause(err).
				Build()
		}
		err = c.Import(parent)
		// Import took its own reference on success; ours is dropped
		// either way
		_ = parent.Close()
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}

	a.cache.Add(name, c)
	return c.Ref(), nil
}

// EachMember calls fn with every member name and its opened container,
// in name order. The container is only valid for the duration of the
// call. Iteration stops at the first error or when fn returns false.
func (a *Archive) EachMember(fn func(name string, c *container.Container) bool) error {
	for _, name := range a.Names() {
		c, err := a.Get(name)
		if err != nil {
			return err
		}
		keep := fn(name, c)
		if err := c.Close(); err != nil {
			return err
		}
		if !keep {
			return nil
		}
	}
	return nil
}

// Close evicts all cached members and releases the backing buffer once
// the last outstanding member container is closed. Member close errors,
// including earlier eviction-path ones, are aggregated in the return.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.cache.Purge()
	err := a.evictErr
	a.evictErr = nil
	a.mu.Unlock()

	a.release()
	return err
}

func (a *Archive) release() {
	if a.live.Add(-1) != 0 {
		return
	}
	if a.unmap != nil {
		if err := a.unmap(); err != nil {
			Logger().Warn("archive unmap failed", zap.Error(err))
		}
		a.unmap = nil
	}
	Logger().Debug("archive backing released")
}

// Write serializes members into an archive image.
func Write(members []ctf.Section) ([]byte, error) {
	return format.EncodeArchive(members)
}

// WriteFile serializes members into an archive file at path.
func WriteFile(path string, members []ctf.Section) (err error) {
	data, err := format.EncodeArchive(members)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.PhaseArchive, errors.KindParse).
			Path(path).
			Detail("cannot create archive").
			Cause(err).
			Build()
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	if _, err := f.Write(data); err != nil {
		return errors.New(errors.PhaseArchive, errors.KindParse).
			Path(path).
			Detail("cannot write archive").
			Cause(err).
			Build()
	}
	return nil
}
