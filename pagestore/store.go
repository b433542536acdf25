package pagestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/hupe1980/spatialknn/blobstore"
	"github.com/hupe1980/spatialknn/codec"
	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidOptions is returned for inconsistent store options.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrNoMeta is returned by Open when the blob store holds no page store.
	ErrNoMeta = errors.New("page store meta not found")

	// ErrUnknownCodec is returned by Open when the recorded codec is not built in.
	ErrUnknownCodec = errors.New("unknown codec")
)

const (
	metaBlob    = "meta.json"
	pagesPrefix = "pages/"
	metaVersion = 1
)

// meta is the persisted allocator and tree state. It is always encoded with go-json
// so that it can be read before the page codec is known.
type meta struct {
	Version     int            `json:"version"`
	Codec       string         `json:"codec"`
	Compression Compression    `json:"compression"`
	Tree        rtree.Meta     `json:"tree"`
	Next        model.PageID   `json:"next"`
	Free        []model.PageID `json:"free,omitempty"`
}

// IOStats counts blob traffic and cache effectiveness.
type IOStats struct {
	BlobReads    int64
	BlobWrites   int64
	BlobDeletes  int64
	BytesRead    int64
	BytesWritten int64
	CacheHits    int64
	CacheMisses  int64
	Flushes      int64
}

// Store is a write-back rtree.PageStore over a blobstore.BlobStore.
//
// Put and Free only touch memory. Flush writes dirty pages, deletes freed ones and
// records the allocator state together with the tree's Meta. Clean pages are
// served from a ristretto cache of decoded nodes.
//
// A Store supports one writer or many concurrent readers, matching the tree.
type Store[E rtree.Entry] struct {
	blobs   blobstore.BlobStore
	opts    Options
	logger  *slog.Logger
	cache   *ristretto.Cache[uint64, *rtree.Node[E]]
	limiter *rate.Limiter

	mu      sync.RWMutex
	dirty   map[model.PageID]*rtree.Node[E]
	freed   map[model.PageID]struct{} // blobs to delete on Flush
	free    []model.PageID
	freeSet map[model.PageID]struct{}
	next    model.PageID
	live    int64

	reads        atomic.Int64
	writes       atomic.Int64
	blobReads    atomic.Int64
	blobWrites   atomic.Int64
	blobDeletes  atomic.Int64
	bytesRead    atomic.Int64
	bytesWritten atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	flushes      atomic.Int64
}

var _ rtree.PageStore[*rtree.SpatialEntry] = (*Store[*rtree.SpatialEntry])(nil)

// New creates an empty page store. Existing pages under the prefix are ignored
// and overwritten by the next Flush.
func New[E rtree.Entry](blobs blobstore.BlobStore, optFns ...func(o *Options)) (*Store[E], error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return newStore[E](blobs, opts, meta{Next: 1})
}

// Open loads a page store previously written by Flush and returns the tree Meta
// recorded with it. The codec and compression are taken from the store.
func Open[E rtree.Entry](ctx context.Context, blobs blobstore.BlobStore, optFns ...func(o *Options)) (*Store[E], rtree.Meta, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	data, err := blobstore.ReadAll(ctx, blobs, opts.Prefix+metaBlob)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, rtree.Meta{}, fmt.Errorf("%w: %w", ErrNoMeta, err)
		}
		return nil, rtree.Meta{}, err
	}

	var m meta
	if err := (codec.GoJSON{}).Unmarshal(data, &m); err != nil {
		return nil, rtree.Meta{}, fmt.Errorf("decode page store meta: %w", err)
	}
	if m.Version != metaVersion {
		return nil, rtree.Meta{}, fmt.Errorf("unsupported page store version %d", m.Version)
	}
	c, ok := codec.ByName(m.Codec)
	if !ok {
		return nil, rtree.Meta{}, fmt.Errorf("%w: %q", ErrUnknownCodec, m.Codec)
	}
	opts.Codec = c
	opts.Compression = m.Compression

	s, err := newStore[E](blobs, opts, m)
	if err != nil {
		return nil, rtree.Meta{}, err
	}
	s.logger.Debug("page store opened",
		slog.Int("pages", int(s.live)),
		slog.String("codec", m.Codec),
		slog.String("compression", m.Compression.String()),
	)
	return s, m.Tree, nil
}

func newStore[E rtree.Entry](blobs blobstore.BlobStore, opts Options, m meta) (*Store[E], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Store[E]{
		blobs:   blobs,
		opts:    opts,
		logger:  logger,
		dirty:   make(map[model.PageID]*rtree.Node[E]),
		freed:   make(map[model.PageID]struct{}),
		free:    slices.Clone(m.Free),
		freeSet: make(map[model.PageID]struct{}, len(m.Free)),
		next:    m.Next,
	}
	for _, id := range s.free {
		s.freeSet[id] = struct{}{}
	}
	if s.next == model.InvalidPage {
		s.next = 1
	}
	s.live = int64(s.next) - 1 - int64(len(s.free))

	if opts.CacheSize > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[uint64, *rtree.Node[E]]{
			NumCounters:        opts.CacheSize * 10,
			MaxCost:            opts.CacheSize,
			BufferItems:        64,
			IgnoreInternalCost: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create node cache: %w", err)
		}
		s.cache = cache
	}

	if opts.ReadLimit > 0 {
		burst := opts.ReadBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(opts.ReadLimit, burst)
	}
	return s, nil
}

func (s *Store[E]) pageName(id model.PageID) string {
	return fmt.Sprintf("%s%s%016x", s.opts.Prefix, pagesPrefix, uint64(id))
}

// Allocate reserves a page id, reusing freed ids first.
func (s *Store[E]) Allocate() (model.PageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.live++
	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		delete(s.freeSet, id)
		return id, nil
	}
	id := s.next
	s.next++
	return id, nil
}

// Get returns the node stored under id from the dirty set, the cache or the blob store.
func (s *Store[E]) Get(id model.PageID) (*rtree.Node[E], error) {
	s.reads.Add(1)

	s.mu.RLock()
	if n, ok := s.dirty[id]; ok {
		s.mu.RUnlock()
		return n, nil
	}
	_, freed := s.freed[id]
	unknown := freed || !s.allocated(id)
	s.mu.RUnlock()

	if unknown {
		return nil, fmt.Errorf("%w: %v", rtree.ErrPageNotFound, id)
	}

	if s.cache != nil {
		if n, ok := s.cache.Get(uint64(id)); ok {
			s.cacheHits.Add(1)
			return n, nil
		}
		s.cacheMisses.Add(1)
	}

	n, err := s.load(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(uint64(id), n, 1)
	}
	return n, nil
}

func (s *Store[E]) load(ctx context.Context, id model.PageID) (*rtree.Node[E], error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	data, err := blobstore.ReadAll(ctx, s.blobs, s.pageName(id))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", rtree.ErrPageNotFound, id)
		}
		return nil, fmt.Errorf("read %v: %w", id, err)
	}
	s.blobReads.Add(1)
	s.bytesRead.Add(int64(len(data)))

	raw, err := decompressPage(data, s.opts.Compression)
	if err != nil {
		return nil, fmt.Errorf("decompress %v: %w", id, err)
	}

	var n rtree.Node[E]
	if err := s.opts.Codec.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode %v: %w", id, err)
	}
	if n.ID != id {
		return nil, fmt.Errorf("%w: page %v holds node %v", rtree.ErrCorrupt, id, n.ID)
	}
	return &n, nil
}

func (s *Store[E]) allocated(id model.PageID) bool {
	if id == model.InvalidPage || id >= s.next {
		return false
	}
	_, free := s.freeSet[id]
	return !free
}

// Put marks n dirty. It is written by the next Flush.
func (s *Store[E]) Put(n *rtree.Node[E]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated(n.ID) {
		return fmt.Errorf("%w: %v", rtree.ErrPageNotFound, n.ID)
	}
	s.writes.Add(1)
	s.dirty[n.ID] = n
	delete(s.freed, n.ID)
	if s.cache != nil {
		s.cache.Del(uint64(n.ID))
	}
	return nil
}

// Free releases id for reuse. Its blob is deleted by the next Flush.
func (s *Store[E]) Free(id model.PageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allocated(id) {
		return fmt.Errorf("%w: %v", rtree.ErrPageNotFound, id)
	}
	delete(s.dirty, id)
	s.freed[id] = struct{}{}
	s.free = append(s.free, id)
	s.freeSet[id] = struct{}{}
	s.live--
	if s.cache != nil {
		s.cache.Del(uint64(id))
	}
	return nil
}

// Dirty returns the number of pages waiting for Flush.
func (s *Store[E]) Dirty() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dirty)
}

// Flush writes all dirty pages in parallel, deletes freed pages and then records
// tree together with the allocator state. Pages are only marked clean when every
// write succeeded.
func (s *Store[E]) Flush(ctx context.Context, tree rtree.Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.FlushConcurrency)

	for id, n := range s.dirty {
		g.Go(func() error {
			raw, err := s.opts.Codec.Marshal(n)
			if err != nil {
				return fmt.Errorf("encode %v: %w", id, err)
			}
			data, err := compressPage(raw, s.opts.Compression)
			if err != nil {
				return fmt.Errorf("compress %v: %w", id, err)
			}
			if err := s.blobs.Put(gctx, s.pageName(id), data); err != nil {
				return fmt.Errorf("write %v: %w", id, err)
			}
			s.blobWrites.Add(1)
			s.bytesWritten.Add(int64(len(data)))
			return nil
		})
	}
	for id := range s.freed {
		g.Go(func() error {
			if err := s.blobs.Delete(gctx, s.pageName(id)); err != nil {
				return fmt.Errorf("delete %v: %w", id, err)
			}
			s.blobDeletes.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	data, err := (codec.GoJSON{}).Marshal(meta{
		Version:     metaVersion,
		Codec:       s.opts.Codec.Name(),
		Compression: s.opts.Compression,
		Tree:        tree,
		Next:        s.next,
		Free:        s.free,
	})
	if err != nil {
		return fmt.Errorf("encode page store meta: %w", err)
	}
	if err := s.blobs.Put(ctx, s.opts.Prefix+metaBlob, data); err != nil {
		return fmt.Errorf("write page store meta: %w", err)
	}

	if s.cache != nil {
		for id, n := range s.dirty {
			s.cache.Set(uint64(id), n, 1)
		}
		s.cache.Wait()
	}

	s.logger.Debug("page store flushed",
		slog.Int("written", len(s.dirty)),
		slog.Int("deleted", len(s.freed)),
		slog.Int("pages", int(s.live)),
	)

	s.flushes.Add(1)
	s.dirty = make(map[model.PageID]*rtree.Node[E])
	s.freed = make(map[model.PageID]struct{})
	return nil
}

// Stats returns page access counters.
func (s *Store[E]) Stats() rtree.StoreStats {
	s.mu.RLock()
	live := s.live
	s.mu.RUnlock()

	return rtree.StoreStats{
		Reads:  s.reads.Load(),
		Writes: s.writes.Load(),
		Pages:  live,
	}
}

// IOStats returns blob and cache counters.
func (s *Store[E]) IOStats() IOStats {
	return IOStats{
		BlobReads:    s.blobReads.Load(),
		BlobWrites:   s.blobWrites.Load(),
		BlobDeletes:  s.blobDeletes.Load(),
		BytesRead:    s.bytesRead.Load(),
		BytesWritten: s.bytesWritten.Load(),
		CacheHits:    s.cacheHits.Load(),
		CacheMisses:  s.cacheMisses.Load(),
		Flushes:      s.flushes.Load(),
	}
}

// PageIDs returns the ids of all live pages in ascending order.
func (s *Store[E]) PageIDs() []model.PageID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]model.PageID, 0, s.live)
	for id := model.PageID(1); id < s.next; id++ {
		if s.allocated(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close releases the node cache. Unflushed changes are lost.
func (s *Store[E]) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return nil
}
