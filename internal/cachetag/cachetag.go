// Package cachetag is a tag-indexed read cache. Reads declare the tags they
// provide, writes declare the tags they invalidate, and active reads holding
// an invalidated tag are re-executed so their subscribers see fresh data.
package cachetag

import (
	"context"
	"strings"
	"sync"
	"time"
)

// ListID is the sentinel id for collection reads.
const ListID = "LIST"

// PathType tags server-side reads by the site page they feed.
const PathType = "Path"

// Tag identifies an entity (Type + ID) or a collection (ID == ListID).
// An invalidation tag with an empty ID matches every id of its type.
type Tag struct {
	Type string
	ID   string
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}

	return t.Type + ":" + t.ID
}

func (t Tag) covers(provided Tag) bool {
	return t.Type == provided.Type && (t.ID == "" || t.ID == provided.ID)
}

// Typed builds a tag for type with the given id.
func Typed(typ, id string) Tag { return Tag{Type: typ, ID: id} }

// List builds the collection tag for typ.
func List(typ string) Tag { return Tag{Type: typ, ID: ListID} }

// Path builds the page tag for a site path such as "/blog/leg-day".
// Trailing slashes are ignored.
func Path(p string) Tag {
	p = "/" + strings.Trim(strings.TrimSpace(p), "/")

	return Tag{Type: PathType, ID: p}
}

// Fetcher executes a read and reports the tags it provides.
type Fetcher func(ctx context.Context) (interface{}, []Tag, error)

// Result is delivered to subscribers after every load. On a failed load
// Value still holds the previously cached value, if any.
type Result struct {
	Value     interface{}
	Err       error
	FetchedAt time.Time
}

type Option func(*Store)

// WithTTL expires entries ttl after their last successful fetch. Zero keeps
// entries until invalidated.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithFetchTimeout bounds each shared fetch. Callers leaving early do not
// cancel it.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) { s.fetchTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithObserver is called with the number of entries each Invalidate marked.
func WithObserver(fn func(ctx context.Context, n int)) Option {
	return func(s *Store) { s.observe = fn }
}

type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSub int

	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	observe      func(ctx context.Context, n int)
}

type entry struct {
	fetch     Fetcher
	value     interface{}
	hasValue  bool
	tags      []Tag
	fetchedAt time.Time
	stale     bool
	gen       int
	call      *call
	subs      map[int]func(Result)
}

type call struct {
	done chan struct{}
	res  Result
}

func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Query returns the cached value for key when it is fresh and otherwise runs
// fetch. Concurrent queries for one key share a single fetch.
func (s *Store) Query(ctx context.Context, key string, fetch Fetcher) (interface{}, error) {
	s.mu.Lock()
	e := s.entryLocked(key, fetch)
	if s.freshLocked(e) {
		v := e.value
		s.mu.Unlock()

		return v, nil
	}
	res := s.loadLocked(ctx, key, e)

	return res.Value, res.Err
}

// Subscribe registers an active read. fn is called with the current value
// (fetching it if needed) and again after every refetch triggered by
// invalidation. The returned func tears the subscription down.
func (s *Store) Subscribe(ctx context.Context, key string, fetch Fetcher, fn func(Result)) func() {
	s.mu.Lock()
	e := s.entryLocked(key, fetch)
	id := s.nextSub
	s.nextSub++
	e.subs[id] = fn

	cancel := func() {
		s.mu.Lock()
		delete(e.subs, id)
		s.mu.Unlock()
	}

	if s.freshLocked(e) {
		res := Result{Value: e.value, FetchedAt: e.fetchedAt}
		s.mu.Unlock()
		fn(res)

		return cancel
	}
	s.loadLocked(ctx, key, e)

	return cancel
}

// Peek returns the cached value for key without fetching.
func (s *Store) Peek(key string) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.hasValue {
		return Result{}, false
	}

	return Result{Value: e.value, FetchedAt: e.fetchedAt}, true
}

// Invalidate marks every entry providing one of tags as stale and re-executes
// the ones with subscribers before returning. It reports how many entries
// were marked.
func (s *Store) Invalidate(ctx context.Context, tags ...Tag) int {
	if len(tags) == 0 {
		return 0
	}

	s.mu.Lock()
	var active []string
	n := 0
	for key, e := range s.entries {
		if !e.provides(tags) {
			continue
		}
		n++
		e.stale = true
		e.gen++
		if len(e.subs) > 0 {
			active = append(active, key)
		}
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, key := range active {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			s.refetch(ctx, key)
		}(key)
	}
	wg.Wait()

	if s.observe != nil {
		s.observe(ctx, n)
	}

	return n
}

// Mutate runs a write and, only when it succeeds, invalidates the tags
// returned by invalidates. A failed write leaves the cache untouched.
func (s *Store) Mutate(ctx context.Context, write func(ctx context.Context) (interface{}, error), invalidates func(result interface{}) []Tag) (interface{}, error) {
	v, err := write(ctx)
	if err != nil {
		return nil, err
	}
	if invalidates != nil {
		s.Invalidate(ctx, invalidates(v)...)
	}

	return v, nil
}

// Sweep drops expired entries nobody subscribes to.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, e := range s.entries {
		if len(e.subs) > 0 || e.call != nil || s.freshLocked(e) {
			continue
		}
		delete(s.entries, key)
		n++
	}

	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// refetch waits out any load already in flight (it may predate the
// invalidation) and then loads key again.
func (s *Store) refetch(ctx context.Context, key string) {
	for {
		s.mu.Lock()
		e, ok := s.entries[key]
		if !ok || len(e.subs) == 0 {
			s.mu.Unlock()

			return
		}
		if c := e.call; c != nil {
			s.mu.Unlock()
			select {
			case <-c.done:
				continue
			case <-ctx.Done():
				return
			}
		}
		s.loadLocked(ctx, key, e)

		return
	}
}

func (s *Store) entryLocked(key string, fetch Fetcher) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{subs: make(map[int]func(Result))}
		s.entries[key] = e
	}
	e.fetch = fetch

	return e
}

func (s *Store) freshLocked(e *entry) bool {
	if !e.hasValue || e.stale {
		return false
	}

	return s.ttl <= 0 || s.now().Sub(e.fetchedAt) < s.ttl
}

// loadLocked is entered with s.mu held and returns with it released. The
// fetch is shared by every concurrent caller, so it runs detached from ctx;
// ctx only bounds how long this caller waits for it.
func (s *Store) loadLocked(ctx context.Context, key string, e *entry) Result {
	c := e.call
	if c == nil {
		c = &call{done: make(chan struct{})}
		e.call = c
		go s.run(context.WithoutCancel(ctx), key, e, c, e.gen, e.fetch)
	}
	s.mu.Unlock()

	select {
	case <-c.done:
		return c.res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	}
}

func (s *Store) run(ctx context.Context, key string, e *entry, c *call, gen int, fetch Fetcher) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}
	v, tags, err := fetch(ctx)

	s.mu.Lock()
	e.call = nil
	if err == nil {
		e.value, e.hasValue, e.tags = v, true, tags
		e.fetchedAt = s.now()
		e.stale = e.gen != gen
	}
	res := Result{Value: e.value, Err: err, FetchedAt: e.fetchedAt}
	if !e.hasValue && len(e.subs) == 0 && s.entries[key] == e {
		delete(s.entries, key)
	}
	subs := make([]func(Result), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	c.res = res
	s.mu.Unlock()

	for _, fn := range subs {
		fn(res)
	}
	close(c.done)
}

func (e *entry) provides(tags []Tag) bool {
	for _, t := range tags {
		for _, p := range e.tags {
			if t.covers(p) {
				return true
			}
		}
	}

	return false
}
