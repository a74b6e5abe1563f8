// Package resource keeps a local, paged cache of a remote collection
// coherent with the operations performed through it.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/model"
)

// ErrUnsupported is returned for operations the backend does not offer
// for a collection.
var ErrUnsupported = errors.New("operation not supported for this resource")

// ErrIllegalTransition is returned when an order status change breaks
// the lifecycle. It also matches apiclient.ErrValidation.
var ErrIllegalTransition = errors.New("illegal order status transition")

// Backend is the remote side of a collection. id is whatever the
// collection is addressed by (a setting's key, everything else's id).
type Backend[T any, In any] interface {
	List(ctx context.Context, page, limit int) (model.Page[T], error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id string, in In) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Messages are the fallback texts recorded when a call fails without a
// message from the server.
type Messages struct {
	List   string
	Get    string
	Create string
	Update string
	Delete string
}

func messagesFor(singular, plural string) Messages {
	return Messages{
		List:   "Failed to fetch " + plural,
		Get:    "Failed to fetch " + singular,
		Create: "Failed to create " + singular,
		Update: "Failed to update " + singular,
		Delete: "Failed to delete " + singular,
	}
}

type query struct{ page, limit int }

// Synchronizer caches one page of a collection. List replaces the page;
// Update and Delete patch it in place; Create re-fetches it. The network
// call never runs under the lock.
type Synchronizer[T any, In any] struct {
	name    string
	backend Backend[T, In]
	key     func(T) string
	msgs    Messages
	logger  *slog.Logger

	mu       sync.Mutex
	page     model.Page[T]
	last     query
	epoch    uint64
	inflight int
	errMsg   string
}

func NewSynchronizer[T any, In any](name string, backend Backend[T, In], key func(T) string, msgs Messages, logger *slog.Logger) *Synchronizer[T, In] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer[T, In]{
		name:    name,
		backend: backend,
		key:     key,
		msgs:    msgs,
		logger:  logger.With("resource", name),
		page:    model.Page[T]{Items: []T{}},
		last:    query{page: model.DefaultPage, limit: model.DefaultLimit},
	}
}

// Page returns a copy of the cached page.
func (s *Synchronizer[T, In]) Page() model.Page[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.page
	p.Items = append([]T(nil), s.page.Items...)
	return p
}

func (s *Synchronizer[T, In]) Items() []T {
	return s.Page().Items
}

// Find looks id up in the cached page only.
func (s *Synchronizer[T, In]) Find(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.page.Items {
		if s.key(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// IsLoading reports whether any call is in flight.
func (s *Synchronizer[T, In]) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Error is the message of the most recent failure, cleared when the
// next call starts.
func (s *Synchronizer[T, In]) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Synchronizer[T, In]) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Synchronizer[T, In]) begin() {
	s.mu.Lock()
	s.inflight++
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Synchronizer[T, In]) end(op string, err error, fallback string) {
	s.mu.Lock()
	s.inflight--
	if err != nil {
		s.errMsg = apiclient.Message(err, fallback)
	}
	s.mu.Unlock()
	if err != nil {
		s.logger.Debug("call failed", "op", op, "kind", apiclient.KindOf(err).String(), "error", err)
	}
}

// fail records an error for a call that never reached the network.
func (s *Synchronizer[T, In]) fail(op string, err error) error {
	s.begin()
	s.end(op, err, "")
	return err
}

// List fetches one page and makes it the cache. When Lists overlap,
// only the most recently started one is committed; older responses are
// still returned to their callers.
func (s *Synchronizer[T, In]) List(ctx context.Context, page, limit int) (_ model.Page[T], err error) {
	page, limit = model.NormalizePaging(page, limit)
	s.begin()
	defer func() { s.end("list", err, s.msgs.List) }()

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	result, err := s.backend.List(ctx, page, limit)
	if err != nil {
		return model.Page[T]{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.logger.Debug("discarding superseded page", "page", page, "limit", limit)
		return result, nil
	}
	result.Items = append([]T{}, result.Items...)
	result.Stale = false
	s.page = result
	s.last = query{page: page, limit: limit}
	return result, nil
}

// Refresh repeats the last List, or lists the first page if there was
// none.
func (s *Synchronizer[T, In]) Refresh(ctx context.Context) (model.Page[T], error) {
	s.mu.Lock()
	q := s.last
	s.mu.Unlock()
	return s.List(ctx, q.page, q.limit)
}

// Get fetches a single item. The cache is not touched.
func (s *Synchronizer[T, In]) Get(ctx context.Context, id string) (_ *T, err error) {
	s.begin()
	defer func() { s.end("get", err, s.msgs.Get) }()
	return s.backend.Get(ctx, id)
}

// Create adds an item and then re-fetches the current page so totals
// stay accurate. If only the re-fetch fails, the created item is
// returned together with the error; the recorded message is the
// re-fetch's own.
func (s *Synchronizer[T, In]) Create(ctx context.Context, in In) (*T, error) {
	var cerr error
	s.begin()
	defer func() { s.end("create", cerr, s.msgs.Create) }()

	item, cerr := s.backend.Create(ctx, in)
	if cerr != nil {
		return nil, cerr
	}
	if _, err := s.Refresh(ctx); err != nil {
		return item, fmt.Errorf("created %s but failed to refresh the list: %w", s.name, err)
	}
	return item, nil
}

// Update replaces the matching cached item with the server's version.
func (s *Synchronizer[T, In]) Update(ctx context.Context, id string, in In) (_ *T, err error) {
	s.begin()
	defer func() { s.end("update", err, s.msgs.Update) }()

	item, err := s.backend.Update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.replace(id, *item)
	return item, nil
}

// Delete removes the matching cached item. Total and TotalPages are
// left as they were and the page is marked stale until the next List.
func (s *Synchronizer[T, In]) Delete(ctx context.Context, id string) (err error) {
	s.begin()
	defer func() { s.end("delete", err, s.msgs.Delete) }()

	if err = s.backend.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.page.Items[:0:0]
	for _, item := range s.page.Items {
		if s.key(item) != id {
			kept = append(kept, item)
		}
	}
	if len(kept) != len(s.page.Items) {
		s.page.Stale = true
	}
	s.page.Items = kept
	return nil
}

func (s *Synchronizer[T, In]) replace(id string, item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]T(nil), s.page.Items...)
	for i := range items {
		if s.key(items[i]) == id {
			items[i] = item
		}
	}
	s.page.Items = items
}
