package search

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// ErrUnknownBackend indicates the selector names an engine that is not registered.
var ErrUnknownBackend = errors.New("unknown backend")

// Engine is a single search backend. It implements one or more of the
// category interfaces below.
type Engine interface {
	Name() string
}

type TextEngine interface {
	Engine
	Text(ctx context.Context, q TextQuery) ([]Result, error)
}

type ImagesEngine interface {
	Engine
	Images(ctx context.Context, q ImagesQuery) ([]Result, error)
}

type VideosEngine interface {
	Engine
	Videos(ctx context.Context, q VideosQuery) ([]Result, error)
}

type NewsEngine interface {
	Engine
	News(ctx context.Context, q NewsQuery) ([]Result, error)
}

type BooksEngine interface {
	Engine
	Books(ctx context.Context, q BooksQuery) ([]Result, error)
}

// Multi is a Provider that fans a query out over registered engines one
// after another, merging their results.
type Multi struct {
	engines map[Category]map[string]Engine
	order   map[Category][]string
	closers []func()
}

func NewMulti(engines ...Engine) *Multi {
	m := &Multi{
		engines: make(map[Category]map[string]Engine),
		order:   make(map[Category][]string),
	}
	for _, e := range engines {
		m.Register(e)
	}
	return m
}

// Register adds e under every category it implements. Registration order is
// the preference order used for "auto".
func (m *Multi) Register(e Engine) {
	if _, ok := e.(TextEngine); ok {
		m.add(CategoryText, e)
	}
	if _, ok := e.(ImagesEngine); ok {
		m.add(CategoryImages, e)
	}
	if _, ok := e.(VideosEngine); ok {
		m.add(CategoryVideos, e)
	}
	if _, ok := e.(NewsEngine); ok {
		m.add(CategoryNews, e)
	}
	if _, ok := e.(BooksEngine); ok {
		m.add(CategoryBooks, e)
	}
}

func (m *Multi) add(c Category, e Engine) {
	if m.engines[c] == nil {
		m.engines[c] = make(map[string]Engine)
	}
	name := e.Name()
	if _, dup := m.engines[c][name]; !dup {
		m.order[c] = append(m.order[c], name)
	}
	m.engines[c][name] = e
}

// Names returns the registered engine names for c in preference order.
func (m *Multi) Names(c Category) []string {
	return slices.Clone(m.order[c])
}

// OnClose registers fn to run when the provider is closed.
func (m *Multi) OnClose(fn func()) {
	m.closers = append(m.closers, fn)
}

func (m *Multi) Close() error {
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
	m.closers = nil
	return nil
}

func (m *Multi) Text(ctx context.Context, q TextQuery) ([]Result, error) {
	return m.gather(ctx, CategoryText, q.Common, func(e Engine) ([]Result, error) {
		return e.(TextEngine).Text(ctx, q)
	})
}

func (m *Multi) Images(ctx context.Context, q ImagesQuery) ([]Result, error) {
	return m.gather(ctx, CategoryImages, q.Common, func(e Engine) ([]Result, error) {
		return e.(ImagesEngine).Images(ctx, q)
	})
}

func (m *Multi) Videos(ctx context.Context, q VideosQuery) ([]Result, error) {
	return m.gather(ctx, CategoryVideos, q.Common, func(e Engine) ([]Result, error) {
		return e.(VideosEngine).Videos(ctx, q)
	})
}

func (m *Multi) News(ctx context.Context, q NewsQuery) ([]Result, error) {
	return m.gather(ctx, CategoryNews, q.Common, func(e Engine) ([]Result, error) {
		return e.(NewsEngine).News(ctx, q)
	})
}

func (m *Multi) Books(ctx context.Context, q BooksQuery) ([]Result, error) {
	return m.gather(ctx, CategoryBooks, q.Common, func(e Engine) ([]Result, error) {
		return e.(BooksEngine).Books(ctx, q)
	})
}

// plan expands the backend selector into engine names and reports whether
// the search may stop at the first engine that returns anything.
func (m *Multi) plan(c Category, backends []string) (names []string, stopEarly bool, err error) {
	if len(backends) == 0 {
		backends = []string{BackendAuto}
	}
	for _, b := range backends {
		switch b {
		case BackendAuto:
			stopEarly = len(backends) == 1
			names = append(names, m.order[c]...)
		case BackendAll:
			names = append(names, m.order[c]...)
		default:
			if _, ok := m.engines[c][b]; !ok {
				return nil, false, fmt.Errorf("%w %q for search type %q", ErrUnknownBackend, b, c)
			}
			names = append(names, b)
		}
	}
	var uniq []string
	for _, n := range names {
		if !slices.Contains(uniq, n) {
			uniq = append(uniq, n)
		}
	}
	if len(uniq) == 0 {
		return nil, false, fmt.Errorf("%w: no engines registered for search type %q", ErrUnknownBackend, c)
	}
	return uniq, stopEarly, nil
}

func (m *Multi) gather(ctx context.Context, c Category, q Common, call func(Engine) ([]Result, error)) ([]Result, error) {
	log := zerolog.Ctx(ctx)
	names, stopEarly, err := m.plan(c, q.Backends)
	if err != nil {
		return nil, err
	}

	var (
		out       []Result
		errs      []error
		succeeded bool
		seen      = make(map[string]bool)
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug().Str("backend", name).Str("type", string(c)).Str("query", q.Query).Msg("querying backend")
		res, err := call(m.engines[c][name])
		if err != nil {
			log.Warn().Err(err).Str("backend", name).Msg("backend failed")
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		succeeded = true
		for _, r := range res {
			if link, ok := r.Link(); ok {
				if seen[link] {
					continue
				}
				seen[link] = true
			}
			out = append(out, r)
			if q.MaxResults > 0 && len(out) >= q.MaxResults {
				return out, nil
			}
		}
		if stopEarly && q.MaxResults <= 0 && len(out) > 0 {
			break
		}
	}
	if !succeeded {
		return nil, errors.Join(errs...)
	}
	if out == nil {
		out = []Result{}
	}
	return out, nil
}
