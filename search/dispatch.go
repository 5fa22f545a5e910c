package search

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedCategory is returned for a category outside the known five.
var ErrUnsupportedCategory = errors.New("unsupported search type")

// Common holds the fields every query variant carries.
type Common struct {
	Query      string
	Region     string
	SafeSearch SafeSearch
	Page       int
	MaxResults int
	Backends   []string
}

// Query is one of TextQuery, ImagesQuery, VideosQuery, NewsQuery or BooksQuery.
type Query interface {
	Category() Category
	common() Common
}

type TextQuery struct {
	Common
	TimeFilter TimeFilter
}

type ImagesQuery struct {
	Common
	TimeFilter TimeFilter
	Filters    ImageFilters
}

type VideosQuery struct {
	Common
	TimeFilter TimeFilter
	Filters    VideoFilters
}

type NewsQuery struct {
	Common
	TimeFilter TimeFilter
}

type BooksQuery struct {
	Common
}

func (TextQuery) Category() Category   { return CategoryText }
func (ImagesQuery) Category() Category { return CategoryImages }
func (VideosQuery) Category() Category { return CategoryVideos }
func (NewsQuery) Category() Category   { return CategoryNews }
func (BooksQuery) Category() Category  { return CategoryBooks }

func (q TextQuery) common() Common   { return q.Common }
func (q ImagesQuery) common() Common { return q.Common }
func (q VideosQuery) common() Common { return q.Common }
func (q NewsQuery) common() Common   { return q.Common }
func (q BooksQuery) common() Common  { return q.Common }

// Provider answers the five query variants.
type Provider interface {
	Text(ctx context.Context, q TextQuery) ([]Result, error)
	Images(ctx context.Context, q ImagesQuery) ([]Result, error)
	Videos(ctx context.Context, q VideosQuery) ([]Result, error)
	News(ctx context.Context, q NewsQuery) ([]Result, error)
	Books(ctx context.Context, q BooksQuery) ([]Result, error)
	io.Closer
}

// Opener opens a provider for the duration of one search.
type Opener func() (Provider, error)

// BuildQuery selects the variant for r.Category, copying only the fields
// that variant accepts.
func BuildQuery(r Request) (Query, error) {
	page := r.Page
	if page < 1 {
		page = 1
	}
	c := Common{
		Query:      r.Query,
		Region:     r.Region,
		SafeSearch: r.SafeSearch,
		Page:       page,
		MaxResults: r.MaxResults,
		Backends:   r.Backends(),
	}
	switch r.Category {
	case CategoryText:
		return TextQuery{Common: c, TimeFilter: r.TimeFilter}, nil
	case CategoryImages:
		return ImagesQuery{Common: c, TimeFilter: r.TimeFilter, Filters: r.Images}, nil
	case CategoryVideos:
		return VideosQuery{Common: c, TimeFilter: r.TimeFilter, Filters: r.Videos}, nil
	case CategoryNews:
		return NewsQuery{Common: c, TimeFilter: r.TimeFilter}, nil
	case CategoryBooks:
		return BooksQuery{Common: c}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedCategory, r.Category)
}

// Dispatch issues exactly one provider call for q.
func Dispatch(ctx context.Context, p Provider, q Query) ([]Result, error) {
	switch q := q.(type) {
	case TextQuery:
		return p.Text(ctx, q)
	case ImagesQuery:
		return p.Images(ctx, q)
	case VideosQuery:
		return p.Videos(ctx, q)
	case NewsQuery:
		return p.News(ctx, q)
	case BooksQuery:
		return p.Books(ctx, q)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedCategory, q)
}

// Run opens a provider, dispatches r and closes the provider again whatever
// the outcome.
func Run(ctx context.Context, open Opener, r Request) (results []Result, err error) {
	q, err := BuildQuery(r)
	if err != nil {
		return nil, err
	}
	p, err := open()
	if err != nil {
		return nil, fmt.Errorf("open search provider: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close search provider: %w", cerr)
		}
	}()
	return Dispatch(ctx, p, q)
}
