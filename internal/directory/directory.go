// Package directory defines the contract the audit engine needs from the
// external people directory and the paginated roster fetch built on it.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vrwarp/locus/internal/directory/models"
)

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks

// Directory is the people directory.
type Directory interface {
	ListPeople(ctx context.Context, page, perPage int) (models.Page, error)
	GetPerson(ctx context.Context, personID string) (models.Person, error)
	CheckInCount(ctx context.Context, personID string) (int, error)
	UpdatePersonField(ctx context.Context, personID, field, value string) error
}

// ErrFetchFailed marks a roster fetch that could not complete. No partial
// roster is returned alongside it.
var ErrFetchFailed = errors.New("roster fetch failed")

// DefaultMaxPages bounds a fetch against a directory that never stops paging.
const DefaultMaxPages = 10_000

type fetchOptions struct {
	maxPages int
	logger   *slog.Logger
}

type FetchOption func(*fetchOptions)

func WithMaxPages(n int) FetchOption {
	return func(o *fetchOptions) {
		if n > 0 {
			o.maxPages = n
		}
	}
}

func WithFetchLogger(logger *slog.Logger) FetchOption {
	return func(o *fetchOptions) { o.logger = logger }
}

// FetchAll pages through the directory until HasMore is false.
func FetchAll(ctx context.Context, dir Directory, perPage int, opts ...FetchOption) ([]models.Person, error) {
	o := fetchOptions{maxPages: DefaultMaxPages}
	for _, opt := range opts {
		opt(&o)
	}
	if perPage <= 0 {
		return nil, fmt.Errorf("%w: per_page must be positive", ErrFetchFailed)
	}

	var people []models.Person
	for page := 0; ; page++ {
		if page >= o.maxPages {
			return nil, fmt.Errorf("%w: exceeded %d pages", ErrFetchFailed, o.maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
		result, err := dir.ListPeople(ctx, page, perPage)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrFetchFailed, page, err)
		}
		people = append(people, result.People...)
		if o.logger != nil {
			o.logger.DebugContext(ctx, "roster page fetched",
				"page", page,
				"count", len(result.People),
				"has_more", result.HasMore,
			)
		}
		if !result.HasMore {
			return people, nil
		}
	}
}

// Fetcher binds a Directory and page size into a roster source.
type Fetcher struct {
	dir     Directory
	perPage int
	opts    []FetchOption
}

func NewFetcher(dir Directory, perPage int, opts ...FetchOption) *Fetcher {
	return &Fetcher{dir: dir, perPage: perPage, opts: opts}
}

// Roster fetches every page of the directory.
func (f *Fetcher) Roster(ctx context.Context) ([]models.Person, error) {
	return FetchAll(ctx, f.dir, f.perPage, f.opts...)
}
