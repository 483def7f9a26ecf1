package gdsapi

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/url"
	"sync"
)

const resultsKey = "results"

// Static errors for err113 compliance.
var (
	ErrNoMoreItems     = errors.New("no more items")
	ErrNoPageFetcher   = errors.New("list response has no page fetcher")
	ErrResultsNotAList = errors.New("results is not a JSON array")
)

// PageFetcher loads one page of a paginated collection.
type PageFetcher interface {
	FetchList(ctx context.Context, url string) (*ListResponse, error)
}

// ListResponse is a page of a collection whose neighbours are advertised
// in the Link header.
type ListResponse struct {
	*Response

	fetcher PageFetcher

	linksOnce sync.Once
	links     Links

	mu       sync.Mutex
	next     *pageMemo
	previous *pageMemo
}

type pageMemo struct {
	page *ListResponse
}

// NewListResponse wraps raw. fetcher is used to follow next/previous links.
func NewListResponse(raw *RawResponse, fetcher PageFetcher, opts ...ResponseOption) *ListResponse {
	return &ListResponse{
		Response: NewResponse(raw, opts...),
		fetcher:  fetcher,
	}
}

// Links returns the parsed Link header.
func (l *ListResponse) Links() Links {
	l.linksOnce.Do(func() {
		header := ""
		for _, value := range l.Header().Values("Link") {
			if header != "" {
				header += ", "
			}

			header += value
		}

		l.links = ParseLinkHeader(header)
	})

	return l.links
}

// HasNextPage reports whether a rel="next" link exists.
func (l *ListResponse) HasNextPage() bool {
	_, ok := l.Links().Get(RelNext)

	return ok
}

// HasPreviousPage reports whether a rel="previous" link exists.
func (l *ListResponse) HasPreviousPage() bool {
	_, ok := l.Links().Get(RelPrevious)

	return ok
}

// NextPage fetches the next page once; later calls return the same value.
// It returns nil, nil on the last page.
func (l *ListResponse) NextPage(ctx context.Context) (*ListResponse, error) {
	return l.follow(ctx, RelNext, &l.next)
}

// PreviousPage mirrors NextPage for rel="previous".
func (l *ListResponse) PreviousPage(ctx context.Context) (*ListResponse, error) {
	return l.follow(ctx, RelPrevious, &l.previous)
}

func (l *ListResponse) follow(ctx context.Context, rel string, memo **pageMemo) (*ListResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if *memo != nil {
		return (*memo).page, nil
	}

	href := l.Links().Href(rel)
	if href == "" {
		*memo = &pageMemo{}

		return nil, nil
	}

	if l.fetcher == nil {
		return nil, ErrNoPageFetcher
	}

	page, err := l.fetcher.FetchList(ctx, l.resolve(href))
	if err != nil {
		return nil, err
	}

	*memo = &pageMemo{page: page}

	return page, nil
}

// resolve makes a relative link absolute against the request URL.
func (l *ListResponse) resolve(href string) string {
	if l.opts.requestURL == "" {
		return href
	}

	base, err := url.Parse(l.opts.requestURL)
	if err != nil {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil || ref.IsAbs() {
		return href
	}

	return base.ResolveReference(ref).String()
}

// Results returns the results array of this page, or nil.
func (l *ListResponse) Results() []any {
	results, _ := l.Value(resultsKey).([]any)

	return results
}

// WithSubsequentPages yields every result of this page and of each page
// after it. Every call starts again from this page; pages already fetched
// are reused. A failed fetch is yielded as the final element.
func (l *ListResponse) WithSubsequentPages(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		page := l

		for page != nil {
			_, err := page.Document()
			if err != nil {
				yield(nil, err)

				return
			}

			for _, item := range page.Results() {
				if !yield(item, nil) {
					return
				}
			}

			if !page.HasNextPage() {
				return
			}

			next, err := page.NextPage(ctx)
			if err != nil {
				yield(nil, err)

				return
			}

			page = next
		}
	}
}

// AllResults collects WithSubsequentPages.
func (l *ListResponse) AllResults(ctx context.Context) ([]any, error) {
	var all []any

	for item, err := range l.WithSubsequentPages(ctx) {
		if err != nil {
			return nil, err
		}

		all = append(all, item)
	}

	return all, nil
}

// DecodeResults unmarshals this page's results array into []T.
func DecodeResults[T any](page *ListResponse) ([]T, error) {
	result := page.Get(resultsKey)
	if !result.Exists() {
		_, err := page.Document()

		return nil, err
	}

	if !result.IsArray() {
		return nil, ErrResultsNotAList
	}

	var items []T

	err := json.Unmarshal([]byte(result.Raw), &items)
	if err != nil {
		return nil, NewMalformedBodyError(page.Code(), page.opts.method, page.opts.requestURL, page.RawBody(), err)
	}

	return items, nil
}
