package gdsapi

import (
	"context"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
)

// PaginationOptions bounds a page walk.
type PaginationOptions struct {
	// MaxPages stops the walk after this many pages. Zero means no limit.
	MaxPages int
}

// DefaultPaginationOptions returns unbounded pagination options.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{}
}

// PaginationIterator walks a ListResponse chain item by item, decoding
// each page's results into T.
type PaginationIterator[T any] struct {
	ctx      context.Context
	page     *ListResponse
	options  *PaginationOptions
	items    []T
	index    int
	pages    int
	loaded   bool
	finished bool
	err      error
}

// NewPaginationIterator starts at first.
func NewPaginationIterator[T any](ctx context.Context, first *ListResponse, options *PaginationOptions) *PaginationIterator[T] {
	if options == nil {
		options = DefaultPaginationOptions()
	}

	return &PaginationIterator[T]{
		ctx:     ctx,
		page:    first,
		options: options,
	}
}

// HasNext reports whether Next will return an item or an error.
func (it *PaginationIterator[T]) HasNext() bool {
	if it.err != nil {
		return true
	}

	for it.index >= len(it.items) {
		if !it.advance() {
			return it.err != nil
		}
	}

	return true
}

// Next returns the next item.
func (it *PaginationIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		return zero, ErrNoMoreItems
	}

	if it.err != nil {
		err := it.err
		it.err = nil
		it.finished = true

		return zero, err
	}

	item := it.items[it.index]
	it.index++

	return item, nil
}

// All drains the iterator.
func (it *PaginationIterator[T]) All() ([]T, error) {
	var all []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}

		all = append(all, item)
	}

	return all, nil
}

// ForEach calls fn for every item, stopping at the first error.
func (it *PaginationIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// advance loads the current page on first use, then the next one.
func (it *PaginationIterator[T]) advance() bool {
	if it.finished || it.page == nil {
		return false
	}

	if it.loaded {
		if it.options.MaxPages > 0 && it.pages >= it.options.MaxPages {
			it.finished = true

			return false
		}

		next, err := it.page.NextPage(it.ctx)
		if err != nil {
			it.err = err

			return false
		}

		if next == nil {
			it.finished = true

			return false
		}

		it.page = next
	}

	items, err := DecodeResults[T](it.page)
	if err != nil {
		it.err = err

		return false
	}

	it.loaded = true
	it.pages++
	it.items = items
	it.index = 0

	return true
}

// FetchAllPages decodes every result reachable from first.
func FetchAllPages[T any](ctx context.Context, first *ListResponse, options *PaginationOptions) ([]T, error) {
	return NewPaginationIterator[T](ctx, first, options).All()
}

// PageResult is one page delivered by StreamPages.
type PageResult[T any] struct {
	Items []T
	Err   error
}

// StreamPages sends each page's decoded results on the returned channel,
// which is closed after the last page, an error, or ctx cancellation.
func StreamPages[T any](ctx context.Context, first *ListResponse, options *PaginationOptions) <-chan PageResult[T] {
	if options == nil {
		options = DefaultPaginationOptions()
	}

	results := make(chan PageResult[T], constants.SmallBufferSize)

	go func() {
		defer close(results)

		page := first
		pages := 0

		for page != nil {
			items, err := DecodeResults[T](page)
			if !send(ctx, results, PageResult[T]{Items: items, Err: err}) || err != nil {
				return
			}

			pages++
			if options.MaxPages > 0 && pages >= options.MaxPages {
				return
			}

			page, err = page.NextPage(ctx)
			if err != nil {
				send(ctx, results, PageResult[T]{Err: err})

				return
			}
		}
	}()

	return results
}

func send[T any](ctx context.Context, ch chan<- PageResult[T], result PageResult[T]) bool {
	select {
	case ch <- result:
		return true
	case <-ctx.Done():
		return false
	}
}
