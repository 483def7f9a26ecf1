package gdsapi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/gdsapi/pkg/gdsapi"
)

func TestPaginationIterator(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("all pages", func(t *testing.T) {
		t.Parallel()

		pages := newFakePages([]string{"a", "b"}, []string{"c"}, []string{"d"})

		all, err := gdsapi.FetchAllPages[string](ctx, pages.page(1), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, all)
	})

	t.Run("max pages", func(t *testing.T) {
		t.Parallel()

		pages := newFakePages([]string{"a", "b"}, []string{"c"}, []string{"d"})

		all, err := gdsapi.FetchAllPages[string](ctx, pages.page(1), &gdsapi.PaginationOptions{MaxPages: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, all)
		assert.Zero(t, pages.fetchCount(pageURL(3)))
	})

	t.Run("empty page in the middle", func(t *testing.T) {
		t.Parallel()

		pages := newFakePages([]string{"a"}, []string{}, []string{"b"})

		all, err := gdsapi.FetchAllPages[string](ctx, pages.page(1), nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, all)
	})

	t.Run("next after end", func(t *testing.T) {
		t.Parallel()

		it := gdsapi.NewPaginationIterator[string](ctx, newFakePages([]string{"a"}).page(1), nil)

		item, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, "a", item)
		assert.False(t, it.HasNext())

		_, err = it.Next()
		assert.ErrorIs(t, err, gdsapi.ErrNoMoreItems)
	})

	t.Run("fetch error", func(t *testing.T) {
		t.Parallel()

		pages := newFakePages([]string{"a"}, []string{"b"})
		pages.failAt = 2

		var seen []string

		err := gdsapi.NewPaginationIterator[string](ctx, pages.page(1), nil).ForEach(func(item string) error {
			seen = append(seen, item)

			return nil
		})
		assert.ErrorIs(t, err, errPageUnavailable)
		assert.Equal(t, []string{"a"}, seen)
	})
}

func TestStreamPages(t *testing.T) {
	t.Parallel()

	pages := newFakePages([]string{"a", "b"}, []string{"c"})

	var batches [][]string

	for result := range gdsapi.StreamPages[string](context.Background(), pages.page(1), nil) {
		require.NoError(t, result.Err)

		batches = append(batches, result.Items)
	}

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, batches)

	t.Run("error ends the stream", func(t *testing.T) {
		t.Parallel()

		failing := newFakePages([]string{"a"}, []string{"b"})
		failing.failAt = 2

		var results []gdsapi.PageResult[string]
		for result := range gdsapi.StreamPages[string](context.Background(), failing.page(1), nil) {
			results = append(results, result)
		}

		require.Len(t, results, 2)
		assert.Equal(t, []string{"a"}, results[0].Items)
		assert.ErrorIs(t, results[1].Err, errPageUnavailable)
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		count := 0
		for range gdsapi.StreamPages[string](ctx, newFakePages([]string{"a"}, []string{"b"}).page(1), &gdsapi.PaginationOptions{}) {
			count++
		}

		assert.LessOrEqual(t, count, 2)
	})
}
