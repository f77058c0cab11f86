package hubspot

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/fivetwenty-io/hubspot-client/internal/constants"
)

// PageFunc fetches one page for the given options.
type PageFunc[T any] func(ctx context.Context, opts *SearchRequestOptions) (*Envelope[T], error)

// SearchIterator walks a paged Search or List call, feeding each page's
// continuation offset into the next request.
type SearchIterator[T any] struct {
	ctx      context.Context //nolint:containedctx // Iterator lives for the duration of one walk
	fetch    PageFunc[T]
	opts     *SearchRequestOptions
	current  []T
	index    int
	pages    int
	maxPages int
	done     bool
}

// NewSearchIterator creates an iterator. opts is cloned; nil means default options.
func NewSearchIterator[T any](ctx context.Context, fetch PageFunc[T], opts *SearchRequestOptions) *SearchIterator[T] {
	if opts == nil {
		opts = NewSearchRequestOptions()
	}

	return &SearchIterator[T]{
		ctx:      ctx,
		fetch:    fetch,
		opts:     opts.Clone(),
		maxPages: constants.DefaultMaxPages,
	}
}

// SetMaxPages bounds the number of pages fetched. Zero removes the bound.
func (it *SearchIterator[T]) SetMaxPages(maxPages int) {
	it.maxPages = maxPages
}

// Pages returns the number of pages fetched so far.
func (it *SearchIterator[T]) Pages() int {
	return it.pages
}

// HasNext reports whether Next may return another item.
func (it *SearchIterator[T]) HasNext() bool {
	return it.index < len(it.current) || !it.done
}

// Next returns the next item, fetching the next page when the current one is used up.
func (it *SearchIterator[T]) Next() (T, error) {
	var zero T

	for it.index >= len(it.current) {
		if it.done {
			return zero, ErrNoMoreItems
		}

		err := it.fetchPage()
		if err != nil {
			return zero, err
		}
	}

	item := it.current[it.index]
	it.index++

	return item, nil
}

func (it *SearchIterator[T]) fetchPage() error {
	if it.maxPages > 0 && it.pages >= it.maxPages {
		it.done = true

		return nil
	}

	page, err := it.fetch(it.ctx, it.opts)
	if err != nil {
		return fmt.Errorf("fetching page %d: %w", it.pages+1, err)
	}

	it.pages++
	it.current = page.Entities()
	it.index = 0

	page.Attach(it.opts)

	if page.Offset() == "" {
		it.done = true
	}

	return nil
}

// All collects every remaining item.
func (it *SearchIterator[T]) All() ([]T, error) {
	var items []T

	err := it.ForEach(func(item T) error {
		items = append(items, item)

		return nil
	})

	return items, err
}

// ForEach calls fn for every remaining item, stopping at the first error.
func (it *SearchIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrNoMoreItems) {
				return nil
			}

			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// ReorderByInput returns merged sorted into the order of inputs, matching
// records by key. Records without a match keep their relative order at the end.
func ReorderByInput[E any](inputs, merged []E, key func(E) string) []E {
	position := make(map[string]int, len(inputs))

	for i, input := range inputs {
		k := key(input)
		if _, seen := position[k]; !seen && k != "" {
			position[k] = i
		}
	}

	ordered := make([]E, len(merged))
	copy(ordered, merged)

	rank := func(e E) int {
		if pos, ok := position[key(e)]; ok {
			return pos
		}

		return len(inputs)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return rank(ordered[i]) < rank(ordered[j])
	})

	return ordered
}
