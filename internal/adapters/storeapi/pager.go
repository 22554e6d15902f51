package storeapi

import "context"

// pageFetch loads one page. lastKey is the opaque continuation token from
// the previous page, empty for the first one.
type pageFetch[T any] func(ctx context.Context, lastKey string, limit int) ([]T, string, error)

// Iterator is a lazy, restartable sequence over a paginated listing. It
// follows continuation tokens transparently and terminates when the store
// reports no more pages.
type Iterator[T any] struct {
	fetch   pageFetch[T]
	limit   int
	buf     []T
	pos     int
	nextKey string
	done    bool
}

func newIterator[T any](fetch pageFetch[T], limit int) *Iterator[T] {
	return &Iterator[T]{fetch: fetch, limit: limit}
}

// Next returns the next item. ok is false once the sequence is exhausted.
func (it *Iterator[T]) Next(ctx context.Context) (item T, ok bool, err error) {
	for it.pos >= len(it.buf) {
		if it.done {
			var zero T
			return zero, false, nil
		}
		items, nextKey, err := it.fetch(ctx, it.nextKey, it.limit)
		if err != nil {
			var zero T
			return zero, false, err
		}
		it.buf = items
		it.pos = 0
		it.nextKey = nextKey
		it.done = nextKey == ""
	}
	item = it.buf[it.pos]
	it.pos++
	return item, true, nil
}

// Reset restarts the sequence from the first page.
func (it *Iterator[T]) Reset() {
	it.buf = nil
	it.pos = 0
	it.nextKey = ""
	it.done = false
}

// Collect drains the remainder of the sequence into a slice.
func (it *Iterator[T]) Collect(ctx context.Context) ([]T, error) {
	var out []T
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}
