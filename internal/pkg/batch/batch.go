// Package batch splits key lists into bounded chunks for stores that cap the
// number of values accepted by a single "IN"-style filter.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Chunk partitions items into consecutive slices of at most size elements.
// The chunks share the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// ErrPanicked wraps a panic raised by a lookup on one of the chunk goroutines.
var ErrPanicked = errors.New("chunk lookup panicked")

// LookupFunc resolves one chunk of keys. Keys with no match are simply absent
// from the returned map.
type LookupFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// LookupChunked de-duplicates keys, issues one lookup per chunk of at most
// size keys (running up to parallelism lookups at once) and merges the
// results. Any chunk failure fails the whole lookup. A panicking lookup is
// recovered and reported as ErrPanicked.
func LookupChunked[K comparable, V any](ctx context.Context, keys []K, size, parallelism int, lookup LookupFunc[K, V]) (map[K]V, error) {
	unique := make([]K, 0, len(keys))
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, k)
	}

	merged := make(map[K]V, len(unique))
	if len(unique) == 0 {
		return merged, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}

	for i, chunk := range Chunk(unique, size) {
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("chunk %d: %w: %v", i, ErrPanicked, p)
				}
			}()

			found, err := lookup(gCtx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for k, v := range found {
				merged[k] = v
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}
