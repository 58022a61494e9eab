// Package partition splits ordered record sets into load batches or into
// proportional groups keyed by a field.
package partition

import "fmt"

// DefaultChunkSize is the number of rows per insert statement.
const DefaultChunkSize = 5000

// Chunk splits items into consecutive batches of size elements; the last
// batch holds the remainder. Batches share the backing array of items.
func Chunk[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if len(items) == 0 {
		return nil, nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batches = append(batches, items[start:end:end])
	}
	return batches, nil
}

// Split is the result of SplitProportional. Parts[i] holds every record
// whose key is in Keys[i].
type Split[T any, K comparable] struct {
	Parts [4][]T
	Keys  [4][]K
}

// cumulative split points as percentages of the distinct key count:
// slices of 15%, 35%, 20% and the remaining 30%.
var boundaries = [3]int{15, 50, 70}

// SplitProportional groups the distinct keys of items, in first-seen order,
// into four contiguous slices of 15/35/20/30 percent and partitions items by
// slice membership. Integer truncation applies at every boundary, so the last
// slice absorbs the remainder.
func SplitProportional[T any, K comparable](items []T, key func(T) K) Split[T, K] {
	var distinct []K
	seen := make(map[K]struct{})
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		distinct = append(distinct, k)
	}

	n := len(distinct)
	cuts := [5]int{0, 0, 0, 0, n}
	for i, pct := range boundaries {
		cuts[i+1] = n * pct / 100
	}

	var out Split[T, K]
	slot := make(map[K]int, n)
	for i := range out.Keys {
		out.Keys[i] = distinct[cuts[i]:cuts[i+1]:cuts[i+1]]
		for _, k := range out.Keys[i] {
			slot[k] = i
		}
	}

	for _, item := range items {
		i := slot[key(item)]
		out.Parts[i] = append(out.Parts[i], item)
	}
	return out
}
