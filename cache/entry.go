package cache

// entry is the intrusive doubly-linked-list node backing one cache
// mapping, per spec section 4.9.7: prev/next live directly on the
// entry rather than boxed in container/list.Element, so touch/evict is
// O(1) with no extra allocation. head = most-recently-used,
// tail = least-recently-used.
type entry[K comparable, V any] struct {
	key   K
	value V

	writeNanos  int64
	accessNanos int64
	weight      int64

	prev, next *entry[K, V]
}
