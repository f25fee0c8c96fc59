// Package collab declares the narrow interfaces this module's external
// collaborators (an HTTP client/server, an MCP tool-invocation client,
// and similar transport-facing code) consume from the reactive
// concurrency core, per spec section 6. None of the collaborators
// themselves are implemented here - HTTP transport, TLS, MCP's stdio
// pipe protocol, and the rest are explicit Non-goals in spec section
// 1 - these declarations exist only so the core's public API (rx,
// ratelimit, cache) is provably shaped to fit real consumers, without
// pulling any transport code into this module.
package collab

import (
	"context"
	"io"

	"github.com/flowforge/reactor/cache"
	"github.com/flowforge/reactor/ratelimit"
	"github.com/flowforge/reactor/rx"
)

// ToolInvoker is the surface an MCP (or similar JSON-RPC) client
// consumes: each invocation is a Stream that emits the tool's result on
// OnNext and fails via OnError; a caller cancels an in-flight
// invocation by cancelling the Fiber it was started on (rx.Fiber.Cancel),
// not through any method on this interface.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args any) rx.Stream[any]
}

// ConnectionLifecycle is the surface an HTTP client/server's connection
// or request handling consumes from rx.Resource, to tie a connection's
// (or request's) acquire/use/release lifecycle to the bracket pattern
// in spec section 4.7.5.
type ConnectionLifecycle interface {
	Acquire() rx.Resource[io.Closer]
}

// Throttled is embedded by any collaborator that wants optional
// outbound rate limiting (e.g. an HTTP client capping outbound request
// rate) without depending on a concrete ratelimit strategy.
type Throttled interface {
	ratelimit.Limiter
}

// Cacheable is the minimal read-through surface a collaborator (for
// example an HTTP client memoizing idempotent GET responses) consumes
// from a cache.LoadingCache, without depending on the full Cache/
// LoadingCache type or its configuration surface.
type Cacheable[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, error)
}

// cacheableAdapter satisfies Cacheable by delegating to a
// *cache.LoadingCache, whose GetOrLoad takes no context (the loader
// itself is synchronous by spec section 4.9.2). It exists purely to
// demonstrate that LoadingCache can serve as a Cacheable without any
// change to its own API.
type cacheableAdapter[K comparable, V any] struct {
	cache *cache.LoadingCache[K, V]
}

// NewCacheable adapts c into a Cacheable, ignoring ctx on every call
// (the underlying Loader has no cancellation hook, per spec section
// 4.9.9 - loader errors propagate synchronously, they are never
// interrupted mid-flight by the caller's context).
func NewCacheable[K comparable, V any](c *cache.LoadingCache[K, V]) Cacheable[K, V] {
	return &cacheableAdapter[K, V]{cache: c}
}

func (a *cacheableAdapter[K, V]) Get(_ context.Context, key K) (V, error) {
	return a.cache.GetOrLoad(key)
}
