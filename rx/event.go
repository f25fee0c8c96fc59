// Package rx provides the reactive stream core: a lazy, composable
// description of an asynchronous value sequence (Stream[A]), a
// three-event protocol (OnNext/OnError/OnCompletion) carrying
// backpressure demand downstream, a runner that interprets a Stream
// against an Observer, parallel combinators, a Fiber abstraction for
// asynchronous execution, and a resource bracket with LIFO finalizer
// cleanup.
//
// Go has neither sum types nor generic methods with their own type
// parameters, so the operator tree from spec section 9's "re-encode as
// a tagged sum, interpreted by a single runner" guidance is expressed
// here instead as composed subscribe-functions: a Stream[A] is a value
// wrapping a closure of type `func(context.Context, scheduler.Scheduler,
// Observer[A]) Subscription`, and every operator (Map, Filter, ...) is a
// free function that wraps an upstream Stream's closure in a new one.
// This gets the same properties the spec asks for - cheap to construct,
// no side effect until run, type-changing transformations (Map[A, B])
// expressible at all - without a boxed AST or virtual dispatch over
// node kinds; each operator's closure *is* its own single-purpose
// interpreter, which is the idiomatic Go rendition of "one runner per
// node kind" given the language's constraints.
package rx

// EventKind distinguishes the three events a Stream delivers downstream.
type EventKind int

const (
	// KindNext carries a single emitted value.
	KindNext EventKind = iota
	// KindError carries a terminal failure.
	KindError
	// KindCompletion signals normal, terminal completion.
	KindCompletion
)

// Event is one of OnNext(v), OnError(err), or OnCompletion, flowing
// downstream from a running Stream to its Observer.
type Event[A any] struct {
	Kind  EventKind
	Value A
	Err   error
}

// OnNext constructs a KindNext event.
func OnNext[A any](v A) Event[A] { return Event[A]{Kind: KindNext, Value: v} }

// OnError constructs a KindError event.
func OnError[A any](err error) Event[A] { return Event[A]{Kind: KindError, Err: err} }

// OnCompletion constructs a KindCompletion event.
func OnCompletion[A any]() Event[A] { return Event[A]{Kind: KindCompletion} }

// resultKind is the internal tag for Result; Result itself stays an
// opaque struct so callers are forced through the constructors and And,
// matching the spec's four-way demand protocol exactly.
type resultKind int

const (
	resultContinue resultKind = iota
	resultStop
	resultPaused
	resultRequest
)

// Result is an Observer's response to a single Event, expressing how
// much more demand it has for further events.
type Result struct {
	kind resultKind
	n    int64
}

// Continue expresses unbounded demand (the default "pull everything"
// mode).
func Continue() Result { return Result{kind: resultContinue} }

// Stop terminates the stream; upstream must release any held resources
// and not deliver further events.
func Stop() Result { return Result{kind: resultStop} }

// Paused expresses zero demand while keeping the subscription alive;
// upstream must buffer or drop further emissions per its configured
// backpressure strategy.
func Paused() Result { return Result{kind: resultPaused} }

// Request expresses demand for exactly n more events, after which the
// subscription behaves as Paused. n must be non-negative; Request(0) is
// equivalent to Paused().
func Request(n int64) Result {
	if n < 0 {
		panic("rx: negative demand")
	}
	if n == 0 {
		return Paused()
	}
	return Result{kind: resultRequest, n: n}
}

// IsStop reports whether this Result terminates the stream.
func (r Result) IsStop() bool { return r.kind == resultStop }

// IsUnbounded reports whether this Result expresses unbounded (Continue)
// demand.
func (r Result) IsUnbounded() bool { return r.kind == resultContinue }

// Remaining reports the finite demand remaining (0 for Paused/Stop), and
// whether the demand is finite at all (false for Continue/Stop).
func (r Result) Remaining() (n int64, finite bool) {
	switch r.kind {
	case resultRequest:
		return r.n, true
	case resultPaused:
		return 0, true
	default:
		return 0, false
	}
}

// And combines two Results per the documented rule: Stop dominates; a
// finite demand combines with another by taking the minimum; Continue
// combined with a finite demand yields that finite demand.
func (r Result) And(other Result) Result {
	if r.IsStop() || other.IsStop() {
		return Stop()
	}
	rn, rFinite := r.Remaining()
	on, oFinite := other.Remaining()
	switch {
	case rFinite && oFinite:
		if rn < on {
			return Request(rn)
		}
		return Request(on)
	case rFinite:
		return Request(rn)
	case oFinite:
		return Request(on)
	default:
		return Continue()
	}
}

// decrement reduces a finite Result by one emitted item, clamping at
// zero (Paused). Continue and Stop are unaffected.
func (r Result) decrement() Result {
	n, finite := r.Remaining()
	if !finite {
		return r
	}
	if n <= 1 {
		return Paused()
	}
	return Request(n - 1)
}

// Observer consumes Events from a running Stream and reports demand for
// the next one.
type Observer[A any] func(Event[A]) Result
