package protocol

import (
	"sync"

	"github.com/sloked-go/sloked/internal/corerr"
)

// Handler answers one Request with a result Value or an error.
type Handler func(params Value) (Value, error)

// Router dispatches requests by their dotted method name (e.g.
// "handle.newMultiplexer", "multiplexer.newWindow"), per spec.md §6.2.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRouter builds an empty Router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Handle registers fn for method, overwriting any previous registration.
func (r *Router) Handle(method string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = fn
}

// Dispatch runs req against the registered handler, producing the
// matching Response. An unregistered method produces an error response
// rather than panicking.
func (r *Router) Dispatch(req Request) Response {
	r.mu.RLock()
	fn, ok := r.handlers[req.Method]
	r.mu.RUnlock()
	if !ok {
		return Fail(req, corerr.InvalidState.String(), "unknown method: "+req.Method)
	}
	result, err := fn(req.Params)
	if err != nil {
		return Fail(req, kindOf(err), err.Error())
	}
	return OK(req, result)
}

func kindOf(err error) string {
	for _, k := range []corerr.Kind{
		corerr.OutOfRange, corerr.InvalidState, corerr.Encoding,
		corerr.Listener, corerr.CoreCorruption,
	} {
		if corerr.Is(err, k) {
			return k.String()
		}
	}
	return "Unknown"
}
