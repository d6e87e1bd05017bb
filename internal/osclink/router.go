package osclink

import (
	"path"

	"github.com/hypebeast/go-osc/osc"
)

// HandlerFunc receives one decoded message.
type HandlerFunc func(*osc.Message)

type route struct {
	pattern string
	handler HandlerFunc
}

// Router dispatches messages by address pattern. Patterns use path.Match
// syntax, so "*" matches exactly one address segment. The first registered
// matching route wins.
type Router struct {
	routes   []route
	fallback HandlerFunc
}

// Handle registers handler for pattern.
func (r *Router) Handle(pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, route{pattern: pattern, handler: handler})
}

// Default registers the handler for unmatched addresses.
func (r *Router) Default(handler HandlerFunc) {
	r.fallback = handler
}

// Dispatch routes msg and reports whether a specific route matched.
func (r *Router) Dispatch(msg *osc.Message) bool {
	if msg == nil {
		return false
	}
	for _, rt := range r.routes {
		if ok, _ := path.Match(rt.pattern, msg.Address); ok {
			rt.handler(msg)
			return true
		}
	}
	if r.fallback != nil {
		r.fallback(msg)
	}
	return false
}
