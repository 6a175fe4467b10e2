package dispatch

import (
	"fmt"

	"github.com/Tyrowin/reddnotes/internal/apperr"
)

// AnyMethod registers a route consulted when no method-specific route for the
// same type and action matches.
const AnyMethod = "*"

// Notify selects who receives a route's successful result.
type Notify int

// Notify policies.
const (
	NotifyNone Notify = iota
	NotifyCaller
	NotifyAll
	NotifyAllExceptCaller
)

func (n Notify) String() string {
	switch n {
	case NotifyNone:
		return "none"
	case NotifyCaller:
		return "caller"
	case NotifyAll:
		return "all"
	case NotifyAllExceptCaller:
		return "all_except_caller"
	default:
		return fmt.Sprintf("notify(%d)", int(n))
	}
}

// Route describes one operation.
type Route struct {
	Type   string
	Action string
	// Method is AnyMethod when the action needs no disambiguation.
	Method string

	RequiresAuth bool
	// EstablishesIdentity marks login and signup: the result's identity is
	// bound to the connection.
	EstablishesIdentity bool
	Notify              Notify
	Handler             Handler
}

// Key identifies a route.
type Key struct {
	Type   string
	Action string
	Method string
}

func (r Route) key() Key {
	return Key{Type: r.Type, Action: r.Action, Method: r.Method}
}

type actionKey struct {
	typ    string
	action string
}

// Table is an immutable route lookup.
type Table struct {
	routes  map[Key]Route
	types   map[string]struct{}
	actions map[actionKey]struct{}
}

// NewTable validates routes and builds a Table. Duplicate keys, empty type
// or action, and missing handlers are rejected.
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		routes:  make(map[Key]Route, len(routes)),
		types:   make(map[string]struct{}),
		actions: make(map[actionKey]struct{}),
	}

	for _, r := range routes {
		if r.Type == "" || r.Action == "" {
			return nil, fmt.Errorf("dispatch: route %+v must have a type and an action", r.key())
		}
		if r.Method == "" {
			r.Method = AnyMethod
		}
		if r.Handler == nil {
			return nil, fmt.Errorf("dispatch: route %s/%s/%s has no handler", r.Type, r.Action, r.Method)
		}
		if _, exists := t.routes[r.key()]; exists {
			return nil, fmt.Errorf("dispatch: duplicate route %s/%s/%s", r.Type, r.Action, r.Method)
		}
		t.routes[r.key()] = r
		t.types[r.Type] = struct{}{}
		t.actions[actionKey{r.Type, r.Action}] = struct{}{}
	}
	return t, nil
}

// MustTable is NewTable for route lists fixed at compile time.
func MustTable(routes ...Route) *Table {
	t, err := NewTable(routes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve finds the route for the triple. The error names the first level
// that did not match.
func (t *Table) Resolve(typ, action, method string) (Route, *apperr.Error) {
	if r, ok := t.routes[Key{typ, action, method}]; ok && method != AnyMethod {
		return r, nil
	}
	if r, ok := t.routes[Key{typ, action, AnyMethod}]; ok {
		return r, nil
	}

	if _, ok := t.types[typ]; !ok {
		return Route{}, apperr.NotFound("Not found this type [%s]", typ)
	}
	if _, ok := t.actions[actionKey{typ, action}]; !ok {
		return Route{}, apperr.NotFound("Not found this action [%s] in type [%s]", action, typ)
	}
	return Route{}, apperr.NotFound("Not found this method [%s] in action [%s] in type [%s]", method, action, typ)
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	return len(t.routes)
}
