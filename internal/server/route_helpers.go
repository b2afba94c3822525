package server

import (
	"net/http"

	"github.com/ternarybob/medguard/internal/handlers"
)

// RouteHandler is a function type for HTTP handlers
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers
type MethodRouter map[string]RouteHandler

// RouteByMethod dispatches on r.Method; unknown methods get 405 with an Allow header
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	if handler, ok := routes[r.Method]; ok && handler != nil {
		handler(w, r)
		return
	}

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		if routes[method] != nil {
			w.Header().Add("Allow", method)
		}
	}
	handlers.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// RouteResourceCollection: GET lists, POST creates
func RouteResourceCollection(w http.ResponseWriter, r *http.Request, list, create RouteHandler) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:  list,
		http.MethodPost: create,
	})
}

// RouteResourceItem: GET reads, DELETE removes. Session records are never
// edited in place, so there is no PUT.
func RouteResourceItem(w http.ResponseWriter, r *http.Request, get, remove RouteHandler) {
	RouteByMethod(w, r, MethodRouter{
		http.MethodGet:    get,
		http.MethodDelete: remove,
	})
}

// SplitResourcePath splits "/prefix/{id}" or "/prefix/{id}/{sub}".
// Deeper paths and an empty id are rejected.
func SplitResourcePath(path, prefix string) (id, sub string, ok bool) {
	segments := handlers.PathSegments(path, prefix)
	switch len(segments) {
	case 1:
		return segments[0], "", true
	case 2:
		return segments[0], segments[1], true
	}
	return "", "", false
}

// WithID adapts a handler that takes the resource id
func WithID(id string, h func(http.ResponseWriter, *http.Request, string)) RouteHandler {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, id)
	}
}
