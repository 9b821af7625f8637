// Package routes declares HTTP endpoints as nested groups and registers them on a ServeMux.
package routes

import "net/http"

// Route binds a method and a pattern relative to its group to a handler.
// An empty Method matches every method.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

func (r Route) pattern(prefix string) string {
	path := prefix + r.Pattern
	if path == "" {
		path = "/"
	}
	if r.Method == "" {
		return path
	}
	return r.Method + " " + path
}
