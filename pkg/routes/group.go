package routes

import (
	"net/http"
	"slices"
)

// Group collects routes under a shared prefix. Children inherit the prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds every route in groups to mux and returns the registered patterns in sorted order.
// ServeMux panics on conflicting patterns.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, g := range groups {
		patterns = g.register(mux, "", patterns)
	}
	slices.Sort(patterns)
	return patterns
}

func (g Group) register(mux *http.ServeMux, parent string, acc []string) []string {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		p := r.pattern(prefix)
		mux.HandleFunc(p, r.Handler)
		acc = append(acc, p)
	}
	for _, child := range g.Children {
		acc = child.register(mux, prefix, acc)
	}
	return acc
}
