// Package middleware provides composable HTTP middleware for request logging and CORS.
package middleware

import "net/http"

// Func wraps an http.Handler.
type Func func(http.Handler) http.Handler

// Chain is an ordered middleware stack. The first entry is the outermost wrapper.
type Chain []Func

// Use appends mw to the chain.
func (c *Chain) Use(mw Func) {
	*c = append(*c, mw)
}

// Then wraps handler with every middleware in the chain.
func (c Chain) Then(handler http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		handler = c[i](handler)
	}
	return handler
}
