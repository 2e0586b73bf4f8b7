package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	allowMethods = "POST, OPTIONS"
	allowHeaders = "Content-Type"
)

// CORSPolicy decides the cross-origin headers attached to every response.
type CORSPolicy struct {
	origins  []string
	wildcard bool
	maxAge   time.Duration
}

// NewCORSPolicy accepts exact origins ("https://www.example.com") or "*".
func NewCORSPolicy(origins []string, maxAge time.Duration) (CORSPolicy, error) {
	p := CORSPolicy{maxAge: maxAge}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
			continue
		case "*":
			p.wildcard = true
		default:
			p.origins = append(p.origins, o)
		}
	}
	if !p.wildcard && len(p.origins) == 0 {
		return CORSPolicy{}, errors.New("handler: at least one allowed origin is required")
	}
	return p, nil
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin and whether the value depends on it. The result is always "*" or
// one of the configured origins.
func (p CORSPolicy) allowOrigin(requestOrigin string) (string, bool) {
	if p.wildcard {
		return "*", false
	}
	requestOrigin = strings.TrimRight(requestOrigin, "/")
	for _, o := range p.origins {
		if strings.EqualFold(o, requestOrigin) {
			return o, true
		}
	}
	return p.origins[0], true
}

func (p CORSPolicy) apply(headers map[string]string, requestOrigin string, preflight bool) {
	origin, varies := p.allowOrigin(requestOrigin)
	headers["Access-Control-Allow-Origin"] = origin
	headers["Access-Control-Allow-Methods"] = allowMethods
	headers["Access-Control-Allow-Headers"] = allowHeaders
	if varies {
		headers["Vary"] = "Origin"
	}
	if preflight && p.maxAge > 0 {
		headers["Access-Control-Max-Age"] = strconv.Itoa(int(p.maxAge.Seconds()))
	}
}

// Headers returns the cross-origin headers for a non-preflight response.
// Middleware that answers before the handler runs uses it.
func (p CORSPolicy) Headers(requestOrigin string) map[string]string {
	headers := make(map[string]string, 4)
	p.apply(headers, requestOrigin, false)
	return headers
}
