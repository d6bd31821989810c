package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowOrigins lists accepted origins; "*" accepts any.
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       int
}

// DefaultCORSConfig returns permissive CORS config for the local dashboard
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept", "Last-Event-ID"},
		MaxAge:       86400,
	}
}

// ParseCORSOrigins splits a comma separated origin list. Empty input keeps
// the default.
func ParseCORSOrigins(list string) []string {
	var origins []string
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, strings.TrimSuffix(o, "/"))
		}
	}
	if len(origins) == 0 {
		return DefaultCORSConfig().AllowOrigins
	}
	return origins
}

type corsHeaders struct {
	origins []string
	methods string
	headers string
	maxAge  string
}

func newCORSHeaders(config CORSConfig) corsHeaders {
	return corsHeaders{
		origins: config.AllowOrigins,
		methods: strings.Join(config.AllowMethods, ", "),
		headers: strings.Join(config.AllowHeaders, ", "),
		maxAge:  strconv.Itoa(config.MaxAge),
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin, or "" when the origin is not accepted.
func (c corsHeaders) allowOrigin(origin string) string {
	if slices.Contains(c.origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(c.origins, origin) {
		return origin
	}
	return ""
}

func (c corsHeaders) apply(set func(key, value string), origin string) {
	allowed := c.allowOrigin(origin)
	if allowed == "" {
		return
	}
	set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		set("Vary", "Origin")
	}
	set("Access-Control-Allow-Methods", c.methods)
	set("Access-Control-Allow-Headers", c.headers)
	set("Access-Control-Max-Age", c.maxAge)
}

// NewCORSMiddleware creates CORS middleware with the given configuration
func NewCORSMiddleware(config CORSConfig) func(huma.Context, func(huma.Context)) {
	cors := newCORSHeaders(config)

	return func(ctx huma.Context, next func(huma.Context)) {
		cors.apply(ctx.SetHeader, ctx.Header("Origin"))

		if ctx.Method() == http.MethodOptions {
			ctx.SetStatus(http.StatusNoContent)
			return
		}
		next(ctx)
	}
}

// AddCORSHandler answers preflight requests, which huma never routes to
// middleware.
func AddCORSHandler(mux *http.ServeMux, config CORSConfig) {
	cors := newCORSHeaders(config)

	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		cors.apply(w.Header().Set, r.Header.Get("Origin"))
		w.WriteHeader(http.StatusNoContent)
	})
}
