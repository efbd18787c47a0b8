package app

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/pistigreen/pistigreen-backend/internal/observability"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the service middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	conf := cfg.Config
	if conf == nil {
		conf = &Config{XFrameOptions: "DENY", SecureContentTypeNosniff: true, SecureBrowserXSSFilter: true}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	secureOptions := secure.Options{
		ContentTypeNosniff:    conf.SecureContentTypeNosniff,
		BrowserXssFilter:      conf.SecureBrowserXSSFilter,
		ReferrerPolicy:        "same-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           conf.IsProduction() && conf.SecureSSLRedirect,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !conf.IsProduction(),
	}
	if conf.IsProduction() {
		secureOptions.AllowedHosts = conf.AllowedHosts
	}
	switch strings.ToUpper(conf.XFrameOptions) {
	case "DENY":
		secureOptions.FrameDeny = true
	case "":
	default:
		secureOptions.CustomFrameOptionsValue = strings.ToUpper(conf.XFrameOptions)
	}
	secureMiddleware := secure.New(secureOptions)

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins:   conf.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	trusted := trustedOrigins(conf)
	originMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			origin := r.Header.Get("Origin")
			if origin == "" || trusted[strings.ToLower(origin)] || sameHost(origin, r.Host) {
				next.ServeHTTP(w, r)
				return
			}
			logger.Warn("untrusted origin rejected", slog.String("origin", origin), slog.String("path", r.URL.Path))
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}

	timeout := 30 * time.Second
	if conf.AppRequestTimeout > 0 {
		timeout = conf.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					logger.Warn("secure headers blocked request", slog.Any("error", err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		corsMiddleware,
		middleware.Compress(5),
		httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		originMiddleware,
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return append(middlewares, middleware.StripSlashes)
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func trustedOrigins(conf *Config) map[string]bool {
	trusted := make(map[string]bool, len(conf.CSRFTrustedOrigins)+len(conf.CORSAllowedOrigins))
	for _, o := range conf.CSRFTrustedOrigins {
		trusted[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	for _, o := range conf.CORSAllowedOrigins {
		trusted[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	return trusted
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
