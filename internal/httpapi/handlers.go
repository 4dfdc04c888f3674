package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"counselbot.org/internal/auth"
	"counselbot.org/internal/obs"
	"counselbot.org/internal/ratelimit"
)

const (
	serviceName    = "counselbot-api"
	bannerMessage  = "Maseno Counseling Bot API"
	defaultVersion = "1.0.0"
)

var apiRoutes = []string{"/api/", "/api/health", "/api/login", "/api/me", "/api/test"}

var errDatabaseNotConfigured = errors.New("database not configured")

// ReadyChecker reports whether the service can answer authenticated traffic.
type ReadyChecker interface {
	Check(ctx context.Context) error
}

// ReadyProbe pings the credential database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return errDatabaseNotConfigured
	}
	return rp.DB.PingContext(ctx)
}

// Options wires the API to its collaborators. Credentials and Sessions may be
// unconfigured; login and /api/me then answer 500 naming the missing setting.
type Options struct {
	Version      string
	Credentials  *auth.CredentialStore
	Sessions     *auth.SessionIssuer
	Ready        ReadyChecker
	LoginLimiter ratelimit.Limiter
	MaxBodyBytes int64

	// TrustedProxies are peers whose X-Forwarded-For names the client.
	TrustedProxies []netip.Prefix
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	version      string
	credentials  *auth.CredentialStore
	sessions     *auth.SessionIssuer
	authz        *auth.Authorizer
	ready        ReadyChecker
	loginLimiter ratelimit.Limiter
	maxBodyBytes int64
	trusted      []netip.Prefix
	now          func() time.Time
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		version:      opts.Version,
		credentials:  opts.Credentials,
		sessions:     opts.Sessions,
		authz:        auth.NewAuthorizer(opts.Sessions, opts.Credentials),
		ready:        opts.Ready,
		loginLimiter: opts.LoginLimiter,
		maxBodyBytes: opts.MaxBodyBytes,
		trusted:      opts.TrustedProxies,
		now:          time.Now,
	}
	if a.version == "" {
		a.version = defaultVersion
	}
	if a.ready == nil {
		a.ready = ReadyProbe{}
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	a.mux.Handle("/api", allowMethods(http.HandlerFunc(a.Index), http.MethodGet, http.MethodHead))
	a.mux.HandleFunc("/api/", a.apiFallback)
	a.mux.Handle("/api/health", allowMethods(http.HandlerFunc(a.Health), http.MethodGet, http.MethodHead))
	a.mux.Handle("/api/test", allowMethods(http.HandlerFunc(a.Echo), http.MethodGet, http.MethodPost))
	a.mux.Handle("/api/login", allowMethods(a.throttleLogin(http.HandlerFunc(a.handleLogin)), http.MethodPost))
	a.mux.Handle("/api/me", allowMethods(a.requireAuth(http.HandlerFunc(a.handleMe)), http.MethodGet))

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", a.notFound)

	return a
}

// Handler returns the fully wrapped handler for the HTTP server.
func (a *API) Handler() http.Handler {
	var h http.Handler = obs.Instrument(a.mux)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	return RequestID(h)
}

// Probe exposes the readiness check for the gRPC health service.
func (a *API) Probe() ReadyChecker { return a.ready }

// --- Handlers ---

func (a *API) Index(w http.ResponseWriter, r *http.Request) {
	database := "NOT_CONFIGURED"
	if a.credentials.Configured() {
		database = "CONNECTED"
	}
	jwtState := "NOT_CONFIGURED"
	if a.sessions.Configured() {
		jwtState = "CONFIGURED"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            bannerMessage,
		"status":             "ONLINE",
		"version":            a.version,
		"timestamp":          a.timestamp(),
		"authentication":     "READY",
		"database":           database,
		"jwt":                jwtState,
		"availableEndpoints": apiRoutes,
	})
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Health check successful",
		"status":    "OK",
		"timestamp": a.timestamp(),
		"version":   a.version,
	})
}

func (a *API) Echo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Test endpoint working!",
		"timestamp": a.timestamp(),
		"method":    r.Method,
		"url":       r.URL.RequestURI(),
		"version":   a.version,
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		obs.Logger().WithError(err).Warn("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) apiFallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/" {
		allowMethods(http.HandlerFunc(a.Index), http.MethodGet, http.MethodHead).ServeHTTP(w, r)
		return
	}
	a.notFound(w, r)
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":           "Route not found",
		"path":            r.URL.Path,
		"method":          r.Method,
		"availableRoutes": apiRoutes,
	})
}

func (a *API) timestamp() string {
	return a.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// --- helpers ---

func allowMethods(next http.Handler, methods ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				next.ServeHTTP(w, r)
				return
			}
		}
		methodNotAllowed(w, r, methods...)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, limit int64) error {
	reader := http.MaxBytesReader(w, r.Body, limit)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("request body must be valid JSON")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func writeErrorDetails(w http.ResponseWriter, r *http.Request, code int, msg, details string) {
	payload := map[string]any{
		"error":   msg,
		"details": details,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
