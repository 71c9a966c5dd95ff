package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"careercatalyst/internal/resume"
	"careercatalyst/internal/store"
)

const (
	adminTokenEnvKey       = "CAREERCATALYST_ADMIN_TOKEN"
	allowRemoteEnvKey      = "CAREERCATALYST_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 2 * time.Minute
	writeTimeout           = 2 * time.Minute
	idleTimeout            = 60 * time.Second
	shutdownTimeout        = 15 * time.Second
	uploadConcurrencyLimit = 8

	loginMaxFailures = 5
	loginWindow      = 15 * time.Minute
	loginBlockedFor  = 15 * time.Minute

	defaultMultipartMaxMemory int64 = 8 << 20
)

// Backend is the persistence surface the HTTP layer needs.
type Backend interface {
	store.OwnerStore
	store.AccountStore
	store.JobStore
	store.SessionStore
	StoreInfo(ctx context.Context, now time.Time) (store.Info, error)
}

// Options configures a Server.
type Options struct {
	DBPath             string
	UploadDir          string
	CORSOrigins        []string
	MultipartMaxMemory int64
	// OrphanGracePeriod is the default grace of admin reconcile requests.
	OrphanGracePeriod time.Duration
	Logger            *slog.Logger
}

// Server wraps HTTP handlers for the CareerCatalyst API.
type Server struct {
	addr               string
	store              Backend
	resumes            *resume.Manager
	authService        *AuthService
	loginLimiter       *loginRateLimiter
	uploadLimiter      chan struct{}
	cors               corsPolicy
	multipartMaxMemory int64
	orphanGrace        time.Duration
	dbPath             string
	uploadDir          string
	adminToken         string
	logger             *slog.Logger
}

// New creates a new server instance.
func New(addr string, backend Backend, resumes *resume.Manager, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxMemory := opts.MultipartMaxMemory
	if maxMemory <= 0 {
		maxMemory = defaultMultipartMaxMemory
	}
	grace := opts.OrphanGracePeriod
	if grace <= 0 {
		grace = resume.DefaultGracePeriod
	}

	return &Server{
		addr:               addr,
		store:              backend,
		resumes:            resumes,
		authService:        NewAuthService(backend),
		loginLimiter:       newLoginRateLimiter(loginMaxFailures, loginWindow, loginBlockedFor),
		uploadLimiter:      make(chan struct{}, uploadConcurrencyLimit),
		cors:               newCORSPolicy(opts.CORSOrigins),
		multipartMaxMemory: maxMemory,
		orphanGrace:        grace,
		dbPath:             opts.DBPath,
		uploadDir:          opts.UploadDir,
		adminToken:         strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
		logger:             logger,
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log().Info("stopping server", "addr", s.addr)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
