// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the recommendation flows over HTTP. Both
// endpoints answer with a JSON array of ranked results.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pdiddy/whats-next/internal/index"
	"github.com/pdiddy/whats-next/internal/library"
	"github.com/pdiddy/whats-next/internal/pipeline"
	"github.com/pdiddy/whats-next/pkg/types"
)

// maxK caps the result count a client may ask for.
const maxK = 100

// Service runs the two recommendation flows.
type Service interface {
	WhatsNext(ctx context.Context, req pipeline.NextRequest) (*pipeline.Response, error)
	Digest(ctx context.Context, req pipeline.DigestRequest) (*pipeline.Response, error)
}

type server struct {
	svc        Service
	log        *slog.Logger
	libraryCfg types.LibraryConfig
	newLibrary func(types.LibraryConfig) (pipeline.Library, error)
}

// Option configures the router.
type Option func(*server)

// WithLibraryDefaults sets the HTTP settings used for libraries named in a
// request body.
func WithLibraryDefaults(cfg types.LibraryConfig) Option {
	return func(s *server) { s.libraryCfg = cfg }
}

// WithLibraryFactory replaces the constructor used for libraries named in
// a request body.
func WithLibraryFactory(f func(types.LibraryConfig) (pipeline.Library, error)) Option {
	return func(s *server) { s.newLibrary = f }
}

type errorResponse struct {
	Error string `json:"error"`
}

// New returns the router. A positive requestTimeout bounds each
// recommendation request.
func New(svc Service, requestTimeout time.Duration, log *slog.Logger, opts ...Option) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	s := &server{svc: svc, log: log, libraryCfg: types.DefaultConfig().Library}
	s.newLibrary = func(cfg types.LibraryConfig) (pipeline.Library, error) {
		z, err := library.NewZotero(cfg, log)
		if err != nil {
			return nil, err
		}
		return z, nil
	}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		if requestTimeout > 0 {
			r.Use(withDeadline(requestTimeout))
		}
		r.Get("/whatsNext/", s.handleWhatsNext)
		r.Post("/whatsNext/", s.handleWhatsNext)
		r.Get("/DailyPaper/", s.handleDigest)
		r.Post("/DailyPaper/", s.handleDigest)
	})
	return r
}

// Run serves handler on cfg.Addr until ctx is done, then shuts down
// gracefully within cfg.ShutdownTimeout.
func Run(ctx context.Context, cfg types.ServerConfig, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", cfg.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"service": "whats-next"})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// nextBody also accepts arxiv_number, the field name earlier clients send.
type nextBody struct {
	ArxivID     string `json:"arxiv_id"`
	ArxivNumber string `json:"arxiv_number"`
	Query       string `json:"query"`
	K           int    `json:"k"`
	Enrich      bool   `json:"enrich"`
}

func (s *server) handleWhatsNext(w http.ResponseWriter, r *http.Request) {
	var req pipeline.NextRequest
	if r.Method == http.MethodPost {
		var body nextBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
			return
		}
		if err := checkK(body.K); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req = pipeline.NextRequest{ArxivID: firstNonEmpty(body.ArxivID, body.ArxivNumber), Query: body.Query, K: body.K, Enrich: body.Enrich}
	} else {
		q := r.URL.Query()
		req = pipeline.NextRequest{ArxivID: q.Get("arxiv_id"), Query: q.Get("query"), Enrich: parseBool(q.Get("enrich"))}
		k, err := parseK(q.Get("k"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req.K = k
	}
	req.K = min(req.K, maxK)

	resp, err := s.svc.WhatsNext(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results(resp))
}

// digestBody also accepts collection_name, the field name earlier clients
// send. library_id, library_type and zotero_api_key name a Zotero library
// to use for this request instead of the configured one.
type digestBody struct {
	Collection     string `json:"collection"`
	CollectionName string `json:"collection_name"`
	Query          string `json:"query"`
	K              int    `json:"k"`
	Enrich         bool   `json:"enrich"`
	LibraryID      string `json:"library_id"`
	LibraryType    string `json:"library_type"`
	ZoteroAPIKey   string `json:"zotero_api_key"`
}

func (s *server) handleDigest(w http.ResponseWriter, r *http.Request) {
	var req pipeline.DigestRequest
	if r.Method == http.MethodPost {
		var body digestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
			return
		}
		if err := checkK(body.K); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req = pipeline.DigestRequest{Collection: firstNonEmpty(body.Collection, body.CollectionName), Query: body.Query, K: body.K, Enrich: body.Enrich}
		lib, err := s.requestLibrary(body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req.Library = lib
	} else {
		q := r.URL.Query()
		req = pipeline.DigestRequest{Collection: q.Get("collection"), Query: q.Get("query"), Enrich: parseBool(q.Get("enrich"))}
		k, err := parseK(q.Get("k"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		req.K = k
	}
	req.K = min(req.K, maxK)

	resp, err := s.svc.Digest(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results(resp))
}

// requestLibrary builds the library named in body, or returns nil when the
// body names none.
func (s *server) requestLibrary(body digestBody) (pipeline.Library, error) {
	id := strings.TrimSpace(body.LibraryID)
	if id == "" {
		if body.ZoteroAPIKey != "" || body.LibraryType != "" {
			return nil, errors.New("library_id is required with library_type or zotero_api_key")
		}
		return nil, nil
	}
	cfg := s.libraryCfg
	cfg.UserID = id
	cfg.Type = strings.ToLower(strings.TrimSpace(body.LibraryType))
	// The configured key never reaches a library named by the caller.
	cfg.APIKey = body.ZoteroAPIKey
	return s.newLibrary(cfg)
}

func results(resp *pipeline.Response) []types.RankedResult {
	if resp == nil || resp.Results == nil {
		return []types.RankedResult{}
	}
	return resp.Results
}

// fail maps pipeline errors onto HTTP statuses.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, library.ErrCollectionNotFound), errors.Is(err, index.ErrIndexNotFound):
		status = http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoLibrary):
		status = http.StatusServiceUnavailable
	case errors.Is(err, index.ErrIndexBuild):
		status = http.StatusBadGateway
	}
	s.log.Error("request failed", "path", r.URL.Path, "status", status, "err", err,
		"request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// withDeadline bounds the request context. Unlike middleware.Timeout it
// writes nothing itself; handlers map the deadline to 504.
func withDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

var errBadK = errors.New("k must be a non-negative integer")

func parseK(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadK
	}
	return k, checkK(k)
}

func checkK(k int) error {
	if k < 0 {
		return errBadK
	}
	return nil
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(raw))
	return b
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
