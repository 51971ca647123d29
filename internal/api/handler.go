package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ramshi122/crazy-time-predictor/internal/alerts"
	"github.com/ramshi122/crazy-time-predictor/internal/analytics"
	"github.com/ramshi122/crazy-time-predictor/internal/auth"
	"github.com/ramshi122/crazy-time-predictor/internal/config"
	"github.com/ramshi122/crazy-time-predictor/internal/consensus"
	"github.com/ramshi122/crazy-time-predictor/internal/feed"
	"github.com/ramshi122/crazy-time-predictor/internal/history"
	"github.com/ramshi122/crazy-time-predictor/internal/llm"
	"github.com/ramshi122/crazy-time-predictor/internal/predictor"
	"github.com/ramshi122/crazy-time-predictor/internal/store"
	"github.com/ramshi122/crazy-time-predictor/internal/wheel"
)

// LatestKey is the store key holding the most recent round.
const LatestKey = "latest"

const (
	defaultRoundsLimit = 20
	maxRoundsLimit     = 500
	maxBodyBytes       = 1 << 20
)

// LiveFeed is the live-data source.
type LiveFeed interface {
	Fetch(ctx context.Context) (*feed.Feed, error)
	Last() *feed.Feed
}

// RoundRunner runs a full round and publishes it.
type RoundRunner interface {
	Run(ctx context.Context) (*predictor.Round, error)
	Busy() bool
}

// AutoPredict is the auto-predict switch.
type AutoPredict interface {
	Enabled() bool
	Toggle() bool
	Interval() time.Duration
	NextRun() time.Time
}

// Deps are the components the API serves. Auto, History, Alerts, Metrics
// and Stream may be nil.
type Deps struct {
	Server    config.ServerConfig
	Providers config.ProvidersConfig
	Feed      LiveFeed
	Registry  *llm.Registry
	Runner    RoundRunner
	Latest    *store.Store[*predictor.Round]
	Stats     func() predictor.Stats
	Auto      AutoPredict
	History   history.Recorder
	Alerts    *alerts.Engine
	Metrics   http.Handler
	Stream    StreamHub
}

// StreamHub serves the websocket stream.
type StreamHub interface {
	http.Handler
	Count() int
}

// Handler serves the REST API, metrics, websocket stream and optional UI.
type Handler struct {
	d       Deps
	router  *mux.Router
	handler http.Handler
	now     func() time.Time
}

// New creates a Handler and registers all routes. ServeHTTP applies CORS.
func New(d Deps) *Handler {
	h := &Handler{d: d, router: mux.NewRouter(), now: time.Now}
	h.routes()
	h.handler = h.cors()
	return h
}

func (h *Handler) routes() {
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})

	r := h.router
	r.MethodNotAllowedHandler = notAllowed
	r.NotFoundHandler = notFound

	header := h.d.Server.Auth.Header
	if header == "" {
		header = "X-API-Key"
	}
	protect := auth.APIKey(h.d.Server.Auth.Mode, header, h.d.Server.Auth.Key())
	post := func(fn http.HandlerFunc) http.Handler { return protect(fn) }

	// The /api subrouter answers every path under its prefix, so the UI
	// fallback below never sees API requests.
	api := r.PathPrefix("/api").Subrouter()
	api.MethodNotAllowedHandler = notAllowed
	api.NotFoundHandler = notFound

	api.HandleFunc("/health", h.health).Methods(http.MethodGet)
	api.HandleFunc("/status", h.status).Methods(http.MethodGet)
	api.HandleFunc("/live-data", h.liveData).Methods(http.MethodGet)
	api.HandleFunc("/frequency", h.frequency).Methods(http.MethodGet)
	api.HandleFunc("/rounds", h.rounds).Methods(http.MethodGet)
	api.HandleFunc("/rounds/latest", h.latestRound).Methods(http.MethodGet)
	api.HandleFunc("/alerts", h.alerts).Methods(http.MethodGet)

	api.Handle("/ai/ensemble", post(h.ensemble)).Methods(http.MethodPost)
	api.Handle("/ai/{provider}", post(h.provider)).Methods(http.MethodPost)
	api.Handle("/predict", post(h.predict)).Methods(http.MethodPost)
	api.Handle("/auto", post(h.toggleAuto)).Methods(http.MethodPost)

	if h.d.Metrics != nil {
		r.Handle("/metrics", h.d.Metrics).Methods(http.MethodGet)
	}
	if h.d.Stream != nil {
		r.Handle("/ws/stream", h.d.Stream)
	}
	if h.d.Server.UIDir != "" {
		r.PathPrefix("/").Handler(spaHandler{dir: h.d.Server.UIDir})
	}
}

// ServeHTTP applies CORS and dispatches to the router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) cors() http.Handler {
	origins := h.d.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	header := h.d.Server.Auth.Header
	if header == "" {
		header = "X-API-Key"
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", header},
	}).Handler(h.router)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:        "online",
		Timestamp:     h.timestamp(),
		AIProviders:   h.d.Registry.Status(),
		AnyConfigured: h.d.Registry.AnyConfigured(),
	})
}

// Status reports the predictor, scheduler and stream state.
func (h *Handler) Status() StatusResponse {
	st := StatusResponse{
		Busy:      h.d.Runner.Busy(),
		Providers: h.d.Registry.Status(),
		Timestamp: h.timestamp(),
	}
	if h.d.Stats != nil {
		st.Stats = h.d.Stats()
	}
	if h.d.Auto != nil {
		st.Auto = h.d.Auto.Enabled()
		st.Interval = h.d.Auto.Interval().String()
		if next := h.d.Auto.NextRun(); !next.IsZero() && st.Auto {
			st.NextRun = next.UTC().Format(time.RFC3339)
		}
	}
	if h.d.Stream != nil {
		st.Clients = h.d.Stream.Count()
	}
	if round, ok := h.d.Latest.Fresh(LatestKey); ok {
		st.LatestRound = round.ID
	}
	return st
}

// status returns GET /api/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.Status())
}

// liveData returns GET /api/live-data.
func (h *Handler) liveData(w http.ResponseWriter, r *http.Request) {
	f, err := h.d.Feed.Fetch(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		msg := err.Error()
		if errors.Is(err, feed.ErrNoData) {
			code, msg = http.StatusServiceUnavailable, "No data sources available"
		}
		jsonResp(w, code, LiveDataResponse{Error: msg, Timestamp: h.timestamp()})
		return
	}
	jsonResp(w, http.StatusOK, LiveDataResponse{
		Success:   true,
		Data:      f.Spins,
		Source:    f.Source,
		Timestamp: h.timestamp(),
	})
}

// frequency returns GET /api/frequency for the last accepted feed.
func (h *Handler) frequency(w http.ResponseWriter, r *http.Request) {
	f := h.d.Feed.Last()
	if f == nil {
		var err error
		if f, err = h.d.Feed.Fetch(r.Context()); err != nil {
			jsonErr(w, http.StatusServiceUnavailable, "No data sources available")
			return
		}
	}
	keys := wheel.NormalizeAll(f.Results())
	jsonResp(w, http.StatusOK, FrequencyResponse{
		Source: f.Source,
		Spins:  len(keys),
		Rows:   analytics.Frequency(keys),
	})
}

// provider returns POST /api/ai/{provider}.
func (h *Handler) provider(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["provider"]
	p, ok := h.d.Registry.Get(name)
	if !ok {
		jsonErr(w, http.StatusNotFound, fmt.Sprintf("unknown provider %q", name))
		return
	}
	if !p.Configured() {
		jsonResp(w, http.StatusBadRequest, ProviderResponse{
			Error:    h.notConfigured(name),
			Provider: name,
		})
		return
	}

	var req ProviderRequest
	if err := decode(w, r, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	pred, err := p.Predict(r.Context(), llm.Request{Recent: req.Recent, Frequency: req.Frequency})
	if err != nil {
		jsonResp(w, http.StatusInternalServerError, ProviderResponse{Error: err.Error(), Provider: name})
		return
	}
	jsonResp(w, http.StatusOK, ProviderResponse{
		Success:   true,
		Data:      pred,
		Provider:  name,
		Timestamp: h.timestamp(),
	})
}

func (h *Handler) notConfigured(name string) string {
	var env string
	switch name {
	case llm.Claude:
		env = h.d.Providers.Anthropic.KeyEnv
	case llm.GPT:
		env = h.d.Providers.OpenAI.KeyEnv
	case llm.Gemini:
		env = h.d.Providers.Google.KeyEnv
	}
	if env == "" {
		return name + " API key not configured"
	}
	return fmt.Sprintf("%s API key not configured. Set %s environment variable.", name, env)
}

// ensemble returns POST /api/ai/ensemble. Every entry counts towards the
// two-prediction minimum and the average confidence; only entries with a
// prediction vote.
func (h *Handler) ensemble(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Recent      string            `json:"recent"`
		Frequency   string            `json:"frequency"`
		Predictions []json.RawMessage `json:"predictions"`
	}
	if err := decode(w, r, &body); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	preds := make([]llm.Prediction, len(body.Predictions))
	for i, raw := range body.Predictions {
		preds[i] = llm.ParseEntry(string(raw))
	}

	res, err := consensus.Combine(preds)
	switch {
	case errors.Is(err, consensus.ErrTooFewPredictions):
		jsonResp(w, http.StatusBadRequest, EnsembleResponse{Error: "Need at least 2 predictions to create ensemble"})
		return
	case err != nil:
		jsonResp(w, http.StatusBadRequest, EnsembleResponse{Error: err.Error()})
		return
	}
	jsonResp(w, http.StatusOK, EnsembleResponse{
		Success:   true,
		Data:      &res,
		Provider:  "ensemble",
		Timestamp: h.timestamp(),
	})
}

// predict returns POST /api/predict: runs and publishes a full round.
func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	round, err := h.d.Runner.Run(r.Context())
	if err != nil {
		if errors.Is(err, predictor.ErrBusy) {
			jsonErr(w, http.StatusConflict, err.Error())
			return
		}
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, round)
}

// toggleAuto returns POST /api/auto.
func (h *Handler) toggleAuto(w http.ResponseWriter, r *http.Request) {
	if h.d.Auto == nil {
		jsonErr(w, http.StatusNotFound, "auto predict is not available")
		return
	}
	jsonResp(w, http.StatusOK, map[string]bool{"enabled": h.d.Auto.Toggle()})
}

// latestRound returns GET /api/rounds/latest.
func (h *Handler) latestRound(w http.ResponseWriter, r *http.Request) {
	round, ok := h.d.Latest.Fresh(LatestKey)
	if !ok {
		jsonErr(w, http.StatusNotFound, "no round yet")
		return
	}
	jsonResp(w, http.StatusOK, round)
}

// rounds returns GET /api/rounds?limit=N from history.
func (h *Handler) rounds(w http.ResponseWriter, r *http.Request) {
	limit := defaultRoundsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRoundsLimit)
	}
	if h.d.History == nil {
		jsonResp(w, http.StatusOK, RoundsResponse{Rounds: []history.Summary{}})
		return
	}
	out, err := h.d.History.Recent(r.Context(), limit)
	if err != nil {
		zap.L().Warn("api: history query failed", zap.Error(err))
		jsonErr(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if out == nil {
		out = []history.Summary{}
	}
	jsonResp(w, http.StatusOK, RoundsResponse{Rounds: out})
}

// alerts returns GET /api/alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if h.d.Alerts == nil {
		jsonResp(w, http.StatusOK, []*alerts.Alert{})
		return
	}
	jsonResp(w, http.StatusOK, h.d.Alerts.Active())
}

// spaHandler serves static files from dir and falls back to index.html for
// paths that do not exist.
type spaHandler struct {
	dir string
}

func (s spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	clean := filepath.Clean("/" + r.URL.Path)
	path := filepath.Join(s.dir, filepath.FromSlash(clean))
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		http.ServeFile(w, r, filepath.Join(s.dir, "index.html"))
		return
	}
	http.ServeFile(w, r, path)
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
