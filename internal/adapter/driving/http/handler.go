// Package httphandler is the REST and websocket driving adapter.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/vaultpanel/internal/application"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// Accounts is the cached account store the handler serves from.
type Accounts interface {
	State() application.StoreState
	GetAllAccounts() []model.Account
	GetAccount(name string) (model.Account, error)
	CreateAccount(ctx context.Context, name, token string) (model.Account, error)
	DeleteAccount(ctx context.Context, name string) error
	SyncOneAccount(ctx context.Context, name string) (model.Account, error)
	FilteredObjectives(keep func(model.Objective) bool) []model.Objective
	GetAllObjectivesWithPeers() []model.ObjectiveWithPeers
}

// Syncer runs a full sync of every account on demand.
type Syncer interface {
	TriggerSync(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	accounts Accounts
	syncer   Syncer
	events   *application.Notifier
	schedule driven.ScheduleSource
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. events and
// schedule may be nil, which disables their endpoints.
func NewHandler(
	accounts Accounts,
	syncer Syncer,
	events *application.Notifier,
	schedule driven.ScheduleSource,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		accounts: accounts,
		syncer:   syncer,
		events:   events,
		schedule: schedule,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request id, logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/accounts", h.ListAccounts)
	mux.HandleFunc("POST /api/v1/accounts", h.CreateAccount)
	mux.HandleFunc("GET /api/v1/accounts/{name}", h.GetAccount)
	mux.HandleFunc("DELETE /api/v1/accounts/{name}", h.DeleteAccount)
	mux.HandleFunc("POST /api/v1/accounts/{name}/sync", h.SyncAccount)
	mux.HandleFunc("POST /api/v1/sync", h.SyncAll)
	mux.HandleFunc("GET /api/v1/objectives", h.ListObjectives)
	mux.HandleFunc("GET /api/v1/objectives/clipboard", h.ObjectivesClipboard)
	mux.HandleFunc("GET /api/v1/psna", h.PactSupply)
	mux.HandleFunc("GET /api/v1/events", h.Events)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// Health reports liveness and the store's lifecycle state.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Store:  h.accounts.State().String(),
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListAccounts returns every cached account ordered by name.
func (h *Handler) ListAccounts(w http.ResponseWriter, _ *http.Request) {
	if !h.ready(w) {
		return
	}

	accounts := h.accounts.GetAllAccounts()
	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetAccount returns one cached account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	account, err := h.accounts.GetAccount(r.PathValue("name"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// CreateAccount stores a new account and runs its first sync. An account whose
// first sync failed is still created; the failure is reported in sync_error.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req CreateAccountRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Token = strings.TrimSpace(req.Token)

	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "name and token are required")
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.Name, req.Token)
	switch {
	case errors.Is(err, application.ErrInitialSync):
		h.logger.Warn("account created without initial sync", "account", account.Name, "error", err)
		writeJSON(w, http.StatusCreated, CreateAccountResponse{
			AccountResponse: toAccountResponse(account),
			SyncError:       err.Error(),
		})
	case err != nil:
		h.respondErr(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, CreateAccountResponse{AccountResponse: toAccountResponse(account)})
	}
}

// DeleteAccount removes an account and its objective associations.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), r.PathValue("name")); err != nil {
		h.respondErr(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SyncAccount fetches and persists one account's objectives now.
func (h *Handler) SyncAccount(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	account, err := h.accounts.SyncOneAccount(r.Context(), r.PathValue("name"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// SyncAll runs a full sync through the background updater and returns the
// refreshed accounts. Per-account failures are logged by the updater.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	if err := h.syncer.TriggerSync(r.Context()); err != nil {
		h.respondErr(w, r, err)
		return
	}

	h.ListAccounts(w, r)
}

// ListObjectives returns peer-annotated objectives narrowed by the endpoint,
// track, account, completed and not_completed query parameters.
func (h *Handler) ListObjectives(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	all := h.accounts.GetAllObjectivesWithPeers()
	resp := make([]ObjectiveResponse, 0, len(all))
	for _, o := range all {
		if filter.Matches(o.Objective) {
			resp = append(resp, toObjectiveResponse(o.Objective, o.Peers))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ObjectivesClipboard returns the filtered objectives as clipboard text.
func (h *Handler) ObjectivesClipboard(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(application.FormatClipboard(h.accounts.FilteredObjectives(filter.Matches))))
}

// PactSupply returns today's Pact Supply Network Agent waypoint chat links.
func (h *Handler) PactSupply(w http.ResponseWriter, r *http.Request) {
	if h.schedule == nil {
		writeError(w, http.StatusNotFound, "schedule lookup disabled")
		return
	}

	links, err := h.schedule.PactSupplyLocations(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ScheduleResponse{ChatLinks: links})
}

// ready writes 503 and returns false until the store has loaded.
func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.accounts.State() == application.StateInitialized {
		return true
	}
	writeError(w, http.StatusServiceUnavailable, "store is not initialized")
	return false
}

// respondErr maps err to a status code. Unknown errors are logged and hidden
// behind a generic 500.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"status", status,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
	}
	writeError(w, status, message)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, driven.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"
	case errors.Is(err, driven.ErrAccountAlreadyExists):
		return http.StatusConflict, "account already exists"
	case errors.Is(err, driven.ErrInvalidAccount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, driven.ErrRateLimited):
		return http.StatusTooManyRequests, driven.ErrRateLimited.Error()
	case errors.Is(err, driven.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, driven.ErrServiceUnavailable.Error()
	case errors.Is(err, driven.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream request timed out"
	case errors.Is(err, driven.ErrUnauthorized),
		errors.Is(err, driven.ErrForbidden),
		errors.Is(err, driven.ErrRemoteNotFound),
		errors.Is(err, driven.ErrUnexpectedStatus),
		errors.Is(err, driven.ErrResponseFormat),
		errors.Is(err, driven.ErrConnection),
		errors.Is(err, driven.ErrNoToken),
		errors.Is(err, driven.ErrScheduleNotFound):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// parseFilter reads repeated or comma-separated endpoint, track and account
// parameters plus the completed and not_completed flags.
func parseFilter(r *http.Request) (model.ObjectiveFilter, error) {
	q := r.URL.Query()
	var f model.ObjectiveFilter

	for _, v := range splitValues(q["endpoint"]) {
		e, err := model.ParseEndpoint(v)
		if err != nil {
			return f, err
		}
		f.Endpoints = append(f.Endpoints, e)
	}
	for _, v := range splitValues(q["track"]) {
		t, err := model.ParseTrack(v)
		if err != nil {
			return f, err
		}
		f.Tracks = append(f.Tracks, t)
	}
	f.Accounts = splitValues(q["account"])
	f.Completed = q.Get("completed") == "true"
	f.NotCompleted = q.Get("not_completed") == "true"

	return f, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
