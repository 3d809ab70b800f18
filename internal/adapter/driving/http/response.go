package httphandler

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
}

// AccountResponse is the JSON representation of an account. The API token is
// never included.
type AccountResponse struct {
	Name              string              `json:"name"`
	HasBeenSyncedOnce bool                `json:"has_been_synced_once"`
	LastSyncTime      string              `json:"last_sync_time,omitempty"`
	ObjectiveCount    int                 `json:"objective_count"`
	CompletedCount    int                 `json:"completed_count"`
	Objectives        []ObjectiveResponse `json:"objectives"`
}

// CreateAccountResponse is returned by the create endpoint. SyncError is set
// when the account was stored but its first sync failed.
type CreateAccountResponse struct {
	AccountResponse
	SyncError string `json:"sync_error,omitempty"`
}

// ObjectiveResponse is the JSON representation of an objective for one account.
type ObjectiveResponse struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	Track            string `json:"track"`
	Acclaim          int    `json:"acclaim"`
	ProgressCurrent  int    `json:"progress_current"`
	ProgressComplete int    `json:"progress_complete"`
	Claimed          bool   `json:"claimed"`
	Completed        bool   `json:"completed"`
	Endpoint         string `json:"endpoint"`
	Account          string `json:"account"`
	Peers            string `json:"peers,omitempty"`
}

// CreateAccountRequest is the JSON body for the create account endpoint.
type CreateAccountRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Token string `json:"token" validate:"required"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Time   string `json:"time"`
}

// ScheduleResponse carries today's Pact Supply Network Agent chat links.
type ScheduleResponse struct {
	ChatLinks string `json:"chat_links"`
}

func toAccountResponse(a model.Account) AccountResponse {
	resp := AccountResponse{
		Name:              a.Name,
		HasBeenSyncedOnce: a.HasBeenSyncedOnce,
		ObjectiveCount:    len(a.Objectives),
		Objectives:        make([]ObjectiveResponse, 0, len(a.Objectives)),
	}
	if !a.LastSyncTime.IsZero() {
		resp.LastSyncTime = a.LastSyncTime.UTC().Format(time.RFC3339)
	}

	for _, o := range a.Objectives {
		if o.IsComplete() {
			resp.CompletedCount++
		}
		resp.Objectives = append(resp.Objectives, toObjectiveResponse(o, ""))
	}
	return resp
}

func toObjectiveResponse(o model.Objective, peers string) ObjectiveResponse {
	return ObjectiveResponse{
		ID:               o.ID,
		Title:            o.Title,
		Track:            string(o.Track),
		Acclaim:          o.Acclaim,
		ProgressCurrent:  o.ProgressCurrent,
		ProgressComplete: o.ProgressComplete,
		Claimed:          o.Claimed,
		Completed:        o.IsComplete(),
		Endpoint:         string(o.Endpoint),
		Account:          o.AccountName,
		Peers:            peers,
	}
}
