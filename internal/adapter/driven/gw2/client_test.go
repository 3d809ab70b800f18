package gw2_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/vaultpanel/internal/adapter/driven/gw2"
	"github.com/ericfisherdev/vaultpanel/internal/domain/model"
	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

type mockTokenSource struct {
	tokens map[string]string
	err    error
}

func (m *mockTokenSource) Token(_ context.Context, name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	tok, ok := m.tokens[name]
	if !ok {
		return "", driven.ErrAccountNotFound
	}
	return tok, nil
}

// newTestClient creates a Client backed by the given handler with a 1ms retry base.
func newTestClient(t *testing.T, handler http.Handler) *gw2.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := gw2.NewClientWithHTTPClient(
		server.Client(),
		&mockTokenSource{tokens: map[string]string{"main": "secret-token"}},
		gw2.Options{BaseURL: server.URL, RetryInterval: time.Millisecond, RequestsPerSecond: 1000, Burst: 100},
	)
	require.NoError(t, err)

	return client
}

func validBody() string {
	return `{"objectives":` + objectivesJSON(4) + `}`
}

func TestFetchObjectives_Success(t *testing.T) {
	var gotAuth, gotSchema, gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotSchema = r.Header.Get("X-Schema-Version")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(validBody()))
	}))

	objectives, err := client.FetchObjectives(context.Background(), model.EndpointWeekly, "main")

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "latest", gotSchema)
	assert.Equal(t, "/v2/account/wizardsvault/weekly", gotPath)
	require.Len(t, objectives, 4)
	for _, o := range objectives {
		assert.Equal(t, model.EndpointWeekly, o.Endpoint)
		assert.Equal(t, "main", o.AccountName)
		assert.Equal(t, model.TrackPvE, o.Track)
	}
}

func TestFetchObjectives_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, driven.ErrUnauthorized},
		{http.StatusForbidden, driven.ErrForbidden},
		{http.StatusNotFound, driven.ErrRemoteNotFound},
		{http.StatusTooManyRequests, driven.ErrRateLimited},
		{http.StatusServiceUnavailable, driven.ErrServiceUnavailable},
		{http.StatusInternalServerError, driven.ErrUnexpectedStatus},
		{http.StatusTeapot, driven.ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))

			_, err := client.FetchObjectives(context.Background(), model.EndpointDaily, "main")

			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load(), "non-retryable status must not be retried")
		})
	}
}

func TestFetchObjectives_RetriesRequestTimeout(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusRequestTimeout)
			return
		}
		_, _ = w.Write([]byte(validBody()))
	}))

	objectives, err := client.FetchObjectives(context.Background(), model.EndpointDaily, "main")

	require.NoError(t, err)
	assert.Len(t, objectives, 4)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchObjectives_RequestTimeoutExhausted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusRequestTimeout)
	}))

	_, err := client.FetchObjectives(context.Background(), model.EndpointDaily, "main")

	require.ErrorIs(t, err, driven.ErrUnexpectedStatus)
	assert.Equal(t, int32(4), calls.Load(), "first attempt plus three retries")
}

func TestFetchObjectives_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := gw2.NewClientWithHTTPClient(
		&http.Client{Timeout: time.Second},
		&mockTokenSource{tokens: map[string]string{"main": "t"}},
		gw2.Options{BaseURL: baseURL, RetryInterval: time.Millisecond},
	)
	require.NoError(t, err)

	_, err = client.FetchObjectives(context.Background(), model.EndpointDaily, "main")
	require.ErrorIs(t, err, driven.ErrConnection)
}

func TestFetchObjectives_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := gw2.NewClientWithHTTPClient(
		&http.Client{Timeout: 20 * time.Millisecond},
		&mockTokenSource{tokens: map[string]string{"main": "t"}},
		gw2.Options{BaseURL: server.URL, RetryInterval: time.Millisecond},
	)
	require.NoError(t, err)

	_, err = client.FetchObjectives(context.Background(), model.EndpointDaily, "main")
	require.ErrorIs(t, err, driven.ErrTimeout)
}

func TestFetchObjectives_NoToken(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))

	_, err := client.FetchObjectives(context.Background(), model.EndpointDaily, "unknown")

	require.ErrorIs(t, err, driven.ErrNoToken)
	assert.Zero(t, calls.Load())
}

func TestFetchObjectives_InvalidArguments(t *testing.T) {
	client := newTestClient(t, http.NotFoundHandler())

	_, err := client.FetchObjectives(context.Background(), model.EndpointDaily, "  ")
	require.ErrorIs(t, err, driven.ErrInvalidAccount)

	_, err = client.FetchObjectives(context.Background(), "monthly", "main")
	require.Error(t, err)
}

func TestFetchObjectives_FormatError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.FetchObjectives(context.Background(), model.EndpointSpecial, "main")
	require.ErrorIs(t, err, driven.ErrResponseFormat)
}

func TestFetchObjectives_ContextCanceled(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(validBody()))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchObjectives(ctx, model.EndpointDaily, "main")
	require.ErrorIs(t, err, context.Canceled)
}
