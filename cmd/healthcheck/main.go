// Command healthcheck probes a running vaultpanel server and exits non-zero
// when the API is down or the account store failed to load.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// health mirrors the server's /api/v1/health body.
type health struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func main() {
	url := fmt.Sprintf("http://%s/api/v1/health", normalizeAddr(os.Getenv("VAULTPANEL_LISTEN_ADDR")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	os.Exit(check(ctx, &http.Client{Timeout: 2 * time.Second}, url, os.Stdout))
}

// check returns 0 while the server answers ok and its store is loaded or
// still loading. An uninitialized store means the startup load failed.
func check(ctx context.Context, client *http.Client, url string, out io.Writer) int {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintln(out, "unhealthy:", err)
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(out, "unhealthy:", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(out, "unhealthy: status", resp.StatusCode)
		return 1
	}

	var h health
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&h); err != nil {
		fmt.Fprintln(out, "unhealthy: decode health:", err)
		return 1
	}

	switch {
	case h.Status != "ok":
		fmt.Fprintln(out, "unhealthy: server status", h.Status)
		return 1
	case h.Store != "initialized" && h.Store != "initializing":
		fmt.Fprintln(out, "unhealthy: store", h.Store)
		return 1
	}

	fmt.Fprintln(out, "healthy: store", h.Store)
	return 0
}

// normalizeAddr points the probe at loopback when the server binds every
// interface.
func normalizeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if raw == "" || err != nil {
		return "127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
