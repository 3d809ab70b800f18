package gw2

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vaultpanel_gw2_requests_total",
		Help: "Wizard's Vault API fetches by endpoint and outcome",
	},
	[]string{"endpoint", "outcome"},
)

var outcomes = []struct {
	err   error
	label string
}{
	{driven.ErrUnauthorized, "unauthorized"},
	{driven.ErrForbidden, "forbidden"},
	{driven.ErrRemoteNotFound, "not_found"},
	{driven.ErrRateLimited, "rate_limited"},
	{driven.ErrServiceUnavailable, "unavailable"},
	{driven.ErrResponseFormat, "bad_format"},
	{driven.ErrTimeout, "timeout"},
	{driven.ErrConnection, "connection"},
	{driven.ErrNoToken, "no_token"},
	{context.Canceled, "canceled"},
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	for _, o := range outcomes {
		if errors.Is(err, o.err) {
			return o.label
		}
	}
	return "error"
}
