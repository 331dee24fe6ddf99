// Package health serves the liveness probe.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/socialauth/internal/http/helpers"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// Pinger is satisfied by store.Conn.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Controller struct {
	store   Pinger
	version string
}

func NewController(store Pinger, version string) *Controller {
	return &Controller{store: store, version: version}
}

type response struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Store   string `json:"store"`
}

// Healthz handles GET /healthz: 200 when the store answers, 503 otherwise.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response{Status: "ok", Version: c.version, Store: "ok"}
	status := http.StatusOK
	if err := c.store.Ping(ctx); err != nil {
		logger.From(ctx).Warn("store ping failed", logger.Layer("controller"), logger.Err(err))
		resp.Status, resp.Store = "unavailable", "down"
		status = http.StatusServiceUnavailable
	}
	helpers.WriteJSON(w, status, resp)
}
