package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/potatoreg/internal/http/helpers"
)

// Pinger abstracts the store for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller handles /health and /readyz.
type Controller struct {
	appName string
	version string
	store   Pinger
}

func New(appName, version string, store Pinger) *Controller {
	return &Controller{appName: appName, version: version, store: store}
}

// Health handles GET /health (liveness).
func (c *Controller) Health(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"app":     c.appName,
		"version": c.version,
	})
}

// Ready handles GET /readyz (readiness: storage reachable).
func (c *Controller) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
