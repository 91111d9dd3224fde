package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cnec/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// StorePinger pings every configured store and returns the failures by
// store name
type StorePinger interface {
	Ping(ctx context.Context) map[string]error
}

// HealthHandler serves liveness and readiness checks
type HealthHandler struct {
	BaseHandler
	stores  StorePinger
	service string
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(stores StorePinger, service string) *HealthHandler {
	return &HealthHandler{stores: stores, service: service, timeout: 3 * time.Second}
}

// HealthStatus is the body of both checks
type HealthStatus struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Time    time.Time         `json:"time"`
	Stores  map[string]string `json:"stores,omitempty"`
}

// Live handles GET /health. It never touches a store.
func (h *HealthHandler) Live(c *gin.Context) {
	h.Success(c, HealthStatus{Status: "ok", Service: h.service, Time: time.Now().UTC()})
}

// Ready handles GET /health/ready. Any unreachable store answers 503.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	failures := h.stores.Ping(ctx)
	status := HealthStatus{Status: "ready", Service: h.service, Time: time.Now().UTC()}
	if len(failures) == 0 {
		h.Success(c, status)
		return
	}

	status.Status = "unavailable"
	status.Stores = make(map[string]string, len(failures))
	for name, err := range failures {
		status.Stores[name] = err.Error()
	}
	resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeServiceUnavailable, "One or more stores are unreachable", "")
	resp.Data = status
	c.JSON(http.StatusServiceUnavailable, resp)
}
