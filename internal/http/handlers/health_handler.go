// Health HTTP handlers.
//
//   - GET /                 (service banner)
//   - GET /health           (public liveness with a database probe)
//   - GET /health/detailed  (admin view of every dependency)
package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-portfolio-backend/internal/http/middleware"
)

const dependencyProbeTimeout = 5 * time.Second

// HealthResponse is the public health payload. It never carries
// configuration values.
type HealthResponse struct {
	Status    string    `json:"status" example:"healthy"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime_seconds" example:"3600.5"`
	Version   string    `json:"version,omitempty" example:"1.0.0"`
	Database  string    `json:"database" example:"connected"`
	Error     string    `json:"error,omitempty"`
}

// DependencyStatus describes one dependency in the detailed view.
type DependencyStatus struct {
	Status string `json:"status" example:"connected"`
	Detail string `json:"detail,omitempty"`
}

// DatabaseStatus adds message counts to the database probe.
type DatabaseStatus struct {
	Status        string `json:"status" example:"connected"`
	TotalMessages int64  `json:"total_messages"`
	Unread        int64  `json:"unread"`
}

// RuntimeStatus is a snapshot of the Go runtime.
type RuntimeStatus struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc_bytes"`
	NumCPU     int    `json:"num_cpu"`
}

// DetailedHealthResponse is the admin health payload.
type DetailedHealthResponse struct {
	HealthResponse
	User     string           `json:"user"`
	Services DetailedServices `json:"services"`
	Runtime  RuntimeStatus    `json:"runtime"`
}

// DetailedServices groups dependency probes.
type DetailedServices struct {
	Database DatabaseStatus   `json:"database"`
	Email    DependencyStatus `json:"email"`
	Mailbox  DependencyStatus `json:"mailbox"`
}

// InfoResponse is the service banner served at the root path.
type InfoResponse struct {
	Message   string    `json:"message" example:"Portfolio Backend API"`
	Version   string    `json:"version" example:"1.0.0"`
	Timestamp time.Time `json:"timestamp"`
}

// Info godoc
// @ID          info
// @Summary     Service banner
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.InfoResponse
// @Router      / [get]
func (h *Handlers) Info(c *gin.Context) {
	ok(c, http.StatusOK, InfoResponse{
		Message:   "Portfolio Backend API",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

// Health godoc
// @ID          health
// @Summary     Liveness and database probe
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Failure     503  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	base := h.baseHealth()
	if _, err := h.contacts.Count(c.Request.Context()); err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("health check failed")
		base.Status, base.Database, base.Error = "unhealthy", "disconnected", "database connection failed"
		c.JSON(http.StatusServiceUnavailable, base)
		return
	}
	ok(c, http.StatusOK, base)
}

// DetailedHealth godoc
// @ID          healthDetailed
// @Summary     Dependency health
// @Description Probes the database, the outbound mail transport and the external mailbox.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.DetailedHealthResponse
// @Failure     503  {object}  handlers.HealthResponse
// @Router      /health/detailed [get]
func (h *Handlers) DetailedHealth(c *gin.Context) {
	ctx := c.Request.Context()
	base := h.baseHealth()

	total, err := h.contacts.Count(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("detailed health check failed")
		base.Status, base.Database, base.Error = "unhealthy", "disconnected", "database connection failed"
		c.JSON(http.StatusServiceUnavailable, base)
		return
	}
	unread, _ := h.contacts.UnreadCount(ctx)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	ok(c, http.StatusOK, DetailedHealthResponse{
		HealthResponse: base,
		User:           middleware.AdminName(c),
		Services: DetailedServices{
			Database: DatabaseStatus{Status: "connected", TotalMessages: total, Unread: unread},
			Email:    h.emailStatus(ctx),
			Mailbox:  h.mailboxStatus(ctx),
		},
		Runtime: RuntimeStatus{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			HeapAlloc:  ms.HeapAlloc,
			NumCPU:     runtime.NumCPU(),
		},
	})
}

func (h *Handlers) baseHealth() HealthResponse {
	return HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
		Version:   h.version,
		Database:  "connected",
	}
}

func (h *Handlers) emailStatus(ctx context.Context) DependencyStatus {
	if h.smtp == nil {
		return DependencyStatus{Status: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, dependencyProbeTimeout)
	defer cancel()
	if err := h.smtp.Verify(ctx); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("smtp probe failed")
		return DependencyStatus{Status: "unreachable"}
	}
	return DependencyStatus{Status: "connected"}
}

func (h *Handlers) mailboxStatus(ctx context.Context) DependencyStatus {
	switch {
	case h.mailbox == nil || !h.mailbox.IsConfigured():
		return DependencyStatus{Status: "not configured"}
	case !h.mailbox.IsConnected():
		return DependencyStatus{Status: "not connected", Detail: "authorization required"}
	}
	ctx, cancel := context.WithTimeout(ctx, dependencyProbeTimeout)
	defer cancel()
	if !h.mailbox.TestConnection(ctx) {
		return DependencyStatus{Status: "unreachable"}
	}
	return DependencyStatus{Status: "connected"}
}
