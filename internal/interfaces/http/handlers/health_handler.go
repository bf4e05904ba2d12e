package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is a component that can report its health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc struct {
	Component string
	Fn        func(ctx context.Context) error
}

func (c CheckFunc) Name() string                    { return c.Component }
func (c CheckFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// HealthHandler handles liveness and readiness probes.
type HealthHandler struct {
	required []HealthChecker
	optional []HealthChecker
	version  string
	startAt  time.Time
}

// NewHealthHandler creates a HealthHandler.  Readiness fails when any
// required checker fails; optional checkers are reported but never fail it.
func NewHealthHandler(version string, required []HealthChecker, optional ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		required: required,
		optional: optional,
		version:  version,
		startAt:  time.Now(),
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck represents the health status of a single component.
type ComponentCheck struct {
	Status   string `json:"status"`
	Latency  string `json:"latency,omitempty"`
	Error    string `json:"error,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// Liveness handles GET /health.  Always 200 while the process runs.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /ready.  503 until a snapshot is published and its
// store answers.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]ComponentCheck, len(h.required)+len(h.optional))
	var mu sync.Mutex
	var wg sync.WaitGroup
	run := func(checkers []HealthChecker, optional bool) {
		for _, checker := range checkers {
			wg.Add(1)
			go func(hc HealthChecker) {
				defer wg.Done()
				cc := check(ctx, hc)
				cc.Optional = optional
				mu.Lock()
				components[hc.Name()] = cc
				mu.Unlock()
			}(checker)
		}
	}
	run(h.required, false)
	run(h.optional, true)
	wg.Wait()

	resp := ReadinessResponse{Status: "ready", Components: components}
	for _, cc := range components {
		if !cc.Optional && cc.Status != "healthy" {
			resp.Status = "not_ready"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func check(ctx context.Context, c HealthChecker) ComponentCheck {
	start := time.Now()
	err := c.Check(ctx)
	cc := ComponentCheck{
		Status:  "healthy",
		Latency: time.Since(start).Truncate(time.Microsecond).String(),
	}
	if err != nil {
		cc.Status = "unhealthy"
		cc.Error = err.Error()
	}
	return cc
}

//Personal.AI order the ending
