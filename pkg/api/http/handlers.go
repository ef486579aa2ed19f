package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/internal/application/orchestrator"
	"github.com/smithcommajoseph/async-transport/internal/application/workers"
	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
	"github.com/smithcommajoseph/async-transport/pkg/transport"
)

// ResultResponse is the body of GET /invocations/:id/result
type ResultResponse struct {
	InvocationID string                  `json:"invocation_id"`
	Status       domain.InvocationStatus `json:"status"`
	Result       *transport.Result       `json:"result"`
	Error        string                  `json:"error,omitempty"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeManagerError maps orchestrator errors to HTTP responses
func (s *Server) writeManagerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrValidation):
		s.writeError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		s.writeError(c, http.StatusNotFound, "NOT_FOUND", "Invocation not found")
	case errors.Is(err, orchestrator.ErrNotRunning):
		s.writeError(c, http.StatusConflict, "NOT_RUNNING", err.Error())
	case errors.Is(err, orchestrator.ErrAsyncUnavailable):
		s.writeError(c, http.StatusServiceUnavailable, "ASYNC_UNAVAILABLE", err.Error())
	case errors.Is(err, workers.ErrQueueFull), errors.Is(err, workers.ErrPoolClosed):
		s.writeError(c, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", err.Error())
	default:
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		s.writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{"orchestrator": "ok"}

	if s.workers != nil {
		pool := s.workers.GetStatus()
		if pool.Healthy {
			checks["workers"] = "ok"
		} else {
			checks["workers"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	health := "healthy"
	if status != http.StatusOK {
		health = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    health,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// handleSubmit submits a batch. Synchronous batches answer 200 with the
// finished invocation; async batches answer 202 once queued.
func (s *Server) handleSubmit(c *gin.Context) {
	var req domain.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid request", zap.Error(err))
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	inv, err := s.orchestrator.Submit(c.Request.Context(), &req)
	if err != nil {
		s.writeManagerError(c, err)
		return
	}

	if req.Async {
		c.JSON(http.StatusAccepted, inv)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// handleList lists invocations
func (s *Server) handleList(c *gin.Context) {
	invocations, err := s.orchestrator.List(c.Request.Context())
	if err != nil {
		s.writeManagerError(c, err)
		return
	}

	if invocations == nil {
		invocations = []*domain.Invocation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"invocations": invocations,
		"total":       len(invocations),
	})
}

// handleGet returns an invocation
func (s *Server) handleGet(c *gin.Context) {
	inv, err := s.orchestrator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeManagerError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// handleGetResult returns the result of a finished invocation
func (s *Server) handleGetResult(c *gin.Context) {
	inv, err := s.orchestrator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeManagerError(c, err)
		return
	}

	if !inv.Status.IsTerminal() {
		s.writeError(c, http.StatusConflict, "NOT_COMPLETED", "Invocation not yet completed")
		return
	}

	c.JSON(http.StatusOK, ResultResponse{
		InvocationID: inv.ID,
		Status:       inv.Status,
		Result:       inv.Result,
		Error:        inv.Error,
		CompletedAt:  inv.CompletedAt,
	})
}

// handleCancel cancels an in-flight invocation
func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")

	if err := s.orchestrator.Cancel(c.Request.Context(), id); err != nil {
		s.writeManagerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invocation_id": id,
		"status":        "cancelling",
		"cancelled_at":  time.Now().UTC(),
	})
}

// handleWorkers returns the worker pool status
func (s *Server) handleWorkers(c *gin.Context) {
	if s.workers == nil {
		s.writeError(c, http.StatusServiceUnavailable, "WORKERS_NOT_AVAILABLE", "Worker pool is not configured")
		return
	}

	c.JSON(http.StatusOK, s.workers.GetStatus())
}
