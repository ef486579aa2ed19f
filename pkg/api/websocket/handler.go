package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/smithcommajoseph/async-transport/pkg/domain"
	"github.com/smithcommajoseph/async-transport/pkg/ports"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InvocationGetter looks up invocations
type InvocationGetter interface {
	Get(ctx context.Context, id string) (*domain.Invocation, error)
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus    ports.EventBus
	invocations InvocationGetter
	bufferSize  int
	flushWait   time.Duration
	logger      *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, invocations InvocationGetter, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus:    eventBus,
		invocations: invocations,
		bufferSize:  64,
		flushWait:   2 * time.Second,
		logger:      logger,
	}
}

// HandleInvocationStream streams the events of one invocation as JSON text
// messages. The connection is closed after invocation.completed, or right
// away when the invocation has already finished.
func (h *Handler) HandleInvocationStream(c *gin.Context) {
	invocationID := c.Param("id")

	inv, err := h.invocations.Get(c.Request.Context(), invocationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ports.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Invocation not found"}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	logger := h.logger.With(zap.String("invocation_id", invocationID))
	logger.Info("WebSocket connection established", zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The peer closing the connection ends the stream.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	eventChan := make(chan domain.Event, h.bufferSize)
	h.subscribe(ctx, invocationID, eventChan, logger)

	// Events published before the subscription are not replayed; a run that
	// is already over only gets its final state.
	if latest, err := h.invocations.Get(ctx, invocationID); err == nil {
		inv = latest
	}
	if inv.Status.IsTerminal() {
		_ = h.writeEvent(conn, snapshotEvent(inv), logger)
		h.close(conn)
		return
	}

	var stepsSeen int
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventChan:
			if err := h.writeEvent(conn, event, logger); err != nil {
				return
			}
			switch event.Type {
			case domain.EventTypeStepSettled:
				stepsSeen++
			case domain.EventTypeInvocationCompleted:
				h.flushSteps(ctx, conn, eventChan, stepsSeen, stepsSettled(event), logger)
				h.close(conn)
				return
			}
		}
	}
}

// flushSteps forwards step events still in flight after the completion
// event. Topics are not ordered relative to each other, so the final
// step.settled events may arrive after invocation.completed. Clients that
// subscribed mid-run never see the earlier steps and wait out flushWait.
func (h *Handler) flushSteps(ctx context.Context, conn *websocket.Conn, eventChan <-chan domain.Event, seen, want int, logger *zap.Logger) {
	timer := time.NewTimer(h.flushWait)
	defer timer.Stop()

	for seen < want {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			logger.Debug("closing stream with step events missing",
				zap.Int("expected", want),
				zap.Int("received", seen))
			return
		case event := <-eventChan:
			if err := h.writeEvent(conn, event, logger); err != nil {
				return
			}
			if event.Type == domain.EventTypeStepSettled {
				seen++
			}
		}
	}
}

// stepsSettled reads the step count from a completion event. JSON decoding
// through the Redis bus turns it into a float64.
func stepsSettled(event domain.Event) int {
	switch n := event.Data[domain.DataStepsSettled].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// subscribe forwards the invocation's events from both topics to ch
func (h *Handler) subscribe(ctx context.Context, invocationID string, ch chan<- domain.Event, logger *zap.Logger) {
	eventHandler := func(ctx context.Context, event domain.Event) error {
		if event.InvocationID != invocationID {
			return nil
		}

		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}

	for _, topic := range []string{domain.TopicInvocations, domain.TopicSteps} {
		if err := h.eventBus.Subscribe(ctx, topic, eventHandler); err != nil {
			logger.Error("failed to subscribe to events",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, event domain.Event, logger *zap.Logger) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		logger.Warn("failed to write message", zap.Error(err))
		return err
	}
	return nil
}

func (h *Handler) close(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "invocation completed")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// snapshotEvent describes a finished invocation as its completion event
func snapshotEvent(inv *domain.Invocation) domain.Event {
	data := map[string]any{"status": string(inv.Status)}
	if inv.Result != nil {
		data["has_errors"] = inv.Result.HasErrors
	}
	if inv.Error != "" {
		data["error"] = inv.Error
	}

	ts := inv.SubmittedAt
	if inv.CompletedAt != nil {
		ts = *inv.CompletedAt
	}
	return domain.Event{
		Type:         domain.EventTypeInvocationCompleted,
		InvocationID: inv.ID,
		Timestamp:    ts,
		Data:         data,
	}
}
