// Package http exposes Pathway Core's event store and session composer
// over an HTTP surface, following the teacher's gin-based ingestion and
// projection handlers.
package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pathwaylab/pathway-core/internal/event"
	"github.com/pathwaylab/pathway-core/internal/eventerr"
	"github.com/pathwaylab/pathway-core/internal/session"
	"github.com/pathwaylab/pathway-core/internal/store"
)

const (
	msgReadBodyFailed = "failed to read request body"
	msgInvalidJSON     = "invalid JSON body"
	msgBodyTooLarge    = "request body exceeds maximum allowed size"
)

// Handler wires the event store and session composer to gin routes.
type Handler struct {
	store            store.EventStore
	composer         *session.Composer
	maxBodySizeBytes int64
}

// NewHandler builds a Handler.
func NewHandler(es store.EventStore, composer *session.Composer, maxBodySizeBytes int64) *Handler {
	return &Handler{store: es, composer: composer, maxBodySizeBytes: maxBodySizeBytes}
}

// RegisterRoutes registers every Pathway Core HTTP endpoint on r, including
// /health, with no API-key gate. Server.New instead registers /health and
// registerReadRoutes on the engine directly and puts POST /v1/events on a
// sub-group guarded by APIKeyAuth.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HandleHealth)
	h.registerReadRoutes(r)
	r.POST("/v1/events", h.HandleAppend)
}

func (h *Handler) registerReadRoutes(r gin.IRouter) {
	r.GET("/v1/events/:event_id", h.HandleGetEvent)
	r.GET("/v1/sessions", h.HandleListSessions)
	r.GET("/v1/sessions/:session_id/events", h.HandleGetSessionEvents)
	r.GET("/v1/sessions/:session_id/state", h.HandleGetSessionState)
}

// HandleHealth reports liveness; it does not touch the store, since sqlite
// health is a local-file concern rather than a network dependency.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HandleAppend handles POST /v1/events.
func (h *Handler) HandleAppend(c *gin.Context) {
	candidate, ok := h.parseCandidate(c)
	if !ok {
		return
	}

	stored, err := h.store.Append(c.Request.Context(), candidate)
	if err != nil {
		writeError(c, err)
		return
	}

	slog.Info("event appended", "session_id", stored.SessionID, "event_id", stored.EventID, "seq", stored.Seq, "type", stored.Type)
	c.JSON(http.StatusCreated, stored)
}

func (h *Handler) parseCandidate(c *gin.Context) (event.NewEnvelope, bool) {
	limited := io.LimitReader(c.Request.Body, h.maxBodySizeBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		slog.Error("failed to read request body", "error", err)
		c.JSON(http.StatusInternalServerError, eventerr.ErrorResponse{ErrorType: eventerr.TypeInternalError, Message: msgReadBodyFailed})
		return event.NewEnvelope{}, false
	}
	if int64(len(body)) > h.maxBodySizeBytes {
		c.JSON(http.StatusRequestEntityTooLarge, eventerr.ErrorResponse{
			ErrorType: eventerr.TypeInvalidEnvelope,
			Message:   msgBodyTooLarge,
			Details:   map[string]interface{}{"max_bytes": h.maxBodySizeBytes},
		})
		return event.NewEnvelope{}, false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var candidate event.NewEnvelope
	if err := c.ShouldBindJSON(&candidate); err != nil {
		slog.Warn("invalid JSON body received", "error", err)
		c.JSON(http.StatusBadRequest, eventerr.ErrorResponse{ErrorType: eventerr.TypeInvalidEnvelope, Message: msgInvalidJSON, Details: err.Error()})
		return event.NewEnvelope{}, false
	}
	return candidate, true
}

// HandleGetEvent handles GET /v1/events/:event_id.
func (h *Handler) HandleGetEvent(c *gin.Context) {
	eventID := c.Param("event_id")
	e, err := h.store.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// HandleGetSessionEvents handles GET /v1/sessions/:session_id/events, with
// optional type, head_id, seq_min, seq_max, limit, offset, order filters.
func (h *Handler) HandleGetSessionEvents(c *gin.Context) {
	sessionID := c.Param("session_id")
	filter := store.EventFilter{
		Type:   event.Kind(c.Query("type")),
		HeadID: c.Query("head_id"),
		Order:  store.Order(c.DefaultQuery("order", string(store.Asc))),
	}
	if v := c.Query("seq_min"); v != "" {
		filter.SeqMin, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.Query("seq_max"); v != "" {
		filter.SeqMax, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	events, err := h.store.GetEvents(c.Request.Context(), sessionID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// HandleGetSessionState handles GET /v1/sessions/:session_id/state.
func (h *Handler) HandleGetSessionState(c *gin.Context) {
	sessionID := c.Param("session_id")
	state, warnings, err := h.composer.GetSessionStateWithWarnings(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	for _, w := range warnings {
		slog.Warn("reducer warning", "session_id", sessionID, "event_id", w.EventID, "kind", w.Kind, "message", w.Message)
	}
	c.JSON(http.StatusOK, state)
}

// HandleListSessions handles GET /v1/sessions.
func (h *Handler) HandleListSessions(c *gin.Context) {
	summaries, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": summaries})
}

// writeError maps a sentinel-wrapped error to its HTTP status and JSON body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, eventerr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, eventerr.ErrSeqConflict):
		status = http.StatusConflict
	case errors.Is(err, eventerr.ErrInvalidEnvelope),
		errors.Is(err, eventerr.ErrUnknownEventKind),
		errors.Is(err, eventerr.ErrPayloadSchemaMismatch),
		errors.Is(err, eventerr.ErrUnknownParent),
		errors.Is(err, eventerr.ErrSessionIDShape),
		errors.Is(err, eventerr.ErrEventIDShape):
		status = http.StatusBadRequest
	}
	c.JSON(status, eventerr.ErrorResponse{
		ErrorType: eventerr.TypeFor(err),
		Message:   err.Error(),
	})
}
