package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type dragSessions interface {
	Start(ctx context.Context, scheduleID, clientID string, req dto.DragStartRequest) (timetable.SessionView, error)
	Hover(scheduleID, clientID string, req dto.DragSlotRequest) (*dto.DragStatusResponse, error)
	Drop(scheduleID, clientID string, req dto.DragSlotRequest) (*dto.DragStatusResponse, error)
	Confirm(ctx context.Context, scheduleID, clientID string, req dto.DragConfirmRequest) (*dto.MoveLessonResponse, error)
	Cancel(scheduleID, clientID string) error
	View(scheduleID, clientID string) (timetable.SessionView, error)
}

// DragSessionHandler drives per-client drag sessions on a stored schedule.
type DragSessionHandler struct {
	sessions dragSessions
}

// NewDragSessionHandler constructs the handler.
func NewDragSessionHandler(svc *service.DragSessionService) *DragSessionHandler {
	return &DragSessionHandler{sessions: svc}
}

// Start godoc
// @Summary Pick up a lesson and compute its verdicts
// @Tags Drag
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param client path string true "Client ID"
// @Param payload body dto.DragStartRequest true "Lesson and source slot"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/drag-sessions/{client}/start [post]
func (h *DragSessionHandler) Start(c *gin.Context) {
	var req dto.DragStartRequest
	if !bindJSON(c, &req, "invalid drag start payload") {
		return
	}
	view, err := h.sessions.Start(c.Request.Context(), c.Param("id"), c.Param("client"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Hover godoc
// @Summary Report the verdict for the slot under the pointer
// @Tags Drag
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param client path string true "Client ID"
// @Param payload body dto.DragSlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/drag-sessions/{client}/hover [post]
func (h *DragSessionHandler) Hover(c *gin.Context) {
	var req dto.DragSlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	status, err := h.sessions.Hover(c.Param("id"), c.Param("client"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// Drop godoc
// @Summary Drop the lesson on a target slot
// @Tags Drag
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param client path string true "Client ID"
// @Param payload body dto.DragSlotRequest true "Slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/drag-sessions/{client}/drop [post]
func (h *DragSessionHandler) Drop(c *gin.Context) {
	var req dto.DragSlotRequest
	if !bindJSON(c, &req, "invalid slot payload") {
		return
	}
	status, err := h.sessions.Drop(c.Param("id"), c.Param("client"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// Confirm godoc
// @Summary Commit the dropped move
// @Tags Drag
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param client path string true "Client ID"
// @Param payload body dto.DragConfirmRequest false "Optional room"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/drag-sessions/{client}/confirm [post]
func (h *DragSessionHandler) Confirm(c *gin.Context) {
	var req dto.DragConfirmRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid confirm payload") {
		return
	}
	result, err := h.sessions.Confirm(c.Request.Context(), c.Param("id"), c.Param("client"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Cancel godoc
// @Summary Abandon the drag
// @Tags Drag
// @Param id path string true "Schedule ID"
// @Param client path string true "Client ID"
// @Success 204
// @Router /schedules/{id}/drag-sessions/{client}/cancel [post]
func (h *DragSessionHandler) Cancel(c *gin.Context) {
	if err := h.sessions.Cancel(c.Param("id"), c.Param("client")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get the session state and verdicts
// @Tags Drag
// @Produce json
// @Param id path string true "Schedule ID"
// @Param client path string true "Client ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/drag-sessions/{client} [get]
func (h *DragSessionHandler) Get(c *gin.Context) {
	view, err := h.sessions.View(c.Param("id"), c.Param("client"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}
