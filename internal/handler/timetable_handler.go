package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type moveValidator interface {
	CheckMove(ctx context.Context, req dto.CheckMoveRequest) (*dto.CheckMoveResponse, error)
	MoveLesson(ctx context.Context, req dto.MoveLessonRequest) (*dto.MoveLessonResponse, error)
	Rooms(ctx context.Context, req dto.RoomsRequest) (*dto.RoomsResponse, error)
}

// TimetableHandler serves move validation over snapshots supplied by the caller.
type TimetableHandler struct {
	service moveValidator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.MoveService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// CheckMove godoc
// @Summary Validate every slot of the week for a lesson move
// @Description Returns 30 verdicts in day-major order. Conflicts are data; the call succeeds even when no slot is valid.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CheckMoveRequest true "Check move payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/check-move [post]
func (h *TimetableHandler) CheckMove(c *gin.Context) {
	var req dto.CheckMoveRequest
	if !bindJSON(c, &req, "invalid check-move payload") {
		return
	}
	result, err := h.service.CheckMove(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// MoveLesson godoc
// @Summary Apply a lesson move to a supplied snapshot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.MoveLessonRequest true "Move lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/move-lesson [post]
func (h *TimetableHandler) MoveLesson(c *gin.Context) {
	var req dto.MoveLessonRequest
	if !bindJSON(c, &req, "invalid move-lesson payload") {
		return
	}
	result, err := h.service.MoveLesson(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Rooms godoc
// @Summary Rank rooms for a lesson at a target slot
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.RoomsRequest true "Rooms payload"
// @Success 200 {object} response.Envelope
// @Router /timetable/rooms [post]
func (h *TimetableHandler) Rooms(c *gin.Context) {
	var req dto.RoomsRequest
	if !bindJSON(c, &req, "invalid rooms payload") {
		return
	}
	result, err := h.service.Rooms(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
