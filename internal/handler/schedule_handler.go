package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type scheduleStore interface {
	Import(ctx context.Context, req dto.ImportScheduleRequest) (*dto.ScheduleResponse, error)
	Get(ctx context.Context, id string) (*dto.ScheduleResponse, error)
	History(ctx context.Context, id string, limit int) ([]models.ScheduleMove, error)
}

type storedMover interface {
	CheckStored(ctx context.Context, scheduleID string, req dto.StoredCheckMoveRequest) (*dto.CheckMoveResponse, error)
	RoomsStored(ctx context.Context, scheduleID string, req dto.StoredRoomsRequest) (*dto.RoomsResponse, error)
	CommitStored(ctx context.Context, scheduleID string, req dto.CommitMoveRequest) (*dto.MoveLessonResponse, error)
}

type scheduleAuditor interface {
	Run(ctx context.Context, scheduleID string) (*timetable.AuditReport, error)
	Latest(ctx context.Context, scheduleID string) (*timetable.AuditReport, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, scheduleID string, format service.ExportFormat, filter service.ExportFilter) (*service.ExportResult, error)
}

// ScheduleHandler exposes stored schedules and the moves committed against them.
type ScheduleHandler struct {
	schedules scheduleStore
	moves     storedMover
	audits    scheduleAuditor
	exports   scheduleExporter
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(schedules *service.ScheduleService, moves *service.MoveService, audits *service.AuditService, exports *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, moves: moves, audits: audits, exports: exports}
}

// Import godoc
// @Summary Store a schedule snapshot with its catalogs
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ImportScheduleRequest true "Schedule snapshot"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Import(c *gin.Context) {
	var req dto.ImportScheduleRequest
	if !bindJSON(c, &req, "invalid schedule payload") {
		return
	}
	created, err := h.schedules.Import(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Get godoc
// @Summary Get a stored schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	result, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{"version": result.Version})
}

// CheckMove godoc
// @Summary Validate a lesson move against a stored schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.StoredCheckMoveRequest true "Check move payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/check-move [post]
func (h *ScheduleHandler) CheckMove(c *gin.Context) {
	var req dto.StoredCheckMoveRequest
	if !bindJSON(c, &req, "invalid check-move payload") {
		return
	}
	result, err := h.moves.CheckStored(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Rooms godoc
// @Summary Rank rooms for a move on a stored schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.StoredRoomsRequest true "Rooms payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/rooms [post]
func (h *ScheduleHandler) Rooms(c *gin.Context) {
	var req dto.StoredRoomsRequest
	if !bindJSON(c, &req, "invalid rooms payload") {
		return
	}
	result, err := h.moves.RoomsStored(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Commit godoc
// @Summary Commit a move on a stored schedule
// @Description The move is applied only when expected_version matches the stored version.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.CommitMoveRequest true "Commit payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/moves [post]
func (h *ScheduleHandler) Commit(c *gin.Context) {
	var req dto.CommitMoveRequest
	if !bindJSON(c, &req, "invalid move payload") {
		return
	}
	result, err := h.moves.CommitStored(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// History godoc
// @Summary List committed moves, newest first
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/moves [get]
func (h *ScheduleHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	moves, err := h.schedules.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, moves, map[string]interface{}{"count": len(moves)})
}

// Audit godoc
// @Summary Get the latest audit report, running one when none is stored
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param refresh query bool false "Force a fresh audit"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/audit [get]
func (h *ScheduleHandler) Audit(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if refresh, _ := strconv.ParseBool(c.Query("refresh")); !refresh {
		report, err := h.audits.Latest(ctx, id)
		if err == nil {
			response.JSON(c, http.StatusOK, report)
			return
		}
		if !appErrors.HasCode(err, appErrors.ErrNotFound.Code) {
			response.Error(c, err)
			return
		}
	}
	report, err := h.audits.Run(ctx, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// RunAudit godoc
// @Summary Run an audit now and store the report
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 201 {object} response.Envelope
// @Router /schedules/{id}/audit [post]
func (h *ScheduleHandler) RunAudit(c *gin.Context) {
	report, err := h.audits.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Export godoc
// @Summary Download the timetable grid
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Param group query string false "Student group filter"
// @Param teacher query string false "Teacher code filter"
// @Success 200 {file} binary
// @Router /schedules/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	filter := service.ExportFilter{Group: c.Query("group"), Teacher: c.Query("teacher")}
	result, err := h.exports.Export(c.Request.Context(), c.Param("id"), service.ExportFormat(c.DefaultQuery("format", "csv")), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
