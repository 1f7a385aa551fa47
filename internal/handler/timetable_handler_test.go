package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type moveValidatorMock struct {
	captured dto.CheckMoveRequest
	err      error
}

func (m *moveValidatorMock) CheckMove(ctx context.Context, req dto.CheckMoveRequest) (*dto.CheckMoveResponse, error) {
	m.captured = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.CheckMoveResponse{LessonID: req.LessonID, SourceDay: req.SourceDay, SourcePeriod: req.SourcePeriod, Slots: []dto.SlotValidation{}}, nil
}

func (m *moveValidatorMock) MoveLesson(ctx context.Context, req dto.MoveLessonRequest) (*dto.MoveLessonResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.MoveLessonResponse{Success: true, ScheduleVersion: 1}, nil
}

func (m *moveValidatorMock) Rooms(ctx context.Context, req dto.RoomsRequest) (*dto.RoomsResponse, error) {
	return &dto.RoomsResponse{LessonID: req.LessonID, TargetDay: req.TargetDay, TargetPeriod: req.TargetPeriod}, nil
}

func jsonContext(t *testing.T, method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	req, err := http.NewRequest(method, path, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeEnvelope(t, w)
	errBody, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope: %s", w.Body.String())
	return errBody["code"].(string)
}

func TestTimetableCheckMoveBindsSnakeCase(t *testing.T) {
	mock := &moveValidatorMock{}
	handler := &TimetableHandler{service: mock}
	c, w := jsonContext(t, http.MethodPost, "/timetable/check-move", `{"lesson_id":"L1","source_day":0,"source_period":1,"current_assignments":[{"lesson_id":"L1","day":0,"period":1,"teacher_code":"SMI","room":"Room 101","student_group":"Year 7A"}],"teacher_availability":[{"teacher_code":"SMI","unavailable_slots":[{"day":0,"period":4}]}]}`)

	handler.CheckMove(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "L1", mock.captured.LessonID)
	require.Len(t, mock.captured.CurrentAssignments, 1)
	require.Len(t, mock.captured.TeacherAvailability, 1)
	assert.Equal(t, 4, mock.captured.TeacherAvailability[0].UnavailableSlots[0].Period)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "L1", data["lesson_id"])
}

func TestTimetableCheckMoveMalformedBody(t *testing.T) {
	handler := &TimetableHandler{service: &moveValidatorMock{}}
	c, w := jsonContext(t, http.MethodPost, "/timetable/check-move", `{"lesson_id":`)

	handler.CheckMove(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, w))
}

func TestTimetableMoveLessonPropagatesStale(t *testing.T) {
	handler := &TimetableHandler{service: &moveValidatorMock{err: appErrors.Clone(appErrors.ErrStaleSchedule, "schedule changed")}}
	c, w := jsonContext(t, http.MethodPost, "/timetable/move-lesson", `{"lesson_id":"L1","target_day":3,"target_period":1}`)

	handler.MoveLesson(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrStaleSchedule.Code, errorCode(t, w))
}

func TestTimetableEndToEndWithService(t *testing.T) {
	handler := NewTimetableHandler(service.NewMoveService(nil, nil, nil, nil, nil, service.MoveServiceConfig{}))
	router := gin.New()
	router.POST("/timetable/check-move", handler.CheckMove)
	router.POST("/timetable/move-lesson", handler.MoveLesson)

	body := `{"lesson_id":"L1","source_day":0,"source_period":1,"current_assignments":[
		{"lesson_id":"L1","day":0,"period":1,"teacher_code":"SMI","room":"Room 101","student_group":"Year 7A","subject":"Maths"},
		{"lesson_id":"L2","day":0,"period":2,"teacher_code":"JON","room":"Room 102","student_group":"Year 7A","subject":"English"}]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetable/check-move", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.CheckMoveResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Slots, 30)
	assert.False(t, envelope.Data.Slots[0].Valid)
	assert.False(t, envelope.Data.Slots[1].Valid)
	assert.True(t, envelope.Data.Slots[2].Valid)

	move := `{"lesson_id":"L1","source_day":0,"source_period":1,"target_day":0,"target_period":2,"current_assignments":[
		{"lesson_id":"L1","day":0,"period":1,"teacher_code":"SMI","room":"Room 101","student_group":"Year 7A"},
		{"lesson_id":"L2","day":0,"period":2,"teacher_code":"JON","room":"Room 102","student_group":"Year 7A"}]}`
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/timetable/move-lesson", bytes.NewReader([]byte(move)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var moved struct {
		Data dto.MoveLessonResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	assert.False(t, moved.Data.Success)
	assert.NotEmpty(t, moved.Data.Conflicts)
	assert.Nil(t, moved.Data.UpdatedAssignment)
}
