package dto

import "github.com/noah-isme/sma-timetable-api/internal/timetable"

// AssignmentPayload is one occupied slot on the wire. Field and slot checks are left to the
// engine so malformed records map to INVALID_ASSIGNMENT and MALFORMED_SLOT.
type AssignmentPayload struct {
	LessonID     string `json:"lesson_id"`
	Day          int    `json:"day"`
	Period       int    `json:"period"`
	TeacherCode  string `json:"teacher_code"`
	TeacherName  string `json:"teacher_name"`
	Room         string `json:"room"`
	StudentGroup string `json:"student_group"`
	Subject      string `json:"subject"`
	SubjectID    string `json:"subject_id,omitempty"`
}

// SlotPayload addresses a grid cell.
type SlotPayload struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// TeacherAvailabilityPayload lists the slots a teacher cannot take.
type TeacherAvailabilityPayload struct {
	TeacherCode      string        `json:"teacher_code" validate:"required"`
	TeacherName      string        `json:"teacher_name"`
	UnavailableSlots []SlotPayload `json:"unavailable_slots"`
}

// RoomPayload is a catalogued room.
type RoomPayload struct {
	Name     string `json:"name" validate:"required"`
	RoomType string `json:"room_type"`
}

// SubjectRequirementPayload pins a subject to a room type.
type SubjectRequirementPayload struct {
	SubjectID        string `json:"subject_id"`
	SubjectName      string `json:"subject_name"`
	RequiredRoomType string `json:"required_room_type"`
}

// CatalogPayload groups the optional catalogs sent alongside a snapshot.
type CatalogPayload struct {
	TeacherAvailability []TeacherAvailabilityPayload `json:"teacher_availability" validate:"dive"`
	Rooms               []RoomPayload                `json:"rooms" validate:"dive"`
	SubjectRequirements []SubjectRequirementPayload  `json:"subject_requirements"`
}

// CheckMoveRequest asks for verdicts on every slot for one lesson.
type CheckMoveRequest struct {
	LessonID           string              `json:"lesson_id" validate:"required"`
	SourceDay          int                 `json:"source_day"`
	SourcePeriod       int                 `json:"source_period"`
	CurrentAssignments []AssignmentPayload `json:"current_assignments"`
	CatalogPayload
	Room      string `json:"room,omitempty"`
	Policy    string `json:"policy,omitempty" validate:"omitempty,oneof=move-one move-all-instances"`
	SessionID string `json:"session_id,omitempty"`
}

// SlotValidation is one verdict row.
type SlotValidation struct {
	Day       int                  `json:"day"`
	Period    int                  `json:"period"`
	Valid     bool                 `json:"valid"`
	Conflicts []timetable.Conflict `json:"conflicts"`
}

// CheckMoveResponse returns the 30 verdicts in day-major order.
type CheckMoveResponse struct {
	LessonID        string           `json:"lesson_id"`
	SourceDay       int              `json:"source_day"`
	SourcePeriod    int              `json:"source_period"`
	SessionID       string           `json:"session_id,omitempty"`
	ScheduleVersion int64            `json:"schedule_version,omitempty"`
	Slots           []SlotValidation `json:"slots"`
}

// MoveLessonRequest commits a move against a supplied snapshot.
type MoveLessonRequest struct {
	LessonID           string              `json:"lesson_id" validate:"required"`
	SourceDay          int                 `json:"source_day"`
	SourcePeriod       int                 `json:"source_period"`
	TargetDay          int                 `json:"target_day"`
	TargetPeriod       int                 `json:"target_period"`
	CurrentAssignments []AssignmentPayload `json:"current_assignments"`
	CatalogPayload
	Room            string `json:"room,omitempty"`
	ScheduleVersion *int64 `json:"schedule_version,omitempty"`
	Policy          string `json:"policy,omitempty" validate:"omitempty,oneof=move-one move-all-instances"`
}

// MoveLessonResponse reports a commit outcome. Conflicts are data, not errors.
type MoveLessonResponse struct {
	Success            bool                 `json:"success"`
	Message            string               `json:"message"`
	UpdatedAssignment  *AssignmentPayload   `json:"updated_assignment"`
	UpdatedAssignments []AssignmentPayload  `json:"updated_assignments"`
	Conflicts          []timetable.Conflict `json:"conflicts"`
	ScheduleVersion    int64                `json:"schedule_version"`
}

// RoomsRequest asks the resolver to rank rooms for a target slot.
type RoomsRequest struct {
	LessonID            string                      `json:"lesson_id" validate:"required"`
	SourceDay           int                         `json:"source_day"`
	SourcePeriod        int                         `json:"source_period"`
	TargetDay           int                         `json:"target_day"`
	TargetPeriod        int                         `json:"target_period"`
	CurrentAssignments  []AssignmentPayload         `json:"current_assignments"`
	Rooms               []RoomPayload               `json:"rooms" validate:"dive"`
	SubjectRequirements []SubjectRequirementPayload `json:"subject_requirements"`
	Policy              string                      `json:"policy,omitempty" validate:"omitempty,oneof=move-one move-all-instances"`
}

// RoomsResponse lists ranked room options.
type RoomsResponse struct {
	LessonID     string                 `json:"lesson_id"`
	TargetDay    int                    `json:"target_day"`
	TargetPeriod int                    `json:"target_period"`
	Rooms        []timetable.RoomOption `json:"rooms"`
}

// StoredCheckMoveRequest asks for verdicts against a stored schedule.
type StoredCheckMoveRequest struct {
	LessonID     string `json:"lesson_id" validate:"required"`
	SourceDay    int    `json:"source_day"`
	SourcePeriod int    `json:"source_period"`
	Room         string `json:"room,omitempty"`
	Policy       string `json:"policy,omitempty" validate:"omitempty,oneof=move-one move-all-instances"`
	SessionID    string `json:"session_id,omitempty"`
}

// StoredRoomsRequest asks the resolver against a stored schedule.
type StoredRoomsRequest struct {
	LessonID     string `json:"lesson_id" validate:"required"`
	SourceDay    int    `json:"source_day"`
	SourcePeriod int    `json:"source_period"`
	TargetDay    int    `json:"target_day"`
	TargetPeriod int    `json:"target_period"`
	Policy       string `json:"policy,omitempty" validate:"omitempty,oneof=move-one move-all-instances"`
}

// CommitMoveRequest commits a move on a stored schedule.
type CommitMoveRequest struct {
	LessonID        string `json:"lesson_id" validate:"required"`
	SourceDay       int    `json:"source_day"`
	SourcePeriod    int    `json:"source_period"`
	TargetDay       int    `json:"target_day"`
	TargetPeriod    int    `json:"target_period"`
	Room            string `json:"room,omitempty"`
	ExpectedVersion int64  `json:"expected_version" validate:"required,min=1"`
	Policy          string `json:"policy,omitempty" validate:"omitempty,oneof=move-one move-all-instances"`
}

// ImportScheduleRequest stores a snapshot with its catalogs.
type ImportScheduleRequest struct {
	Name        string              `json:"name" validate:"required,max=120"`
	Assignments []AssignmentPayload `json:"assignments"`
	CatalogPayload
}

// ScheduleResponse is a stored snapshot.
type ScheduleResponse struct {
	ID                  string                       `json:"id"`
	Name                string                       `json:"name"`
	Version             int64                        `json:"version"`
	Assignments         []AssignmentPayload          `json:"assignments"`
	TeacherAvailability []TeacherAvailabilityPayload `json:"teacher_availability"`
	Rooms               []RoomPayload                `json:"rooms"`
	SubjectRequirements []SubjectRequirementPayload  `json:"subject_requirements"`
}

// DragStartRequest begins a drag for a lesson instance.
type DragStartRequest struct {
	LessonID     string `json:"lesson_id" validate:"required"`
	SourceDay    int    `json:"source_day"`
	SourcePeriod int    `json:"source_period"`
}

// DragSlotRequest carries a pointer or drop position.
type DragSlotRequest struct {
	Day    int `json:"day"`
	Period int `json:"period"`
}

// DragConfirmRequest commits the dropped target with an optional room.
type DragConfirmRequest struct {
	Room string `json:"room,omitempty"`
}

// DragStatusResponse reports the verdict of a hovered or dropped slot.
type DragStatusResponse struct {
	Day    int    `json:"day"`
	Period int    `json:"period"`
	Status string `json:"status"`
	State  string `json:"state"`
}

// ToAssignment converts the payload into an engine assignment.
func (p AssignmentPayload) ToAssignment() timetable.Assignment {
	return timetable.Assignment{
		LessonID:     p.LessonID,
		Slot:         timetable.Slot{Day: p.Day, Period: p.Period},
		TeacherCode:  p.TeacherCode,
		TeacherName:  p.TeacherName,
		Room:         p.Room,
		StudentGroup: p.StudentGroup,
		Subject:      p.Subject,
		SubjectID:    p.SubjectID,
	}
}

// NewAssignmentPayload converts an engine assignment for the wire.
func NewAssignmentPayload(a timetable.Assignment) AssignmentPayload {
	return AssignmentPayload{
		LessonID:     a.LessonID,
		Day:          a.Slot.Day,
		Period:       a.Slot.Period,
		TeacherCode:  a.TeacherCode,
		TeacherName:  a.TeacherName,
		Room:         a.Room,
		StudentGroup: a.StudentGroup,
		Subject:      a.Subject,
		SubjectID:    a.SubjectID,
	}
}

// ToAssignments converts payloads into engine assignments.
func ToAssignments(items []AssignmentPayload) []timetable.Assignment {
	out := make([]timetable.Assignment, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToAssignment())
	}
	return out
}

// NewAssignmentPayloads converts engine assignments for the wire.
func NewAssignmentPayloads(items []timetable.Assignment) []AssignmentPayload {
	out := make([]AssignmentPayload, 0, len(items))
	for _, item := range items {
		out = append(out, NewAssignmentPayload(item))
	}
	return out
}

// Availability converts the availability payloads.
func (c CatalogPayload) Availability() []timetable.TeacherAvailability {
	out := make([]timetable.TeacherAvailability, 0, len(c.TeacherAvailability))
	for _, t := range c.TeacherAvailability {
		slots := make([]timetable.Slot, 0, len(t.UnavailableSlots))
		for _, s := range t.UnavailableSlots {
			slots = append(slots, timetable.Slot{Day: s.Day, Period: s.Period})
		}
		out = append(out, timetable.TeacherAvailability{TeacherCode: t.TeacherCode, TeacherName: t.TeacherName, Unavailable: slots})
	}
	return out
}

// CatalogRooms converts the room payloads.
func (c CatalogPayload) CatalogRooms() []timetable.Room {
	return ToRooms(c.Rooms)
}

// Requirements converts the requirement payloads.
func (c CatalogPayload) Requirements() []timetable.SubjectRoomRequirement {
	return ToRequirements(c.SubjectRequirements)
}

// ToRooms converts room payloads.
func ToRooms(items []RoomPayload) []timetable.Room {
	out := make([]timetable.Room, 0, len(items))
	for _, r := range items {
		out = append(out, timetable.Room{Name: r.Name, Type: timetable.RoomType(r.RoomType)})
	}
	return out
}

// ToRequirements converts requirement payloads.
func ToRequirements(items []SubjectRequirementPayload) []timetable.SubjectRoomRequirement {
	out := make([]timetable.SubjectRoomRequirement, 0, len(items))
	for _, r := range items {
		out = append(out, timetable.SubjectRoomRequirement{
			SubjectID:        r.SubjectID,
			SubjectName:      r.SubjectName,
			RequiredRoomType: timetable.RoomType(r.RequiredRoomType),
		})
	}
	return out
}

// NewSlotValidations flattens verdicts for the wire.
func NewSlotValidations(verdicts []timetable.SlotVerdict) []SlotValidation {
	out := make([]SlotValidation, 0, len(verdicts))
	for _, v := range verdicts {
		conflicts := v.Conflicts
		if conflicts == nil {
			conflicts = []timetable.Conflict{}
		}
		out = append(out, SlotValidation{Day: v.Slot.Day, Period: v.Slot.Period, Valid: v.Valid, Conflicts: conflicts})
	}
	return out
}

// NewMoveLessonResponse converts an executor result for the wire.
func NewMoveLessonResponse(result *timetable.MoveResult) MoveLessonResponse {
	resp := MoveLessonResponse{
		Success:            result.Success,
		Message:            result.Message,
		Conflicts:          result.Conflicts,
		ScheduleVersion:    result.Version,
		UpdatedAssignments: NewAssignmentPayloads(result.Updated),
	}
	if resp.Conflicts == nil {
		resp.Conflicts = []timetable.Conflict{}
	}
	if result.Placed != nil {
		placed := NewAssignmentPayloads([]timetable.Assignment{*result.Placed})[0]
		resp.UpdatedAssignment = &placed
	}
	return resp
}
