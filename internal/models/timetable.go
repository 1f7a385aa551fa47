package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-timetable-api/internal/timetable"
)

// Schedule is the versioned header row of a stored timetable.
type Schedule struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduleAssignment is one assignment row. Position keeps the imported order stable.
type ScheduleAssignment struct {
	ScheduleID   string `db:"schedule_id" json:"-"`
	Position     int    `db:"position" json:"-"`
	LessonID     string `db:"lesson_id" json:"lesson_id"`
	Day          int    `db:"day" json:"day"`
	Period       int    `db:"period" json:"period"`
	TeacherCode  string `db:"teacher_code" json:"teacher_code"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	Room         string `db:"room" json:"room"`
	StudentGroup string `db:"student_group" json:"student_group"`
	Subject      string `db:"subject" json:"subject"`
	SubjectID    string `db:"subject_id" json:"subject_id"`
}

// ScheduleRoom is a catalogued room attached to a schedule.
type ScheduleRoom struct {
	ScheduleID string `db:"schedule_id" json:"-"`
	Name       string `db:"name" json:"name"`
	RoomType   string `db:"room_type" json:"room_type"`
}

// SubjectRequirement pins a subject to a room type for a schedule.
type SubjectRequirement struct {
	ScheduleID       string `db:"schedule_id" json:"-"`
	SubjectID        string `db:"subject_id" json:"subject_id"`
	SubjectName      string `db:"subject_name" json:"subject_name"`
	RequiredRoomType string `db:"required_room_type" json:"required_room_type"`
}

// TeacherUnavailability is one blocked slot for a teacher.
type TeacherUnavailability struct {
	ScheduleID  string `db:"schedule_id" json:"-"`
	TeacherCode string `db:"teacher_code" json:"teacher_code"`
	TeacherName string `db:"teacher_name" json:"teacher_name"`
	Day         int    `db:"day" json:"day"`
	Period      int    `db:"period" json:"period"`
}

// ScheduleMove logs a committed move.
type ScheduleMove struct {
	ID           string    `db:"id" json:"id"`
	ScheduleID   string    `db:"schedule_id" json:"schedule_id"`
	FromVersion  int64     `db:"from_version" json:"from_version"`
	ToVersion    int64     `db:"to_version" json:"to_version"`
	LessonID     string    `db:"lesson_id" json:"lesson_id"`
	SourceDay    int       `db:"source_day" json:"source_day"`
	SourcePeriod int       `db:"source_period" json:"source_period"`
	TargetDay    int       `db:"target_day" json:"target_day"`
	TargetPeriod int       `db:"target_period" json:"target_period"`
	Room         string    `db:"room" json:"room"`
	Policy       string    `db:"policy" json:"policy"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ScheduleAudit stores an audit report for a schedule version.
type ScheduleAudit struct {
	ID         string         `db:"id" json:"id"`
	ScheduleID string         `db:"schedule_id" json:"schedule_id"`
	Version    int64          `db:"version" json:"version"`
	Feasible   bool           `db:"feasible" json:"feasible"`
	Report     types.JSONText `db:"report" json:"report"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// StoredSchedule is a schedule with its assignments and catalogs.
type StoredSchedule struct {
	Schedule
	Assignments    []ScheduleAssignment    `json:"assignments"`
	Rooms          []ScheduleRoom          `json:"rooms"`
	Requirements   []SubjectRequirement    `json:"subject_requirements"`
	Unavailability []TeacherUnavailability `json:"teacher_unavailability"`
}

// Snapshot converts the stored rows into an engine schedule.
func (s *StoredSchedule) Snapshot() timetable.Schedule {
	out := timetable.Schedule{Version: s.Version, Assignments: make([]timetable.Assignment, 0, len(s.Assignments))}
	for _, a := range s.Assignments {
		out.Assignments = append(out.Assignments, a.ToAssignment())
	}
	return out
}

// CatalogRooms converts the room rows.
func (s *StoredSchedule) CatalogRooms() []timetable.Room {
	rooms := make([]timetable.Room, 0, len(s.Rooms))
	for _, r := range s.Rooms {
		rooms = append(rooms, timetable.Room{Name: r.Name, Type: timetable.RoomType(r.RoomType)})
	}
	return rooms
}

// CatalogRequirements converts the requirement rows.
func (s *StoredSchedule) CatalogRequirements() []timetable.SubjectRoomRequirement {
	reqs := make([]timetable.SubjectRoomRequirement, 0, len(s.Requirements))
	for _, r := range s.Requirements {
		reqs = append(reqs, timetable.SubjectRoomRequirement{
			SubjectID:        r.SubjectID,
			SubjectName:      r.SubjectName,
			RequiredRoomType: timetable.RoomType(r.RequiredRoomType),
		})
	}
	return reqs
}

// Availability groups blocked slots per teacher, in first-seen order.
func (s *StoredSchedule) Availability() []timetable.TeacherAvailability {
	var out []timetable.TeacherAvailability
	index := map[string]int{}
	for _, u := range s.Unavailability {
		i, ok := index[u.TeacherCode]
		if !ok {
			i = len(out)
			index[u.TeacherCode] = i
			out = append(out, timetable.TeacherAvailability{TeacherCode: u.TeacherCode, TeacherName: u.TeacherName})
		}
		out[i].Unavailable = append(out[i].Unavailable, timetable.Slot{Day: u.Day, Period: u.Period})
	}
	return out
}

// ToAssignment converts the row into an engine assignment.
func (a ScheduleAssignment) ToAssignment() timetable.Assignment {
	return timetable.Assignment{
		LessonID:     a.LessonID,
		Slot:         timetable.Slot{Day: a.Day, Period: a.Period},
		TeacherCode:  a.TeacherCode,
		TeacherName:  a.TeacherName,
		Room:         a.Room,
		StudentGroup: a.StudentGroup,
		Subject:      a.Subject,
		SubjectID:    a.SubjectID,
	}
}

// AssignmentRows converts engine assignments into rows numbered by position.
func AssignmentRows(scheduleID string, assignments []timetable.Assignment) []ScheduleAssignment {
	rows := make([]ScheduleAssignment, 0, len(assignments))
	for i, a := range assignments {
		rows = append(rows, ScheduleAssignment{
			ScheduleID:   scheduleID,
			Position:     i,
			LessonID:     a.LessonID,
			Day:          a.Slot.Day,
			Period:       a.Slot.Period,
			TeacherCode:  a.TeacherCode,
			TeacherName:  a.TeacherName,
			Room:         a.Room,
			StudentGroup: a.StudentGroup,
			Subject:      a.Subject,
			SubjectID:    a.SubjectID,
		})
	}
	return rows
}

// NewStoredSchedule builds rows for an imported snapshot.
func NewStoredSchedule(id, name string, assignments []timetable.Assignment, rooms []timetable.Room, requirements []timetable.SubjectRoomRequirement, availability []timetable.TeacherAvailability) *StoredSchedule {
	stored := &StoredSchedule{
		Schedule:    Schedule{ID: id, Name: name, Version: 1},
		Assignments: AssignmentRows(id, assignments),
	}
	for _, r := range rooms {
		roomType := r.Type
		if roomType == "" {
			roomType = timetable.RoomStandard
		}
		stored.Rooms = append(stored.Rooms, ScheduleRoom{ScheduleID: id, Name: r.Name, RoomType: string(roomType)})
	}
	for _, r := range requirements {
		stored.Requirements = append(stored.Requirements, SubjectRequirement{ScheduleID: id, SubjectID: r.SubjectID, SubjectName: r.SubjectName, RequiredRoomType: string(r.RequiredRoomType)})
	}
	seen := map[string]struct{}{}
	for _, t := range availability {
		for _, s := range t.Unavailable {
			key := t.TeacherCode + "|" + s.String()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			stored.Unavailability = append(stored.Unavailability, TeacherUnavailability{ScheduleID: id, TeacherCode: t.TeacherCode, TeacherName: t.TeacherName, Day: s.Day, Period: s.Period})
		}
	}
	return stored
}
