package timetable

import (
	"fmt"
	"strings"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Assignment is one lesson occupying one slot.
type Assignment struct {
	LessonID     string `json:"lesson_id"`
	Slot         Slot   `json:"slot"`
	TeacherCode  string `json:"teacher_code"`
	TeacherName  string `json:"teacher_name"`
	Room         string `json:"room"`
	StudentGroup string `json:"student_group"`
	Subject      string `json:"subject"`
	SubjectID    string `json:"subject_id,omitempty"`
}

// Validate rejects structurally malformed records. Occupancy clashes are not checked here.
func (a Assignment) Validate() error {
	var missing []string
	if strings.TrimSpace(a.LessonID) == "" {
		missing = append(missing, "lesson_id")
	}
	if strings.TrimSpace(a.TeacherCode) == "" {
		missing = append(missing, "teacher_code")
	}
	if strings.TrimSpace(a.Room) == "" {
		missing = append(missing, "room")
	}
	if strings.TrimSpace(a.StudentGroup) == "" {
		missing = append(missing, "student_group")
	}
	if len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrInvalidAssignment, fmt.Sprintf("assignment %q is missing %s", a.LessonID, strings.Join(missing, ", ")))
	}
	return a.Slot.Validate()
}

// TeacherLabel prefers the display name over the code.
func (a Assignment) TeacherLabel() string {
	if a.TeacherName != "" {
		return a.TeacherName
	}
	return a.TeacherCode
}

// SubjectKey is the identifier used for room requirements; it falls back to the subject name.
func (a Assignment) SubjectKey() string {
	if a.SubjectID != "" {
		return a.SubjectID
	}
	return a.Subject
}

// Schedule is a versioned snapshot of every assignment in the timetable.
type Schedule struct {
	Version     int64        `json:"version"`
	Assignments []Assignment `json:"assignments"`
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (s Schedule) Clone() Schedule {
	out := Schedule{Version: s.Version, Assignments: make([]Assignment, len(s.Assignments))}
	copy(out.Assignments, s.Assignments)
	return out
}

// Instances returns the assignments carrying lessonID, in schedule order.
func (s Schedule) Instances(lessonID string) []Assignment {
	return instancesOf(s.Assignments, lessonID)
}

func instancesOf(assignments []Assignment, lessonID string) []Assignment {
	var out []Assignment
	for _, a := range assignments {
		if a.LessonID == lessonID {
			out = append(out, a)
		}
	}
	return out
}

// findSource locates the lesson at the source slot, failing closed when it is absent.
func findSource(assignments []Assignment, lessonID string, source Slot) (Assignment, error) {
	if err := source.Validate(); err != nil {
		return Assignment{}, err
	}
	for _, a := range assignments {
		if a.LessonID == lessonID && a.Slot == source {
			return a, nil
		}
	}
	return Assignment{}, appErrors.Clone(appErrors.ErrLessonNotFound, fmt.Sprintf("lesson %q not found at %s", lessonID, source))
}
