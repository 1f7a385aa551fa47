package timetable

import (
	"fmt"
	"sort"
)

// Severity grades audit issues.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

const tightThreshold = 0.9

// Issue is a single audit finding.
type Issue struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
}

// AuditSummary aggregates schedule usage.
type AuditSummary struct {
	Assignments         int     `json:"assignments"`
	Lessons             int     `json:"lessons"`
	Teachers            int     `json:"teachers"`
	StudentGroups       int     `json:"student_groups"`
	Rooms               int     `json:"rooms"`
	RoomUtilization     float64 `json:"room_utilization"`
	DoublePeriodLessons int     `json:"double_period_lessons"`
}

// AuditReport is the health report for a whole schedule.
type AuditReport struct {
	Feasible bool         `json:"feasible"`
	Version  int64        `json:"version"`
	Issues   []Issue      `json:"issues"`
	Summary  AuditSummary `json:"summary"`
}

// AuditInput bundles a schedule with its catalogs.
type AuditInput struct {
	Schedule     Schedule
	Availability []TeacherAvailability
	Rooms        []Room
	Requirements []SubjectRoomRequirement
}

// Audit inspects a committed schedule for invariant breaks and tight constraints. Feasible is
// false when any ERROR is reported.
func Audit(in AuditInput) (AuditReport, error) {
	for _, a := range in.Schedule.Assignments {
		if err := a.Validate(); err != nil {
			return AuditReport{}, err
		}
	}
	availability, err := NewAvailabilityRegistry(in.Availability)
	if err != nil {
		return AuditReport{}, err
	}
	catalog, err := NewCatalog(in.Rooms, in.Requirements)
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{Version: in.Schedule.Version, Issues: []Issue{}}
	add := func(sev Severity, category, message string) {
		report.Issues = append(report.Issues, Issue{Severity: sev, Category: category, Message: message})
	}

	for _, v := range CheckInvariants(in.Schedule.Assignments) {
		add(SeverityError, "DOUBLE BOOKING", v.Message())
	}

	teacherLoad := map[string]int{}
	teacherNames := map[string]string{}
	groupLoad := map[string]int{}
	roomsUsed := map[string]struct{}{}
	lessonSlots := map[string][]Slot{}
	for _, a := range in.Schedule.Assignments {
		teacherLoad[a.TeacherCode]++
		teacherNames[a.TeacherCode] = a.TeacherLabel()
		groupLoad[a.StudentGroup]++
		roomsUsed[a.Room] = struct{}{}
		lessonSlots[a.LessonID] = append(lessonSlots[a.LessonID], a.Slot)

		if availability.IsUnavailable(a.TeacherCode, a.Slot) {
			add(SeverityError, "TEACHER AVAILABILITY", fmt.Sprintf("%s teaches %q to %s on %s but is unavailable", a.TeacherLabel(), a.Subject, a.StudentGroup, a.Slot))
		}
		if required, ok := catalog.Requirement(a.SubjectKey()); ok {
			if room, known := catalog.Room(a.Room); known && room.Type != required {
				add(SeverityWarning, "SPECIALIZED ROOMS", fmt.Sprintf("%s on %s: %s", a.StudentGroup, a.Slot, roomTypeMessage(a, room, required)))
			}
		}
	}

	for _, code := range sortedKeys(teacherLoad) {
		load := teacherLoad[code]
		available := GridSize - availability.BlockedCount(code)
		switch {
		case load > available:
			add(SeverityError, "TEACHER AVAILABILITY", fmt.Sprintf("%s (%s): %d periods placed but only %d slots available", teacherNames[code], code, load, available))
		case available > 0 && float64(load)/float64(available) > tightThreshold:
			add(SeverityWarning, "TEACHER AVAILABILITY", fmt.Sprintf("%s (%s): %d/%d available slots used", teacherNames[code], code, load, available))
		}
	}

	for _, group := range sortedKeys(groupLoad) {
		load := groupLoad[group]
		if float64(load)/float64(GridSize) > tightThreshold {
			add(SeverityWarning, "STUDENT GROUP", fmt.Sprintf("%s: schedule is %.1f%% full (%d/%d)", group, float64(load)/float64(GridSize)*100, load, GridSize))
		}
	}

	roomCount := len(catalog.Rooms())
	if roomCount == 0 {
		roomCount = len(roomsUsed)
	}
	if roomCount > 0 {
		report.Summary.RoomUtilization = float64(len(in.Schedule.Assignments)) / float64(roomCount*GridSize)
		if report.Summary.RoomUtilization > tightThreshold {
			add(SeverityWarning, "ROOM CAPACITY", fmt.Sprintf("Room utilization is very high (%.1f%%)", report.Summary.RoomUtilization*100))
		}
	}

	doubles := 0
	for _, slots := range lessonSlots {
		if hasConsecutive(slots) {
			doubles++
		}
	}
	if doubles > 0 {
		add(SeverityInfo, "DOUBLE PERIODS", fmt.Sprintf("%d lessons occupy consecutive periods", doubles))
	}

	report.Summary.Assignments = len(in.Schedule.Assignments)
	report.Summary.Lessons = len(lessonSlots)
	report.Summary.Teachers = len(teacherLoad)
	report.Summary.StudentGroups = len(groupLoad)
	report.Summary.Rooms = roomCount
	report.Summary.DoublePeriodLessons = doubles

	report.Feasible = true
	for _, issue := range report.Issues {
		if issue.Severity == SeverityError {
			report.Feasible = false
			break
		}
	}
	return report, nil
}

func hasConsecutive(slots []Slot) bool {
	set := make(map[Slot]struct{}, len(slots))
	for _, s := range slots {
		set[s] = struct{}{}
	}
	for _, s := range slots {
		if _, ok := set[s.Shift(0, 1)]; ok {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
