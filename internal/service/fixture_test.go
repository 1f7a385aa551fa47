package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func samplePayloads() []dto.AssignmentPayload {
	return []dto.AssignmentPayload{
		{LessonID: "L1", Day: 0, Period: 1, TeacherCode: "SMI", TeacherName: "Mr Smith", Room: "Room 101", StudentGroup: "Year 7A", Subject: "Maths", SubjectID: "MAT"},
		{LessonID: "L2", Day: 0, Period: 2, TeacherCode: "JON", TeacherName: "Ms Jones", Room: "Room 102", StudentGroup: "Year 7A", Subject: "English", SubjectID: "ENG"},
		{LessonID: "L3", Day: 1, Period: 1, TeacherCode: "BRO", TeacherName: "Dr Brown", Room: "Room 101", StudentGroup: "Year 7B", Subject: "Science", SubjectID: "SCI"},
		{LessonID: "L4", Day: 1, Period: 3, TeacherCode: "SMI", TeacherName: "Mr Smith", Room: "Room 103", StudentGroup: "Year 8A", Subject: "History", SubjectID: "HIS"},
		{LessonID: "L5", Day: 2, Period: 1, TeacherCode: "BRO", TeacherName: "Dr Brown", Room: "Science Lab", StudentGroup: "Year 8A", Subject: "Science", SubjectID: "SCI"},
		{LessonID: "L5", Day: 2, Period: 2, TeacherCode: "BRO", TeacherName: "Dr Brown", Room: "Science Lab", StudentGroup: "Year 8A", Subject: "Science", SubjectID: "SCI"},
	}
}

func sampleCatalog() dto.CatalogPayload {
	return dto.CatalogPayload{
		TeacherAvailability: []dto.TeacherAvailabilityPayload{
			{TeacherCode: "SMI", TeacherName: "Mr Smith", UnavailableSlots: []dto.SlotPayload{{Day: 0, Period: 4}}},
		},
		Rooms: []dto.RoomPayload{
			{Name: "Room 101", RoomType: "standard"},
			{Name: "Room 102"},
			{Name: "Room 103", RoomType: "standard"},
			{Name: "Science Lab", RoomType: "science_lab"},
		},
		SubjectRequirements: []dto.SubjectRequirementPayload{
			{SubjectID: "SCI", SubjectName: "Science", RequiredRoomType: "science_lab"},
		},
	}
}

func sampleStored(id string) *models.StoredSchedule {
	catalog := sampleCatalog()
	stored := models.NewStoredSchedule(id, "Autumn", dto.ToAssignments(samplePayloads()), catalog.CatalogRooms(), catalog.Requirements(), catalog.Availability())
	return stored
}

func validationAt(slots []dto.SlotValidation, day, period int) dto.SlotValidation {
	for _, s := range slots {
		if s.Day == day && s.Period == period {
			return s
		}
	}
	return dto.SlotValidation{}
}

func typesOf(conflicts []timetable.Conflict) []timetable.ConflictType {
	out := make([]timetable.ConflictType, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, c.Type)
	}
	return out
}

type memoryStore struct {
	mu        sync.Mutex
	schedules map[string]*models.StoredSchedule
	moves     []models.ScheduleMove
	audits    []models.ScheduleAudit
	finds     int
	applyErr  error
}

func newMemoryStore(items ...*models.StoredSchedule) *memoryStore {
	store := &memoryStore{schedules: map[string]*models.StoredSchedule{}}
	for _, item := range items {
		store.schedules[item.ID] = item
	}
	return store
}

func copyStored(in *models.StoredSchedule) *models.StoredSchedule {
	out := *in
	out.Assignments = append([]models.ScheduleAssignment(nil), in.Assignments...)
	out.Rooms = append([]models.ScheduleRoom(nil), in.Rooms...)
	out.Requirements = append([]models.SubjectRequirement(nil), in.Requirements...)
	out.Unavailability = append([]models.TeacherUnavailability(nil), in.Unavailability...)
	return &out
}

func (m *memoryStore) Create(ctx context.Context, schedule *models.StoredSchedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if schedule.ID == "" {
		schedule.ID = "generated"
	}
	schedule.Version = 1
	m.schedules[schedule.ID] = copyStored(schedule)
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id string) (*models.StoredSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	stored, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyStored(stored), nil
}

func (m *memoryStore) ListIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.schedules))
	for id := range m.schedules {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memoryStore) ApplyMove(ctx context.Context, expectedVersion int64, moved []models.ScheduleAssignment, move *models.ScheduleMove) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	stored, ok := m.schedules[move.ScheduleID]
	if !ok || stored.Version != expectedVersion {
		return sql.ErrNoRows
	}
	for _, row := range moved {
		stored.Assignments[row.Position] = row
	}
	stored.Version++
	move.FromVersion = expectedVersion
	move.ToVersion = stored.Version
	m.moves = append(m.moves, *move)
	return nil
}

func (m *memoryStore) ListMoves(ctx context.Context, scheduleID string, limit int) ([]models.ScheduleMove, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ScheduleMove
	for i := len(m.moves) - 1; i >= 0; i-- {
		if m.moves[i].ScheduleID == scheduleID {
			out = append(out, m.moves[i])
		}
	}
	return out, nil
}

func (m *memoryStore) SaveAudit(ctx context.Context, audit *models.ScheduleAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, *audit)
	return nil
}

func (m *memoryStore) LatestAudit(ctx context.Context, scheduleID string) (*models.ScheduleAudit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.audits) - 1; i >= 0; i-- {
		if m.audits[i].ScheduleID == scheduleID {
			audit := m.audits[i]
			return &audit, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			c.deleted = append(c.deleted, key)
		}
	}
	return nil
}

func (c *memoryCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
