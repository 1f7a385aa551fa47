package timetable

import (
	"fmt"
	"sort"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// RoomType classifies rooms for subject suitability.
type RoomType string

const (
	RoomStandard     RoomType = "standard"
	RoomScienceLab   RoomType = "science_lab"
	RoomComputerRoom RoomType = "computer_room"
	RoomSportsHall   RoomType = "sports_hall"
	RoomArtRoom      RoomType = "art_room"
	RoomMusicRoom    RoomType = "music_room"
	RoomLibrary      RoomType = "library"
)

var roomTypes = map[RoomType]struct{}{
	RoomStandard: {}, RoomScienceLab: {}, RoomComputerRoom: {}, RoomSportsHall: {},
	RoomArtRoom: {}, RoomMusicRoom: {}, RoomLibrary: {},
}

// Valid reports whether t is a known room type.
func (t RoomType) Valid() bool {
	_, ok := roomTypes[t]
	return ok
}

// Room is a catalogued teaching space.
type Room struct {
	Name string   `json:"name"`
	Type RoomType `json:"room_type"`
}

// SubjectRoomRequirement pins a subject to a room type. An empty RequiredRoomType means any room.
type SubjectRoomRequirement struct {
	SubjectID        string   `json:"subject_id"`
	SubjectName      string   `json:"subject_name"`
	RequiredRoomType RoomType `json:"required_room_type,omitempty"`
}

// Catalog holds the room list and subject requirements for one validation call.
type Catalog struct {
	rooms        map[string]Room
	ordered      []Room
	requirements map[string]RoomType
}

// NewCatalog validates and indexes rooms and subject requirements. Rooms without a type
// default to standard.
func NewCatalog(rooms []Room, requirements []SubjectRoomRequirement) (*Catalog, error) {
	c := &Catalog{
		rooms:        make(map[string]Room, len(rooms)),
		requirements: make(map[string]RoomType, len(requirements)),
	}
	for _, room := range rooms {
		if room.Name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "room name is required")
		}
		if room.Type == "" {
			room.Type = RoomStandard
		}
		if !room.Type.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s has unknown type %q", room.Name, room.Type))
		}
		if _, dup := c.rooms[room.Name]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s listed twice", room.Name))
		}
		c.rooms[room.Name] = room
		c.ordered = append(c.ordered, room)
	}
	sort.Slice(c.ordered, func(i, j int) bool { return c.ordered[i].Name < c.ordered[j].Name })

	for _, req := range requirements {
		if req.SubjectID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "subject requirement requires subject_id")
		}
		if req.RequiredRoomType == "" {
			continue
		}
		if !req.RequiredRoomType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s requires unknown room type %q", req.SubjectID, req.RequiredRoomType))
		}
		c.requirements[req.SubjectID] = req.RequiredRoomType
	}
	return c, nil
}

// HasRooms reports whether any room is catalogued.
func (c *Catalog) HasRooms() bool {
	return c != nil && len(c.rooms) > 0
}

// Rooms returns the catalogued rooms sorted by name.
func (c *Catalog) Rooms() []Room {
	if c == nil {
		return nil
	}
	return c.ordered
}

// Room looks up a room by name.
func (c *Catalog) Room(name string) (Room, bool) {
	if c == nil {
		return Room{}, false
	}
	room, ok := c.rooms[name]
	return room, ok
}

// Requirement returns the room type a subject needs, if any.
func (c *Catalog) Requirement(subjectKey string) (RoomType, bool) {
	if c == nil {
		return "", false
	}
	t, ok := c.requirements[subjectKey]
	return t, ok
}

// Suitable reports whether room satisfies the subject requirement. Subjects without a
// requirement accept any room.
func (c *Catalog) Suitable(subjectKey string, room Room) bool {
	required, ok := c.Requirement(subjectKey)
	if !ok {
		return true
	}
	return room.Type == required
}
