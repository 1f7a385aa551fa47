package timetable

import "sort"

// ResolveInput selects rooms for a lesson that is moving onto Target.
type ResolveInput struct {
	LessonID     string
	Source       Slot
	Target       Slot
	Assignments  []Assignment
	Rooms        []Room
	Requirements []SubjectRoomRequirement
	Policy       MovePolicy
}

// RoomOption is one catalogued room evaluated for the target slot.
type RoomOption struct {
	Room      Room       `json:"room"`
	Available bool       `json:"is_available"`
	Suitable  bool       `json:"is_suitable"`
	Conflicts []Conflict `json:"conflicts"`
}

func (o RoomOption) rank() int {
	switch {
	case o.Available && o.Suitable:
		return 0
	case o.Available:
		return 1
	default:
		return 2
	}
}

// ResolveRooms returns every catalogued room ranked suitable-and-available first, then
// available-only, then busy rooms, each bucket by ascending name.
func ResolveRooms(in ResolveInput) ([]RoomOption, error) {
	if in.Policy == "" {
		in.Policy = MoveOne
	}
	if err := in.Target.Validate(); err != nil {
		return nil, err
	}
	source, err := findSource(in.Assignments, in.LessonID, in.Source)
	if err != nil {
		return nil, err
	}
	index, err := BuildIndex(in.Assignments, exclusionFor(in.Policy, in.LessonID, in.Source))
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(in.Rooms, in.Requirements)
	if err != nil {
		return nil, err
	}

	dests := []Slot{in.Target}
	if in.Policy == MoveAllInstances {
		dayDelta, periodDelta := in.Source.Offset(in.Target)
		dests = dests[:0]
		for _, instance := range instancesOf(in.Assignments, in.LessonID) {
			if dest := instance.Slot.Shift(dayDelta, periodDelta); dest.InGrid() {
				dests = append(dests, dest)
			}
		}
	}

	options := make([]RoomOption, 0, len(catalog.Rooms()))
	for _, room := range catalog.Rooms() {
		option := RoomOption{
			Room:      room,
			Available: true,
			Suitable:  catalog.Suitable(source.SubjectKey(), room),
			Conflicts: []Conflict{},
		}
		for _, dest := range dests {
			if occupants := index.Room(room.Name, dest); len(occupants) > 0 {
				option.Available = false
				option.Conflicts = append(option.Conflicts, Conflict{Type: ConflictOccupied, Message: occupiedMessage(room.Name, occupants[0])})
				break
			}
		}
		options = append(options, option)
	}

	sort.SliceStable(options, func(i, j int) bool {
		ri, rj := options[i].rank(), options[j].rank()
		if ri != rj {
			return ri < rj
		}
		return options[i].Room.Name < options[j].Room.Name
	})
	return options, nil
}
