package timetable

func sampleAssignments() []Assignment {
	return []Assignment{
		{LessonID: "L1", Slot: Slot{Day: 0, Period: 1}, TeacherCode: "SMI", TeacherName: "Mr Smith", Room: "Room 101", StudentGroup: "Year 7A", Subject: "Maths", SubjectID: "MAT"},
		{LessonID: "L2", Slot: Slot{Day: 0, Period: 2}, TeacherCode: "JON", TeacherName: "Ms Jones", Room: "Room 102", StudentGroup: "Year 7A", Subject: "English", SubjectID: "ENG"},
		{LessonID: "L3", Slot: Slot{Day: 1, Period: 1}, TeacherCode: "BRO", TeacherName: "Dr Brown", Room: "Room 101", StudentGroup: "Year 7B", Subject: "Science", SubjectID: "SCI"},
		{LessonID: "L4", Slot: Slot{Day: 1, Period: 3}, TeacherCode: "SMI", TeacherName: "Mr Smith", Room: "Room 103", StudentGroup: "Year 8A", Subject: "History", SubjectID: "HIS"},
		{LessonID: "L5", Slot: Slot{Day: 2, Period: 1}, TeacherCode: "BRO", TeacherName: "Dr Brown", Room: "Science Lab", StudentGroup: "Year 8A", Subject: "Science", SubjectID: "SCI"},
		{LessonID: "L5", Slot: Slot{Day: 2, Period: 2}, TeacherCode: "BRO", TeacherName: "Dr Brown", Room: "Science Lab", StudentGroup: "Year 8A", Subject: "Science", SubjectID: "SCI"},
	}
}

func sampleAvailability() []TeacherAvailability {
	return []TeacherAvailability{
		{TeacherCode: "SMI", TeacherName: "Mr Smith", Unavailable: []Slot{{Day: 0, Period: 4}}},
	}
}

func sampleRooms() []Room {
	return []Room{
		{Name: "Room 103", Type: RoomStandard},
		{Name: "Science Lab", Type: RoomScienceLab},
		{Name: "Room 101", Type: RoomStandard},
		{Name: "Room 102"},
	}
}

func sampleRequirements() []SubjectRoomRequirement {
	return []SubjectRoomRequirement{
		{SubjectID: "SCI", SubjectName: "Science", RequiredRoomType: RoomScienceLab},
		{SubjectID: "MAT", SubjectName: "Maths"},
	}
}

func sampleCheckInput(lessonID string, source Slot) CheckInput {
	return CheckInput{
		LessonID:     lessonID,
		Source:       source,
		Assignments:  sampleAssignments(),
		Availability: sampleAvailability(),
		Rooms:        sampleRooms(),
		Requirements: sampleRequirements(),
	}
}

func verdictAt(verdicts []SlotVerdict, s Slot) SlotVerdict {
	for _, v := range verdicts {
		if v.Slot == s {
			return v
		}
	}
	return SlotVerdict{}
}

func conflictTypes(conflicts []Conflict) []ConflictType {
	out := make([]ConflictType, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, c.Type)
	}
	return out
}
