// Package catalog holds the static lookup data of the platform: subjects,
// help types, the mood scale, availability days and the buddy roster.
// It has no behaviour beyond lookups.
package catalog

// Subject is a school subject a supportee can ask for help with.
type Subject struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// HelpTypeOption describes one of the four ways a buddy can help.
type HelpTypeOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// MoodLevel is one step of the 0-4 mood check scale.
type MoodLevel struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Buddy is a peer helper on the roster.
type Buddy struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Expertise []string `json:"expertise"`
}

// HasExpertise reports whether the buddy covers the subject.
func (b Buddy) HasExpertise(subjectID string) bool {
	for _, s := range b.Expertise {
		if s == subjectID {
			return true
		}
	}
	return false
}

// GenericSubjectLabel is used when neither the catalog nor the caller knows the subject.
const GenericSubjectLabel = "General support"

var subjects = []Subject{
	{ID: "math", Label: "Mathematics"},
	{ID: "german", Label: "German"},
	{ID: "english", Label: "English"},
	{ID: "biology", Label: "Biology"},
	{ID: "physics", Label: "Physics"},
	{ID: "history", Label: "History"},
}

var helpTypes = []HelpTypeOption{
	{ID: "explain", Label: "Explain a topic"},
	{ID: "practice", Label: "Practice together"},
	{ID: "homework", Label: "Homework help"},
	{ID: "exam_prep", Label: "Exam preparation"},
}

var moodScale = []MoodLevel{
	{Value: 0, Label: "Really bad"},
	{Value: 1, Label: "Not great"},
	{Value: 2, Label: "Okay"},
	{Value: 3, Label: "Good"},
	{Value: 4, Label: "Great"},
}

var days = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Roster order matters: candidate generation keeps it.
var roster = []Buddy{
	{ID: "buddy1", Name: "Lena Hoffmann", Expertise: []string{"math", "physics"}},
	{ID: "buddy2", Name: "Jonas Weber", Expertise: []string{"german", "history"}},
	{ID: "buddy3", Name: "Amira Yilmaz", Expertise: []string{"english", "biology"}},
	{ID: "buddy4", Name: "Noah Schmidt", Expertise: []string{"math", "english"}},
}

var defaultClassLevels = []string{"Grade 8", "Grade 9", "Grade 10"}

// Subjects returns all subjects.
func Subjects() []Subject {
	return append([]Subject(nil), subjects...)
}

// SubjectByID looks up a subject.
func SubjectByID(id string) (Subject, bool) {
	for _, s := range subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// SubjectLabel resolves the display label for a subject id, falling back to
// the caller's label and then to GenericSubjectLabel.
func SubjectLabel(id, fallback string) string {
	if s, ok := SubjectByID(id); ok {
		return s.Label
	}
	if fallback != "" {
		return fallback
	}
	return GenericSubjectLabel
}

// HelpTypes returns the four help type options.
func HelpTypes() []HelpTypeOption {
	return append([]HelpTypeOption(nil), helpTypes...)
}

// MoodScale returns the mood check scale.
func MoodScale() []MoodLevel {
	return append([]MoodLevel(nil), moodScale...)
}

// Days returns the availability days.
func Days() []string {
	return append([]string(nil), days...)
}

// IsDay reports whether d is a valid availability day.
func IsDay(d string) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}

// Roster returns a copy of the buddy roster in roster order.
func Roster() []Buddy {
	out := make([]Buddy, len(roster))
	for i, b := range roster {
		b.Expertise = append([]string(nil), b.Expertise...)
		out[i] = b
	}
	return out
}

// BuddyByID looks up a buddy.
func BuddyByID(id string) (Buddy, bool) {
	for _, b := range roster {
		if b.ID == id {
			return b, true
		}
	}
	return Buddy{}, false
}

// DefaultClassLevels is the pool used when seeding without an explicit one.
func DefaultClassLevels() []string {
	return append([]string(nil), defaultClassLevels...)
}
