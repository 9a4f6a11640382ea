package matching

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("match-%d", n)
	}
}

func threeSuggestions() []Suggestion {
	return []Suggestion{
		{BuddyID: "buddy1", BuddyName: "Lena Hoffmann", Confidence: 80, Reason: "Strong in Mathematics"},
		{BuddyID: "buddy4", BuddyName: "Noah Schmidt", Confidence: 72, Reason: "Strong in Mathematics"},
		{BuddyID: "buddy9", BuddyName: "Kai", Confidence: 75, Reason: ""},
	}
}

func seededThree(t *testing.T) State {
	t.Helper()
	return Seed(threeSuggestions(), SeedContext{SubjectID: "math"}, t0, sequentialIDs())
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "LH", Initials("Lena Hoffmann"))
	assert.Equal(t, "NS", Initials("noah schmidt the third"))
	assert.Equal(t, "K•", Initials("Kai"))
	assert.Equal(t, "••", Initials(""))
	assert.Equal(t, "ÖA", Initials("  özlem   aydin"))
}

func TestSeed_EmptySuggestions(t *testing.T) {
	s := Seed(nil, SeedContext{SubjectID: "math"}, t0, sequentialIDs())

	assert.Equal(t, State{Options: []Option{}, MatchNeeded: true}, s)
}

func TestSeed_BuildsProposedOptions(t *testing.T) {
	s := Seed(threeSuggestions(), SeedContext{
		SubjectID:    "math",
		SharedTraits: []string{"Same school", " "},
	}, t0, sequentialIDs())

	require.Len(t, s.Options, 3)
	assert.False(t, s.MatchNeeded)

	ids := map[string]bool{}
	for i, o := range s.Options {
		ids[o.MatchID] = true
		assert.Equal(t, StatusProposed, o.Status)
		assert.Equal(t, PreferenceNone, o.PreferenceScore)
		assert.Equal(t, "Mathematics", o.SubjectLabel)
		assert.Equal(t, t0, o.CreatedAt)
		assert.Nil(t, o.RespondedAt)
		assert.Equal(t, []string{"Grade 8", "Grade 9", "Grade 10"}[i], o.ClassLevel)
	}
	assert.Len(t, ids, 3)

	assert.Equal(t, []string{"Same school", "Strong in Mathematics"}, s.Options[0].Reasons)
	assert.Equal(t, []string{"Same school"}, s.Options[2].Reasons)
	assert.Equal(t, "LH", s.Options[0].ProfileInitials)
	assert.Equal(t, "K•", s.Options[2].ProfileInitials)
	assert.Equal(t, 80, s.Options[0].Confidence)
}

func TestSeed_TruncatesAndRoundRobinsClassLevels(t *testing.T) {
	suggestions := append(threeSuggestions(), Suggestion{BuddyID: "buddy2", BuddyName: "Jonas Weber"})

	s := Seed(suggestions, SeedContext{
		SubjectID:    "chess",
		SubjectLabel: "Chess",
		ClassLevels:  []string{"A", "B"},
	}, t0, sequentialIDs())

	require.Len(t, s.Options, MaxOptions)
	assert.Equal(t, "A", s.Options[0].ClassLevel)
	assert.Equal(t, "B", s.Options[1].ClassLevel)
	assert.Equal(t, "A", s.Options[2].ClassLevel)
	assert.Equal(t, "Chess", s.Options[0].SubjectLabel)
	assert.Nil(t, s.Options[0].SharedTraits)
}

func TestApplyPreference_AcceptExpiresOthers(t *testing.T) {
	s := seededThree(t)
	later := t0.Add(time.Minute)

	tr, err := ApplyPreference(s, "match-2", PreferenceAccepted, later)
	require.NoError(t, err)

	next := tr.State
	assert.Equal(t, StatusSelected, next.Options[1].Status)
	assert.Equal(t, PreferenceAccepted, next.Options[1].PreferenceScore)
	assert.Equal(t, later, *next.Options[1].RespondedAt)
	assert.Equal(t, StatusExpired, next.Options[0].Status)
	assert.Equal(t, StatusExpired, next.Options[2].Status)
	assert.Equal(t, later, *next.Options[0].RespondedAt)
	assert.Equal(t, PreferenceNone, next.Options[0].PreferenceScore)
	assert.Equal(t, "match-2", next.ActiveMatchID)
	assert.False(t, next.MatchNeeded)
	assert.False(t, tr.CoachSignal)
	assert.Nil(t, next.LastCoachSignalAt)
	require.NotNil(t, tr.Selected)
	assert.Equal(t, "buddy4", tr.Selected.BuddyID)

	// the input state is untouched
	assert.Equal(t, StatusProposed, s.Options[0].Status)
}

func TestApplyPreference_AcceptKeepsRejectedOptions(t *testing.T) {
	s := seededThree(t)
	tr, err := ApplyPreference(s, "match-1", PreferenceRejected, t0)
	require.NoError(t, err)

	tr, err = ApplyPreference(tr.State, "match-3", PreferenceAccepted, t0.Add(time.Second))
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, tr.State.Options[0].Status)
	assert.Equal(t, StatusExpired, tr.State.Options[1].Status)
	assert.Equal(t, StatusSelected, tr.State.Options[2].Status)
	assert.Equal(t, "match-3", tr.State.ActiveMatchID)
}

func TestApplyPreference_RejectSignalsCoach(t *testing.T) {
	s := seededThree(t)
	later := t0.Add(2 * time.Minute)

	tr, err := ApplyPreference(s, "match-1", PreferenceRejected, later)
	require.NoError(t, err)

	next := tr.State
	assert.Equal(t, StatusRejected, next.Options[0].Status)
	assert.Equal(t, PreferenceRejected, next.Options[0].PreferenceScore)
	assert.Equal(t, StatusProposed, next.Options[1].Status)
	assert.Nil(t, next.Options[1].RespondedAt)
	assert.False(t, next.MatchNeeded)
	require.NotNil(t, next.LastCoachSignalAt)
	assert.Equal(t, later, *next.LastCoachSignalAt)
	assert.True(t, tr.CoachSignal)
	assert.Equal(t, shared.CoachReasonOptionRejected, tr.CoachReason)
	assert.Empty(t, next.ActiveMatchID)
}

func TestApplyPreference_AllRejectedNeedsNewRound(t *testing.T) {
	s := seededThree(t)
	var (
		tr  Transition
		err error
	)
	for i, id := range []string{"match-1", "match-2", "match-3"} {
		tr, err = ApplyPreference(s, id, PreferenceRejected, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		s = tr.State
	}

	assert.True(t, s.MatchNeeded)
	assert.Equal(t, shared.CoachReasonAllRejected, tr.CoachReason)
	assert.Equal(t, t0.Add(2*time.Minute), *s.LastCoachSignalAt)
}

func TestApplyPreference_Errors(t *testing.T) {
	s := seededThree(t)

	_, err := ApplyPreference(s, "match-1", PreferenceNone, t0)
	assert.ErrorIs(t, err, ErrInvalidPreference)

	_, err = ApplyPreference(s, "nope", PreferenceAccepted, t0)
	assert.ErrorIs(t, err, ErrMatchOptionNotFound)
	assert.True(t, shared.IsNotFound(err))
}

func TestRejectAll_PreservesSelection(t *testing.T) {
	s := seededThree(t)
	tr, err := ApplyPreference(s, "match-2", PreferenceAccepted, t0)
	require.NoError(t, err)

	later := t0.Add(time.Hour)
	bulk := RejectAll(tr.State, later)

	assert.Equal(t, StatusSelected, bulk.State.Options[1].Status)
	assert.Equal(t, StatusRejected, bulk.State.Options[0].Status)
	assert.Equal(t, PreferenceRejected, bulk.State.Options[0].PreferenceScore)
	// respondedAt was already backfilled on expiry
	assert.Equal(t, t0, *bulk.State.Options[0].RespondedAt)
	assert.Equal(t, "match-2", bulk.State.ActiveMatchID)
	assert.False(t, bulk.State.MatchNeeded)
	assert.Equal(t, later, *bulk.State.LastCoachSignalAt)
	assert.Len(t, bulk.Rejected, 2)
}

func TestRejectAll_FromProposed(t *testing.T) {
	later := t0.Add(time.Hour)
	bulk := RejectAll(seededThree(t), later)

	assert.True(t, bulk.State.MatchNeeded)
	assert.True(t, bulk.State.AllRejected())
	for _, o := range bulk.State.Options {
		assert.Equal(t, later, *o.RespondedAt)
	}
	assert.Equal(t, shared.CoachReasonBulkRejected, bulk.CoachReason)
}

func TestRejectAll_EmptyState(t *testing.T) {
	bulk := RejectAll(DefaultState(), t0)

	assert.True(t, bulk.State.MatchNeeded)
	assert.Empty(t, bulk.State.Options)
	assert.Equal(t, t0, *bulk.State.LastCoachSignalAt)
}

func TestNormalize(t *testing.T) {
	s := State{Options: make([]Option, 5)}
	assert.Len(t, s.Normalize().Options, MaxOptions)

	assert.NotNil(t, State{}.Normalize().Options)

	loaded := State{Options: []Option{{MatchID: "m1"}}}.Normalize()
	assert.NotNil(t, loaded.Options[0].Reasons)
}

func TestApplyPreference_EmptyReasonsStayArrays(t *testing.T) {
	s := Seed([]Suggestion{{BuddyID: "buddy9", BuddyName: "A", Confidence: 71}}, SeedContext{SubjectID: "math"}, t0, sequentialIDs())
	require.NotNil(t, s.Options[0].Reasons)
	assert.Empty(t, s.Options[0].Reasons)

	tr, err := ApplyPreference(s, "match-1", PreferenceAccepted, t0)
	require.NoError(t, err)

	raw, err := json.Marshal(tr.State)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"reasons":[]`)
	assert.NotContains(t, string(raw), `"reasons":null`)

	bulk := RejectAll(State{Options: []Option{{MatchID: "m1", Reasons: []string{}, Status: StatusProposed}}}, t0)
	raw, err = json.Marshal(bulk.State)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"reasons":[]`)
}

func TestApplyPreference_SecondAcceptReplacesSelection(t *testing.T) {
	s := seededThree(t)
	tr, err := ApplyPreference(s, "match-1", PreferenceAccepted, t0)
	require.NoError(t, err)

	// match-3 was expired by the first accept but can still be chosen
	tr, err = ApplyPreference(tr.State, "match-3", PreferenceAccepted, t0.Add(time.Minute))
	require.NoError(t, err)

	selected := 0
	for _, o := range tr.State.Options {
		if o.Status == StatusSelected {
			selected++
		}
	}
	assert.Equal(t, 1, selected)
	assert.Equal(t, StatusExpired, tr.State.Options[0].Status)
	assert.Equal(t, t0, *tr.State.Options[0].RespondedAt)
	assert.Equal(t, StatusSelected, tr.State.Options[2].Status)
	assert.Equal(t, "match-3", tr.State.ActiveMatchID)
}
