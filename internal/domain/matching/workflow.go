package matching

import (
	"strings"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/catalog"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEEDING
// Превращает кандидатов от сервиса подбора в сохраняемые варианты.
// ══════════════════════════════════════════════════════════════════════════════

// SeedContext - контекст подбора.
type SeedContext struct {
	// SubjectID - предмет запроса.
	SubjectID string

	// SubjectLabel - подпись предмета, если его нет в каталоге.
	SubjectLabel string

	// SharedTraits - общие черты, добавляются в начало причин.
	SharedTraits []string

	// ClassLevels - пул уровней классов (по кругу). Пустой = пул по умолчанию.
	ClassLevels []string
}

// Seed строит состояние из кандидатов. Пустой список кандидатов означает
// "никого не нашли": {options: [], matchNeeded: true}.
func Seed(suggestions []Suggestion, sc SeedContext, now time.Time, newID func() string) State {
	if len(suggestions) == 0 {
		return State{Options: []Option{}, MatchNeeded: true}
	}

	pool := sc.ClassLevels
	if len(pool) == 0 {
		pool = catalog.DefaultClassLevels()
	}
	label := catalog.SubjectLabel(sc.SubjectID, sc.SubjectLabel)

	n := len(suggestions)
	if n > MaxOptions {
		n = MaxOptions
	}

	options := make([]Option, 0, n)
	for i := 0; i < n; i++ {
		s := suggestions[i]

		reasons := make([]string, 0, len(sc.SharedTraits)+1)
		for _, r := range append(append([]string{}, sc.SharedTraits...), s.Reason) {
			if strings.TrimSpace(r) != "" {
				reasons = append(reasons, r)
			}
		}

		var traits []string
		if len(sc.SharedTraits) > 0 {
			traits = append([]string(nil), sc.SharedTraits...)
		}

		options = append(options, Option{
			MatchID:         newID(),
			BuddyID:         s.BuddyID,
			BuddyName:       s.BuddyName,
			ClassLevel:      pool[i%len(pool)],
			SubjectID:       sc.SubjectID,
			SubjectLabel:    label,
			Reasons:         reasons,
			SharedTraits:    traits,
			Confidence:      s.Confidence,
			ProfileInitials: Initials(s.BuddyName),
			PreferenceScore: PreferenceNone,
			Status:          StatusProposed,
			CreatedAt:       now,
		})
	}

	return State{Options: options, MatchNeeded: false}
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Transition - результат перехода: новое состояние и что произошло.
type Transition struct {
	// State - новое состояние (уже с пересчитанными matchNeeded/activeMatchId).
	State State

	// Selected - выбранный вариант (только при принятии).
	Selected *Option

	// Rejected - варианты, отклонённые этим переходом.
	Rejected []Option

	// CoachSignal - true, если lastCoachSignalAt обновлён.
	CoachSignal bool

	// CoachReason - причина сигнала коучу.
	CoachReason string
}

// ApplyPreference применяет ответ подопечного (+1 / -1) к одному варианту.
//
// Принятие: вариант становится selected, остальные proposed и ранее
// выбранные - expired. Выбранный вариант всегда один.
// Отклонение: меняется только этот вариант, коуч получает сигнал.
// После этого matchNeeded = все варианты отклонены.
func ApplyPreference(state State, matchID string, pref Preference, now time.Time) (Transition, error) {
	if !pref.IsResponse() {
		return Transition{}, ErrInvalidPreference
	}

	next := state.Clone()
	idx := -1
	for i := range next.Options {
		if next.Options[i].MatchID == matchID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Transition{}, ErrMatchOptionNotFound
	}

	tr := Transition{}
	target := &next.Options[idx]
	target.PreferenceScore = pref
	target.RespondedAt = timePtr(now)

	if pref == PreferenceAccepted {
		target.Status = StatusSelected
		for i := range next.Options {
			if i == idx {
				continue
			}
			if st := next.Options[i].Status; st != StatusProposed && st != StatusSelected {
				continue
			}
			next.Options[i].Status = StatusExpired
			if next.Options[i].RespondedAt == nil {
				next.Options[i].RespondedAt = timePtr(now)
			}
		}
		selected := *target
		tr.Selected = &selected
	} else {
		target.Status = StatusRejected
		tr.Rejected = []Option{*target}
		tr.CoachSignal = true
		tr.CoachReason = shared.CoachReasonOptionRejected
	}

	next.MatchNeeded = next.AllRejected()
	if next.MatchNeeded {
		tr.CoachSignal = true
		tr.CoachReason = shared.CoachReasonAllRejected
	}
	if tr.CoachSignal {
		next.LastCoachSignalAt = timePtr(now)
	}
	next.ActiveMatchID = activeMatchID(next.Options)

	tr.State = next
	return tr, nil
}

// RejectAll отклоняет все варианты, кроме уже выбранного ("никто не подходит").
// Всегда поднимает сигнал коучу. matchNeeded = нет выбранного варианта.
func RejectAll(state State, now time.Time) Transition {
	next := state.Clone()
	tr := Transition{CoachSignal: true, CoachReason: shared.CoachReasonBulkRejected}

	hasSelected := false
	for i := range next.Options {
		o := &next.Options[i]
		if o.Status == StatusSelected {
			hasSelected = true
			continue
		}
		o.Status = StatusRejected
		o.PreferenceScore = PreferenceRejected
		if o.RespondedAt == nil {
			o.RespondedAt = timePtr(now)
		}
		tr.Rejected = append(tr.Rejected, *o)
	}

	next.MatchNeeded = !hasSelected
	next.LastCoachSignalAt = timePtr(now)
	next.ActiveMatchID = activeMatchID(next.Options)

	tr.State = next
	return tr
}

// activeMatchID - id выбранного варианта. Если выбранных несколько,
// берём последний по времени ответа.
func activeMatchID(options []Option) string {
	var active *Option
	for i := range options {
		o := &options[i]
		if o.Status != StatusSelected {
			continue
		}
		if active == nil || respondedAfter(o, active) {
			active = o
		}
	}
	if active == nil {
		return ""
	}
	return active.MatchID
}

func respondedAfter(a, b *Option) bool {
	if a.RespondedAt == nil {
		return false
	}
	if b.RespondedAt == nil {
		return true
	}
	return a.RespondedAt.After(*b.RespondedAt)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
