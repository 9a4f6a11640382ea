// Package matching содержит подбор напарника (buddy) для подопечного:
// варианты подбора, их статусы и переходы между ними.
//
// Формат State/Option совпадает с сохранённым JSON-документом и должен
// переживать round-trip без изменений.
package matching

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
)

// MaxOptions - у подопечного одновременно не больше трёх вариантов.
const MaxOptions = 3

// InitialsPlaceholder дополняет инициалы до двух символов.
const InitialsPlaceholder = "•"

// Ошибки домена.
var (
	ErrMatchOptionNotFound = shared.ErrMatchOptionNotFound
	ErrInvalidPreference   = shared.ErrInvalidPreference
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Status - статус варианта подбора.
type Status string

const (
	// StatusProposed - предложен, ждёт ответа.
	StatusProposed Status = "proposed"

	// StatusSelected - подопечный выбрал этого напарника.
	StatusSelected Status = "selected"

	// StatusRejected - подопечный отказался.
	StatusRejected Status = "rejected"

	// StatusExpired - снят, потому что выбран другой вариант.
	StatusExpired Status = "expired"
)

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	switch s {
	case StatusProposed, StatusSelected, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// Preference - ответ подопечного: 0 нет ответа, 1 принял, -1 отклонил.
type Preference int

const (
	PreferenceRejected Preference = -1
	PreferenceNone     Preference = 0
	PreferenceAccepted Preference = 1
)

// IsResponse возвращает true для ±1.
func (p Preference) IsResponse() bool {
	return p == PreferenceAccepted || p == PreferenceRejected
}

// Suggestion - кандидат от сервиса подбора. Не сохраняется, используется один раз.
type Suggestion struct {
	BuddyID    string `json:"buddyId"`
	BuddyName  string `json:"buddyName"`
	Confidence int    `json:"confidence"`
	Reason     string `json:"reason"`
}

// ══════════════════════════════════════════════════════════════════════════════
// OPTION & STATE
// ══════════════════════════════════════════════════════════════════════════════

// Option - вариант подбора, который видит подопечный.
type Option struct {
	MatchID         string     `json:"matchId"`
	BuddyID         string     `json:"buddyId"`
	BuddyName       string     `json:"buddyName"`
	ClassLevel      string     `json:"classLevel"`
	SubjectID       string     `json:"subjectId"`
	SubjectLabel    string     `json:"subjectLabel"`
	Reasons         []string   `json:"reasons"`
	SharedTraits    []string   `json:"sharedTraits,omitempty"`
	Confidence      int        `json:"confidence,omitempty"`
	ProfileInitials string     `json:"profileInitials"`
	PreferenceScore Preference `json:"preferenceScore"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	RespondedAt     *time.Time `json:"respondedAt,omitempty"`
}

// State - всё сохранённое состояние подбора одного подопечного.
type State struct {
	Options           []Option   `json:"options"`
	MatchNeeded       bool       `json:"matchNeeded"`
	ActiveMatchID     string     `json:"activeMatchId,omitempty"`
	LastCoachSignalAt *time.Time `json:"lastCoachSignalAt,omitempty"`
}

// NewID генерирует идентификатор варианта подбора.
func NewID() string {
	return uuid.NewString()
}

// DefaultState - состояние "ничего не сохранено".
func DefaultState() State {
	return State{Options: []Option{}}
}

// Clone возвращает глубокую копию состояния.
func (s State) Clone() State {
	out := State{
		Options:       make([]Option, len(s.Options)),
		MatchNeeded:   s.MatchNeeded,
		ActiveMatchID: s.ActiveMatchID,
	}
	for i, o := range s.Options {
		out.Options[i] = o.clone()
	}
	if s.LastCoachSignalAt != nil {
		t := *s.LastCoachSignalAt
		out.LastCoachSignalAt = &t
	}
	return out
}

func (o Option) clone() Option {
	o.Reasons = append(make([]string, 0, len(o.Reasons)), o.Reasons...)
	if o.SharedTraits != nil {
		o.SharedTraits = append([]string(nil), o.SharedTraits...)
	}
	if o.RespondedAt != nil {
		t := *o.RespondedAt
		o.RespondedAt = &t
	}
	return o
}

// Option находит вариант по matchID.
func (s State) Option(matchID string) (Option, bool) {
	for _, o := range s.Options {
		if o.MatchID == matchID {
			return o, true
		}
	}
	return Option{}, false
}

// AllRejected - true, если варианты есть и все отклонены.
func (s State) AllRejected() bool {
	if len(s.Options) == 0 {
		return false
	}
	for _, o := range s.Options {
		if o.Status != StatusRejected {
			return false
		}
	}
	return true
}

// Normalize приводит загруженное состояние к инварианту: не больше MaxOptions
// вариантов, Options и Reasons не nil.
func (s State) Normalize() State {
	if len(s.Options) > MaxOptions {
		s.Options = s.Options[:MaxOptions]
	}
	return s.WithReasons()
}

// WithReasons возвращает копию, в которой Options и Reasons каждого варианта
// не nil: в JSON они всегда массивы.
func (s State) WithReasons() State {
	options := make([]Option, len(s.Options))
	for i, o := range s.Options {
		if o.Reasons == nil {
			o.Reasons = []string{}
		}
		options[i] = o
	}
	s.Options = options
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// INITIALS
// ══════════════════════════════════════════════════════════════════════════════

// Initials строит два символа для аватара: первые буквы первых двух слов имени,
// в верхнем регистре, дополненные InitialsPlaceholder.
func Initials(name string) string {
	var b strings.Builder
	count := 0
	for _, word := range strings.Split(name, " ") {
		if count == 2 {
			break
		}
		r, size := utf8.DecodeRuneInString(word)
		if size == 0 {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		count++
	}
	for ; count < 2; count++ {
		b.WriteString(InitialsPlaceholder)
	}
	return b.String()
}
