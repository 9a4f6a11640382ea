// Package support содержит запрос помощи подопечного (supportee) и его жизненный цикл.
package support

import (
	"context"
	"strings"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/catalog"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// HelpType определяет вид помощи.
type HelpType string

const (
	// HelpTypeExplain - объяснить тему.
	HelpTypeExplain HelpType = "explain"

	// HelpTypePractice - потренироваться вместе.
	HelpTypePractice HelpType = "practice"

	// HelpTypeHomework - помощь с домашним заданием.
	HelpTypeHomework HelpType = "homework"

	// HelpTypeExamPrep - подготовка к контрольной.
	HelpTypeExamPrep HelpType = "exam_prep"
)

// IsValid проверяет корректность вида помощи.
func (h HelpType) IsValid() bool {
	switch h {
	case HelpTypeExplain, HelpTypePractice, HelpTypeHomework, HelpTypeExamPrep:
		return true
	default:
		return false
	}
}

// Status определяет статус запроса помощи.
type Status string

const (
	// StatusPending - ждём подбора напарника.
	StatusPending Status = "pending"

	// StatusMatched - напарник выбран.
	StatusMatched Status = "matched"

	// StatusCancelled - отменён.
	StatusCancelled Status = "cancelled"

	// StatusCompleted - помощь оказана.
	StatusCompleted Status = "completed"
)

// IsClosed возвращает true для финальных статусов.
func (s Status) IsClosed() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// AvailabilityBlock - окно, когда подопечный свободен.
type AvailabilityBlock struct {
	Day  string `json:"day"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate проверяет день недели и что From раньше To.
func (a AvailabilityBlock) Validate() error {
	if !catalog.IsDay(a.Day) {
		return ErrInvalidAvailability
	}
	from, err := timeutil.ParseClock(a.From)
	if err != nil {
		return shared.WrapError("support", "Validate", shared.ErrInvalidInput, "invalid availability start", err)
	}
	to, err := timeutil.ParseClock(a.To)
	if err != nil {
		return shared.WrapError("support", "Validate", shared.ErrInvalidInput, "invalid availability end", err)
	}
	if to <= from {
		return ErrInvalidAvailability
	}
	return nil
}

// Шкала настроения 0-4.
const (
	MinMood = 0
	MaxMood = 4

	// DefaultLowMoodThreshold - настроение ниже порога считается низким.
	DefaultLowMoodThreshold = 2
)

// Ошибки домена (алиасы общих ошибок для удобства).
var (
	ErrHelpRequestNotFound  = shared.ErrHelpRequestNotFound
	ErrUnknownSubject       = shared.ErrUnknownSubject
	ErrInvalidHelpType      = shared.ErrInvalidHelpType
	ErrInvalidMood          = shared.ErrInvalidMood
	ErrMoodConflict         = shared.ErrMoodConflict
	ErrInvalidAvailability  = shared.ErrInvalidAvailability
	ErrEmptySupporteeID     = shared.ErrEmptySupporteeID
	ErrInvalidRequestStatus = shared.ErrInvalidRequestStatus
)

// ══════════════════════════════════════════════════════════════════════════════
// HELP REQUEST
// ══════════════════════════════════════════════════════════════════════════════

// HelpRequest - запрос помощи от подопечного.
//
// Mood == nil && !MoodSkipped означает "ещё не ответил", что отличается от
// явного пропуска (MoodSkipped == true).
type HelpRequest struct {
	// ID - уникальный идентификатор запроса (UUID).
	ID string `json:"id"`

	// SupporteeID - кто просит помощь.
	SupporteeID string `json:"supporteeId"`

	// SubjectID - предмет из каталога.
	SubjectID string `json:"subjectId"`

	// Topic - тема своими словами.
	Topic string `json:"topic"`

	// HelpType - вид помощи.
	HelpType HelpType `json:"helpType"`

	// Availability - когда подопечный свободен.
	Availability []AvailabilityBlock `json:"availability"`

	// Mood - самооценка настроения 0-4 (nil если не ответил или пропустил).
	Mood *int `json:"mood"`

	// MoodSkipped - подопечный явно пропустил вопрос о настроении.
	MoodSkipped bool `json:"moodSkipped"`

	// DesiredBuddyID - пожелание по напарнику (опционально).
	DesiredBuddyID string `json:"desiredBuddyId,omitempty"`

	// Status - текущий статус.
	Status Status `json:"status"`

	// MatchedBuddyID - выбранный напарник.
	MatchedBuddyID string `json:"matchedBuddyId,omitempty"`

	// CoachAlert - выставляется при низком настроении.
	CoachAlert bool `json:"coachAlert"`

	// CreatedAt - когда создан запрос.
	CreatedAt time.Time `json:"createdAt"`
}

// NewHelpRequestParams параметры для создания запроса.
type NewHelpRequestParams struct {
	ID               string
	SupporteeID      string
	SubjectID        string
	Topic            string
	HelpType         HelpType
	Availability     []AvailabilityBlock
	Mood             *int
	MoodSkipped      bool
	DesiredBuddyID   string
	LowMoodThreshold int
	CreatedAt        time.Time
}

// NewHelpRequest создаёт и валидирует запрос помощи.
func NewHelpRequest(p NewHelpRequestParams) (*HelpRequest, error) {
	if strings.TrimSpace(p.SupporteeID) == "" {
		return nil, ErrEmptySupporteeID
	}
	if _, ok := catalog.SubjectByID(p.SubjectID); !ok {
		return nil, ErrUnknownSubject
	}
	if !p.HelpType.IsValid() {
		return nil, ErrInvalidHelpType
	}
	if p.Mood != nil {
		if p.MoodSkipped {
			return nil, ErrMoodConflict
		}
		if *p.Mood < MinMood || *p.Mood > MaxMood {
			return nil, ErrInvalidMood
		}
	}
	for _, block := range p.Availability {
		if err := block.Validate(); err != nil {
			return nil, err
		}
	}

	threshold := p.LowMoodThreshold
	if threshold <= 0 {
		threshold = DefaultLowMoodThreshold
	}

	r := &HelpRequest{
		ID:             p.ID,
		SupporteeID:    p.SupporteeID,
		SubjectID:      p.SubjectID,
		Topic:          strings.TrimSpace(p.Topic),
		HelpType:       p.HelpType,
		Availability:   append([]AvailabilityBlock{}, p.Availability...),
		MoodSkipped:    p.MoodSkipped,
		DesiredBuddyID: p.DesiredBuddyID,
		Status:         StatusPending,
		CreatedAt:      p.CreatedAt,
	}
	if p.Mood != nil {
		mood := *p.Mood
		r.Mood = &mood
	}
	r.CoachAlert = r.IsLowMood(threshold)

	return r, nil
}

// MoodAnswered возвращает true, если подопечный оценил настроение.
func (r *HelpRequest) MoodAnswered() bool {
	return r.Mood != nil && !r.MoodSkipped
}

// IsLowMood проверяет, что настроение отвечено и ниже порога.
func (r *HelpRequest) IsLowMood(threshold int) bool {
	return r.MoodAnswered() && *r.Mood < threshold
}

// MarkMatched фиксирует выбранного напарника.
func (r *HelpRequest) MarkMatched(buddyID string) error {
	if r.Status != StatusPending && r.Status != StatusMatched {
		return ErrInvalidRequestStatus
	}
	r.Status = StatusMatched
	r.MatchedBuddyID = buddyID
	return nil
}

// Cancel отменяет запрос.
func (r *HelpRequest) Cancel() error {
	if r.Status.IsClosed() {
		return ErrInvalidRequestStatus
	}
	r.Status = StatusCancelled
	return nil
}

// Complete закрывает запрос после проведённой сессии.
func (r *HelpRequest) Complete() error {
	if r.Status != StatusMatched {
		return ErrInvalidRequestStatus
	}
	r.Status = StatusCompleted
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository - хранилище запросов помощи.
type Repository interface {
	// Save сохраняет запрос (создание или обновление).
	Save(ctx context.Context, r *HelpRequest) error

	// FindByID возвращает запрос или ErrHelpRequestNotFound.
	FindByID(ctx context.Context, id string) (*HelpRequest, error)

	// ListBySupportee возвращает запросы подопечного, новые первыми.
	ListBySupportee(ctx context.Context, supporteeID string) ([]*HelpRequest, error)
}
