package query

import (
	"github.com/alem-hub/buddy-match-hub/internal/domain/catalog"
)

// CatalogDTO - справочные данные для формы запроса помощи.
type CatalogDTO struct {
	Subjects  []catalog.Subject        `json:"subjects"`
	HelpTypes []catalog.HelpTypeOption `json:"helpTypes"`
	MoodScale []catalog.MoodLevel      `json:"moodScale"`
	Days      []string                 `json:"days"`
	Buddies   []catalog.Buddy          `json:"buddies"`
}

// GetCatalogHandler отдаёт каталог. Данные статические.
type GetCatalogHandler struct{}

// NewGetCatalogHandler создаёт обработчик.
func NewGetCatalogHandler() *GetCatalogHandler {
	return &GetCatalogHandler{}
}

// Handle возвращает копию каталога.
func (h *GetCatalogHandler) Handle() CatalogDTO {
	return CatalogDTO{
		Subjects:  catalog.Subjects(),
		HelpTypes: catalog.HelpTypes(),
		MoodScale: catalog.MoodScale(),
		Days:      catalog.Days(),
		Buddies:   catalog.Roster(),
	}
}
