package matching

import "context"

// StateRepository - хранилище состояния подбора, по одному документу на подопечного.
//
// Load не возвращает ошибку для отсутствующего или повреждённого документа:
// вместо него отдаётся DefaultState(). Ошибка означает только сбой хранилища.
type StateRepository interface {
	// Load загружает состояние (не больше MaxOptions вариантов).
	Load(ctx context.Context, supporteeID string) (State, error)

	// Save перезаписывает состояние целиком.
	Save(ctx context.Context, supporteeID string, state State) error

	// Clear удаляет состояние; следующий Load вернёт DefaultState().
	Clear(ctx context.Context, supporteeID string) error
}
