package list_free_slots

import "errors"

var (
	// ErrStaffNotFound возвращается, когда мастер не найден или неактивен
	ErrStaffNotFound = errors.New("list_free_slots: staff not found")

	// ErrDateInPast возвращается, когда запрошенная дата уже прошла
	ErrDateInPast = errors.New("list_free_slots: date is in the past")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("list_free_slots: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("list_free_slots: internal error")
)
