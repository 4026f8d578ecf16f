package schedule

import "errors"

var (
	// ErrStaffNotFound возвращается, когда мастер не найден или неактивен
	ErrStaffNotFound = errors.New("schedule service: staff not found")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("schedule service: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("schedule service: internal error")
)
