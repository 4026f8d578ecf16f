package book_appointment

import "errors"

var (
	// ErrStaffNotFound возвращается, когда мастер не найден или неактивен
	ErrStaffNotFound = errors.New("book_appointment: staff not found")

	// ErrCustomerNotFound возвращается, когда клиент не найден или неактивен
	ErrCustomerNotFound = errors.New("book_appointment: customer not found")

	// ErrDateInPast возвращается, когда дата записи уже прошла
	ErrDateInPast = errors.New("book_appointment: date is in the past")

	// ErrOutsideWorkingHours возвращается, когда интервал не попадает в рабочие часы мастера
	ErrOutsideWorkingHours = errors.New("book_appointment: requested interval is outside working hours")

	// ErrSlotConflict возвращается, когда интервал пересекается с существующей записью
	// Штатный исход конкуренции за слот: вызывающему стоит заново запросить
	// свободные слоты и повторить с другим. Движок сам повтор не делает
	ErrSlotConflict = errors.New("book_appointment: requested interval conflicts with an existing appointment")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("book_appointment: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("book_appointment: internal error")
)
