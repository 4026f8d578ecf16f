package directoryservice

import "errors"

var (
	// ErrStaffNotFound возвращается, когда мастер не найден в справочнике
	ErrStaffNotFound = errors.New("directoryservice: staff not found")

	// ErrCustomerNotFound возвращается, когда клиент не найден в справочнике
	ErrCustomerNotFound = errors.New("directoryservice: customer not found")

	// ErrInvalidResponse возвращается при некорректном ответе DirectoryService
	ErrInvalidResponse = errors.New("directoryservice: invalid response")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("directoryservice: internal error")
)
