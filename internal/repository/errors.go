package repository

import "errors"

var (
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrProductNotFound возвращается, если товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrConflict возвращается, когда запись нарушает ограничение уникальности
	// или транзакция не может быть зафиксирована из-за конкурентной записи.
	ErrConflict = errors.New("storage conflict")
	// ErrInsufficientBalance возвращается, если при списании баланс покупателя меньше цены.
	ErrInsufficientBalance = errors.New("insufficient balance")
)
