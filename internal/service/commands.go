package service

import "time"

// UpdateProfileCommand заменяет имя, адрес доставки и почтовый индекс пользователя.
// Пользователь выбирается по Email, а при пустом Email по CurrentUsername; тогда
// из нескольких пользователей с одинаковым именем берётся зарегистрированный раньше всех.
type UpdateProfileCommand struct {
	Email           string
	CurrentUsername string

	NewUsername        string
	NewShippingAddress string
	NewPostalCode      string
}

// CreateProductCommand описывает новый товар. Нулевая Date означает текущий момент.
type CreateProductCommand struct {
	Title       string
	Description string
	Price       int64
	Date        time.Time
	OwnerEmail  string
}

// UpdateProductCommand содержит все изменяемые поля товара. Владелец и дата
// создания не меняются; дата изменения проставляется сервисом.
type UpdateProductCommand struct {
	ID          int64
	Price       int64
	Title       string
	Description string
}
