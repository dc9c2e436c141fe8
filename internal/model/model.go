// Package model содержит доменные сущности маркетплейса.
package model

import "time"

// InitialBalance задаёт баланс, который получает пользователь при регистрации.
const InitialBalance int64 = 100

// User представляет зарегистрированного покупателя или продавца.
// Email является уникальным ключом и не меняется после создания.
type User struct {
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	Balance      int64     `json:"balance"`
	ShippingAddr string    `json:"shipping_addr"`
	PostalCode   string    `json:"postal_code"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile содержит изменяемую часть пользователя, обновляется только целиком.
type Profile struct {
	Username     string
	ShippingAddr string
	PostalCode   string
}

// Product описывает товар, выставленный на продажу.
type Product struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Price            int64     `json:"price"`
	OwnerEmail       string    `json:"owner_email"`
	LastModifiedDate time.Time `json:"last_modified_date"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProductChanges содержит поля товара, которые меняются одной операцией обновления.
type ProductChanges struct {
	Title            string
	Description      string
	Price            int64
	LastModifiedDate time.Time
}

// Transaction фиксирует факт покупки товара.
type Transaction struct {
	ID        int64     `json:"id"`
	Price     int64     `json:"price"`
	Buyer     string    `json:"buyer"`
	Seller    string    `json:"seller"`
	ProductID int64     `json:"product_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
