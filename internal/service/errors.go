package service

import "errors"

// Kind классифицирует отказ операции.
type Kind int

const (
	// KindValidation: нарушено правило формата, диапазона или уникальности. Ничего не записано.
	KindValidation Kind = iota + 1
	// KindNotFound: указанная сущность отсутствует.
	KindNotFound
	// KindStorageConflict: хранилище отклонило запись из-за конкурентного изменения.
	// Сервис не повторяет такие операции.
	KindStorageConflict
	// KindBusinessRule: доменный отказ: покупка своего товара, нехватка средств, снижение цены.
	KindBusinessRule
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorageConflict:
		return "storage_conflict"
	case KindBusinessRule:
		return "business_rule"
	default:
		return "unknown"
	}
}

// Error описывает классифицированную ошибку сервиса. Cause содержит одну из ошибок ниже
// (или ошибку хранилища для KindStorageConflict) и доступна через errors.Is.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// KindOf возвращает вид ошибки или 0, если err не классифицирована сервисом.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// Регистрация и вход.
var (
	ErrEmptyCredentials   = errors.New("email and password must not be empty")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet complexity requirements")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// Профиль.
var (
	ErrInvalidShippingAddress = errors.New("invalid shipping address")
	ErrInvalidPostalCode      = errors.New("invalid postal code")
)

// Товары.
var (
	ErrInvalidTitle        = errors.New("invalid product title")
	ErrInvalidDescription  = errors.New("description must be 20 to 2000 characters")
	ErrDescriptionTooShort = errors.New("description must be longer than title")
	ErrInvalidPrice        = errors.New("price must be between 10 and 10000 exclusive")
	ErrDateOutOfRange      = errors.New("date must be between 2021-01-02 and 2025-01-02")
	ErrOwnerRequired       = errors.New("owner email must not be empty")
	ErrOwnerNotFound       = errors.New("owner does not exist")
	ErrDuplicateTitle      = errors.New("product title already used")
	ErrProductNotFound     = errors.New("product not found")
	ErrPriceDecrease       = errors.New("price can only be increased")
)

// Покупки.
var (
	ErrSelfPurchase        = errors.New("cannot purchase own product")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
