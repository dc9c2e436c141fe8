// Package validation содержит функции валидации входных данных.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	minUsernameLen    = 3
	maxUsernameLen    = 20
	maxTitleLen       = 80
	minDescriptionLen = 20
	maxDescriptionLen = 2000
	minPasswordLen    = 6

	// MinPrice и MaxPrice задают границы открытого интервала допустимых цен.
	MinPrice int64 = 10
	MaxPrice int64 = 10000

	passwordSpecialChars = "!@#$%&*?"
)

var (
	emailRe      = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9._%+-]*@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	nameRe       = regexp.MustCompile(`^[\p{L}\p{N}_ ]+$`)
	postalCodeRe = regexp.MustCompile(`^[A-Za-z][0-9][A-Za-z] [0-9][A-Za-z][0-9]$`)

	// ListingWindowStart и ListingWindowEnd ограничивают дату размещения товара (включительно).
	ListingWindowStart = time.Date(2021, time.January, 2, 0, 0, 0, 0, time.UTC)
	ListingWindowEnd   = time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
)

// IsValidEmail проверяет синтаксис адреса вида local@domain.tld.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword проверяет сложность пароля: не короче 6 символов, есть заглавная
// и строчная буква, цифра и спецсимвол из набора !@#$%&*?.
func IsValidPassword(password string) bool {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return false
	}

	var upper, lower, digit, special, nonAlpha bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
		if unicode.IsDigit(r) {
			digit = true
		}
		if strings.ContainsRune(passwordSpecialChars, r) {
			special = true
		}
		if !unicode.IsLetter(r) {
			nonAlpha = true
		}
	}

	return upper && lower && digit && special && nonAlpha
}

// IsValidUsername проверяет имя пользователя: буквы, цифры, подчёркивание и пробелы,
// без пробелов по краям, длина от 3 до 20 символов.
func IsValidUsername(name string) bool {
	if !hasNameShape(name) {
		return false
	}
	n := utf8.RuneCountInString(name)
	return n >= minUsernameLen && n <= maxUsernameLen
}

// IsValidTitle проверяет название товара: те же символы, что и в имени, длина от 1 до 80.
func IsValidTitle(title string) bool {
	return hasNameShape(title) && utf8.RuneCountInString(title) <= maxTitleLen
}

func hasNameShape(s string) bool {
	return s != "" && nameRe.MatchString(s) && strings.TrimSpace(s) == s
}

// IsValidPostalCode проверяет канадский почтовый индекс вида "K7K 1J5".
func IsValidPostalCode(code string) bool {
	return postalCodeRe.MatchString(code)
}

// IsValidShippingAddress проверяет, что адрес не пуст и состоит только из букв, цифр и пробелов.
func IsValidShippingAddress(addr string) bool {
	if addr == "" {
		return false
	}
	for _, r := range addr {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// IsValidDescription проверяет длину описания товара: от 20 до 2000 символов включительно.
func IsValidDescription(desc string) bool {
	n := utf8.RuneCountInString(desc)
	return n >= minDescriptionLen && n <= maxDescriptionLen
}

// IsDescriptionLongerThanTitle сообщает, что описание строго длиннее названия.
func IsDescriptionLongerThanTitle(desc, title string) bool {
	return utf8.RuneCountInString(desc) > utf8.RuneCountInString(title)
}

// IsValidPrice проверяет, что цена лежит строго внутри интервала (10, 10000).
func IsValidPrice(price int64) bool {
	return price > MinPrice && price < MaxPrice
}

// IsWithinListingWindow проверяет, что дата попадает в окно [2021-01-02, 2025-01-02].
func IsWithinListingWindow(t time.Time) bool {
	return !t.Before(ListingWindowStart) && !t.After(ListingWindowEnd)
}
