package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/qbay-marketplace/internal/model"
	"github.com/mmeshcher/qbay-marketplace/internal/repository"
	"github.com/mmeshcher/qbay-marketplace/internal/validation"
)

// Register регистрирует нового пользователя с балансом 100 и пустыми адресом и индексом.
// Правила проверяются по порядку, первое нарушенное прерывает операцию.
func (s *Service) Register(ctx context.Context, name, email, password string) (err error) {
	start := time.Now()
	defer func() { s.observe(opRegister, start, err) }()

	field := zap.String("email", email)

	if email == "" || password == "" {
		return s.reject(opRegister, KindValidation, ErrEmptyCredentials, field)
	}

	_, err = s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return s.reject(opRegister, KindValidation, ErrDuplicateEmail, field)
	case !errors.Is(err, repository.ErrUserNotFound):
		return s.storageError(opRegister, err, field)
	}

	if !validation.IsValidEmail(email) {
		return s.reject(opRegister, KindValidation, ErrInvalidEmail, field)
	}
	if !validation.IsValidPassword(password) {
		return s.reject(opRegister, KindValidation, ErrWeakPassword, field)
	}
	if !validation.IsValidUsername(name) {
		return s.reject(opRegister, KindValidation, ErrInvalidUsername, field)
	}

	u := model.User{
		Email:        email,
		Username:     name,
		PasswordHash: hashPassword(email, password),
		Balance:      model.InitialBalance,
		ShippingAddr: "",
		PostalCode:   "",
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return s.storageError(opRegister, err, field)
	}

	s.metrics.RecordRegistration()
	s.logger.Info("user registered", field)
	return nil
}

// Login возвращает пользователя с точно совпадающими email и паролем.
// Некорректные входные данные дают KindValidation, отсутствие совпадения даёт KindNotFound.
func (s *Service) Login(ctx context.Context, email, password string) (u *model.User, err error) {
	start := time.Now()
	defer func() { s.observe(opLogin, start, err) }()

	field := zap.String("email", email)

	if email == "" || !validation.IsValidEmail(email) ||
		password == "" || !validation.IsValidPassword(password) {
		return nil, s.reject(opLogin, KindValidation, ErrInvalidCredentials, field)
	}

	users, err := s.repo.FindUsersByCredentials(ctx, email, hashPassword(email, password))
	if err != nil {
		return nil, s.storageError(opLogin, err, field)
	}
	if len(users) != 1 {
		return nil, s.reject(opLogin, KindNotFound, ErrUserNotFound, field)
	}

	return &users[0], nil
}

// UpdateProfile заменяет имя, адрес доставки и почтовый индекс пользователя одной записью.
func (s *Service) UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (err error) {
	start := time.Now()
	defer func() { s.observe(opUpdateProfile, start, err) }()

	fields := []zap.Field{zap.String("email", cmd.Email), zap.String("username", cmd.CurrentUsername)}

	var user *model.User
	switch {
	case cmd.Email != "":
		user, err = s.repo.GetUserByEmail(ctx, cmd.Email)
	case cmd.CurrentUsername != "":
		user, err = s.repo.FindUserByUsername(ctx, cmd.CurrentUsername)
	default:
		err = repository.ErrUserNotFound
	}
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return s.storageError(opUpdateProfile, err, fields...)
	}

	if !validation.IsValidShippingAddress(cmd.NewShippingAddress) {
		return s.reject(opUpdateProfile, KindValidation, ErrInvalidShippingAddress, fields...)
	}
	if !validation.IsValidPostalCode(cmd.NewPostalCode) {
		return s.reject(opUpdateProfile, KindValidation, ErrInvalidPostalCode, fields...)
	}
	if !validation.IsValidUsername(cmd.NewUsername) {
		return s.reject(opUpdateProfile, KindValidation, ErrInvalidUsername, fields...)
	}
	if user == nil {
		return s.reject(opUpdateProfile, KindNotFound, ErrUserNotFound, fields...)
	}

	err = s.repo.UpdateUserProfile(ctx, user.Email, model.Profile{
		Username:     cmd.NewUsername,
		ShippingAddr: cmd.NewShippingAddress,
		PostalCode:   cmd.NewPostalCode,
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return s.reject(opUpdateProfile, KindNotFound, ErrUserNotFound, fields...)
		}
		return s.storageError(opUpdateProfile, err, fields...)
	}

	s.logger.Info("profile updated", zap.String("email", user.Email))
	return nil
}

// GetUser возвращает пользователя по email.
func (s *Service) GetUser(ctx context.Context, email string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, &Error{Kind: KindNotFound, Cause: ErrUserNotFound}
		}
		return nil, s.storageError("get_user", err, zap.String("email", email))
	}
	return u, nil
}
