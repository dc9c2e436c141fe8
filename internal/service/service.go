// Package service реализует правила маркетплейса: регистрацию, вход, обновление профиля,
// размещение и изменение товаров и покупки.
package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/qbay-marketplace/internal/metrics"
	"github.com/mmeshcher/qbay-marketplace/internal/model"
	"github.com/mmeshcher/qbay-marketplace/internal/repository"
)

const (
	opRegister         = "register"
	opLogin            = "login"
	opUpdateProfile    = "update_profile"
	opCreateProduct    = "create_product"
	opUpdateProduct    = "update_product"
	opPurchaseProduct  = "purchase_product"
	outcomeStorageFail = "error"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, u model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	FindUsersByCredentials(ctx context.Context, email string, passwordHash []byte) ([]model.User, error)
	UpdateUserProfile(ctx context.Context, email string, p model.Profile) error
	CreateProduct(ctx context.Context, p model.Product) (int64, error)
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	GetProductByTitle(ctx context.Context, title string) (*model.Product, error)
	ListProductsByOwner(ctx context.Context, ownerEmail string) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id int64, c model.ProductChanges) error
	CreateTransaction(ctx context.Context, t model.Transaction, transfer bool) (int64, error)
	GetTransactionsByUser(ctx context.Context, email string) ([]model.Transaction, error)
}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	repo            Repository
	logger          *zap.Logger
	metrics         *metrics.Metrics
	now             func() time.Time
	transferBalance bool
}

// Option настраивает Service.
type Option func(*Service)

// WithBalanceTransfer включает перевод цены от покупателя продавцу при покупке.
// По умолчанию включено; без него покупка только фиксируется.
func WithBalanceTransfer(enabled bool) Option {
	return func(s *Service) { s.transferBalance = enabled }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт сервис поверх указанного репозитория. logger и m могут быть nil.
func NewService(repo Repository, logger *zap.Logger, m *metrics.Metrics, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		repo:            repo,
		logger:          logger,
		metrics:         m,
		now:             time.Now,
		transferBalance: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func hashPassword(email, password string) []byte {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return sum[:]
}

func (s *Service) observe(op string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = outcomeStorageFail
		if k := KindOf(err); k != 0 {
			outcome = k.String()
		}
	}
	s.metrics.RecordOperation(op, outcome, time.Since(start))
}

// reject логирует отказ по правилу и возвращает классифицированную ошибку.
func (s *Service) reject(op string, kind Kind, cause error, fields ...zap.Field) error {
	fields = append(fields,
		zap.String("operation", op),
		zap.String("kind", kind.String()),
		zap.Error(cause),
	)
	s.logger.Info("operation rejected", fields...)
	return &Error{Kind: kind, Cause: cause}
}

// storageError оборачивает ошибку хранилища. Конфликты записи становятся KindStorageConflict.
func (s *Service) storageError(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("operation", op), zap.Error(err))
	if errors.Is(err, repository.ErrConflict) {
		s.logger.Warn("storage conflict", fields...)
		return &Error{Kind: KindStorageConflict, Cause: err}
	}
	s.logger.Error("storage failure", fields...)
	return fmt.Errorf("%s: %w", op, err)
}
