package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/qbay-marketplace/internal/model"
	"github.com/mmeshcher/qbay-marketplace/internal/repository"
)

// PurchaseProduct оформляет покупку товара с указанным названием.
// Покупка своего товара запрещена при любом балансе.
func (s *Service) PurchaseProduct(ctx context.Context, title, buyerEmail string) (t *model.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe(opPurchaseProduct, start, err) }()

	fields := []zap.Field{zap.String("title", title), zap.String("buyer", buyerEmail)}

	product, err := s.repo.GetProductByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, s.reject(opPurchaseProduct, KindNotFound, ErrProductNotFound, fields...)
		}
		return nil, s.storageError(opPurchaseProduct, err, fields...)
	}

	buyer, err := s.repo.GetUserByEmail(ctx, buyerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, s.reject(opPurchaseProduct, KindNotFound, ErrUserNotFound, fields...)
		}
		return nil, s.storageError(opPurchaseProduct, err, fields...)
	}

	if buyer.Email == product.OwnerEmail {
		return nil, s.reject(opPurchaseProduct, KindBusinessRule, ErrSelfPurchase, fields...)
	}
	if buyer.Balance < product.Price {
		return nil, s.reject(opPurchaseProduct, KindBusinessRule, ErrInsufficientBalance,
			append(fields, zap.Int64("balance", buyer.Balance), zap.Int64("price", product.Price))...)
	}

	tx := model.Transaction{
		Price:     product.Price,
		Buyer:     buyer.Email,
		Seller:    product.OwnerEmail,
		ProductID: product.ID,
		Status:    "",
		CreatedAt: s.now(),
	}
	tx.ID, err = s.repo.CreateTransaction(ctx, tx, s.transferBalance)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance):
			return nil, s.reject(opPurchaseProduct, KindBusinessRule, ErrInsufficientBalance, fields...)
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, s.reject(opPurchaseProduct, KindNotFound, ErrUserNotFound, fields...)
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, s.reject(opPurchaseProduct, KindNotFound, ErrProductNotFound, fields...)
		}
		return nil, s.storageError(opPurchaseProduct, err, fields...)
	}

	s.metrics.RecordPurchase(tx.Price)
	s.logger.Info("product purchased",
		zap.Int64("transaction_id", tx.ID),
		zap.Int64("product_id", tx.ProductID),
		zap.String("buyer", tx.Buyer),
		zap.String("seller", tx.Seller),
		zap.Int64("price", tx.Price),
		zap.Bool("balance_transferred", s.transferBalance),
	)
	return &tx, nil
}

// ListTransactions возвращает покупки и продажи пользователя.
func (s *Service) ListTransactions(ctx context.Context, email string) ([]model.Transaction, error) {
	txs, err := s.repo.GetTransactionsByUser(ctx, email)
	if err != nil {
		return nil, s.storageError("list_transactions", err, zap.String("email", email))
	}
	return txs, nil
}
