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

// checkListing проверяет поля товара, общие для создания и изменения.
func checkListing(title, desc string, price int64) error {
	switch {
	case !validation.IsValidTitle(title):
		return ErrInvalidTitle
	case !validation.IsValidDescription(desc):
		return ErrInvalidDescription
	case !validation.IsDescriptionLongerThanTitle(desc, title):
		return ErrDescriptionTooShort
	case !validation.IsValidPrice(price):
		return ErrInvalidPrice
	}
	return nil
}

// CreateProduct размещает новый товар.
func (s *Service) CreateProduct(ctx context.Context, cmd CreateProductCommand) (p *model.Product, err error) {
	start := time.Now()
	defer func() { s.observe(opCreateProduct, start, err) }()

	fields := []zap.Field{zap.String("title", cmd.Title), zap.String("owner", cmd.OwnerEmail)}

	if cause := checkListing(cmd.Title, cmd.Description, cmd.Price); cause != nil {
		return nil, s.reject(opCreateProduct, KindValidation, cause, fields...)
	}

	date := cmd.Date
	if date.IsZero() {
		date = s.now()
	}
	if !validation.IsWithinListingWindow(date) {
		return nil, s.reject(opCreateProduct, KindValidation, ErrDateOutOfRange, fields...)
	}

	if cmd.OwnerEmail == "" {
		return nil, s.reject(opCreateProduct, KindValidation, ErrOwnerRequired, fields...)
	}
	if _, err := s.repo.GetUserByEmail(ctx, cmd.OwnerEmail); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, s.reject(opCreateProduct, KindNotFound, ErrOwnerNotFound, fields...)
		}
		return nil, s.storageError(opCreateProduct, err, fields...)
	}

	_, err = s.repo.GetProductByTitle(ctx, cmd.Title)
	switch {
	case err == nil:
		return nil, s.reject(opCreateProduct, KindValidation, ErrDuplicateTitle, fields...)
	case !errors.Is(err, repository.ErrProductNotFound):
		return nil, s.storageError(opCreateProduct, err, fields...)
	}

	product := model.Product{
		Title:            cmd.Title,
		Description:      cmd.Description,
		Price:            cmd.Price,
		OwnerEmail:       cmd.OwnerEmail,
		LastModifiedDate: date,
		CreatedAt:        s.now(),
	}
	product.ID, err = s.repo.CreateProduct(ctx, product)
	if err != nil {
		return nil, s.storageError(opCreateProduct, err, fields...)
	}

	s.logger.Info("product created", zap.Int64("product_id", product.ID), zap.String("title", product.Title))
	return &product, nil
}

// UpdateProduct меняет цену, название и описание товара. Цена не может уменьшаться.
func (s *Service) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (p *model.Product, err error) {
	start := time.Now()
	defer func() { s.observe(opUpdateProduct, start, err) }()

	fields := []zap.Field{zap.Int64("product_id", cmd.ID), zap.String("title", cmd.Title)}

	current, err := s.repo.GetProductByID(ctx, cmd.ID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, s.reject(opUpdateProduct, KindNotFound, ErrProductNotFound, fields...)
		}
		return nil, s.storageError(opUpdateProduct, err, fields...)
	}

	if cmd.Price < current.Price {
		return nil, s.reject(opUpdateProduct, KindBusinessRule, ErrPriceDecrease,
			append(fields, zap.Int64("current_price", current.Price), zap.Int64("new_price", cmd.Price))...)
	}

	if cause := checkListing(cmd.Title, cmd.Description, cmd.Price); cause != nil {
		return nil, s.reject(opUpdateProduct, KindValidation, cause, fields...)
	}

	other, err := s.repo.GetProductByTitle(ctx, cmd.Title)
	switch {
	case err == nil && other.ID != cmd.ID:
		return nil, s.reject(opUpdateProduct, KindValidation, ErrDuplicateTitle, fields...)
	case err != nil && !errors.Is(err, repository.ErrProductNotFound):
		return nil, s.storageError(opUpdateProduct, err, fields...)
	}

	changes := model.ProductChanges{
		Title:            cmd.Title,
		Description:      cmd.Description,
		Price:            cmd.Price,
		LastModifiedDate: s.now(),
	}
	if err := s.repo.UpdateProduct(ctx, cmd.ID, changes); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, s.reject(opUpdateProduct, KindNotFound, ErrProductNotFound, fields...)
		}
		return nil, s.storageError(opUpdateProduct, err, fields...)
	}

	updated := *current
	updated.Title = changes.Title
	updated.Description = changes.Description
	updated.Price = changes.Price
	updated.LastModifiedDate = changes.LastModifiedDate

	s.logger.Info("product updated", zap.Int64("product_id", cmd.ID))
	return &updated, nil
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, &Error{Kind: KindNotFound, Cause: ErrProductNotFound}
		}
		return nil, s.storageError("get_product", err, zap.Int64("product_id", id))
	}
	return p, nil
}

// ListProductsByOwner возвращает товары продавца.
func (s *Service) ListProductsByOwner(ctx context.Context, email string) ([]model.Product, error) {
	products, err := s.repo.ListProductsByOwner(ctx, email)
	if err != nil {
		return nil, s.storageError("list_products", err, zap.String("owner", email))
	}
	return products, nil
}
