// Package repository содержит реализации хранилища пользователей, товаров и покупок.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/qbay-marketplace/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	userColumns    = `email, username, password_hash, balance, shipping_addr, postal_code, created_at`
	productColumns = `id, title, description, price, owner_email, last_modified_date, created_at`
	txColumns      = `id, price, buyer, seller, product_id, status, created_at`
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет чтение при обрыве соединения. Записи не повторяются:
// конфликт при записи возвращается вызывающему как ErrConflict.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isConnectionError(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// mapWriteError переводит ошибки ограничений и сериализации PostgreSQL в ErrConflict.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation,
			pgerrcode.ForeignKeyViolation,
			pgerrcode.SerializationFailure,
			pgerrcode.DeadlockDetected:
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.Email, &u.Username, &u.PasswordHash, &u.Balance,
		&u.ShippingAddr, &u.PostalCode, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price,
		&p.OwnerEmail, &p.LastModifiedDate, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateUser сохраняет нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.Email, u.Username, u.PasswordHash, u.Balance, u.ShippingAddr, u.PostalCode, u.CreatedAt,
	)
	if err != nil {
		return mapWriteError("create user", err)
	}
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u *model.User
	err := r.withRetry(ctx, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// FindUserByUsername возвращает первого по времени регистрации пользователя с указанным именем.
// Имя пользователя не уникально.
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u *model.User
	err := r.withRetry(ctx, func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE username = $1 ORDER BY created_at, email LIMIT 1`,
			username))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

// FindUsersByCredentials возвращает всех пользователей с совпадающей парой email и хеша пароля.
func (r *PostgresRepository) FindUsersByCredentials(ctx context.Context, email string, passwordHash []byte) ([]model.User, error) {
	var users []model.User
	err := r.withRetry(ctx, func() error {
		users = nil
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1 AND password_hash = $2`,
			email, passwordHash)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			users = append(users, *u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("find users by credentials: %w", err)
	}
	return users, nil
}

// UpdateUserProfile заменяет имя, адрес доставки и почтовый индекс пользователя одной записью.
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, email string, p model.Profile) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE users SET username = $2, shipping_addr = $3, postal_code = $4 WHERE email = $1`,
		email, p.Username, p.ShippingAddr, p.PostalCode,
	)
	if err != nil {
		return mapWriteError("update profile", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CreateProduct сохраняет товар и возвращает присвоенный идентификатор.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (title, description, price, owner_email, last_modified_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Title, p.Description, p.Price, p.OwnerEmail, p.LastModifiedDate, p.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError("create product", err)
	}
	return id, nil
}

// GetProductByID возвращает товар по идентификатору.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetProductByTitle возвращает товар по названию.
func (r *PostgresRepository) GetProductByTitle(ctx context.Context, title string) (*model.Product, error) {
	return r.getProduct(ctx, `SELECT `+productColumns+` FROM products WHERE title = $1`, title)
}

func (r *PostgresRepository) getProduct(ctx context.Context, query string, arg any) (*model.Product, error) {
	var p *model.Product
	err := r.withRetry(ctx, func() error {
		var err error
		p, err = scanProduct(r.pool.QueryRow(ctx, query, arg))
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListProductsByOwner возвращает товары продавца, новые первыми.
func (r *PostgresRepository) ListProductsByOwner(ctx context.Context, ownerEmail string) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE owner_email = $1 ORDER BY created_at DESC, id DESC`,
		ownerEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var res []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateProduct заменяет название, описание, цену и дату изменения товара одной записью.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, c model.ProductChanges) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products SET title = $2, description = $3, price = $4, last_modified_date = $5 WHERE id = $1`,
		id, c.Title, c.Description, c.Price, c.LastModifiedDate,
	)
	if err != nil {
		return mapWriteError("update product", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// CreateTransaction сохраняет покупку. При transfer списывает цену с баланса покупателя
// и зачисляет продавцу в той же транзакции БД; строка покупателя блокируется, чтобы
// параллельные покупки не увели баланс в минус.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, t model.Transaction, transfer bool) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if transfer {
		var balance int64
		err = tx.QueryRow(ctx, `SELECT balance FROM users WHERE email = $1 FOR UPDATE`, t.Buyer).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, ErrUserNotFound
			}
			return 0, mapWriteError("lock buyer for update", err)
		}

		if balance < t.Price {
			return 0, ErrInsufficientBalance
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET balance = balance - $2 WHERE email = $1`, t.Buyer, t.Price); err != nil {
			return 0, mapWriteError("debit buyer", err)
		}

		cmdTag, err := tx.Exec(ctx, `UPDATE users SET balance = balance + $2 WHERE email = $1`, t.Seller, t.Price)
		if err != nil {
			return 0, mapWriteError("credit seller", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return 0, ErrUserNotFound
		}
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (price, buyer, seller, product_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		t.Price, t.Buyer, t.Seller, t.ProductID, t.Status, t.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapWriteError("insert transaction", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, mapWriteError("commit tx", err)
	}

	return id, nil
}

// GetTransactionsByUser возвращает покупки и продажи пользователя, новые первыми.
func (r *PostgresRepository) GetTransactionsByUser(ctx context.Context, email string) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txColumns+`
		 FROM transactions
		 WHERE buyer = $1 OR seller = $1
		 ORDER BY created_at DESC, id DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.Price, &t.Buyer, &t.Seller, &t.ProductID, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
