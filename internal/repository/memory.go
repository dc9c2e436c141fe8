package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mmeshcher/qbay-marketplace/internal/model"
)

// MemoryRepository хранит данные в памяти процесса. Используется, когда DATABASE_URI
// не задан, и в тестах. Ограничения уникальности email и названия товара
// проверяются под блокировкой и нарушаются с ErrConflict, как в PostgreSQL.
type MemoryRepository struct {
	mu sync.RWMutex

	users    map[string]model.User
	userSeq  []string
	products map[int64]model.Product
	titles   map[string]int64
	txs      []model.Transaction

	nextProductID int64
	nextTxID      int64
}

// NewMemoryRepository создаёт пустое хранилище в памяти.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:         make(map[string]model.User),
		products:      make(map[int64]model.Product),
		titles:        make(map[string]int64),
		nextProductID: 1,
		nextTxID:      1,
	}
}

// Close ничего не освобождает.
func (m *MemoryRepository) Close() error { return nil }

// CreateUser сохраняет нового пользователя.
func (m *MemoryRepository) CreateUser(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Email]; ok {
		return fmt.Errorf("create user: %w: %s", ErrConflict, u.Email)
	}
	m.users[u.Email] = u
	m.userSeq = append(m.userSeq, u.Email)
	return nil
}

// GetUserByEmail возвращает пользователя по email.
func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// FindUserByUsername возвращает первого по порядку регистрации пользователя с указанным именем.
func (m *MemoryRepository) FindUserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, email := range m.userSeq {
		u := m.users[email]
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

// FindUsersByCredentials возвращает пользователей с совпадающей парой email и хеша пароля.
func (m *MemoryRepository) FindUsersByCredentials(_ context.Context, email string, passwordHash []byte) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok || !bytes.Equal(u.PasswordHash, passwordHash) {
		return nil, nil
	}
	return []model.User{u}, nil
}

// UpdateUserProfile заменяет имя, адрес доставки и почтовый индекс пользователя.
func (m *MemoryRepository) UpdateUserProfile(_ context.Context, email string, p model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[email]
	if !ok {
		return ErrUserNotFound
	}
	u.Username = p.Username
	u.ShippingAddr = p.ShippingAddr
	u.PostalCode = p.PostalCode
	m.users[email] = u
	return nil
}

// CreateProduct сохраняет товар и возвращает присвоенный идентификатор.
func (m *MemoryRepository) CreateProduct(_ context.Context, p model.Product) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.titles[p.Title]; ok {
		return 0, fmt.Errorf("create product: %w: %s", ErrConflict, p.Title)
	}
	if _, ok := m.users[p.OwnerEmail]; !ok {
		return 0, fmt.Errorf("create product: %w: unknown owner %s", ErrConflict, p.OwnerEmail)
	}

	p.ID = m.nextProductID
	m.nextProductID++
	m.products[p.ID] = p
	m.titles[p.Title] = p.ID
	return p.ID, nil
}

// GetProductByID возвращает товар по идентификатору.
func (m *MemoryRepository) GetProductByID(_ context.Context, id int64) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// GetProductByTitle возвращает товар по названию.
func (m *MemoryRepository) GetProductByTitle(_ context.Context, title string) (*model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.titles[title]
	if !ok {
		return nil, ErrProductNotFound
	}
	p := m.products[id]
	return &p, nil
}

// ListProductsByOwner возвращает товары продавца, новые первыми.
func (m *MemoryRepository) ListProductsByOwner(_ context.Context, ownerEmail string) ([]model.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Product
	for _, p := range m.products {
		if p.OwnerEmail == ownerEmail {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

// UpdateProduct заменяет название, описание, цену и дату изменения товара.
func (m *MemoryRepository) UpdateProduct(_ context.Context, id int64, c model.ProductChanges) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return ErrProductNotFound
	}
	if other, ok := m.titles[c.Title]; ok && other != id {
		return fmt.Errorf("update product: %w: %s", ErrConflict, c.Title)
	}

	delete(m.titles, p.Title)
	p.Title = c.Title
	p.Description = c.Description
	p.Price = c.Price
	p.LastModifiedDate = c.LastModifiedDate
	m.products[id] = p
	m.titles[p.Title] = id
	return nil
}

// CreateTransaction сохраняет покупку и при transfer переводит цену от покупателя продавцу.
func (m *MemoryRepository) CreateTransaction(_ context.Context, t model.Transaction, transfer bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buyer, ok := m.users[t.Buyer]
	if !ok {
		return 0, ErrUserNotFound
	}
	seller, ok := m.users[t.Seller]
	if !ok {
		return 0, ErrUserNotFound
	}
	if _, ok := m.products[t.ProductID]; !ok {
		return 0, ErrProductNotFound
	}

	if transfer {
		if buyer.Balance < t.Price {
			return 0, ErrInsufficientBalance
		}
		buyer.Balance -= t.Price
		seller.Balance += t.Price
		m.users[buyer.Email] = buyer
		m.users[seller.Email] = seller
	}

	t.ID = m.nextTxID
	m.nextTxID++
	m.txs = append(m.txs, t)
	return t.ID, nil
}

// GetTransactionsByUser возвращает покупки и продажи пользователя, новые первыми.
func (m *MemoryRepository) GetTransactionsByUser(_ context.Context, email string) ([]model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []model.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].Buyer == email || m.txs[i].Seller == email {
			res = append(res, m.txs[i])
		}
	}
	return res, nil
}
