package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/qbay-marketplace/internal/model"
)

func seedUser(t *testing.T, repo *MemoryRepository, email, username string, balance int64) {
	t.Helper()
	require.NoError(t, repo.CreateUser(context.Background(), model.User{
		Email:        email,
		Username:     username,
		PasswordHash: []byte("hash-" + email),
		Balance:      balance,
		CreatedAt:    time.Now(),
	}))
}

func TestMemoryRepository_UserUniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedUser(t, repo, "a@test.com", "alice", 100)

	err := repo.CreateUser(ctx, model.User{Email: "a@test.com", Username: "other"})
	require.ErrorIs(t, err, ErrConflict)

	u, err := repo.GetUserByEmail(ctx, "a@test.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = repo.GetUserByEmail(ctx, "missing@test.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryRepository_FindUserByUsernamePicksFirstRegistered(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedUser(t, repo, "first@test.com", "same name", 100)
	seedUser(t, repo, "second@test.com", "same name", 100)

	u, err := repo.FindUserByUsername(ctx, "same name")
	require.NoError(t, err)
	assert.Equal(t, "first@test.com", u.Email)

	_, err = repo.FindUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryRepository_FindUsersByCredentials(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedUser(t, repo, "a@test.com", "alice", 100)

	users, err := repo.FindUsersByCredentials(ctx, "a@test.com", []byte("hash-a@test.com"))
	require.NoError(t, err)
	assert.Len(t, users, 1)

	users, err = repo.FindUsersByCredentials(ctx, "a@test.com", []byte("wrong"))
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestMemoryRepository_ProductTitleUniqueness(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	seedUser(t, repo, "owner@test.com", "owner", 100)

	id1, err := repo.CreateProduct(ctx, model.Product{Title: "Phone", OwnerEmail: "owner@test.com", Price: 20})
	require.NoError(t, err)
	id2, err := repo.CreateProduct(ctx, model.Product{Title: "Laptop", OwnerEmail: "owner@test.com", Price: 30})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	_, err = repo.CreateProduct(ctx, model.Product{Title: "Phone", OwnerEmail: "owner@test.com"})
	require.ErrorIs(t, err, ErrConflict)

	err = repo.UpdateProduct(ctx, id2, model.ProductChanges{Title: "Phone", Price: 40})
	require.ErrorIs(t, err, ErrConflict)

	err = repo.UpdateProduct(ctx, id2, model.ProductChanges{Title: "Tablet", Price: 40})
	require.NoError(t, err)

	_, err = repo.GetProductByTitle(ctx, "Laptop")
	assert.ErrorIs(t, err, ErrProductNotFound)

	p, err := repo.GetProductByTitle(ctx, "Tablet")
	require.NoError(t, err)
	assert.Equal(t, int64(40), p.Price)

	products, err := repo.ListProductsByOwner(ctx, "owner@test.com")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, id2, products[0].ID)
}

func TestMemoryRepository_CreateTransaction(t *testing.T) {
	tests := []struct {
		name          string
		buyerBalance  int64
		transfer      bool
		wantErr       error
		wantBuyerBal  int64
		wantSellerBal int64
	}{
		{
			name:          "transfer moves balance",
			buyerBalance:  100,
			transfer:      true,
			wantBuyerBal:  70,
			wantSellerBal: 130,
		},
		{
			name:          "record only keeps balances",
			buyerBalance:  100,
			transfer:      false,
			wantBuyerBal:  100,
			wantSellerBal: 100,
		},
		{
			name:          "insufficient balance",
			buyerBalance:  10,
			transfer:      true,
			wantErr:       ErrInsufficientBalance,
			wantBuyerBal:  10,
			wantSellerBal: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			ctx := context.Background()

			seedUser(t, repo, "buyer@test.com", "buyer", tt.buyerBalance)
			seedUser(t, repo, "seller@test.com", "seller", 100)
			pid, err := repo.CreateProduct(ctx, model.Product{Title: "Phone", OwnerEmail: "seller@test.com", Price: 30})
			require.NoError(t, err)

			_, err = repo.CreateTransaction(ctx, model.Transaction{
				Price:     30,
				Buyer:     "buyer@test.com",
				Seller:    "seller@test.com",
				ProductID: pid,
			}, tt.transfer)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			buyer, err := repo.GetUserByEmail(ctx, "buyer@test.com")
			require.NoError(t, err)
			seller, err := repo.GetUserByEmail(ctx, "seller@test.com")
			require.NoError(t, err)
			assert.Equal(t, tt.wantBuyerBal, buyer.Balance)
			assert.Equal(t, tt.wantSellerBal, seller.Balance)

			txs, err := repo.GetTransactionsByUser(ctx, "seller@test.com")
			require.NoError(t, err)
			if tt.wantErr != nil {
				assert.Empty(t, txs)
			} else {
				assert.Len(t, txs, 1)
			}
		})
	}
}
