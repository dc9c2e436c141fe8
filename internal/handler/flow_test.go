package handler

import (
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mmeshcher/qbay-marketplace/internal/metrics"
	"github.com/mmeshcher/qbay-marketplace/internal/middleware"
	"github.com/mmeshcher/qbay-marketplace/internal/repository"
	"github.com/mmeshcher/qbay-marketplace/internal/service"
)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, base string) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: base, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()

	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, c.base+path, jsonBody(c.t, body))
	} else {
		req, err = http.NewRequest(method, c.base+path, nil)
	}
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestMarketplaceFlow(t *testing.T) {
	now := time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)
	svc := service.NewService(
		repository.NewMemoryRepository(),
		zaptest.NewLogger(t),
		metrics.New(prometheus.NewRegistry()),
		service.WithClock(func() time.Time { return now }),
	)
	h := NewHandler(svc, zaptest.NewLogger(t), middleware.NewAuthMiddleware("flow-secret"))
	srv := httptest.NewServer(h.SetupRouter())
	defer srv.Close()

	seller := newClient(t, srv.URL)
	buyer := newClient(t, srv.URL)

	res := seller.do(http.MethodPost, "/api/user/register",
		registerRequest{Username: "seller", Email: "seller@test.com", Password: "123aBc!"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = seller.do(http.MethodPost, "/api/user/register",
		registerRequest{Username: "again", Email: "seller@test.com", Password: "123aBc!"})
	require.Equal(t, http.StatusConflict, res.StatusCode)

	res = buyer.do(http.MethodPost, "/api/user/register",
		registerRequest{Username: "buyer", Email: "buyer@test.com", Password: "123aBc!"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = buyer.do(http.MethodPost, "/api/user/login", loginRequest{Email: "buyer@test.com", Password: "123aBc!"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var me userResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&me))
	assert.Equal(t, int64(100), me.Balance)
	assert.Equal(t, "", me.ShippingAddr)

	res = buyer.do(http.MethodPut, "/api/user/profile",
		profileRequest{Username: "buyer", ShippingAddr: "#1 Main", PostalCode: "K7K 1J5"})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res = buyer.do(http.MethodPut, "/api/user/profile",
		profileRequest{Username: "buyer one", ShippingAddr: "1 Main St", PostalCode: "K7K 1J5"})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = seller.do(http.MethodPost, "/api/products", createProductRequest{
		Title:       "Iphone 4 1",
		Description: strings.Repeat("t", 21),
		Price:       20,
		Date:        "2022-03-03",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode)
	var product productResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&product))
	assert.Equal(t, "seller@test.com", product.OwnerEmail)

	res = seller.do(http.MethodPost, "/api/products", createProductRequest{
		Title:       "Iphone 4 1",
		Description: strings.Repeat("t", 21),
		Price:       20,
	})
	require.Equal(t, http.StatusConflict, res.StatusCode)

	productPath := "/api/products/" + strconv.FormatInt(product.ID, 10)

	res = seller.do(http.MethodPut, productPath,
		updateProductRequest{Title: "Iphone 4 1", Description: strings.Repeat("t", 21), Price: 15})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	res = seller.do(http.MethodPut, productPath,
		updateProductRequest{Title: "Iphone 4 1", Description: strings.Repeat("u", 25), Price: 30})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = seller.do(http.MethodPost, "/api/orders", purchaseRequest{Title: "Iphone 4 1"})
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	res = buyer.do(http.MethodPost, "/api/orders", purchaseRequest{Title: "Iphone 4 1"})
	require.Equal(t, http.StatusCreated, res.StatusCode)

	res = buyer.do(http.MethodGet, "/api/user/profile", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&me))
	assert.Equal(t, int64(70), me.Balance)
	assert.Equal(t, "buyer one", me.Username)

	res = seller.do(http.MethodGet, "/api/user/transactions", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var txs []transactionResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "buyer@test.com", txs[0].Buyer)
	assert.Equal(t, int64(30), txs[0].Price)

	res = seller.do(http.MethodGet, "/api/user/products", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = buyer.do(http.MethodGet, "/api/products/999", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}
