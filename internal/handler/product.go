package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/qbay-marketplace/internal/middleware"
	"github.com/mmeshcher/qbay-marketplace/internal/model"
	"github.com/mmeshcher/qbay-marketplace/internal/service"
)

type productResponse struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Price            int64  `json:"price"`
	OwnerEmail       string `json:"owner_email"`
	LastModifiedDate string `json:"last_modified_date"`
}

func newProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:               p.ID,
		Title:            p.Title,
		Description:      p.Description,
		Price:            p.Price,
		OwnerEmail:       p.OwnerEmail,
		LastModifiedDate: p.LastModifiedDate.Format(dateLayout),
	}
}

type createProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	// Date в формате YYYY-MM-DD, пустая строка означает текущую дату.
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// CreateProduct размещает товар от имени текущего пользователя.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req createProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := time.ParseInLocation(dateLayout, req.Date, time.UTC)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		date = d
	}

	p, err := h.service.CreateProduct(r.Context(), service.CreateProductCommand{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Date:        date,
		OwnerEmail:  email,
	})
	if err != nil {
		h.writeError(w, r, "create product error", err, zap.String("title", req.Title))
		return
	}

	writeJSON(w, http.StatusCreated, newProductResponse(p))
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || h.validate.Var(id, "gt=0") != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "get product error", err, zap.Int64("product_id", id))
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(p))
}

type updateProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// UpdateProduct меняет цену, название и описание товара текущего пользователя.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var req updateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	current, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, "update product error", err, zap.Int64("product_id", id))
		return
	}
	if current.OwnerEmail != email {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	p, err := h.service.UpdateProduct(r.Context(), service.UpdateProductCommand{
		ID:          id,
		Price:       req.Price,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, r, "update product error", err, zap.Int64("product_id", id))
		return
	}

	writeJSON(w, http.StatusOK, newProductResponse(p))
}

// GetMyProducts возвращает товары текущего пользователя.
func (h *Handler) GetMyProducts(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	products, err := h.service.ListProductsByOwner(r.Context(), email)
	if err != nil {
		h.writeError(w, r, "list products error", err, zap.String("email", email))
		return
	}

	if len(products) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, newProductResponse(&products[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type purchaseRequest struct {
	Title string `json:"title" validate:"required"`
}

// Purchase оформляет покупку товара по названию от имени текущего пользователя.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req purchaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.service.PurchaseProduct(r.Context(), req.Title, email)
	if err != nil {
		h.writeError(w, r, "purchase error", err, zap.String("title", req.Title), zap.String("buyer", email))
		return
	}

	writeJSON(w, http.StatusCreated, newTransactionResponse(tx))
}
