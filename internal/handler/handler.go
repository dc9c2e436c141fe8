// Package handler содержит HTTP-обработчики API сервиса qbay.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mmeshcher/qbay-marketplace/internal/middleware"
	"github.com/mmeshcher/qbay-marketplace/internal/model"
	"github.com/mmeshcher/qbay-marketplace/internal/service"
)

// dateLayout задаёт формат дат в запросах и ответах API.
const dateLayout = "2006-01-02"

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, cmd service.UpdateProfileCommand) error
	CreateProduct(ctx context.Context, cmd service.CreateProductCommand) (*model.Product, error)
	UpdateProduct(ctx context.Context, cmd service.UpdateProductCommand) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProductsByOwner(ctx context.Context, email string) ([]model.Product, error)
	PurchaseProduct(ctx context.Context, title, buyerEmail string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, email string) ([]model.Transaction, error)
}

// Handler реализует HTTP-обработчики API сервиса qbay.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type userResponse struct {
	Email        string `json:"email"`
	Username     string `json:"username"`
	Balance      int64  `json:"balance"`
	ShippingAddr string `json:"shipping_addr"`
	PostalCode   string `json:"postal_code"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		Email:        u.Email,
		Username:     u.Username,
		Balance:      u.Balance,
		ShippingAddr: u.ShippingAddr,
		PostalCode:   u.PostalCode,
	}
}

type transactionResponse struct {
	ID        int64  `json:"id"`
	Price     int64  `json:"price"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	ProductID int64  `json:"product_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func newTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		Price:     t.Price,
		Buyer:     t.Buyer,
		Seller:    t.Seller,
		ProductID: t.ProductID,
		Status:    t.Status,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor сопоставляет вид ошибки сервиса HTTP-статусу.
func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindValidation:
		if errors.Is(err, service.ErrDuplicateEmail) || errors.Is(err, service.ErrDuplicateTitle) {
			return http.StatusConflict
		}
		return http.StatusUnprocessableEntity
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindStorageConflict:
		return http.StatusConflict
	case service.KindBusinessRule:
		switch {
		case errors.Is(err, service.ErrInsufficientBalance):
			return http.StatusPaymentRequired
		case errors.Is(err, service.ErrSelfPurchase):
			return http.StatusForbidden
		}
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// writeError отвечает статусом по виду ошибки и логирует её с request id запроса.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	status := statusFor(err)
	fields = append(fields,
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, fields...)
		http.Error(w, http.StatusText(status), status)
		return
	}

	kind := service.KindOf(err).String()
	h.logger.Info(msg, append(fields, zap.String("kind", kind))...)
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

// decode читает JSON-тело и проверяет теги validate. Поля, которых нет в dst,
// отклоняются. При ошибке ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "invalid field " + verrs[0].Field() + ": " + verrs[0].Tag(),
			})
			return false
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return false
	}
	return true
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя и сразу авторизует его.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		h.writeError(w, r, "register user error", err, zap.String("email", req.Email))
		return
	}

	h.authMiddleware.SetAuthCookie(w, req.Email)
	w.WriteHeader(http.StatusOK)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch service.KindOf(err) {
		case service.KindValidation, service.KindNotFound:
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		default:
			h.writeError(w, r, "login user error", err, zap.String("email", req.Email))
		}
		return
	}

	h.authMiddleware.SetAuthCookie(w, user.Email)
	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// GetProfile возвращает профиль и баланс текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), email)
	if err != nil {
		h.writeError(w, r, "get profile error", err, zap.String("email", email))
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

type profileRequest struct {
	Username     string `json:"username"`
	ShippingAddr string `json:"shipping_addr"`
	PostalCode   string `json:"postal_code"`
}

// UpdateProfile заменяет имя, адрес доставки и индекс текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req profileRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.UpdateProfile(r.Context(), service.UpdateProfileCommand{
		Email:              email,
		NewUsername:        req.Username,
		NewShippingAddress: req.ShippingAddr,
		NewPostalCode:      req.PostalCode,
	})
	if err != nil {
		h.writeError(w, r, "update profile error", err, zap.String("email", email))
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetTransactions возвращает покупки и продажи текущего пользователя.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	email, ok := middleware.GetUserEmailFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), email)
	if err != nil {
		h.writeError(w, r, "get transactions error", err, zap.String("email", email))
		return
	}

	if len(txs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]transactionResponse, 0, len(txs))
	for i := range txs {
		resp = append(resp, newTransactionResponse(&txs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}
