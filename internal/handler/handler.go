package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"bankledger/internal/models"
	"bankledger/internal/service"
	"bankledger/internal/storage"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Handler exposes the services over HTTP. It only shapes requests and
// responses; every business rule lives in the services.
type Handler struct {
	users     *service.UserService
	accounts  *service.AccountService
	cards     *service.CardService
	transfers *service.TransferService
	log       *logrus.Logger
}

// NewHandler initializes the HTTP handler
func NewHandler(users *service.UserService, accounts *service.AccountService, cards *service.CardService, transfers *service.TransferService, log *logrus.Logger) *Handler {
	return &Handler{users: users, accounts: accounts, cards: cards, transfers: transfers, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidCardNumber):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrCardNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrCardLimitExceeded),
		errors.Is(err, service.ErrAccountNotEmpty):
		status = http.StatusConflict
	case errors.Is(err, service.ErrAccountLocked):
		status = http.StatusLocked
	}
	if status == http.StatusInternalServerError {
		h.log.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value("userID").(string)
	return id
}

// ownedAccount resolves an account and verifies it belongs to the caller.
func (h *Handler) ownedAccount(r *http.Request, accountID string) (*models.Account, error) {
	account, err := h.accounts.Account(r.Context(), accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != userID(r) {
		// Do not leak existence of other users' accounts.
		return nil, service.ErrAccountNotFound
	}
	return account, nil
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		http.Error(w, "username, email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// CreateAccount handles account creation
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountType    models.AccountType `json:"account_type"`
		InitialBalance decimal.Decimal    `json:"initial_balance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), userID(r), req.AccountType, req.InitialBalance)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListAccounts returns the caller's accounts with their cards
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.AccountsByOwner(r.Context(), userID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// DeleteAccount removes an empty account owned by the caller
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	if _, err := h.ownedAccount(r, accountID); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.accounts.DeleteAccount(r.Context(), accountID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateCard issues a card for one of the caller's accounts
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID  string `json:"account_id"`
		CardNumber string `json:"card_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := h.ownedAccount(r, req.AccountID); err != nil {
		h.writeError(w, err)
		return
	}

	card, err := h.cards.CreateCard(r.Context(), req.AccountID, req.CardNumber)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

// ListCards returns the cards of one of the caller's accounts
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	if _, err := h.ownedAccount(r, accountID); err != nil {
		h.writeError(w, err)
		return
	}
	cards, err := h.cards.CardsByAccount(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// DeleteCard removes a card on one of the caller's accounts
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := mux.Vars(r)["id"]
	if err := h.cards.DeleteCard(r.Context(), cardID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type movementRequest struct {
	AccountID     string          `json:"account_id"`
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	FromCardID    string          `json:"from_card_id"`
	ToCardID      string          `json:"to_card_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

// Deposit credits an account
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.transfers.Deposit(r.Context(), req.AccountID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewTransactionDTO(t))
}

// Withdraw debits one of the caller's accounts
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := h.ownedAccount(r, req.AccountID); err != nil {
		h.writeError(w, err)
		return
	}

	t, err := h.transfers.Withdraw(r.Context(), req.AccountID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewTransactionDTO(t))
}

// Transfer moves funds between two accounts; the source must belong to
// the caller
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, err := h.ownedAccount(r, req.FromAccountID); err != nil {
		h.writeError(w, err)
		return
	}

	t, err := h.transfers.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewTransactionDTO(t))
}

// CardTransfer moves funds between two cards' linked accounts
func (h *Handler) CardTransfer(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	t, err := h.transfers.CardTransfer(r.Context(), req.FromCardID, req.ToCardID, req.Amount, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewTransactionDTO(t))
}

// TransactionHistory returns both-direction movements for one of the
// caller's accounts
func (h *Handler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	if _, err := h.ownedAccount(r, accountID); err != nil {
		h.writeError(w, err)
		return
	}
	history, err := h.transfers.TransactionHistory(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// Transaction returns a single movement by id
func (h *Handler) Transaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.transfers.Transaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewTransactionDTO(t))
}
