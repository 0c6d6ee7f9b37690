package httpapi

import (
	"net/http"
	"strings"
	"time"

	"nexchat.app/internal/ledger"
	"nexchat.app/internal/session"
)

type mintRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Note      string `json:"note"`
}

type listTransactionsResponse struct {
	Items []ledger.Transaction `json:"items"`
	AsOf  time.Time            `json:"as_of"`
}

func (a *API) handleMint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.requirePermission(w, r, session.PermManageTokens) {
		return
	}

	var req mintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := a.ledger.Mint(r.Context(), req.Recipient, req.Amount, req.Note)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (a *API) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePermission(w, r, session.PermManageTokens) {
		return
	}

	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "user query parameter is required")
		return
	}
	balance, err := a.ledger.Balance(r.Context(), user)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "balance": balance})
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.requirePermission(w, r, session.PermManageTokens) {
		return
	}

	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.ledger.History(r.Context(), strings.TrimSpace(r.URL.Query().Get("type")), limit)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listTransactionsResponse{
		Items: items,
		AsOf:  time.Now().UTC(),
	})
}
