package handlers

import (
	"net/http"

	"finance-tracker/internal/models"
)

const transactionNoun = "Transaction"

// ListTransactions returns the caller's transactions, newest first.
func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	txs, err := h.svc.Transactions.List(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}

	t, err := h.svc.Transactions.Get(r.Context(), GetUserFromContext(r).ID, id)
	if err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in models.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}

	t, err := h.svc.Transactions.Create(r.Context(), GetUserFromContext(r).ID, in)
	if err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}

	var p models.TransactionPatch
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}

	t, err := h.svc.Transactions.Update(r.Context(), GetUserFromContext(r).ID, id, p)
	if err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}

	if err := h.svc.Transactions.Delete(r.Context(), GetUserFromContext(r).ID, id); err != nil {
		h.writeError(w, r, err, transactionNoun)
		return
	}
	writeMessage(w, http.StatusOK, "Transaction deleted")
}
