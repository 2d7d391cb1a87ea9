package handlers

import (
	"net/http"

	"finance-tracker/internal/models"
)

const goalNoun = "Goal"

func (h *Handlers) ListBudgetGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.BudgetGoals.List(r.Context(), GetUserFromContext(r).ID)
	if err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

// CreateBudgetGoal ignores any currentAmount in the body.
func (h *Handlers) CreateBudgetGoal(w http.ResponseWriter, r *http.Request) {
	var in models.BudgetGoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}

	g, err := h.svc.BudgetGoals.Create(r.Context(), GetUserFromContext(r).ID, in)
	if err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (h *Handlers) UpdateBudgetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}

	var p models.BudgetGoalPatch
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}

	g, err := h.svc.BudgetGoals.Update(r.Context(), GetUserFromContext(r).ID, id, p)
	if err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handlers) DeleteBudgetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}

	if err := h.svc.BudgetGoals.Delete(r.Context(), GetUserFromContext(r).ID, id); err != nil {
		h.writeError(w, r, err, goalNoun)
		return
	}
	writeMessage(w, http.StatusOK, "Goal deleted")
}
