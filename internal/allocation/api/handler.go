package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-shuttle/internal/allocation"
	"ms-shuttle/internal/boarding"
	"ms-shuttle/internal/logger"
	"ms-shuttle/internal/models"
	"ms-shuttle/internal/requests"
	"ms-shuttle/internal/utils"
)

type Handler struct {
	Allocation *allocation.Service
	Requests   *requests.Service
	Boarding   *boarding.Service
	Logger     *logger.Logger
}

// RunAllocation triggers the engine for a service date. Idempotent-guarded:
// a second call on a completed date gets 409 and changes nothing.
func (h *Handler) RunAllocation(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := utils.ParseServiceDate(date); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid service date", err.Error()))
		return
	}

	run, err := h.Allocation.RunAllocation(r.Context(), date)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, allocation.ErrAlreadyRun), errors.Is(err, allocation.ErrAlreadyLocked):
			status = http.StatusConflict
		case errors.Is(err, allocation.ErrInvalidGroup), errors.Is(err, allocation.ErrNoCapacity):
			status = http.StatusUnprocessableEntity
		}
		resp := utils.ErrorResponse("allocation run did not complete", err.Error())
		resp.Data = run // FAILED run record, when one was written
		utils.WriteJSON(w, status, resp)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("allocation completed", run))
}

// GetRun returns the persisted audit record for a date.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	run, err := h.Allocation.GetRun(r.Context(), date)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("could not load run", err.Error()))
		return
	}
	if run == nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("no allocation run for date", date))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("allocation run", run))
}

// SubmitRequest creates or modifies a user's request for a date. Rejected
// once the date is locked.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var payload models.SubmitRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	req, err := h.Requests.SubmitRequest(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, requests.ErrDateLocked):
			utils.WriteJSON(w, http.StatusConflict, utils.ErrorResponse("service date is locked", err.Error()))
		case errors.Is(err, requests.ErrUnknownUser):
			utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("unknown user", err.Error()))
		default:
			utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("could not submit request", err.Error()))
		}
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("request submitted", req))
}

// GetRequest returns one request with its allocation status.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	req, err := h.Requests.GetRequest(r.Context(), requestID)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("request not found", requestID))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("request", req))
}

// GetPass returns the boarding pass issued for an allocated request.
func (h *Handler) GetPass(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestId")
	pass, err := h.Boarding.GetPass(r.Context(), requestID)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("no boarding pass for request", requestID))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("boarding pass", pass))
}

// Routes mounts the handler on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/v1/allocations/{date}/run", h.RunAllocation)
	r.Get("/api/v1/allocations/{date}", h.GetRun)
	r.Post("/api/v1/requests", h.SubmitRequest)
	r.Get("/api/v1/requests/{requestId}", h.GetRequest)
	r.Get("/api/v1/requests/{requestId}/pass", h.GetPass)
}
