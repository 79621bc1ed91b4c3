package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go-identity-service/internal/model"
	"go-identity-service/internal/service"
)

type AuditHandler struct {
	service *service.AuditService
}

func NewAuditHandler(service *service.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request, _ *service.Claims) {
	q := r.URL.Query()

	query := model.AuditQuery{
		Action: q.Get("action"),
		Status: q.Get("status"),
	}
	query.Page, _ = strconv.Atoi(q.Get("page"))
	query.Limit, _ = strconv.Atoi(q.Get("limit"))
	query.ActorID, _ = strconv.ParseInt(q.Get("actor_id"), 10, 64)

	entries, meta, err := h.service.List(r.Context(), query)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(model.AuditPage{
		Success: true,
		Entries: entries,
		Meta:    meta,
	})
}
