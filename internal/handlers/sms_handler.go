package handlers

import (
	"net/http"
	"strconv"

	"rentledger-backend/internal/services"
	"rentledger-backend/pkg/utils"
)

type SMSHandler struct {
	Notifications *services.NotificationService
}

func NewSMSHandler(notifications *services.NotificationService) *SMSHandler {
	return &SMSHandler{Notifications: notifications}
}

// ListLogs returns recent outbound messages, newest first
// GET /api/sms/logs?limit=100
func (h *SMSHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	logs, err := h.Notifications.ListLogs(r.Context(), limit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, logs)
}
