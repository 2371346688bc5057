package api

import (
	"net/http"
	"time"

	"github.com/smileshop/keystore/db"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func CreateHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *HealthHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "ok",
		Timestamp: time.Now(),
	}

	status := http.StatusOK
	if err := db.Ping(r.Context(), h.db); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
