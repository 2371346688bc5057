package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smileshop/keystore/utils"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Code, ErrorResponse{Error: apiErr.Message, Details: apiErr.Details})
		return
	}
	writeJSON(w, utils.GetHTTPStatusFromError(err), ErrorResponse{Error: err.Error()})
}
