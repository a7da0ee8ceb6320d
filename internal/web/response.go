package web

import (
	"encoding/json"
	"net/http"
)

type failureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func jsonData(w http.ResponseWriter, data any) {
	jsonStatus(w, http.StatusOK, data)
}

func jsonFailure(w http.ResponseWriter, status int, message string) {
	jsonStatus(w, status, failureResponse{Success: false, Error: message})
}

func jsonStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
