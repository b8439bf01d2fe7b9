package api

import (
	"log/slog"
	"net/http"

	"github.com/starford/atelier/internal/canonical"
)

// writeJSON writes v in the same canonical form the project files use.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := canonical.Marshal(v)
	if err != nil {
		slog.Error("api: json encode failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
