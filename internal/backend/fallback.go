package backend

import (
	"net/http"

	"github.com/yndnr/skillgate-go/internal/core/domain"
	"github.com/yndnr/skillgate-go/internal/server/httpserver/handler"
)

// Fallback answers every request with 401 while the backend is Degraded.
func Fallback() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		handler.WriteError(w, http.StatusUnauthorized, domain.CodeBackendUnavailable, "Unauthorized")
	})
}
