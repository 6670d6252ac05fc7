package tenant

import (
	"net/http"

	"github.com/google/uuid"
)

// Header names the request header the upstream gateway sets after it has
// authenticated the caller and resolved their tenant.
const Header = "X-Tenant-ID"

// Middleware resolves the tenant id from the request header into the context.
// Requests without a valid tenant id are rejected before reaching handlers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(Header)
		if raw == "" {
			http.Error(w, "missing tenant", http.StatusBadRequest)
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid tenant", http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), tenantID)))
	})
}
