package server

import (
	"context"
	"net/http"
)

const headerTenantID = "X-Tenant-ID"

type tenantCtxKey struct{}

// TenantResolver extracts the tenant id from the X-Tenant-ID header or
// the store query parameter and stores it in the request context,
// falling back to the configured default tenant.
func TenantResolver(defaultTenant string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := r.Header.Get(headerTenantID)
			if tid == "" {
				tid = r.URL.Query().Get("store")
			}
			if tid == "" {
				tid = defaultTenant
			}
			ctx := context.WithValue(r.Context(), tenantCtxKey{}, tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant id resolved for the request.
func TenantFromContext(ctx context.Context) string {
	tid, _ := ctx.Value(tenantCtxKey{}).(string)
	return tid
}
