package backend

import (
	"net/url"
	"testing"
)

func TestRouteOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		want string
	}{
		{PathAdminLogin, PathAdminLogin},
		{"/api/admin/coletas", "/api/admin/coletas"},
		{"/api/admin/coletas/17/status", "/api/admin/coletas/{id}/status"},
		{"/api/admin/coletas/17/etiqueta", "/api/admin/coletas/{id}/etiqueta"},
		{"/api/rastreio/QWERTY", "/api/rastreio/{numero}"},
		{"/api/rastreio/" + url.PathEscape("EF 1/2"), "/api/rastreio/{numero}"},
		{"/api/cliente/coletas/EF9/fatura", "/api/cliente/coletas/{numero}/fatura"},
		{"/api/rastreio/", otherRoute},
		{"/api/rastreio/a/b", otherRoute},
		{"/api/unknown", otherRoute},
		{"/api/admin/coletas?page=2", "/api/admin/coletas"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := routeOf(tt.path); got != tt.want {
				t.Errorf("routeOf(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
