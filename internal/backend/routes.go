package backend

import "strings"

// otherRoute labels calls to paths outside the known endpoint set.
const otherRoute = "other"

// routes lists the endpoint templates used as metric labels. Segments in
// braces match any single path segment.
var routes = []string{
	PathAdminLogin,
	PathClientLogin,
	PathClientRegister,
	PathRecoveryRequest,
	PathRecoveryFinalize,
	PathDriverUpdate,
	"/api/cliente/minhas-coletas",
	"/api/cliente/coletas",
	"/api/cliente/devolucoes",
	"/api/cliente/coletas/{numero}/fatura",
	"/api/rastreio/{numero}",
	"/api/admin/coletas",
	"/api/admin/coletas/{id}/status",
	"/api/admin/coletas/{id}/etiqueta",
	"/api/admin/coletas/{id}/fatura",
	"/api/admin/devolucoes",
	"/api/admin/clientes",
	"/api/admin/funcionarios",
}

// routeOf maps a concrete request path to its endpoint template.
func routeOf(path string) string {
	path, _, _ = strings.Cut(path, "?")
	segments := strings.Split(path, "/")
	for _, route := range routes {
		if matchRoute(strings.Split(route, "/"), segments) {
			return route
		}
	}
	return otherRoute
}

func matchRoute(route, segments []string) bool {
	if len(route) != len(segments) {
		return false
	}
	for i, seg := range route {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if seg != segments[i] {
			return false
		}
	}
	return true
}
