package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths bypass principal resolution entirely.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper reports whether the request's route is a public
// infrastructure endpoint.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

// IsPublicPath reports whether path is served without a principal.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
