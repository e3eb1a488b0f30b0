package echoapi

import (
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/jbkiprop/studentos/core"
)

func registerUploadsAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	g.GET("/uploads/:filename", serveUpload, jwt)
}

// serveUpload streams a stored attachment back to an authenticated user.
// Anything that does not survive sanitization untouched is a traversal
// attempt and gets a 404.
func serveUpload(ctx echo.Context) error {
	name := ctx.Param("filename")
	if name == "" || name != core.SanitizeFilename(name) {
		return errHttpNotFound
	}
	path := filepath.Join(core.Conf.UploadDir, name)
	if _, err := os.Stat(path); err != nil {
		return errHttpNotFound
	}
	return ctx.File(path)
}
