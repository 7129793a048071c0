// Package adminapi exposes the console's protected REST surface.
package adminapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/webserver"
)

// InitRouter registers every admin API route group.
func InitRouter() {
	registerChannelRoutes()
	registerAuditRoutes()
	registerSettingsRoutes()
}

// GetApp returns the application context bound to the request.
func GetApp(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

// GetDB returns the request-scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return webserver.GetAppContext(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(200, map[string]interface{}{
		"code": 0,
		"data": data,
	})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(200, map[string]interface{}{
		"code":      0,
		"data":      data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page = 1
	pageSize = 20
	if v := strings.TrimSpace(c.QueryParam("page")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := strings.TrimSpace(c.QueryParam("page_size")); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 && p <= 500 {
			pageSize = p
		}
	}
	return page, pageSize
}
