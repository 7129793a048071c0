package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/internal/webserver"
)

func registerSettingsRoutes() {
	webserver.ApiGET("/settings", listSettings)
	webserver.ApiPOST("/settings", saveSettings)
	webserver.ApiGET("/settings/config", getConfig)
	webserver.ApiPOST("/settings/config", saveConfig)
}

func listSettings(c echo.Context) error {
	var settings []domain.SysConfig
	db := GetDB(c).Model(&domain.SysConfig{})
	if t := c.QueryParam("type"); t != "" {
		db = db.Where("type = ?", t)
	}
	if err := db.Order("sort, name").Find(&settings).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query settings", err.Error())
	}
	return ok(c, settings)
}

// getConfig returns the live application configuration.
func getConfig(c echo.Context) error {
	return ok(c, GetApp(c).Config())
}

// saveConfig overlays a loosely-typed values map onto the running
// configuration. Section and field names match case-insensitively; takes
// effect for components that read config per call.
func saveConfig(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := GetApp(c).Config().MergeMap(payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to apply configuration values", err.Error())
	}
	return ok(c, GetApp(c).Config())
}

// saveSettings upserts "category.name" keyed values.
func saveSettings(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	if err := GetApp(c).SaveSettings(payload); err != nil {
		return fail(c, http.StatusInternalServerError, "SAVE_FAILED", "Failed to save settings", err.Error())
	}
	return ok(c, map[string]interface{}{"saved": len(payload)})
}
