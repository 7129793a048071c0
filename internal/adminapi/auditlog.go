package adminapi

import (
	"net/http"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/internal/webserver"
)

func registerAuditRoutes() {
	webserver.ApiGET("/channel/auditlog", listChannelAuditLog)
	webserver.ApiGET("/channel/auditlog/export", exportChannelAuditLog)
}

func auditQuery(c echo.Context) ([]domain.ChannelOprLog, int64, error) {
	db := GetDB(c).Model(&domain.ChannelOprLog{}).
		Where("tenant_id = ?", webserver.CurrentTenantId(c))

	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		db = db.Where("action = ?", action)
	}
	if v := strings.TrimSpace(c.QueryParam("start")); v != "" {
		if t, err := dateparse.ParseLocal(v); err == nil {
			db = db.Where("opt_time >= ?", t)
		}
	}
	if v := strings.TrimSpace(c.QueryParam("end")); v != "" {
		if t, err := dateparse.ParseLocal(v); err == nil {
			db = db.Where("opt_time <= ?", t)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var logs []domain.ChannelOprLog
	page, pageSize := parsePagination(c)
	err := db.Order("opt_time DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

// listChannelAuditLog returns the tenant's channel operation history, with
// optional action filter and dateparse-tolerant time range.
func listChannelAuditLog(c echo.Context) error {
	logs, total, err := auditQuery(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query audit log", err.Error())
	}
	page, pageSize := parsePagination(c)
	return paged(c, logs, total, page, pageSize)
}

// exportChannelAuditLog streams the filtered history as CSV.
func exportChannelAuditLog(c echo.Context) error {
	var logs []domain.ChannelOprLog
	db := GetDB(c).Model(&domain.ChannelOprLog{}).
		Where("tenant_id = ?", webserver.CurrentTenantId(c))
	if v := strings.TrimSpace(c.QueryParam("start")); v != "" {
		if t, err := dateparse.ParseLocal(v); err == nil {
			db = db.Where("opt_time >= ?", t)
		}
	}
	if v := strings.TrimSpace(c.QueryParam("end")); v != "" {
		if t, err := dateparse.ParseLocal(v); err == nil {
			db = db.Where("opt_time <= ?", t)
		}
	}
	if err := db.Order("opt_time DESC").Find(&logs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query audit log", err.Error())
	}

	data, err := gocsv.MarshalString(&logs)
	if err != nil {
		zap.L().Warn("adminapi: audit csv marshal failed", zap.Error(err))
		return fail(c, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export audit log", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="channel_auditlog.csv"`)
	return c.Blob(http.StatusOK, "text/csv", []byte(data))
}
