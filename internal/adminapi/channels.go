package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore/internal/channel"
	"github.com/clinicore/clinicore/internal/webserver"
)

func registerChannelRoutes() {
	webserver.ApiGET("/channel/instance", getChannelInstance)
	webserver.ApiPOST("/channel/instance", postChannelProvision)
	webserver.ApiPOST("/channel/instance/pairing", postChannelPairing)
	webserver.ApiGET("/channel/instance/status", getChannelStatus)
	webserver.ApiPOST("/channel/instance/sync", postChannelSync)
	webserver.ApiPOST("/channel/instance/webhook", postChannelWebhook)
	webserver.ApiDELETE("/channel/instance", deleteChannelInstance)
}

// failChannel maps the channel error taxonomy onto HTTP responses. Peer-side
// failures surface as 502 with a retry affordance on the client.
func failChannel(c echo.Context, err error) error {
	var vErr *channel.ValidationError
	var pErr *channel.ProvisioningError
	var gErr *channel.PairingError
	var tErr *channel.TeardownError
	var wErr *channel.WebhookConfigError
	switch {
	case errors.As(err, &vErr):
		return fail(c, http.StatusBadRequest, "VALIDATION_FAILED", vErr.Error(), nil)
	case errors.Is(err, channel.ErrInstanceExists):
		return fail(c, http.StatusConflict, "INSTANCE_EXISTS", "A channel instance already exists for this tenant", nil)
	case errors.Is(err, channel.ErrInstanceNotFound):
		return fail(c, http.StatusNotFound, "NOT_FOUND", "No channel instance for this tenant", nil)
	case errors.As(err, &pErr):
		return fail(c, http.StatusBadGateway, "PROVISION_FAILED", "Failed to provision channel", pErr.Err.Error())
	case errors.As(err, &gErr):
		return fail(c, http.StatusBadGateway, "PAIRING_FAILED", "Failed to generate pairing", gErr.Err.Error())
	case errors.As(err, &tErr):
		return fail(c, http.StatusBadGateway, "TEARDOWN_FAILED", "Failed to release channel", tErr.Err.Error())
	case errors.As(err, &wErr):
		return fail(c, http.StatusBadGateway, "WEBHOOK_FAILED", "Failed to configure webhook", wErr.Err.Error())
	default:
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Channel operation failed", err.Error())
	}
}

// getChannelInstance returns the tenant's channel record, if any.
func getChannelInstance(c echo.Context) error {
	svc := GetApp(c).Channels()
	inst, _, err := svc.Status(c.Request().Context(), webserver.CurrentTenantId(c))
	if err != nil {
		return failChannel(c, err)
	}
	return ok(c, inst)
}

// postChannelProvision creates the remote channel and the pending local
// record. Request JSON: { "label": "clinica-x", "owner_contact": "(11) 98888-8888" }
func postChannelProvision(c echo.Context) error {
	var payload struct {
		Label        string `json:"label"`
		OwnerContact string `json:"owner_contact"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", err.Error())
	}
	svc := GetApp(c).Channels()
	inst, err := svc.Provision(c.Request().Context(),
		webserver.CurrentTenantId(c), webserver.CurrentUsername(c),
		payload.Label, payload.OwnerContact)
	if err != nil {
		return failChannel(c, err)
	}
	return ok(c, inst)
}

// postChannelPairing requests a fresh pairing artifact. The reconcile loop
// starts as soon as an artifact is stored.
func postChannelPairing(c echo.Context) error {
	svc := GetApp(c).Channels()
	inst, err := svc.GeneratePairing(c.Request().Context(),
		webserver.CurrentTenantId(c), webserver.CurrentUsername(c))
	if err != nil {
		return failChannel(c, err)
	}
	return ok(c, map[string]interface{}{
		"qr_payload":   inst.QrPayload,
		"numeric_code": inst.NumericCode,
		"status":       inst.Status,
	})
}

// getChannelStatus returns record status plus loop state; the page reads
// this on mount to decide whether to restart polling.
func getChannelStatus(c echo.Context) error {
	svc := GetApp(c).Channels()
	inst, polling, err := svc.Status(c.Request().Context(), webserver.CurrentTenantId(c))
	if err != nil {
		return failChannel(c, err)
	}
	return ok(c, map[string]interface{}{
		"status":       inst.Status,
		"polling":      polling,
		"has_artifact": inst.HasPairingArtifact(),
	})
}

// postChannelSync ensures a reconcile loop is running for a pending record
// with an artifact (page re-mount trigger).
func postChannelSync(c echo.Context) error {
	svc := GetApp(c).Channels()
	started, err := svc.EnsureReconcile(c.Request().Context(), webserver.CurrentTenantId(c))
	if err != nil {
		return failChannel(c, err)
	}
	return ok(c, map[string]interface{}{"started": started})
}

// postChannelWebhook registers a push endpoint for the instance.
func postChannelWebhook(c echo.Context) error {
	svc := GetApp(c).Channels()
	url, err := svc.ConfigureWebhook(c.Request().Context(),
		webserver.CurrentTenantId(c), webserver.CurrentUsername(c))
	if err != nil {
		return failChannel(c, err)
	}
	return ok(c, map[string]interface{}{"url": url})
}

// deleteChannelInstance releases the remote channel and removes the record.
func deleteChannelInstance(c echo.Context) error {
	svc := GetApp(c).Channels()
	tenantId := webserver.CurrentTenantId(c)
	if err := svc.Teardown(c.Request().Context(), tenantId, webserver.CurrentUsername(c)); err != nil {
		return failChannel(c, err)
	}
	zap.L().Info("adminapi: channel instance removed", zap.Int64("tenant_id", tenantId))
	return ok(c, map[string]interface{}{"removed": true})
}
