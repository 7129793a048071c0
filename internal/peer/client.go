// Package peer implements the HTTP contract with the automation peer, the
// external service that performs messaging-provider operations on behalf of
// the channel subsystem. All operations are JSON POSTs to one fixed sub-path
// each; responses are normalized here so callers never see the peer's
// inconsistent field spellings.
package peer

import (
	"context"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	pathCreate  = "/channel/create"
	pathPairing = "/channel/pairing"
	pathStatus  = "/channel/status"
	pathRelease = "/channel/release"
	pathWebhook = "/channel/webhook"
)

// InstanceRequest carries the fields common to every instance-bound call.
type InstanceRequest struct {
	InstanceId   string `json:"instanceId"`
	Token        string `json:"token"`
	InstanceName string `json:"instanceName"`
	CompanyLabel string `json:"companyLabel"`
	OwnerContact string `json:"ownerContact"`
	TenantId     string `json:"tenantId"`
	TenantName   string `json:"tenantName"`
}

// CreateResult is the identity/credential pair issued for a new channel.
type CreateResult struct {
	Id           string
	Token        string
	CompanyLabel string
	OwnerContact string
}

// PairingResult holds whichever pairing artifacts the peer returned. Both
// fields empty is a valid outcome: the peer may still be preparing the
// session and the caller retries later.
type PairingResult struct {
	QrPayload   string
	NumericCode string
}

// Client is the outbound contract the channel service depends on.
type Client interface {
	CreateChannel(ctx context.Context, req InstanceRequest) (*CreateResult, error)
	GeneratePairing(ctx context.Context, req InstanceRequest) (*PairingResult, error)
	CheckConnection(ctx context.Context, req InstanceRequest) (bool, error)
	ReleaseChannel(ctx context.Context, req InstanceRequest) error
	ConfigureWebhook(ctx context.Context, req InstanceRequest) (string, error)
}

// HTTPClient talks to the automation peer over plain HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{baseURL: baseURL, apiKey: apiKey, timeout: timeout}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) post(ctx context.Context, path string, req InstanceRequest) (int, []byte, error) {
	// gout's SetTimeout replaces the caller's context, so the deadline is
	// derived here and only WithContext is passed down. Cancellation from the
	// caller must keep working.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		code int
		body []byte
	)
	err := gout.POST(c.baseURL + path).
		WithContext(ctx).
		SetHeader(gout.H{"apikey": c.apiKey}).
		SetJSON(req).
		Code(&code).
		BindBody(&body).
		Do()
	if err != nil {
		return 0, nil, errors.Wrapf(err, "peer: POST %s failed", path)
	}
	return code, body, nil
}

func (c *HTTPClient) CreateChannel(ctx context.Context, req InstanceRequest) (*CreateResult, error) {
	code, body, err := c.post(ctx, pathCreate, req)
	if err != nil {
		return nil, err
	}
	if code < 200 || code > 299 {
		return nil, errors.Errorf("peer: create channel returned status %d", code)
	}
	obj, err := firstObject(body)
	if err != nil {
		return nil, err
	}
	res := &CreateResult{
		Id:           lookupString(obj, "id", "instanceId", "instance_id"),
		Token:        lookupString(obj, "token", "apikey", "api_key"),
		CompanyLabel: lookupString(obj, "companyLabel", "company_label", "name"),
		OwnerContact: lookupString(obj, "ownerContact", "owner_contact", "number"),
	}
	if res.Id == "" {
		return nil, errors.New("peer: create channel response has no identity field")
	}
	return res, nil
}

func (c *HTTPClient) GeneratePairing(ctx context.Context, req InstanceRequest) (*PairingResult, error) {
	code, body, err := c.post(ctx, pathPairing, req)
	if err != nil {
		return nil, err
	}
	if code < 200 || code > 299 {
		return nil, errors.Errorf("peer: generate pairing returned status %d", code)
	}
	obj, err := firstObject(body)
	if err != nil {
		return nil, err
	}
	// Neither artifact present is not an error: the session may still be in
	// preparation on the peer side.
	return &PairingResult{
		QrPayload:   lookupString(obj, "qrCode", "qrcode", "qr_code", "base64"),
		NumericCode: lookupString(obj, "pairCode", "paircode", "pairingCode", "pairing_code"),
	}, nil
}

func (c *HTTPClient) CheckConnection(ctx context.Context, req InstanceRequest) (bool, error) {
	code, body, err := c.post(ctx, pathStatus, req)
	if err != nil {
		return false, err
	}
	if code < 200 || code > 299 {
		return false, errors.Errorf("peer: check connection returned status %d", code)
	}
	obj, err := firstObject(body)
	if err != nil {
		return false, err
	}
	return isConnectedSignal(obj), nil
}

func (c *HTTPClient) ReleaseChannel(ctx context.Context, req InstanceRequest) error {
	code, _, err := c.post(ctx, pathRelease, req)
	if err != nil {
		return err
	}
	// Body is ignored; any success status releases the remote session.
	if code < 200 || code > 299 {
		return errors.Errorf("peer: release channel returned status %d", code)
	}
	return nil
}

func (c *HTTPClient) ConfigureWebhook(ctx context.Context, req InstanceRequest) (string, error) {
	code, body, err := c.post(ctx, pathWebhook, req)
	if err != nil {
		return "", err
	}
	if code < 200 || code > 299 {
		return "", errors.Errorf("peer: configure webhook returned status %d", code)
	}
	obj, err := firstObject(body)
	if err != nil {
		return "", err
	}
	url := lookupString(obj, "url", "webhookUrl", "webhook_url")
	if url == "" {
		return "", errors.New("peer: configure webhook response has no url field")
	}
	zap.L().Debug("peer: webhook configured", zap.String("url", url))
	return url, nil
}
