// Package channel implements the messaging-channel provisioning core:
// onboarding a tenant's external messaging account, generating pairing
// credentials, reconciling the local record with the remote session state,
// and tearing the channel down again.
package channel

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/ttacon/libphonenumber"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/internal/peer"
	"github.com/clinicore/clinicore/pkg/common"
	"github.com/clinicore/clinicore/pkg/eventbus"
)

// Service exposes the one-shot channel operations. Operations on the same
// tenant serialize on a per-tenant mutex; the reconcile sweep job makes a
// second concurrent caller unavoidable, so locking is not optional here.
type Service struct {
	store  InstanceStore
	client peer.Client
	rec    *Reconciler
	bus    eventbus.Publisher

	locks sync.Map // tenantId -> *sync.Mutex
}

func NewService(store InstanceStore, client peer.Client, rec *Reconciler, bus eventbus.Publisher) *Service {
	return &Service{store: store, client: client, rec: rec, bus: bus}
}

func (s *Service) lockTenant(tenantId int64) func() {
	v, _ := s.locks.LoadOrStore(tenantId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// buildRequest assembles the instance-bound request fields every peer call
// carries.
func buildRequest(inst *domain.ChannelInstance, tenantName string) peer.InstanceRequest {
	return peer.InstanceRequest{
		InstanceId:   inst.RemoteInstanceId,
		Token:        inst.RemoteToken,
		InstanceName: inst.DisplayLabel,
		CompanyLabel: inst.DisplayLabel,
		OwnerContact: inst.OwnerContact,
		TenantId:     strconv.FormatInt(inst.TenantId, 10),
		TenantName:   tenantName,
	}
}

// normalizeContact strips formatting from a phone contact and enforces the
// local 10-11 digit convention. A leading 55 country code is tolerated.
func normalizeContact(contact string) (string, bool) {
	var b strings.Builder
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, "55") {
		digits = digits[2:]
	}
	if len(digits) < 10 || len(digits) > 11 {
		return "", false
	}
	return digits, true
}

// contactE164 renders the normalized digits in E.164 for the peer. Falls
// back to a plain country-code prefix when the number does not parse.
func contactE164(digits string) string {
	num, err := libphonenumber.Parse(digits, "BR")
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "+55" + digits
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

func (s *Service) appendLog(ctx context.Context, tenantId int64, oprName, action, result, detail string) {
	err := s.store.AppendLog(ctx, &domain.ChannelOprLog{
		ID:       common.UUIDint64(),
		TenantId: tenantId,
		OprName:  oprName,
		Action:   action,
		Result:   result,
		Detail:   detail,
		OptTime:  time.Now(),
	})
	if err != nil {
		zap.L().Warn("channel: audit log write failed", zap.Error(err))
	}
}

// Provision validates the input, creates the remote channel at the
// automation peer and persists the returned identity as a pending record.
// Nothing is persisted when the remote call fails.
func (s *Service) Provision(ctx context.Context, tenantId int64, oprName, label, ownerContact string) (*domain.ChannelInstance, error) {
	if strings.TrimSpace(label) == "" {
		return nil, &ValidationError{Field: "label", Reason: "must not be empty"}
	}
	digits, ok := normalizeContact(ownerContact)
	if !ok {
		return nil, &ValidationError{Field: "owner_contact", Reason: "must normalize to 10-11 digits"}
	}

	unlock := s.lockTenant(tenantId)
	defer unlock()

	if existing, err := s.store.GetByTenant(ctx, tenantId); err == nil && existing != nil {
		return nil, ErrInstanceExists
	} else if err != nil && !errors.Is(err, ErrInstanceNotFound) {
		return nil, err
	}

	req := peer.InstanceRequest{
		InstanceName: label,
		CompanyLabel: label,
		OwnerContact: contactE164(digits),
		TenantId:     strconv.FormatInt(tenantId, 10),
		TenantName:   s.store.TenantName(ctx, tenantId),
	}
	created, err := s.client.CreateChannel(ctx, req)
	if err != nil {
		s.appendLog(ctx, tenantId, oprName, "provision", "failed", err.Error())
		return nil, &ProvisioningError{Err: err}
	}

	inst := &domain.ChannelInstance{
		ID:               common.UUIDint64(),
		TenantId:         tenantId,
		RemoteInstanceId: created.Id,
		RemoteToken:      created.Token,
		DisplayLabel:     label,
		OwnerContact:     digits,
		Status:           domain.ChannelStatusPending,
	}
	if err := s.store.Create(ctx, inst); err != nil {
		return nil, err
	}

	s.appendLog(ctx, tenantId, oprName, "provision", "ok", created.Id)
	zap.L().Info("channel: instance provisioned",
		zap.Int64("tenant_id", tenantId),
		zap.String("remote_instance_id", created.Id))
	return inst, nil
}

// GeneratePairing asks the peer for a fresh pairing artifact and persists
// whichever of QR payload / numeric code came back. A response carrying
// neither is still a success: the peer may need more time, the caller simply
// retries. When an artifact lands the reconcile loop is started.
func (s *Service) GeneratePairing(ctx context.Context, tenantId int64, oprName string) (*domain.ChannelInstance, error) {
	unlock := s.lockTenant(tenantId)
	defer unlock()

	inst, err := s.store.GetByTenant(ctx, tenantId)
	if err != nil {
		return nil, err
	}

	req := buildRequest(inst, s.store.TenantName(ctx, tenantId))
	res, err := s.client.GeneratePairing(ctx, req)
	if err != nil {
		s.appendLog(ctx, tenantId, oprName, "pairing", "failed", err.Error())
		return nil, &PairingError{Err: err}
	}

	if res.QrPayload != "" || res.NumericCode != "" {
		if err := s.store.SaveArtifacts(ctx, inst.ID, res.QrPayload, res.NumericCode); err != nil {
			return nil, err
		}
		if res.QrPayload != "" {
			inst.QrPayload = res.QrPayload
		}
		if res.NumericCode != "" {
			inst.NumericCode = res.NumericCode
		}
		s.rec.Start(inst)
	} else {
		zap.L().Info("channel: pairing response carried no artifact yet",
			zap.Int64("tenant_id", tenantId))
	}

	s.appendLog(ctx, tenantId, oprName, "pairing", "ok", "")
	return inst, nil
}

// EnsureReconcile re-attaches a polling loop for the tenant's instance when
// the entry condition holds. Page re-mounts and the sweep job both funnel
// through here; starting twice is a no-op.
func (s *Service) EnsureReconcile(ctx context.Context, tenantId int64) (bool, error) {
	inst, err := s.store.GetByTenant(ctx, tenantId)
	if err != nil {
		return false, err
	}
	return s.rec.Start(inst), nil
}

// Teardown releases the remote channel and deletes the local record. The
// remote release must succeed first; a failed release preserves the record.
func (s *Service) Teardown(ctx context.Context, tenantId int64, oprName string) error {
	unlock := s.lockTenant(tenantId)
	defer unlock()

	inst, err := s.store.GetByTenant(ctx, tenantId)
	if err != nil {
		return err
	}

	req := buildRequest(inst, s.store.TenantName(ctx, tenantId))
	if err := s.client.ReleaseChannel(ctx, req); err != nil {
		s.appendLog(ctx, tenantId, oprName, "teardown", "failed", err.Error())
		return &TeardownError{Err: err}
	}

	// Stop polling before the row disappears so no loop operates on a
	// nonexistent record.
	s.rec.Stop(inst.ID)
	if err := s.store.Delete(ctx, inst.ID); err != nil {
		return err
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.TopicChannelRemoved, tenantId, inst.ID)
	}
	s.appendLog(ctx, tenantId, oprName, "teardown", "ok", inst.RemoteInstanceId)
	zap.L().Info("channel: instance removed",
		zap.Int64("tenant_id", tenantId),
		zap.Int64("instance_id", inst.ID))
	return nil
}

// ConfigureWebhook registers a push endpoint at the peer and records the
// returned URL. Independent of the connection state machine; valid at any
// status.
func (s *Service) ConfigureWebhook(ctx context.Context, tenantId int64, oprName string) (string, error) {
	inst, err := s.store.GetByTenant(ctx, tenantId)
	if err != nil {
		return "", err
	}

	req := buildRequest(inst, s.store.TenantName(ctx, tenantId))
	url, err := s.client.ConfigureWebhook(ctx, req)
	if err != nil {
		s.appendLog(ctx, tenantId, oprName, "webhook", "failed", err.Error())
		return "", &WebhookConfigError{Err: err}
	}
	if err := s.store.SetWebhook(ctx, inst.ID, url); err != nil {
		return "", err
	}
	s.appendLog(ctx, tenantId, oprName, "webhook", "ok", url)
	return url, nil
}

// Status returns the tenant's instance together with its loop state.
func (s *Service) Status(ctx context.Context, tenantId int64) (*domain.ChannelInstance, bool, error) {
	inst, err := s.store.GetByTenant(ctx, tenantId)
	if err != nil {
		return nil, false, err
	}
	return inst, s.rec.Running(inst.ID), nil
}

// SweepPending re-attaches reconcile loops for every pending instance that
// carries an artifact. Run from the scheduler so a process restart or a
// closed browser tab does not strand a pending pairing.
func (s *Service) SweepPending(ctx context.Context) int {
	insts, err := s.store.ListPending(ctx)
	if err != nil {
		zap.L().Warn("channel: pending sweep query failed", zap.Error(err))
		return 0
	}
	started := 0
	for i := range insts {
		if s.rec.Start(&insts[i]) {
			started++
		}
	}
	if started > 0 {
		zap.L().Info("channel: pending sweep attached loops", zap.Int("count", started))
	}
	return started
}

// Reconciler exposes the loop manager for lifecycle wiring.
func (s *Service) Reconciler() *Reconciler {
	return s.rec
}
