package channel

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/internal/peer"
)

// memStore is an in-memory InstanceStore recording call counts.
type memStore struct {
	mu    sync.Mutex
	insts map[int64]*domain.ChannelInstance
	logs  []domain.ChannelOprLog

	createCalls int
	markCalls   int
	deleteCalls int
}

func newMemStore() *memStore {
	return &memStore{insts: make(map[int64]*domain.ChannelInstance)}
}

func (m *memStore) GetByTenant(_ context.Context, tenantId int64) (*domain.ChannelInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.insts {
		if inst.TenantId == tenantId {
			cp := *inst
			return &cp, nil
		}
	}
	return nil, ErrInstanceNotFound
}

func (m *memStore) GetByID(_ context.Context, id int64) (*domain.ChannelInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.insts[id]; ok {
		cp := *inst
		return &cp, nil
	}
	return nil, ErrInstanceNotFound
}

func (m *memStore) ListPending(_ context.Context) ([]domain.ChannelInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChannelInstance
	for _, inst := range m.insts {
		if inst.Status == domain.ChannelStatusPending {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, inst *domain.ChannelInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	cp := *inst
	m.insts[inst.ID] = &cp
	return nil
}

func (m *memStore) SaveArtifacts(_ context.Context, id int64, qrPayload, numericCode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.insts[id]
	if !ok {
		return ErrInstanceNotFound
	}
	if qrPayload != "" {
		inst.QrPayload = qrPayload
	}
	if numericCode != "" {
		inst.NumericCode = numericCode
	}
	return nil
}

func (m *memStore) SetWebhook(_ context.Context, id int64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.insts[id]
	if !ok {
		return ErrInstanceNotFound
	}
	inst.WebhookEndpoint = url
	return nil
}

func (m *memStore) MarkConnected(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	inst, ok := m.insts[id]
	if !ok {
		return false, nil
	}
	if inst.Status == domain.ChannelStatusConnected {
		return false, nil
	}
	inst.Status = domain.ChannelStatusConnected
	return true, nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	delete(m.insts, id)
	return nil
}

func (m *memStore) TenantName(_ context.Context, tenantId int64) string {
	return "clinic"
}

func (m *memStore) AppendLog(_ context.Context, log *domain.ChannelOprLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memStore) get(id int64) *domain.ChannelInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.insts[id]; ok {
		cp := *inst
		return &cp
	}
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.insts)
}

// stubPeer is a scriptable peer.Client.
type stubPeer struct {
	mu sync.Mutex

	createRes   *peer.CreateResult
	createErr   error
	createCalls int

	pairRes   *peer.PairingResult
	pairErr   error
	pairCalls int

	checkFn    func(call int) (bool, error)
	checkCalls int

	releaseErr   error
	releaseCalls int

	webhookURL string
	webhookErr error
}

var _ peer.Client = (*stubPeer)(nil)

func (p *stubPeer) CreateChannel(context.Context, peer.InstanceRequest) (*peer.CreateResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	return p.createRes, nil
}

func (p *stubPeer) GeneratePairing(context.Context, peer.InstanceRequest) (*peer.PairingResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pairCalls++
	if p.pairErr != nil {
		return nil, p.pairErr
	}
	return p.pairRes, nil
}

func (p *stubPeer) CheckConnection(context.Context, peer.InstanceRequest) (bool, error) {
	p.mu.Lock()
	p.checkCalls++
	call := p.checkCalls
	fn := p.checkFn
	p.mu.Unlock()
	if fn == nil {
		return false, errors.New("no check behavior scripted")
	}
	return fn(call)
}

func (p *stubPeer) ReleaseChannel(context.Context, peer.InstanceRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseCalls++
	return p.releaseErr
}

func (p *stubPeer) ConfigureWebhook(context.Context, peer.InstanceRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.webhookErr != nil {
		return "", p.webhookErr
	}
	return p.webhookURL, nil
}

func (p *stubPeer) checks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkCalls
}
