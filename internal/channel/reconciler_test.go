package channel

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/pkg/eventbus"
)

func pendingInstance(id, tenantId int64) *domain.ChannelInstance {
	return &domain.ChannelInstance{
		ID:               id,
		TenantId:         tenantId,
		RemoteInstanceId: "remote-1",
		RemoteToken:      "tok",
		DisplayLabel:     "clinica-x",
		Status:           domain.ChannelStatusPending,
		QrPayload:        "qr",
	}
}

func TestReconciler_EntryCondition(t *testing.T) {
	store := newMemStore()
	client := &stubPeer{checkFn: func(int) (bool, error) { return false, nil }}
	rec := NewReconciler(store, client, nil, 10*time.Millisecond)
	defer rec.Shutdown()

	assert.False(t, rec.Start(nil))

	noArtifact := pendingInstance(1, 100)
	noArtifact.QrPayload = ""
	assert.False(t, rec.Start(noArtifact), "no loop without an artifact")

	connected := pendingInstance(2, 200)
	connected.Status = domain.ChannelStatusConnected
	assert.False(t, rec.Start(connected), "no loop for connected records")

	numericOnly := pendingInstance(3, 300)
	numericOnly.QrPayload = ""
	numericOnly.NumericCode = "1111-2222"
	require.NoError(t, store.Create(context.Background(), numericOnly))
	assert.True(t, rec.Start(numericOnly), "numeric code satisfies the artifact condition")
}

func TestReconciler_NoDuplicateLoops(t *testing.T) {
	store := newMemStore()
	client := &stubPeer{checkFn: func(int) (bool, error) { return false, nil }}
	rec := NewReconciler(store, client, nil, 10*time.Millisecond)
	defer rec.Shutdown()

	inst := pendingInstance(1, 100)
	require.NoError(t, store.Create(context.Background(), inst))

	assert.True(t, rec.Start(inst))
	assert.False(t, rec.Start(inst), "second start for the same record is a no-op")
	assert.True(t, rec.Running(inst.ID))
}

func TestReconciler_ConvergesAfterNegativeTicks(t *testing.T) {
	store := newMemStore()
	// Three closed-state answers, then the session opens.
	client := &stubPeer{checkFn: func(call int) (bool, error) { return call >= 4, nil }}
	rec := NewReconciler(store, client, nil, 10*time.Millisecond)
	defer rec.Shutdown()

	inst := pendingInstance(1, 100)
	require.NoError(t, store.Create(context.Background(), inst))
	require.True(t, rec.Start(inst))

	require.Eventually(t, func() bool {
		got := store.get(inst.ID)
		return got != nil && got.Status == domain.ChannelStatusConnected
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return !rec.Running(inst.ID) }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, client.checks(), 4)

	// Exactly one status write, and no further ticks once stopped.
	assert.Equal(t, 1, store.markCalls)
	checksAtStop := client.checks()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, checksAtStop, client.checks())
}

func TestReconciler_TransientFailuresAreSwallowed(t *testing.T) {
	store := newMemStore()
	client := &stubPeer{checkFn: func(call int) (bool, error) {
		if call < 3 {
			return false, errors.New("peer unreachable")
		}
		return true, nil
	}}
	rec := NewReconciler(store, client, nil, 10*time.Millisecond)
	defer rec.Shutdown()

	inst := pendingInstance(1, 100)
	require.NoError(t, store.Create(context.Background(), inst))
	require.True(t, rec.Start(inst))

	require.Eventually(t, func() bool {
		got := store.get(inst.ID)
		return got != nil && got.Status == domain.ChannelStatusConnected
	}, 2*time.Second, 5*time.Millisecond, "loop survives failed ticks and converges")
}

func TestReconciler_RaceFreeCancellation(t *testing.T) {
	store := newMemStore()
	tickStarted := make(chan struct{})
	proceed := make(chan struct{})
	client := &stubPeer{checkFn: func(call int) (bool, error) {
		if call == 1 {
			close(tickStarted)
			<-proceed
			return true, nil
		}
		return false, nil
	}}
	rec := NewReconciler(store, client, nil, 10*time.Millisecond)
	defer rec.Shutdown()

	inst := pendingInstance(1, 100)
	require.NoError(t, store.Create(context.Background(), inst))
	require.True(t, rec.Start(inst))

	// Cancel while the first tick's remote call is in flight, then let the
	// positive response arrive.
	<-tickStarted
	rec.Stop(inst.ID)
	close(proceed)

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, store.markCalls, "in-flight tick must not commit after cancellation")
	assert.Equal(t, domain.ChannelStatusPending, store.get(inst.ID).Status)
}

func TestReconciler_PublishesConnectedEvent(t *testing.T) {
	store := newMemStore()
	client := &stubPeer{checkFn: func(int) (bool, error) { return true, nil }}
	bus := eventbus.New()
	rec := NewReconciler(store, client, bus, 10*time.Millisecond)
	defer rec.Shutdown()

	var gotTenant atomic.Int64
	require.NoError(t, bus.Subscribe(eventbus.TopicChannelConnected, func(tenantId, instanceId int64) {
		gotTenant.Store(tenantId)
	}))

	inst := pendingInstance(1, 4321)
	require.NoError(t, store.Create(context.Background(), inst))
	require.True(t, rec.Start(inst))

	require.Eventually(t, func() bool { return gotTenant.Load() == 4321 },
		2*time.Second, 5*time.Millisecond)
}

func TestReconciler_StopIsIdempotent(t *testing.T) {
	store := newMemStore()
	client := &stubPeer{checkFn: func(int) (bool, error) { return false, nil }}
	rec := NewReconciler(store, client, nil, 10*time.Millisecond)
	defer rec.Shutdown()

	inst := pendingInstance(1, 100)
	require.NoError(t, store.Create(context.Background(), inst))
	require.True(t, rec.Start(inst))

	rec.Stop(inst.ID)
	rec.Stop(inst.ID)
	rec.Stop(999)
	assert.False(t, rec.Running(inst.ID))

	// A fresh loop can be started after a stop (view re-mount).
	assert.True(t, rec.Start(inst))
}
