package channel

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/internal/peer"
	"github.com/clinicore/clinicore/pkg/eventbus"
	"github.com/clinicore/clinicore/pkg/metrics"
)

const defaultTickWorkers = 32

// Reconciler drives the per-instance polling loops that converge a local
// channel record with the true state of the remote session. A loop exists
// only while its record is pending with a pairing artifact; it stops the
// moment the record connects, is deleted, or is explicitly cancelled.
type Reconciler struct {
	store    InstanceStore
	client   peer.Client
	bus      eventbus.Publisher
	interval time.Duration

	pool *ants.Pool

	mu    sync.Mutex
	loops map[int64]*loop
}

// loop is one active polling session for one instance. The stopped flag is
// the commit gate: a tick that was already in flight when the loop stopped
// must not apply its result.
type loop struct {
	inst domain.ChannelInstance
	req  peer.InstanceRequest
	quit chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (l *loop) cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.quit)
}

func NewReconciler(store InstanceStore, client peer.Client, bus eventbus.Publisher, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	pool, err := ants.NewPool(defaultTickWorkers, ants.WithNonblocking(false))
	if err != nil {
		panic(err)
	}
	return &Reconciler{
		store:    store,
		client:   client,
		bus:      bus,
		interval: interval,
		pool:     pool,
		loops:    make(map[int64]*loop),
	}
}

// Start begins polling for the instance. The entry condition is strict: the
// record must be pending and carry at least one pairing artifact. Returns
// whether a new loop was started; an already-running loop is never
// duplicated.
func (r *Reconciler) Start(inst *domain.ChannelInstance) bool {
	if inst == nil || inst.Status != domain.ChannelStatusPending || !inst.HasPairingArtifact() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.loops[inst.ID]; running {
		return false
	}
	l := &loop{
		inst: *inst,
		req:  buildRequest(inst, r.store.TenantName(context.Background(), inst.TenantId)),
		quit: make(chan struct{}),
	}
	r.loops[inst.ID] = l
	go r.run(l)
	zap.L().Info("channel: reconcile loop started",
		zap.Int64("instance_id", inst.ID),
		zap.Int64("tenant_id", inst.TenantId))
	return true
}

// Stop cancels the loop for the instance, if one is running. Safe to call
// for instances without a loop.
func (r *Reconciler) Stop(instanceId int64) {
	r.mu.Lock()
	l := r.loops[instanceId]
	delete(r.loops, instanceId)
	r.mu.Unlock()
	if l != nil {
		l.cancel()
		zap.L().Info("channel: reconcile loop stopped", zap.Int64("instance_id", instanceId))
	}
}

// Running reports whether a loop is active for the instance.
func (r *Reconciler) Running(instanceId int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, running := r.loops[instanceId]
	return running
}

// Shutdown cancels every loop and releases the tick worker pool.
func (r *Reconciler) Shutdown() {
	r.mu.Lock()
	loops := make([]*loop, 0, len(r.loops))
	for _, l := range r.loops {
		loops = append(loops, l)
	}
	r.loops = make(map[int64]*loop)
	r.mu.Unlock()
	for _, l := range loops {
		l.cancel()
	}
	r.pool.Release()
}

func (r *Reconciler) run(l *loop) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.quit:
			return
		case <-ticker.C:
			var wg sync.WaitGroup
			wg.Add(1)
			if err := r.pool.Submit(func() {
				defer wg.Done()
				r.tick(l)
			}); err != nil {
				wg.Done()
				return
			}
			wg.Wait()
		}
	}
}

// tick issues one check-connection call. Negative or ambiguous signals and
// transient failures leave everything untouched; the next tick retries.
func (r *Reconciler) tick(l *loop) {
	metrics.IncrCounter("channel_reconcile_ticks", 1)
	connected, err := r.client.CheckConnection(context.Background(), l.req)
	if err != nil {
		zap.L().Debug("channel: reconcile tick failed",
			zap.Int64("instance_id", l.inst.ID), zap.Error(err))
		return
	}
	if !connected {
		return
	}

	// Commit gate: a response processed after cancellation must not mutate
	// the record.
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	changed, err := r.store.MarkConnected(context.Background(), l.inst.ID)
	if err != nil {
		l.mu.Unlock()
		zap.L().Warn("channel: failed to persist connected status",
			zap.Int64("instance_id", l.inst.ID), zap.Error(err))
		return
	}
	l.stopped = true
	close(l.quit)
	l.mu.Unlock()

	r.mu.Lock()
	delete(r.loops, l.inst.ID)
	r.mu.Unlock()

	if changed {
		metrics.IncrCounter("channel_connected", 1)
		zap.L().Info("channel: instance connected",
			zap.Int64("instance_id", l.inst.ID),
			zap.Int64("tenant_id", l.inst.TenantId))
		if r.bus != nil {
			r.bus.Publish(eventbus.TopicChannelConnected, l.inst.TenantId, l.inst.ID)
		}
	}
}
