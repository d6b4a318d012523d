// Package supervisor reconciles the link store with the session registry.
// The store is the source of truth: every active link should have exactly
// one live listener, and no listener should outlive its link. The
// reconciler runs as a scheduled job, corrects drift in both directions,
// and retries failed links with per-link exponential backoff.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/logger"
	"github.com/quorix-labs/botlink/internal/metrics"
	"github.com/quorix-labs/botlink/internal/repository"
)

// Recoverer probes and restarts a single link. Satisfied by the linking
// service, which owns the deauthorization side effects.
type Recoverer interface {
	RecoverLink(ctx context.Context, record repository.LinkRecord) error
}

// Registry is the slice of the session registry the reconciler needs.
type Registry interface {
	Snapshot() []string
	Stop(ctx context.Context, linkID string) error
}

// backoffState tracks one link's retry schedule.
type backoffState struct {
	delay     time.Duration
	notBefore time.Time
}

// Reconciler is a worker.Job that heals drift between the link store and
// the registry on every tick.
type Reconciler struct {
	repo      repository.Link
	registry  Registry
	recoverer Recoverer
	ceiling   time.Duration

	mu       sync.Mutex
	backoffs map[string]*backoffState

	now func() time.Time
}

// NewReconciler creates a reconciler. ceiling caps the per-link retry delay.
func NewReconciler(repo repository.Link, registry Registry, recoverer Recoverer, ceiling time.Duration) *Reconciler {
	return &Reconciler{
		repo:      repo,
		registry:  registry,
		recoverer: recoverer,
		ceiling:   ceiling,
		backoffs:  make(map[string]*backoffState),
		now:       time.Now,
	}
}

// Process runs one reconcile pass.
func (r *Reconciler) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)
	metrics.ReconcileRuns.Inc()

	active, err := r.repo.ListByStatus(ctx, domain.LinkStatusActive)
	if err != nil {
		log.Error(LogMsgReconcileListFailed, LogKeyError, err)
		return err
	}
	flagged, err := r.repo.ListByStatus(ctx, domain.LinkStatusError)
	if err != nil {
		log.Error(LogMsgReconcileListFailed, LogKeyError, err)
		return err
	}

	running := make(map[string]bool)
	for _, id := range r.registry.Snapshot() {
		running[id] = true
	}

	// Listeners the store says should exist.
	allowed := make(map[string]bool, len(active))
	// Links still in the reconcile set, used to prune stale backoff state.
	seen := make(map[string]bool, len(active)+len(flagged))

	for _, record := range active {
		allowed[record.Link.ID] = true
		seen[record.Link.ID] = true
		if running[record.Link.ID] {
			r.clearBackoff(record.Link.ID)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.tryRecover(ctx, record)
	}

	// Flagged links get retried on their backoff schedule. A successful
	// recovery promotes the link back to active, so next tick it is
	// reconciled under the active set.
	for _, record := range flagged {
		seen[record.Link.ID] = true
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.tryRecover(ctx, record) {
			allowed[record.Link.ID] = true
		}
	}

	// Listeners with no live link behind them get stopped.
	for id := range running {
		if allowed[id] {
			continue
		}
		if err := r.registry.Stop(ctx, id); err != nil {
			log.Error(LogMsgStrayStopFailed, LogKeyLinkID, id, LogKeyError, err)
			continue
		}
		metrics.ReconcileCorrections.WithLabelValues(metrics.CorrectionStop).Inc()
		log.Info(LogMsgStoppedStrayListener, LogKeyLinkID, id)
	}

	r.prune(seen)
	return nil
}

// tryRecover attempts one link recovery, honoring its backoff window.
// Returns true when the link was recovered (or needed nothing).
func (r *Reconciler) tryRecover(ctx context.Context, record repository.LinkRecord) bool {
	id := record.Link.ID
	if !r.due(id) {
		return false
	}

	if err := r.recoverer.RecoverLink(ctx, record); err != nil {
		delay := r.bumpBackoff(id)
		metrics.ReconcileCorrections.WithLabelValues(metrics.CorrectionRetry).Inc()
		logger.FromContext(ctx).Warn(LogMsgLinkRecoveryFailed,
			LogKeyLinkID, id, LogKeyRetryIn, delay, LogKeyError, err)
		return false
	}

	r.clearBackoff(id)
	metrics.ReconcileCorrections.WithLabelValues(metrics.CorrectionStart).Inc()
	return true
}

// due reports whether the link's backoff window has elapsed.
func (r *Reconciler) due(linkID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.backoffs[linkID]
	if !ok {
		return true
	}
	return !r.now().Before(state.notBefore)
}

// bumpBackoff doubles the link's retry delay up to the ceiling and
// returns the new delay.
func (r *Reconciler) bumpBackoff(linkID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.backoffs[linkID]
	if !ok {
		state = &backoffState{delay: BaseBackoff}
		r.backoffs[linkID] = state
	} else {
		state.delay *= 2
		if state.delay > r.ceiling {
			state.delay = r.ceiling
		}
	}
	state.notBefore = r.now().Add(state.delay)
	return state.delay
}

func (r *Reconciler) clearBackoff(linkID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backoffs, linkID)
}

// prune drops backoff state for links that left the reconcile set, so
// revoked links do not leak entries.
func (r *Reconciler) prune(seen map[string]bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.backoffs {
		if !seen[id] {
			delete(r.backoffs, id)
		}
	}
}
