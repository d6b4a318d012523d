// Package session owns the set of live listeners in this process. The
// registry is authoritative about local liveness only; it never reads or
// writes the link store. Correlating the two is the supervisor's job.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quorix-labs/botlink/internal/concurrency"
	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/logger"
	"github.com/quorix-labs/botlink/internal/messenger"
	"github.com/quorix-labs/botlink/internal/metrics"
)

// State is the lifecycle phase of one live session.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateCrashed  State = "crashed"
)

// Sink receives every inbound message from the listeners the registry runs.
// Deliver must not block; the bridge hands off to a per-link mailbox.
// Release fires after the link's listener has terminated so the sink can
// reclaim whatever it holds for the link.
type Sink interface {
	Deliver(link domain.BotServiceLink, msg messenger.Message)
	Release(linkID string)
}

// liveSession is one running listener. The link snapshot it carries is the
// binding messages are delivered against; it is fixed for the session's
// lifetime, so rebinding a link means a new session.
type liveSession struct {
	link      domain.BotServiceLink
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	mu      sync.Mutex
	state   State
	exitErr error
}

func (ls *liveSession) getState() State {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.state
}

func (ls *liveSession) setState(s State) {
	ls.mu.Lock()
	ls.state = s
	ls.mu.Unlock()
}

// markRunning promotes starting to running on the listener's first ready
// callback. Later states (stopping, crashed) win the race.
func (ls *liveSession) markRunning() {
	ls.mu.Lock()
	if ls.state == StateStarting {
		ls.state = StateRunning
	}
	ls.mu.Unlock()
}

func (ls *liveSession) setCrashed(err error) {
	ls.mu.Lock()
	ls.state = StateCrashed
	ls.exitErr = err
	ls.mu.Unlock()
}

// Registry maps link IDs to live sessions. Per-key locks serialize
// start/stop/replace for one link; the map lock is only held for lookups
// and insert/delete.
type Registry struct {
	adapter      messenger.Adapter
	sink         Sink
	stopDeadline time.Duration
	locks        *concurrency.LockManager

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewRegistry creates an empty registry. sink is shared by every listener
// the registry starts.
func NewRegistry(adapter messenger.Adapter, sink Sink, stopDeadline time.Duration) *Registry {
	return &Registry{
		adapter:      adapter,
		sink:         sink,
		stopDeadline: stopDeadline,
		locks:        concurrency.NewLockManager(),
		sessions:     make(map[string]*liveSession),
	}
}

// Start launches a listener for the link. Returns domain.ErrConflict when a
// listener for the link is already starting or running. A stopping entry is
// waited out first.
func (r *Registry) Start(link domain.BotServiceLink, secretBlob []byte) error {
	lock := r.locks.GetLock(link.ID)
	lock.Lock()
	defer lock.Unlock()
	return r.startLocked(link, secretBlob)
}

func (r *Registry) startLocked(link domain.BotServiceLink, secretBlob []byte) error {
	if existing := r.lookup(link.ID); existing != nil {
		if existing.getState() != StateStopping {
			return fmt.Errorf("%w: listener already live for link %s", domain.ErrConflict, link.ID)
		}
		<-existing.done
		r.removeEntry(link.ID, existing)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ls := &liveSession{
		link:      link,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
		state:     StateStarting,
	}

	r.mu.Lock()
	r.sessions[link.ID] = ls
	r.mu.Unlock()

	metrics.ListenersRunning.Inc()
	metrics.ListenerStarts.Inc()
	logger.Debug(LogMsgListenerStarted, "link_id", link.ID, "bot_id", link.BotID)

	go r.run(ctx, ls, secretBlob)
	return nil
}

// run hosts one listener until cancel or crash. It must not take per-key
// locks: Stop holds them while waiting on done.
func (r *Registry) run(ctx context.Context, ls *liveSession, secretBlob []byte) {
	defer close(ls.done)

	err := r.adapter.RunListener(ctx, secretBlob, messenger.ListenerHooks{
		OnReady: ls.markRunning,
		OnMessage: func(msg messenger.Message) {
			r.sink.Deliver(ls.link, msg)
		},
	})
	if ctx.Err() != nil {
		return
	}

	ls.setCrashed(err)
	metrics.ListenerCrashes.Inc()
	logger.Warn(LogMsgListenerCrashed, "link_id", ls.link.ID, "error", err)
	r.removeEntry(ls.link.ID, ls)
}

// Stop cancels the link's listener and waits for it to terminate, bounded by
// the stop deadline. Idempotent: stopping an absent link is a no-op.
func (r *Registry) Stop(ctx context.Context, linkID string) error {
	lock := r.locks.GetLock(linkID)
	lock.Lock()
	defer lock.Unlock()
	return r.stopLocked(ctx, linkID)
}

func (r *Registry) stopLocked(ctx context.Context, linkID string) error {
	ls := r.lookup(linkID)
	if ls == nil {
		return nil
	}

	ls.setState(StateStopping)
	ls.cancel()

	timer := time.NewTimer(r.stopDeadline)
	defer timer.Stop()
	select {
	case <-ls.done:
	case <-timer.C:
		// The adapter will time the dangling transport out on its own.
		logger.Warn(LogMsgStopDeadlineExceeded, "link_id", linkID)
	case <-ctx.Done():
	}

	r.removeEntry(linkID, ls)
	metrics.ListenerStops.Inc()
	logger.Debug(LogMsgListenerStopped, "link_id", linkID)
	return nil
}

// Replace atomically swaps the listener for a link: stop the old one, start
// a new one carrying the (possibly rebound) link. No window exists in which
// two listeners for the link run concurrently.
func (r *Registry) Replace(ctx context.Context, link domain.BotServiceLink, secretBlob []byte) error {
	lock := r.locks.GetLock(link.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := r.stopLocked(ctx, link.ID); err != nil {
		return err
	}
	return r.startLocked(link, secretBlob)
}

// Snapshot returns the link IDs with a listener currently starting or
// running. The supervisor diffs this against the link store.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sessions))
	for id, ls := range r.sessions {
		switch ls.getState() {
		case StateStarting, StateRunning:
			ids = append(ids, id)
		}
	}
	return ids
}

// StopAll stops every live listener. Used on shutdown.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = r.Stop(ctx, id)
		}(id)
	}
	wg.Wait()
}

func (r *Registry) lookup(linkID string) *liveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[linkID]
}

// removeEntry deletes the entry only when it still points at ls, so a stop
// and a crash racing on the same session decrement the gauge and release the
// sink exactly once.
func (r *Registry) removeEntry(linkID string, ls *liveSession) {
	r.mu.Lock()
	cur, ok := r.sessions[linkID]
	if ok && cur == ls {
		delete(r.sessions, linkID)
		r.mu.Unlock()
		metrics.ListenersRunning.Dec()
		r.sink.Release(linkID)
		return
	}
	r.mu.Unlock()
}
