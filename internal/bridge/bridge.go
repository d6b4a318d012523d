// Package bridge fans inbound listener messages into the event bus. Every
// listener gets its own bounded mailbox, created on first Deliver and torn
// down on Release, so a flooded link drops its own overflow without starving
// quiet links. Listener callbacks never block: when a mailbox is full the
// message is dropped and a drop notice is published instead.
package bridge

import (
	"context"
	"sync"

	"github.com/quorix-labs/botlink/internal/domain"
	"github.com/quorix-labs/botlink/internal/event"
	"github.com/quorix-labs/botlink/internal/logger"
	"github.com/quorix-labs/botlink/internal/messenger"
	"github.com/quorix-labs/botlink/internal/metrics"
)

type item struct {
	link domain.BotServiceLink
	msg  messenger.Message
}

// mailbox is one link's queue plus its teardown signal. A dedicated drain
// goroutine publishes its items to the bus, so bus handlers run off the
// listener loop and one link's slow consumer never backs up another's.
type mailbox struct {
	ch      chan item
	release chan struct{}
}

// Bridge is the on-message sink for all listeners.
type Bridge struct {
	bus      event.Bus
	capacity int

	dropNote  chan struct{}
	shutdown  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	mailboxes map[string]*mailbox
	drops     map[string]uint64
	dirty     map[string]uint64
}

// New creates a bridge. capacity bounds each link's mailbox.
func New(bus event.Bus, capacity int) *Bridge {
	if capacity <= 0 {
		capacity = DefaultMailboxCapacity
	}
	b := &Bridge{
		bus:       bus,
		capacity:  capacity,
		dropNote:  make(chan struct{}, 1),
		shutdown:  make(chan struct{}),
		mailboxes: make(map[string]*mailbox),
		drops:     make(map[string]uint64),
		dirty:     make(map[string]uint64),
	}
	b.wg.Add(1)
	go b.dropFlusher()
	return b
}

// Deliver hands one inbound message to the link's mailbox, creating the
// mailbox on first use. Never blocks: on a full mailbox the message is
// dropped and the link's drop counter advances.
func (b *Bridge) Deliver(link domain.BotServiceLink, msg messenger.Message) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	mb, ok := b.mailboxes[link.ID]
	if !ok {
		mb = &mailbox{
			ch:      make(chan item, b.capacity),
			release: make(chan struct{}),
		}
		b.mailboxes[link.ID] = mb
		b.wg.Add(1)
		go b.drain(mb)
	}
	b.mu.Unlock()

	select {
	case mb.ch <- item{link: link, msg: msg}:
	default:
		b.recordDrop(link.ID)
	}
}

// Release tears down the link's mailbox once its listener has terminated.
// Queued messages are flushed before the drain goroutine exits. A link
// without a mailbox is a no-op.
func (b *Bridge) Release(linkID string) {
	b.mu.Lock()
	mb, ok := b.mailboxes[linkID]
	if ok {
		delete(b.mailboxes, linkID)
	}
	b.mu.Unlock()

	if ok {
		close(mb.release)
	}
}

// DropCount returns the link's lifetime drop counter.
func (b *Bridge) DropCount(linkID string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drops[linkID]
}

// Shutdown stops every drain goroutine after flushing whatever the
// mailboxes still hold.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.shutdown)
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge) recordDrop(linkID string) {
	b.mu.Lock()
	b.drops[linkID]++
	b.dirty[linkID] = b.drops[linkID]
	b.mu.Unlock()

	metrics.MessagesDropped.Inc()
	select {
	case b.dropNote <- struct{}{}:
	default:
	}
}

func (b *Bridge) drain(mb *mailbox) {
	defer b.wg.Done()

	for {
		select {
		case <-b.shutdown:
			b.flush(mb)
			return
		case <-mb.release:
			b.flush(mb)
			return
		case it := <-mb.ch:
			b.publish(it)
		}
	}
}

func (b *Bridge) dropFlusher() {
	defer b.wg.Done()

	for {
		select {
		case <-b.shutdown:
			b.flushDrops()
			logger.Debug(LogMsgMailboxDrained)
			return
		case <-b.dropNote:
			b.flushDrops()
		}
	}
}

func (b *Bridge) flush(mb *mailbox) {
	for {
		select {
		case it := <-mb.ch:
			b.publish(it)
		default:
			return
		}
	}
}

func (b *Bridge) publish(it item) {
	ev := event.NewIncomingMessageEvent(event.IncomingMessagePayloadV1{
		LinkID:                 it.link.ID,
		BotID:                  it.link.BotID,
		ExternalConversationID: it.msg.ConversationID,
		SenderExternalID:       it.msg.SenderID,
		SenderDisplay:          it.msg.SenderDisplay,
		Body:                   it.msg.Body,
		ReceivedAt:             it.msg.ReceivedAt,
	})
	if err := b.bus.Publish(context.Background(), ev); err != nil {
		logger.Warn(LogMsgPublishFailed, "link_id", it.link.ID, "error", err)
	}
	metrics.MessagesReceived.WithLabelValues(string(it.link.Platform)).Inc()
}

// flushDrops publishes one coalesced drop notice per affected link.
func (b *Bridge) flushDrops() {
	b.mu.Lock()
	pending := b.dirty
	b.dirty = make(map[string]uint64)
	b.mu.Unlock()

	for linkID, counter := range pending {
		ev := event.NewMessageDroppedEvent(linkID, counter)
		if err := b.bus.Publish(context.Background(), ev); err != nil {
			logger.Warn(LogMsgDropNoticeError, "link_id", linkID, "error", err)
		}
	}
}
