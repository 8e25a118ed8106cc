// Package engine implements the review queue controller and the approval
// commit engine that together drive the human-in-the-loop triage workflow.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/caderno-vivo/caderno/internal/model"
	"github.com/caderno-vivo/caderno/internal/service"
	"github.com/caderno-vivo/caderno/internal/triage"
)

// Item is one message resolved for review: its queue, the editable
// candidate, and the best-effort sender identity (display context only,
// never financial client assignment).
type Item struct {
	Message   model.PendingMessage
	Queue     model.Queue
	Candidate model.CandidateRecord
	Sender    *model.Client
}

// Config holds controller construction options. The refiner credential is
// resolved by the caller into a service.Refiner; a nil refiner disables
// refinement entirely.
type Config struct {
	Policy   triage.Policy
	PageSize int
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		Policy:   triage.DefaultPolicy(),
		PageSize: 10,
	}
}

// Controller orchestrates fetch, triage, per-item editing, pagination and
// commits. All state behind one mutex: the engine is logically
// single-threaded, interleaving UI-triggered and notification-triggered
// work.
type Controller struct {
	messages service.MessageStore
	refs     service.ReferenceStore
	ledger   service.LedgerStore
	refiner  service.Refiner

	policy   triage.Policy
	pageSize int

	// refineMu serializes the refinement pass itself: concurrent Loads
	// (Restore's direct reload racing a Watch-triggered reload) must never
	// put two Refine calls in flight.
	refineMu sync.Mutex

	mu          sync.Mutex
	refSet      model.ReferenceSet
	items       map[string]*Item
	order       []string // message ids, newest first
	refined     map[string]bool
	inFlight    map[string]bool
	activeQueue model.Queue
	page        int
	lastCounts  map[model.Queue]int

	// updates receives one coalesced signal per completed Load, so a
	// rendering surface can redraw after Watch-triggered reloads.
	updates chan struct{}
}

// New creates a review queue controller. refiner may be nil.
func New(messages service.MessageStore, refs service.ReferenceStore, ledger service.LedgerStore, refiner service.Refiner, cfg Config) *Controller {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.Policy == (triage.Policy{}) {
		cfg.Policy = triage.DefaultPolicy()
	}
	return &Controller{
		messages:    messages,
		refs:        refs,
		ledger:      ledger,
		refiner:     refiner,
		policy:      cfg.Policy,
		pageSize:    cfg.PageSize,
		items:       make(map[string]*Item),
		refined:     make(map[string]bool),
		inFlight:    make(map[string]bool),
		activeQueue: model.QueueTransaction,
		page:        1,
		lastCounts:  make(map[model.Queue]int),
		updates:     make(chan struct{}, 1),
	}
}

// Load runs the full fetch/classify/extract pipeline and then the
// sequential refinement pass. Classification and extraction are cheap pure
// functions, so a full recompute on every change beats incremental patching.
// Local candidate edits do not survive a reload; the canonical state is
// always store-derived.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()

	refSet, err := c.fetchReferences(ctx)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to load reference data: %w", err)
	}
	c.refSet = refSet

	msgs, err := c.messages.GetTriageMessages(ctx)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to load triage messages: %w", err)
	}

	c.items = make(map[string]*Item, len(msgs))
	c.order = c.order[:0]
	for _, msg := range msgs {
		item := c.resolve(msg)
		c.items[msg.ID] = item
		c.order = append(c.order, msg.ID)
	}

	c.resetPagesOnCountChange()
	c.mu.Unlock()

	c.refinePending(ctx)

	select {
	case c.updates <- struct{}{}:
	default:
	}
	return nil
}

// Updates signals once per completed Load. Signals coalesce; a receiver
// should re-read the queues rather than count them.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

// resolve derives queue, candidate and sender for one message. Error-status
// messages land in the discard queue: discarded and error are one state.
func (c *Controller) resolve(msg model.PendingMessage) *Item {
	queue := c.policy.Classify(msg.Content)
	if msg.Status == model.StatusError {
		queue = model.QueueDiscard
	}

	candidate := c.policy.Extract(msg.Content, c.refSet)
	if candidate.Date == "" {
		candidate.Date = msg.CreatedAt.Format("2006-01-02")
	}

	return &Item{
		Message:   msg,
		Queue:     queue,
		Candidate: candidate,
		Sender:    triage.MatchSender(msg.SourceChannelID, c.refSet.Clients),
	}
}

func (c *Controller) fetchReferences(ctx context.Context) (model.ReferenceSet, error) {
	categories, err := c.refs.GetCategories(ctx)
	if err != nil {
		return model.ReferenceSet{}, err
	}
	accounts, err := c.refs.GetAccounts(ctx)
	if err != nil {
		return model.ReferenceSet{}, err
	}
	clients, err := c.refs.GetClients(ctx)
	if err != nil {
		return model.ReferenceSet{}, err
	}
	return model.ReferenceSet{Categories: categories, Accounts: accounts, Clients: clients}, nil
}

// refinePending upgrades heuristic candidates with the AI adapter: strictly
// sequential, one call in flight, each pending message attempted at most
// once per session even when the attempt fails. Failures degrade silently;
// the heuristic candidate stands.
func (c *Controller) refinePending(ctx context.Context) {
	if c.refiner == nil {
		return
	}

	c.refineMu.Lock()
	defer c.refineMu.Unlock()

	c.mu.Lock()
	var todo []string
	for _, id := range c.order {
		item := c.items[id]
		if item.Message.Status != model.StatusPending || c.refined[id] {
			continue
		}
		todo = append(todo, id)
	}
	refSet := c.refSet
	c.mu.Unlock()

	for _, id := range todo {
		c.mu.Lock()
		item, ok := c.items[id]
		if !ok || c.refined[id] {
			c.mu.Unlock()
			continue
		}
		c.refined[id] = true
		content := item.Message.Content
		c.mu.Unlock()

		refinement, err := c.refiner.Refine(ctx, content, refSet)
		if err != nil {
			slog.Debug("refinement failed, keeping heuristic candidate",
				"message_id", id,
				"error", err)
			continue
		}

		c.mu.Lock()
		if item, ok := c.items[id]; ok && refinement != nil {
			item.Candidate = model.Merge(item.Candidate, refinement)
			if refinement.Queue != "" && item.Message.Status == model.StatusPending {
				item.Queue = refinement.Queue
			}
		}
		c.mu.Unlock()
	}
}

// Watch reloads the queues whenever the message store signals a change.
// Blocks until the context is done.
func (c *Controller) Watch(ctx context.Context) {
	ch := c.messages.Subscribe()
	defer c.messages.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := c.Load(ctx); err != nil {
				slog.Error("queue reload failed", "error", err)
			}
		}
	}
}

// Queue returns all items in a queue, newest first.
func (c *Controller) Queue(queue model.Queue) []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queueItems(queue)
}

func (c *Controller) queueItems(queue model.Queue) []Item {
	var out []Item
	for _, id := range c.order {
		if item := c.items[id]; item.Queue == queue {
			out = append(out, *item)
		}
	}
	return out
}

// SetActiveQueue switches the queue under review and resets to page 1.
func (c *Controller) SetActiveQueue(queue model.Queue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeQueue != queue {
		c.activeQueue = queue
		c.page = 1
	}
}

// SetPage moves to a page of the active queue, clamped to valid range.
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if last := c.lastPage(); page > last {
		page = last
	}
	c.page = page
}

// Page returns the current page of the active queue plus pagination state.
func (c *Controller) Page() (items []Item, page, totalPages int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := c.queueItems(c.activeQueue)
	totalPages = c.lastPage()
	page = c.page

	start := (page - 1) * c.pageSize
	if start >= len(all) {
		return nil, page, totalPages
	}
	end := start + c.pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], page, totalPages
}

func (c *Controller) lastPage() int {
	count := len(c.queueItems(c.activeQueue))
	if count == 0 {
		return 1
	}
	return (count + c.pageSize - 1) / c.pageSize
}

// resetPagesOnCountChange resets to page 1 when any queue's item count
// changed during a reload.
func (c *Controller) resetPagesOnCountChange() {
	counts := map[model.Queue]int{}
	for _, id := range c.order {
		counts[c.items[id].Queue]++
	}
	for _, q := range []model.Queue{model.QueueTransaction, model.QueueSale, model.QueueDiscard} {
		if counts[q] != c.lastCounts[q] {
			c.page = 1
			break
		}
	}
	c.lastCounts = counts
}

// SetCandidate replaces the editable candidate for a message.
func (c *Controller) SetCandidate(messageID string, candidate model.CandidateRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[messageID]
	if !ok {
		return fmt.Errorf("message %s not loaded", messageID)
	}
	item.Candidate = candidate
	return nil
}

// Item returns a snapshot of one loaded item.
func (c *Controller) Item(messageID string) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[messageID]
	if !ok {
		return Item{}, false
	}
	return *item, true
}
