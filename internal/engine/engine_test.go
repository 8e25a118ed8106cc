package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caderno-vivo/caderno/internal/common"
	"github.com/caderno-vivo/caderno/internal/model"
	"github.com/caderno-vivo/caderno/internal/service"
)

func testRefs() model.ReferenceSet {
	return model.ReferenceSet{
		Categories: []model.Category{
			{ID: "cat-1", Name: "Fornecedor"},
			{ID: "cat-2", Name: "Fornecedor de Insumos", ParentID: "cat-1"},
		},
		Accounts: []model.Account{
			{ID: "acc-1", Name: "Caixa"},
		},
		Clients: []model.Client{
			{ID: "cli-1", Name: "João Silva", Phone: "5511987654321"},
			{ID: "cli-2", Name: "Sara Semijoias", Phone: "5521912345678"},
		},
	}
}

type fixture struct {
	controller *Controller
	messages   *mockMessageStore
	ledger     *mockLedgerStore
	refiner    *mockRefiner
}

func newFixture(t *testing.T, refiner *mockRefiner) *fixture {
	t.Helper()

	messages := newMockMessageStore()
	ledger := &mockLedgerStore{}

	// A typed nil inside the interface would defeat the controller's
	// nil-refiner check.
	var r service.Refiner
	if refiner != nil {
		r = refiner
	}

	return &fixture{
		controller: New(messages, &mockReferenceStore{refs: testRefs()}, ledger, r, DefaultConfig()),
		messages:   messages,
		ledger:     ledger,
		refiner:    refiner,
	}
}

func pendingMsg(id, content string) model.PendingMessage {
	return model.PendingMessage{
		ID:              id,
		CreatedAt:       time.Now(),
		SourceChannelID: "5511987654321",
		Content:         content,
		Status:          model.StatusPending,
	}
}

func TestLoadPartitionsQueues(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-sale", "Cliente: Sara Semijoias quero um anel"))
	f.messages.add(pendingMsg("msg-txn", "paguei o boleto de 50,00"))
	f.messages.add(pendingMsg("msg-noise", "bom dia tudo bem"))
	rejected := pendingMsg("msg-rejected", "paguei a conta")
	rejected.Status = model.StatusError
	f.messages.add(rejected)

	require.NoError(t, f.controller.Load(ctx))

	assert.Len(t, f.controller.Queue(model.QueueSale), 1)
	assert.Len(t, f.controller.Queue(model.QueueTransaction), 1)
	// Both the unclassifiable message and the rejected one sit in discard.
	assert.Len(t, f.controller.Queue(model.QueueDiscard), 2)
}

func TestLoadResolvesSenderIdentity(t *testing.T) {
	f := newFixture(t, nil)
	f.messages.add(pendingMsg("msg-1", "Valor: 50,00 paguei"))

	require.NoError(t, f.controller.Load(context.Background()))

	item, ok := f.controller.Item("msg-1")
	require.True(t, ok)
	require.NotNil(t, item.Sender)
	assert.Equal(t, "cli-1", item.Sender.ID)
}

func TestApproveTransactionValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Value present, but no category resolves from the text.
	f.messages.add(pendingMsg("msg-1", "paguei 50,00 no mercado"))
	require.NoError(t, f.controller.Load(ctx))

	err := f.controller.ApproveTransaction(ctx, "msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)

	// No record was created, and the message is still pending.
	assert.Empty(t, f.ledger.transactions)
	assert.Equal(t, model.StatusPending, f.messages.get("msg-1").Status)
}

func TestApproveTransactionSuccess(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00 ao fornecedor de insumos pelo caixa"))
	require.NoError(t, f.controller.Load(ctx))

	item, ok := f.controller.Item("msg-1")
	require.True(t, ok)
	assert.Equal(t, "cat-2", item.Candidate.CategoryID, "longest category name must win")
	assert.Equal(t, "acc-1", item.Candidate.AccountID)

	require.NoError(t, f.controller.ApproveTransaction(ctx, "msg-1"))

	require.Len(t, f.ledger.transactions, 1)
	record := f.ledger.transactions[0]
	assert.InDelta(t, 150.0, record.Value, 1e-9)
	assert.Equal(t, model.EntryExpense, record.Type)
	assert.Equal(t, model.TransactionStatusConfirmed, record.Status)
	assert.True(t, record.Automated)
	assert.Equal(t, "msg-1", record.SourceMessageID)
	assert.Equal(t, "5511987654321", record.SourceChannelID)
	// No explicit client in the candidate: falls back to the matched sender.
	assert.Equal(t, "cli-1", record.ClientID)

	assert.Equal(t, model.StatusProcessed, f.messages.get("msg-1").Status)

	_, stillLoaded := f.controller.Item("msg-1")
	assert.False(t, stillLoaded)
}

func TestApproveTransactionRecordWriteFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00 ao fornecedor pelo caixa"))
	require.NoError(t, f.controller.Load(ctx))

	f.ledger.failSave = true
	err := f.controller.ApproveTransaction(ctx, "msg-1")
	require.Error(t, err)

	// No partial commit: the message stays pending and retriable.
	assert.Equal(t, model.StatusPending, f.messages.get("msg-1").Status)
	assert.Empty(t, f.ledger.transactions)

	f.ledger.failSave = false
	require.NoError(t, f.controller.ApproveTransaction(ctx, "msg-1"))
	assert.Len(t, f.ledger.transactions, 1)
}

func TestApproveTransactionStatusUpdateInconsistency(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00 ao fornecedor pelo caixa"))
	require.NoError(t, f.controller.Load(ctx))

	f.messages.failStatusWrite = true
	err := f.controller.ApproveTransaction(ctx, "msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStatusInconsistency)

	// The record exists even though the message still looks pending.
	assert.Len(t, f.ledger.transactions, 1)
	assert.Equal(t, model.StatusPending, f.messages.get("msg-1").Status)
}

func TestApproveIsOneWay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00 ao fornecedor pelo caixa"))
	require.NoError(t, f.controller.Load(ctx))
	require.NoError(t, f.controller.ApproveTransaction(ctx, "msg-1"))

	// Re-approval after processing must never create a second record, even
	// after a fresh load.
	require.NoError(t, f.controller.Load(ctx))
	err := f.controller.ApproveTransaction(ctx, "msg-1")
	require.Error(t, err)
	assert.Len(t, f.ledger.transactions, 1)
}

func TestApproveSaleEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "Cliente: João Tipo: venda Valor: 150,00 Peso: 5g Frete: 10,00"))
	require.NoError(t, f.controller.Load(ctx))

	item, ok := f.controller.Item("msg-1")
	require.True(t, ok)
	assert.Equal(t, model.QueueSale, item.Queue)
	assert.Equal(t, "150,00", item.Candidate.Value)
	assert.Equal(t, "cli-1", item.Candidate.ClientID)
	assert.Equal(t, "5", item.Candidate.Weight)
	assert.Equal(t, "10,00", item.Candidate.Shipping)
	assert.Equal(t, model.EntryIncome, item.Candidate.Type)

	require.NoError(t, f.controller.ApproveSale(ctx, "msg-1"))

	require.Len(t, f.ledger.sales, 1)
	sale := f.ledger.sales[0]
	assert.InDelta(t, 150.0, sale.Value, 1e-9)
	assert.InDelta(t, 5.0, sale.Weight, 1e-9)
	assert.InDelta(t, 10.0, sale.Shipping, 1e-9)
	assert.Equal(t, "cli-1", sale.ClientID)
	assert.Equal(t, "Caderno Bot", sale.Seller)
	assert.Regexp(t, `^VND-`, sale.Code)
	assert.True(t, sale.Automated)

	// A sale approval never writes to the transaction ledger.
	assert.Empty(t, f.ledger.transactions)
	assert.Equal(t, model.StatusProcessed, f.messages.get("msg-1").Status)
}

func TestApproveSaleRequiresClient(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "quero um anel de 150,00"))
	require.NoError(t, f.controller.Load(ctx))

	// Sender matching is display-only; it must not satisfy the client
	// requirement.
	item, _ := f.controller.Item("msg-1")
	item.Candidate.ClientID = ""
	require.NoError(t, f.controller.SetCandidate("msg-1", item.Candidate))

	err := f.controller.ApproveSale(ctx, "msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, f.ledger.sales)
	assert.Equal(t, model.StatusPending, f.messages.get("msg-1").Status)
}

func TestProcessedIsTerminal(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00 ao fornecedor pelo caixa"))
	require.NoError(t, f.controller.Load(ctx))
	require.NoError(t, f.controller.ApproveTransaction(ctx, "msg-1"))

	// A processed message can neither be rejected nor restored; either
	// transition would reopen an approval path for an already-recorded
	// candidate.
	err := f.controller.Reject(ctx, "msg-1", "engano")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMessageNotPending)

	err = f.controller.Restore(ctx, "msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMessageNotDiscarded)

	assert.Equal(t, model.StatusProcessed, f.messages.get("msg-1").Status)
	assert.Empty(t, f.messages.get("msg-1").DiscardReason)

	// And even after a reload the ledger holds exactly one record.
	require.NoError(t, f.controller.Load(ctx))
	err = f.controller.ApproveTransaction(ctx, "msg-1")
	require.Error(t, err)
	records, err := f.ledger.GetTransactionsBySourceMessage(ctx, "msg-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRestoreRequiresDiscarded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 50,00"))
	require.NoError(t, f.controller.Load(ctx))

	err := f.controller.Restore(ctx, "msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMessageNotDiscarded)
	assert.Equal(t, model.StatusPending, f.messages.get("msg-1").Status)
}

func TestRejectStoresReason(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "bom dia"))
	require.NoError(t, f.controller.Load(ctx))

	require.NoError(t, f.controller.Reject(ctx, "msg-1", "não é financeiro"))

	msg := f.messages.get("msg-1")
	assert.Equal(t, model.StatusError, msg.Status)
	assert.Equal(t, "não é financeiro", msg.DiscardReason)
}

func TestRejectDefaultReason(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "bom dia"))
	require.NoError(t, f.controller.Load(ctx))

	require.NoError(t, f.controller.Reject(ctx, "msg-1", ""))
	assert.Equal(t, defaultDiscardReason, f.messages.get("msg-1").DiscardReason)
}

func TestRejectFallsBackToStatusOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "bom dia"))
	require.NoError(t, f.controller.Load(ctx))

	// Combined status+reason write fails (reason column missing); the
	// message must still leave the pending queue.
	f.messages.failStatusWrite = true
	require.NoError(t, f.controller.Reject(ctx, "msg-1", "motivo"))

	assert.Equal(t, model.StatusError, f.messages.get("msg-1").Status)
	assert.Positive(t, f.messages.statusOnlyCalls)
}

func TestRejectFailsWhenBothWritesFail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "bom dia"))
	require.NoError(t, f.controller.Load(ctx))

	f.messages.failStatusWrite = true
	f.messages.failStatusOnly = true

	err := f.controller.Reject(ctx, "msg-1", "motivo")
	require.Error(t, err)
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, "reject failed")
}

func TestRestoreRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei o boleto de 50,00"))
	require.NoError(t, f.controller.Load(ctx))

	require.NoError(t, f.controller.Reject(ctx, "msg-1", "engano"))
	require.NoError(t, f.controller.Restore(ctx, "msg-1"))

	msg := f.messages.get("msg-1")
	assert.Equal(t, model.StatusPending, msg.Status)
	assert.Empty(t, msg.DiscardReason)

	// Restored messages are re-classified fresh on the reload Restore
	// triggers, not retained from a stale cached candidate.
	item, ok := f.controller.Item("msg-1")
	require.True(t, ok)
	assert.Equal(t, model.QueueTransaction, item.Queue)
	assert.Equal(t, "50,00", item.Candidate.Value)
}

func TestClearDiscarded(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 50,00"))
	discarded := pendingMsg("msg-2", "spam")
	discarded.Status = model.StatusError
	f.messages.add(discarded)
	discarded2 := pendingMsg("msg-3", "more spam")
	discarded2.Status = model.StatusError
	f.messages.add(discarded2)

	require.NoError(t, f.controller.Load(ctx))

	count, err := f.controller.ClearDiscarded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	msgs, err := f.messages.GetTriageMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "msg-1", msgs[0].ID)
}

func TestCommitInFlightGuard(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00 ao fornecedor pelo caixa"))
	require.NoError(t, f.controller.Load(ctx))

	require.NoError(t, f.controller.beginCommit("msg-1"))
	defer f.controller.endCommit("msg-1")

	err := f.controller.ApproveTransaction(ctx, "msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCommitInFlight)
	assert.Empty(t, f.ledger.transactions)
}

func TestAutoRefineOncePerMessage(t *testing.T) {
	refiner := &mockRefiner{refinement: &model.Refinement{Value: "200,00"}}
	f := newFixture(t, refiner)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00"))
	f.messages.add(pendingMsg("msg-2", "recebi 80,00"))

	require.NoError(t, f.controller.Load(ctx))
	assert.Len(t, refiner.calls, 2)
	assert.False(t, refiner.overlapped, "refinement calls must never overlap")

	item, _ := f.controller.Item("msg-1")
	assert.Equal(t, "200,00", item.Candidate.Value, "non-empty AI field wins")

	// A second load must not refine the same messages again.
	require.NoError(t, f.controller.Load(ctx))
	assert.Len(t, refiner.calls, 2)
}

func TestAutoRefineFailureIsSilentAndNotRetried(t *testing.T) {
	refiner := &mockRefiner{err: errors.New("api down")}
	f := newFixture(t, refiner)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 150,00"))

	require.NoError(t, f.controller.Load(ctx))
	assert.Len(t, refiner.calls, 1)

	// The heuristic candidate stands untouched.
	item, _ := f.controller.Item("msg-1")
	assert.Equal(t, "150,00", item.Candidate.Value)

	// Even a failed attempt counts as attempted.
	require.NoError(t, f.controller.Load(ctx))
	assert.Len(t, refiner.calls, 1)
}

func TestConcurrentReloadsRefineSequentially(t *testing.T) {
	refiner := &mockRefiner{refinement: &model.Refinement{}, delay: 30 * time.Millisecond}
	f := newFixture(t, refiner)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		f.messages.add(pendingMsg(fmt.Sprintf("msg-%d", i), "paguei 50,00"))
	}

	// A restore-triggered reload racing a store-notification reload must
	// not put two refinement calls in flight.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.controller.Load(ctx))
		}()
	}
	wg.Wait()

	assert.False(t, refiner.overlapped, "refinement calls must never overlap")
	assert.Len(t, refiner.calls, 4, "each message refined exactly once")
}

func TestLoadSignalsUpdates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei 50,00"))
	require.NoError(t, f.controller.Load(ctx))

	select {
	case <-f.controller.Updates():
	default:
		t.Fatal("expected an update signal after Load")
	}
}

func TestRefinementQueueOverride(t *testing.T) {
	refiner := &mockRefiner{refinement: &model.Refinement{Queue: model.QueueSale}}
	f := newFixture(t, refiner)
	ctx := context.Background()

	f.messages.add(pendingMsg("msg-1", "paguei o boleto"))
	require.NoError(t, f.controller.Load(ctx))

	item, _ := f.controller.Item("msg-1")
	assert.Equal(t, model.QueueSale, item.Queue)
}

func TestPagination(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		f.messages.add(pendingMsg(fmt.Sprintf("msg-%02d", i), "paguei o boleto"))
	}
	require.NoError(t, f.controller.Load(ctx))

	items, page, totalPages := f.controller.Page()
	assert.Len(t, items, 10)
	assert.Equal(t, 1, page)
	assert.Equal(t, 3, totalPages)

	f.controller.SetPage(3)
	items, page, _ = f.controller.Page()
	assert.Len(t, items, 5)
	assert.Equal(t, 3, page)

	// Page clamps to the valid range.
	f.controller.SetPage(99)
	_, page, _ = f.controller.Page()
	assert.Equal(t, 3, page)

	// Switching queue resets to page 1.
	f.controller.SetPage(2)
	f.controller.SetActiveQueue(model.QueueSale)
	_, page, _ = f.controller.Page()
	assert.Equal(t, 1, page)

	// A count change on reload resets to page 1 as well.
	f.controller.SetActiveQueue(model.QueueTransaction)
	f.controller.SetPage(2)
	f.messages.add(pendingMsg("msg-extra", "paguei a fatura"))
	require.NoError(t, f.controller.Load(ctx))
	_, page, _ = f.controller.Page()
	assert.Equal(t, 1, page)
}

func TestWatchReloadsOnStoreChange(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.controller.Load(ctx))
	go f.controller.Watch(ctx)

	// Wait for Watch to subscribe before mutating the store.
	require.Eventually(t, func() bool {
		f.messages.mu.Lock()
		defer f.messages.mu.Unlock()
		return len(f.messages.subs) > 0
	}, time.Second, 5*time.Millisecond)

	f.messages.add(pendingMsg("msg-live", "paguei 50,00"))

	assert.Eventually(t, func() bool {
		_, ok := f.controller.Item("msg-live")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "watch must pick up new messages")
}
