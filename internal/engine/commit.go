package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caderno-vivo/caderno/internal/common"
	"github.com/caderno-vivo/caderno/internal/model"
	"github.com/caderno-vivo/caderno/internal/triage"
)

const (
	// defaultSeller attributes automation-approved sales when the reviewer
	// sets no seller. Also the provenance marker on record descriptions.
	defaultSeller = "Caderno Bot"

	// defaultDiscardReason is stored when a reviewer rejects without
	// choosing a reason.
	defaultDiscardReason = "Descartado na triagem"
)

// beginCommit marks a message as having a commit outstanding. Duplicate
// submissions for the same id are rejected, not queued: a double click must
// never produce two permanent records.
func (c *Controller) beginCommit(messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[messageID] {
		return common.ErrCommitInFlight
	}
	c.inFlight[messageID] = true
	return nil
}

func (c *Controller) endCommit(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, messageID)
}

// pendingMessage re-reads the message and verifies it is still pending.
// Approval is a one-way gate: a processed message can never be approved
// again, and an error message must be restored first.
func (c *Controller) pendingMessage(ctx context.Context, messageID string) (*model.PendingMessage, error) {
	msg, err := c.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: status is %s", common.ErrMessageNotPending, msg.Status)
	}
	return msg, nil
}

// ApproveTransaction materializes the message's candidate into one permanent
// transaction record and marks the message processed. Validation failures
// and record-write failures leave the message pending and retriable.
func (c *Controller) ApproveTransaction(ctx context.Context, messageID string) error {
	if err := c.beginCommit(messageID); err != nil {
		return common.NewUserError("approve transaction failed", err)
	}
	defer c.endCommit(messageID)

	item, ok := c.Item(messageID)
	if !ok {
		return common.NewUserError("approve transaction failed", fmt.Errorf("message %s not loaded", messageID))
	}
	candidate := item.Candidate

	if candidate.Value == "" || candidate.CategoryID == "" || candidate.AccountID == "" {
		return common.NewUserError("approve transaction failed",
			fmt.Errorf("%w: value, category and account are required", common.ErrValidation))
	}

	value, err := triage.ParseDecimal(candidate.Value)
	if err != nil {
		return common.NewUserError("approve transaction failed",
			fmt.Errorf("%w: %v", common.ErrValidation, err))
	}

	msg, err := c.pendingMessage(ctx, messageID)
	if err != nil {
		return common.NewUserError("approve transaction failed", err)
	}

	clientID := candidate.ClientID
	if clientID == "" && item.Sender != nil {
		clientID = item.Sender.ID
	}

	record := &model.TransactionRecord{
		ID:              uuid.NewString(),
		Description:     candidate.Description,
		Value:           value,
		Type:            candidate.Type,
		Date:            candidateDate(candidate.Date, msg.CreatedAt),
		Status:          model.TransactionStatusConfirmed,
		CategoryID:      candidate.CategoryID,
		AccountID:       candidate.AccountID,
		ClientID:        clientID,
		Automated:       true,
		SourceMessageID: msg.ID,
		SourceChannelID: msg.SourceChannelID,
	}

	if err := c.ledger.SaveTransaction(ctx, record); err != nil {
		// No status transition: the message stays pending and retriable.
		return common.NewUserError("approve transaction failed", err)
	}

	if err := c.messages.UpdateMessageStatus(ctx, msg.ID, model.StatusProcessed, ""); err != nil {
		// The record exists but the queue will re-show the message; a retry
		// would double-enter. Surface this loudly.
		common.LogError(err, "transaction recorded but message status update failed",
			common.Fields{
				"message_id":     msg.ID,
				"transaction_id": record.ID,
			})
		return common.NewUserError("approve transaction failed",
			fmt.Errorf("%w: %v", common.ErrStatusInconsistency, err))
	}

	c.dropItem(messageID)
	slog.Info("transaction approved",
		"message_id", msg.ID,
		"transaction_id", record.ID,
		"value", record.Value,
		"type", record.Type)
	return nil
}

// ApproveSale materializes the candidate into one permanent sale record and
// marks the message processed. Sales are their own ledger: no companion
// transaction record is created.
func (c *Controller) ApproveSale(ctx context.Context, messageID string) error {
	if err := c.beginCommit(messageID); err != nil {
		return common.NewUserError("approve sale failed", err)
	}
	defer c.endCommit(messageID)

	item, ok := c.Item(messageID)
	if !ok {
		return common.NewUserError("approve sale failed", fmt.Errorf("message %s not loaded", messageID))
	}
	candidate := item.Candidate

	if candidate.ClientID == "" {
		return common.NewUserError("approve sale failed",
			fmt.Errorf("%w: client is required", common.ErrValidation))
	}

	value, err := optionalDecimal(candidate.Value)
	if err != nil {
		return common.NewUserError("approve sale failed",
			fmt.Errorf("%w: value: %v", common.ErrValidation, err))
	}
	weight, err := optionalDecimal(candidate.Weight)
	if err != nil {
		return common.NewUserError("approve sale failed",
			fmt.Errorf("%w: weight: %v", common.ErrValidation, err))
	}
	shipping, err := optionalDecimal(candidate.Shipping)
	if err != nil {
		return common.NewUserError("approve sale failed",
			fmt.Errorf("%w: shipping: %v", common.ErrValidation, err))
	}

	msg, err := c.pendingMessage(ctx, messageID)
	if err != nil {
		return common.NewUserError("approve sale failed", err)
	}

	record := &model.SaleRecord{
		ID:              uuid.NewString(),
		Code:            model.NewSaleCode(),
		Date:            candidateDate(candidate.Date, msg.CreatedAt),
		ClientID:        candidate.ClientID,
		Value:           value,
		Weight:          weight,
		Shipping:        shipping,
		Seller:          defaultSeller,
		Automated:       true,
		SourceMessageID: msg.ID,
		SourceChannelID: msg.SourceChannelID,
	}

	if err := c.ledger.SaveSale(ctx, record); err != nil {
		return common.NewUserError("approve sale failed", err)
	}

	if err := c.messages.UpdateMessageStatus(ctx, msg.ID, model.StatusProcessed, ""); err != nil {
		common.LogError(err, "sale recorded but message status update failed",
			common.Fields{
				"message_id": msg.ID,
				"sale_id":    record.ID,
			})
		return common.NewUserError("approve sale failed",
			fmt.Errorf("%w: %v", common.ErrStatusInconsistency, err))
	}

	c.dropItem(messageID)
	slog.Info("sale approved",
		"message_id", msg.ID,
		"sale_id", record.ID,
		"code", record.Code)
	return nil
}

// Reject moves a message to the discarded state with a reason. When the
// combined status+reason write fails, the status is retried alone: the
// message leaving the pending queue matters more than the stored reason.
func (c *Controller) Reject(ctx context.Context, messageID, reason string) error {
	if err := c.beginCommit(messageID); err != nil {
		return common.NewUserError("reject failed", err)
	}
	defer c.endCommit(messageID)

	// Only pending messages can be rejected. Processed is terminal: the
	// candidate already became a permanent record, and pulling the message
	// back through error/restore would open a second-approval path.
	if _, err := c.pendingMessage(ctx, messageID); err != nil {
		return common.NewUserError("reject failed", err)
	}

	if reason == "" {
		reason = defaultDiscardReason
	}

	if err := c.messages.UpdateMessageStatus(ctx, messageID, model.StatusError, reason); err != nil {
		slog.Warn("status+reason write failed, retrying status alone",
			"message_id", messageID,
			"error", err)
		if err := c.messages.UpdateMessageStatusOnly(ctx, messageID, model.StatusError); err != nil {
			return common.NewUserError("reject failed", err)
		}
	}

	c.mu.Lock()
	if item, ok := c.items[messageID]; ok {
		item.Message.Status = model.StatusError
		item.Message.DiscardReason = reason
		item.Queue = model.QueueDiscard
	}
	c.mu.Unlock()

	slog.Info("message rejected", "message_id", messageID, "reason", reason)
	return nil
}

// Restore returns a discarded message to the pending queue, clears its
// reason and reloads everything so the item is re-classified fresh rather
// than retained from a stale cached candidate.
func (c *Controller) Restore(ctx context.Context, messageID string) error {
	if err := c.beginCommit(messageID); err != nil {
		return common.NewUserError("restore failed", err)
	}
	defer c.endCommit(messageID)

	// Restore only applies to discarded messages. There is no way back
	// from processed.
	msg, err := c.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return common.NewUserError("restore failed", err)
	}
	if msg.Status != model.StatusError {
		return common.NewUserError("restore failed",
			fmt.Errorf("%w: status is %s", common.ErrMessageNotDiscarded, msg.Status))
	}

	if err := c.messages.UpdateMessageStatus(ctx, messageID, model.StatusPending, ""); err != nil {
		return common.NewUserError("restore failed", err)
	}

	slog.Info("message restored", "message_id", messageID)
	return c.Load(ctx)
}

// ClearDiscarded permanently deletes all currently discarded messages in one
// batch. Irreversible; callers gate it behind explicit confirmation.
func (c *Controller) ClearDiscarded(ctx context.Context) (int, error) {
	msgs, err := c.messages.GetTriageMessages(ctx)
	if err != nil {
		return 0, common.NewUserError("clear discarded failed", err)
	}

	var ids []string
	for _, msg := range msgs {
		if msg.Status == model.StatusError {
			ids = append(ids, msg.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := c.messages.DeleteMessages(ctx, ids); err != nil {
		return 0, common.NewUserError("clear discarded failed", err)
	}

	slog.Info("discarded messages cleared", "count", len(ids))
	return len(ids), nil
}

// dropItem removes a committed message from the loaded queues.
func (c *Controller) dropItem(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[messageID]; !ok {
		return
	}
	delete(c.items, messageID)
	for i, id := range c.order {
		if id == messageID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func candidateDate(iso string, fallback time.Time) time.Time {
	if iso != "" {
		if t, err := time.Parse("2006-01-02", iso); err == nil {
			return t
		}
	}
	return fallback
}

func optionalDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return triage.ParseDecimal(s)
}
