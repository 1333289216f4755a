package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/creatorx/wallet-service/internal/models"
	"github.com/creatorx/wallet-service/internal/repository"
	"github.com/google/uuid"
)

// Transaction statuses move monotonically: pending is the only
// non-terminal state and nothing transitions out of a terminal one.
var transactionTransitions = map[string]map[string]struct{}{
	"pending": {
		"completed": {},
		"failed":    {},
	},
	"completed": {},
	"failed":    {},
	"refunded":  {},
}

var payoutRequestTransitions = map[string]map[string]struct{}{
	"pending": {
		"processing": {},
		"failed":     {},
		"rejected":   {},
	},
	"processing": {
		"completed": {},
		"failed":    {},
	},
	"completed": {},
	"failed":    {},
	"rejected":  {},
}

func normalizeState(state string) string {
	return strings.ToLower(strings.TrimSpace(state))
}

func canTransition(table map[string]map[string]struct{}, current, next string) bool {
	nextStates, ok := table[normalizeState(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[normalizeState(next)]
	return ok
}

// transitionPayoutRequest validates and applies a payout request status
// change. The caller must hold the row lock (FOR UPDATE) so the current
// status cannot move underneath the check.
func transitionPayoutRequest(ctx context.Context, qtx *repository.Queries, audit *AuditService, current *models.PayoutRequest, nextState string, notes *string, actorID *uuid.UUID, action string, metadata []byte) error {
	if normalizeState(current.Status) == normalizeState(nextState) {
		return nil
	}
	if !canTransition(payoutRequestTransitions, current.Status, nextState) {
		return fmt.Errorf("invalid payout request state transition: %s -> %s", current.Status, nextState)
	}

	rows, err := qtx.UpdatePayoutRequestStatus(ctx, repository.UpdatePayoutRequestStatusParams{
		ID:         current.ID,
		Status:     nextState,
		AdminNotes: notes,
		ReviewedBy: actorID,
	})
	if err != nil {
		return fmt.Errorf("update payout request state: %w", err)
	}
	if err := requireExactlyOne(rows, "update payout request state"); err != nil {
		return err
	}

	if err := audit.Write(ctx, qtx, "payout_request", current.ID, actorID, action, current.Status, nextState, metadata); err != nil {
		return err
	}
	current.Status = nextState
	return nil
}
