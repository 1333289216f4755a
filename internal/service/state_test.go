package service

import (
	"testing"

	"github.com/creatorx/wallet-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestTransactionTransitions(t *testing.T) {
	require.True(t, canTransition(transactionTransitions, domain.TxStatusPending, domain.TxStatusCompleted))
	require.True(t, canTransition(transactionTransitions, domain.TxStatusPending, domain.TxStatusFailed))

	// Terminal states never move again.
	for _, terminal := range []string{domain.TxStatusCompleted, domain.TxStatusFailed, domain.TxStatusRefunded} {
		for _, next := range []string{domain.TxStatusPending, domain.TxStatusCompleted, domain.TxStatusFailed} {
			if terminal == next {
				continue
			}
			require.False(t, canTransition(transactionTransitions, terminal, next),
				"%s -> %s must be rejected", terminal, next)
		}
	}
}

func TestPayoutRequestTransitions(t *testing.T) {
	require.True(t, canTransition(payoutRequestTransitions, domain.PayoutStatusPending, domain.PayoutStatusProcessing))
	require.True(t, canTransition(payoutRequestTransitions, domain.PayoutStatusPending, domain.PayoutStatusRejected))
	require.True(t, canTransition(payoutRequestTransitions, domain.PayoutStatusPending, domain.PayoutStatusFailed))
	require.True(t, canTransition(payoutRequestTransitions, domain.PayoutStatusProcessing, domain.PayoutStatusCompleted))
	require.True(t, canTransition(payoutRequestTransitions, domain.PayoutStatusProcessing, domain.PayoutStatusFailed))

	require.False(t, canTransition(payoutRequestTransitions, domain.PayoutStatusPending, domain.PayoutStatusCompleted))
	require.False(t, canTransition(payoutRequestTransitions, domain.PayoutStatusCompleted, domain.PayoutStatusFailed))
	require.False(t, canTransition(payoutRequestTransitions, domain.PayoutStatusRejected, domain.PayoutStatusPending))
	require.False(t, canTransition(payoutRequestTransitions, domain.PayoutStatusFailed, domain.PayoutStatusProcessing))
}

func TestTransitionsNormalizeCase(t *testing.T) {
	require.True(t, canTransition(transactionTransitions, "PENDING", "Completed"))
	require.False(t, canTransition(transactionTransitions, "COMPLETED", "failed"))
}
