package checkout

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_UnwrapsToSentinelAndCause(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		reason   Reason
		sentinel error
	}{
		{ReasonOrderCreationFailed, ErrOrderCreation},
		{ReasonWidgetUnavailable, ErrWidgetUnavailable},
		{ReasonVerificationFailed, ErrVerification},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			err := &Error{Reason: tt.reason, Err: cause}

			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, "checkout "+string(tt.reason)+": boom", err.Error())
		})
	}
}

func TestState_Predicates(t *testing.T) {
	busy := map[State]bool{StateCreatingOrder: true, StateAwaitingPayment: true, StateVerifying: true}
	terminal := map[State]bool{StateSucceeded: true, StateFailed: true}

	for _, s := range []State{StateIdle, StateCollectingContact, StateCreatingOrder, StateAwaitingPayment, StateVerifying, StateSucceeded, StateFailed} {
		assert.Equal(t, busy[s], s.Busy(), s.String())
		assert.Equal(t, terminal[s], s.IsTerminal(), s.String())
	}
}
