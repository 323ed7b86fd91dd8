package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionForwardOnly(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusConfirmed))
	assert.True(t, CanTransition(StatusConfirmed, StatusProcessing))
	assert.True(t, CanTransition(StatusProcessing, StatusShipped))
	assert.True(t, CanTransition(StatusShipped, StatusDelivered))
	assert.True(t, CanTransition(StatusDelivered, StatusCompleted))

	// No regressions.
	assert.False(t, CanTransition(StatusConfirmed, StatusPending))
	assert.False(t, CanTransition(StatusShipped, StatusProcessing))
	assert.False(t, CanTransition(StatusCompleted, StatusPending))

	// No skipping forward.
	assert.False(t, CanTransition(StatusPending, StatusShipped))
	assert.False(t, CanTransition(StatusConfirmed, StatusDelivered))
}

func TestCanTransitionCancellation(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusConfirmed, StatusProcessing, StatusShipped} {
		assert.True(t, CanTransition(from, StatusCancelled), "cancel from %s", from)
	}
	assert.False(t, CanTransition(StatusDelivered, StatusCancelled))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusCancelled))
}

func TestCanTransitionRefund(t *testing.T) {
	assert.False(t, CanTransition(StatusPending, StatusRefunded), "refund requires payment")
	for _, from := range []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCompleted} {
		assert.True(t, CanTransition(from, StatusRefunded), "refund from %s", from)
	}
}

func TestTerminalStatesAreTerminal(t *testing.T) {
	for _, to := range []Status{StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCompleted, StatusRefunded} {
		assert.False(t, CanTransition(StatusCancelled, to))
		assert.False(t, CanTransition(StatusRefunded, to))
	}
}

func TestProgressShipped(t *testing.T) {
	v := Progress(StatusShipped, "")
	require.False(t, v.Cancelled)
	require.Len(t, v.Steps, len(Lifecycle))

	want := map[Status]StepState{
		StatusPending:    StepCompleted,
		StatusConfirmed:  StepCompleted,
		StatusProcessing: StepCompleted,
		StatusShipped:    StepCurrent,
		StatusDelivered:  StepUpcoming,
		StatusCompleted:  StepUpcoming,
	}
	for _, s := range v.Steps {
		assert.Equal(t, want[s.Status], s.State, "step %s", s.Status)
	}
}

func TestProgressCancelledSuppressesSteps(t *testing.T) {
	v := Progress(StatusCancelled, "changed my mind")
	assert.True(t, v.Cancelled)
	assert.Equal(t, "changed my mind", v.CancelReason)
	assert.Empty(t, v.Steps)
}

func TestProgressRefunded(t *testing.T) {
	v := Progress(StatusRefunded, "")
	assert.True(t, v.Refunded)
	assert.Empty(t, v.Steps)
}

func TestProgressPendingIsFirstCurrent(t *testing.T) {
	v := Progress(StatusPending, "")
	require.NotEmpty(t, v.Steps)
	assert.Equal(t, StepCurrent, v.Steps[0].State)
	for _, s := range v.Steps[1:] {
		assert.Equal(t, StepUpcoming, s.State)
	}
}

func TestStatusIndex(t *testing.T) {
	assert.Equal(t, 0, StatusIndex(StatusPending))
	assert.Equal(t, 3, StatusIndex(StatusShipped))
	assert.Equal(t, -1, StatusIndex(StatusCancelled))
	assert.Equal(t, -1, StatusIndex(StatusRefunded))
}
