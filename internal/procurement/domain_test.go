package procurement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool { return &v }

func TestFullyApproved(t *testing.T) {
	yes := boolPtr(true)
	no := boolPtr(false)

	require.True(t, fullyApproved([5]*bool{yes, yes, yes, yes, yes}))
	require.False(t, fullyApproved([5]*bool{yes, yes, yes, yes, no}))
	// A flag absent from the payload counts as not granted even if it was
	// granted in an earlier call.
	require.False(t, fullyApproved([5]*bool{yes, yes, yes, yes, nil}))
	require.False(t, fullyApproved([5]*bool{}))
}

func TestClassifyOrdered(t *testing.T) {
	cases := []struct {
		name      string
		requested float64
		ordered   float64
		want      RequestItemStatus
	}{
		{"nothing ordered", 100, 0, 0},
		{"partial", 100, 40, ItemPartiallyOrdered},
		{"exact", 100, 100, ItemFullyOrdered},
		{"over-ordered", 100, 120, ItemFullyOrdered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, classifyOrdered(tc.requested, tc.ordered))
		})
	}
}

func TestClassifyDelivery(t *testing.T) {
	cases := []struct {
		name           string
		received       float64
		deliveredTotal float64
		ordered        float64
		want           OrderItemStatus
	}{
		{"zero receipt marks not delivered", 0, 0, 50, OrderItemNotDelivered},
		{"partial receipt", 20, 20, 50, OrderItemPartiallyDelivered},
		{"cumulative total completes", 30, 50, 50, OrderItemFullyDelivered},
		{"over-delivery still fully delivered", 40, 60, 50, OrderItemFullyDelivered},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, classifyDelivery(tc.received, tc.deliveredTotal, tc.ordered))
		})
	}
}

func TestOrderStatusFor(t *testing.T) {
	require.Equal(t, OrderFullyDelivered, orderStatusFor([]OrderItemStatus{OrderItemFullyDelivered, OrderItemFullyDelivered}))
	require.Equal(t, OrderPartiallyDelivered, orderStatusFor([]OrderItemStatus{OrderItemFullyDelivered, OrderItemPartiallyDelivered}))
	require.Equal(t, OrderPartiallyDelivered, orderStatusFor([]OrderItemStatus{OrderItemNotDelivered}))
	require.Equal(t, OrderPartiallyDelivered, orderStatusFor(nil))

	// Re-evaluating with the same inputs never changes the answer.
	statuses := []OrderItemStatus{OrderItemFullyDelivered, OrderItemFullyDelivered}
	first := orderStatusFor(statuses)
	require.Equal(t, first, orderStatusFor(statuses))
}

func TestAllFullyDelivered(t *testing.T) {
	require.True(t, allFullyDelivered([]OrderItemStatus{OrderItemFullyDelivered}))
	require.False(t, allFullyDelivered([]OrderItemStatus{OrderItemFullyDelivered, OrderItemPartiallyDelivered}))
	require.False(t, allFullyDelivered(nil))
}
