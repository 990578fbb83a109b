package execution

import (
	"testing"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/decimal"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTrackerResolvesByEitherIdentifier(t *testing.T) {
	tr := NewOrderTracker()
	order := &domain.Order{ClientOrderID: "c1", Status: domain.OrderStatusPending, Quantity: decimal.FromInt(1)}
	require.True(t, tr.Put(order))

	tr.BindExchangeID("c1", "e1")

	byClient, ok := tr.ByClientID("c1")
	require.True(t, ok)
	assert.Equal(t, "e1", byClient.ExchangeOrderID)

	byExch, ok := tr.ByExchangeID("e1")
	require.True(t, ok)
	assert.Equal(t, "c1", byExch.ClientOrderID)
}

func TestOrderTrackerPutRejectsDuplicate(t *testing.T) {
	tr := NewOrderTracker()
	order := &domain.Order{ClientOrderID: "dup"}
	require.True(t, tr.Put(order))
	assert.False(t, tr.Put(&domain.Order{ClientOrderID: "dup"}))
}

func TestOrderTrackerSetStatusRejectsIllegalTransition(t *testing.T) {
	tr := NewOrderTracker()
	order := &domain.Order{ClientOrderID: "c1", Status: domain.OrderStatusPending}
	tr.Put(order)

	assert.True(t, tr.SetStatus("c1", domain.OrderStatusSubmitted))
	assert.False(t, tr.SetStatus("c1", domain.OrderStatusCancelled), "submitted cannot jump straight to cancelled without open")

	snap, ok := tr.Snapshot("c1")
	require.True(t, ok)
	assert.Equal(t, domain.OrderStatusSubmitted, snap.Status)
}
