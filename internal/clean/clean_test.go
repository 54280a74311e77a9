package clean

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolist/listing-sync/internal/model"
)

func TestClean_RemovesNullsAndEmptyArrays(t *testing.T) {
	p := model.Payload{
		"Price": float64(100),
		"Pool":  nil,
		"Tags":  []any{},
		"Rooms": []any{"kitchen"},
	}
	got := Clean(p)

	assert.Equal(t, model.Payload{
		"Price": float64(100),
		"Rooms": []any{"kitchen"},
	}, got)
}

func TestClean_PreservesFalsyScalars(t *testing.T) {
	p := model.Payload{
		"Zero":     float64(0),
		"False":    false,
		"Empty":    "",
		"EmptyObj": map[string]any{},
	}
	got := Clean(p)
	require.Len(t, got, 4)
	assert.Equal(t, p, got)
}

func TestClean_Idempotent(t *testing.T) {
	p := model.Payload{
		"Price": float64(100),
		"Pool":  nil,
		"Tags":  []any{},
	}
	once := Clean(p)
	twice := Clean(once)
	assert.Equal(t, once, twice)
}

func TestClean_NilStaysNil(t *testing.T) {
	assert.Nil(t, Clean(nil))
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	p := model.Payload{"Pool": nil, "Price": float64(1)}
	_ = Clean(p)
	assert.Len(t, p, 2)
}

func TestListing_BackfillScenario(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	raw := &model.Listing{
		ListingKey: "A1",
		Public:     model.Payload{"Price": float64(100), "Pool": nil, "Tags": []any{}},
		Restricted: nil,
		UpdatedAt:  now,
	}

	got := Listing(raw)
	assert.Equal(t, "A1", got.ListingKey)
	assert.Equal(t, model.Payload{"Price": float64(100)}, got.Public)
	assert.Nil(t, got.Restricted)
	assert.Equal(t, now, got.UpdatedAt)
}
