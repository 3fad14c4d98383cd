package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "foodbridge/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDonationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseDonationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseDeliveryID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseNeedID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, NeedID(valid), id)
	})
}

// TestTypeDistinction verifies the compiler enforces id type safety.
func TestTypeDistinction(t *testing.T) {
	donationID := DonationID(uuid.New())
	deliveryID := DeliveryID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ DonationID = deliveryID // compile error
	// var _ DeliveryID = donationID // compile error

	assert.NotEqual(t, uuid.UUID(donationID), uuid.UUID(deliveryID))
}
