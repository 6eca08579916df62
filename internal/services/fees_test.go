package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeArithmetic(t *testing.T) {
	t.Run("FeePlusNetEqualsAmount", func(t *testing.T) {
		amounts := []uint64{1, 999, 1_000_000_000, 5_000_000_000}
		rates := []uint64{0, 1, 130, 5000, 10000}
		for _, amount := range amounts {
			for _, bp := range rates {
				assert.Equal(t, amount, Fee(amount, bp)+NetAmount(amount, bp),
					"amount=%d bp=%d", amount, bp)
			}
		}
	})

	t.Run("ZeroRateTakesNothing", func(t *testing.T) {
		assert.Equal(t, uint64(0), Fee(1_000_000_000, 0))
		assert.Equal(t, uint64(1_000_000_000), NetAmount(1_000_000_000, 0))
	})

	t.Run("FullRateTakesEverything", func(t *testing.T) {
		assert.Equal(t, uint64(1_000_000_000), Fee(1_000_000_000, 10000))
		assert.Equal(t, uint64(0), NetAmount(1_000_000_000, 10000))
	})

	t.Run("TruncatesTowardZero", func(t *testing.T) {
		// 999 * 130 / 10000 = 12.987, truncated.
		assert.Equal(t, uint64(12), Fee(999, 130))
	})
}

func TestPerRecipient(t *testing.T) {
	assert.Equal(t, uint64(100), PerRecipient(100, 1))
	assert.Equal(t, uint64(33), PerRecipient(100, 3))
	assert.Equal(t, uint64(0), PerRecipient(3, 100))
}

func TestEstimate(t *testing.T) {
	t.Run("DefaultRateBreakdown", func(t *testing.T) {
		est := Estimate(1_000_000_000, 4, DefaultFeeBasisPoints)
		require.NotNil(t, est)
		assert.Equal(t, uint64(1_000_000_000), est.Amount)
		assert.Equal(t, uint64(13_000_000), est.Fee)
		assert.Equal(t, uint64(987_000_000), est.NetAmount)
		assert.Equal(t, uint64(246_750_000), est.PerRecipient)
		assert.Equal(t, uint64(DefaultFeeBasisPoints), est.FeeBasisPoints)
	})

	t.Run("SingleRecipientGetsFullNet", func(t *testing.T) {
		est := Estimate(2_000_000_000, 1, DefaultFeeBasisPoints)
		assert.Equal(t, est.NetAmount, est.PerRecipient)
	})
}
