package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dcablorh/suidrop/internal/config"
	"github.com/dcablorh/suidrop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Contract: *testContract(),
		Cache: config.CacheConfig{
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
	}
}

// dropletFields is a plausible object field set as the RPC layer
// delivers it: wide integers as decimal strings, booleans native.
func dropletFields() map[string]interface{} {
	return map[string]interface{}{
		"droplet_id":     "A1B2C3",
		"sender":         "0xcreator",
		"total_amount":   "1000000000",
		"claimed_amount": "250000000",
		"receiver_limit": "4",
		"num_claimed":    "1",
		"created_at":     "1700000000000",
		"expiry_time":    "9999999999999",
		"is_closed":      false,
		"message":        "team drop",
		"claimers_list":  []interface{}{"0xaaa"},
		"claimer_names":  []interface{}{"alice"},
	}
}

// infoValues builds the positional info view payload with the given
// remaining amount and expired flag.
func infoValues(remaining uint64, expired bool) [][]byte {
	values := make([][]byte, infoMinValues)
	for i := range values {
		values[i] = encodeU64(0)
	}
	values[infoRemainingIndex] = encodeU64(remaining)
	if expired {
		values[infoExpiredIndex] = []byte{1}
	} else {
		values[infoExpiredIndex] = []byte{0}
	}
	return values
}

func TestDropletServiceLoad(t *testing.T) {
	resolveValue := encodePresentAddress([]byte{0xd0, 0x01})

	t.Run("ReconcilesObjectWithInfoView", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				switch {
				case strings.HasSuffix(call.Target, "::find_droplet_by_id"):
					return [][]byte{resolveValue}, nil
				case strings.HasSuffix(call.Target, "::get_droplet_info"):
					return infoValues(700000000, true), nil
				}
				return nil, errors.New("unexpected target " + call.Target)
			},
			getObjectFn: func(ctx context.Context, address string) (map[string]interface{}, error) {
				assert.Equal(t, "0xd001", address)
				return dropletFields(), nil
			},
		}

		svc := NewDropletService(ledger, testConfig())
		defer svc.Stop()

		view, err := svc.Load(context.Background(), "A1B2C3", "")
		require.NoError(t, err)

		assert.Equal(t, "A1B2C3", view.ID)
		assert.Equal(t, "0xd001", view.Address)
		assert.Equal(t, "0xcreator", view.Creator)
		assert.Equal(t, uint64(1000000000), view.TotalAmount)
		assert.Equal(t, uint64(250000000), view.ClaimedAmount)

		// Info view wins over the local total-claimed derivation and the
		// local clock comparison.
		assert.Equal(t, uint64(700000000), view.RemainingAmount)
		assert.True(t, view.IsExpired)

		require.Len(t, view.Claimers, 1)
		assert.Equal(t, models.Claimer{Address: "0xaaa", Name: "alice"}, view.Claimers[0])
		assert.False(t, view.ViewerHasClaimed)
	})

	t.Run("UnresolvedIdentifierSkipsObjectFetch", func(t *testing.T) {
		var objectFetched atomic.Bool
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				return [][]byte{{0}}, nil
			},
			getObjectFn: func(ctx context.Context, address string) (map[string]interface{}, error) {
				objectFetched.Store(true)
				return nil, errors.New("should not be called")
			},
		}

		svc := NewDropletService(ledger, testConfig())
		defer svc.Stop()

		_, err := svc.Load(context.Background(), "ABCDEF", "")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.ErrorCodeNotFound, appErr.Code)
		assert.False(t, objectFetched.Load())
	})

	t.Run("MissingObjectIsUnavailable", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				return [][]byte{resolveValue}, nil
			},
			getObjectFn: func(ctx context.Context, address string) (map[string]interface{}, error) {
				return nil, ErrObjectNotFound
			},
		}

		svc := NewDropletService(ledger, testConfig())
		defer svc.Stop()

		_, err := svc.Load(context.Background(), "A1B2C3", "")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.ErrorCodeObjectUnavailable, appErr.Code)
	})

	t.Run("InfoViewFailureDerivesLocally", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				switch {
				case strings.HasSuffix(call.Target, "::find_droplet_by_id"):
					return [][]byte{resolveValue}, nil
				case strings.HasSuffix(call.Target, "::get_droplet_info"):
					return nil, errors.New("inspect timed out")
				}
				return nil, errors.New("unexpected target")
			},
			getObjectFn: func(ctx context.Context, address string) (map[string]interface{}, error) {
				return dropletFields(), nil
			},
		}

		svc := NewDropletService(ledger, testConfig())
		defer svc.Stop()

		view, err := svc.Load(context.Background(), "A1B2C3", "")
		require.NoError(t, err)
		assert.Equal(t, uint64(750000000), view.RemainingAmount)
		assert.False(t, view.IsExpired)
	})

	t.Run("ViewerClaimFlagFromLedger", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				switch {
				case strings.HasSuffix(call.Target, "::find_droplet_by_id"):
					return [][]byte{resolveValue}, nil
				case strings.HasSuffix(call.Target, "::get_droplet_info"):
					return infoValues(750000000, false), nil
				case strings.HasSuffix(call.Target, "::has_claimed"):
					assert.Equal(t, PureAddress("0xviewer"), call.Arguments[1])
					return [][]byte{{1}}, nil
				}
				return nil, errors.New("unexpected target")
			},
			getObjectFn: func(ctx context.Context, address string) (map[string]interface{}, error) {
				return dropletFields(), nil
			},
		}

		svc := NewDropletService(ledger, testConfig())
		defer svc.Stop()

		view, err := svc.Load(context.Background(), "A1B2C3", "0xviewer")
		require.NoError(t, err)
		assert.True(t, view.ViewerHasClaimed)
	})

	t.Run("ViewerClaimFallsBackToClaimerList", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				switch {
				case strings.HasSuffix(call.Target, "::find_droplet_by_id"):
					return [][]byte{resolveValue}, nil
				case strings.HasSuffix(call.Target, "::get_droplet_info"):
					return infoValues(750000000, false), nil
				case strings.HasSuffix(call.Target, "::has_claimed"):
					return nil, errors.New("inspect timed out")
				}
				return nil, errors.New("unexpected target")
			},
			getObjectFn: func(ctx context.Context, address string) (map[string]interface{}, error) {
				return dropletFields(), nil
			},
		}

		svc := NewDropletService(ledger, testConfig())
		defer svc.Stop()

		view, err := svc.Load(context.Background(), "A1B2C3", "0xaaa")
		require.NoError(t, err)
		assert.True(t, view.ViewerHasClaimed)

		svc.ClearCache()
		view, err = svc.Load(context.Background(), "A1B2C3", "0xstranger")
		require.NoError(t, err)
		assert.False(t, view.ViewerHasClaimed)
	})

	t.Run("CachedLoadSkipsLedger", func(t *testing.T) {
		var inspects atomic.Int64
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				inspects.Add(1)
				switch {
				case strings.HasSuffix(call.Target, "::find_droplet_by_id"):
					return [][]byte{resolveValue}, nil
				case strings.HasSuffix(call.Target, "::get_droplet_info"):
					return infoValues(750000000, false), nil
				}
				return nil, errors.New("unexpected target")
			},
			getObjectFn: func(ctx context.Context, address string) (map[string]interface{}, error) {
				return dropletFields(), nil
			},
		}

		svc := NewDropletService(ledger, testConfig())
		defer svc.Stop()

		_, err := svc.Load(context.Background(), "A1B2C3", "")
		require.NoError(t, err)
		after := inspects.Load()

		_, err = svc.Load(context.Background(), "A1B2C3", "")
		require.NoError(t, err)
		assert.Equal(t, after, inspects.Load())
	})
}
