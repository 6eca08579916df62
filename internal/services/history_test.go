package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dcablorh/suidrop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryService(t *testing.T) {
	contract := testContract()

	t.Run("AggregatesBothLists", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				assert.Equal(t, contract.NullSender, sender)
				assert.Equal(t, "0xpackage::dropnew::get_user_history", call.Target)
				return [][]byte{
					encodeIdentifierList([]string{"AAAAAA", "BBBBBB"}),
					encodeIdentifierList([]string{"CCCCCC"}),
				}, nil
			},
		}
		droplets := &mockDroplets{
			loadFn: func(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
				return &models.DropletView{ID: identifier, ExpiryTime: time.Now().UnixMilli() + 3600000}, nil
			},
		}

		history, err := NewHistoryService(ledger, droplets, contract).History(context.Background(), "0xuser")
		require.NoError(t, err)

		require.Len(t, history.Created, 2)
		assert.Equal(t, "AAAAAA", history.Created[0].ID)
		assert.Equal(t, "BBBBBB", history.Created[1].ID)
		require.Len(t, history.Claimed, 1)
		assert.Equal(t, "CCCCCC", history.Claimed[0].ID)
	})

	t.Run("FailedEntryIsDroppedNotFatal", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				return [][]byte{
					encodeIdentifierList([]string{"AAAAAA", "BBBBBB", "CCCCCC"}),
					encodeIdentifierList(nil),
				}, nil
			},
		}
		droplets := &mockDroplets{
			loadFn: func(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
				if identifier == "BBBBBB" {
					return nil, models.NewNotFoundError(identifier)
				}
				return &models.DropletView{ID: identifier}, nil
			},
		}

		history, err := NewHistoryService(ledger, droplets, contract).History(context.Background(), "0xuser")
		require.NoError(t, err)

		// Surviving entries keep ledger order.
		require.Len(t, history.Created, 2)
		assert.Equal(t, "AAAAAA", history.Created[0].ID)
		assert.Equal(t, "CCCCCC", history.Created[1].ID)
		assert.Empty(t, history.Claimed)
	})

	t.Run("TooFewReturnValuesIsMalformed", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				return [][]byte{encodeIdentifierList(nil)}, nil
			},
		}
		droplets := &mockDroplets{
			loadFn: func(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
				return nil, errors.New("should not be called")
			},
		}

		_, err := NewHistoryService(ledger, droplets, contract).History(context.Background(), "0xuser")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.ErrorCodeMalformedValue, appErr.Code)
	})

	t.Run("RPCFailureIsTransport", func(t *testing.T) {
		ledger := &mockLedger{
			inspectFn: func(ctx context.Context, sender string, call *InspectCall) ([][]byte, error) {
				return nil, errors.New("connection reset")
			},
		}
		droplets := &mockDroplets{}

		_, err := NewHistoryService(ledger, droplets, contract).History(context.Background(), "0xuser")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.ErrorCodeTransportFailure, appErr.Code)
	})
}

func TestFilter(t *testing.T) {
	entries := []models.HistoryEntry{
		{ID: "ACTIVE", View: &models.DropletView{NumClaimed: 1, ReceiverLimit: 4}},
		{ID: "EXPIRD", View: &models.DropletView{IsExpired: true}},
		{ID: "CLOSED", View: &models.DropletView{IsClosed: true}},
		{ID: "FULLUP", View: &models.DropletView{NumClaimed: 4, ReceiverLimit: 4}},
	}

	ids := func(entries []models.HistoryEntry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.ID
		}
		return out
	}

	t.Run("All", func(t *testing.T) {
		assert.Len(t, Filter(entries, models.FilterAll), 4)
	})

	t.Run("Active", func(t *testing.T) {
		assert.Equal(t, []string{"ACTIVE", "FULLUP"}, ids(Filter(entries, models.FilterActive)))
	})

	t.Run("Expired", func(t *testing.T) {
		assert.Equal(t, []string{"EXPIRD"}, ids(Filter(entries, models.FilterExpired)))
	})

	t.Run("Completed", func(t *testing.T) {
		assert.Equal(t, []string{"CLOSED", "FULLUP"}, ids(Filter(entries, models.FilterCompleted)))
	})
}

func TestFormatTimeRemaining(t *testing.T) {
	now := int64(1_700_000_000_000)
	hour := int64(1000 * 60 * 60)

	t.Run("PastIsExpired", func(t *testing.T) {
		assert.Equal(t, "Expired", FormatTimeRemaining(now-1, now))
		assert.Equal(t, "Expired", FormatTimeRemaining(now, now))
	})

	t.Run("UnderADay", func(t *testing.T) {
		assert.Equal(t, "3h 30m", FormatTimeRemaining(now+3*hour+30*60*1000, now))
		assert.Equal(t, "0h 5m", FormatTimeRemaining(now+5*60*1000, now))
	})

	t.Run("OverADay", func(t *testing.T) {
		assert.Equal(t, "2d 1h", FormatTimeRemaining(now+49*hour, now))
	})

	t.Run("ExactlyTwentyFourHoursStaysHourly", func(t *testing.T) {
		assert.Equal(t, "24h 0m", FormatTimeRemaining(now+24*hour, now))
	})
}
