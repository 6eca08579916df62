package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dcablorh/suidrop/internal/config"
	"github.com/dcablorh/suidrop/internal/decode"
	"github.com/dcablorh/suidrop/internal/models"
	"github.com/dcablorh/suidrop/pkg/logger"

	"go.uber.org/zap"
)

// HistoryService aggregates a user's created and claimed droplets into
// filterable summaries. Per-identifier loads run concurrently against
// the read-only ledger endpoint; they are independent and
// order-insensitive, and output order follows the ledger.
type HistoryService struct {
	ledger   LedgerClientInterface
	droplets DropletServiceInterface
	contract *config.ContractConfig
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(ledger LedgerClientInterface, droplets DropletServiceInterface, contract *config.ContractConfig) *HistoryService {
	return &HistoryService{
		ledger:   ledger,
		droplets: droplets,
		contract: contract,
	}
}

// History fetches the user's identifier lists and resolves a view per
// entry. An identifier may reference an object that was since cleaned
// up on-chain, so a failed per-entry fetch drops that entry instead of
// failing the whole aggregation.
func (hs *HistoryService) History(ctx context.Context, account string) (*models.UserHistory, error) {
	call := &InspectCall{
		Target:    fmt.Sprintf("%s::%s::get_user_history", hs.contract.PackageID, hs.contract.Module),
		Arguments: []InspectArg{ObjectInput(hs.contract.RegistryID), PureAddress(account)},
	}

	values, err := hs.ledger.Inspect(ctx, hs.contract.NullSender, call)
	if err != nil {
		return nil, models.NewTransportError("user history lookup failed", err)
	}
	if len(values) < 2 {
		return nil, models.NewAppErrorWithDetails(models.ErrorCodeMalformedValue,
			"undecodable history result", fmt.Sprintf("%d return values", len(values)))
	}

	created := decode.StringList(values[0])
	claimed := decode.StringList(values[1])

	history := &models.UserHistory{}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		history.Created = hs.loadEntries(ctx, created)
	}()
	go func() {
		defer wg.Done()
		history.Claimed = hs.loadEntries(ctx, claimed)
	}()
	wg.Wait()

	return history, nil
}

// loadEntries fans out one load per identifier and compacts the results
// in ledger order, dropping failures.
func (hs *HistoryService) loadEntries(ctx context.Context, identifiers []string) []models.HistoryEntry {
	log := logger.GetLogger()
	now := time.Now().UnixMilli()

	views := make([]*models.DropletView, len(identifiers))
	var wg sync.WaitGroup

	for i, id := range identifiers {
		wg.Add(1)
		go func(index int, identifier string) {
			defer wg.Done()

			view, err := hs.droplets.Load(ctx, identifier, "")
			if err != nil {
				log.Warn("Dropping unloadable history entry",
					zap.String("droplet_id", identifier),
					zap.Error(err),
				)
				return
			}
			views[index] = view
		}(i, id)
	}

	wg.Wait()

	entries := make([]models.HistoryEntry, 0, len(identifiers))
	for i, view := range views {
		if view == nil {
			continue
		}
		entries = append(entries, models.HistoryEntry{
			ID:            identifiers[i],
			View:          view,
			TimeRemaining: FormatTimeRemaining(view.ExpiryTime, now),
		})
	}
	return entries
}

// Filter selects the subset of entries matching the mode.
func Filter(entries []models.HistoryEntry, mode models.FilterMode) []models.HistoryEntry {
	if mode == models.FilterAll {
		return entries
	}
	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.View == nil {
			continue
		}
		switch mode {
		case models.FilterActive:
			if !e.View.IsExpired && !e.View.IsClosed {
				out = append(out, e)
			}
		case models.FilterExpired:
			if e.View.IsExpired {
				out = append(out, e)
			}
		case models.FilterCompleted:
			if e.View.IsClosed || e.View.NumClaimed >= e.View.ReceiverLimit {
				out = append(out, e)
			}
		}
	}
	return out
}

// FormatTimeRemaining renders a countdown against an expiry timestamp
// in milliseconds, day-granular past 24 hours.
func FormatTimeRemaining(expiryTime, now int64) string {
	left := expiryTime - now
	if left <= 0 {
		return "Expired"
	}

	hours := left / (1000 * 60 * 60)
	minutes := (left % (1000 * 60 * 60)) / (1000 * 60)

	if hours > 24 {
		return fmt.Sprintf("%dd %dh", hours/24, hours%24)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
