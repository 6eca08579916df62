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
	"github.com/dcablorh/suidrop/pkg/scheduler"

	"go.uber.org/zap"
)

// StatsService serves the registry-wide counters and keeps them fresh
// with a periodic background refresh.
type StatsService struct {
	ledger   LedgerClientInterface
	contract *config.ContractConfig

	mu      sync.RWMutex
	current *models.PlatformStats

	task *scheduler.Task
}

// NewStatsService creates a new StatsService instance
func NewStatsService(ledger LedgerClientInterface, contract *config.ContractConfig) *StatsService {
	return &StatsService{
		ledger:   ledger,
		contract: contract,
	}
}

// StartPolling begins refreshing the stats on the given interval. The
// refresh is an idempotent read, so an in-flight run overlapping the
// next tick is harmless.
func (ss *StatsService) StartPolling(interval time.Duration) {
	ss.task = scheduler.Every(interval, ss.refresh)
}

// Stop cancels the background refresh.
func (ss *StatsService) Stop() {
	if ss.task != nil {
		ss.task.Stop()
	}
}

// Stats returns the last refreshed counters, fetching synchronously only
// when no refresh has succeeded yet.
func (ss *StatsService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	ss.mu.RLock()
	current := ss.current
	ss.mu.RUnlock()

	if current != nil {
		return current, nil
	}
	return ss.fetch(ctx)
}

// FeeBasisPoints returns the live platform fee rate, or the default
// when the stats view has not been read yet.
func (ss *StatsService) FeeBasisPoints() uint64 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if ss.current != nil {
		return ss.current.FeeBasisPoints
	}
	return DefaultFeeBasisPoints
}

func (ss *StatsService) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := ss.fetch(ctx); err != nil {
		logger.GetLogger().Warn("Platform stats refresh failed", zap.Error(err))
	}
}

func (ss *StatsService) fetch(ctx context.Context) (*models.PlatformStats, error) {
	call := &InspectCall{
		Target:    fmt.Sprintf("%s::%s::get_platform_stats", ss.contract.PackageID, ss.contract.Module),
		Arguments: []InspectArg{ObjectInput(ss.contract.RegistryID)},
	}

	values, err := ss.ledger.Inspect(ctx, ss.contract.NullSender, call)
	if err != nil {
		return nil, models.NewTransportError("platform stats lookup failed", err)
	}
	if len(values) < 2 {
		return nil, models.NewAppErrorWithDetails(models.ErrorCodeMalformedValue,
			"undecodable stats result", fmt.Sprintf("%d return values", len(values)))
	}

	// The counters come back as short little-endian encodings.
	total, err := decode.UintLE(values[0])
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeMalformedValue, "undecodable droplet count", err)
	}
	feeBP, err := decode.UintLE(values[1])
	if err != nil {
		return nil, models.NewAppErrorWithCause(models.ErrorCodeMalformedValue, "undecodable fee rate", err)
	}

	stats := &models.PlatformStats{
		TotalDroplets:  total,
		FeeBasisPoints: feeBP,
	}

	ss.mu.Lock()
	ss.current = stats
	ss.mu.Unlock()

	return stats, nil
}
