package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dcablorh/suidrop/internal/config"
	"github.com/dcablorh/suidrop/internal/decode"
	"github.com/dcablorh/suidrop/internal/models"
	"github.com/dcablorh/suidrop/pkg/cache"
	"github.com/dcablorh/suidrop/pkg/logger"
	"github.com/dcablorh/suidrop/pkg/metrics"
	"github.com/dcablorh/suidrop/pkg/mutex"

	"go.uber.org/zap"
)

// Positional layout of the droplet info view result.
const (
	infoRemainingIndex = 3
	infoExpiredIndex   = 7
	infoMinValues      = 8
)

// DropletService rebuilds a droplet's typed view from the ledger on
// every load, integrating caching, per-identifier request deduplication
// and RPC metrics.
type DropletService struct {
	ledger       LedgerClientInterface
	resolver     *Resolver
	contract     *config.ContractConfig
	cache        *cache.Cache
	requestMutex *mutex.RequestMutex
	config       *config.Config
	metrics      *metrics.MetricsCollector
}

// NewDropletService creates a new DropletService instance
func NewDropletService(ledger LedgerClientInterface, cfg *config.Config) *DropletService {
	return &DropletService{
		ledger:       ledger,
		resolver:     NewResolver(ledger, &cfg.Contract),
		contract:     &cfg.Contract,
		cache:        cache.New(cfg.Cache.TTL),
		requestMutex: mutex.New(cfg.Cache.CleanupInterval),
		config:       cfg,
		metrics:      metrics.NewMetricsCollector(),
	}
}

// Load resolves the identifier and reconciles object fields with the
// ledger-computed info view into one consistent DropletView. Resolution
// and the object fetch are fatal; the info and has-claimed views are
// each independently optional and degrade to local derivation.
func (ds *DropletService) Load(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
	startTime := time.Now()
	ds.metrics.RecordRequest()

	view, err := ds.loadWithCache(ctx, identifier, viewerAccount)

	ds.metrics.RecordRequestComplete(time.Since(startTime), err == nil)
	return view, err
}

func (ds *DropletService) loadWithCache(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error) {
	log := logger.GetLogger().WithFields(map[string]interface{}{
		"droplet_id": identifier,
		"component":  "droplet_service",
	})

	cacheKey := identifier + "|" + viewerAccount

	if cached, found := ds.cache.Get(cacheKey); found {
		log.Debug("Cache hit for droplet view")
		ds.metrics.RecordCacheHit()
		return cached.(*models.DropletView), nil
	}

	log.Debug("Cache miss, acquiring mutex for droplet")
	ds.metrics.RecordCacheMiss()

	mutexStartTime := time.Now()
	idMutex := ds.requestMutex.GetMutex(cacheKey)
	idMutex.Lock()
	defer idMutex.Unlock()

	if time.Since(mutexStartTime) > time.Millisecond {
		ds.metrics.RecordMutexWait()
	}

	// Another in-flight load may have populated the cache while we waited.
	if cached, found := ds.cache.Get(cacheKey); found {
		log.Debug("Cache hit after mutex acquisition (populated by concurrent request)")
		ds.metrics.RecordCacheHit()
		return cached.(*models.DropletView), nil
	}

	view, err := ds.loadFromLedger(ctx, identifier, viewerAccount, log)
	if err != nil {
		return nil, err
	}

	ds.cache.Set(cacheKey, view)
	return view, nil
}

func (ds *DropletService) loadFromLedger(ctx context.Context, identifier, viewerAccount string, log *logger.Logger) (*models.DropletView, error) {
	address, err := ds.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	rpcStartTime := time.Now()
	fields, err := ds.ledger.GetObject(ctx, address)
	ds.metrics.RecordRPCCall(time.Since(rpcStartTime), err == nil)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil, models.NewAppErrorWithDetails(models.ErrorCodeObjectUnavailable, "Droplet object unavailable", address)
		}
		return nil, models.NewTransportError("droplet object fetch failed", err)
	}

	view := viewFromFields(identifier, address, fields)

	// The ledger is authoritative over wall-clock skew at the edge of
	// expiry; losing this call only costs precision, never the load.
	if remaining, expired, err := ds.fetchInfo(ctx, address); err != nil {
		log.Warn("Droplet info view failed, deriving locally", zap.Error(err))
	} else {
		view.RemainingAmount = remaining
		view.IsExpired = expired
	}

	if viewerAccount != "" {
		if claimed, err := ds.fetchHasClaimed(ctx, address, viewerAccount); err != nil {
			log.Warn("Has-claimed view failed, scanning claimer list", zap.Error(err))
			view.ViewerHasClaimed = claimerListContains(view.Claimers, viewerAccount)
		} else {
			view.ViewerHasClaimed = claimed
		}
	}

	log.Debug("Loaded droplet view from ledger",
		zap.String("address", address),
		zap.Uint64("remaining_amount", view.RemainingAmount),
		zap.Bool("is_expired", view.IsExpired),
	)

	return view, nil
}

// fetchInfo reads the ledger-computed remaining amount and expired flag.
func (ds *DropletService) fetchInfo(ctx context.Context, address string) (uint64, bool, error) {
	call := &InspectCall{
		Target:        fmt.Sprintf("%s::%s::get_droplet_info", ds.contract.PackageID, ds.contract.Module),
		TypeArguments: []string{ds.contract.CoinType},
		Arguments:     []InspectArg{ObjectInput(address), ObjectInput(ds.contract.ClockID)},
	}

	rpcStartTime := time.Now()
	values, err := ds.ledger.Inspect(ctx, ds.contract.NullSender, call)
	ds.metrics.RecordRPCCall(time.Since(rpcStartTime), err == nil)
	if err != nil {
		return 0, false, err
	}
	if len(values) < infoMinValues {
		return 0, false, fmt.Errorf("info view returned %d values, want at least %d", len(values), infoMinValues)
	}

	remaining, err := decode.U64LE(values[infoRemainingIndex])
	if err != nil {
		return 0, false, err
	}
	// An empty expired payload reads as false.
	return remaining, decode.BoolFlag(values[infoExpiredIndex]), nil
}

// fetchHasClaimed asks the ledger whether the account already claimed.
// Authoritative even when the claimer list is partial.
func (ds *DropletService) fetchHasClaimed(ctx context.Context, address, account string) (bool, error) {
	call := &InspectCall{
		Target:        fmt.Sprintf("%s::%s::has_claimed", ds.contract.PackageID, ds.contract.Module),
		TypeArguments: []string{ds.contract.CoinType},
		Arguments:     []InspectArg{ObjectInput(address), PureAddress(account)},
	}

	rpcStartTime := time.Now()
	values, err := ds.ledger.Inspect(ctx, ds.contract.NullSender, call)
	ds.metrics.RecordRPCCall(time.Since(rpcStartTime), err == nil)
	if err != nil {
		return false, err
	}
	if len(values) == 0 {
		return false, fmt.Errorf("has-claimed view returned no values")
	}
	return decode.BoolFlag(values[0]), nil
}

// viewFromFields populates the view directly from object fields, with
// remaining amount and expiry derived locally as the fallback the info
// view overrides.
func viewFromFields(identifier, address string, fields map[string]interface{}) *models.DropletView {
	view := &models.DropletView{
		ID:            fieldString(fields, "droplet_id", identifier),
		Address:       address,
		Creator:       fieldString(fields, "sender", ""),
		TotalAmount:   fieldUint64(fields, "total_amount"),
		ClaimedAmount: fieldUint64(fields, "claimed_amount"),
		ReceiverLimit: fieldUint64(fields, "receiver_limit"),
		NumClaimed:    fieldUint64(fields, "num_claimed"),
		CreatedAt:     int64(fieldUint64(fields, "created_at")),
		ExpiryTime:    int64(fieldUint64(fields, "expiry_time")),
		IsClosed:      fieldBool(fields, "is_closed"),
		Message:       fieldString(fields, "message", ""),
	}

	if view.TotalAmount >= view.ClaimedAmount {
		view.RemainingAmount = view.TotalAmount - view.ClaimedAmount
	}
	view.IsExpired = time.Now().UnixMilli() >= view.ExpiryTime

	addresses := fieldStrings(fields, "claimers_list")
	names := fieldStrings(fields, "claimer_names")
	for i, addr := range addresses {
		claimer := models.Claimer{Address: addr}
		if i < len(names) {
			claimer.Name = names[i]
		}
		view.Claimers = append(view.Claimers, claimer)
	}

	return view
}

func claimerListContains(claimers []models.Claimer, account string) bool {
	for _, c := range claimers {
		if c.Address == account {
			return true
		}
	}
	return false
}

// Object field values arrive untyped from JSON: integers as decimal
// strings or numbers depending on width, booleans native.

func fieldString(fields map[string]interface{}, key, fallback string) string {
	if s, ok := fields[key].(string); ok {
		return s
	}
	return fallback
}

func fieldUint64(fields map[string]interface{}, key string) uint64 {
	switch v := fields[key].(type) {
	case string:
		var n uint64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	case float64:
		if v >= 0 {
			return uint64(v)
		}
	}
	return 0
}

func fieldBool(fields map[string]interface{}, key string) bool {
	b, _ := fields[key].(bool)
	return b
}

func fieldStrings(fields map[string]interface{}, key string) []string {
	raw, ok := fields[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetCacheStats returns cache statistics for monitoring
func (ds *DropletService) GetCacheStats() map[string]interface{} {
	return map[string]interface{}{
		"cache_size":   ds.cache.Size(),
		"mutex_count":  ds.requestMutex.Size(),
		"cache_ttl_ms": ds.config.Cache.TTL.Milliseconds(),
	}
}

// GetPerformanceStats returns comprehensive performance statistics
func (ds *DropletService) GetPerformanceStats() map[string]interface{} {
	m := ds.metrics.GetMetrics()

	return map[string]interface{}{
		"uptime":                   ds.metrics.GetUptime().String(),
		"total_requests":           m.TotalRequests,
		"successful_requests":      m.SuccessfulRequests,
		"failed_requests":          m.FailedRequests,
		"success_rate_percent":     ds.metrics.GetSuccessRate(),
		"average_response_time_ms": m.AverageResponseTime.Milliseconds(),
		"min_response_time_ms":     m.MinResponseTime.Milliseconds(),
		"max_response_time_ms":     m.MaxResponseTime.Milliseconds(),
		"cache_hits":               m.CacheHits,
		"cache_misses":             m.CacheMisses,
		"cache_hit_ratio_percent":  ds.metrics.GetCacheHitRatio(),
		"rpc_calls":                m.RPCCalls,
		"rpc_failures":             m.RPCFailures,
		"average_rpc_time_ms":      m.AverageRPCTime.Milliseconds(),
		"active_requests":          m.ActiveRequests,
		"mutex_waits":              m.MutexWaits,
		"cache_size":               ds.cache.Size(),
		"mutex_count":              ds.requestMutex.Size(),
	}
}

// ClearCache clears all cached droplet views
func (ds *DropletService) ClearCache() {
	ds.cache.Clear()
}

// Stop gracefully shuts down the service
func (ds *DropletService) Stop() {
	ds.cache.Stop()
	ds.requestMutex.Stop()
}

// GetMetricsCollector returns the metrics collector for middleware integration
func (ds *DropletService) GetMetricsCollector() *metrics.MetricsCollector {
	return ds.metrics
}
