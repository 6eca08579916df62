package services

import (
	"context"

	"github.com/dcablorh/suidrop/internal/models"
)

// AuthServiceInterface defines the interface for authentication services
type AuthServiceInterface interface {
	ValidateAPIKey(key string) (*models.APIKey, error)
}

// LedgerClientInterface exposes the two read-only capabilities of the
// ledger endpoint. Mutating submission is deliberately not a port here:
// built calls are signed and submitted by the external wallet provider.
type LedgerClientInterface interface {
	// Inspect runs a read-only simulated invocation and returns the raw
	// positional return values.
	Inspect(ctx context.Context, sender string, call *InspectCall) ([][]byte, error)
	// GetObject fetches the untyped field set of an on-chain object.
	GetObject(ctx context.Context, address string) (map[string]interface{}, error)
}

// DropletServiceInterface defines the interface for droplet state loads
type DropletServiceInterface interface {
	Load(ctx context.Context, identifier, viewerAccount string) (*models.DropletView, error)
}

// HistoryServiceInterface defines the interface for user history aggregation
type HistoryServiceInterface interface {
	History(ctx context.Context, account string) (*models.UserHistory, error)
}

// StatsServiceInterface defines the interface for platform-wide stats
type StatsServiceInterface interface {
	Stats(ctx context.Context) (*models.PlatformStats, error)
	FeeBasisPoints() uint64
}
