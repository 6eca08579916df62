package services

import (
	"context"
	"fmt"

	"github.com/dcablorh/suidrop/internal/config"
	"github.com/dcablorh/suidrop/internal/decode"
	"github.com/dcablorh/suidrop/internal/models"
)

// Resolver maps a 6-character identifier to an on-chain droplet address
// via the registry's lookup view. Callers must have validated and
// normalized the identifier already; the resolver does not re-check it.
type Resolver struct {
	ledger   LedgerClientInterface
	contract *config.ContractConfig
}

// NewResolver creates a new identifier resolver
func NewResolver(ledger LedgerClientInterface, contract *config.ContractConfig) *Resolver {
	return &Resolver{ledger: ledger, contract: contract}
}

// Resolve returns the droplet address for the identifier. The lookup is
// read-only, so it runs with the reserved null sender. NOT_FOUND covers
// an absent option and a lookup that yields no return values.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (string, error) {
	call := &InspectCall{
		Target:    fmt.Sprintf("%s::%s::find_droplet_by_id", r.contract.PackageID, r.contract.Module),
		Arguments: []InspectArg{ObjectInput(r.contract.RegistryID), PureString(identifier)},
	}

	values, err := r.ledger.Inspect(ctx, r.contract.NullSender, call)
	if err != nil {
		return "", models.NewTransportError("droplet lookup failed", err)
	}
	if len(values) == 0 {
		return "", models.NewNotFoundError(identifier)
	}

	address, present, err := decode.OptionalAddress(values[0])
	if err != nil {
		return "", models.NewAppErrorWithCause(models.ErrorCodeMalformedValue, "undecodable lookup result", err)
	}
	if !present {
		return "", models.NewNotFoundError(identifier)
	}
	return address, nil
}
