package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/dcablorh/suidrop/internal/config"
	"github.com/dcablorh/suidrop/internal/models"
)

// DefaultCreateMessage is substituted when a creation form leaves the
// message blank.
const DefaultCreateMessage = "Airdrop from Sui Drop Hub"

// gasCoinSource names the signer's gas coin as the funding source for
// the creation split when the caller does not pin a specific coin.
const gasCoinSource = "gas"

// CallBuilder assembles the two mutating calls of the drop hub program.
// Builders are pure: they validate, convert and order arguments, and
// hand back an opaque Call for the wallet provider to sign and submit.
type CallBuilder struct {
	contract *config.ContractConfig
}

// NewCallBuilder creates a new call builder
func NewCallBuilder(contract *config.ContractConfig) *CallBuilder {
	return &CallBuilder{contract: contract}
}

// BuildCreate validates the creation form and assembles the create call.
// The decimal amount is scaled to the smallest unit, and an exact-amount
// funds unit is split off the funding source so unrelated balance is
// never spent. basisPoints feeds the display estimate only.
func (b *CallBuilder) BuildCreate(req *models.CreateRequest, basisPoints uint64) (*models.BuildCreateResponse, error) {
	// Caller-side forms validate too; re-check here so a malformed call
	// can never be assembled.
	if errs := models.ValidateCreate(req); len(errs) > 0 {
		return nil, models.NewValidationError(errs[0].Field, errs[0].Reason)
	}

	amount, _ := strconv.ParseFloat(req.Amount, 64)
	amountUnits := uint64(math.Floor(amount * UnitScale))

	// Absent expiry means the ledger-side default; the program takes the
	// hours as an optional wrapper, encoded as a zero-or-one element list.
	expiry := []string{}
	if req.ExpiryHours != nil {
		expiry = append(expiry, strconv.FormatInt(*req.ExpiryHours, 10))
	}

	message := req.Message
	if strings.TrimSpace(message) == "" {
		message = DefaultCreateMessage
	}

	source := req.CoinSource
	if source == "" {
		source = gasCoinSource
	}

	call := &models.Call{
		Target:        b.target("create_droplet"),
		TypeArguments: []string{b.contract.CoinType},
		Arguments: []models.CallArg{
			{Kind: models.ArgObject, Value: b.contract.RegistryID},
			{Kind: models.ArgPure, Value: strconv.FormatUint(amountUnits, 10)},
			{Kind: models.ArgPure, Value: req.ReceiverLimit},
			{Kind: models.ArgPure, Value: expiry},
			{Kind: models.ArgPure, Value: message},
			{Kind: models.ArgSplitResult},
			{Kind: models.ArgObject, Value: b.contract.ClockID},
		},
		Split: &models.SplitStep{Source: source, Amount: amountUnits},
	}

	return &models.BuildCreateResponse{
		Call:     call,
		Estimate: Estimate(amountUnits, uint64(req.ReceiverLimit), basisPoints),
	}, nil
}

// BuildClaim assembles the claim call against an already resolved
// droplet address. The claimer name is stored trimmed.
func (b *CallBuilder) BuildClaim(resolvedAddress, identifier, claimerName string) *models.Call {
	return &models.Call{
		Target:        b.target("claim_internal"),
		TypeArguments: []string{b.contract.CoinType},
		Arguments: []models.CallArg{
			{Kind: models.ArgObject, Value: b.contract.RegistryID},
			{Kind: models.ArgObject, Value: resolvedAddress},
			{Kind: models.ArgPure, Value: identifier},
			{Kind: models.ArgPure, Value: strings.TrimSpace(claimerName)},
			{Kind: models.ArgObject, Value: b.contract.ClockID},
		},
	}
}

// ShareLink renders the claim link carried in QR codes and share buttons.
func ShareLink(origin, identifier string) string {
	return strings.TrimRight(origin, "/") + "/claim?id=" + identifier
}

// CreatedIdentifierFromEvents pulls the new identifier out of the
// creation event emitted by an executed create call. Empty when no
// creation event is present.
func CreatedIdentifierFromEvents(events []models.LedgerEvent) string {
	for _, ev := range events {
		if !strings.Contains(ev.Type, "DropletCreated") {
			continue
		}
		if id, ok := ev.ParsedJSON["droplet_id"].(string); ok {
			return id
		}
	}
	return ""
}

func (b *CallBuilder) target(function string) string {
	return b.contract.PackageID + "::" + b.contract.Module + "::" + function
}
