package services

import "github.com/dcablorh/suidrop/internal/models"

// Fee arithmetic for display estimates. The ledger program computes and
// deducts the authoritative fee at creation; nothing here is enforced
// client-side.

// DefaultFeeBasisPoints is the platform-wide rate observed on the
// registry, used until the stats view supplies a live value.
const DefaultFeeBasisPoints = 130

// UnitScale converts whole coins to the smallest divisible unit.
const UnitScale = 1_000_000_000

// Fee returns the platform fee on amount at the given basis-point rate.
func Fee(amount, basisPoints uint64) uint64 {
	return amount * basisPoints / 10000
}

// NetAmount returns the amount left after the platform fee.
func NetAmount(amount, basisPoints uint64) uint64 {
	return amount - Fee(amount, basisPoints)
}

// PerRecipient returns the truncated share of net per recipient. The
// remainder stays unallocated; final distribution is ledger-governed.
// receiverLimit must be at least 1, enforced by the caller.
func PerRecipient(net, receiverLimit uint64) uint64 {
	return net / receiverLimit
}

// Estimate computes the full fee breakdown for a creation amount in the
// smallest unit.
func Estimate(amount, receiverLimit, basisPoints uint64) *models.FeeEstimate {
	net := NetAmount(amount, basisPoints)
	return &models.FeeEstimate{
		Amount:         amount,
		Fee:            Fee(amount, basisPoints),
		NetAmount:      net,
		PerRecipient:   PerRecipient(net, receiverLimit),
		FeeBasisPoints: basisPoints,
	}
}
