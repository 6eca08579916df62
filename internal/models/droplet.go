package models

// Claimer is one (account, display name) pair on a droplet's claim list.
type Claimer struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// DropletView is the typed read model of one droplet, rebuilt from the
// ledger on every fetch. RemainingAmount and IsExpired come from the
// ledger's own computation when the info view call succeeds; otherwise
// they are derived locally as a fallback.
type DropletView struct {
	ID              string    `json:"droplet_id"`
	Address         string    `json:"address"`
	Creator         string    `json:"creator"`
	TotalAmount     uint64    `json:"total_amount"`
	ClaimedAmount   uint64    `json:"claimed_amount"`
	RemainingAmount uint64    `json:"remaining_amount"`
	ReceiverLimit   uint64    `json:"receiver_limit"`
	NumClaimed      uint64    `json:"num_claimed"`
	CreatedAt       int64     `json:"created_at"`  // ms since epoch
	ExpiryTime      int64     `json:"expiry_time"` // ms since epoch
	IsExpired       bool      `json:"is_expired"`
	IsClosed        bool      `json:"is_closed"`
	Message         string    `json:"message"`
	Claimers        []Claimer `json:"claimers"`
	// ViewerHasClaimed is only meaningful when a viewer account was
	// supplied to the load.
	ViewerHasClaimed bool `json:"viewer_has_claimed,omitempty"`
}

// HistoryEntry pairs an identifier with its resolved view. Entries whose
// per-identifier fetch failed are dropped from history results entirely.
type HistoryEntry struct {
	ID            string       `json:"droplet_id"`
	View          *DropletView `json:"view"`
	TimeRemaining string       `json:"time_remaining"`
}

// UserHistory holds a user's created and claimed droplets in the order
// the ledger returned them.
type UserHistory struct {
	Created []HistoryEntry `json:"created"`
	Claimed []HistoryEntry `json:"claimed"`
}

// FilterMode selects a subset of history entries.
type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterActive    FilterMode = "active"
	FilterExpired   FilterMode = "expired"
	FilterCompleted FilterMode = "completed"
)

// ParseFilterMode maps a query value to a FilterMode, defaulting to all.
func ParseFilterMode(s string) (FilterMode, bool) {
	switch FilterMode(s) {
	case FilterActive, FilterExpired, FilterCompleted:
		return FilterMode(s), true
	case FilterAll, "":
		return FilterAll, true
	default:
		return FilterAll, false
	}
}

// PlatformStats is the registry-wide counters view.
type PlatformStats struct {
	TotalDroplets  uint64 `json:"total_droplets"`
	FeeBasisPoints uint64 `json:"fee_basis_points"`
}

// CreateRequest is the creation form input.
type CreateRequest struct {
	Amount        string `json:"amount"`
	ReceiverLimit int64  `json:"receiver_limit"`
	ExpiryHours   *int64 `json:"expiry_hours,omitempty"`
	Message       string `json:"message,omitempty"`
	// CoinSource is the funding source reference the split draws from.
	// Defaults to the gas coin when empty.
	CoinSource string `json:"coin_source,omitempty"`
}

// ClaimRequest is the claim form input.
type ClaimRequest struct {
	DropletID   string `json:"droplet_id"`
	ClaimerName string `json:"claimer_name"`
}

// ArgKind tags how a call argument must be materialized by the signer.
type ArgKind string

const (
	// ArgObject references a shared or owned on-chain object by ID.
	ArgObject ArgKind = "object"
	// ArgPure is a plain value serialized into the call.
	ArgPure ArgKind = "pure"
	// ArgSplitResult references the funds unit produced by the call's
	// split step.
	ArgSplitResult ArgKind = "split_result"
)

// CallArg is one positional argument of a mutating call.
type CallArg struct {
	Kind  ArgKind     `json:"kind"`
	Value interface{} `json:"value,omitempty"`
}

// SplitStep instructs the signer to split an exact-amount funds unit off
// the source coin before the call, so unrelated balance stays untouched.
type SplitStep struct {
	Source string `json:"source"`
	Amount uint64 `json:"amount"`
}

// Call is a fully assembled mutating call, ready to be signed and
// submitted by the external wallet provider. Builders never submit.
type Call struct {
	Target        string     `json:"target"`
	TypeArguments []string   `json:"type_arguments,omitempty"`
	Arguments     []CallArg  `json:"arguments"`
	Split         *SplitStep `json:"split,omitempty"`
}

// LedgerEvent is an event attached to an executed transaction, as
// reported back by the wallet provider.
type LedgerEvent struct {
	Type       string                 `json:"type"`
	ParsedJSON map[string]interface{} `json:"parsedJson"`
}

// FeeEstimate is the display-only fee breakdown for a creation amount.
// The authoritative fee is computed by the ledger program at creation.
type FeeEstimate struct {
	Amount         uint64 `json:"amount"`
	Fee            uint64 `json:"fee"`
	NetAmount      uint64 `json:"net_amount"`
	PerRecipient   uint64 `json:"per_recipient"`
	FeeBasisPoints uint64 `json:"fee_basis_points"`
}

// BuildCreateResponse carries a built create call plus its fee estimate.
type BuildCreateResponse struct {
	Call     *Call        `json:"call"`
	Estimate *FeeEstimate `json:"estimate"`
}

// BuildClaimResponse carries a built claim call and the resolved address.
type BuildClaimResponse struct {
	DropletAddress string `json:"droplet_address"`
	Call           *Call  `json:"call"`
}
