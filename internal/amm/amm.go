// Package amm defines the aggregator-facing contract a market integration implements.
package amm

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// KeyedAccount pairs an on-chain account with the address it was fetched from.
type KeyedAccount struct {
	Key     solana.PublicKey
	Account *rpc.Account
}

// AccountMap holds raw accounts keyed by address, as returned by a batched fetch.
type AccountMap map[solana.PublicKey]*rpc.Account

// SwapMode selects which side of the trade is fixed.
type SwapMode string

const (
	// ExactIn fixes the input amount; the output amount is quoted.
	ExactIn SwapMode = "ExactIn"
	// ExactOut fixes the output amount. Rarefish pools only honor ExactIn.
	ExactOut SwapMode = "ExactOut"
)

// QuoteParams describes a single quote request against one market.
type QuoteParams struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Amount     uint64
	SwapMode   SwapMode
}

// Quote is the computed result of a quote request, amounts in smallest units.
type Quote struct {
	InAmount  uint64
	OutAmount uint64
	FeeAmount uint64
	FeeMint   solana.PublicKey
}

// SwapParams carries everything needed to assemble the swap account list.
type SwapParams struct {
	InAmount                uint64
	MinimumOutAmount        uint64
	SourceMint              solana.PublicKey
	DestinationMint         solana.PublicKey
	SourceTokenAccount      solana.PublicKey
	DestinationTokenAccount solana.PublicKey
	TokenTransferAuthority  solana.PublicKey
}

// SwapAndAccountMetas is the ordered account list for the on-chain swap instruction.
type SwapAndAccountMetas struct {
	AccountMetas solana.AccountMetaSlice
}

// Amm is the integration surface a market adapter exposes to a router.
//
// Lifecycle: construct from a keyed market account, ask for AccountsToUpdate,
// fetch those, call Update, then Quote / SwapAccountMetas freely. Update may be
// called again at any time to refresh reserves.
type Amm interface {
	ProgramID() solana.PublicKey
	Key() solana.PublicKey
	Label() string
	ReserveMints() []solana.PublicKey
	AccountsToUpdate() []solana.PublicKey
	Update(accounts AccountMap) error
	Quote(params *QuoteParams) (*Quote, error)
	SwapAccountMetas(params *SwapParams) (*SwapAndAccountMetas, error)
}
