package rarefish

import (
	"fmt"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
)

// Label identifies this integration to routers.
const Label = "Rarefish"

// Rarefish implements amm.Amm over a single swap-pool account. Update may run
// concurrently with Quote; the mutex guards the refreshed reserve state.
type Rarefish struct {
	marketKey solana.PublicKey
	programID solana.PublicKey
	pool      *SwapPool

	mu          sync.RWMutex
	tokenAVault *token.Account
	tokenBVault *token.Account
	curve       Curve
}

// NewFromKeyedAccount builds an adapter from a fetched pool account. Reserve
// state is not populated until Update runs.
func NewFromKeyedAccount(keyed *amm.KeyedAccount) (*Rarefish, error) {
	if keyed == nil || keyed.Account == nil {
		return nil, fmt.Errorf("rarefish: nil market account")
	}
	pool, err := DecodeSwapPool(keyed.Account.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("rarefish: market %s: %w", keyed.Key, err)
	}
	return &Rarefish{
		marketKey: keyed.Key,
		programID: ProgramID,
		pool:      pool,
	}, nil
}

// Pool exposes the decoded pool state.
func (r *Rarefish) Pool() *SwapPool { return r.pool }

func (r *Rarefish) ProgramID() solana.PublicKey { return r.programID }

func (r *Rarefish) Key() solana.PublicKey { return r.marketKey }

func (r *Rarefish) Label() string { return Label }

func (r *Rarefish) ReserveMints() []solana.PublicKey {
	return []solana.PublicKey{r.pool.TokenAMint, r.pool.TokenBMint}
}

func (r *Rarefish) AccountsToUpdate() []solana.PublicKey {
	return []solana.PublicKey{r.pool.TokenAVault, r.pool.TokenBVault}
}

// Update refreshes the vault balances from fetched accounts and rebuilds the
// curve from the pool's descriptor.
func (r *Rarefish) Update(accounts amm.AccountMap) error {
	vaultA, err := decodeVault(accounts, r.pool.TokenAVault)
	if err != nil {
		return fmt.Errorf("rarefish: vault A: %w", err)
	}
	vaultB, err := decodeVault(accounts, r.pool.TokenBVault)
	if err != nil {
		return fmt.Errorf("rarefish: vault B: %w", err)
	}
	curve, err := NewCurve(r.pool.CurveType, r.pool.CurveParameters)
	if err != nil {
		return fmt.Errorf("rarefish: %w", err)
	}
	r.mu.Lock()
	r.tokenAVault = vaultA
	r.tokenBVault = vaultB
	r.curve = curve
	r.mu.Unlock()
	return nil
}

func decodeVault(accounts amm.AccountMap, key solana.PublicKey) (*token.Account, error) {
	account, ok := accounts[key]
	if !ok || account == nil {
		return nil, fmt.Errorf("account %s missing from update set", key)
	}
	var vault token.Account
	if err := bin.NewBinDecoder(account.Data.GetBinary()).Decode(&vault); err != nil {
		return nil, fmt.Errorf("decode token account %s: %w", key, err)
	}
	return &vault, nil
}

// direction resolves which pool side the input mint sells.
func (r *Rarefish) direction(inputMint solana.PublicKey) (TradeDirection, error) {
	switch {
	case inputMint.Equals(r.pool.TokenAMint):
		return AtoB, nil
	case inputMint.Equals(r.pool.TokenBMint):
		return BtoA, nil
	default:
		return 0, fmt.Errorf("rarefish: mint %s not traded on market %s", inputMint, r.marketKey)
	}
}

// Quote prices an exact-in trade against the last updated reserves.
func (r *Rarefish) Quote(params *amm.QuoteParams) (*amm.Quote, error) {
	r.mu.RLock()
	vaultA, vaultB, curve := r.tokenAVault, r.tokenBVault, r.curve
	r.mu.RUnlock()

	if vaultA == nil || vaultB == nil || curve == nil {
		return nil, fmt.Errorf("rarefish: market %s not updated", r.marketKey)
	}
	if params.SwapMode == amm.ExactOut {
		return nil, fmt.Errorf("rarefish: exact-out quotes not supported")
	}
	direction, err := r.direction(params.InputMint)
	if err != nil {
		return nil, err
	}
	sourceReserve, destReserve := vaultA.Amount, vaultB.Amount
	if direction == BtoA {
		sourceReserve, destReserve = destReserve, sourceReserve
	}
	result, err := Swap(curve, params.Amount, sourceReserve, destReserve, r.pool.Fees)
	if err != nil {
		return nil, fmt.Errorf("rarefish: quote %s: %w", direction, err)
	}
	return &amm.Quote{
		InAmount:  result.SourceAmountSwapped,
		OutAmount: result.DestinationAmountSwapped,
		FeeAmount: result.TradeFee + result.OwnerFee,
		FeeMint:   params.InputMint,
	}, nil
}

// SwapAccountMetas assembles the swap instruction's account list. The
// host-fees slot carries the program id, which the program reads as "none".
func (r *Rarefish) SwapAccountMetas(params *amm.SwapParams) (*amm.SwapAndAccountMetas, error) {
	direction, err := r.direction(params.SourceMint)
	if err != nil {
		return nil, err
	}

	var (
		sourceVault     solana.PublicKey
		sourceFeesVault solana.PublicKey
		sourceProgram   solana.PublicKey
		destVault       solana.PublicKey
		destProgram     solana.PublicKey
	)
	if direction == AtoB {
		sourceVault = r.pool.TokenAVault
		sourceFeesVault = r.pool.TokenAFeesVault
		sourceProgram = r.pool.TokenProgramA()
		destVault = r.pool.TokenBVault
		destProgram = r.pool.TokenProgramB()
	} else {
		sourceVault = r.pool.TokenBVault
		sourceFeesVault = r.pool.TokenBFeesVault
		sourceProgram = r.pool.TokenProgramB()
		destVault = r.pool.TokenAVault
		destProgram = r.pool.TokenProgramA()
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(params.TokenTransferAuthority).SIGNER(),
		solana.Meta(r.marketKey).WRITE(),
		solana.Meta(r.pool.PoolAuthority),
		solana.Meta(params.SourceMint),
		solana.Meta(params.DestinationMint),
		solana.Meta(sourceVault).WRITE(),
		solana.Meta(destVault).WRITE(),
		solana.Meta(sourceFeesVault).WRITE(),
		solana.Meta(params.SourceTokenAccount).WRITE(),
		solana.Meta(params.DestinationTokenAccount).WRITE(),
		solana.Meta(r.programID).WRITE(), // host fees account: program id means none
		solana.Meta(sourceProgram),
		solana.Meta(destProgram),
	}
	return &amm.SwapAndAccountMetas{AccountMetas: metas}, nil
}
