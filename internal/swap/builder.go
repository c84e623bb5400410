// Package swap assembles, simulates, and submits Rarefish swap transactions.
package swap

import (
	"context"
	"fmt"
	"math/big"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/chain"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/metrics"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish"
)

// Builder turns a quoted trade into a signed transaction against one pool.
type Builder struct {
	chain *chain.Client
	log   zerolog.Logger
}

// SimResult captures what the node reported for a simulated transaction.
type SimResult struct {
	Logs          []string
	Err           any
	UnitsConsumed uint64
}

func NewBuilder(client *chain.Client, log zerolog.Logger) *Builder {
	return &Builder{chain: client, log: log}
}

// MinimumOut applies slippage tolerance to a quoted output amount.
func MinimumOut(quotedOut, slippageBps uint64) uint64 {
	if slippageBps >= 10_000 {
		return 0
	}
	out := new(big.Int).SetUint64(quotedOut)
	out.Mul(out, new(big.Int).SetUint64(10_000-slippageBps))
	out.Quo(out, big.NewInt(10_000))
	return out.Uint64()
}

// BuildTransaction derives the signer's associated token accounts, builds the
// swap instruction, and returns a signed transaction with a fresh blockhash.
func (b *Builder) BuildTransaction(
	ctx context.Context,
	market *rarefish.Rarefish,
	signer solana.PrivateKey,
	sourceMint, destMint solana.PublicKey,
	amountIn, minimumOut uint64,
) (*solana.Transaction, error) {
	owner := signer.PublicKey()
	sourceATA, _, err := solana.FindAssociatedTokenAddress(owner, sourceMint)
	if err != nil {
		return nil, fmt.Errorf("derive source ata: %w", err)
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(owner, destMint)
	if err != nil {
		return nil, fmt.Errorf("derive destination ata: %w", err)
	}

	instruction, err := market.BuildSwapInstruction(&amm.SwapParams{
		InAmount:                amountIn,
		MinimumOutAmount:        minimumOut,
		SourceMint:              sourceMint,
		DestinationMint:         destMint,
		SourceTokenAccount:      sourceATA,
		DestinationTokenAccount: destATA,
		TokenTransferAuthority:  owner,
	})
	if err != nil {
		return nil, fmt.Errorf("build swap instruction: %w", err)
	}

	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		blockhash,
		solana.TransactionPayer(owner),
	)
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(owner) {
			return &signer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return tx, nil
}

// Simulate dry-runs the transaction against current chain state.
func (b *Builder) Simulate(ctx context.Context, tx *solana.Transaction) (*SimResult, error) {
	resp, err := b.chain.RPC.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  true,
		Commitment: b.chain.Commit,
	})
	if err != nil {
		metrics.SwapSimulationsTotal.WithLabelValues("rpc_error").Inc()
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	result := &SimResult{Logs: resp.Value.Logs, Err: resp.Value.Err}
	if resp.Value.UnitsConsumed != nil {
		result.UnitsConsumed = *resp.Value.UnitsConsumed
	}
	outcome := "ok"
	if result.Err != nil {
		outcome = "program_error"
	}
	metrics.SwapSimulationsTotal.WithLabelValues(outcome).Inc()
	b.log.Info().Interface("err", result.Err).Uint64("units", result.UnitsConsumed).Msg("simulated swap")
	return result, nil
}

// Send submits the signed transaction through the RPC node.
func (b *Builder) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := b.chain.RPC.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: b.chain.Commit,
	})
	if err != nil {
		return sig, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}
