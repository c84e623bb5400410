// Package integration holds network-gated tests against Solana mainnet.
//
// Both tests require SWAP_PROGRAM_OWNER_FEE_ADDRESS to be exported, e.g.
//
//	SWAP_PROGRAM_OWNER_FEE_ADDRESS=fiSha8e7EDkbxrWwfnTXGu7YQh9n4C52AHnEBBNEEYE \
//	  go test ./internal/integration -run TestJupiterRarefishIntegrationQuote
package integration

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	solana "github.com/gagliardetto/solana-go"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/chain"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/swap"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/util"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/wallet"
)

const mainnetRPC = "https://api.mainnet-beta.solana.com/"

var (
	solUsdcMarket = solana.MustPublicKeyFromBase58("3uqKSr5gZzZSJXgrdikPeWGp1SnEqEayFABwzDQ3vRWe")
	usdhHbbMarket = solana.MustPublicKeyFromBase58("HcCyVwmtcYKLQYCgfQPv8LVRxW3XDkbop4WZRShGCvK4")
)

func requireLiveSetup(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("live network test, skipped in -short mode")
	}
	if _, err := wallet.OwnerFeeAddressFromEnv(); err != nil {
		t.Skipf("live network test requires %s: %v", wallet.OwnerFeeAddressEnv, err)
	}
}

func loadMarket(t *testing.T, ctx context.Context, client *chain.Client, address solana.PublicKey) *rarefish.Rarefish {
	t.Helper()
	keyed, err := client.FetchKeyedAccount(ctx, address)
	if err != nil {
		t.Fatalf("fetch market %s: %v", address, err)
	}
	market, err := rarefish.NewFromKeyedAccount(keyed)
	if err != nil {
		t.Fatalf("decode market %s: %v", address, err)
	}
	accounts, err := client.FetchAccountMap(ctx, market.AccountsToUpdate())
	if err != nil {
		t.Fatalf("fetch vaults: %v", err)
	}
	if err := market.Update(accounts); err != nil {
		t.Fatalf("update market: %v", err)
	}
	return market
}

func quoteBothWays(t *testing.T, market *rarefish.Rarefish, name string, sellMint, buyMint solana.PublicKey, amount uint64, sellDecimals, buyDecimals int) {
	t.Helper()
	quote, err := market.Quote(&amm.QuoteParams{
		InputMint:  sellMint,
		OutputMint: buyMint,
		Amount:     amount,
		SwapMode:   amm.ExactIn,
	})
	if err != nil {
		t.Fatalf("%s: quote: %v", name, err)
	}
	if quote.OutAmount == 0 {
		t.Fatalf("%s: zero output quoted", name)
	}
	in := float64(quote.InAmount) / math.Pow10(sellDecimals)
	out := float64(quote.OutAmount) / math.Pow10(buyDecimals)
	t.Logf("%s: sell %f -> %f (rate %f)", name, in, out, out/in)

	back, err := market.Quote(&amm.QuoteParams{
		InputMint:  buyMint,
		OutputMint: sellMint,
		Amount:     quote.OutAmount,
		SwapMode:   amm.ExactIn,
	})
	if err != nil {
		t.Fatalf("%s: reverse quote: %v", name, err)
	}
	if back.OutAmount > amount {
		t.Fatalf("%s: round trip should not profit: %d in, %d back", name, amount, back.OutAmount)
	}
	t.Logf("%s: buy back %f -> %f", name, out, float64(back.OutAmount)/math.Pow10(sellDecimals))
}

func TestJupiterRarefishIntegrationQuote(t *testing.T) {
	requireLiveSetup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	client := chain.New(mainnetRPC, "confirmed")

	solUsdc := loadMarket(t, ctx, client, solUsdcMarket)
	pool := solUsdc.Pool()
	// Sell 1000 USDC (token B, 6 decimals) for SOL (token A, 9 decimals).
	quoteBothWays(t, solUsdc, "SOL/USDC", pool.TokenBMint, pool.TokenAMint, 1_000_000_000, 6, 9)

	usdhHbb := loadMarket(t, ctx, client, usdhHbbMarket)
	pool = usdhHbb.Pool()
	// Sell 1 USDH (token A, 6 decimals) for HBB (token B, 6 decimals).
	quoteBothWays(t, usdhHbb, "USDH/HBB", pool.TokenAMint, pool.TokenBMint, 1_000_000, 6, 6)
}

func TestJupiterRarefishIntegrationSim(t *testing.T) {
	requireLiveSetup(t)
	signer, err := wallet.LoadKeypair("keypair.json")
	if err != nil {
		t.Skipf("simulation requires a local keypair.json: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	client := chain.New(mainnetRPC, "confirmed")
	market := loadMarket(t, ctx, client, solUsdcMarket)
	pool := market.Pool()

	const amountIn = 10_000_000 // 0.01 SOL
	quote, err := market.Quote(&amm.QuoteParams{
		InputMint:  pool.TokenAMint,
		OutputMint: pool.TokenBMint,
		Amount:     amountIn,
		SwapMode:   amm.ExactIn,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	builder := swap.NewBuilder(client, util.NewLogger("error"))
	tx, err := builder.BuildTransaction(ctx, market, signer,
		pool.TokenAMint, pool.TokenBMint,
		amountIn, swap.MinimumOut(quote.OutAmount, 150))
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	sim, err := builder.Simulate(ctx, tx)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	for _, line := range sim.Logs {
		t.Log(line)
	}
	t.Logf("simulated swap on SOL/USDC market %s, err=%v, units=%d", solUsdcMarket, sim.Err, sim.UnitsConsumed)

	if os.Getenv("RAREFISH_EXECUTE_SWAP") == "" || sim.Err != nil {
		return
	}
	sig, err := builder.Send(ctx, tx)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	t.Logf("executed swap: %s", sig)
}
