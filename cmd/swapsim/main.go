// Binary swapsim builds and simulates a swap on a configured market, and only
// submits it on-chain when the config opts in and a funded keypair is present.
package main

import (
	"context"
	"log"
	"os"
	"time"

	solana "github.com/gagliardetto/solana-go"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/chain"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/config"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/metrics"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/swap"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/util"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/wallet"
)

func main() {
	cfg, err := config.Load(getEnv("RAREFISH_CONFIG", "internal/config/config.yaml"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := util.NewLogger(cfg.App.LogLevel)
	metrics.Serve(cfg.App.MetricsAddr)

	if cfg.Rarefish.FeeOwner == "" {
		if _, err := wallet.OwnerFeeAddressFromEnv(); err != nil {
			log.Fatalf("fee owner: %v", err)
		}
	}

	marketCfg := cfg.MarketByName(cfg.Swap.Market)
	if marketCfg == nil {
		log.Fatalf("swap: market %q not configured", cfg.Swap.Market)
	}
	address, err := solana.PublicKeyFromBase58(marketCfg.Address)
	if err != nil {
		log.Fatalf("swap: market address: %v", err)
	}

	signer, err := wallet.LoadKeypair(cfg.Swap.KeypairPath)
	if err != nil {
		log.Fatalf("wallet: %v", err)
	}

	client := chain.New(
		getEnv("SOLANA_RPC_URL", cfg.RPC.URL),
		getEnv("SOLANA_COMMITMENT", cfg.RPC.Commitment),
	)
	builder := swap.NewBuilder(client, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	keyed, err := client.FetchKeyedAccount(ctx, address)
	if err != nil {
		log.Fatalf("fetch market: %v", err)
	}
	market, err := rarefish.NewFromKeyedAccount(keyed)
	if err != nil {
		log.Fatalf("decode market: %v", err)
	}
	accounts, err := client.FetchAccountMap(ctx, market.AccountsToUpdate())
	if err != nil {
		log.Fatalf("fetch vaults: %v", err)
	}
	if err := market.Update(accounts); err != nil {
		log.Fatalf("update market: %v", err)
	}

	pool := market.Pool()
	quote, err := market.Quote(&amm.QuoteParams{
		InputMint:  pool.TokenAMint,
		OutputMint: pool.TokenBMint,
		Amount:     cfg.Swap.AmountIn,
		SwapMode:   amm.ExactIn,
	})
	if err != nil {
		log.Fatalf("quote: %v", err)
	}
	minimumOut := swap.MinimumOut(quote.OutAmount, cfg.Swap.SlippageBps)
	logger.Info().
		Uint64("in", cfg.Swap.AmountIn).
		Uint64("quoted_out", quote.OutAmount).
		Uint64("minimum_out", minimumOut).
		Msg("building swap")

	tx, err := builder.BuildTransaction(ctx, market, signer, pool.TokenAMint, pool.TokenBMint, cfg.Swap.AmountIn, minimumOut)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	sim, err := builder.Simulate(ctx, tx)
	if err != nil {
		log.Fatalf("simulate: %v", err)
	}
	for _, line := range sim.Logs {
		logger.Info().Str("market", marketCfg.Name).Msg(line)
	}
	if sim.Err != nil {
		log.Fatalf("simulation failed: %v", sim.Err)
	}

	if !cfg.Swap.Execute {
		logger.Info().Msg("simulation clean; set swap.execute to submit on-chain")
		return
	}
	sig, err := builder.Send(ctx, tx)
	if err != nil {
		log.Fatalf("send: %v", err)
	}
	logger.Info().Str("signature", sig.String()).Msg("submitted swap")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
