// Binary quote prints sell-side quotes for every configured Rarefish market.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/chain"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/config"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/metrics"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/util"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/wallet"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/watch"
)

func main() {
	cfg, err := config.Load(getEnv("RAREFISH_CONFIG", "internal/config/config.yaml"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := util.NewLogger(cfg.App.LogLevel)
	metrics.Serve(cfg.App.MetricsAddr)

	feeOwner, err := feeOwnerFrom(cfg)
	if err != nil {
		log.Fatalf("fee owner: %v", err)
	}
	logger.Info().Str("fee_owner", feeOwner.String()).Msg("starting quote run")

	client := chain.New(
		getEnv("SOLANA_RPC_URL", cfg.RPC.URL),
		getEnv("SOLANA_COMMITMENT", cfg.RPC.Commitment),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, marketCfg := range cfg.Markets {
		if err := quoteMarket(ctx, client, marketCfg); err != nil {
			log.Fatalf("market %s: %v", marketCfg.Name, err)
		}
	}

	if os.Getenv("RAREFISH_WATCH") != "" {
		watchFirstMarket(cfg, client, logger)
	}
}

// watchFirstMarket keeps streaming vault updates for the first configured
// market and reprints its fixture quote on an interval.
func watchFirstMarket(cfg *config.Config, client *chain.Client, logger zerolog.Logger) {
	marketCfg := cfg.Markets[0]
	address, err := solana.PublicKeyFromBase58(marketCfg.Address)
	if err != nil {
		log.Fatalf("watch: market address: %v", err)
	}
	ctx := context.Background()
	keyed, err := client.FetchKeyedAccount(ctx, address)
	if err != nil {
		log.Fatalf("watch: fetch market: %v", err)
	}
	market, err := rarefish.NewFromKeyedAccount(keyed)
	if err != nil {
		log.Fatalf("watch: decode market: %v", err)
	}

	watcher := watch.New(getEnv("SOLANA_WS_URL", cfg.RPC.WsURL), client, util.WithComponent(logger, "watcher"))
	go func() {
		if err := watcher.Run(ctx, market); err != nil && ctx.Err() == nil {
			log.Fatalf("watch: %v", err)
		}
	}()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if err := printFixtureQuote(market, marketCfg); err != nil {
			logger.Warn().Err(err).Str("market", marketCfg.Name).Msg("quote not available yet")
		}
	}
}

func printFixtureQuote(market *rarefish.Rarefish, marketCfg config.Market) error {
	sellMint, buyMint, sellDecimals, buyDecimals := sellLeg(market.Pool(), marketCfg)
	_, err := printQuote(market, marketCfg.Name, sellMint, buyMint, marketCfg.SellAmount, sellDecimals, buyDecimals)
	return err
}

// sellLeg resolves which mint the market fixture sells and the decimals on
// each side of that trade.
func sellLeg(pool *rarefish.SwapPool, marketCfg config.Market) (sellMint, buyMint solana.PublicKey, sellDecimals, buyDecimals uint8) {
	if marketCfg.SellSide == "a" {
		return pool.TokenAMint, pool.TokenBMint, marketCfg.TokenADecimal, marketCfg.TokenBDecimal
	}
	return pool.TokenBMint, pool.TokenAMint, marketCfg.TokenBDecimal, marketCfg.TokenADecimal
}

func quoteMarket(ctx context.Context, client *chain.Client, marketCfg config.Market) error {
	address, err := solana.PublicKeyFromBase58(marketCfg.Address)
	if err != nil {
		return fmt.Errorf("market address: %w", err)
	}
	keyed, err := client.FetchKeyedAccount(ctx, address)
	if err != nil {
		return err
	}
	market, err := rarefish.NewFromKeyedAccount(keyed)
	if err != nil {
		return err
	}
	accounts, err := client.FetchAccountMap(ctx, market.AccountsToUpdate())
	if err != nil {
		return err
	}
	if err := market.Update(accounts); err != nil {
		return err
	}

	sellMint, buyMint, sellDecimals, buyDecimals := sellLeg(market.Pool(), marketCfg)

	// Sell the fixture amount, then quote the proceeds back the other way.
	out, err := printQuote(market, marketCfg.Name, sellMint, buyMint, marketCfg.SellAmount, sellDecimals, buyDecimals)
	if err != nil {
		return err
	}
	if _, err := printQuote(market, marketCfg.Name, buyMint, sellMint, out, buyDecimals, sellDecimals); err != nil {
		return err
	}
	return nil
}

func printQuote(market *rarefish.Rarefish, name string, inputMint, outputMint solana.PublicKey, amount uint64, inDecimals, outDecimals uint8) (uint64, error) {
	quote, err := market.Quote(&amm.QuoteParams{
		InputMint:  inputMint,
		OutputMint: outputMint,
		Amount:     amount,
		SwapMode:   amm.ExactIn,
	})
	if err != nil {
		return 0, err
	}
	direction := "BtoA"
	if inputMint.Equals(market.Pool().TokenAMint) {
		direction = "AtoB"
	}
	metrics.QuotesTotal.WithLabelValues(name, direction).Inc()
	in := float64(quote.InAmount) / math.Pow10(int(inDecimals))
	out := float64(quote.OutAmount) / math.Pow10(int(outDecimals))
	fmt.Printf("%s: sell %f of %s -> %f of %s (rate %f, fee %d)\n",
		name, in, inputMint, out, outputMint, out/in, quote.FeeAmount)
	return quote.OutAmount, nil
}

func feeOwnerFrom(cfg *config.Config) (solana.PublicKey, error) {
	if cfg.Rarefish.FeeOwner != "" {
		return solana.PublicKeyFromBase58(cfg.Rarefish.FeeOwner)
	}
	return wallet.OwnerFeeAddressFromEnv()
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
