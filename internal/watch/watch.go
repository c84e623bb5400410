// Package watch keeps pool reserve state fresh via websocket subscriptions.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/rs/zerolog"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/chain"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/metrics"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish"
)

const (
	reconnectDelay = 2 * time.Second
	pollInterval   = 5 * time.Second
)

// Watcher streams vault account changes for one market and re-applies them so
// quotes reflect current reserves. When the socket drops it falls back to
// polling until the next successful reconnect.
type Watcher struct {
	wsURL  string
	client *chain.Client
	log    zerolog.Logger
}

func New(wsURL string, client *chain.Client, log zerolog.Logger) *Watcher {
	return &Watcher{wsURL: wsURL, client: client, log: log}
}

// tracker accumulates per-account updates and refreshes the market once every
// tracked account has a value.
type tracker struct {
	mu       sync.Mutex
	market   *rarefish.Rarefish
	accounts amm.AccountMap
	tracked  []solana.PublicKey
}

func newTracker(market *rarefish.Rarefish) *tracker {
	return &tracker{
		market:   market,
		accounts: make(amm.AccountMap),
		tracked:  market.AccountsToUpdate(),
	}
}

// Seed installs a full snapshot, typically from a batched RPC fetch.
func (t *tracker) Seed(accounts amm.AccountMap) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, account := range accounts {
		t.accounts[key] = account
	}
	return t.refreshLocked()
}

// Apply records one streamed account change. It reports whether the market
// state was refreshed.
func (t *tracker) Apply(key solana.PublicKey, account *rpc.Account) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[key] = account
	if err := t.refreshLocked(); err != nil {
		return false, err
	}
	return t.complete(), nil
}

func (t *tracker) complete() bool {
	for _, key := range t.tracked {
		if t.accounts[key] == nil {
			return false
		}
	}
	return true
}

func (t *tracker) refreshLocked() error {
	if !t.complete() {
		return nil
	}
	if err := t.market.Update(t.accounts); err != nil {
		return err
	}
	metrics.VaultRefreshesTotal.WithLabelValues(t.market.Key().String()).Inc()
	return nil
}

type accountUpdate struct {
	key     solana.PublicKey
	account *rpc.Account
}

// Run blocks, maintaining the subscription until the context is canceled.
func (w *Watcher) Run(ctx context.Context, market *rarefish.Rarefish) error {
	t := newTracker(market)
	for {
		err := w.stream(ctx, t)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Warn().Err(err).Str("market", market.Key().String()).Msg("vault stream dropped, polling until reconnect")
		if pollErr := w.pollOnce(ctx, t); pollErr != nil {
			w.log.Error().Err(pollErr).Msg("poll fallback failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context, t *tracker) error {
	accounts, err := w.client.FetchAccountMap(ctx, t.tracked)
	if err != nil {
		return err
	}
	return t.Seed(accounts)
}

func (w *Watcher) stream(ctx context.Context, t *tracker) error {
	wsClient, err := ws.Connect(ctx, w.wsURL)
	if err != nil {
		return fmt.Errorf("connect %s: %w", w.wsURL, err)
	}
	defer wsClient.Close()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	updates := make(chan accountUpdate)
	errs := make(chan error, len(t.tracked))

	// Subscribe before the snapshot: changes landing while the snapshot is in
	// flight arrive through the stream instead of falling in a gap.
	subs := make([]*ws.AccountSubscription, 0, len(t.tracked))
	for _, key := range t.tracked {
		sub, err := wsClient.AccountSubscribe(key, w.client.Commit)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", key, err)
		}
		subs = append(subs, sub)
	}

	// Snapshot so a quiet market still becomes quotable.
	if err := w.pollOnce(ctx, t); err != nil {
		return err
	}

	for i, key := range t.tracked {
		go func(key solana.PublicKey, sub *ws.AccountSubscription) {
			defer sub.Unsubscribe()
			for {
				result, err := sub.Recv(streamCtx)
				if err != nil {
					errs <- fmt.Errorf("recv %s: %w", key, err)
					return
				}
				select {
				case updates <- accountUpdate{key: key, account: &result.Value.Account}:
				case <-streamCtx.Done():
					return
				}
			}
		}(key, subs[i])
	}

	for {
		select {
		case <-streamCtx.Done():
			return streamCtx.Err()
		case err := <-errs:
			return err
		case update := <-updates:
			refreshed, err := t.Apply(update.key, update.account)
			if err != nil {
				w.log.Error().Err(err).Str("account", update.key.String()).Msg("apply vault update")
				continue
			}
			if refreshed {
				w.log.Debug().Str("account", update.key.String()).Msg("vault refreshed")
			}
		}
	}
}
