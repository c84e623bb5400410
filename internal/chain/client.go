// Package chain wraps the Solana RPC surface the integration needs.
package chain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
)

// Client is a thin wrapper around the JSON-RPC client with a fixed commitment.
type Client struct {
	RPC    *rpc.Client
	Commit rpc.CommitmentType
}

// ParseCommitment maps config strings onto RPC commitment levels, defaulting
// to confirmed.
func ParseCommitment(commit string) rpc.CommitmentType {
	switch commit {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

// New connects a client to the given RPC endpoint.
func New(rpcURL, commit string) *Client {
	return &Client{
		RPC:    rpc.New(rpcURL),
		Commit: ParseCommitment(commit),
	}
}

// FetchKeyedAccount pulls a single account and pairs it with its address.
func (c *Client) FetchKeyedAccount(ctx context.Context, key solana.PublicKey) (*amm.KeyedAccount, error) {
	result, err := c.RPC.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{Commitment: c.Commit})
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", key, err)
	}
	if result.Value == nil {
		return nil, fmt.Errorf("get account %s: not found", key)
	}
	return &amm.KeyedAccount{Key: key, Account: result.Value}, nil
}

// FetchAccountMap batch-fetches accounts into an update map. Accounts the node
// does not know are skipped rather than failing the whole batch.
func (c *Client) FetchAccountMap(ctx context.Context, keys []solana.PublicKey) (amm.AccountMap, error) {
	result, err := c.RPC.GetMultipleAccountsWithOpts(ctx, keys, &rpc.GetMultipleAccountsOpts{Commitment: c.Commit})
	if err != nil {
		return nil, fmt.Errorf("get multiple accounts: %w", err)
	}
	accounts := make(amm.AccountMap, len(keys))
	for i, account := range result.Value {
		if account == nil {
			continue
		}
		accounts[keys[i]] = account
	}
	return accounts, nil
}

// LatestBlockhash fetches a recent blockhash for transaction assembly.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.RPC.GetLatestBlockhash(ctx, c.Commit)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	return result.Value.Blockhash, nil
}
