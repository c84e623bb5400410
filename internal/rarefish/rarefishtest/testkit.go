// Package rarefishtest provides synthetic pool fixtures for tests.
package rarefishtest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"testing"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish"
)

// PoolFixture fills a SwapPool with fresh random addresses, a constant-product
// curve, and a 0.25% trade fee plus 0.05% owner fee.
func PoolFixture() *rarefish.SwapPool {
	pool := &rarefish.SwapPool{
		Discriminator:         rarefish.SwapPoolDiscriminator(),
		Admin:                 solana.NewWallet().PublicKey(),
		PoolAuthority:         solana.NewWallet().PublicKey(),
		PoolAuthorityBumpSeed: 254,
		TokenAMint:            solana.NewWallet().PublicKey(),
		TokenBMint:            solana.NewWallet().PublicKey(),
		TokenAVault:           solana.NewWallet().PublicKey(),
		TokenBVault:           solana.NewWallet().PublicKey(),
		TokenAFeesVault:       solana.NewWallet().PublicKey(),
		TokenBFeesVault:       solana.NewWallet().PublicKey(),
		PoolTokenMint:         solana.NewWallet().PublicKey(),
		Fees: rarefish.Fees{
			TradeFeeNumerator:        25,
			TradeFeeDenominator:      10_000,
			OwnerTradeFeeNumerator:   5,
			OwnerTradeFeeDenominator: 10_000,
		},
		CurveType: rarefish.CurveConstantProduct,
	}
	return pool
}

// EncodePool serializes a pool the way it sits on-chain.
func EncodePool(t *testing.T, pool *rarefish.SwapPool) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(pool); err != nil {
		t.Fatalf("encode pool: %v", err)
	}
	return buf.Bytes()
}

// TokenAccountData hand-packs the 165-byte SPL token account wire layout.
func TokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	// delegate COption (none), state, isNative COption (none) and the rest
	// stay zero except the initialized state byte.
	data[108] = 1
	return data
}

// Account wraps raw bytes in an rpc.Account the way the JSON-RPC layer would.
func Account(t *testing.T, owner solana.PublicKey, data []byte) *rpc.Account {
	t.Helper()
	payload, err := json.Marshal([]any{base64.StdEncoding.EncodeToString(data), "base64"})
	if err != nil {
		t.Fatalf("marshal account data: %v", err)
	}
	var wrapped rpc.DataBytesOrJSON
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		t.Fatalf("unmarshal account data: %v", err)
	}
	return &rpc.Account{
		Lamports: 1,
		Owner:    owner,
		Data:     &wrapped,
	}
}

// UpdatedMarket builds a Rarefish adapter from the pool and applies vault
// balances so it is immediately quotable.
func UpdatedMarket(t *testing.T, pool *rarefish.SwapPool, amountA, amountB uint64) *rarefish.Rarefish {
	t.Helper()
	marketKey := solana.NewWallet().PublicKey()
	market, err := rarefish.NewFromKeyedAccount(&amm.KeyedAccount{
		Key:     marketKey,
		Account: Account(t, rarefish.ProgramID, EncodePool(t, pool)),
	})
	if err != nil {
		t.Fatalf("build market: %v", err)
	}
	if err := market.Update(VaultAccounts(t, pool, amountA, amountB)); err != nil {
		t.Fatalf("update market: %v", err)
	}
	return market
}

// VaultAccounts produces the update set for the pool's two vaults.
func VaultAccounts(t *testing.T, pool *rarefish.SwapPool, amountA, amountB uint64) amm.AccountMap {
	t.Helper()
	return amm.AccountMap{
		pool.TokenAVault: Account(t, pool.TokenProgramA(), TokenAccountData(pool.TokenAMint, pool.PoolAuthority, amountA)),
		pool.TokenBVault: Account(t, pool.TokenProgramB(), TokenAccountData(pool.TokenBMint, pool.PoolAuthority, amountB)),
	}
}
