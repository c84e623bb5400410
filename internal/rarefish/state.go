// Package rarefish adapts the Rarefish swap-pool program to the amm contract.
package rarefish

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ProgramID is the mainnet address of the Rarefish swap program.
var ProgramID = solana.MustPublicKeyFromBase58("SWABtvDnJwWwAb9CbSA3uv8uFDFijgwLCDTXUXHTUmz")

// splTokenProgram is the original SPL token program, used when a pool-side
// token program field is left unset on-chain.
var splTokenProgram = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

// swapPoolDiscriminator is the 8-byte anchor account discriminator for SwapPool.
var swapPoolDiscriminator = anchorDiscriminator("account", "SwapPool")

// SwapPoolDiscriminator returns the anchor discriminator a valid pool account
// starts with.
func SwapPoolDiscriminator() [8]byte { return swapPoolDiscriminator }

func anchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// Fees holds the pool fee ratios. Numerator zero disables the fee.
type Fees struct {
	TradeFeeNumerator           uint64
	TradeFeeDenominator         uint64
	OwnerTradeFeeNumerator      uint64
	OwnerTradeFeeDenominator    uint64
	OwnerWithdrawFeeNumerator   uint64
	OwnerWithdrawFeeDenominator uint64
	HostFeeNumerator            uint64
	HostFeeDenominator          uint64
}

// SwapPool is the borsh layout of a Rarefish pool account.
type SwapPool struct {
	Discriminator         [8]byte
	Admin                 solana.PublicKey
	PoolAuthority         solana.PublicKey
	PoolAuthorityBumpSeed uint8
	TokenAMint            solana.PublicKey
	TokenBMint            solana.PublicKey
	TokenAVault           solana.PublicKey
	TokenBVault           solana.PublicKey
	TokenAFeesVault       solana.PublicKey
	TokenBFeesVault       solana.PublicKey
	TokenAProgram         solana.PublicKey
	TokenBProgram         solana.PublicKey
	PoolTokenMint         solana.PublicKey
	Fees                  Fees
	CurveType             uint8
	CurveParameters       [32]byte
}

// DecodeSwapPool parses a raw pool account and validates the discriminator.
func DecodeSwapPool(data []byte) (*SwapPool, error) {
	var pool SwapPool
	if err := bin.NewBorshDecoder(data).Decode(&pool); err != nil {
		return nil, fmt.Errorf("decode swap pool: %w", err)
	}
	if !bytes.Equal(pool.Discriminator[:], swapPoolDiscriminator[:]) {
		return nil, fmt.Errorf("decode swap pool: account is not a SwapPool")
	}
	return &pool, nil
}

// TokenProgramA returns the token program for the A side, defaulting unset
// fields to the original SPL token program.
func (p *SwapPool) TokenProgramA() solana.PublicKey {
	if p.TokenAProgram.IsZero() {
		return splTokenProgram
	}
	return p.TokenAProgram
}

// TokenProgramB returns the token program for the B side, with the same default.
func (p *SwapPool) TokenProgramB() solana.PublicKey {
	if p.TokenBProgram.IsZero() {
		return splTokenProgram
	}
	return p.TokenBProgram
}
