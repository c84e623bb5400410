package rarefish_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"testing"

	solana "github.com/gagliardetto/solana-go"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish"
	"github.com/hubbleprotocol/jupiter-rarefish/internal/rarefish/rarefishtest"
)

func TestNewFromKeyedAccount(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	marketKey := solana.NewWallet().PublicKey()
	market, err := rarefish.NewFromKeyedAccount(&amm.KeyedAccount{
		Key:     marketKey,
		Account: rarefishtest.Account(t, rarefish.ProgramID, rarefishtest.EncodePool(t, pool)),
	})
	if err != nil {
		t.Fatalf("NewFromKeyedAccount returned error: %v", err)
	}
	if market.Label() != "Rarefish" {
		t.Fatalf("unexpected label %q", market.Label())
	}
	if !market.Key().Equals(marketKey) {
		t.Fatalf("unexpected market key %s", market.Key())
	}
	if !market.ProgramID().Equals(rarefish.ProgramID) {
		t.Fatalf("unexpected program id %s", market.ProgramID())
	}
	mints := market.ReserveMints()
	if len(mints) != 2 || !mints[0].Equals(pool.TokenAMint) || !mints[1].Equals(pool.TokenBMint) {
		t.Fatalf("unexpected reserve mints %v", mints)
	}
	updates := market.AccountsToUpdate()
	if len(updates) != 2 || !updates[0].Equals(pool.TokenAVault) || !updates[1].Equals(pool.TokenBVault) {
		t.Fatalf("unexpected accounts to update %v", updates)
	}
}

func TestNewFromKeyedAccountRejectsForeignAccount(t *testing.T) {
	_, err := rarefish.NewFromKeyedAccount(&amm.KeyedAccount{
		Key:     solana.NewWallet().PublicKey(),
		Account: rarefishtest.Account(t, rarefish.ProgramID, make([]byte, 64)),
	})
	if err == nil {
		t.Fatalf("expected error for non-pool account data")
	}
}

func TestQuoteRequiresUpdate(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	market, err := rarefish.NewFromKeyedAccount(&amm.KeyedAccount{
		Key:     solana.NewWallet().PublicKey(),
		Account: rarefishtest.Account(t, rarefish.ProgramID, rarefishtest.EncodePool(t, pool)),
	})
	if err != nil {
		t.Fatalf("NewFromKeyedAccount returned error: %v", err)
	}
	if _, err := market.Quote(&amm.QuoteParams{
		InputMint:  pool.TokenAMint,
		OutputMint: pool.TokenBMint,
		Amount:     1000,
		SwapMode:   amm.ExactIn,
	}); err == nil {
		t.Fatalf("expected error quoting before Update")
	}
}

func TestQuoteDirections(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	// 1:2 price, A side scarce
	market := rarefishtest.UpdatedMarket(t, pool, 1_000_000_000, 2_000_000_000)

	sellA, err := market.Quote(&amm.QuoteParams{
		InputMint:  pool.TokenAMint,
		OutputMint: pool.TokenBMint,
		Amount:     1_000_000,
		SwapMode:   amm.ExactIn,
	})
	if err != nil {
		t.Fatalf("sell A quote: %v", err)
	}
	if sellA.OutAmount < 1_900_000 || sellA.OutAmount >= 2_000_000 {
		t.Fatalf("selling A should fetch ~2x, got %d", sellA.OutAmount)
	}
	if sellA.FeeAmount == 0 || !sellA.FeeMint.Equals(pool.TokenAMint) {
		t.Fatalf("fee should be charged in the input mint: %+v", sellA)
	}

	sellB, err := market.Quote(&amm.QuoteParams{
		InputMint:  pool.TokenBMint,
		OutputMint: pool.TokenAMint,
		Amount:     1_000_000,
		SwapMode:   amm.ExactIn,
	})
	if err != nil {
		t.Fatalf("sell B quote: %v", err)
	}
	if sellB.OutAmount < 450_000 || sellB.OutAmount >= 500_000 {
		t.Fatalf("selling B should fetch ~0.5x, got %d", sellB.OutAmount)
	}
}

func TestQuoteConcurrentWithUpdate(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	market := rarefishtest.UpdatedMarket(t, pool, 1_000_000_000, 1_000_000_000)
	updates := rarefishtest.VaultAccounts(t, pool, 2_000_000_000, 2_000_000_000)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := market.Update(updates); err != nil {
				t.Errorf("concurrent update: %v", err)
				return
			}
		}
	}()

	params := &amm.QuoteParams{
		InputMint:  pool.TokenAMint,
		OutputMint: pool.TokenBMint,
		Amount:     1_000_000,
		SwapMode:   amm.ExactIn,
	}
	for i := 0; i < 1000; i++ {
		if _, err := market.Quote(params); err != nil {
			t.Fatalf("quote %d: %v", i, err)
		}
	}
	close(done)
	wg.Wait()
}

func TestQuoteUnknownMint(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	market := rarefishtest.UpdatedMarket(t, pool, 1_000_000, 1_000_000)
	if _, err := market.Quote(&amm.QuoteParams{
		InputMint:  solana.NewWallet().PublicKey(),
		OutputMint: pool.TokenBMint,
		Amount:     1000,
		SwapMode:   amm.ExactIn,
	}); err == nil {
		t.Fatalf("expected error for mint not traded on the market")
	}
}

func TestQuoteExactOutUnsupported(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	market := rarefishtest.UpdatedMarket(t, pool, 1_000_000, 1_000_000)
	if _, err := market.Quote(&amm.QuoteParams{
		InputMint:  pool.TokenAMint,
		OutputMint: pool.TokenBMint,
		Amount:     1000,
		SwapMode:   amm.ExactOut,
	}); err == nil {
		t.Fatalf("expected error for exact-out mode")
	}
}

func TestSwapAccountMetasOrder(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	market := rarefishtest.UpdatedMarket(t, pool, 1_000_000, 1_000_000)

	authority := solana.NewWallet().PublicKey()
	sourceATA := solana.NewWallet().PublicKey()
	destATA := solana.NewWallet().PublicKey()

	metas, err := market.SwapAccountMetas(&amm.SwapParams{
		SourceMint:              pool.TokenAMint,
		DestinationMint:         pool.TokenBMint,
		SourceTokenAccount:      sourceATA,
		DestinationTokenAccount: destATA,
		TokenTransferAuthority:  authority,
	})
	if err != nil {
		t.Fatalf("SwapAccountMetas returned error: %v", err)
	}
	accounts := metas.AccountMetas
	if len(accounts) != 13 {
		t.Fatalf("expected 13 account metas, got %d", len(accounts))
	}

	splToken := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	wantKeys := []solana.PublicKey{
		authority,
		market.Key(),
		pool.PoolAuthority,
		pool.TokenAMint,
		pool.TokenBMint,
		pool.TokenAVault,
		pool.TokenBVault,
		pool.TokenAFeesVault,
		sourceATA,
		destATA,
		rarefish.ProgramID, // host fees slot, program id means none
		splToken,
		splToken,
	}
	for i, want := range wantKeys {
		if !accounts[i].PublicKey.Equals(want) {
			t.Fatalf("meta %d: got %s want %s", i, accounts[i].PublicKey, want)
		}
	}
	if !accounts[0].IsSigner || accounts[0].IsWritable {
		t.Fatalf("authority must be a readonly signer: %+v", accounts[0])
	}
	for _, i := range []int{1, 5, 6, 7, 8, 9, 10} {
		if !accounts[i].IsWritable {
			t.Fatalf("meta %d should be writable", i)
		}
	}
	for _, i := range []int{2, 3, 4, 11, 12} {
		if accounts[i].IsWritable || accounts[i].IsSigner {
			t.Fatalf("meta %d should be readonly", i)
		}
	}
}

func TestSwapAccountMetasReverseDirection(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	market := rarefishtest.UpdatedMarket(t, pool, 1_000_000, 1_000_000)

	metas, err := market.SwapAccountMetas(&amm.SwapParams{
		SourceMint:              pool.TokenBMint,
		DestinationMint:         pool.TokenAMint,
		SourceTokenAccount:      solana.NewWallet().PublicKey(),
		DestinationTokenAccount: solana.NewWallet().PublicKey(),
		TokenTransferAuthority:  solana.NewWallet().PublicKey(),
	})
	if err != nil {
		t.Fatalf("SwapAccountMetas returned error: %v", err)
	}
	accounts := metas.AccountMetas
	if !accounts[5].PublicKey.Equals(pool.TokenBVault) || !accounts[6].PublicKey.Equals(pool.TokenAVault) {
		t.Fatalf("selling B must source from vault B: %s, %s", accounts[5].PublicKey, accounts[6].PublicKey)
	}
	if !accounts[7].PublicKey.Equals(pool.TokenBFeesVault) {
		t.Fatalf("fees vault must follow the source side, got %s", accounts[7].PublicKey)
	}
}

func TestSwapInstructionData(t *testing.T) {
	data := rarefish.SwapInstructionData(10_000_000, 42)
	if len(data) != 24 {
		t.Fatalf("expected 24 bytes, got %d", len(data))
	}
	sighash := sha256.Sum256([]byte("global:swap"))
	if !bytes.Equal(data[:8], sighash[:8]) {
		t.Fatalf("sighash mismatch: %x", data[:8])
	}
	if binary.LittleEndian.Uint64(data[8:16]) != 10_000_000 {
		t.Fatalf("amount_in mismatch")
	}
	if binary.LittleEndian.Uint64(data[16:24]) != 42 {
		t.Fatalf("minimum_amount_out mismatch")
	}
}

func TestBuildSwapInstruction(t *testing.T) {
	pool := rarefishtest.PoolFixture()
	market := rarefishtest.UpdatedMarket(t, pool, 1_000_000, 1_000_000)

	instruction, err := market.BuildSwapInstruction(&amm.SwapParams{
		InAmount:                10_000_000,
		MinimumOutAmount:        9_000_000,
		SourceMint:              pool.TokenAMint,
		DestinationMint:         pool.TokenBMint,
		SourceTokenAccount:      solana.NewWallet().PublicKey(),
		DestinationTokenAccount: solana.NewWallet().PublicKey(),
		TokenTransferAuthority:  solana.NewWallet().PublicKey(),
	})
	if err != nil {
		t.Fatalf("BuildSwapInstruction returned error: %v", err)
	}
	if !instruction.ProgramID().Equals(rarefish.ProgramID) {
		t.Fatalf("unexpected program id %s", instruction.ProgramID())
	}
	if len(instruction.Accounts()) != 13 {
		t.Fatalf("expected 13 accounts, got %d", len(instruction.Accounts()))
	}
	data, err := instruction.Data()
	if err != nil {
		t.Fatalf("instruction data: %v", err)
	}
	if binary.LittleEndian.Uint64(data[8:16]) != 10_000_000 {
		t.Fatalf("amount_in not encoded")
	}
}
