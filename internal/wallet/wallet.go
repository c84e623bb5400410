// Package wallet loads signing material and the owner-fee address.
package wallet

import (
	"errors"
	"fmt"
	"os"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// OwnerFeeAddressEnv names the required environment variable holding the
// account that collects the protocol owner fee share on swaps.
const OwnerFeeAddressEnv = "SWAP_PROGRAM_OWNER_FEE_ADDRESS"

// OwnerFeeAddressFromEnv reads and validates the owner-fee address. A local
// .env file is honored when present.
func OwnerFeeAddressFromEnv() (solana.PublicKey, error) {
	_ = godotenv.Load() // best-effort
	raw := os.Getenv(OwnerFeeAddressEnv)
	if raw == "" {
		return solana.PublicKey{}, errors.New(OwnerFeeAddressEnv + " not set")
	}
	key, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%s: %w", OwnerFeeAddressEnv, err)
	}
	return key, nil
}

// LoadKeypair reads a solana-keygen JSON keypair file, typically keypair.json.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}
	return key, nil
}
