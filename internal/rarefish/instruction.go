package rarefish

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/hubbleprotocol/jupiter-rarefish/internal/amm"
)

// swapSighash is the 8-byte anchor method discriminator for the swap instruction.
var swapSighash = anchorDiscriminator("global", "swap")

// SwapInstructionData encodes the anchor swap call: sighash followed by
// little-endian amount_in and minimum_amount_out.
func SwapInstructionData(amountIn, minimumAmountOut uint64) []byte {
	data := make([]byte, 8+8+8)
	copy(data[:8], swapSighash[:])
	binary.LittleEndian.PutUint64(data[8:16], amountIn)
	binary.LittleEndian.PutUint64(data[16:24], minimumAmountOut)
	return data
}

// BuildSwapInstruction turns resolved swap params into a ready instruction.
func (r *Rarefish) BuildSwapInstruction(params *amm.SwapParams) (solana.Instruction, error) {
	metas, err := r.SwapAccountMetas(params)
	if err != nil {
		return nil, err
	}
	data := SwapInstructionData(params.InAmount, params.MinimumOutAmount)
	return solana.NewInstruction(r.programID, metas.AccountMetas, data), nil
}
