package rarefish

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

// Curve type tags stored in the pool account.
const (
	CurveConstantProduct uint8 = 0
	CurveStable          uint8 = 1
)

// TradeDirection indicates which pool side is being sold.
type TradeDirection int

const (
	// AtoB sells token A for token B.
	AtoB TradeDirection = iota
	// BtoA sells token B for token A.
	BtoA
)

func (d TradeDirection) String() string {
	if d == AtoB {
		return "AtoB"
	}
	return "BtoA"
}

// ErrInsufficientLiquidity is returned when a trade would drain the destination vault.
var ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")

// ErrAmountTooSmall is returned when the input does not survive fee deduction
// or produces a zero output.
var ErrAmountTooSmall = errors.New("input amount too small")

// SwapResult is the outcome of running an input amount through the curve.
type SwapResult struct {
	SourceAmountSwapped      uint64
	DestinationAmountSwapped uint64
	TradeFee                 uint64
	OwnerFee                 uint64
}

// Curve prices a fee-free trade against the current reserves.
type Curve interface {
	// SwapWithoutFees returns the destination amount for sourceAmount given the
	// reserves. All values are non-negative and fit in 128 bits.
	SwapWithoutFees(sourceAmount, sourceReserve, destReserve *big.Int) (*big.Int, error)
}

// NewCurve instantiates the curve encoded in the pool account.
func NewCurve(curveType uint8, params [32]byte) (Curve, error) {
	switch curveType {
	case CurveConstantProduct:
		return constantProduct{}, nil
	case CurveStable:
		amp := binary.LittleEndian.Uint64(params[:8])
		if amp == 0 {
			return nil, fmt.Errorf("stable curve: zero amplifier")
		}
		return stable{amp: amp}, nil
	default:
		return nil, fmt.Errorf("unsupported curve type %d", curveType)
	}
}

// Swap applies pool fees to the input, prices the remainder through the curve,
// and reports the amounts moved on both sides.
func Swap(c Curve, amountIn, sourceReserve, destReserve uint64, fees Fees) (*SwapResult, error) {
	tradeFee := calculateFee(amountIn, fees.TradeFeeNumerator, fees.TradeFeeDenominator)
	ownerFee := calculateFee(amountIn, fees.OwnerTradeFeeNumerator, fees.OwnerTradeFeeDenominator)
	// Compare without summing: each fee is capped at amountIn, but the sum of
	// two capped fees can still wrap uint64.
	if tradeFee >= amountIn || ownerFee >= amountIn-tradeFee {
		return nil, ErrAmountTooSmall
	}
	netIn := amountIn - tradeFee - ownerFee

	out, err := c.SwapWithoutFees(
		new(big.Int).SetUint64(netIn),
		new(big.Int).SetUint64(sourceReserve),
		new(big.Int).SetUint64(destReserve),
	)
	if err != nil {
		return nil, err
	}
	if out.Sign() == 0 {
		return nil, ErrAmountTooSmall
	}
	if !out.IsUint64() || out.Uint64() >= destReserve {
		return nil, ErrInsufficientLiquidity
	}
	return &SwapResult{
		SourceAmountSwapped:      amountIn,
		DestinationAmountSwapped: out.Uint64(),
		TradeFee:                 tradeFee,
		OwnerFee:                 ownerFee,
	}, nil
}

// calculateFee floors amount*num/den, charging a minimum of one unit whenever
// the fee is enabled and the floored result would round to zero. The result is
// capped at amount so a numerator larger than the denominator cannot produce a
// fee exceeding the input.
func calculateFee(amount, numerator, denominator uint64) uint64 {
	if numerator == 0 || denominator == 0 || amount == 0 {
		return 0
	}
	fee := new(big.Int).SetUint64(amount)
	fee.Mul(fee, new(big.Int).SetUint64(numerator))
	fee.Quo(fee, new(big.Int).SetUint64(denominator))
	if fee.Sign() == 0 {
		return 1
	}
	if !fee.IsUint64() || fee.Uint64() > amount {
		return amount
	}
	return fee.Uint64()
}

type constantProduct struct{}

func (constantProduct) SwapWithoutFees(sourceAmount, sourceReserve, destReserve *big.Int) (*big.Int, error) {
	if sourceReserve.Sign() == 0 || destReserve.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	// out = destReserve * in / (sourceReserve + in), floored
	num := new(big.Int).Mul(destReserve, sourceAmount)
	den := new(big.Int).Add(sourceReserve, sourceAmount)
	return num.Quo(num, den), nil
}

type stable struct {
	amp uint64
}

const stableIterations = 256

// ann is A * n^n with n == 2 tokens.
func (s stable) ann() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(s.amp), big.NewInt(4))
}

func (s stable) SwapWithoutFees(sourceAmount, sourceReserve, destReserve *big.Int) (*big.Int, error) {
	if sourceReserve.Sign() == 0 || destReserve.Sign() == 0 {
		return nil, ErrInsufficientLiquidity
	}
	d := s.invariantD(sourceReserve, destReserve)
	newSource := new(big.Int).Add(sourceReserve, sourceAmount)
	newDest := s.otherBalance(newSource, d)
	out := new(big.Int).Sub(destReserve, newDest)
	if out.Sign() < 0 {
		out.SetUint64(0)
	}
	return out, nil
}

// invariantD solves the StableSwap invariant for two balances by Newton iteration.
func (s stable) invariantD(x, y *big.Int) *big.Int {
	sum := new(big.Int).Add(x, y)
	if sum.Sign() == 0 {
		return new(big.Int)
	}
	ann := s.ann()
	one := big.NewInt(1)
	two := big.NewInt(2)
	three := big.NewInt(3)

	d := new(big.Int).Set(sum)
	for i := 0; i < stableIterations; i++ {
		// dP = d^3 / (4*x*y)
		dP := new(big.Int).Set(d)
		dP.Mul(dP, d).Quo(dP, new(big.Int).Mul(x, two))
		dP.Mul(dP, d).Quo(dP, new(big.Int).Mul(y, two))

		prev := new(big.Int).Set(d)
		// d = (ann*sum + 2*dP) * d / ((ann-1)*d + 3*dP)
		num := new(big.Int).Mul(ann, sum)
		num.Add(num, new(big.Int).Mul(dP, two))
		num.Mul(num, d)
		den := new(big.Int).Sub(ann, one)
		den.Mul(den, d)
		den.Add(den, new(big.Int).Mul(dP, three))
		d.Quo(num, den)

		if new(big.Int).Sub(d, prev).CmpAbs(one) <= 0 {
			break
		}
	}
	return d
}

// otherBalance solves for the second balance that keeps the invariant at d
// when the first balance is x.
func (s stable) otherBalance(x, d *big.Int) *big.Int {
	ann := s.ann()
	one := big.NewInt(1)
	two := big.NewInt(2)

	// c = d^3 / (4*x*ann), b = x + d/ann
	c := new(big.Int).Mul(d, d)
	c.Mul(c, d)
	c.Quo(c, new(big.Int).Mul(new(big.Int).Mul(x, big.NewInt(4)), ann))
	b := new(big.Int).Quo(d, ann)
	b.Add(b, x)

	y := new(big.Int).Set(d)
	for i := 0; i < stableIterations; i++ {
		prev := new(big.Int).Set(y)
		// y = (y^2 + c) / (2y + b - d)
		num := new(big.Int).Mul(y, y)
		num.Add(num, c)
		den := new(big.Int).Mul(y, two)
		den.Add(den, b)
		den.Sub(den, d)
		y.Quo(num, den)

		if new(big.Int).Sub(y, prev).CmpAbs(one) <= 0 {
			break
		}
	}
	return y
}
