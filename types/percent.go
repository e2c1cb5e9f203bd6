package types

import (
	"encoding/json"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// Percent is a percentage in hundredths: Percent(2500) is 25.00%.
type Percent int64

// Hundred is 100.00%.
const Hundred Percent = 10000

// Share returns amount as a percentage of goal, rounded half-up to two
// decimals. A zero goal or a non-positive amount yields 0.00.
// amount*10000/goal is rounded once, in exact integer arithmetic.
func Share(amount, goal Money) Percent {
	if goal <= 0 || amount <= 0 {
		return 0
	}

	num := new(big.Int).Mul(big.NewInt(int64(amount)), big.NewInt(2*int64(Hundred)))
	num.Add(num, big.NewInt(int64(goal)))
	den := new(big.Int).Mul(big.NewInt(int64(goal)), big.NewInt(2))

	q := new(big.Int).Quo(num, den)
	if !q.IsInt64() {
		return Percent(math.MaxInt64)
	}
	return Percent(q.Int64())
}

// Hundredths returns the raw hundredths value.
func (p Percent) Hundredths() int64 { return int64(p) }

// Decimal returns the percentage as an exact decimal.
func (p Percent) Decimal() decimal.Decimal { return decimal.New(int64(p), -2) }

// FormatMajor returns the percentage with exactly two decimals: "25.00".
func (p Percent) FormatMajor() string { return formatHundredths(int64(p)) }

// String implements fmt.Stringer.
func (p Percent) String() string { return p.FormatMajor() }

// MarshalJSON encodes the percentage as a two-decimal string.
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.FormatMajor())
}

// UnmarshalJSON decodes a two-decimal percentage literal.
func (p *Percent) UnmarshalJSON(data []byte) error {
	var m Money
	if err := m.UnmarshalJSON(data); err != nil {
		return err
	}
	*p = Percent(m)
	return nil
}
