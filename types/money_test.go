package types

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input string
		cents int64
	}{
		{"200", 20000},
		{"200.5", 20050},
		{"200.50", 20050},
		{"0.01", 1},
		{"  1000.00 ", 100000},
		{"-3.25", -325},
		{"1e2", 10000},
		{"0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if err != nil {
				t.Fatalf("ParseMoney(%q): %v", tt.input, err)
			}
			if got.Cents() != tt.cents {
				t.Errorf("ParseMoney(%q): got %d cents, want %d", tt.input, got.Cents(), tt.cents)
			}
		})
	}
}

func TestParseMoneyRejects(t *testing.T) {
	inputs := []string{
		"",
		"abc",
		"1.001",
		"0.005",
		"12,50",
		"99999999999999999999999",
		"1e-21",
		"1e21",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseMoney(in)
			if !errors.Is(err, ErrMalformedAmount) {
				t.Errorf("ParseMoney(%q): got %v, want ErrMalformedAmount", in, err)
			}
		})
	}
}

func TestParseMoneyRejectsHugeExponentsQuickly(t *testing.T) {
	for _, in := range []string{"1e-10000000", "1e10000000", "5E-999999999"} {
		t.Run(in, func(t *testing.T) {
			start := time.Now()
			_, err := ParseMoney(in)
			if !errors.Is(err, ErrMalformedAmount) {
				t.Fatalf("ParseMoney(%q): got %v, want ErrMalformedAmount", in, err)
			}
			if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
				t.Errorf("ParseMoney(%q) took %v", in, elapsed)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return Cents(100).Add(Cents(200)) }, Cents(300)},
		{"Subtract", func() Money { return Cents(500).Subtract(Cents(200)) }, Cents(300)},
		{"Subtract below zero", func() Money { return Cents(100).Subtract(Cents(300)) }, Cents(-200)},
		{"Complex", func() Money {
			return Cents(1000).Add(Cents(500)).Subtract(Cents(1000))
		}, Cents(500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.op(); result != tt.expected {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
	}{
		{"Equal", Cents(100), Cents(100), false, false},
		{"Less", Cents(50), Cents(100), true, false},
		{"Greater", Cents(200), Cents(100), false, true},
		{"Negative less", Cents(-100), Cents(100), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
		})
	}
}

func TestMoneyMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		min, max Money
	}{
		{"First smaller", Cents(50), Cents(100), Cents(50), Cents(100)},
		{"Second smaller", Cents(100), Cents(50), Cents(50), Cents(100)},
		{"Equal", Cents(100), Cents(100), Cents(100), Cents(100)},
		{"Negative", Cents(-50), Cents(50), Cents(-50), Cents(50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); minVal != tt.min {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); maxVal != tt.max {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	tests := []struct {
		name       string
		money      Money
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", Cents(0), true, false, false},
		{"Positive", Cents(100), false, true, false},
		{"Negative", Cents(-100), false, false, true},
		{"Large positive", Cents(999999999), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.money.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.money.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{Cents(4900), "49.00"},
		{Cents(100), "1.00"},
		{Cents(1), "0.01"},
		{Cents(0), "0.00"},
		{Cents(-4900), "-49.00"},
		{Cents(-1), "-0.01"},
		{Cents(9999), "99.99"},
		{Cents(123456789), "1234567.89"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyDecimal(t *testing.T) {
	if got := Cents(20050).Decimal().StringFixed(2); got != "200.50" {
		t.Errorf("Decimal: got %s, want 200.50", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(Cents(4900))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `"49.00"` {
		t.Errorf("JSON: got %s, want %q", string(data), "49.00")
	}

	tests := []struct {
		input string
		want  Money
	}{
		{`"49.00"`, Cents(4900)},
		{`"49"`, Cents(4900)},
		{`49.5`, Cents(4950)},
	}
	for _, tt := range tests {
		var m Money
		if err := json.Unmarshal([]byte(tt.input), &m); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.input, err)
		}
		if m != tt.want {
			t.Errorf("Unmarshal(%s): got %v, want %v", tt.input, m, tt.want)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"49.001"`), &m); !errors.Is(err, ErrMalformedAmount) {
		t.Errorf("expected ErrMalformedAmount, got %v", err)
	}
	if err := json.Unmarshal([]byte(`null`), &m); !errors.Is(err, ErrMalformedAmount) {
		t.Errorf("expected ErrMalformedAmount for null, got %v", err)
	}
}

func TestSum(t *testing.T) {
	tests := []struct {
		name     string
		values   []Money
		expected Money
	}{
		{"Empty", []Money{}, Cents(0)},
		{"Single", []Money{Cents(100)}, Cents(100)},
		{"Multiple", []Money{Cents(100), Cents(200), Cents(300)}, Cents(600)},
		{"All zero", []Money{Cents(0), Cents(0), Cents(0)}, Cents(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Sum(tt.values...); result != tt.expected {
				t.Errorf("Sum: got %v, want %v", result, tt.expected)
			}
		})
	}
}

func BenchmarkParseMoney(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ParseMoney("1234.56")
	}
}

func BenchmarkMoneyString(b *testing.B) {
	m := Cents(4900)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.String()
	}
}
