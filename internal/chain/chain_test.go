package chain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func TestScaleAnswer(t *testing.T) {
	tests := []struct {
		name     string
		answer   *big.Int
		decimals uint8
		want     float64
	}{
		{"eight decimals", big.NewInt(6_543_210_000_000), 8, 65432.10},
		{"six decimals", big.NewInt(437_000), 6, 0.437},
		{"zero decimals", big.NewInt(42), 0, 42},
		{"negative answer", big.NewInt(-150_000_000), 8, -1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scaleAnswer(tt.answer, tt.decimals); got != tt.want {
				t.Errorf("scaleAnswer(%s, %d) = %v, want %v", tt.answer, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestBigToInt64(t *testing.T) {
	got, err := bigToInt64(big.NewInt(15_000_000), "allowance")
	if err != nil {
		t.Fatalf("bigToInt64: %v", err)
	}
	if got != 15_000_000 {
		t.Errorf("got %d, want 15000000", got)
	}

	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	if _, err := bigToInt64(huge, "allowance"); err == nil {
		t.Error("bigToInt64 accepted a value that overflows int64")
	}

	if _, err := bigToInt64("not a big int", "allowance"); err == nil {
		t.Error("bigToInt64 accepted a non *big.Int value")
	}
}

func TestExecutorABIPacks(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(executorABI))
	if err != nil {
		t.Fatalf("parse executor abi: %v", err)
	}

	methods := []string{"executeTrade", "getUserAllowance", "getUserTier", "getMaxPositionForTier"}
	for _, m := range methods {
		if _, ok := parsed.Methods[m]; !ok {
			t.Errorf("executor abi missing method %s", m)
		}
	}
}

func TestAggregatorABIPacks(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		t.Fatalf("parse aggregator abi: %v", err)
	}
	if _, ok := parsed.Methods["latestRoundData"]; !ok {
		t.Error("aggregator abi missing latestRoundData")
	}
	if _, ok := parsed.Methods["decimals"]; !ok {
		t.Error("aggregator abi missing decimals")
	}
}
