package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTimes(t *testing.T) {
	assert.Equal(t, "30.00", Times(decimal.RequireFromString("10.00"), 3).StringFixed(2))
	assert.Equal(t, "0.30", Times(decimal.RequireFromString("0.10"), 3).StringFixed(2))
	assert.True(t, Times(decimal.RequireFromString("4.25"), 0).IsZero())
}

func TestFloat(t *testing.T) {
	assert.Equal(t, 25.5, Float(decimal.RequireFromString("25.50")))
	assert.Equal(t, 0.3, Float(decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2"))))
}

func TestRound(t *testing.T) {
	assert.Equal(t, "3.50", Round(decimal.RequireFromString("3.499")).StringFixed(2))
}
