package ordering

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotal(t *testing.T) {
	cases := []struct {
		name  string
		lines []Line
		want  string
	}{
		{"empty", nil, "0.00"},
		{"single", []Line{{Quantity: 2, Price: d("100.00")}}, "200.00"},
		{"two lines", []Line{{Quantity: 2, Price: d("100.00")}, {Quantity: 1, Price: d("50.00")}}, "250.00"},
		{"cents", []Line{{Quantity: 3, Price: d("0.10")}, {Quantity: 7, Price: d("19.99")}}, "140.23"},
		{"zero quantity", []Line{{Quantity: 0, Price: d("10.00")}}, "0.00"},
		{"rounds half up", []Line{{Quantity: 1, Price: d("0.005")}}, "0.01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Total(tc.lines).StringFixed(2))
		})
	}
}

func TestLineSum(t *testing.T) {
	assert.True(t, d("39.98").Equal(LineSum(Line{Quantity: 2, Price: d("19.99")})))
}
