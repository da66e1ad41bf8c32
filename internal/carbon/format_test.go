package carbon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCO2(t *testing.T) {
	cases := []struct {
		grams float64
		want  string
	}{
		{0, "< 0.01g"},
		{0.005, "< 0.01g"},
		{0.01, "0.01g"},
		{5.678, "5.68g"},
		{999.994, "999.99g"},
		{1000, "1.000kg"},
		{1234.5, "1.234kg"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatCO2(c.grams), "grams=%v", c.grams)
	}
}

func TestFormatEnergy(t *testing.T) {
	cases := []struct {
		wh   float64
		want string
	}{
		{0, "< 0.001 Wh"},
		{0.0005, "< 0.001 Wh"},
		{0.001, "0.001 Wh"},
		{0.5, "0.500 Wh"},
		{1, "1.00 Wh"},
		{42.127, "42.13 Wh"},
		{1000, "1.000 kWh"},
		{2500, "2.500 kWh"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatEnergy(c.wh), "wh=%v", c.wh)
	}
}
