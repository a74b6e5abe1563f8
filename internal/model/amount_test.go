package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"numeric string", "12.5", "12.50"},
		{"garbage string", "abc", "0.00"},
		{"int", 7, "7.00"},
		{"float", 3.14159, "3.14"},
		{"empty string", "", "0.00"},
		{"nil", nil, "0.00"},
		{"nan", math.NaN(), "0.00"},
		{"inf", math.Inf(1), "0.00"},
		{"numeric prefix", "19.99 USD", "19.99"},
		{"amount", Amount(4), "4.00"},
		{"unsupported type", struct{}{}, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatAmount(tc.in))
		})
	}
}

func TestAmountDecodesStringsAndNumbers(t *testing.T) {
	var product Product
	raw := `{"id":"p1","name":"Mug","price":"12.5","comparePrice":15,"costPrice":"n/a","stock":"42","images":[]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &product))

	assert.Equal(t, Amount(12.5), product.Price)
	require.NotNil(t, product.ComparePrice)
	assert.Equal(t, Amount(15), *product.ComparePrice)
	require.NotNil(t, product.CostPrice)
	assert.Equal(t, Amount(0), *product.CostPrice)
	assert.Equal(t, Count(42), product.Stock)
}

func TestCountNeverFails(t *testing.T) {
	var c Count
	require.NoError(t, c.UnmarshalJSON([]byte(`"lots"`)))
	assert.Equal(t, Count(0), c)
	require.NoError(t, c.UnmarshalJSON([]byte(`3.9`)))
	assert.Equal(t, Count(3), c)
	require.NoError(t, c.UnmarshalJSON([]byte(`null`)))
	assert.Equal(t, Count(0), c)
}

func TestAmountMarshalsAsNumber(t *testing.T) {
	data, err := json.Marshal(struct {
		Price Amount `json:"price"`
	}{Price: 9.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":9.5}`, string(data))
}
