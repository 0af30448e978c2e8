package shared

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyJSONHasTwoDigits(t *testing.T) {
	payload := struct {
		Total Money `json:"total"`
	}{Total: NewMoney(decimal.RequireFromString("12.5"))}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"12.50"}`, string(raw))
}

func TestParseMoneyDefaultsToZero(t *testing.T) {
	assert.Equal(t, "0.00", ParseMoney("").String())
	assert.Equal(t, "0.00", ParseMoney("n/a").String())
	assert.Equal(t, "19.99", ParseMoney(" 19.99 ").String())
}

func TestMoneyUnmarshal(t *testing.T) {
	var m Money
	require.NoError(t, json.Unmarshal([]byte(`"4.20"`), &m))
	assert.Equal(t, "4.20", m.String())
	require.NoError(t, json.Unmarshal([]byte(`7`), &m))
	assert.Equal(t, "7.00", m.String())
}
