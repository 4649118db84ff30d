package models_test

import (
	"encoding/json"
	"testing"

	"shopapi/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDecimalString(t *testing.T) {
	assert.Equal(t, "199.99", models.NewDecimal(199.99).String())
	assert.Equal(t, "15.00", models.NewDecimal(15).String())
	assert.Equal(t, "0.00", models.NewDecimal(0).String())
	assert.Equal(t, "0.05", models.NewDecimal(0.05).String())
	assert.Equal(t, "-3.50", models.NewDecimal(-3.5).String())
}

func TestParseDecimal(t *testing.T) {
	d, err := models.ParseDecimal("199.99")
	assert.NoError(t, err)
	assert.Equal(t, "199.99", d.String())

	d, err = models.ParseDecimal(" 15 ")
	assert.NoError(t, err)
	assert.Equal(t, "15.00", d.String())

	_, err = models.ParseDecimal("abc")
	assert.Error(t, err)

	_, err = models.ParseDecimal("")
	assert.Error(t, err)
}

func TestDecimalJSONRoundTrip(t *testing.T) {
	// Serializes as a string, never as a float.
	out, err := json.Marshal(models.NewDecimal(199.99))
	assert.NoError(t, err)
	assert.Equal(t, `"199.99"`, string(out))

	// Accepts both a JSON number and a string on the way in.
	var fromNumber models.Decimal
	assert.NoError(t, json.Unmarshal([]byte(`199.99`), &fromNumber))
	assert.Equal(t, "199.99", fromNumber.String())

	var fromString models.Decimal
	assert.NoError(t, json.Unmarshal([]byte(`"42.10"`), &fromString))
	assert.Equal(t, "42.10", fromString.String())

	var bad models.Decimal
	assert.Error(t, json.Unmarshal([]byte(`"not-a-price"`), &bad))
}

func TestDecimalSQLRoundTrip(t *testing.T) {
	d := models.NewDecimal(123.45)
	v, err := d.Value()
	assert.NoError(t, err)
	assert.Equal(t, "123.45", v)

	var scanned models.Decimal
	assert.NoError(t, scanned.Scan("123.45"))
	assert.Equal(t, d, scanned)

	assert.NoError(t, scanned.Scan([]byte("9.90")))
	assert.Equal(t, "9.90", scanned.String())

	// sqlite hands back decimal columns as floats.
	assert.NoError(t, scanned.Scan(float64(199.99)))
	assert.Equal(t, "199.99", scanned.String())

	assert.NoError(t, scanned.Scan(nil))
	assert.Equal(t, "0.00", scanned.String())

	assert.Error(t, scanned.Scan(true))
}
