package models

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimal is a fixed-point monetary amount held as an integer number of
// cents. It round-trips through the database as a decimal(10,2) string and
// serializes to JSON as a 2-decimal string ("199.99"), so no binary floating
// point value ever crosses the storage boundary.
type Decimal int64

// NewDecimal builds a Decimal from a float, rounding to the nearest cent.
func NewDecimal(f float64) Decimal {
	return Decimal(math.Round(f * 100))
}

// ParseDecimal parses a decimal string such as "199.99" or "15".
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	return NewDecimal(f), nil
}

// Float64 returns the amount as a float, for query parameters only.
func (d Decimal) Float64() float64 {
	return float64(d) / 100
}

// String formats the amount with exactly two fraction digits.
func (d Decimal) String() string {
	sign := ""
	v := int64(d)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON renders the amount as a JSON string, e.g. "199.99".
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

// UnmarshalJSON accepts both a JSON number (199.99) and a string ("199.99").
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer, storing the decimal string.
func (d Decimal) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner for the decimal column representations the
// postgres and sqlite drivers produce.
func (d *Decimal) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = 0
		return nil
	case []byte:
		parsed, err := ParseDecimal(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDecimal(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case float64:
		*d = NewDecimal(v)
		return nil
	case int64:
		*d = Decimal(v * 100)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Decimal", src)
	}
}
