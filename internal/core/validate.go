package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockroom/internal/codec"
)

func normalizeMoney(d *decimal.Decimal, field string) error {
	if !codec.HasMoneyPrecision(*d) {
		return fmt.Errorf("%s has more than two decimal places", field)
	}
	*d = codec.NormalizeMoney(*d)
	return nil
}

// missing returns "<name> is required" for the first blank value among
// name/value pairs.
func missing(pairs ...string) string {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return pairs[i] + " is required"
		}
	}
	return ""
}
