// Package utils provides small numeric conversion helpers shared across
// the chain-facing packages.
package utils

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
)

// BtcToSatoshis validates value as a well-formed, non-negative chain
// amount and returns its satoshi-denominated equivalent.
func BtcToSatoshis(value float64) (uint64, error) {
	amt, err := btcutil.NewAmount(value)
	if err != nil {
		return 0, err
	}
	if amt < 0 {
		return 0, fmt.Errorf("negative amount: %d", amt)
	}
	return uint64(amt), nil
}
