package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

// AccountDelta holds the post-block values of one touched account.
// Values are absolute, so applying the same delta twice leaves the state unchanged.
type AccountDelta struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
	Removed bool   `json:"removed,omitempty"`
}

// StateDelta is the state mutation produced by one tx block
type StateDelta struct {
	BlockNum uint64         `json:"block_num"`
	Accounts []AccountDelta `json:"accounts"`
}

// NewAccountDelta builds the delta entry for acc
func NewAccountDelta(acc *Account) AccountDelta {
	balance := "0"
	if acc.Balance != nil {
		balance = acc.Balance.Dec()
	}
	return AccountDelta{Address: acc.Address, Balance: balance, Nonce: acc.Nonce}
}

// ToAccount converts the delta entry back to an account
func (d AccountDelta) ToAccount() (*Account, error) {
	if d.Address == "" {
		return nil, fmt.Errorf("account delta without address")
	}
	balance, err := uint256.FromDecimal(d.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q for %s: %w", d.Balance, d.Address, err)
	}
	return &Account{Address: d.Address, Balance: balance, Nonce: d.Nonce}, nil
}
