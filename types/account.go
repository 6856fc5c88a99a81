package types

import (
	"github.com/holiman/uint256"
)

type Account struct {
	Address string       `json:"address"`
	Balance *uint256.Int `json:"balance"`
	Nonce   uint64       `json:"nonce"`
}

// Clone returns a deep copy
func (a *Account) Clone() *Account {
	c := &Account{Address: a.Address, Nonce: a.Nonce}
	if a.Balance != nil {
		c.Balance = new(uint256.Int).Set(a.Balance)
	} else {
		c.Balance = uint256.NewInt(0)
	}
	return c
}
