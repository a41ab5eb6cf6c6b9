package model

import "fmt"

// Collections names the store collections of one tracked contract on one network.
type Collections struct {
	Address   string
	NetworkID uint64
}

// RawTransactions holds crawler output.
func (c Collections) RawTransactions() string {
	return fmt.Sprintf("%s-%d", c.Address, c.NetworkID)
}

// State holds the materialized aggregates.
func (c Collections) State() string {
	return fmt.Sprintf("%s-%d-state", c.Address, c.NetworkID)
}

// BlockHeight holds the checkpoint singleton.
func (c Collections) BlockHeight() string {
	return fmt.Sprintf("%s-%d-block-height-state", c.Address, c.NetworkID)
}
