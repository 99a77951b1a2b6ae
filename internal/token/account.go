package token

import (
	"github.com/ethereum/go-ethereum/common"
)

// Holders are identified by 20-byte addresses. User addresses come from the
// transport layer; protocol-owned accounts derive a stable address from a
// well-known name.

// ModuleAddress derives the address of a protocol-owned account from its name.
func ModuleAddress(name string) common.Address {
	var addr common.Address
	copy(addr[:], []byte(name))
	return addr
}

var (
	// VaultAddress holds pledged collateral and flash-loan float.
	VaultAddress = ModuleAddress("vault")

	// TreasuryAddress receives accrued interest and liquidation penalties.
	TreasuryAddress = ModuleAddress("treasury")
)

// BalanceKey identifies one holder's balance of one token.
type BalanceKey struct {
	Token  common.Address
	Holder common.Address
}
