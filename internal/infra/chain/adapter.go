package chain

import (
	"context"
)

// Lookup defines read-only account queries against a chain RPC node.
type Lookup interface {
	// Balance returns the native balance of a wallet
	Balance(ctx context.Context, wallet string) (*Balance, error)

	// Token returns supply and authority details of a token mint
	Token(ctx context.Context, mint string) (*TokenInfo, error)
}

// Balance is a native-currency balance.
type Balance struct {
	Wallet   string  `json:"wallet"`
	Lamports uint64  `json:"lamports"`
	SOL      float64 `json:"sol"`
	Slot     uint64  `json:"slot"`
}

// TokenInfo describes a token mint.
type TokenInfo struct {
	Mint            string `json:"mint"`
	Supply          string `json:"supply"`
	UISupply        string `json:"ui_supply"`
	Decimals        uint8  `json:"decimals"`
	MintAuthority   string `json:"mint_authority,omitempty"`
	FreezeAuthority string `json:"freeze_authority,omitempty"`
	Freezable       bool   `json:"freezable"`
	Owner           string `json:"owner"`
}
