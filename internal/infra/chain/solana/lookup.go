// Package solana implements account lookups and well-known program ids for
// Solana.
package solana

import (
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/chain"
)

// DefaultRPC is the public mainnet endpoint.
const DefaultRPC = rpc.MainNetBeta_RPC

// DefaultPrograms returns the Token Program and the Token Metadata Program.
func DefaultPrograms() []domain.Program {
	return []domain.Program{
		{Address: sol.TokenProgramID.String(), Name: "Token Program"},
		{Address: sol.TokenMetadataProgramID.String(), Name: "Token Metadata Program"},
	}
}

// ValidateAddress checks that address is a base58 public key.
func ValidateAddress(address string) error {
	if _, err := sol.PublicKeyFromBase58(address); err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}
	return nil
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(sol.LAMPORTS_PER_SOL)
}

// Client implements chain.Lookup over JSON-RPC.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
}

var _ chain.Lookup = (*Client)(nil)

// NewClient creates a lookup client. An empty endpoint selects mainnet-beta.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultRPC
	}
	return &Client{
		rpc:        rpc.New(endpoint),
		commitment: rpc.CommitmentConfirmed,
	}
}

// Balance returns the SOL balance of wallet.
func (c *Client) Balance(ctx context.Context, wallet string) (*chain.Balance, error) {
	pk, err := sol.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet %q: %w", wallet, err)
	}

	out, err := c.rpc.GetBalance(ctx, pk, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	return &chain.Balance{
		Wallet:   pk.String(),
		Lamports: out.Value,
		SOL:      LamportsToSOL(out.Value),
		Slot:     out.Context.Slot,
	}, nil
}

// Token returns supply and authorities of a mint.
func (c *Client) Token(ctx context.Context, mint string) (*chain.TokenInfo, error) {
	pk, err := sol.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid mint %q: %w", mint, err)
	}

	supply, err := c.rpc.GetTokenSupply(ctx, pk, c.commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get token supply: %w", err)
	}
	if supply.Value == nil {
		return nil, fmt.Errorf("no supply returned for %s", pk)
	}

	info := &chain.TokenInfo{
		Mint:     pk.String(),
		Supply:   supply.Value.Amount,
		UISupply: supply.Value.UiAmountString,
		Decimals: supply.Value.Decimals,
	}

	acct, err := c.rpc.GetAccountInfoWithOpts(ctx, pk, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   sol.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return info, nil
		}
		return nil, fmt.Errorf("failed to get mint account: %w", err)
	}
	if acct.Value == nil || acct.Value.Data == nil {
		return info, nil
	}
	info.Owner = acct.Value.Owner.String()

	m, err := DecodeMint(acct.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	if m.MintAuthority != nil {
		info.MintAuthority = m.MintAuthority.String()
	}
	if m.FreezeAuthority != nil {
		info.FreezeAuthority = m.FreezeAuthority.String()
		info.Freezable = true
	}
	return info, nil
}

// DecodeMint parses SPL mint account data.
func DecodeMint(data []byte) (*token.Mint, error) {
	var m token.Mint
	if err := m.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, fmt.Errorf("failed to decode mint: %w", err)
	}
	return &m, nil
}
