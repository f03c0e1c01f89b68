package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/tokenwatch/internal/infra/chain"
	"github.com/vietddude/tokenwatch/internal/infra/chain/solana"
)

var rpcURL string

var balanceCmd = &cobra.Command{
	Use:   "balance [wallet]",
	Short: "Show the SOL balance of a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lookup, err := newLookup()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		balance, err := lookup.Balance(ctx, args[0])
		if err != nil {
			return err
		}
		printBalance(cmd.OutOrStdout(), balance)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token [mint]",
	Short: "Show supply and authorities of a token mint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lookup, err := newLookup()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		info, err := lookup.Token(ctx, args[0])
		if err != nil {
			return err
		}
		printToken(cmd.OutOrStdout(), info)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{balanceCmd, tokenCmd} {
		c.Flags().StringVar(&rpcURL, "rpc", "", "Solana JSON-RPC endpoint (overrides solana.rpc)")
		rootCmd.AddCommand(c)
	}
}

func newLookup() (chain.Lookup, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Logging.Level)

	endpoint := cfg.Solana.RPC
	if rpcURL != "" {
		endpoint = rpcURL
	}
	return solana.NewClient(endpoint), nil
}

func printBalance(w io.Writer, b *chain.Balance) {
	lines := []string{
		titleStyle.Render("Wallet Balance"),
		field("Wallet:", b.Wallet),
		field("Balance:", strconv.FormatFloat(b.SOL, 'f', -1, 64)+" SOL"),
		field("Lamports:", strconv.FormatUint(b.Lamports, 10)),
		field("Slot:", strconv.FormatUint(b.Slot, 10)),
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func printToken(w io.Writer, t *chain.TokenInfo) {
	lines := []string{
		titleStyle.Render("Token Mint"),
		field("Mint:", t.Mint),
		field("Supply:", t.UISupply),
		field("Raw supply:", t.Supply),
		field("Decimals:", strconv.Itoa(int(t.Decimals))),
		field("Mint authority:", orNone(t.MintAuthority)),
		field("Freeze authority:", orNone(t.FreezeAuthority)),
	}
	if t.Owner != "" {
		lines = append(lines, field("Owner program:", t.Owner))
	}
	if t.MintAuthority == "" {
		lines = append(lines, warningStyle.Render("Supply is fixed: the mint authority is revoked"))
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
