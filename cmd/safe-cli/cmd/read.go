package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"safe-core/pkg/history"
	"safe-core/pkg/model"
	"safe-core/pkg/safeclient"
)

var infoCmd = &cobra.Command{
	Use:   "info <safe>",
	Short: "Show owners, threshold, nonce and version of a Safe",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		info, err := c.AccountInfo(cmd.Context(), safe)
		if err != nil {
			return err
		}
		return printJSON(info)
	},
}

var nonceCmd = &cobra.Command{
	Use:   "nonce <safe>",
	Short: "Print the next free nonce, skipping nonces held by pending proposals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		n, err := c.NextNonce(cmd.Context(), safe)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <safe>",
	Short: "List multisig transactions ordered by nonce",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		q, err := historyFromFlags(cmd.Flags(), c.History())
		if err != nil {
			return err
		}
		out, err := collectHistory(cmd.Context(), q.Query(safe))
		if err != nil {
			return err
		}
		return printJSON(out)
	},
}

type historyOutput struct {
	Count   uint64                      `json:"count"`
	Pages   int                         `json:"pages"`
	Results []model.MultisigTransaction `json:"results"`
}

func addHistoryFlags(fs *pflag.FlagSet) {
	fs.Uint64("min-nonce", 0, "lowest nonce to include")
	fs.Uint64("max-nonce", 0, "highest nonce to include")
	fs.Bool("executed", false, "only executed (true) or pending (false) transactions")
	fs.Int("limit", 0, "stop after this many transactions (0 = all)")
	fs.String("tx-hash", "", "only the transaction mined with this hash")
	fs.String("value", "", "exact value in wei")
	fs.String("min-value", "", "lowest value in wei")
	fs.String("max-value", "", "highest value in wei")
	fs.String("ordering", "", "service ordering, e.g. -nonce (default "+history.DefaultOrdering+")")
}

func historyFromFlags(fs *pflag.FlagSet, q history.Builder) (history.Builder, error) {
	if fs.Changed("min-nonce") {
		n, _ := fs.GetUint64("min-nonce")
		q = q.MinNonce(n)
	}
	if fs.Changed("max-nonce") {
		n, _ := fs.GetUint64("max-nonce")
		q = q.MaxNonce(n)
	}
	if fs.Changed("executed") {
		v, _ := fs.GetBool("executed")
		q = q.Executed(v)
	}
	if fs.Changed("tx-hash") {
		s, _ := fs.GetString("tx-hash")
		h, err := parseHash(s)
		if err != nil {
			return q, fmt.Errorf("--tx-hash: %w", err)
		}
		q = q.TransactionHash(h)
	}
	for _, f := range []struct {
		name string
		set  func(history.Builder, *big.Int) history.Builder
	}{
		{"min-value", history.Builder.MinValue},
		{"max-value", history.Builder.MaxValue},
		{"value", history.Builder.Value},
	} {
		if !fs.Changed(f.name) {
			continue
		}
		v, err := bigFlag(fs, f.name)
		if err != nil {
			return q, err
		}
		q = f.set(q, v)
	}
	if ordering, _ := fs.GetString("ordering"); ordering != "" {
		q = q.Ordering(ordering)
	}
	limit, _ := fs.GetInt("limit")
	return q.Limit(limit), nil
}

func collectHistory(ctx context.Context, it *history.Iterator) (historyOutput, error) {
	txs, err := it.Collect(ctx)
	if err != nil {
		return historyOutput{}, err
	}
	if txs == nil {
		txs = []model.MultisigTransaction{}
	}
	return historyOutput{Count: it.Total(), Pages: it.Pages(), Results: txs}, nil
}

var txCmd = &cobra.Command{
	Use:   "tx <safeTxHash>",
	Short: "Show one multisig transaction with its confirmations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := parseHash(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		tx, err := c.Transaction(cmd.Context(), hash)
		if err != nil {
			return err
		}
		return printJSON(newTxOutput(tx))
	},
}

// txOutput adds the decoded origin next to the raw one.
type txOutput struct {
	model.MultisigTransaction
	OriginText string `json:"originText,omitempty"`
}

func newTxOutput(tx *model.MultisigTransaction) txOutput {
	return txOutput{MultisigTransaction: *tx, OriginText: tx.OriginString()}
}

var balancesCmd = &cobra.Command{
	Use:   "balances <safe>",
	Short: "List token balances with fiat values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		trusted, _ := cmd.Flags().GetBool("trusted")
		excludeSpam, _ := cmd.Flags().GetBool("exclude-spam")
		balances, err := c.Balances(cmd.Context(), safe, trusted, excludeSpam)
		if err != nil {
			return err
		}

		type row struct {
			Token    string `json:"token"`
			Amount   string `json:"amount"`
			FiatUSD  string `json:"fiatBalance"`
			Contract string `json:"tokenAddress,omitempty"`
		}
		out := make([]row, 0, len(balances))
		for _, b := range balances {
			r := row{Token: "ETH", Amount: b.Amount().String(), FiatUSD: b.FiatBalance.String()}
			if b.Token != nil {
				r.Token = b.Token.Symbol
			}
			if b.TokenAddress != nil {
				r.Contract = b.TokenAddress.Hex()
			}
			out = append(out, r)
		}
		return printJSON(out)
	},
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Search tokens known to the service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		var f safeclient.TokenFilter
		f.Name, _ = flags.GetString("name")
		f.Symbol, _ = flags.GetString("symbol")
		f.Limit, _ = flags.GetInt("limit")
		f.Offset, _ = flags.GetInt("offset")
		for _, d := range []struct {
			name string
			dst  **int
		}{
			{"decimals", &f.Decimals},
			{"min-decimals", &f.MinDecimals},
			{"max-decimals", &f.MaxDecimals},
		} {
			if flags.Changed(d.name) {
				v, _ := flags.GetInt(d.name)
				*d.dst = &v
			}
		}
		tokens, err := c.Tokens(cmd.Context(), f)
		if err != nil {
			return err
		}
		return printJSON(tokens)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Show token metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		token, err := c.Token(cmd.Context(), addr)
		if err != nil {
			return err
		}
		return printJSON(token)
	},
}

func init() {
	addHistoryFlags(historyCmd.Flags())

	balancesCmd.Flags().Bool("trusted", false, "only tokens marked trusted by the service")
	balancesCmd.Flags().Bool("exclude-spam", true, "hide tokens flagged as spam")

	tokensCmd.Flags().String("name", "", "filter by name")
	tokensCmd.Flags().String("symbol", "", "filter by symbol")
	tokensCmd.Flags().Int("decimals", 0, "filter by decimals")
	tokensCmd.Flags().Int("min-decimals", 0, "lowest decimals to include")
	tokensCmd.Flags().Int("max-decimals", 0, "highest decimals to include")
	tokensCmd.Flags().Int("offset", 0, "skip this many tokens")
	tokensCmd.Flags().Int("limit", history.DefaultPageSize, "maximum number of tokens")

	rootCmd.AddCommand(infoCmd, nonceCmd, historyCmd, txCmd, balancesCmd, tokensCmd, tokenCmd)
}
