package cmd

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"safe-core/pkg/config"
	"safe-core/pkg/errno"
	"safe-core/pkg/executor"
	"safe-core/pkg/model"
	"safe-core/pkg/safeclient"
)

var proposeCmd = &cobra.Command{
	Use:   "propose <safe>",
	Short: "Sign and submit a new multisig transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		p, err := proposalFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		signer, err := loadSigner()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		tx, err := c.Propose(cmd.Context(), safe, p, signer)
		if err != nil {
			return err
		}
		return printJSON(tx)
	},
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <safe> <safeTxHash>",
	Short: "Add the configured owner's signature to a pending proposal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		hash, err := parseHash(args[1])
		if err != nil {
			return err
		}
		signer, err := loadSigner()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		tx, err := c.Confirm(cmd.Context(), safe, hash, signer)
		if err != nil {
			return err
		}
		return printJSON(tx)
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute <safe> <safeTxHash>",
	Short: "Build execTransaction calldata for a ready proposal and optionally send it",
	Long: `Without --send the proposal is checked and its calldata printed so it can
be submitted by other means. With --send the configured signer pays for and
broadcasts the execution through --rpc.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		hash, err := parseHash(args[1])
		if err != nil {
			return err
		}
		send, _ := cmd.Flags().GetBool("send")

		if !send {
			c, err := newClient()
			if err != nil {
				return err
			}
			exec, err := c.PrepareExecution(cmd.Context(), safe, hash)
			if err != nil {
				return err
			}
			return printExecution(exec)
		}

		rpcURL, _ := cmd.Flags().GetString("rpc")
		if rpcURL == "" {
			rpcURL = config.Global.Eth.RpcUrl
		}
		if rpcURL == "" {
			return errno.Errno{Code: errno.ErrBind.Code, Message: "--send needs --rpc or eth.rpc_url"}
		}
		signer, err := loadSigner()
		if err != nil {
			return err
		}
		ex, err := executor.Dial(cmd.Context(), rpcURL, config.Global.Service.ChainID, signer.PrivateKey())
		if err != nil {
			return err
		}
		ex.Wait, _ = cmd.Flags().GetDuration("wait")

		c, err := newClient(safeclient.WithExecutor(ex))
		if err != nil {
			return err
		}
		exec, err := c.Execute(cmd.Context(), safe, hash)
		if err != nil {
			return err
		}
		return printExecution(exec)
	},
}

func printExecution(exec *safeclient.Execution) error {
	out := struct {
		SafeTxHash      string   `json:"safeTxHash"`
		Nonce           uint64   `json:"nonce"`
		Threshold       uint64   `json:"threshold"`
		Confirmed       []string `json:"confirmed"`
		Signatures      string   `json:"signatures"`
		Calldata        string   `json:"calldata"`
		TransactionHash string   `json:"transactionHash,omitempty"`
	}{
		SafeTxHash: exec.SafeTxHash.Hex(),
		Nonce:      exec.Transaction.Nonce,
		Threshold:  exec.Readiness.Threshold,
		Signatures: hexutil.Encode(exec.Signatures),
		Calldata:   hexutil.Encode(exec.Calldata),
	}
	for _, o := range exec.Readiness.Confirmed {
		out.Confirmed = append(out.Confirmed, o.Hex())
	}
	if exec.TransactionHash != (common.Hash{}) {
		out.TransactionHash = exec.TransactionHash.Hex()
	}
	return printJSON(out)
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <safe>",
	Short: "Ask the service for a safeTxGas estimate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		safe, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		p, err := proposalFromFlags(cmd.Flags())
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		gas, err := c.EstimateSafeTxGas(cmd.Context(), safe, model.MetaTransaction{
			To:        p.To,
			Value:     p.Value,
			Data:      p.Data,
			Operation: p.Operation,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), gas)
		return nil
	},
}

func addTxFlags(fs *pflag.FlagSet) {
	fs.String("to", "", "destination address")
	fs.String("value", "0", "value in wei")
	fs.String("data", "0x", "hex calldata")
	fs.String("operation", "call", "call or delegatecall")
}

func addProposeFlags(fs *pflag.FlagSet) {
	addTxFlags(fs)
	fs.Uint64("nonce", 0, "explicit nonce (default: next free nonce)")
	fs.String("safe-tx-gas", "0", "gas forwarded to the inner call")
	fs.String("base-gas", "0", "gas charged independently of the inner call")
	fs.String("gas-price", "0", "refund gas price")
	fs.String("gas-token", "", "refund token (default: native coin)")
	fs.String("refund-receiver", "", "refund receiver (default: tx.origin)")
	fs.String("origin", "", "origin label stored with the proposal")
}

// proposalFromFlags reads whichever of the transaction flags are registered
// on fs.
func proposalFromFlags(fs *pflag.FlagSet) (model.Proposal, error) {
	var p model.Proposal
	var err error

	to, _ := fs.GetString("to")
	if p.To, err = parseAddress(to); err != nil {
		return p, fmt.Errorf("--to: %w", err)
	}
	if p.Value, err = bigFlag(fs, "value"); err != nil {
		return p, err
	}
	data, _ := fs.GetString("data")
	if p.Data, err = hexutil.Decode(normalizeHex(data)); err != nil {
		return p, fmt.Errorf("%w: --data: %v", model.ErrInvalidNumber, err)
	}
	op, _ := fs.GetString("operation")
	if p.Operation, err = model.ParseOperation(op); err != nil {
		return p, err
	}

	if fs.Lookup("nonce") == nil {
		return p, nil
	}
	if fs.Changed("nonce") {
		n, _ := fs.GetUint64("nonce")
		p.Nonce = &n
	}
	if p.SafeTxGas, err = bigFlag(fs, "safe-tx-gas"); err != nil {
		return p, err
	}
	if p.BaseGas, err = bigFlag(fs, "base-gas"); err != nil {
		return p, err
	}
	if p.GasPrice, err = bigFlag(fs, "gas-price"); err != nil {
		return p, err
	}
	if p.GasToken, err = optionalAddress(fs, "gas-token"); err != nil {
		return p, err
	}
	if p.RefundReceiver, err = optionalAddress(fs, "refund-receiver"); err != nil {
		return p, err
	}
	p.Origin, _ = fs.GetString("origin")
	return p, nil
}

func bigFlag(fs *pflag.FlagSet, name string) (*big.Int, error) {
	s, _ := fs.GetString(name)
	v, ok := new(big.Int).SetString(s, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: --%s %q", model.ErrInvalidNumber, name, s)
	}
	return v, nil
}

func optionalAddress(fs *pflag.FlagSet, name string) (common.Address, error) {
	s, _ := fs.GetString(name)
	if s == "" {
		return common.Address{}, nil
	}
	addr, err := parseAddress(s)
	if err != nil {
		return addr, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

// "0x" decodes to empty; hexutil rejects a bare empty string.
func normalizeHex(s string) string {
	if s == "" {
		return "0x"
	}
	return s
}

func init() {
	addProposeFlags(proposeCmd.Flags())
	_ = proposeCmd.MarkFlagRequired("to")

	addTxFlags(estimateCmd.Flags())
	_ = estimateCmd.MarkFlagRequired("to")

	executeCmd.Flags().Bool("send", false, "sign and broadcast the execution")
	executeCmd.Flags().String("rpc", "", "JSON-RPC endpoint (default eth.rpc_url)")
	executeCmd.Flags().Duration("wait", 2*time.Minute, "wait this long for the receipt (0 = do not wait)")

	rootCmd.AddCommand(proposeCmd, confirmCmd, executeCmd, estimateCmd)
}
