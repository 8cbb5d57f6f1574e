package signature

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"safe-core/pkg/model"
)

const safeABI = `[
  {"type":"function","name":"execTransaction","stateMutability":"payable",
   "inputs":[
     {"name":"to","type":"address"},
     {"name":"value","type":"uint256"},
     {"name":"data","type":"bytes"},
     {"name":"operation","type":"uint8"},
     {"name":"safeTxGas","type":"uint256"},
     {"name":"baseGas","type":"uint256"},
     {"name":"gasPrice","type":"uint256"},
     {"name":"gasToken","type":"address"},
     {"name":"refundReceiver","type":"address"},
     {"name":"signatures","type":"bytes"}],
   "outputs":[{"name":"success","type":"bool"}]},
  {"type":"function","name":"nonce","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// SafeABI is the subset of the Safe contract ABI this module calls.
var SafeABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(safeABI))
	if err != nil {
		panic(fmt.Sprintf("parse safe abi: %v", err))
	}
	SafeABI = parsed
}

// EncodeExecTransaction returns calldata for Safe.execTransaction.
func EncodeExecTransaction(tx model.SafeTx, signatures []byte) ([]byte, error) {
	data := tx.Data
	if data == nil {
		data = []byte{}
	}
	calldata, err := SafeABI.Pack("execTransaction",
		tx.To,
		orZero(tx.Value),
		data,
		uint8(tx.Operation),
		orZero(tx.SafeTxGas),
		orZero(tx.BaseGas),
		orZero(tx.GasPrice),
		tx.GasToken,
		tx.RefundReceiver,
		signatures,
	)
	if err != nil {
		return nil, fmt.Errorf("pack execTransaction: %w", err)
	}
	return calldata, nil
}
