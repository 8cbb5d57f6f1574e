package model

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SafeTx holds exactly the fields covered by the Safe transaction hash.
type SafeTx struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          uint64
}

// Proposal is what a caller wants to submit. A nil Nonce asks the client to
// pick the next free one.
type Proposal struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
	Nonce          *uint64
	Origin         string
}

// WithNonce fixes the nonce and returns the hashable transaction.
func (p Proposal) WithNonce(nonce uint64) SafeTx {
	return SafeTx{
		To:             p.To,
		Value:          orZero(p.Value),
		Data:           p.Data,
		Operation:      p.Operation,
		SafeTxGas:      orZero(p.SafeTxGas),
		BaseGas:        orZero(p.BaseGas),
		GasPrice:       orZero(p.GasPrice),
		GasToken:       p.GasToken,
		RefundReceiver: p.RefundReceiver,
		Nonce:          nonce,
	}
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

// SignatureType as reported by the service for each confirmation.
type SignatureType string

const (
	SignatureEOA          SignatureType = "EOA"
	SignatureEthSign      SignatureType = "ETH_SIGN"
	SignatureApprovedHash SignatureType = "APPROVED_HASH"
	SignatureContract     SignatureType = "CONTRACT_SIGNATURE"
)

// Confirmation is one owner's signature over a safeTxHash.
type Confirmation struct {
	Owner           common.Address `json:"owner"`
	SubmissionDate  time.Time      `json:"submissionDate"`
	TransactionHash *common.Hash   `json:"transactionHash"`
	Signature       Bytes          `json:"signature"`
	SignatureType   SignatureType  `json:"signatureType"`
}

type DecodedParameter struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type DecodedData struct {
	Method     string             `json:"method"`
	Parameters []DecodedParameter `json:"parameters"`
}

// MultisigTransaction is a proposal as tracked by the service, pending or
// executed.
type MultisigTransaction struct {
	Safe                  common.Address  `json:"safe"`
	To                    common.Address  `json:"to"`
	Value                 *BigInt         `json:"value"`
	Data                  Bytes           `json:"data"`
	Operation             Operation       `json:"operation"`
	GasToken              *common.Address `json:"gasToken"`
	SafeTxGas             *BigInt         `json:"safeTxGas"`
	BaseGas               *BigInt         `json:"baseGas"`
	GasPrice              *BigInt         `json:"gasPrice"`
	RefundReceiver        *common.Address `json:"refundReceiver"`
	Nonce                 uint64          `json:"nonce"`
	SafeTxHash            common.Hash     `json:"safeTxHash"`
	SubmissionDate        time.Time       `json:"submissionDate"`
	Modified              *time.Time      `json:"modified"`
	Proposer              *common.Address `json:"proposer"`
	Origin                json.RawMessage `json:"origin"`
	DataDecoded           *DecodedData    `json:"dataDecoded"`
	ConfirmationsRequired uint64          `json:"confirmationsRequired"`
	Confirmations         []Confirmation  `json:"confirmations"`
	Trusted               bool            `json:"trusted"`

	// Execution fields, set once IsExecuted is true.
	IsExecuted           bool            `json:"isExecuted"`
	IsSuccessful         *bool           `json:"isSuccessful"`
	ExecutionDate        *time.Time      `json:"executionDate"`
	BlockNumber          *uint64         `json:"blockNumber"`
	TransactionHash      *common.Hash    `json:"transactionHash"`
	Executor             *common.Address `json:"executor"`
	EthGasPrice          *BigInt         `json:"ethGasPrice"`
	MaxFeePerGas         *BigInt         `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *BigInt         `json:"maxPriorityFeePerGas"`
	GasUsed              *uint64         `json:"gasUsed"`
	Fee                  *BigInt         `json:"fee"`
	Signatures           Bytes           `json:"signatures"`
}

func (t *MultisigTransaction) UnmarshalJSON(data []byte) error {
	type alias MultisigTransaction
	aux := struct {
		*alias
		Nonce                 flexUint64  `json:"nonce"`
		ConfirmationsRequired flexUint64  `json:"confirmationsRequired"`
		BlockNumber           *flexUint64 `json:"blockNumber"`
		GasUsed               *flexUint64 `json:"gasUsed"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Nonce = uint64(aux.Nonce)
	t.ConfirmationsRequired = uint64(aux.ConfirmationsRequired)
	t.BlockNumber = nil
	if aux.BlockNumber != nil {
		v := uint64(*aux.BlockNumber)
		t.BlockNumber = &v
	}
	t.GasUsed = nil
	if aux.GasUsed != nil {
		v := uint64(*aux.GasUsed)
		t.GasUsed = &v
	}
	return nil
}

// SafeTx extracts the hashable fields; null addresses read as zero.
func (t *MultisigTransaction) SafeTx() SafeTx {
	return SafeTx{
		To:             t.To,
		Value:          t.Value.Int(),
		Data:           t.Data,
		Operation:      t.Operation,
		SafeTxGas:      t.SafeTxGas.Int(),
		BaseGas:        t.BaseGas.Int(),
		GasPrice:       t.GasPrice.Int(),
		GasToken:       derefAddress(t.GasToken),
		RefundReceiver: derefAddress(t.RefundReceiver),
		Nonce:          t.Nonce,
	}
}

// OriginString returns the origin as plain text when the service stored a
// JSON string, or the raw JSON otherwise.
func (t *MultisigTransaction) OriginString() string {
	if len(t.Origin) == 0 || string(t.Origin) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(t.Origin, &s); err == nil {
		return s
	}
	return string(t.Origin)
}

func derefAddress(a *common.Address) common.Address {
	if a == nil {
		return common.Address{}
	}
	return *a
}

// ProposeRequest is the body of a new multisig transaction submission.
type ProposeRequest struct {
	To                      string    `json:"to"`
	Value                   string    `json:"value"`
	Data                    *string   `json:"data"`
	Operation               Operation `json:"operation"`
	SafeTxGas               string    `json:"safeTxGas"`
	BaseGas                 string    `json:"baseGas"`
	GasPrice                string    `json:"gasPrice"`
	GasToken                string    `json:"gasToken"`
	RefundReceiver          string    `json:"refundReceiver"`
	Nonce                   uint64    `json:"nonce"`
	ContractTransactionHash string    `json:"contractTransactionHash"`
	Sender                  string    `json:"sender"`
	Signature               string    `json:"signature"`
	Origin                  string    `json:"origin,omitempty"`
}

// NewProposeRequest renders tx with checksummed addresses and decimal
// integers.
func NewProposeRequest(tx SafeTx, safeTxHash common.Hash, sender common.Address, signature []byte, origin string) ProposeRequest {
	var data *string
	if len(tx.Data) > 0 {
		s := Bytes(tx.Data).String()
		data = &s
	}
	return ProposeRequest{
		To:                      tx.To.Hex(),
		Value:                   orZero(tx.Value).String(),
		Data:                    data,
		Operation:               tx.Operation,
		SafeTxGas:               orZero(tx.SafeTxGas).String(),
		BaseGas:                 orZero(tx.BaseGas).String(),
		GasPrice:                orZero(tx.GasPrice).String(),
		GasToken:                tx.GasToken.Hex(),
		RefundReceiver:          tx.RefundReceiver.Hex(),
		Nonce:                   tx.Nonce,
		ContractTransactionHash: safeTxHash.Hex(),
		Sender:                  sender.Hex(),
		Signature:               Bytes(signature).String(),
		Origin:                  origin,
	}
}

// ConfirmRequest adds a signature to an existing proposal.
type ConfirmRequest struct {
	Signature string `json:"signature"`
}

// MetaTransaction is the subset used for safeTxGas estimation.
type MetaTransaction struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation Operation
}

type EstimateRequest struct {
	To        string    `json:"to"`
	Value     string    `json:"value"`
	Data      *string   `json:"data"`
	Operation Operation `json:"operation"`
}

func NewEstimateRequest(tx MetaTransaction) EstimateRequest {
	var data *string
	if len(tx.Data) > 0 {
		s := Bytes(tx.Data).String()
		data = &s
	}
	return EstimateRequest{
		To:        tx.To.Hex(),
		Value:     orZero(tx.Value).String(),
		Data:      data,
		Operation: tx.Operation,
	}
}

type EstimateResponse struct {
	SafeTxGas *BigInt `json:"safeTxGas"`
}
