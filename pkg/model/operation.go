package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operation is the Safe call type.
type Operation uint8

const (
	Call         Operation = 0
	DelegateCall Operation = 1
)

func (o Operation) String() string {
	switch o {
	case Call:
		return "call"
	case DelegateCall:
		return "delegatecall"
	default:
		return "operation(" + strconv.Itoa(int(o)) + ")"
	}
}

func (o Operation) Valid() bool {
	return o == Call || o == DelegateCall
}

// ParseOperation accepts "call", "delegatecall", "0" or "1".
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "0":
		return Call, nil
	case "delegatecall", "delegate-call", "delegate_call", "1":
		return DelegateCall, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

func (o Operation) MarshalJSON() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOperation, o)
	}
	return []byte(strconv.Itoa(int(o))), nil
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, string(data))
	}
	op := Operation(n)
	if n < 0 || n > 255 || !op.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownOperation, n)
	}
	*o = op
	return nil
}
