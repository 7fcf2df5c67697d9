package bmodels

import (
	"encoding/json"
	"fmt"
)

// OperationKind is the closed set of operation payloads.
// Exactly the types in this package implement it.
type OperationKind interface {
	isOperationKind()
}

// Transaction moves coins to a recipient address.
type Transaction struct {
	Recipient Address `json:"recipient"`
	Amount    Amount  `json:"amount"`
}

// RollBuy purchases staking rolls.
type RollBuy struct {
	Count uint64 `json:"count"`
}

// RollSell releases staking rolls.
type RollSell struct {
	Count uint64 `json:"count"`
}

// ExecuteSC runs the given bytecode.
type ExecuteSC struct {
	Data     []byte `json:"data"`
	MaxGas   uint64 `json:"max_gas"`
	GasPrice Amount `json:"gas_price"`
	Coins    Amount `json:"coins"`
}

func (Transaction) isOperationKind() {}
func (RollBuy) isOperationKind()     {}
func (RollSell) isOperationKind()    {}
func (ExecuteSC) isOperationKind()   {}

// Operation is one ledger mutation,
// valid until its expiry period elapses.
type Operation struct {
	Fee          Amount
	ExpirePeriod uint64
	Kind         OperationKind
}

type operationJSON struct {
	Fee          Amount          `json:"fee"`
	ExpirePeriod uint64          `json:"expire_period"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
}

func (op Operation) MarshalJSON() ([]byte, error) {
	var typ string
	switch op.Kind.(type) {
	case Transaction:
		typ = "transaction"
	case RollBuy:
		typ = "roll_buy"
	case RollSell:
		typ = "roll_sell"
	case ExecuteSC:
		typ = "execute_sc"
	default:
		return nil, fmt.Errorf("unknown operation kind %T", op.Kind)
	}

	payload, err := json.Marshal(op.Kind)
	if err != nil {
		return nil, err
	}

	return json.Marshal(operationJSON{
		Fee:          op.Fee,
		ExpirePeriod: op.ExpirePeriod,
		Type:         typ,
		Payload:      payload,
	})
}

func (op *Operation) UnmarshalJSON(b []byte) error {
	var aux operationJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	op.Fee = aux.Fee
	op.ExpirePeriod = aux.ExpirePeriod

	switch aux.Type {
	case "transaction":
		var k Transaction
		if err := json.Unmarshal(aux.Payload, &k); err != nil {
			return err
		}
		op.Kind = k
	case "roll_buy":
		var k RollBuy
		if err := json.Unmarshal(aux.Payload, &k); err != nil {
			return err
		}
		op.Kind = k
	case "roll_sell":
		var k RollSell
		if err := json.Unmarshal(aux.Payload, &k); err != nil {
			return err
		}
		op.Kind = k
	case "execute_sc":
		var k ExecuteSC
		if err := json.Unmarshal(aux.Payload, &k); err != nil {
			return err
		}
		op.Kind = k
	default:
		return fmt.Errorf("unknown operation type %q", aux.Type)
	}

	return nil
}
