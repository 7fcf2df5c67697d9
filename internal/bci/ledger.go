package bci

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/braid-engine/braid/bmodels"
)

// ledgerSchema constrains the initial ledger file: an object mapping
// hex addresses to account entries carrying a non-negative balance.
const ledgerSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "propertyNames": {"pattern": "^[0-9a-f]{64}$"},
  "additionalProperties": {
    "type": "object",
    "properties": {"balance": {"type": "integer", "minimum": 0}},
    "required": ["balance"],
    "additionalProperties": false
  }
}`

// LedgerEntry is one account in the initial ledger.
type LedgerEntry struct {
	Balance uint64 `json:"balance"`
}

// LoadInitialLedger reads the initial account balances from a JSON
// file, validating it against the ledger schema before decoding.
// The node only sanity-checks the ledger at startup; the balances
// themselves belong to the execution layer.
func LoadInitialLedger(path string) (map[bmodels.Address]LedgerEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read initial ledger file: %w", err)
	}

	sch, err := jsonschema.CompileString("ledger.schema.json", ledgerSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile ledger schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse initial ledger file %s: %w", path, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("initial ledger file %s does not match schema: %w", path, err)
	}

	var byHex map[string]LedgerEntry
	if err := json.Unmarshal(raw, &byHex); err != nil {
		return nil, fmt.Errorf("failed to decode initial ledger file %s: %w", path, err)
	}

	ledger := make(map[bmodels.Address]LedgerEntry, len(byHex))
	for hexAddr, entry := range byHex {
		addr, err := bmodels.AddressFromString(hexAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q in initial ledger file: %w", hexAddr, err)
		}
		ledger[addr] = entry
	}

	return ledger, nil
}
