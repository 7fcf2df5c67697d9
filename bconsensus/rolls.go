package bconsensus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/braid-engine/braid/bmodels"
)

// rollsSchema constrains the initial rolls file:
// a flat object mapping hex addresses to non-negative roll counts.
const rollsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "propertyNames": {"pattern": "^[0-9a-f]{64}$"},
  "additionalProperties": {"type": "integer", "minimum": 0}
}`

// LoadInitialRolls reads the roll distribution from a JSON file,
// validating it against the rolls schema before decoding.
func LoadInitialRolls(path string) (map[bmodels.Address]uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read initial rolls file: %w", err)
	}

	sch, err := jsonschema.CompileString("rolls.schema.json", rollsSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rolls schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse initial rolls file %s: %w", path, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("initial rolls file %s does not match schema: %w", path, err)
	}

	var byHex map[string]uint64
	if err := json.Unmarshal(raw, &byHex); err != nil {
		return nil, fmt.Errorf("failed to decode initial rolls file %s: %w", path, err)
	}

	rolls := make(map[bmodels.Address]uint64, len(byHex))
	for hexAddr, count := range byHex {
		addr, err := bmodels.AddressFromString(hexAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q in initial rolls file: %w", hexAddr, err)
		}
		rolls[addr] = count
	}

	return rolls, nil
}
