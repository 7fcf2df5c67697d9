package bmodels

// Endorsement is a staker's attestation of the block
// they saw as the head of its thread at the given slot.
type Endorsement struct {
	Slot          Slot    `json:"slot"`
	Index         uint32  `json:"index"`
	EndorsedBlock BlockID `json:"endorsed_block"`
}
