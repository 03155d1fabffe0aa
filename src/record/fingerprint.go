package record

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/crypto"
)

// Fingerprint derives the rwa hash from the proof of reserve balances.
// It's a pure function of the canonical balances document: encoding/json
// emits map keys in sorted order, so two records with identical balances
// always produce the same hash regardless of submission shape.
// Verification metadata is excluded, re-verifying a record doesn't
// change its fingerprint.
func Fingerprint(por ProofOfReserve) string {
	payload, err := json.Marshal(por.Balances)
	if err != nil {
		// A map[string]float64 can't fail to marshal
		panic(err)
	}
	return crypto.Keccak256Hash(payload).Hex()
}
