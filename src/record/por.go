package record

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/apperr"

	"github.com/jackc/pgtype"
)

// ProofOfReserve is the one canonical schema for the verified balance
// sub-document. Submitted payloads come in several historical shapes,
// they are normalized here at the store boundary and ambiguity never
// propagates downstream.
type ProofOfReserve struct {
	// Currency code -> amount
	Balances map[string]float64 `json:"balances"`

	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt"`
}

// Intermediate shape accepting all observed payload variants
type rawProofOfReserve struct {
	Balances map[string]float64 `json:"balances"`

	// Legacy per-currency fields
	UsdtBalance *float64 `json:"usdtBalance"`
	UsdcBalance *float64 `json:"usdcBalance"`
	EurcBalance *float64 `json:"eurcBalance"`

	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt"`
}

// NormalizeProofOfReserve parses a proof of reserve document that may
// be a structured object or a (possibly double-) JSON-encoded string.
func NormalizeProofOfReserve(data json.RawMessage) (por ProofOfReserve, err error) {
	if len(data) == 0 {
		err = apperr.Validation("proofOfReserve", "is missing")
		return
	}

	// Unwrap string-encoded documents, two levels at most
	for i := 0; i < 2; i++ {
		var encoded string
		if json.Unmarshal(data, &encoded) != nil {
			break
		}
		data = json.RawMessage(encoded)
	}

	var raw rawProofOfReserve
	err = json.Unmarshal(data, &raw)
	if err != nil {
		err = apperr.Validation("proofOfReserve", "is not a valid JSON document")
		return
	}

	por.Balances = make(map[string]float64, len(raw.Balances))
	for currency, amount := range raw.Balances {
		por.Balances[strings.ToUpper(currency)] = amount
	}
	if raw.UsdtBalance != nil {
		por.Balances["USDT"] = *raw.UsdtBalance
	}
	if raw.UsdcBalance != nil {
		por.Balances["USDC"] = *raw.UsdcBalance
	}
	if raw.EurcBalance != nil {
		por.Balances["EURC"] = *raw.EurcBalance
	}

	if len(por.Balances) == 0 {
		err = apperr.Validation("proofOfReserve.balances", "must contain at least one currency amount")
		return
	}

	por.Verified = raw.Verified
	por.VerifiedAt = raw.VerifiedAt
	return
}

// TotalAmount is the quantity a mint issues for this proof of reserve
func (self *ProofOfReserve) TotalAmount() (total float64) {
	for _, amount := range self.Balances {
		total += amount
	}
	return
}

func (self *ProofOfReserve) ToJSONB() (out pgtype.JSONB, err error) {
	payload, err := json.Marshal(self)
	if err != nil {
		return
	}
	err = out.Set(payload)
	return
}

func ProofOfReserveFromJSONB(in pgtype.JSONB) (por ProofOfReserve, err error) {
	err = json.Unmarshal(in.Bytes, &por)
	return
}
