package response

import (
	"encoding/json"
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/model"
)

// Record is the outward shape of a stored record. Credentials never
// leave the server, the api key column stays internal.
type Record struct {
	Id             string          `json:"id"`
	SubmitterType  string          `json:"submitterType"`
	WalletAddress  string          `json:"walletAddress"`
	Deploy         json.RawMessage `json:"deploy,omitempty"`
	ProofOfReserve json.RawMessage `json:"proofOfReserve"`
	RwaHash        string          `json:"rwaHash"`
	Verified       bool            `json:"verified"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func RecordToResponse(rec model.Record) Record {
	return Record{
		Id:             rec.Id,
		SubmitterType:  string(rec.SubmitterType),
		WalletAddress:  rec.WalletAddress,
		Deploy:         rec.Deploy.Bytes,
		ProofOfReserve: rec.ProofOfReserve.Bytes,
		RwaHash:        rec.RwaHash,
		Verified:       rec.Verified,
		CreatedAt:      rec.CreatedAt,
	}
}

func RecordsToResponse(records []model.Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = RecordToResponse(rec)
	}
	return out
}
