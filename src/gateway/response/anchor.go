package response

import (
	"encoding/json"
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/model"
)

type AnchorEntry struct {
	Id         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	AnchoredAt time.Time       `json:"anchoredAt"`
}

type StoreResult struct {
	Id            string `json:"id"`
	AlreadyStored bool   `json:"alreadyStored"`
	Message       string `json:"message"`
}

func AnchorEntriesToResponse(entries []model.AnchorEntry) []AnchorEntry {
	out := make([]AnchorEntry, len(entries))
	for i, entry := range entries {
		out[i] = AnchorEntry{
			Id:         entry.RecordId,
			Payload:    entry.Payload.Bytes,
			AnchoredAt: entry.AnchoredAt,
		}
	}
	return out
}
