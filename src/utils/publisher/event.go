package publisher

import (
	"encoding/json"
)

// Event is published to Redis so clients can refresh their views
// without polling
type Event struct {
	Event     string `json:"event"`
	RecordId  string `json:"id,omitempty"`
	RwaHash   string `json:"rwaHash,omitempty"`
	EthTxHash string `json:"ethTxHash,omitempty"`
}

func (self Event) MarshalBinary() ([]byte, error) {
	return json.Marshal(self)
}
