package request

// Mint accepts both field names the portal has used for the record id
type Mint struct {
	Id       string `json:"id"`
	RecordId string `json:"recordId"`
}

func (self *Mint) TargetId() string {
	if self.Id != "" {
		return self.Id
	}
	return self.RecordId
}
