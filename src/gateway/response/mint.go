package response

import (
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/model"
)

// Transaction duplicates a few fields under the names older portal
// builds read, both spellings are kept until every client migrates.
type Transaction struct {
	Id            int     `json:"id"`
	RecordId      string  `json:"recordId"`
	WalletAddress string  `json:"walletAddress"`
	RwaHash       string  `json:"rwaHash"`
	Outcome       string  `json:"outcome"`
	ChainError    string  `json:"chainError,omitempty"`
	Amount        float64 `json:"amount"`
	MintedAmount  float64 `json:"mintedAmount"`

	TransactionHash string `json:"transactionHash"`
	EthTxHash       string `json:"ethTxHash"`

	Timestamp time.Time `json:"timestamp"`
	MintedAt  time.Time `json:"mintedAt"`
}

type Mint struct {
	Status      string      `json:"status"`
	Transaction Transaction `json:"transaction"`
}

type GetTransactions struct {
	Transactions []Transaction `json:"transactions"`
}

func TransactionToResponse(tx model.MintTransaction) Transaction {
	return Transaction{
		Id:              tx.Id,
		RecordId:        tx.SourceRecordId,
		WalletAddress:   tx.WalletAddress,
		RwaHash:         tx.RwaHash,
		Outcome:         string(tx.Outcome),
		ChainError:      tx.ChainError,
		Amount:          tx.MintedAmount,
		MintedAmount:    tx.MintedAmount,
		TransactionHash: tx.EthTxHash,
		EthTxHash:       tx.EthTxHash,
		Timestamp:       tx.MintedAt,
		MintedAt:        tx.MintedAt,
	}
}

func TransactionsToResponse(txs []model.MintTransaction) *GetTransactions {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		out[i] = TransactionToResponse(tx)
	}
	return &GetTransactions{Transactions: out}
}
