package gateway

import (
	"net/http"

	"github.com/rwa-portal/anchorgate/src/gateway/response"
	. "github.com/rwa-portal/anchorgate/src/utils/logger"

	"github.com/gin-gonic/gin"
)

func (self *Server) onGetTransactions() gin.HandlerFunc {
	return func(c *gin.Context) {
		txs, err := self.gate.ListTransactions(c)
		if err != nil {
			LOGE(c, err, statusOf(err)).Error("Failed to list mint transactions")
			return
		}

		LOG(c).WithField("num", len(txs)).Debug("Return mint transactions")
		c.JSON(http.StatusOK, response.TransactionsToResponse(txs))
	}
}
