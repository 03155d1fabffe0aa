package gateway

import (
	"net/http"

	"github.com/rwa-portal/anchorgate/src/gateway/request"
	"github.com/rwa-portal/anchorgate/src/gateway/response"
	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	. "github.com/rwa-portal/anchorgate/src/utils/logger"

	"github.com/gin-gonic/gin"
)

func (self *Server) onMint() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in request.Mint
		err := c.ShouldBindJSON(&in)
		if err != nil {
			LOGE(c, apperr.Validation("body", "is not valid json"), http.StatusBadRequest).
				WithError(err).
				Debug("Failed to parse mint request")
			return
		}
		id := in.TargetId()
		if id == "" {
			LOGE(c, apperr.Validation("id", "is missing"), http.StatusBadRequest).Debug("Mint request without record id")
			return
		}

		result, err := self.gate.RequestMint(c, id)
		if err != nil {
			LOGE(c, err, statusOf(err)).Warn("Mint request failed")
			return
		}

		out := response.Mint{
			Status:      "minted",
			Transaction: response.TransactionToResponse(result.Transaction),
		}
		if result.AlreadyMinted {
			out.Status = "already_minted"
		}

		LOG(c).WithField("id", id).WithField("status", out.Status).Info("Mint request handled")
		c.JSON(http.StatusOK, out)
	}
}
