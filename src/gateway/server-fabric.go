package gateway

import (
	"net/http"

	"github.com/rwa-portal/anchorgate/src/gateway/response"
	. "github.com/rwa-portal/anchorgate/src/utils/logger"

	"github.com/gin-gonic/gin"
)

func (self *Server) onStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		entry, fresh, err := self.anchors.Anchor(c, id)
		if err != nil {
			LOGE(c, err, statusOf(err)).Warn("Failed to anchor record")
			return
		}

		out := response.StoreResult{
			Id:            entry.RecordId,
			AlreadyStored: !fresh,
			Message:       "record anchored",
		}
		if out.AlreadyStored {
			out.Message = "record already anchored"
		}

		LOG(c).WithField("id", id).WithField("already_stored", out.AlreadyStored).Debug("Anchor request handled")
		c.JSON(http.StatusOK, out)
	}
}

func (self *Server) onFetchAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := self.anchors.ListEntries(c)
		if err != nil {
			LOGE(c, err, statusOf(err)).Error("Failed to list anchored records")
			return
		}

		c.JSON(http.StatusOK, response.AnchorEntriesToResponse(entries))
	}
}
