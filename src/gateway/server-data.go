package gateway

import (
	"net/http"

	"github.com/rwa-portal/anchorgate/src/gateway/response"
	"github.com/rwa-portal/anchorgate/src/record"
	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	. "github.com/rwa-portal/anchorgate/src/utils/logger"

	"github.com/gin-gonic/gin"
)

func (self *Server) onSubmit() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in record.SubmitInput
		err := c.ShouldBindJSON(&in)
		if err != nil {
			LOGE(c, apperr.Validation("body", "is not valid json"), http.StatusBadRequest).
				WithError(err).
				Debug("Failed to parse submit request")
			return
		}

		rec, err := self.records.Submit(c, caller(c), in)
		if err != nil {
			LOGE(c, err, statusOf(err)).Warn("Failed to submit record")
			return
		}

		self.monitor.Report.RecordsSubmitted.Inc()
		LOG(c).WithField("id", rec.Id).WithField("rwa_hash", rec.RwaHash).Debug("Record submitted")

		c.JSON(http.StatusOK, gin.H{"id": rec.Id})
	}
}

func (self *Server) onFetch() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := self.records.Fetch(c, caller(c))
		if err != nil {
			LOGE(c, err, statusOf(err)).Error("Failed to fetch records")
			self.monitor.Report.Errors.DbError.Inc()
			return
		}

		c.JSON(http.StatusOK, response.RecordsToResponse(records))
	}
}
