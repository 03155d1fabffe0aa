package logger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LOG returns a request-scoped logger
func LOG(c *gin.Context) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"module": "anchorgate.gateway",
		"method": c.Request.Method,
		"path":   c.FullPath(),
	})
}

// LOGE aborts the request with the given status and a {message} body.
// Every rejected call carries a message the client can render.
func LOGE(c *gin.Context, err error, status int) *logrus.Entry {
	message := http.StatusText(status)
	if err != nil {
		message = err.Error()
	}
	c.AbortWithStatusJSON(status, gin.H{"message": message})

	entry := LOG(c).WithField("status", status)
	if err != nil {
		entry = entry.WithError(err)
	}
	return entry
}
