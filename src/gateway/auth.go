package gateway

import (
	"net/http"
	"strings"

	"github.com/rwa-portal/anchorgate/src/record"
	"github.com/rwa-portal/anchorgate/src/utils/apperr"
	. "github.com/rwa-portal/anchorgate/src/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwt"
)

const callerKey = "caller"

// authenticate resolves the request credentials into an explicit
// Caller. Admins authenticate with a bearer token, institutions with
// an api key pair. No credentials means no access to any route.
func (self *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token := strings.TrimPrefix(header, "Bearer ")
			err := self.verifyAdminToken(token)
			if err != nil {
				self.monitor.Report.Errors.AuthError.Inc()
				LOGE(c, apperr.ErrUnauthorized, http.StatusUnauthorized).WithError(err).Warn("Rejected admin token")
				return
			}
			c.Set(callerKey, record.Caller{IsAdmin: true})
			c.Next()
			return
		}

		apiKey := c.GetHeader("x-api-key")
		apiSecret := c.GetHeader("x-api-secret")
		if apiKey != "" && apiSecret != "" {
			_, err := self.records.AuthenticateInstitution(c, apiKey, apiSecret)
			if err != nil {
				self.monitor.Report.Errors.AuthError.Inc()
				LOGE(c, apperr.ErrUnauthorized, http.StatusUnauthorized).WithError(err).Warn("Rejected api key pair")
				return
			}
			c.Set(callerKey, record.Caller{ApiKey: apiKey})
			c.Next()
			return
		}

		self.monitor.Report.Errors.AuthError.Inc()
		LOGE(c, apperr.ErrUnauthorized, http.StatusUnauthorized).Debug("Request without credentials")
	}
}

// requireAdmin gates operator endpoints. Institutions keep their
// submission scope, anchoring and the global ledger stay admin-only.
func (self *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !caller(c).IsAdmin {
			self.monitor.Report.Errors.AuthError.Inc()
			LOGE(c, apperr.ErrForbidden, http.StatusForbidden).Warn("Institution called an operator endpoint")
			return
		}
		c.Next()
	}
}

func (self *Server) verifyAdminToken(token string) (err error) {
	parsed, err := jwt.Parse([]byte(token),
		jwt.WithValidate(true),
		jwt.WithVerify(jwa.HS256, []byte(self.Config.Auth.AdminJwtSecret)))
	if err != nil {
		return
	}
	if parsed.Subject() != self.Config.Auth.AdminSubject {
		return apperr.ErrUnauthorized
	}
	return nil
}

func caller(c *gin.Context) record.Caller {
	out, _ := c.MustGet(callerKey).(record.Caller)
	return out
}
