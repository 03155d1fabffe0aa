package gateway

import (
	"context"
	"net/http"

	"github.com/rwa-portal/anchorgate/src/anchor"
	"github.com/rwa-portal/anchorgate/src/mint"
	"github.com/rwa-portal/anchorgate/src/record"
	"github.com/rwa-portal/anchorgate/src/utils/config"
	"github.com/rwa-portal/anchorgate/src/utils/monitor"
	"github.com/rwa-portal/anchorgate/src/utils/task"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Rest API server, the only outward surface of the pipeline
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	records *record.Store
	anchors *anchor.Service
	gate    *mint.Gate
	monitor *monitor.Monitor
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "rest-server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	self.Router = gin.New()

	self.httpServer = &http.Server{
		Addr:         self.Config.Gateway.RESTListenAddress,
		Handler:      self.Router,
		ReadTimeout:  self.Config.Gateway.ServerRequestTimeout,
		WriteTimeout: self.Config.Gateway.ServerRequestTimeout,
	}

	return
}

func (self *Server) WithRecordStore(v *record.Store) *Server {
	self.records = v
	return self
}

func (self *Server) WithAnchorService(v *anchor.Service) *Server {
	self.anchors = v
	return self
}

func (self *Server) WithMintGate(v *mint.Gate) *Server {
	self.gate = v
	return self
}

func (self *Server) WithMonitor(v *monitor.Monitor) *Server {
	self.monitor = v
	return self
}

func (self *Server) run() (err error) {
	if self.Config.IsDevelopment {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	self.registerRoutes()

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) registerRoutes() {
	if self.Config.Gateway.IsProfilerEnabled {
		pprof.Register(self.Router)
	}

	authorized := self.Router.Group("/", self.authenticate())
	{
		authorized.POST("data/submit", self.onSubmit())
		authorized.GET("data/fetch", self.onFetch())
		authorized.POST("mint", self.onMint())
	}

	// Operator-only surface, institutions never see the global state
	admin := authorized.Group("/", self.requireAdmin())
	{
		admin.POST("fabric/store/:id", self.onStore())
		admin.GET("fabric/fetch-all", self.onFetchAll())
		admin.GET("transactions", self.onGetTransactions())
	}

	v1 := self.Router.Group("v1")
	{
		v1.GET("health", self.monitor.OnGet)
		v1.GET("metrics", gin.WrapH(promhttp.Handler()))
	}
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}
