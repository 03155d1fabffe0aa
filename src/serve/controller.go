package serve

import (
	"github.com/rwa-portal/anchorgate/src/anchor"
	"github.com/rwa-portal/anchorgate/src/gateway"
	"github.com/rwa-portal/anchorgate/src/mint"
	"github.com/rwa-portal/anchorgate/src/record"
	"github.com/rwa-portal/anchorgate/src/utils/config"
	"github.com/rwa-portal/anchorgate/src/utils/eth"
	"github.com/rwa-portal/anchorgate/src/utils/fabric"
	"github.com/rwa-portal/anchorgate/src/utils/model"
	"github.com/rwa-portal/anchorgate/src/utils/monitor"
	"github.com/rwa-portal/anchorgate/src/utils/publisher"
	"github.com/rwa-portal/anchorgate/src/utils/task"
	"github.com/rwa-portal/anchorgate/src/verify"

	"github.com/prometheus/client_golang/prometheus"
)

type Controller struct {
	*task.Task
}

// Main class that orchestrates the whole pipeline.
// Wires storage, anchoring, minting, attestation and the REST surface.
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)

	self.Task = task.NewTask(config, "controller")

	db, err := model.NewConnection(self.Ctx, config, "anchorgate")
	if err != nil {
		return
	}

	records := record.NewStore(db)

	mon := monitor.NewMonitor().
		WithMaxHistorySize(30)

	collector := monitor.NewCollector().
		WithMonitor(mon)
	prometheus.MustRegister(collector)

	var events chan publisher.Event
	var eventPublisher *publisher.RedisPublisher[publisher.Event]
	if config.Redis.Host != "" {
		events = make(chan publisher.Event, 100)
		eventPublisher = publisher.NewRedisPublisher[publisher.Event](config, "events").
			WithInputChannel(events).
			WithMonitor(mon)
	}

	// Without a connection profile anchors are only persisted locally
	var ledger anchor.Ledger
	if config.Fabric.ConnectionProfilePath != "" {
		var fabricClient *fabric.Client
		fabricClient, err = fabric.NewClient(&config.Fabric)
		if err != nil {
			return
		}
		ledger = fabricClient
	}

	anchors := anchor.NewService(config).
		WithDB(db).
		WithLedger(ledger).
		WithMonitor(mon).
		WithEventChannel(events)

	// Without a contract address mint requests fail fast with 503
	var chain mint.Chain = disabledChain{}
	if config.Minter.ContractAddress != "" {
		chain, err = eth.NewClient(&config.Minter)
		if err != nil {
			return
		}
	}

	gate := mint.NewGate(config).
		WithDB(db).
		WithChain(chain).
		WithAnchorChecker(anchors).
		WithRecordStore(records).
		WithMonitor(mon).
		WithEventChannel(events)

	server := gateway.NewServer(config).
		WithRecordStore(records).
		WithAnchorService(anchors).
		WithMintGate(gate).
		WithMonitor(mon)

	self.Task = self.Task.
		WithSubtask(mon.Task).
		WithSubtask(anchors.Task).
		WithSubtask(gate.Task).
		WithSubtask(server.Task)

	if config.Attestor.Url != "" {
		attestor := verify.NewAttestor(config).
			WithRecordStore(records).
			WithMonitor(mon)
		self.Task = self.Task.WithSubtask(attestor.Task)
	}

	if eventPublisher != nil {
		self.Task = self.Task.WithSubtask(eventPublisher.Task)
	}

	return
}
