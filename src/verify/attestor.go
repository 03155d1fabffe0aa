package verify

import (
	"fmt"
	"time"

	"github.com/rwa-portal/anchorgate/src/record"
	"github.com/rwa-portal/anchorgate/src/utils/config"
	"github.com/rwa-portal/anchorgate/src/utils/model"
	"github.com/rwa-portal/anchorgate/src/utils/monitor"
	"github.com/rwa-portal/anchorgate/src/utils/task"

	"github.com/go-resty/resty/v2"
)

// Attestor periodically asks the external attestation service to
// confirm the reserves behind unverified records and stamps records
// verified when it does. Disabled when no attestor url is configured.
type Attestor struct {
	*task.Task

	client  *resty.Client
	records *record.Store
	monitor *monitor.Monitor
}

type attestRequest struct {
	WalletAddress string             `json:"walletAddress"`
	Balances      map[string]float64 `json:"balances"`
}

type attestResponse struct {
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt"`
}

func NewAttestor(config *config.Config) (self *Attestor) {
	self = new(Attestor)

	self.client = resty.New().
		SetBaseURL(config.Attestor.Url).
		SetAuthToken(config.Attestor.Token).
		SetTimeout(config.Attestor.RequestTimeout)

	self.Task = task.NewTask(config, "attestor").
		WithPeriodicSubtaskFunc(config.Attestor.Period, self.poll)

	return
}

func (self *Attestor) WithRecordStore(v *record.Store) *Attestor {
	self.records = v
	return self
}

func (self *Attestor) WithMonitor(v *monitor.Monitor) *Attestor {
	self.monitor = v
	return self
}

func (self *Attestor) poll() (err error) {
	records, err := self.records.ListUnverified(self.Ctx, self.Config.Attestor.BatchSize)
	if err != nil {
		self.Log.WithError(err).Error("Failed to list unverified records")
		self.monitor.Report.Errors.DbError.Inc()
		return nil
	}

	for _, rec := range records {
		if self.IsStopping.Load() {
			return nil
		}
		err = self.attestOne(rec)
		if err != nil {
			self.Log.WithError(err).WithField("id", rec.Id).Warn("Attestation failed")
			self.monitor.Report.Errors.AttestError.Inc()
		}
	}
	return nil
}

func (self *Attestor) attestOne(rec model.Record) (err error) {
	por, err := self.records.ProofOfReserveOf(rec)
	if err != nil {
		return
	}

	var out attestResponse
	err = task.NewRetry().
		WithContext(self.Ctx).
		WithMaxElapsedTime(self.Config.Attestor.RequestTimeout).
		WithMaxInterval(self.Config.Attestor.Period).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			self.Log.WithError(err).Debug("Attestation request failed, retrying")
			return err
		}).
		Run(func() (err error) {
			resp, err := self.client.R().
				SetContext(self.Ctx).
				SetBody(attestRequest{
					WalletAddress: rec.WalletAddress,
					Balances:      por.Balances,
				}).
				SetResult(&out).
				Post("/attest")
			if err != nil {
				return
			}
			if resp.IsError() {
				return fmt.Errorf("attestor responded with %s", resp.Status())
			}
			return
		})
	if err != nil {
		return
	}

	if !out.Verified {
		// Not attested yet, the next poll will retry
		return nil
	}

	verifiedAt := out.VerifiedAt
	if verifiedAt == nil {
		now := time.Now()
		verifiedAt = &now
	}
	por.Verified = true
	por.VerifiedAt = verifiedAt

	_, err = self.records.UpdateVerification(self.Ctx, rec.Id, por)
	if err != nil {
		return
	}

	self.monitor.Report.AttestationsApplied.Inc()
	self.Log.WithField("id", rec.Id).Info("Record attested as verified")
	return
}
