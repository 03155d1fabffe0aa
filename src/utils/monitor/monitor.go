package monitor

import (
	"math"
	"net/http"
	"time"

	"github.com/rwa-portal/anchorgate/src/utils/task"

	"github.com/gammazero/deque"
	"github.com/gin-gonic/gin"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report Report

	historySize int

	// Throughput history
	RecordCounts *deque.Deque[uint64]
	MintCounts   *deque.Deque[uint64]
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.historySize = 30

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorRecords).
		WithPeriodicSubtaskFunc(time.Minute, self.monitorMints)
	return
}

func (self *Monitor) WithMaxHistorySize(maxHistorySize int) *Monitor {
	self.historySize = maxHistorySize

	self.RecordCounts = deque.New[uint64](self.historySize)
	self.MintCounts = deque.New[uint64](self.historySize)

	self.Report.StartTimestamp.Store(time.Now().Unix())
	return self
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

// Measure record submission speed
func (self *Monitor) monitorRecords() (err error) {
	loaded := self.Report.RecordsSubmitted.Load()
	if loaded == 0 {
		// Neglect the first 0
		return
	}

	self.RecordCounts.PushBack(loaded)
	if self.RecordCounts.Len() > self.historySize {
		self.RecordCounts.PopFront()
	}
	value := float64(self.RecordCounts.Back()-self.RecordCounts.Front()) / float64(self.RecordCounts.Len())
	self.Report.AverageRecordsSubmittedPerMinute.Store(round(value))
	return
}

// Measure successful mint speed
func (self *Monitor) monitorMints() (err error) {
	loaded := self.Report.MintsSucceeded.Load()
	if loaded == 0 {
		// Neglect the first 0
		return
	}

	self.MintCounts.PushBack(loaded)
	if self.MintCounts.Len() > self.historySize {
		self.MintCounts.PopFront()
	}
	value := float64(self.MintCounts.Back()-self.MintCounts.Front()) / float64(self.MintCounts.Len())
	self.Report.AverageMintsPerMinute.Store(round(value))
	return
}

func (self *Monitor) OnGet(c *gin.Context) {
	self.Report.Fill()
	c.JSON(http.StatusOK, &self.Report)
}
