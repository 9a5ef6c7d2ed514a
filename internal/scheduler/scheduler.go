package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scanner is satisfied by service.LowStockMonitor.
type Scanner interface {
	Scan(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	scanner Scanner
	spec    string
	logger  *zap.Logger
}

func NewScheduler(spec string, scanner Scanner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:    cron.New(),
		scanner: scanner,
		spec:    spec,
		logger:  logger,
	}
}

// Start registers the low-stock scan and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("low_stock_cron", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.scanLowStock); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running scan to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) scanLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := s.scanner.Scan(ctx)
	if err != nil {
		s.logger.Error("low stock scan failed", zap.Error(err))
		return
	}
	s.logger.Info("low stock scan finished", zap.Int("low_items", count))
}
