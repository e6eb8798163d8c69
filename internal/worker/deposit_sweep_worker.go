package worker

import (
	"context"
	"time"

	"github.com/ayo6706/wheelbet/internal/observability"
	"github.com/ayo6706/wheelbet/internal/service"
	"go.uber.org/zap"
)

// DepositSweepWorker re-confirms deposits the payer never came back for.
type DepositSweepWorker struct {
	funds     *service.FundsService
	age       time.Duration
	batchSize int32
}

func NewDepositSweepWorker(funds *service.FundsService) *DepositSweepWorker {
	return &DepositSweepWorker{
		funds:     funds,
		age:       30 * time.Minute,
		batchSize: 50,
	}
}

// WithAge sets how long a deposit must stay pending before it is swept.
func (w *DepositSweepWorker) WithAge(age time.Duration) *DepositSweepWorker {
	if age > 0 {
		w.age = age
	}
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *DepositSweepWorker) WithBatchSize(size int32) *DepositSweepWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

func (w *DepositSweepWorker) Name() string { return "deposit_sweep" }

// RunOnce sweeps a single batch.
func (w *DepositSweepWorker) RunOnce(ctx context.Context) error {
	settled, err := w.funds.SweepStaleDeposits(ctx, w.age, w.batchSize)
	if err != nil {
		observability.IncrementWorkerRun(w.Name(), "failed")
		zap.L().Error("deposit sweep failed", zap.Error(err))
		return err
	}
	observability.IncrementWorkerRun(w.Name(), "success")
	if settled > 0 {
		zap.L().Info("deposit sweep settled deposits", zap.Int("settled", settled))
	}
	return nil
}
