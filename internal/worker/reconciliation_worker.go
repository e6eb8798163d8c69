package worker

import (
	"context"

	"github.com/ayo6706/wheelbet/internal/observability"
	"github.com/ayo6706/wheelbet/internal/service"
	"go.uber.org/zap"
)

// ReconciliationWorker audits balance conservation across every account.
type ReconciliationWorker struct {
	svc *service.ReconciliationService
}

func NewReconciliationWorker(svc *service.ReconciliationService) *ReconciliationWorker {
	return &ReconciliationWorker{svc: svc}
}

func (w *ReconciliationWorker) Name() string { return "reconciliation" }

// RunOnce performs a single audit pass.
func (w *ReconciliationWorker) RunOnce(ctx context.Context) error {
	imbalances, err := w.svc.Run(ctx)
	if err != nil {
		observability.IncrementWorkerRun(w.Name(), "failed")
		zap.L().Error("reconciliation run failed", zap.Error(err))
		return err
	}
	result := "success"
	if len(imbalances) > 0 {
		result = "imbalanced"
	}
	observability.IncrementWorkerRun(w.Name(), result)
	return nil
}
