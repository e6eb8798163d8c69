package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/wheelbet/internal/notify"
	"github.com/ayo6706/wheelbet/internal/observability"
	"go.uber.org/zap"
)

const notifyTimeout = 2 * time.Second

// publish delivers e best effort. It never reports failure to the caller.
func publish(ctx context.Context, n notify.Notifier, e notify.Event) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.Publish(ctx, e); err != nil {
		observability.IncrementNotifyFailure()
		zap.L().Warn("failed to publish event", zap.String("type", e.Type), zap.Error(err))
	}
}

func pageBounds(page, pageSize, maxSize int) (limit, offset int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxSize {
		pageSize = maxSize
	}
	return int32(pageSize), int32((page - 1) * pageSize)
}

func requireExactlyOne(rows int64, operation string) error {
	if rows != 1 {
		return fmt.Errorf("%s affected %d rows", operation, rows)
	}
	return nil
}
