package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type expirer interface {
	ExpireOverdue(ctx context.Context) (int64, error)
}

// ExpiryWorker periodically closes subscriptions whose window has ended.
type ExpiryWorker struct {
	subs     expirer
	interval time.Duration
	log      *logrus.Logger
}

func NewExpiryWorker(subs expirer, interval time.Duration, log *logrus.Logger) *ExpiryWorker {
	return &ExpiryWorker{subs: subs, interval: interval, log: log}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.WithField("interval", w.interval.String()).Info("Expiry worker started")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	if _, err := w.subs.ExpireOverdue(ctx); err != nil {
		w.log.WithError(err).Error("Expiry sweep failed")
	}
}
