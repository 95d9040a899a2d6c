package clientsync

import (
	"context"
	"time"

	"pinboard/internal/logger"

	"go.uber.org/zap"
)

// FetchFunc loads a fresh unread total from the server.
type FetchFunc func(ctx context.Context) (int64, error)

// Poller calls Fetch once immediately and then every Interval until its
// context is cancelled. Results that arrive after cancellation are dropped.
type Poller struct {
	Name     string
	Interval time.Duration
	Fetch    FetchFunc
	Apply    func(total int64)
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	total, err := p.Fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		// 轮询失败只记录，下一轮重试
		logger.Log.Warn("unread poll failed", zap.String("region", p.Name), zap.Error(err))
		return
	}
	p.Apply(total)
}
