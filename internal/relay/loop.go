package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/pitwall/internal/logger"
)

// Start runs the first tick right away, then schedules each following tick
// Interval after the previous one completed. Ticks never overlap.
func (r *Relay) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.loop(ctx)
}

// Stop ends the loop and waits for an in-flight tick to finish.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	if r.started.Load() {
		<-r.done
	}
}

// Trigger asks for an immediate tick. It returns false when one is already pending.
func (r *Relay) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// ForceTrigger forgets every broadcast fingerprint, then triggers a tick, so
// the next tick broadcasts even when nothing changed.
func (r *Relay) ForceTrigger(ctx context.Context) (bool, error) {
	if err := r.dedup.Flush(ctx); err != nil {
		return false, fmt.Errorf("failed to reset change detection: %w", err)
	}
	return r.Trigger(), nil
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
		case <-r.trigger:
			r.logger.Info("manual tick triggered")
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		}

		r.runTick(ctx)
		// re-armed only once the tick is over
		timer.Reset(r.opts.Interval)
	}
}

func (r *Relay) runTick(ctx context.Context) {
	started := r.now()
	outcome, err := r.Tick(ctx)
	if err != nil {
		r.logger.Error("tick failed",
			logger.Time("tick", started),
			logger.Error(err))
		r.out.PublishError(ErrorMessage)
		return
	}
	r.logger.Debug("tick done",
		logger.String("outcome", string(outcome)),
		logger.Duration("took", r.now().Sub(started)))
}
