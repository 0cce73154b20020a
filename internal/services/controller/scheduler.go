package controller

import (
	"sync"
	"time"
)

// Scheduler runs fn every period until the returned cancel func is called.
type Scheduler interface {
	Every(period time.Duration, fn func()) (cancel func())
}

// TickerScheduler runs callbacks from a time.Ticker goroutine.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(period time.Duration, fn func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
