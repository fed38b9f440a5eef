package services

import (
	"context"
	"sync"
)

// Notifications tracks post-commit notification goroutines so shutdown can wait for
// them before closing the mailer and publisher. The zero value is ready to use.
type Notifications struct {
	wg sync.WaitGroup
}

// Go runs f in a tracked goroutine.
func (n *Notifications) Go(f func()) {
	n.wg.Go(f)
}

// Wait blocks until every tracked goroutine returns or ctx is done.
func (n *Notifications) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
