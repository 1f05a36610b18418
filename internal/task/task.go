// Package task runs fire-and-forget background work with a supervisor
// that logs panics instead of letting them kill the process.
package task

import (
	"sync"

	"github.com/Abraxas-365/craftable/logx"
)

var wg sync.WaitGroup

// Go runs fn on its own goroutine. A panic inside fn is recovered and
// logged under name; it never propagates.
func Go(name string, fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logx.Error("background task %s panicked: %v", name, r)
			}
		}()
		fn()
	}()
}

// Wait blocks until every task started with Go has finished. Used on
// shutdown to drain in-flight conversations.
func Wait() {
	wg.Wait()
}
