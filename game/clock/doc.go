// Package clock provides the time source and periodic scheduling used by the
// whack-a-mole engine.
//
// Every timed process in a game (the countdown tick and the mole spawn cycle)
// is registered through a Clock as a cancellable periodic Task. Production code
// uses the wall clock returned by Real; tests use a Manual clock and move time
// forward explicitly with Advance, which makes every tick deterministic.
//
// Usage:
//
//	clk := clock.NewManual(time.Unix(0, 0))
//	task := clk.Every(2*time.Second, func() { fmt.Println("tick") })
//	clk.Advance(4 * time.Second) // prints "tick" twice
//	task.Stop()
//
// Cancellation:
//
// Task.Stop is idempotent and never blocks. Once Stop has returned the clock
// will not start another invocation of the callback. An invocation that had
// already started may still be running; callers that need stronger guarantees
// (the engine does) serialize callbacks with their own lock and a run token.
package clock
