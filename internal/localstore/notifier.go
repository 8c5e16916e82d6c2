package localstore

import "sync"

// notifier is a closed-channel broadcast: subscribers grab the current
// signal channel, and a broadcast closes it and swaps in a fresh one.
// Subscribing before querying and waiting after guarantees no update is
// missed between a query and its wait.
type notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{})}
}

// signal returns a channel closed on the next broadcast.
func (n *notifier) signal() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

// broadcast wakes every waiter at once. Waiters that were busy collapse
// any number of broadcasts into a single re-query.
func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	close(n.ch)
	n.ch = make(chan struct{})
}
