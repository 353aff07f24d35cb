package internal

import "sync"

// QueueNotifier is a single-consumer queue of user-facing warnings.
// Messages are dropped when the buffer is full so producers never block.
type QueueNotifier struct {
	queue  chan string
	mutex  sync.Mutex
	seen   map[string]bool
	closed bool
}

// NewQueueNotifier creates a notifier with room for size pending messages
func NewQueueNotifier(size int) *QueueNotifier {
	if size < 1 {
		size = 16
	}
	return &QueueNotifier{
		queue: make(chan string, size),
		seen:  make(map[string]bool),
	}
}

// Notify enqueues a message
func (n *QueueNotifier) Notify(message string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.closed {
		return
	}

	select {
	case n.queue <- message:
	default:
		LogWarn("Notification queue full, dropping message: %s", message)
	}
}

// NotifyOnce enqueues message only the first time key is seen
func (n *QueueNotifier) NotifyOnce(key, message string) {
	n.mutex.Lock()
	if n.seen[key] {
		n.mutex.Unlock()
		return
	}
	n.seen[key] = true
	n.mutex.Unlock()

	n.Notify(message)
}

// Messages returns the receive side of the queue for the single consumer
func (n *QueueNotifier) Messages() <-chan string {
	return n.queue
}

// Close stops the queue; the consumer drains what is left
func (n *QueueNotifier) Close() {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
}
