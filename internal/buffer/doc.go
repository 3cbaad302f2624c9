// Package buffer provides a growable FIFO queue.
//
// The archive writer drains delivered event batches through a Queue so a
// slow database write never blocks the poller's delivery callback.
package buffer
