package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

// MemoryQueue is an in-process leasing queue. A delivered message that is
// not settled within the lease timeout goes back to the front of the queue;
// settling it afterwards is a no-op.
type MemoryQueue struct {
	mu           sync.Mutex
	ready        []Message
	leases       map[uint64]*memoryDelivery
	dead         []Message
	nextTag      uint64
	leaseTimeout time.Duration
	notify       chan struct{}
	closed       bool
}

// NewMemoryQueue creates a queue. A zero leaseTimeout disables redelivery.
func NewMemoryQueue(leaseTimeout time.Duration) *MemoryQueue {
	return &MemoryQueue{
		leases:       make(map[uint64]*memoryDelivery),
		leaseTimeout: leaseTimeout,
		notify:       make(chan struct{}, 1),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, jobPostingID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.push(NewMessage(jobPostingID), false)
}

func (q *MemoryQueue) push(msg Message, front bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.TransportError("enqueue", fmt.Errorf("queue closed"))
	}
	if front {
		q.ready = append([]Message{msg}, q.ready...)
	} else {
		q.ready = append(q.ready, msg)
	}
	q.signal()
	return nil
}

// signal wakes one waiting consumer. Caller holds mu.
func (q *MemoryQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// lease pops the next message and starts its lease timer.
func (q *MemoryQueue) lease() (*memoryDelivery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ready) == 0 {
		return nil, false
	}
	msg := q.ready[0]
	q.ready = q.ready[1:]
	if len(q.ready) > 0 {
		q.signal()
	}

	q.nextTag++
	d := &memoryDelivery{queue: q, tag: q.nextTag, msg: msg}
	q.leases[d.tag] = d
	if q.leaseTimeout > 0 {
		tag := d.tag
		d.timer = time.AfterFunc(q.leaseTimeout, func() { q.expire(tag) })
	}
	return d, true
}

func (q *MemoryQueue) expire(tag uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	d, ok := q.leases[tag]
	if !ok {
		return
	}
	delete(q.leases, tag)
	if q.closed {
		return
	}
	q.ready = append([]Message{d.msg}, q.ready...)
	q.signal()
}

// settle ends a lease. It reports false when the lease already ended.
func (q *MemoryQueue) settle(tag uint64) (*memoryDelivery, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	d, ok := q.leases[tag]
	if !ok {
		return nil, false
	}
	delete(q.leases, tag)
	if d.timer != nil {
		d.timer.Stop()
	}
	return d, true
}

// Consume delivers messages until ctx is canceled. Several consumers may
// share one queue.
func (q *MemoryQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return nil, domain.TransportError("start consumer", fmt.Errorf("queue closed"))
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			d, ok := q.lease()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case <-q.notify:
					continue
				}
			}

			select {
			case out <- d:
			case <-ctx.Done():
				if _, live := q.settle(d.tag); live {
					_ = q.push(d.msg, true)
				}
				return
			}
		}
	}()
	return out, nil
}

// Len returns the number of messages waiting for a consumer.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// InFlight returns the number of leased, unsettled messages.
func (q *MemoryQueue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.leases)
}

// DeadLetters returns a copy of the rejected messages.
func (q *MemoryQueue) DeadLetters() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Message(nil), q.dead...)
}

// Close stops lease timers and refuses further enqueues.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for tag, d := range q.leases {
		if d.timer != nil {
			d.timer.Stop()
		}
		delete(q.leases, tag)
	}
}

type memoryDelivery struct {
	queue *MemoryQueue
	tag   uint64
	msg   Message
	timer *time.Timer
}

func (d *memoryDelivery) Message() Message { return d.msg }

func (d *memoryDelivery) Ack() error {
	d.queue.settle(d.tag)
	return nil
}

func (d *memoryDelivery) Reject() error {
	if _, live := d.queue.settle(d.tag); !live {
		return nil
	}
	d.queue.mu.Lock()
	d.queue.dead = append(d.queue.dead, d.msg)
	d.queue.mu.Unlock()
	return nil
}

func (d *memoryDelivery) Retry(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, live := d.queue.settle(d.tag); !live {
		return nil
	}
	return d.queue.push(d.msg.Next(), false)
}

func (d *memoryDelivery) Requeue() error {
	if _, live := d.queue.settle(d.tag); !live {
		return nil
	}
	return d.queue.push(d.msg, true)
}
