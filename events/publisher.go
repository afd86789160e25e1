package events

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"taskmanager/config"
)

// Publisher accepts task events for asynchronous delivery.
type Publisher interface {
	// Publish hands the event off and reports whether it was accepted.
	Publish(ev Event) bool
	Close()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) bool { return true }
func (Nop) Close()             {}

// Sender is the subset of *azqueue.QueueClient used for delivery.
type Sender interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// NewQueueClient opens the named queue with the shared retry policy.
func NewQueueClient(connStr, queue string) (*azqueue.QueueClient, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	return azqueue.NewQueueClientFromConnectionString(connStr, queue, &queueClientOptions)
}

// Options tunes the delivery pool.
type Options struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

// OptionsFrom maps the PUBLISH_* settings.
func OptionsFrom(cfg config.Events) Options {
	return Options{
		Workers:        cfg.Workers,
		Buffer:         cfg.Buffer,
		Timeout:        cfg.Timeout,
		HandoffTimeout: cfg.HandoffTimeout,
	}
}

// QueuePublisher delivers events to a queue from a fixed pool of workers.
// When the buffer is full Publish waits up to HandoffTimeout and then drops
// the event.
type QueuePublisher struct {
	sender Sender
	opts   Options
	log    *log.Logger

	jobs      chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewQueuePublisher starts opts.Workers delivery goroutines.
func NewQueuePublisher(sender Sender, opts Options, logger *log.Logger) *QueuePublisher {
	if logger == nil {
		panic("Logger is not initialized")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	}
	p := &QueuePublisher{
		sender: sender,
		opts:   opts,
		log:    logger,
		jobs:   make(chan Event, opts.Buffer),
	}
	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Infof("event publisher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", opts.Workers, opts.Buffer, opts.Timeout, opts.HandoffTimeout)
	return p
}

func (p *QueuePublisher) worker(id int) {
	defer p.wg.Done()
	for ev := range p.jobs {
		if err := p.deliver(ev); err != nil {
			p.log.Errorf("publish failed, err: %v, event: %s, type: %s, task: %s, worker: %d", err, ev.ID, ev.Type, ev.EntityID, id)
		}
	}
}

func (p *QueuePublisher) deliver(ev Event) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	ctx := context.Background()
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	_, err = p.sender.EnqueueMessage(ctx, string(data), nil)
	return err
}

func (p *QueuePublisher) Publish(ev Event) bool {
	if ok, closed := trySendNonBlocking(p.jobs, ev); closed {
		return false
	} else if ok {
		return true
	}

	if p.opts.HandoffTimeout <= 0 {
		p.log.Warnf("event dropped, buffer full, event: %s, type: %s", ev.ID, ev.Type)
		return false
	}

	timer := time.NewTimer(p.opts.HandoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(p.jobs, ev, timer.C)
	if !ok && !closed {
		p.log.Warnf("event dropped after %v, event: %s, type: %s", p.opts.HandoffTimeout, ev.ID, ev.Type)
	}
	return ok
}

// Close stops accepting events and waits for queued ones to be delivered.
func (p *QueuePublisher) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		p.wg.Wait()
	})
}

func trySendNonBlocking(ch chan Event, ev Event) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan Event, ev Event, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	case <-timer:
		return false, false
	}
}
