package broker

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	mu        sync.Mutex
	exchanges []string
	queues    []string
	bindings  []string
	published []amqp.Publishing

	exchangeErr error
	queueErr    error
	bindErr     error
	publishErr  error

	deliveries chan amqp.Delivery
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery)}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exchangeErr != nil {
		return c.exchangeErr
	}
	c.exchanges = append(c.exchanges, name+"/"+kind)
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queueErr != nil {
		return amqp.Queue{}, c.queueErr
	}
	c.queues = append(c.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindErr != nil {
		return c.bindErr
	}
	c.bindings = append(c.bindings, exchange+"->"+name+":"+key)
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeConnection struct {
	mu      sync.Mutex
	channel *fakeChannel
	notify  chan *amqp.Error
	closed  bool
}

func newFakeConnection(ch *fakeChannel) *fakeConnection {
	return &fakeConnection{channel: ch}
}

func (c *fakeConnection) Channel() (Channel, error) {
	return c.channel, nil
}

func (c *fakeConnection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = receiver
	return receiver
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		if c.notify != nil {
			close(c.notify)
			c.notify = nil
		}
	}
	return nil
}

// fail drops the connection the way a transport error would, delivering the
// error to the close watcher.
func (c *fakeConnection) fail(err *amqp.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notify != nil {
		c.notify <- err
	}
}
