package channel

import (
	"context"

	"github.com/ibrhyyme/Zkt-Timer-sub002/internal/types"
)

type Msg interface{ isChannelMsg() }

// Subscriber is one connection listening on a channel. Kick is called, from the
// channel goroutine, when the subscriber's outbox is full.
type Subscriber struct {
	ID     string
	UserID string
	Outbox chan<- types.ServerMessage
	Kick   func()
}

type Join struct{ Sub Subscriber }

func (Join) isChannelMsg() {}

type Leave struct{ ID string }

func (Leave) isChannelMsg() {}

// Publish fans Msg out to every subscriber except the one whose ID is Except.
type Publish struct {
	Msg    types.ServerMessage
	Except string
}

func (Publish) isChannelMsg() {}

type Shutdown struct{}

func (Shutdown) isChannelMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isChannelMsg() {}

type View struct {
	Name           string
	NumSubscribers int
	Published      int
}

type Channel struct {
	name      string
	inbox     chan Msg
	subs      map[string]Subscriber
	published int
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context, name string) *Channel {
	ctx, cancel := context.WithCancel(parent)

	c := &Channel{
		name:   name,
		inbox:  make(chan Msg, 64),
		subs:   make(map[string]Subscriber),
		ctx:    ctx,
		cancel: cancel,
	}

	go c.loop()
	return c
}

func (c *Channel) loop() {
	for {
		select {
		case <-c.ctx.Done():
			c.shutdown()
			return

		case m := <-c.inbox:
			switch msg := m.(type) {
			case Join:
				c.subs[msg.Sub.ID] = msg.Sub

			case Leave:
				delete(c.subs, msg.ID)

			case Publish:
				c.published++
				c.broadcast(msg)

			case GetState:
				msg.Reply <- View{
					Name:           c.name,
					NumSubscribers: len(c.subs),
					Published:      c.published,
				}

			case Shutdown:
				c.shutdown()
				return
			}
		}
	}
}

// Outboxes are shared with other channels, so they are never closed here.
func (c *Channel) shutdown() {
	clear(c.subs)
	c.cancel()
}

func (c *Channel) broadcast(p Publish) {
	for id, sub := range c.subs {
		if id == p.Except {
			continue
		}
		select {
		case sub.Outbox <- p.Msg:
		default:
			// Slow subscriber: drop them.
			delete(c.subs, id)
			if sub.Kick != nil {
				sub.Kick()
			}
		}
	}
}

// Send delivers m unless the channel has already stopped.
func (c *Channel) Send(m Msg) {
	select {
	case c.inbox <- m:
	case <-c.ctx.Done():
	}
}

func (c *Channel) Done() <-chan struct{} { return c.ctx.Done() }
