package actor

import (
	"sync"
	"sync/atomic"
)

// DefaultMailboxCapacity is the mailbox size used when none is configured.
const DefaultMailboxCapacity = 64

// Actor is the runtime container for a receiver: a bounded FIFO mailbox, a
// busy mutex serializing message handling, and a poisoned flag.
type Actor struct {
	handle   uint64
	receiver Receiver

	mailbox chan Message

	// busy is held by a worker for the duration of a single message.
	busy sync.Mutex

	poisoned atomic.Bool

	// pending counts queued plus in-flight messages; zero means idle.
	pending atomic.Int32
}

func newActor(handle uint64, receiver Receiver, mailboxCapacity int) *Actor {
	if mailboxCapacity <= 0 {
		mailboxCapacity = DefaultMailboxCapacity
	}
	return &Actor{
		handle:   handle,
		receiver: receiver,
		mailbox:  make(chan Message, mailboxCapacity),
	}
}

// Handle returns the actor's handle.
func (a *Actor) Handle() uint64 { return a.handle }

// Receiver returns the actor's receiver.
func (a *Actor) Receiver() Receiver { return a.receiver }

// Poisoned reports whether the actor has been marked for termination.
func (a *Actor) Poisoned() bool { return a.poisoned.Load() }

// Idle reports whether the actor has no queued or in-flight messages.
func (a *Actor) Idle() bool { return a.pending.Load() == 0 }

// enqueue appends a message to the mailbox without blocking.
func (a *Actor) enqueue(msg Message) error {
	if a.poisoned.Load() {
		return &ActorGoneError{Handle: a.handle}
	}
	select {
	case a.mailbox <- msg:
		a.pending.Add(1)
		return nil
	default:
		return &MailboxFullError{Handle: a.handle, Capacity: cap(a.mailbox)}
	}
}

// dequeue removes one message if any is queued.
func (a *Actor) dequeue() (Message, bool) {
	select {
	case msg := <-a.mailbox:
		return msg, true
	default:
		return Message{}, false
	}
}

// drain removes and disposes every queued message, returning the count.
// Called with the busy mutex held, after the actor is poisoned.
func (a *Actor) drain() int {
	n := 0
	for {
		msg, ok := a.dequeue()
		if !ok {
			return n
		}
		msg.Payload.Dispose()
		a.pending.Add(-1)
		n++
	}
}
