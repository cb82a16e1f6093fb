// Package transport defines the point-to-point messaging contract between
// evacsim processes: tagged sends to a fixed rank, blocking receives filtered
// by sender and tag, and a non-consuming probe.
//
// Messages from one sender to one receiver are delivered in send order.
// Nothing is promised across different sender/receiver pairs.
package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrClosed      = errors.New("transport closed")
	ErrUnknownRank = errors.New("unknown rank")
)

// Rank is the fixed numeric address of a process.
type Rank int

// AnySource matches a message from any sender.
const AnySource Rank = -1

// Tag discriminates message types.
type Tag int

// AnyTag matches a message with any tag.
const AnyTag Tag = 0

const (
	TagDBSync         Tag = 10
	TagAccessRequest  Tag = 20
	TagAccessResponse Tag = 30
	TagFireTrigger    Tag = 40
	TagPresenceReport Tag = 50
	TagLogAppend      Tag = 60
	TagSimCommand     Tag = 70
	TagHello          Tag = 80
)

func (t Tag) String() string {
	switch t {
	case AnyTag:
		return "ANY"
	case TagDBSync:
		return "DB_SYNC"
	case TagAccessRequest:
		return "ACCESS_REQUEST"
	case TagAccessResponse:
		return "ACCESS_RESPONSE"
	case TagFireTrigger:
		return "FIRE_TRIGGER"
	case TagPresenceReport:
		return "PRESENCE_REPORT"
	case TagLogAppend:
		return "LOG_APPEND"
	case TagSimCommand:
		return "SIM_COMMAND"
	case TagHello:
		return "HELLO"
	default:
		return fmt.Sprintf("TAG(%d)", int(t))
	}
}

// Message is one delivered payload.
type Message struct {
	From    Rank
	To      Rank
	Tag     Tag
	Payload []byte
}

// Status describes a pending message found by Probe.
type Status struct {
	From Rank
	Tag  Tag
	Size int
}

// Transport is one process's view of the network.
type Transport interface {
	// Rank is this process's own address.
	Rank() Rank
	// Size is the total number of processes in the run.
	Size() int
	// Send queues payload for to. Returning does not mean it was received.
	Send(ctx context.Context, to Rank, tag Tag, payload []byte) error
	// Recv blocks until a message matching from and tag is available.
	Recv(ctx context.Context, from Rank, tag Tag) (Message, error)
	// Probe reports whether a matching message is ready without consuming it.
	Probe(from Rank, tag Tag) (Status, bool)
	Close() error
}

func matches(msg Message, from Rank, tag Tag) bool {
	return (from == AnySource || msg.From == from) && (tag == AnyTag || msg.Tag == tag)
}
