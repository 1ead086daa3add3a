package radiosim

import (
	"sync"

	"tinygo.org/x/baseband"
)

// Reply is the outcome a Responder picks for an armed transfer. PDU and RSSI
// are only used for receptions.
type Reply struct {
	Status baseband.Status
	PDU    []byte
	RSSI   int8
}

// Responder decides how armed transfers end.
type Responder interface {
	Respond(a Arm) Reply
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(a Arm) Reply

// Respond implements Responder.
func (f ResponderFunc) Respond(a Arm) Reply {
	return f(a)
}

// Silence acknowledges transmissions and times out every reception.
var Silence = ResponderFunc(func(a Arm) Reply {
	if a.Dir == baseband.DirTx {
		return Reply{Status: baseband.Success}
	}
	return Reply{Status: baseband.RxTimeout}
})

// Script answers receptions with the given replies in order, then falls back
// to Silence. Transmissions always succeed.
type Script struct {
	mu      sync.Mutex
	replies []Reply
}

// NewScript returns a script playing replies.
func NewScript(replies ...Reply) *Script {
	return &Script{replies: replies}
}

// Push appends replies to the script.
func (s *Script) Push(replies ...Reply) {
	s.mu.Lock()
	s.replies = append(s.replies, replies...)
	s.mu.Unlock()
}

// Respond implements Responder.
func (s *Script) Respond(a Arm) Reply {
	if a.Dir == baseband.DirTx {
		return Reply{Status: baseband.Success}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return Silence(a)
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply
}

// Peer answers advertising channel traffic like a single remote device. It
// replies to every armed reception on channel with PDU and times out on
// other channels.
type Peer struct {
	Channel uint8
	PDU     []byte
	RSSI    int8
}

// Respond implements Responder.
func (p Peer) Respond(a Arm) Reply {
	if a.Dir == baseband.DirTx {
		return Reply{Status: baseband.Success}
	}
	if a.Channel.Index != p.Channel {
		return Reply{Status: baseband.RxTimeout}
	}
	return Reply{Status: baseband.Success, PDU: p.PDU, RSSI: p.RSSI}
}
