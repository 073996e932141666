package mqtt

import (
	"sync"

	"github.com/golang-io/mqtt/packet"
)

// InFight holds the PUBLISH packets of a client's QoS 2 exchanges
// between PUBREC and PUBREL. The broker core never populates it (QoS 0
// only); the client side uses it to hand the message to OnMessage only
// once the exchange completes.
type InFight struct {
	mu   sync.Mutex
	maps map[uint16]*packet.PUBLISH
}

func newInFight() *InFight {
	return &InFight{
		maps: make(map[uint16]*packet.PUBLISH),
	}
}

// Get removes and returns the in-fight publish for id.
func (i *InFight) Get(id uint16) (*packet.PUBLISH, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	pkt, ok := i.maps[id]
	if ok {
		delete(i.maps, id)
	}
	return pkt, ok
}

// Put parks pkt until the matching PUBREL arrives.
func (i *InFight) Put(pkt *packet.PUBLISH) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.maps[pkt.PacketID] = pkt
	return true
}
