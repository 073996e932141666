package mqtt

import (
	"context"
	"log"

	"github.com/golang-io/mqtt/internal/config"
	"github.com/golang-io/mqtt/internal/metrics"
	"github.com/golang-io/mqtt/packet"
	"github.com/golang-io/mqtt/topic"
)

// PacketInfo is the unit of work a connection worker hands to the
// dispatcher: a packet it decided not to handle locally, tagged with
// the clientId that sent it.
type PacketInfo struct {
	SenderID string
	Packet   packet.Packet
}

// Dispatcher is the single consumer of every PUBLISH, SUBSCRIBE, and
// "anything else" a connection worker forwards to it. It is the only
// place that adds subscriptions to the index, but not its only user:
// each connection worker's teardown calls Tree.UnsubscribeAll from its
// own goroutine, so Tree's own locking is what keeps the two safe.
type Dispatcher struct {
	srv    *Server
	topics *topic.Tree
	cfg    *config.Config

	Incoming chan PacketInfo
}

func newDispatcher(srv *Server, cfg *config.Config) *Dispatcher {
	return &Dispatcher{
		srv:      srv,
		topics:   srv.topics,
		cfg:      cfg,
		Incoming: make(chan PacketInfo, queueCapacity(cfg)),
	}
}

// queueCapacity turns the byte-oriented config knob into a number of
// queue slots, max(1, bytes/entry). PacketInfo entries vary in size;
// we size the channel by an average small-packet footprint rather than
// tracking actual byte usage per entry.
func queueCapacity(cfg *config.Config) int {
	const avgPacketBytes = 256
	n := int(cfg.DispatcherQueueSizeBytes / avgPacketBytes)
	if n < 1 {
		n = 1
	}
	return n
}

// run is the dispatcher's single-consumer loop: it races the inbound
// queue against ctx cancellation and exits on whichever fires first.
func (d *Dispatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pi, ok := <-d.Incoming:
			if !ok {
				return
			}
			metrics.DispatcherQueueDepth.Set(float64(len(d.Incoming)))
			d.processPacket(pi)
		}
	}
}

func (d *Dispatcher) processPacket(pi PacketInfo) {
	switch pkt := pi.Packet.(type) {
	case *packet.PUBLISH:
		d.processPublish(pi.SenderID, pkt)
	case *packet.SUBSCRIBE:
		d.processSubscribe(pi.SenderID, pkt)
	default:
		// Every other packet kind that reaches the dispatcher —
		// UNSUBSCRIBE, PUBACK, PUBREC, PUBREL, PUBCOMP, AUTH, anything
		// reserved — needs state this broker doesn't keep yet.
		d.reject(pi.SenderID, packet.ErrImplementationSpecificError)
	}
}

// reject disconnects senderID with reason: enqueue a DISCONNECT, then
// tear the connection down once the write loop has flushed it.
func (d *Dispatcher) reject(senderID string, reason packet.ReasonCode) {
	metrics.PacketsRejected.WithLabelValues(reason.Reason).Inc()
	c, ok := d.srv.lookup(senderID)
	if !ok {
		return
	}
	disc := packet.NewDISCONNECT(reason)
	if err := c.Send(disc); err != nil {
		log.Printf("mqtt: dispatcher: send disconnect to %s: %v", senderID, err)
	}
	c.closeAfterDrain()
}

// processPublish implements the PUBLISH half of the dispatcher: QoS 0
// fan-out to every matching subscriber, after rejecting the properties
// and flags that would need retained/QoS/alias state.
func (d *Dispatcher) processPublish(senderID string, pkt *packet.PUBLISH) {
	if pkt.QoS != 0 || pkt.Dup != 0 || pkt.Retain != 0 {
		d.reject(senderID, packet.ErrImplementationSpecificError)
		return
	}
	if pkt.Props != nil {
		if pkt.Props.MessageExpiryInterval != 0 {
			d.reject(senderID, packet.ErrImplementationSpecificError)
			return
		}
		if pkt.Props.TopicAlias != 0 {
			d.reject(senderID, packet.ErrImplementationSpecificError)
			return
		}
		if len(pkt.Props.SubscriptionIdentifier) != 0 {
			d.reject(senderID, packet.ErrImplementationSpecificError)
			return
		}
	}

	matches := d.topics.Match(pkt.Message.TopicName)
	if len(matches) == 0 {
		return
	}

	strict := d.cfg.ChannelPermeability == config.Strict

	for clientID, info := range matches {
		if clientID == senderID && info.Flags&topic.NoLocal != 0 {
			continue
		}
		if strict && crossesTransport(senderID, clientID) {
			continue
		}
		target, ok := d.srv.lookup(clientID)
		if !ok {
			continue
		}
		out := &packet.PUBLISH{
			FixedHeader: &packet.FixedHeader{Kind: PUBLISH},
			Message: &packet.Message{
				TopicName: pkt.Message.TopicName,
				Content:   pkt.Message.Content,
			},
		}
		if pkt.Props != nil {
			out.Props = &packet.PublishProperties{
				PayloadFormatIndicator: pkt.Props.PayloadFormatIndicator,
				ResponseTopic:          pkt.Props.ResponseTopic,
				CorrelationData:        pkt.Props.CorrelationData,
				ContentType:            pkt.Props.ContentType,
				UserProperty:           pkt.Props.UserProperty,
			}
		}
		if info.Flags&topic.RetainAsPublished == 0 {
			out.Retain = 0
		}
		// Enqueue only: the subscriber's own write loop does the socket
		// write, so one stalled subscriber never holds up this loop.
		// Enqueue failure means the subscriber is on its way out; log
		// and move on.
		if err := target.Send(out); err != nil {
			log.Printf("mqtt: dispatcher: forward publish to %s: %v", clientID, err)
		}
	}
}

// crossesTransport reports whether senderID and clientID are connected
// over different transports. Until the Noise listener exists every
// connection is plain TCP, so this is always false; it is kept as its
// own function so wiring in the second transport only means filling
// this in, not re-deriving the Strict-mode check at every call site.
func crossesTransport(senderID, clientID string) bool {
	return false
}

// processSubscribe implements the SUBSCRIBE half of the dispatcher.
func (d *Dispatcher) processSubscribe(senderID string, pkt *packet.SUBSCRIBE) {
	if pkt.Props != nil && pkt.Props.SubscriptionIdentifier != 0 {
		d.reject(senderID, packet.ErrImplementationSpecificError)
		return
	}

	reasons := make([]packet.ReasonCode, 0, len(pkt.Subscriptions))
	for _, sub := range pkt.Subscriptions {
		if sub.MaximumQoS != 0 {
			reasons = append(reasons, packet.ErrImplementationSpecificError)
			continue
		}
		if sub.RetainHandling != 0x02 {
			reasons = append(reasons, packet.ErrImplementationSpecificError)
			continue
		}
		var flags topic.Flags
		if sub.NoLocal != 0 {
			flags |= topic.NoLocal
		}
		if sub.RetainAsPublished != 0 {
			flags |= topic.RetainAsPublished
		}
		if err := d.topics.Subscribe(senderID, sub.TopicFilter, topic.Info{QoS: 0, Flags: flags}); err != nil {
			reasons = append(reasons, packet.ErrTopicFilterInvalid)
			continue
		}
		reasons = append(reasons, packet.CodeGrantedQos0)
	}
	metrics.SubscriptionsActive.Set(float64(d.topics.Count()))

	c, ok := d.srv.lookup(senderID)
	if !ok {
		return
	}
	suback := &packet.SUBACK{
		FixedHeader: &packet.FixedHeader{Kind: SUBACK},
		PacketID:    pkt.PacketID,
		SubackProps: &packet.SubackProperties{},
		ReasonCode:  reasons,
	}
	if err := c.Send(suback); err != nil {
		log.Printf("mqtt: dispatcher: send suback to %s: %v", senderID, err)
	}
}
