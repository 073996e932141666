package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-io/mqtt/internal/idgen"
	"github.com/golang-io/mqtt/internal/metrics"
	"github.com/golang-io/mqtt/packet"
)

// protoState is the connection worker's own MQTT-level state machine,
// independent of the net/http-styled ConnState used for idle bookkeeping
// during Shutdown.
type protoState uint32

const (
	connAwaitingConnect protoState = iota
	connEstablished
	connDraining
	connClosed
)

// conn represents the server side of a single client connection: one
// goroutine reading packets off rwc, running the handshake itself, and
// forwarding everything past it to the dispatcher.
type conn struct {
	// server is the server on which the connection arrived. Immutable; never nil.
	server *Server

	// cancelCtx cancels the connection-level context.
	cancelCtx context.CancelFunc

	// rwc is the underlying network connection.
	rwc net.Conn

	// remoteAddr is rwc.RemoteAddr().String(), populated inside serve.
	remoteAddr string

	curState atomic.Uint64 // packed (unix time<<8|uint8(ConnState)), for Shutdown's idle poll

	state atomic.Uint32 // protoState

	inFight   *InFight // QoS 2 handshake bookkeeping, used by client.go only
	ID        string
	keepAlive uint16
	PacketID  uint16
	mu        sync.Mutex

	// out is the connection's outbound queue: the dispatcher and the
	// read loop enqueue, writeLoop drains. writeDone closes when the
	// write loop has exited.
	out       *outQueue
	writeDone chan struct{}

	// session holds the subset of CONNECT properties the broker accepts
	// into client state; everything else is rejected during
	// the handshake instead of being stored.
	session sessionParams
}

// sessionParams is the per-client state carried forward from CONNECT
// into the CONNACK reply and any later accounting.
type sessionParams struct {
	sessionExpiryInterval uint32
	receiveMax            uint16
	maxPacketSize         uint32
	topicAliasMax         uint16
	responseInfoRequested bool
	problemInfoRequested  bool
}

func (c *conn) protoState() protoState {
	return protoState(c.state.Load())
}

func (c *conn) setProtoState(s protoState) {
	c.state.Store(uint32(s))
}

func (c *conn) setState(nc net.Conn, state ConnState, runHook bool) {
	srv := c.server
	switch state {
	case StateNew:
		srv.trackConn(c, true)
	case StateClosed:
		srv.trackConn(c, false)
	default:
	}
	packedState := uint64(time.Now().Unix()<<8) | uint64(state)
	c.curState.Store(packedState)
	if !runHook {
		return
	}
	if hook := srv.ConnState; hook != nil {
		hook(nc, state)
	}
}

func (c *conn) getState() (state ConnState, unixSec int64) {
	packedState := c.curState.Load()
	return ConnState(packedState & 0xFF), int64(packedState >> 8)
}

// Send enqueues pkt on the outbound queue without blocking; writeLoop
// gets it onto the wire. Failure means the connection is going away.
func (c *conn) Send(pkt packet.Packet) error {
	return c.out.enqueue(pkt)
}

// writeLoop is the write half of the worker: it drains the outbound
// queue onto the socket until the queue is sealed and empty, or a
// write fails. A write failure closes the socket, which in turn drops
// the read loop.
func (c *conn) writeLoop() {
	defer close(c.writeDone)
	for {
		pkt, ok := c.out.dequeue()
		if !ok {
			return
		}
		if err := c.Write(pkt); err != nil {
			log.Printf("mqtt: write: clientId=%s, remote=%s, err=%v", c.ID, c.remoteAddr, err)
			c.close()
			return
		}
	}
}

// closeAfterDrain seals the outbound queue and closes the socket once
// the write loop has flushed what is already queued (or after a grace
// period, if the peer stops reading). Used when the broker decides to
// drop a client but still wants its final DISCONNECT delivered.
func (c *conn) closeAfterDrain() {
	c.out.close()
	go func() {
		select {
		case <-c.writeDone:
		case <-time.After(5 * time.Second):
		}
		c.close()
	}()
}

// Write packs pkt and writes it to the wire as one write, serializing
// against concurrent writers. Only writeLoop should call this while
// the worker is running; everyone else goes through Send.
func (c *conn) Write(pkt packet.Packet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rwc == nil {
		return fmt.Errorf("connection is nil or closed")
	}
	buf := packet.GetBuffer()
	defer packet.PutBuffer(buf)
	if err := pkt.Pack(buf); err != nil {
		return err
	}
	n, err := c.rwc.Write(buf.Bytes())
	if err != nil {
		return err
	}
	metrics.PacketsSent.WithLabelValues(packet.Kind[pkt.Kind()]).Inc()
	stat.PacketSent.Inc()
	stat.ByteSent.Add(float64(n))
	return nil
}

// close tears down the underlying network connection. Safe to call
// more than once.
func (c *conn) close() {
	_ = c.rwc.Close()
}

// serve runs the connection's two cooperative jobs: this goroutine is
// the read loop (CONNECT handshake, then decode-and-forward to the
// dispatcher), writeLoop is the drain-and-write half, bridged by the
// outbound queue. Either job ending drops the worker.
func (c *conn) serve(ctx context.Context) {
	if ra := c.rwc.RemoteAddr(); ra != nil {
		c.remoteAddr = ra.String()
	}
	log.Printf("mqtt: connected: remote=%s", c.remoteAddr)

	go c.writeLoop()

	defer func() {
		if err := recover(); err != nil && err != ErrAbortHandler {
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Printf("mqtt: panic serving %v: %v", c.remoteAddr, err)
			log.Printf("%s", buf)
		}
		log.Printf("mqtt: disconnected: clientId=%s, remote=%s", c.ID, c.remoteAddr)
		c.setProtoState(connClosed)
		c.server.unregister(c.ID)
		// Flush what the write loop already has before tearing the
		// socket down, so a final CONNACK/DISCONNECT still gets out.
		c.out.close()
		select {
		case <-c.writeDone:
		case <-time.After(5 * time.Second):
		}
		c.close()
		c.setState(c.rwc, StateClosed, true)
	}()

	ctx, cancel := context.WithCancel(ctx)
	c.cancelCtx = cancel
	defer cancel()

	for {
		c.applyReadDeadline()
		pkt, err := c.readPacket()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("mqtt: read: remote=%s, err=%v", c.remoteAddr, err)
			}
			var ne net.Error
			if c.protoState() == connEstablished && errors.As(err, &ne) && ne.Timeout() {
				c.disconnectWith(packet.ErrKeepAliveTimeout)
			}
			return
		}
		metrics.PacketsReceived.WithLabelValues(packet.Kind[pkt.Kind()]).Inc()
		stat.PacketReceived.Inc()
		if sized, ok := pkt.(interface{ TotalSize() int }); ok {
			stat.ByteReceived.Add(float64(sized.TotalSize()))
		}

		if c.protoState() == connAwaitingConnect {
			connectPkt, ok := pkt.(*packet.CONNECT)
			if !ok {
				c.disconnectWith(packet.ErrProtocolViolationRequireFirstConnect)
				return
			}
			if !c.handleConnect(connectPkt) {
				return
			}
			c.setProtoState(connEstablished)
			c.setState(c.rwc, StateActive, true)
			continue
		}

		if !c.handleEstablished(ctx, pkt) {
			return
		}
		c.setState(c.rwc, StateIdle, true)
	}
}

func (c *conn) applyReadDeadline() {
	ka := c.keepAlive
	if ka == 0 && c.server.Cfg != nil {
		// Before the handshake completes, the server-mandated interval
		// bounds how long we wait for the CONNECT itself.
		ka = c.server.Cfg.KeepAliveSeconds
	}
	if ka == 0 {
		return
	}
	// 1.5x keep-alive grace period, per the keep-alive section of the
	// CONNECT variable header.
	d := time.Duration(ka) * time.Second * 3 / 2
	_ = c.rwc.SetReadDeadline(time.Now().Add(d))
}

func (c *conn) readPacket() (packet.Packet, error) {
	return packet.UnpackLimited(c.rwc, c.server.maxPacketSize())
}

func (c *conn) disconnectWith(reason packet.ReasonCode) {
	disc := packet.NewDISCONNECT(reason)
	if err := c.Send(disc); err != nil {
		log.Printf("mqtt: send disconnect: remote=%s, err=%v", c.remoteAddr, err)
	}
}

// handleConnect runs the CONNECT handshake. It rejects any credential,
// will, or extended-auth field the broker doesn't support, assigns a
// clientId when the client sent none, and replies with CONNACK. It
// returns false when the connection must be torn down.
func (c *conn) handleConnect(pkt *packet.CONNECT) bool {
	reject := func(reason packet.ReasonCode) bool {
		connack := &packet.CONNACK{
			FixedHeader:       &packet.FixedHeader{Kind: CONNACK},
			ConnectReturnCode: reason,
			Props:             &packet.ConnackProps{},
		}
		if err := c.Send(connack); err != nil {
			log.Printf("mqtt: send connack: remote=%s, err=%v", c.remoteAddr, err)
		}
		// 返回 false 让 serve 退出；它的 defer 会先排空队列再关闭连接。
		return false
	}

	if !pkt.ConnectFlags.CleanStart() {
		return reject(packet.ErrImplementationSpecificError)
	}
	if pkt.ConnectFlags.UserNameFlag() || pkt.ConnectFlags.PasswordFlag() {
		return reject(packet.ErrBadUsernameOrPassword)
	}
	if pkt.ConnectFlags.WillFlag() {
		return reject(packet.ErrImplementationSpecificError)
	}
	if pkt.Props != nil && (pkt.Props.AuthenticationMethod != "" || len(pkt.Props.AuthenticationData) != 0) {
		return reject(packet.ErrBadAuthenticationMethod)
	}

	clientID := pkt.ClientID
	assigned := false
	if clientID == "" {
		clientID = idgen.New()
		assigned = true
	}

	c.ID = clientID
	c.keepAlive = pkt.KeepAlive
	if c.server.Cfg != nil && c.server.Cfg.KeepAliveSeconds != 0 {
		c.keepAlive = c.server.Cfg.KeepAliveSeconds
	}

	// Pull the subset of CONNECT properties the broker keeps into client
	// state; MaximumPacketSize is clamped against the
	// server's own configured cap, everything else passes through as-is.
	// UserProperty is accepted but ignored (logged), per the handshake
	// policy; anything not in this list already failed to unpack above.
	if pkt.Props != nil {
		c.session.sessionExpiryInterval = uint32(pkt.Props.SessionExpiryInterval)
		c.session.receiveMax = uint16(pkt.Props.ReceiveMaximum)
		c.session.maxPacketSize = uint32(pkt.Props.MaximumPacketSize)
		c.session.topicAliasMax = uint16(pkt.Props.TopicAliasMaximum)
		c.session.responseInfoRequested = pkt.Props.RequestResponseInformation == 1
		c.session.problemInfoRequested = pkt.Props.RequestProblemInformation == 1
		if len(pkt.Props.UserProperty) != 0 {
			log.Printf("mqtt: ignoring user properties on CONNECT: clientId=%s", clientID)
		}
	}
	if max := c.server.maxPacketSize(); max != 0 && (c.session.maxPacketSize == 0 || c.session.maxPacketSize > max) {
		c.session.maxPacketSize = max
	}

	c.server.register(c)

	connack := &packet.CONNACK{
		FixedHeader:       &packet.FixedHeader{Kind: CONNACK},
		ConnectReturnCode: packet.CodeSuccess,
		Props: &packet.ConnackProps{
			SessionExpiryInterval:           c.session.sessionExpiryInterval,
			ReceiveMaximum:                  c.session.receiveMax,
			MaximumQoS:                      0,
			TopicAliasMaximum:               c.session.topicAliasMax,
			WildcardSubscriptionAvailable:   1,
			SubscriptionIdentifierAvailable: 0,
			SharedSubscriptionAvailable:     0,
			RetainAvailable:                 0,
			ServerKeepAlive:                 c.keepAlive,
		},
	}
	if assigned {
		connack.Props.AssignedClientID = clientID
	}
	if err := c.Send(connack); err != nil {
		log.Printf("mqtt: send connack: remote=%s, err=%v", c.remoteAddr, err)
		return false
	}
	log.Printf("mqtt: established: clientId=%s, remote=%s", c.ID, c.remoteAddr)
	return true
}

// handleEstablished processes one packet received after the handshake.
// CONNECT, PINGREQ, and DISCONNECT are handled locally; PUBLISH and
// SUBSCRIBE (and anything else, which the dispatcher rejects) are
// forwarded to the dispatcher's inbound queue.
func (c *conn) handleEstablished(ctx context.Context, pkt packet.Packet) bool {
	switch p := pkt.(type) {
	case *packet.CONNECT:
		c.disconnectWith(packet.ErrProtocolViolationSecondConnect)
		return false
	case *packet.PINGREQ:
		pong := &packet.PINGRESP{FixedHeader: &packet.FixedHeader{Kind: PINGRESP}}
		if err := c.Send(pong); err != nil {
			log.Printf("mqtt: send pingresp: remote=%s, err=%v", c.remoteAddr, err)
			return false
		}
		return true
	case *packet.DISCONNECT:
		return false
	default:
		_ = p
		// The dispatcher's input channel is bounded; this send blocks
		// when it's full, which is the backpressure mechanism that
		// stalls a fast sender's read loop without stalling anyone
		// else's.
		select {
		case c.server.dispatcher.Incoming <- PacketInfo{SenderID: c.ID, Packet: pkt}:
			return true
		case <-ctx.Done():
			return false
		}
	}
}
