package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"time"

	"github.com/golang-io/mqtt/packet"
	"golang.org/x/sync/errgroup"
)

// A Client is a v5.0 MQTT client over plain TCP. It exists for the
// broker's own tooling: the integration tests, cmd/mqtt-client, and
// the cmd/benchmark load generator all drive the broker through it.
//
// A Client is safe for concurrent use after ConnectAndSubscribe has
// established the connection; SubmitMessage may be called from any
// goroutine.
type Client struct {
	// URL is the broker address, e.g. mqtt://127.0.0.1:1883. Parsed
	// from the URL option at construction.
	URL *url.URL

	conn *conn

	// DialContext optionally replaces the net.Dialer used to reach the
	// broker. Useful for tests that want a net.Pipe instead of TCP.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)

	// Timeout bounds the CONNECT/SUBSCRIBE handshakes. Zero means no
	// timeout beyond ctx.
	Timeout time.Duration

	options Options

	// recv fans incoming packets out by kind; the handshake methods
	// wait on their own kind's channel while unpack keeps reading.
	recv [0xF + 1]chan packet.Packet

	onMessage func(*packet.Message)
}

func New(opts ...Option) *Client {
	options := newOptions(opts...)
	client := &Client{
		options: options,
		conn:    &conn{inFight: newInFight()},
	}

	for i := 1; i <= 0xF; i++ {
		client.recv[i] = make(chan packet.Packet, 1)
	}
	// PUBLISH 的深缓冲: 慢消费方不把 unpack 循环堵死。
	client.recv[PUBLISH] = make(chan packet.Packet, 10000)

	var err error
	if client.URL, err = url.Parse(options.URL); err != nil {
		panic(err)
	}

	log.Printf("[CLIENT_CREATED] clientId=%s, server=%s", options.ClientID, options.URL)
	return client
}

// ID returns the clientId the broker knows this client by — the
// configured one, or the broker-assigned one after CONNACK.
func (c *Client) ID() string {
	return c.conn.ID
}

func (c *Client) OnMessage(fn func(*packet.Message)) {
	c.onMessage = fn
}

func (c *Client) Close() error {
	log.Printf("[CLIENT_CLOSED] clientId=%s", c.conn.ID)
	for i := 1; i <= 0xF; i++ {
		close(c.recv[i])
	}
	return nil
}

func (c *Client) dial(ctx context.Context, scheme, addr string) (net.Conn, error) {
	if c.DialContext != nil {
		con, err := c.DialContext(ctx, "tcp", addr)
		if con == nil && err == nil {
			err = errors.New("mqtt: Client.DialContext hook returned (nil, nil)")
		}
		return con, err
	}
	switch scheme {
	case "mqtt", "tcp", "":
		return (&net.Dialer{Timeout: c.Timeout}).DialContext(ctx, "tcp", addr)
	default:
		return nil, fmt.Errorf("mqtt: unsupported scheme %q", scheme)
	}
}

// unpack is the read half: decode packets off the wire and fan them
// out to recv by kind until the connection dies.
func (c *Client) unpack(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		pkt, err := packet.Unpack(c.conn.rwc)
		if err != nil {
			log.Printf("[UNPACK_ERROR] clientId=%s, err=%v", c.conn.ID, err)
			return err
		}
		c.recv[pkt.Kind()] <- pkt
	}
}

// Connect sends CONNECT and waits for a successful CONNACK. When the
// broker assigned us a clientId (we sent an empty one), adopt it; the
// broker's ServerKeepAlive overrides our configured interval.
func (c *Client) Connect(ctx context.Context) error {
	connect := packet.CONNECT{
		ClientID:  c.options.ClientID,
		KeepAlive: c.options.KeepAlive,
	}
	if err := connect.Pack(c.conn.rwc); err != nil {
		return err
	}
	c.conn.ID = connect.ClientID

	select {
	case <-ctx.Done():
		return ctx.Err()
	case pkt, ok := <-c.recv[CONNACK]:
		if !ok {
			return ctx.Err()
		}
		connack, ok := pkt.(*packet.CONNACK)
		if !ok {
			return errors.New("mqtt: invalid packet received")
		}
		if connack.ConnectReturnCode.Code != 0 {
			return fmt.Errorf("mqtt: connect refused: %v", connack.ConnectReturnCode)
		}
		if connack.Props != nil {
			if connack.Props.AssignedClientID != "" {
				c.conn.ID = connack.Props.AssignedClientID
			}
			if connack.Props.ServerKeepAlive != 0 {
				c.conn.keepAlive = connack.Props.ServerKeepAlive
			}
		}
		log.Printf("client connected: clientId=%s, server=%s", c.conn.ID, c.URL.Host)
	}
	return nil
}

// Subscribe sends the configured subscriptions and waits for SUBACK.
func (c *Client) Subscribe(ctx context.Context) error {
	if len(c.options.Subscriptions) == 0 {
		return nil
	}
	sub := packet.SUBSCRIBE{
		PacketID:      1,
		Subscriptions: c.options.Subscriptions,
	}
	if err := sub.Pack(c.conn.rwc); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case pkt, ok := <-c.recv[SUBACK]:
		if !ok {
			return ctx.Err()
		}
		suback, ok := pkt.(*packet.SUBACK)
		if !ok {
			return errors.New("mqtt: invalid packet received")
		}
		for _, reason := range suback.ReasonCode {
			if reason.Code > 0x02 {
				return fmt.Errorf("mqtt: subscribe refused: %v", reason)
			}
		}
		log.Printf("client subscribed: clientId=%s, filters=%d", c.conn.ID, len(suback.ReasonCode))
	}
	return nil
}

// SubmitMessage publishes one message. QoS comes from the packet
// header default (0); the broker rejects anything else anyway.
func (c *Client) SubmitMessage(message *packet.Message) error {
	if c.conn.rwc == nil {
		return errors.New("mqtt: not connected")
	}
	pub := packet.PUBLISH{Message: message}
	if pub.FixedHeader == nil {
		pub.FixedHeader = &packet.FixedHeader{Kind: PUBLISH}
	}
	if pub.QoS > 0 {
		c.conn.mu.Lock()
		c.conn.PacketID++
		pub.PacketID = c.conn.PacketID
		c.conn.mu.Unlock()
	}
	return pub.Pack(c.conn.rwc)
}

// ServeMessage consumes one inbound packet of interest: a PUBLISH is
// acked per its QoS and handed to the OnMessage callback, a PUBREL
// completes a QoS 2 exchange held in the in-fight table.
func (c *Client) ServeMessage(ctx context.Context) error {
	var pub *packet.PUBLISH
	select {
	case <-ctx.Done():
		return ctx.Err()
	case pkt, ok := <-c.recv[PUBLISH]:
		if !ok {
			return errors.New("mqtt: recv channel closed")
		}
		pub, ok = pkt.(*packet.PUBLISH)
		if !ok {
			return errors.New("mqtt: invalid packet received")
		}
		switch pub.QoS {
		case 0:
		case 1:
			puback := packet.PUBACK{PacketID: pub.PacketID, ReasonCode: packet.CodeSuccess}
			if err := puback.Pack(c.conn.rwc); err != nil {
				return err
			}
		case 2:
			pubrec := packet.PUBREC{PacketID: pub.PacketID, ReasonCode: packet.CodeSuccess}
			if err := pubrec.Pack(c.conn.rwc); err != nil {
				return err
			}
			c.conn.inFight.Put(pub)
			return nil
		}

	case pkt, ok := <-c.recv[PUBREL]:
		if !ok {
			return errors.New("mqtt: recv channel closed")
		}
		pubrel, ok := pkt.(*packet.PUBREL)
		if !ok {
			return errors.New("mqtt: invalid packet received")
		}
		pub, ok = c.conn.inFight.Get(pubrel.PacketID)
		if !ok {
			return errors.New("mqtt: pubrel for unknown packet id")
		}
		pubcomp := packet.PUBCOMP{PacketID: pubrel.PacketID, ReasonCode: packet.CodeSuccess}
		if err := pubcomp.Pack(c.conn.rwc); err != nil {
			return err
		}
	}
	if c.onMessage != nil {
		go c.onMessage(pub.Message)
	}
	return nil
}

func (c *Client) ServeMessageLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := c.ServeMessage(ctx); err != nil {
			return err
		}
	}
}

// ping keeps the connection inside the broker-mandated keep-alive
// window, and drains the PINGRESPs.
func (c *Client) ping(ctx context.Context) error {
	interval := time.Duration(c.options.KeepAlive) * time.Second
	if c.conn.keepAlive != 0 {
		interval = time.Duration(c.conn.keepAlive) * time.Second
	}
	if interval == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingreq := packet.PINGREQ{}
			if err := pingreq.Pack(c.conn.rwc); err != nil {
				return err
			}
		case <-c.recv[PINGRESP]:
		}
	}
}

// ConnectAndSubscribe runs the whole client lifecycle with reconnect:
// dial, CONNECT, SUBSCRIBE, serve messages — retried every few seconds
// until ctx is cancelled.
func (c *Client) ConnectAndSubscribe(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(3 * time.Second)
		}
		if err := c.connectAndSubscribe(ctx); err != nil {
			count++
			if count == 1 || count%10 == 0 {
				log.Printf("client connect and subscribe error[%d]: clientId=%s, err=%v", count, c.options.ClientID, err)
			}
		} else {
			count = 0
		}
	}
}

func (c *Client) connectAndSubscribe(ctx context.Context) error {
	var err error
	if c.conn.rwc, err = c.dial(ctx, c.URL.Scheme, c.URL.Host); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.unpack(ctx)
	})
	group.Go(func() error {
		<-ctx.Done()
		return c.Disconnect()
	})
	group.Go(func() error {
		hctx := ctx
		if c.Timeout > 0 {
			var cancel context.CancelFunc
			hctx, cancel = context.WithTimeout(ctx, c.Timeout)
			defer cancel()
		}
		if err := c.Connect(hctx); err != nil {
			return err
		}
		if err := c.Subscribe(hctx); err != nil {
			return err
		}
		group.Go(func() error { return c.ping(ctx) })
		return c.ServeMessageLoop(ctx)
	})
	return group.Wait()
}

// Disconnect sends the normal-disconnect packet and lets the broker
// close the connection.
func (c *Client) Disconnect() error {
	disconnect := packet.NewDISCONNECT(packet.CodeDisconnect)
	return disconnect.Pack(c.conn.rwc)
}
