package mqtt

import (
	"github.com/golang-io/mqtt/packet"
	"github.com/golang-io/requests"
)

// Options configures a Client. The broker itself is configured through
// internal/config; these knobs only drive the client side.
type Options struct {
	// URL is the broker address, mqtt://host:port.
	URL string

	// ClientID 为空时由服务端分配 (CONNACK AssignedClientIdentifier)。
	ClientID string

	// KeepAlive is the interval, in seconds, offered in CONNECT. The
	// broker's ServerKeepAlive overrides it after the handshake.
	KeepAlive uint16

	Subscriptions []packet.Subscription
}

type Option func(*Options)

func newOptions(opts ...Option) Options {
	options := Options{
		URL:       "mqtt://127.0.0.1:1883",
		ClientID:  "mqtt-" + requests.GenId(),
		KeepAlive: 30,
	}
	for _, o := range opts {
		o(&options)
	}
	return options
}

func URL(url string) Option {
	return func(o *Options) {
		o.URL = url
	}
}

// ClientID sets the clientId sent in CONNECT. An explicit empty string
// asks the broker to assign one.
func ClientID(id string) Option {
	return func(o *Options) {
		o.ClientID = id
	}
}

func KeepAlive(seconds uint16) Option {
	return func(o *Options) {
		o.KeepAlive = seconds
	}
}

func Subscription(subscription ...packet.Subscription) Option {
	return func(o *Options) {
		o.Subscriptions = append(o.Subscriptions, subscription...)
	}
}
