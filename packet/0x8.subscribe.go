package packet

import (
	"bytes"
	"io"
)

// SUBSCRIBE 订阅请求 [MQTT-3.8]。固定报头标志位是 0b0010。
// 载荷是一个或多个 (主题过滤器, 订阅选项字节)。
type SUBSCRIBE struct {
	*FixedHeader

	PacketID uint16
	Props    *SubscribeProperties

	Subscriptions []Subscription
}

// Subscription is one (filter, options) entry of the payload. The
// options byte [MQTT-3.8.3.1]:
//
//	bit | 7 6      | 5 4             | 3                   | 2        | 1 0
//	    | reserved | retain handling | retain as published | no local | maximum qos
type Subscription struct {
	TopicFilter string

	// MaximumQoS bits 1-0; 0x03 保留，不允许使用。
	MaximumQoS uint8

	// NoLocal bit 2: 不把消息回送给发布它的客户端自己。
	NoLocal uint8

	// RetainAsPublished bit 3: 转发时保持 RETAIN 标志不变。
	RetainAsPublished uint8

	// RetainHandling bits 5-4, 取值 0-2; 0x03 保留，不允许使用。
	RetainHandling uint8
}

func (s *Subscription) String() string {
	return s.TopicFilter
}

// options assembles the subscription options byte.
func (s *Subscription) options() byte {
	return s.MaximumQoS&0x03 | s.NoLocal&0x01<<2 | s.RetainAsPublished&0x01<<3 | s.RetainHandling&0x03<<4
}

func parseSubscription(buf *bytes.Buffer) (Subscription, error) {
	var sub Subscription
	filter, err := readString(buf)
	if err != nil {
		return sub, err
	}
	opts, err := readByte(buf)
	if err != nil {
		return sub, err
	}
	if opts&0xC0 != 0 {
		return sub, ErrProtocolViolationReservedBit
	}
	sub = Subscription{
		TopicFilter:       filter,
		MaximumQoS:        opts & 0x03,
		NoLocal:           opts >> 2 & 0x01,
		RetainAsPublished: opts >> 3 & 0x01,
		RetainHandling:    opts >> 4 & 0x03,
	}
	if sub.MaximumQoS == 3 {
		return sub, ErrProtocolViolationQosOutOfRange
	}
	if sub.RetainHandling == 3 {
		return sub, ErrProtocolViolationRetainHandling
	}
	return sub, nil
}

func (pkt *SUBSCRIBE) Kind() byte {
	return 0x8
}

func (pkt *SUBSCRIBE) String() string {
	return "[0x8]SUBSCRIBE"
}

// SubscribeProperties 订阅属性 [MQTT-3.8.2.1]。
type SubscribeProperties struct {
	SubscriptionIdentifier uint32
	UserProperty           []UserProperty
}

func (props *SubscribeProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	if props.SubscriptionIdentifier != 0 {
		enc, err := encodeLength(props.SubscriptionIdentifier)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(PropSubscriptionIdentifier)
		buf.Write(enc)
	}
	packUserProps(buf, props.UserProperty)
	return packProps(buf.Bytes())
}

func (props *SubscribeProperties) Unpack(buf *bytes.Buffer) error {
	seenSubID := false
	return unpackProps(ownerSUBSCRIBE, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropSubscriptionIdentifier:
			// SUBSCRIBE 里订阅标识符最多一个 [MQTT-3.8.2.1.2]。
			if seenSubID {
				return ErrMalformedProperties
			}
			seenSubID = true
			props.SubscriptionIdentifier, err = decodeLength(section)
			if err == nil && props.SubscriptionIdentifier == 0 {
				return ErrProtocolErr
			}
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		}
		return err
	})
}

func (pkt *SUBSCRIBE) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(pkt.PacketID))
	if pkt.Props == nil {
		pkt.Props = &SubscribeProperties{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)
	for _, sub := range pkt.Subscriptions {
		buf.Write(s2b(sub.TopicFilter))
		buf.WriteByte(sub.options())
	}

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x8, QoS: 1}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *SUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	var err error
	if pkt.PacketID, err = readUint16(buf); err != nil {
		return err
	}
	if pkt.PacketID == 0 {
		return ErrProtocolViolationNoPacketID
	}

	pkt.Props = &SubscribeProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	// 载荷必须至少包含一个过滤器 [MQTT-3.8.3-2]。
	for buf.Len() > 0 {
		sub, err := parseSubscription(buf)
		if err != nil {
			return err
		}
		pkt.Subscriptions = append(pkt.Subscriptions, sub)
	}
	if len(pkt.Subscriptions) == 0 {
		return ErrProtocolViolationNoFilters
	}
	return nil
}
