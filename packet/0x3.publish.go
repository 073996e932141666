package packet

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// PUBLISH 发布消息 [MQTT-3.3]。
//
// 固定报头低 4 位是语义标志: bit3 DUP、bits2-1 QoS、bit0 RETAIN。
// 可变报头: 主题名、报文标识符(QoS>0 时)、属性。载荷是剩余的全部字节。
type PUBLISH struct {
	*FixedHeader

	// PacketID 只在 QoS > 0 时出现，且必须非零 [MQTT-2.3.1-1]。
	PacketID uint16 `json:"PacketID,omitempty"`

	Message *Message `json:"message,omitempty"`

	Props *PublishProperties `json:"properties,omitempty"`
}

// Message is the application payload of a PUBLISH: the topic the
// message was published to and its content bytes.
type Message struct {
	TopicName string `json:"TopicName,omitempty"`
	Content   []byte `json:"Content,omitempty"`
}

func (m *Message) String() string {
	return fmt.Sprintf("topic=%s, size=%d", m.TopicName, len(m.Content))
}

func (pkt *PUBLISH) Kind() byte {
	return 0x3
}

func (pkt *PUBLISH) String() string {
	return "[0x3]PUBLISH"
}

// PublishProperties PUBLISH 属性 [MQTT-3.3.2.3]。SubscriptionIdentifier
// 在 PUBLISH 里可以出现多次(服务端把多个匹配订阅合并转发时)。
type PublishProperties struct {
	PayloadFormatIndicator uint8
	MessageExpiryInterval  uint32
	TopicAlias             uint16
	ResponseTopic          string
	CorrelationData        []byte
	UserProperty           []UserProperty
	SubscriptionIdentifier []uint32
	ContentType            string
}

func (props *PublishProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packByteProp(buf, PropPayloadFormatIndicator, props.PayloadFormatIndicator)
	packUint32Prop(buf, PropMessageExpiryInterval, props.MessageExpiryInterval)
	packUint16Prop(buf, PropTopicAlias, props.TopicAlias)
	packStringProp(buf, PropResponseTopic, props.ResponseTopic)
	packBinaryProp(buf, PropCorrelationData, props.CorrelationData)
	packUserProps(buf, props.UserProperty)
	for _, id := range props.SubscriptionIdentifier {
		enc, err := encodeLength(id)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(PropSubscriptionIdentifier)
		buf.Write(enc)
	}
	packStringProp(buf, PropContentType, props.ContentType)
	return packProps(buf.Bytes())
}

func (props *PublishProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerPUBLISH, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropPayloadFormatIndicator:
			props.PayloadFormatIndicator, err = readByte(section)
		case PropMessageExpiryInterval:
			props.MessageExpiryInterval, err = readUint32(section)
		case PropTopicAlias:
			props.TopicAlias, err = readUint16(section)
		case PropResponseTopic:
			props.ResponseTopic, err = readString(section)
		case PropCorrelationData:
			props.CorrelationData, err = readBinary(section)
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		case PropSubscriptionIdentifier:
			var sid uint32
			if sid, err = decodeLength(section); err == nil {
				props.SubscriptionIdentifier = append(props.SubscriptionIdentifier, sid)
			}
		case PropContentType:
			props.ContentType, err = readString(section)
		}
		return err
	})
}

func (pkt *PUBLISH) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x3}
	}
	// QoS 两位同时置 1 是协议错误 [MQTT-3.3.1-4]。
	if pkt.QoS == 3 {
		return ErrProtocolViolationQosOutOfRange
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	if pkt.Message == nil {
		pkt.Message = &Message{}
	}
	buf.Write(s2b(pkt.Message.TopicName))
	if pkt.QoS > 0 {
		buf.Write(i2b(pkt.PacketID))
	}
	if pkt.Props == nil {
		pkt.Props = &PublishProperties{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)
	buf.Write(pkt.Message.Content)

	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *PUBLISH) Unpack(buf *bytes.Buffer) error {
	topic, err := readString(buf)
	if err != nil {
		return err
	}
	// 发布主题不能带通配符 [MQTT-3.3.2-2]，也不能为空(主题别名不支持)。
	if topic == "" {
		return ErrMalformedTopic
	}
	if strings.ContainsAny(topic, "+#") {
		return ErrProtocolViolationSurplusWildcard
	}

	if pkt.QoS > 0 {
		if pkt.PacketID, err = readUint16(buf); err != nil {
			return err
		}
		if pkt.PacketID == 0 {
			return ErrProtocolViolationNoPacketID
		}
	}

	pkt.Props = &PublishProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	content := make([]byte, buf.Len())
	copy(content, buf.Next(buf.Len()))
	pkt.Message = &Message{TopicName: topic, Content: content}
	return nil
}
