package packet

import (
	"bytes"
	"io"
)

// UNSUBSCRIBE 取消订阅 [MQTT-3.10]。固定报头标志位是 0b0010。
// 载荷是一个或多个主题过滤器。
type UNSUBSCRIBE struct {
	*FixedHeader

	PacketID uint16
	Props    *UnsubscribeProperties

	TopicFilters []string
}

func (pkt *UNSUBSCRIBE) Kind() byte {
	return 0xA
}

func (pkt *UNSUBSCRIBE) String() string {
	return "[0xA]UNSUBSCRIBE"
}

// UnsubscribeProperties 只允许用户属性 [MQTT-3.10.2.1]。
type UnsubscribeProperties struct {
	UserProperty []UserProperty
}

func (props *UnsubscribeProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packUserProps(buf, props.UserProperty)
	return packProps(buf.Bytes())
}

func (props *UnsubscribeProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerUNSUBSCRIBE, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		}
		return err
	})
}

func (pkt *UNSUBSCRIBE) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(pkt.PacketID))
	if pkt.Props == nil {
		pkt.Props = &UnsubscribeProperties{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)
	for _, filter := range pkt.TopicFilters {
		buf.Write(s2b(filter))
	}

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0xA, QoS: 1}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *UNSUBSCRIBE) Unpack(buf *bytes.Buffer) error {
	var err error
	if pkt.PacketID, err = readUint16(buf); err != nil {
		return err
	}
	if pkt.PacketID == 0 {
		return ErrProtocolViolationNoPacketID
	}

	pkt.Props = &UnsubscribeProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	for buf.Len() > 0 {
		filter, err := readString(buf)
		if err != nil {
			return err
		}
		pkt.TopicFilters = append(pkt.TopicFilters, filter)
	}
	if len(pkt.TopicFilters) == 0 {
		return ErrProtocolViolationNoFilters
	}
	return nil
}
