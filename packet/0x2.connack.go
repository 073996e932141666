package packet

import (
	"bytes"
	"io"
)

// CONNACK 连接确认 [MQTT-3.2]: 会话存在标志、连接原因码、属性。无载荷。
type CONNACK struct {
	*FixedHeader

	// SessionPresent 可变报头第1字节 bit 0；其余 7 位保留必须为 0
	// [MQTT-3.2.2.1]。本服务端不存储会话，发出时恒为 0。
	SessionPresent uint8

	// ConnectReturnCode 连接原因码 [MQTT-3.2.2.2]。
	ConnectReturnCode ReasonCode

	Props *ConnackProps
}

func (pkt *CONNACK) Kind() byte {
	return 0x2
}

func (pkt *CONNACK) String() string {
	return "[0x2]CONNACK"
}

// ConnackProps CONNACK 可变报头属性 [MQTT-3.2.2.3]。
//
// MaximumQoS、RetainAvailable 和三个 *Available 字段的协议缺省值不是
// 零值，所以这些字段总是显式上线路，见 Pack。
type ConnackProps struct {
	SessionExpiryInterval           uint32
	ReceiveMaximum                  uint16
	MaximumQoS                      uint8
	RetainAvailable                 uint8
	MaximumPacketSize               uint32
	AssignedClientID                string
	TopicAliasMaximum               uint16
	ReasonString                    string
	UserProperty                    []UserProperty
	WildcardSubscriptionAvailable   uint8
	SubscriptionIdentifierAvailable uint8
	SharedSubscriptionAvailable     uint8
	ServerKeepAlive                 uint16
	ResponseInformation             string
	ServerReference                 string
	AuthenticationMethod            string
	AuthenticationData              []byte
}

func (props *ConnackProps) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packUint32Prop(buf, PropSessionExpiryInterval, props.SessionExpiryInterval)
	packUint16Prop(buf, PropReceiveMaximum, props.ReceiveMaximum)
	buf.WriteByte(PropMaximumQoS)
	buf.WriteByte(props.MaximumQoS)
	buf.WriteByte(PropRetainAvailable)
	buf.WriteByte(props.RetainAvailable)
	packUint32Prop(buf, PropMaximumPacketSize, props.MaximumPacketSize)
	packStringProp(buf, PropAssignedClientIdentifier, props.AssignedClientID)
	packUint16Prop(buf, PropTopicAliasMaximum, props.TopicAliasMaximum)
	packStringProp(buf, PropReasonString, props.ReasonString)
	packUserProps(buf, props.UserProperty)
	buf.WriteByte(PropWildcardSubscriptionAvailable)
	buf.WriteByte(props.WildcardSubscriptionAvailable)
	buf.WriteByte(PropSubscriptionIdentifierAvailable)
	buf.WriteByte(props.SubscriptionIdentifierAvailable)
	buf.WriteByte(PropSharedSubscriptionAvailable)
	buf.WriteByte(props.SharedSubscriptionAvailable)
	packUint16Prop(buf, PropServerKeepAlive, props.ServerKeepAlive)
	packStringProp(buf, PropResponseInformation, props.ResponseInformation)
	packStringProp(buf, PropServerReference, props.ServerReference)
	packStringProp(buf, PropAuthenticationMethod, props.AuthenticationMethod)
	packBinaryProp(buf, PropAuthenticationData, props.AuthenticationData)
	return packProps(buf.Bytes())
}

func (props *ConnackProps) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerCONNACK, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropSessionExpiryInterval:
			props.SessionExpiryInterval, err = readUint32(section)
		case PropReceiveMaximum:
			props.ReceiveMaximum, err = readUint16(section)
		case PropMaximumQoS:
			props.MaximumQoS, err = readByte(section)
			if err == nil && props.MaximumQoS > 1 {
				return ErrProtocolErr
			}
		case PropRetainAvailable:
			props.RetainAvailable, err = readByte(section)
		case PropMaximumPacketSize:
			props.MaximumPacketSize, err = readUint32(section)
		case PropAssignedClientIdentifier:
			props.AssignedClientID, err = readString(section)
		case PropTopicAliasMaximum:
			props.TopicAliasMaximum, err = readUint16(section)
		case PropReasonString:
			props.ReasonString, err = readString(section)
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		case PropWildcardSubscriptionAvailable:
			props.WildcardSubscriptionAvailable, err = readByte(section)
		case PropSubscriptionIdentifierAvailable:
			props.SubscriptionIdentifierAvailable, err = readByte(section)
		case PropSharedSubscriptionAvailable:
			props.SharedSubscriptionAvailable, err = readByte(section)
		case PropServerKeepAlive:
			props.ServerKeepAlive, err = readUint16(section)
		case PropResponseInformation:
			props.ResponseInformation, err = readString(section)
		case PropServerReference:
			props.ServerReference, err = readString(section)
		case PropAuthenticationMethod:
			props.AuthenticationMethod, err = readString(section)
		case PropAuthenticationData:
			props.AuthenticationData, err = readBinary(section)
		}
		return err
	})
}

func (pkt *CONNACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte(pkt.SessionPresent & 0x01)
	buf.WriteByte(pkt.ConnectReturnCode.Code)

	if pkt.Props == nil {
		pkt.Props = &ConnackProps{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x2}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *CONNACK) Unpack(buf *bytes.Buffer) error {
	ack, err := readByte(buf)
	if err != nil {
		return err
	}
	if ack&0xFE != 0 {
		return ErrMalformedSessionPresent
	}
	pkt.SessionPresent = ack & 0x01

	code, err := readByte(buf)
	if err != nil {
		return err
	}
	pkt.ConnectReturnCode = ReasonCode{Code: code}

	pkt.Props = &ConnackProps{}
	return pkt.Props.Unpack(buf)
}
