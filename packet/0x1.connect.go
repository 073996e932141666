package packet

import (
	"bytes"
	"io"
)

// NAME 协议名，length-prefixed "MQTT" [MQTT-3.1.2.1]。
var NAME = []byte{0x00, 0x04, 'M', 'Q', 'T', 'T'}

// ConnectFlags 连接标志 [MQTT-3.1.2.2]:
//
//	bit | 7        | 6        | 5           | 4 3      | 2    | 1           | 0
//	    | username | password | will retain | will qos | will | clean start | reserved(0)
type ConnectFlags uint8

func (f ConnectFlags) UserNameFlag() bool { return f&0x80 != 0 }
func (f ConnectFlags) PasswordFlag() bool { return f&0x40 != 0 }
func (f ConnectFlags) WillRetain() bool   { return f&0x20 != 0 }
func (f ConnectFlags) WillQoS() uint8     { return uint8(f&0x18) >> 3 }
func (f ConnectFlags) WillFlag() bool     { return f&0x04 != 0 }
func (f ConnectFlags) CleanStart() bool   { return f&0x02 != 0 }
func (f ConnectFlags) Reserved() bool     { return f&0x01 != 0 }

// validate enforces the flag invariants: bit 0 reserved, will qos 0b11
// forbidden, will qos/retain only with the will flag set.
func (f ConnectFlags) validate() error {
	if f.Reserved() {
		return ErrProtocolViolationReservedBit
	}
	if f.WillQoS() == 3 {
		return ErrMalformedQos
	}
	if !f.WillFlag() && (f.WillQoS() != 0 || f.WillRetain()) {
		return ErrProtocolViolationWillFlagSurplusRetain
	}
	return nil
}

// ConnectProperties CONNECT 可变报头属性 [MQTT-3.1.2.11]。
type ConnectProperties struct {
	SessionExpiryInterval      uint32
	ReceiveMaximum             uint16
	MaximumPacketSize          uint32
	TopicAliasMaximum          uint16
	RequestResponseInformation uint8
	RequestProblemInformation  uint8
	UserProperty               []UserProperty
	AuthenticationMethod       string
	AuthenticationData         []byte
}

func (props *ConnectProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packUint32Prop(buf, PropSessionExpiryInterval, props.SessionExpiryInterval)
	packUint16Prop(buf, PropReceiveMaximum, props.ReceiveMaximum)
	packUint32Prop(buf, PropMaximumPacketSize, props.MaximumPacketSize)
	packUint16Prop(buf, PropTopicAliasMaximum, props.TopicAliasMaximum)
	packByteProp(buf, PropRequestResponseInformation, props.RequestResponseInformation)
	packByteProp(buf, PropRequestProblemInformation, props.RequestProblemInformation)
	packUserProps(buf, props.UserProperty)
	packStringProp(buf, PropAuthenticationMethod, props.AuthenticationMethod)
	packBinaryProp(buf, PropAuthenticationData, props.AuthenticationData)
	return packProps(buf.Bytes())
}

func (props *ConnectProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerCONNECT, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropSessionExpiryInterval:
			props.SessionExpiryInterval, err = readUint32(section)
		case PropReceiveMaximum:
			props.ReceiveMaximum, err = readUint16(section)
		case PropMaximumPacketSize:
			props.MaximumPacketSize, err = readUint32(section)
		case PropTopicAliasMaximum:
			props.TopicAliasMaximum, err = readUint16(section)
		case PropRequestResponseInformation:
			props.RequestResponseInformation, err = readByte(section)
		case PropRequestProblemInformation:
			props.RequestProblemInformation, err = readByte(section)
			if err == nil && props.RequestProblemInformation > 1 {
				return ErrProtocolErr
			}
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		case PropAuthenticationMethod:
			props.AuthenticationMethod, err = readString(section)
		case PropAuthenticationData:
			props.AuthenticationData, err = readBinary(section)
		}
		return err
	})
}

// WillProperties 遗嘱属性 [MQTT-3.1.3.2]。
type WillProperties struct {
	WillDelayInterval      uint32
	PayloadFormatIndicator uint8
	MessageExpiryInterval  uint32
	ContentType            string
	ResponseTopic          string
	CorrelationData        []byte
	UserProperty           []UserProperty
}

func (props *WillProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packUint32Prop(buf, PropWillDelayInterval, props.WillDelayInterval)
	packByteProp(buf, PropPayloadFormatIndicator, props.PayloadFormatIndicator)
	packUint32Prop(buf, PropMessageExpiryInterval, props.MessageExpiryInterval)
	packStringProp(buf, PropContentType, props.ContentType)
	packStringProp(buf, PropResponseTopic, props.ResponseTopic)
	packBinaryProp(buf, PropCorrelationData, props.CorrelationData)
	packUserProps(buf, props.UserProperty)
	return packProps(buf.Bytes())
}

func (props *WillProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerWill, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropWillDelayInterval:
			props.WillDelayInterval, err = readUint32(section)
		case PropPayloadFormatIndicator:
			props.PayloadFormatIndicator, err = readByte(section)
		case PropMessageExpiryInterval:
			props.MessageExpiryInterval, err = readUint32(section)
		case PropContentType:
			props.ContentType, err = readString(section)
		case PropResponseTopic:
			props.ResponseTopic, err = readString(section)
		case PropCorrelationData:
			props.CorrelationData, err = readBinary(section)
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		}
		return err
	})
}

// CONNECT 客户端请求连接 [MQTT-3.1]。
//
// 可变报头: 协议名 "MQTT"、协议级别(必须是5)、连接标志、保持连接、属性。
// 载荷顺序固定: 客户端标识符、遗嘱属性/主题/载荷(WillFlag=1 时)、
// 用户名(UserNameFlag=1 时)、密码(PasswordFlag=1 时)。
type CONNECT struct {
	*FixedHeader

	// Version is the protocol level byte from the variable header.
	// Anything other than 5 fails to unpack.
	Version byte

	ConnectFlags ConnectFlags
	KeepAlive    uint16
	Props        *ConnectProperties

	ClientID       string
	WillProperties *WillProperties
	WillTopic      string
	WillPayload    []byte
	Username       string
	Password       string
}

func (pkt *CONNECT) Kind() byte {
	return 0x1
}

func (pkt *CONNECT) String() string {
	return "[0x1]CONNECT"
}

// deriveFlags rebuilds the connect-flags byte from the payload fields,
// carrying over the will qos/retain bits and the clean-start bit that
// were set on the struct. A zero ConnectFlags means clean start on.
func (pkt *CONNECT) deriveFlags() ConnectFlags {
	flags := uint8(0)
	flags |= s2i(pkt.Username) << 7
	flags |= s2i(pkt.Password) << 6
	if pkt.WillTopic != "" || len(pkt.WillPayload) != 0 {
		flags |= 1 << 2
		flags |= uint8(pkt.ConnectFlags) & 0x38 // will retain + will qos
	}
	if pkt.ConnectFlags == 0 || pkt.ConnectFlags.CleanStart() {
		flags |= 1 << 1
	}
	return ConnectFlags(flags)
}

func (pkt *CONNECT) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(NAME)
	if pkt.Version == 0 {
		pkt.Version = VERSION500
	}
	buf.WriteByte(pkt.Version)

	pkt.ConnectFlags = pkt.deriveFlags()
	buf.WriteByte(byte(pkt.ConnectFlags))
	buf.Write(i2b(pkt.KeepAlive))

	if pkt.Props == nil {
		pkt.Props = &ConnectProperties{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)

	buf.Write(s2b(pkt.ClientID))
	if pkt.ConnectFlags.WillFlag() {
		if pkt.WillProperties == nil {
			pkt.WillProperties = &WillProperties{}
		}
		will, err := pkt.WillProperties.Pack()
		if err != nil {
			return err
		}
		buf.Write(will)
		buf.Write(s2b(pkt.WillTopic))
		buf.Write(s2b(pkt.WillPayload))
	}
	if pkt.ConnectFlags.UserNameFlag() {
		buf.Write(s2b(pkt.Username))
	}
	if pkt.ConnectFlags.PasswordFlag() {
		buf.Write(s2b(pkt.Password))
	}

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x1}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *CONNECT) Unpack(buf *bytes.Buffer) error {
	if buf.Len() < len(NAME) || !bytes.Equal(buf.Next(len(NAME)), NAME) {
		return ErrMalformedProtocolName
	}

	version, err := readByte(buf)
	if err != nil {
		return err
	}
	if version != VERSION500 {
		return ErrUnsupportedProtocolVersion
	}
	pkt.Version = version

	flags, err := readByte(buf)
	if err != nil {
		return err
	}
	pkt.ConnectFlags = ConnectFlags(flags)
	if err := pkt.ConnectFlags.validate(); err != nil {
		return err
	}

	if pkt.KeepAlive, err = readUint16(buf); err != nil {
		return err
	}

	pkt.Props = &ConnectProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	if pkt.ClientID, err = readString(buf); err != nil {
		return err
	}
	if pkt.ConnectFlags.WillFlag() {
		pkt.WillProperties = &WillProperties{}
		if err := pkt.WillProperties.Unpack(buf); err != nil {
			return ErrMalformedWillProperties
		}
		if pkt.WillTopic, err = readString(buf); err != nil {
			return ErrMalformedWillTopic
		}
		if pkt.WillPayload, err = readBinary(buf); err != nil {
			return ErrMalformedWillPayload
		}
	}
	if pkt.ConnectFlags.UserNameFlag() {
		if pkt.Username, err = readString(buf); err != nil {
			return ErrProtocolViolationFlagNoUsername
		}
	}
	if pkt.ConnectFlags.PasswordFlag() {
		// 密码是二进制数据 [MQTT-3.1.3.6]，不做 UTF-8 校验。
		pw, err := readBinary(buf)
		if err != nil {
			return ErrProtocolViolationFlagNoPassword
		}
		pkt.Password = string(pw)
	}

	// 载荷是定序的，解析完后必须正好耗尽 RemainingLength。
	if buf.Len() != 0 {
		return ErrMalformedPacket
	}
	return nil
}
