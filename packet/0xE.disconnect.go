package packet

import (
	"bytes"
	"io"
)

// DISCONNECT 断开连接通知 [MQTT-3.14]。
// 短格式: 剩余长度 0 表示原因码 0x00 (正常断开) 且无属性。
type DISCONNECT struct {
	*FixedHeader

	ReasonCode ReasonCode
	Props      *DisconnectProperties
}

// NewDISCONNECT builds the DISCONNECT the broker sends before tearing
// a connection down.
func NewDISCONNECT(reason ReasonCode) *DISCONNECT {
	return &DISCONNECT{
		FixedHeader: &FixedHeader{Kind: 0xE},
		ReasonCode:  reason,
		Props:       &DisconnectProperties{},
	}
}

func (pkt *DISCONNECT) Kind() byte {
	return 0xE
}

func (pkt *DISCONNECT) String() string {
	return "[0xE]DISCONNECT"
}

// validDisconnectCode [MQTT-3.14.2.1]。
func validDisconnectCode(code uint8) bool {
	switch code {
	case 0x00, 0x04, 0x80, 0x81, 0x82, 0x83, 0x87, 0x89, 0x8B, 0x8D, 0x8E,
		0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9A, 0x9B, 0x9C, 0x9D, 0x9E,
		0x9F, 0xA0, 0xA1, 0xA2:
		return true
	}
	return false
}

// DisconnectProperties 断开属性 [MQTT-3.14.2.2]。
type DisconnectProperties struct {
	SessionExpiryInterval uint32
	ReasonString          string
	UserProperty          []UserProperty
	ServerReference       string
}

func (props *DisconnectProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packUint32Prop(buf, PropSessionExpiryInterval, props.SessionExpiryInterval)
	packStringProp(buf, PropReasonString, props.ReasonString)
	packUserProps(buf, props.UserProperty)
	packStringProp(buf, PropServerReference, props.ServerReference)
	return packProps(buf.Bytes())
}

func (props *DisconnectProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerDISCONNECT, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropSessionExpiryInterval:
			props.SessionExpiryInterval, err = readUint32(section)
		case PropReasonString:
			props.ReasonString, err = readString(section)
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		case PropServerReference:
			props.ServerReference, err = readString(section)
		}
		return err
	})
}

func (pkt *DISCONNECT) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte(pkt.ReasonCode.Code)
	if pkt.Props == nil {
		pkt.Props = &DisconnectProperties{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0xE}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *DISCONNECT) Unpack(buf *bytes.Buffer) error {
	if buf.Len() == 0 {
		pkt.ReasonCode = CodeDisconnect
		pkt.Props = &DisconnectProperties{}
		return nil
	}
	code, err := readByte(buf)
	if err != nil {
		return err
	}
	if !validDisconnectCode(code) {
		return ErrMalformedReasonCode
	}
	pkt.ReasonCode = ReasonCode{Code: code}

	pkt.Props = &DisconnectProperties{}
	if buf.Len() == 0 {
		return nil
	}
	return pkt.Props.Unpack(buf)
}
