package packet

import (
	"bytes"
	"io"
)

// UNSUBACK 取消订阅确认 [MQTT-3.11]。载荷是与 UNSUBSCRIBE 的过滤器
// 一一对应的原因码序列。
type UNSUBACK struct {
	*FixedHeader

	PacketID uint16
	Props    *UnsubackProperties

	ReasonCode []ReasonCode
}

func (pkt *UNSUBACK) Kind() byte {
	return 0xB
}

func (pkt *UNSUBACK) String() string {
	return "[0xB]UNSUBACK"
}

type UnsubackProperties struct {
	ReasonString string
	UserProperty []UserProperty
}

func (props *UnsubackProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packStringProp(buf, PropReasonString, props.ReasonString)
	packUserProps(buf, props.UserProperty)
	return packProps(buf.Bytes())
}

func (props *UnsubackProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerUNSUBACK, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropReasonString:
			props.ReasonString, err = readString(section)
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		}
		return err
	})
}

// validUnsubackCode [MQTT-3.11.3]。
func validUnsubackCode(code uint8) bool {
	switch code {
	case 0x00, 0x11, 0x80, 0x83, 0x87, 0x8F, 0x91:
		return true
	}
	return false
}

func (pkt *UNSUBACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(pkt.PacketID))
	if pkt.Props == nil {
		pkt.Props = &UnsubackProperties{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)
	for _, code := range pkt.ReasonCode {
		buf.WriteByte(code.Code)
	}

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0xB}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *UNSUBACK) Unpack(buf *bytes.Buffer) error {
	var err error
	if pkt.PacketID, err = readUint16(buf); err != nil {
		return err
	}

	pkt.Props = &UnsubackProperties{}
	if err := pkt.Props.Unpack(buf); err != nil {
		return err
	}

	for buf.Len() > 0 {
		code, _ := buf.ReadByte()
		if !validUnsubackCode(code) {
			return ErrMalformedReasonCode
		}
		pkt.ReasonCode = append(pkt.ReasonCode, ReasonCode{Code: code})
	}
	if len(pkt.ReasonCode) == 0 {
		return ErrProtocolViolationInvalidReason
	}
	return nil
}
