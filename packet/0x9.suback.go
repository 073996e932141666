package packet

import (
	"bytes"
	"io"
)

// SUBACK 订阅确认 [MQTT-3.9]。载荷是与 SUBSCRIBE 的过滤器一一对应的
// 原因码序列。
type SUBACK struct {
	*FixedHeader

	PacketID    uint16
	SubackProps *SubackProperties
	ReasonCode  []ReasonCode
}

func (pkt *SUBACK) Kind() byte {
	return 0x9
}

func (pkt *SUBACK) String() string {
	return "[0x9]SUBACK"
}

// SubackProperties 订阅确认属性 [MQTT-3.9.2.1]。
type SubackProperties struct {
	ReasonString string
	UserProperty []UserProperty
}

func (props *SubackProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packStringProp(buf, PropReasonString, props.ReasonString)
	packUserProps(buf, props.UserProperty)
	return packProps(buf.Bytes())
}

func (props *SubackProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerSUBACK, buf, func(id byte, section *bytes.Buffer) error {
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

// validSubackCode [MQTT-3.9.3]。
func validSubackCode(code uint8) bool {
	switch code {
	case 0x00, 0x01, 0x02, 0x80, 0x83, 0x87, 0x8F, 0x91, 0x97, 0x9E, 0xA1, 0xA2:
		return true
	}
	return false
}

func (pkt *SUBACK) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(pkt.PacketID))
	if pkt.SubackProps == nil {
		pkt.SubackProps = &SubackProperties{}
	}
	props, err := pkt.SubackProps.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)
	for _, code := range pkt.ReasonCode {
		buf.WriteByte(code.Code)
	}

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x9}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *SUBACK) Unpack(buf *bytes.Buffer) error {
	var err error
	if pkt.PacketID, err = readUint16(buf); err != nil {
		return err
	}

	pkt.SubackProps = &SubackProperties{}
	if err := pkt.SubackProps.Unpack(buf); err != nil {
		return err
	}

	for buf.Len() > 0 {
		code, _ := buf.ReadByte()
		if !validSubackCode(code) {
			return ErrMalformedReasonCode
		}
		pkt.ReasonCode = append(pkt.ReasonCode, ReasonCode{Code: code})
	}
	if len(pkt.ReasonCode) == 0 {
		return ErrProtocolViolationInvalidReason
	}
	return nil
}
