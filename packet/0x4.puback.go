package packet

import (
	"bytes"
	"io"
)

// ack 报文 (PUBACK/PUBREC/PUBREL/PUBCOMP) 共享同一套体格式 [MQTT-3.4]:
// 报文标识符、原因码、属性。短格式: 剩余长度 2 表示原因码 0x00 且无属性，
// 剩余长度 3 表示有原因码无属性。属性只有 ReasonString 和 UserProperty。

func packAck(w io.Writer, fixed *FixedHeader, packetID uint16, reason ReasonCode, reasonString string, userProps []UserProperty) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.Write(i2b(packetID))
	buf.WriteByte(reason.Code)

	props := GetBuffer()
	defer PutBuffer(props)
	packStringProp(props, PropReasonString, reasonString)
	packUserProps(props, userProps)
	section, err := packProps(props.Bytes())
	if err != nil {
		return err
	}
	buf.Write(section)

	fixed.RemainingLength = uint32(buf.Len())
	if err := fixed.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func unpackAck(owner uint16, buf *bytes.Buffer, valid func(uint8) bool) (packetID uint16, reason ReasonCode, reasonString string, userProps []UserProperty, err error) {
	if packetID, err = readUint16(buf); err != nil {
		return
	}
	if buf.Len() == 0 { // 短格式: 只有报文标识符
		reason = CodeSuccess
		return
	}
	var code byte
	if code, err = readByte(buf); err != nil {
		return
	}
	if !valid(code) {
		err = ErrMalformedReasonCode
		return
	}
	reason = ReasonCode{Code: code}
	if buf.Len() == 0 { // 短格式: 无属性段
		return
	}
	err = unpackProps(owner, buf, func(id byte, section *bytes.Buffer) error {
		var perr error
		switch id {
		case PropReasonString:
			reasonString, perr = readString(section)
		case PropUserProperty:
			var name, value string
			if name, value, perr = readStringPair(section); perr == nil {
				userProps = append(userProps, UserProperty{Name: name, Value: value})
			}
		}
		return perr
	})
	return
}

// validPubackCode 也适用于 PUBREC [MQTT-3.4.2.1]。
func validPubackCode(code uint8) bool {
	switch code {
	case 0x00, 0x10, 0x80, 0x83, 0x87, 0x90, 0x91, 0x97, 0x99:
		return true
	}
	return false
}

// PUBACK 发布确认，QoS 1 的应答 [MQTT-3.4]。
type PUBACK struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *PubackProperties
}

type PubackProperties struct {
	ReasonString string
	UserProperty []UserProperty
}

func (pkt *PUBACK) Kind() byte {
	return 0x4
}

func (pkt *PUBACK) String() string {
	return "[0x4]PUBACK"
}

func (pkt *PUBACK) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x4}
	}
	if pkt.Props == nil {
		pkt.Props = &PubackProperties{}
	}
	return packAck(w, pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props.ReasonString, pkt.Props.UserProperty)
}

func (pkt *PUBACK) Unpack(buf *bytes.Buffer) error {
	packetID, reason, reasonString, userProps, err := unpackAck(ownerPUBACK, buf, validPubackCode)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode = packetID, reason
	pkt.Props = &PubackProperties{ReasonString: reasonString, UserProperty: userProps}
	return nil
}
