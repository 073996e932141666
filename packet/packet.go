// Package packet implements the MQTT v5.0 control packet codec: the
// wire primitives (variable byte integers, length-prefixed UTF-8
// strings and binary data), the typed property table, and one packet
// type per control packet kind. Every packet round-trips: for a
// well-formed value v, Unpack(Pack(v)) == v and the remaining-length
// prefix equals the byte length of the body that follows it.
package packet

import (
	"bytes"
	"io"
)

// Packet 是所有 MQTT 控制报文的共同接口。
type Packet interface {
	// Kind returns the control packet type, byte 1 bits 7-4.
	Kind() byte

	// Unpack parses the packet body — everything after the fixed
	// header — from a buffer holding exactly RemainingLength bytes.
	Unpack(*bytes.Buffer) error

	// Pack serializes the whole packet, fixed header included.
	Pack(io.Writer) error
}

// Unpack reads one control packet from r.
func Unpack(r io.Reader) (Packet, error) {
	return UnpackLimited(r, 0)
}

// UnpackLimited is Unpack with a per-connection receive cap: a control
// packet whose fixed-header remaining-length would bring the total
// packet size (header + body) over maxPacketSize is rejected with
// ErrPacketTooLarge before its body is read, instead of being buffered
// and decoded. maxPacketSize == 0 means no cap.
func UnpackLimited(r io.Reader, maxPacketSize uint32) (Packet, error) {
	fixed := &FixedHeader{}
	if err := fixed.Unpack(r); err != nil {
		return &RESERVED{FixedHeader: fixed}, err
	}
	if maxPacketSize != 0 && uint32(fixed.Size())+fixed.RemainingLength > maxPacketSize {
		return &RESERVED{FixedHeader: fixed}, ErrPacketTooLarge
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	// 报文体整体读入，再按 RemainingLength 裁定解析范围。
	if _, err := buf.ReadFrom(io.LimitReader(r, int64(fixed.RemainingLength))); err != nil {
		return nil, err
	}
	if uint32(buf.Len()) != fixed.RemainingLength {
		return nil, &InsufficientBuffer{Needed: int(fixed.RemainingLength), Available: buf.Len()}
	}

	var pkt Packet
	switch fixed.Kind {
	case 0x1:
		pkt = &CONNECT{FixedHeader: fixed}
	case 0x2:
		pkt = &CONNACK{FixedHeader: fixed}
	case 0x3:
		pkt = &PUBLISH{FixedHeader: fixed}
	case 0x4:
		pkt = &PUBACK{FixedHeader: fixed}
	case 0x5:
		pkt = &PUBREC{FixedHeader: fixed}
	case 0x6:
		pkt = &PUBREL{FixedHeader: fixed}
	case 0x7:
		pkt = &PUBCOMP{FixedHeader: fixed}
	case 0x8:
		pkt = &SUBSCRIBE{FixedHeader: fixed}
	case 0x9:
		pkt = &SUBACK{FixedHeader: fixed}
	case 0xA:
		pkt = &UNSUBSCRIBE{FixedHeader: fixed}
	case 0xB:
		pkt = &UNSUBACK{FixedHeader: fixed}
	case 0xC:
		pkt = &PINGREQ{FixedHeader: fixed}
	case 0xD:
		pkt = &PINGRESP{FixedHeader: fixed}
	case 0xE:
		pkt = &DISCONNECT{FixedHeader: fixed}
	case 0xF:
		pkt = &AUTH{FixedHeader: fixed}
	default:
		return &RESERVED{FixedHeader: fixed}, ErrMalformedPacket
	}
	return pkt, pkt.Unpack(buf)
}
