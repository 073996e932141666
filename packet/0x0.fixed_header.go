package packet

import (
	"fmt"
	"io"
)

// FixedHeader is the two-plus-byte header every control packet starts
// with [MQTT-2.1.1]:
//
//	Bit    | 7 6 5 4                  | 3 2 1 0 |
//	byte 1 | MQTT Control Packet type | Flags   |
//	byte 2...: Remaining Length (variable byte integer)
//
// 除 PUBLISH 外，低 4 位是固定值；收到不符的标志必须断开网络连接
// [MQTT-2.2.2-2]。
type FixedHeader struct {
	// Kind is the control packet type, byte 1 bits 7-4.
	Kind byte `json:"Kind,omitempty"`

	// Dup, byte 1 bit 3. PUBLISH only: the packet is a re-delivery.
	Dup uint8 `json:"Dup,omitempty"`

	// QoS, byte 1 bits 2-1. PUBLISH only. 0b11 is a protocol error
	// [MQTT-3.3.1-4].
	QoS uint8 `json:"QoS,omitempty"`

	// Retain, byte 1 bit 0. PUBLISH only.
	Retain uint8 `json:"Retain,omitempty"`

	// RemainingLength is the byte length of everything after itself.
	RemainingLength uint32 `json:"RemainingLength,omitempty"`
}

func (pkt *FixedHeader) String() string {
	return fmt.Sprintf("%s: Len=%d", Kind[pkt.Kind], pkt.RemainingLength)
}

// Size reports the encoded size of the fixed header itself.
func (pkt *FixedHeader) Size() int {
	return 1 + sizeLength(pkt.RemainingLength)
}

// TotalSize reports the full on-wire size of the packet this header
// fronts: header bytes plus RemainingLength.
func (pkt *FixedHeader) TotalSize() int {
	return pkt.Size() + int(pkt.RemainingLength)
}

func (pkt *FixedHeader) Pack(w io.Writer) error {
	b := make([]byte, 1)
	b[0] |= pkt.Kind << 4
	b[0] |= pkt.Dup << 3
	b[0] |= pkt.QoS << 1
	b[0] |= pkt.Retain
	enc, err := encodeLength(pkt.RemainingLength)
	if err != nil {
		return err
	}
	b = append(b, enc...)
	_, err = w.Write(b)
	return err
}

func (pkt *FixedHeader) Unpack(r io.Reader) error {
	b := []uint8{0x00}
	if _, err := r.Read(b); err != nil {
		return err
	}

	pkt.Kind = b[0] >> 4
	pkt.Dup = b[0] & 0b00001000 >> 3
	pkt.QoS = b[0] & 0b00000110 >> 1
	pkt.Retain = b[0] & 0b00000001

	// 每种报文的固定标志位: PUBLISH 的低 4 位是语义标志；
	// PUBREL/SUBSCRIBE/UNSUBSCRIBE 固定 0b0010；其余固定 0b0000。
	switch pkt.Kind {
	case 0x0:
		return ErrMalformedPacket
	case 0x3:
		if pkt.QoS > 2 {
			return ErrProtocolViolationQosOutOfRange
		}
	case 0x6, 0x8, 0xA:
		if pkt.Dup != 0 || pkt.QoS != 1 || pkt.Retain != 0 {
			return ErrMalformedFlags
		}
	default:
		if pkt.Dup != 0 || pkt.QoS != 0 || pkt.Retain != 0 {
			return ErrMalformedFlags
		}
	}

	var err error
	pkt.RemainingLength, err = decodeLength(r)
	return err
}
