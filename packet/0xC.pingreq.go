package packet

import (
	"bytes"
	"io"
)

// PINGREQ 心跳请求 [MQTT-3.12]。没有可变报头和载荷，
// 完整报文就是两个字节 0xC0 0x00。
type PINGREQ struct {
	*FixedHeader
}

func (pkt *PINGREQ) Kind() byte {
	return 0xC
}

func (pkt *PINGREQ) String() string {
	return "[0xC]PINGREQ"
}

func (pkt *PINGREQ) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0xC}
	}
	pkt.RemainingLength = 0
	return pkt.FixedHeader.Pack(w)
}

func (pkt *PINGREQ) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedPacket
	}
	return nil
}
