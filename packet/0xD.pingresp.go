package packet

import (
	"bytes"
	"io"
)

// PINGRESP 心跳响应 [MQTT-3.13]。完整报文就是两个字节 0xD0 0x00。
type PINGRESP struct {
	*FixedHeader
}

func (pkt *PINGRESP) Kind() byte {
	return 0xD
}

func (pkt *PINGRESP) String() string {
	return "[0xD]PINGRESP"
}

func (pkt *PINGRESP) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0xD}
	}
	pkt.RemainingLength = 0
	return pkt.FixedHeader.Pack(w)
}

func (pkt *PINGRESP) Unpack(buf *bytes.Buffer) error {
	if buf.Len() != 0 {
		return ErrMalformedPacket
	}
	return nil
}
