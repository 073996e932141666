package packet

import (
	"bytes"
	"io"
)

// RESERVED stands in for a packet whose header failed to decode, so
// the caller still gets the fixed-header fields it managed to read.
type RESERVED struct {
	*FixedHeader
}

func (pkt *RESERVED) Kind() byte {
	return pkt.FixedHeader.Kind
}

func (pkt *RESERVED) Pack(io.Writer) error {
	return nil
}

func (pkt *RESERVED) Unpack(*bytes.Buffer) error {
	return nil
}
