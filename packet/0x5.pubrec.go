package packet

import (
	"bytes"
	"io"
)

// PUBREC 发布收到，QoS 2 第一步 [MQTT-3.5]。
type PUBREC struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *PubrecProperties
}

type PubrecProperties struct {
	ReasonString string
	UserProperty []UserProperty
}

func (pkt *PUBREC) Kind() byte {
	return 0x5
}

func (pkt *PUBREC) String() string {
	return "[0x5]PUBREC"
}

func (pkt *PUBREC) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x5}
	}
	if pkt.Props == nil {
		pkt.Props = &PubrecProperties{}
	}
	return packAck(w, pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props.ReasonString, pkt.Props.UserProperty)
}

func (pkt *PUBREC) Unpack(buf *bytes.Buffer) error {
	packetID, reason, reasonString, userProps, err := unpackAck(ownerPUBREC, buf, validPubackCode)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode = packetID, reason
	pkt.Props = &PubrecProperties{ReasonString: reasonString, UserProperty: userProps}
	return nil
}
