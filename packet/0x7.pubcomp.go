package packet

import (
	"bytes"
	"io"
)

// PUBCOMP 发布完成，QoS 2 第三步 [MQTT-3.7]。
type PUBCOMP struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *PubcompProperties
}

type PubcompProperties struct {
	ReasonString string
	UserProperty []UserProperty
}

func (pkt *PUBCOMP) Kind() byte {
	return 0x7
}

func (pkt *PUBCOMP) String() string {
	return "[0x7]PUBCOMP"
}

func (pkt *PUBCOMP) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x7}
	}
	if pkt.Props == nil {
		pkt.Props = &PubcompProperties{}
	}
	return packAck(w, pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props.ReasonString, pkt.Props.UserProperty)
}

func (pkt *PUBCOMP) Unpack(buf *bytes.Buffer) error {
	packetID, reason, reasonString, userProps, err := unpackAck(ownerPUBCOMP, buf, validPubrelCode)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode = packetID, reason
	pkt.Props = &PubcompProperties{ReasonString: reasonString, UserProperty: userProps}
	return nil
}
