package packet

import (
	"bytes"
	"io"
)

// validPubrelCode 也适用于 PUBCOMP [MQTT-3.6.2.1]。
func validPubrelCode(code uint8) bool {
	return code == 0x00 || code == 0x92
}

// PUBREL 发布释放，QoS 2 第二步 [MQTT-3.6]。固定报头标志位是 0b0010。
type PUBREL struct {
	*FixedHeader

	PacketID   uint16
	ReasonCode ReasonCode
	Props      *PubrelProperties
}

type PubrelProperties struct {
	ReasonString string
	UserProperty []UserProperty
}

func (pkt *PUBREL) Kind() byte {
	return 0x6
}

func (pkt *PUBREL) String() string {
	return "[0x6]PUBREL"
}

func (pkt *PUBREL) Pack(w io.Writer) error {
	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0x6, QoS: 1}
	}
	if pkt.Props == nil {
		pkt.Props = &PubrelProperties{}
	}
	return packAck(w, pkt.FixedHeader, pkt.PacketID, pkt.ReasonCode, pkt.Props.ReasonString, pkt.Props.UserProperty)
}

func (pkt *PUBREL) Unpack(buf *bytes.Buffer) error {
	packetID, reason, reasonString, userProps, err := unpackAck(ownerPUBREL, buf, validPubrelCode)
	if err != nil {
		return err
	}
	pkt.PacketID, pkt.ReasonCode = packetID, reason
	pkt.Props = &PubrelProperties{ReasonString: reasonString, UserProperty: userProps}
	return nil
}
