package packet

import (
	"bytes"
)

// 属性标识符 [MQTT-2.2.2.2]。在线路上以 variable byte integer 编码。
const (
	PropPayloadFormatIndicator          = 0x01
	PropMessageExpiryInterval           = 0x02
	PropContentType                     = 0x03
	PropResponseTopic                   = 0x08
	PropCorrelationData                 = 0x09
	PropSubscriptionIdentifier          = 0x0B
	PropSessionExpiryInterval           = 0x11
	PropAssignedClientIdentifier        = 0x12
	PropServerKeepAlive                 = 0x13
	PropAuthenticationMethod            = 0x15
	PropAuthenticationData              = 0x16
	PropRequestProblemInformation       = 0x17
	PropWillDelayInterval               = 0x18
	PropRequestResponseInformation      = 0x19
	PropResponseInformation             = 0x1A
	PropServerReference                 = 0x1C
	PropReasonString                    = 0x1F
	PropReceiveMaximum                  = 0x21
	PropTopicAliasMaximum               = 0x22
	PropTopicAlias                      = 0x23
	PropMaximumQoS                      = 0x24
	PropRetainAvailable                 = 0x25
	PropUserProperty                    = 0x26
	PropMaximumPacketSize               = 0x27
	PropWildcardSubscriptionAvailable   = 0x28
	PropSubscriptionIdentifierAvailable = 0x29
	PropSharedSubscriptionAvailable     = 0x2A
)

// 每个属性只允许出现在固定的一组报文里。owner 掩码按报文类型编号置位；
// 遗嘱属性不是独立报文，占用 0x0 (RESERVED 在线路上不可能成为 owner)。
const (
	ownerWill        uint16 = 1 << 0x0
	ownerCONNECT     uint16 = 1 << 0x1
	ownerCONNACK     uint16 = 1 << 0x2
	ownerPUBLISH     uint16 = 1 << 0x3
	ownerPUBACK      uint16 = 1 << 0x4
	ownerPUBREC      uint16 = 1 << 0x5
	ownerPUBREL      uint16 = 1 << 0x6
	ownerPUBCOMP     uint16 = 1 << 0x7
	ownerSUBSCRIBE   uint16 = 1 << 0x8
	ownerSUBACK      uint16 = 1 << 0x9
	ownerUNSUBSCRIBE uint16 = 1 << 0xA
	ownerUNSUBACK    uint16 = 1 << 0xB
	ownerDISCONNECT  uint16 = 1 << 0xE
	ownerAUTH        uint16 = 1 << 0xF

	ownerAcks = ownerPUBACK | ownerPUBREC | ownerPUBREL | ownerPUBCOMP
	ownerAll  = ownerWill | ownerCONNECT | ownerCONNACK | ownerPUBLISH | ownerAcks |
		ownerSUBSCRIBE | ownerSUBACK | ownerUNSUBSCRIBE | ownerUNSUBACK | ownerDISCONNECT | ownerAUTH
)

// propType is the wire shape of a property value.
type propType uint8

const (
	typeByte propType = iota
	typeUint16
	typeUint32
	typeVBI
	typeString
	typeBinary
	typeStringPair
)

// propDesc is the static descriptor of one property: which packet
// kinds may carry it, how its value is encoded, and whether it may
// appear more than once.
type propDesc struct {
	owners   uint16
	vtype    propType
	multiple bool
}

var propTable = map[byte]propDesc{
	PropPayloadFormatIndicator:          {ownerPUBLISH | ownerWill, typeByte, false},
	PropMessageExpiryInterval:           {ownerPUBLISH | ownerWill, typeUint32, false},
	PropContentType:                     {ownerPUBLISH | ownerWill, typeString, false},
	PropResponseTopic:                   {ownerPUBLISH | ownerWill, typeString, false},
	PropCorrelationData:                 {ownerPUBLISH | ownerWill, typeBinary, false},
	PropSubscriptionIdentifier:          {ownerPUBLISH | ownerSUBSCRIBE, typeVBI, true},
	PropSessionExpiryInterval:           {ownerCONNECT | ownerCONNACK | ownerDISCONNECT, typeUint32, false},
	PropAssignedClientIdentifier:        {ownerCONNACK, typeString, false},
	PropServerKeepAlive:                 {ownerCONNACK, typeUint16, false},
	PropAuthenticationMethod:            {ownerCONNECT | ownerCONNACK | ownerAUTH, typeString, false},
	PropAuthenticationData:              {ownerCONNECT | ownerCONNACK | ownerAUTH, typeBinary, false},
	PropRequestProblemInformation:       {ownerCONNECT, typeByte, false},
	PropWillDelayInterval:               {ownerWill, typeUint32, false},
	PropRequestResponseInformation:      {ownerCONNECT, typeByte, false},
	PropResponseInformation:             {ownerCONNACK, typeString, false},
	PropServerReference:                 {ownerCONNACK | ownerDISCONNECT, typeString, false},
	PropReasonString:                    {ownerCONNACK | ownerAcks | ownerSUBACK | ownerUNSUBACK | ownerDISCONNECT | ownerAUTH, typeString, false},
	PropReceiveMaximum:                  {ownerCONNECT | ownerCONNACK, typeUint16, false},
	PropTopicAliasMaximum:               {ownerCONNECT | ownerCONNACK, typeUint16, false},
	PropTopicAlias:                      {ownerPUBLISH, typeUint16, false},
	PropMaximumQoS:                      {ownerCONNACK, typeByte, false},
	PropRetainAvailable:                 {ownerCONNACK, typeByte, false},
	PropUserProperty:                    {ownerAll, typeStringPair, true},
	PropMaximumPacketSize:               {ownerCONNECT | ownerCONNACK, typeUint32, false},
	PropWildcardSubscriptionAvailable:   {ownerCONNACK, typeByte, false},
	PropSubscriptionIdentifierAvailable: {ownerCONNACK, typeByte, false},
	PropSharedSubscriptionAvailable:     {ownerCONNACK, typeByte, false},
}

// validOwner reports whether property id may appear in a packet of the
// given kind's owner bit.
func validOwner(id byte, owner uint16) bool {
	desc, ok := propTable[id]
	return ok && desc.owners&owner != 0
}

// UserProperty 用户属性 (0x26)：名值对，可重复出现。
type UserProperty struct {
	Name  string
	Value string
}

// unpackProps decodes one property section: a variable byte integer
// length followed by exactly that many bytes of (id, value) pairs.
// Each id is checked against the static descriptor table — unknown id
// or wrong owner is ErrMalformedBadProperty, a repeated single-valued
// property ErrMalformedProperties — before apply is handed the section to read the
// typed value from.
func unpackProps(owner uint16, buf *bytes.Buffer, apply func(id byte, section *bytes.Buffer) error) error {
	n, err := decodeLength(buf)
	if err != nil {
		return err
	}
	if buf.Len() < int(n) {
		return &InsufficientBuffer{Needed: int(n), Available: buf.Len()}
	}
	section := bytes.NewBuffer(buf.Next(int(n)))

	var seen [0x2B]bool
	for section.Len() > 0 {
		id, err := decodeLength(section)
		if err != nil {
			return ErrMalformedProperties
		}
		if id >= uint32(len(seen)) {
			return ErrMalformedBadProperty
		}
		desc, ok := propTable[byte(id)]
		if !ok || desc.owners&owner == 0 {
			return ErrMalformedBadProperty
		}
		if !desc.multiple {
			if seen[id] {
				return ErrMalformedProperties
			}
			seen[id] = true
		}
		if err := apply(byte(id), section); err != nil {
			return err
		}
	}
	return nil
}

// packProps prefixes an assembled property body with its length. The
// result is the full on-wire property section.
func packProps(body []byte) ([]byte, error) {
	n, err := encodeLength(len(body))
	if err != nil {
		return nil, err
	}
	return append(n, body...), nil
}

// 下面是属性体的序列化小工具。零值不上线路：这些函数把 Go 零值当作
// "未设置"。CONNACK 里协议缺省值非零的 MaximumQoS、RetainAvailable 和
// 三个 *Available 不经过这里，由 ConnackProps.Pack 直接写出。

func packByteProp(buf *bytes.Buffer, id byte, v uint8) {
	if v == 0 {
		return
	}
	buf.WriteByte(id)
	buf.WriteByte(v)
}

func packUint16Prop(buf *bytes.Buffer, id byte, v uint16) {
	if v == 0 {
		return
	}
	buf.WriteByte(id)
	buf.Write(i2b(v))
}

func packUint32Prop(buf *bytes.Buffer, id byte, v uint32) {
	if v == 0 {
		return
	}
	buf.WriteByte(id)
	buf.Write(i4b(v))
}

func packStringProp(buf *bytes.Buffer, id byte, v string) {
	if v == "" {
		return
	}
	buf.WriteByte(id)
	buf.Write(s2b(v))
}

func packBinaryProp(buf *bytes.Buffer, id byte, v []byte) {
	if len(v) == 0 {
		return
	}
	buf.WriteByte(id)
	buf.Write(s2b(v))
}

func packUserProps(buf *bytes.Buffer, props []UserProperty) {
	for _, p := range props {
		buf.WriteByte(PropUserProperty)
		buf.Write(s2b(p.Name))
		buf.Write(s2b(p.Value))
	}
}
