package packet

import (
	"bytes"
	"io"
)

// AUTH 认证交换 [MQTT-3.15]，v5.0 新增。本服务端不支持扩展认证，
// 解码保留完整以便客户端和将来的认证器使用。
// 短格式: 剩余长度 0 表示原因码 0x00 (成功) 且无属性。
type AUTH struct {
	*FixedHeader

	ReasonCode ReasonCode
	Props      *AuthProperties
}

func (pkt *AUTH) Kind() byte {
	return 0xF
}

func (pkt *AUTH) String() string {
	return "[0xF]AUTH"
}

// validAuthCode [MQTT-3.15.2.1]。
func validAuthCode(code uint8) bool {
	return code == 0x00 || code == 0x18 || code == 0x19
}

// AuthProperties 认证属性 [MQTT-3.15.2.2]。
type AuthProperties struct {
	AuthenticationMethod string
	AuthenticationData   []byte
	ReasonString         string
	UserProperty         []UserProperty
}

func (props *AuthProperties) Pack() ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	packStringProp(buf, PropAuthenticationMethod, props.AuthenticationMethod)
	packBinaryProp(buf, PropAuthenticationData, props.AuthenticationData)
	packStringProp(buf, PropReasonString, props.ReasonString)
	packUserProps(buf, props.UserProperty)
	return packProps(buf.Bytes())
}

func (props *AuthProperties) Unpack(buf *bytes.Buffer) error {
	return unpackProps(ownerAUTH, buf, func(id byte, section *bytes.Buffer) error {
		var err error
		switch id {
		case PropAuthenticationMethod:
			props.AuthenticationMethod, err = readString(section)
		case PropAuthenticationData:
			props.AuthenticationData, err = readBinary(section)
		case PropReasonString:
			props.ReasonString, err = readString(section)
		case PropUserProperty:
			var name, value string
			if name, value, err = readStringPair(section); err == nil {
				props.UserProperty = append(props.UserProperty, UserProperty{Name: name, Value: value})
			}
		}
		return err
	})
}

func (pkt *AUTH) Pack(w io.Writer) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte(pkt.ReasonCode.Code)
	if pkt.Props == nil {
		pkt.Props = &AuthProperties{}
	}
	props, err := pkt.Props.Pack()
	if err != nil {
		return err
	}
	buf.Write(props)

	if pkt.FixedHeader == nil {
		pkt.FixedHeader = &FixedHeader{Kind: 0xF}
	}
	pkt.RemainingLength = uint32(buf.Len())
	if err := pkt.FixedHeader.Pack(w); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

func (pkt *AUTH) Unpack(buf *bytes.Buffer) error {
	if buf.Len() == 0 {
		pkt.ReasonCode = CodeSuccess
		pkt.Props = &AuthProperties{}
		return nil
	}
	code, err := readByte(buf)
	if err != nil {
		return err
	}
	if !validAuthCode(code) {
		return ErrMalformedReasonCode
	}
	pkt.ReasonCode = ReasonCode{Code: code}

	pkt.Props = &AuthProperties{}
	if buf.Len() == 0 {
		return nil
	}
	return pkt.Props.Unpack(buf)
}
