package packet

import (
	"bytes"
	"errors"
	"testing"
)

func TestConnackFixture(t *testing.T) {
	// 成功握手、clean start、无会话: 第一个字节 0x20，随后剩余长度、
	// session_present=0x00、reason=0x00、属性段。
	ack := &CONNACK{
		ConnectReturnCode: CodeSuccess,
		Props:             &ConnackProps{WildcardSubscriptionAvailable: 1},
	}
	raw := packToBytes(t, ack)
	if raw[0] != 0x20 {
		t.Errorf("first byte = %#x, want 0x20", raw[0])
	}
	header := 1 + sizeLength(int(raw[1]))
	if raw[header] != 0x00 || raw[header+1] != 0x00 {
		t.Errorf("session present / reason = %#x %#x, want 0x00 0x00", raw[header], raw[header+1])
	}
}

func TestConnackRoundTrip(t *testing.T) {
	in := &CONNACK{
		ConnectReturnCode: CodeSuccess,
		Props: &ConnackProps{
			SessionExpiryInterval:           300,
			ReceiveMaximum:                  20,
			MaximumQoS:                      0,
			TopicAliasMaximum:               7,
			WildcardSubscriptionAvailable:   1,
			SubscriptionIdentifierAvailable: 0,
			SharedSubscriptionAvailable:     0,
			RetainAvailable:                 0,
			ServerKeepAlive:                 60,
			AssignedClientID:                "11111111-2222-3333-4444-555555555555",
		},
	}
	out, ok := unpackBytes(t, packToBytes(t, in)).(*CONNACK)
	if !ok {
		t.Fatal("expected CONNACK")
	}
	if out.SessionPresent != 0 {
		t.Errorf("session present = %d", out.SessionPresent)
	}
	if out.ConnectReturnCode.Code != 0x00 {
		t.Errorf("reason = %#x", out.ConnectReturnCode.Code)
	}
	p := out.Props
	if p.SessionExpiryInterval != 300 || p.ReceiveMaximum != 20 || p.TopicAliasMaximum != 7 ||
		p.ServerKeepAlive != 60 || p.WildcardSubscriptionAvailable != 1 {
		t.Errorf("props mismatch: %+v", p)
	}
	// MaximumQoS=0 和 *Available=0 的协议缺省值非零，必须显式在线路上。
	if p.MaximumQoS != 0 || p.SubscriptionIdentifierAvailable != 0 || p.SharedSubscriptionAvailable != 0 || p.RetainAvailable != 0 {
		t.Errorf("explicit zero props lost: %+v", p)
	}
	if p.AssignedClientID != in.Props.AssignedClientID {
		t.Errorf("assigned clientId = %q", p.AssignedClientID)
	}
}

func TestConnackRejectsReservedAckBits(t *testing.T) {
	raw := []byte{0x20, 0x03, 0x02, 0x00, 0x00} // bit 1 of the ack byte set
	if _, err := Unpack(bytes.NewReader(raw)); !errors.Is(err, ErrMalformedSessionPresent) {
		t.Errorf("expected ErrMalformedSessionPresent, got %v", err)
	}
}
