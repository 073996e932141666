package packet

import (
	"bytes"
	"errors"
	"testing"
)

// minimalConnect 是空 clientId、clean start、无属性的最小 CONNECT:
// 0x10, 剩余长度, "MQTT", 0x05, 0x02, keepalive 0, 属性长度 0, clientId 长度 0。
var minimalConnect = []byte{
	0x10, 0x0D,
	0x00, 0x04, 'M', 'Q', 'T', 'T',
	0x05,
	0x02,
	0x00, 0x00,
	0x00,
	0x00, 0x00,
}

func TestConnectMinimalFixture(t *testing.T) {
	pkt := unpackBytes(t, minimalConnect)
	connect, ok := pkt.(*CONNECT)
	if !ok {
		t.Fatalf("expected CONNECT, got %T", pkt)
	}
	if connect.ClientID != "" {
		t.Errorf("expected empty clientId, got %q", connect.ClientID)
	}
	if !connect.ConnectFlags.CleanStart() {
		t.Error("expected clean start")
	}
	if connect.Version != VERSION500 {
		t.Errorf("expected version 5, got %d", connect.Version)
	}

	if got := packToBytes(t, connect); !bytes.Equal(got, minimalConnect) {
		t.Errorf("repack = %#v, want %#v", got, minimalConnect)
	}
}

func TestConnectRoundTrip(t *testing.T) {
	in := &CONNECT{
		ClientID:  "bench-42",
		KeepAlive: 30,
		Props: &ConnectProperties{
			SessionExpiryInterval: 120,
			ReceiveMaximum:        10,
			MaximumPacketSize:     64 * KB,
			TopicAliasMaximum:     5,
			UserProperty:          []UserProperty{{"k", "v"}},
		},
	}
	out, ok := unpackBytes(t, packToBytes(t, in)).(*CONNECT)
	if !ok {
		t.Fatal("expected CONNECT")
	}
	if out.ClientID != in.ClientID || out.KeepAlive != in.KeepAlive {
		t.Errorf("round trip mismatch: %+v", out)
	}
	if out.Props.SessionExpiryInterval != 120 || out.Props.ReceiveMaximum != 10 ||
		out.Props.MaximumPacketSize != 64*KB || out.Props.TopicAliasMaximum != 5 {
		t.Errorf("props mismatch: %+v", out.Props)
	}
	if len(out.Props.UserProperty) != 1 || out.Props.UserProperty[0] != (UserProperty{"k", "v"}) {
		t.Errorf("user property mismatch: %+v", out.Props.UserProperty)
	}
}

func TestConnectWithCredentialsAndWill(t *testing.T) {
	in := &CONNECT{
		ClientID:    "c1",
		Username:    "root",
		Password:    "secret",
		WillTopic:   "will/topic",
		WillPayload: []byte("gone"),
	}
	out, ok := unpackBytes(t, packToBytes(t, in)).(*CONNECT)
	if !ok {
		t.Fatal("expected CONNECT")
	}
	if !out.ConnectFlags.UserNameFlag() || !out.ConnectFlags.PasswordFlag() || !out.ConnectFlags.WillFlag() {
		t.Errorf("flags not derived: %08b", out.ConnectFlags)
	}
	if out.Username != "root" || out.Password != "secret" {
		t.Errorf("credentials mismatch: %q/%q", out.Username, out.Password)
	}
	if out.WillTopic != "will/topic" || !bytes.Equal(out.WillPayload, []byte("gone")) {
		t.Errorf("will mismatch: %q %q", out.WillTopic, out.WillPayload)
	}
}

func TestConnectRejects(t *testing.T) {
	mutate := func(f func(b []byte)) []byte {
		b := append([]byte(nil), minimalConnect...)
		f(b)
		return b
	}

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{
			"bad protocol name",
			mutate(func(b []byte) { b[4] = 'X' }),
			ErrMalformedProtocolName,
		},
		{
			"protocol version 4",
			mutate(func(b []byte) { b[8] = 0x04 }),
			ErrUnsupportedProtocolVersion,
		},
		{
			"reserved flag bit set",
			mutate(func(b []byte) { b[9] = 0x03 }),
			ErrProtocolViolationReservedBit,
		},
		{
			"will qos 3",
			mutate(func(b []byte) { b[9] = 0x02 | 0x04 | 0x18 }),
			ErrMalformedQos,
		},
		{
			"will qos without will flag",
			mutate(func(b []byte) { b[9] = 0x02 | 0x08 }),
			ErrProtocolViolationWillFlagSurplusRetain,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unpack(bytes.NewReader(tt.raw)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConnectTrailingGarbage(t *testing.T) {
	raw := append([]byte(nil), minimalConnect...)
	raw = append(raw, 0xFF) // 剩余长度之外多一个字节
	raw[1]++
	if _, err := Unpack(bytes.NewReader(raw)); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("expected ErrMalformedPacket, got %v", err)
	}
}
