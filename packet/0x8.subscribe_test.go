package packet

import (
	"bytes"
	"errors"
	"testing"
)

func TestSubscribeRoundTrip(t *testing.T) {
	in := &SUBSCRIBE{
		PacketID: 21,
		Subscriptions: []Subscription{
			{TopicFilter: "a/b", RetainHandling: 2},
			{TopicFilter: "a/+/c", NoLocal: 1, RetainHandling: 2},
			{TopicFilter: "root/#", RetainAsPublished: 1},
		},
	}
	raw := packToBytes(t, in)
	if raw[0] != 0x82 { // SUBSCRIBE 固定标志 0b0010
		t.Fatalf("first byte = %#x, want 0x82", raw[0])
	}
	out, ok := unpackBytes(t, raw).(*SUBSCRIBE)
	if !ok {
		t.Fatal("expected SUBSCRIBE")
	}
	if out.PacketID != 21 || len(out.Subscriptions) != 3 {
		t.Fatalf("unpack = %+v", out)
	}
	if out.Subscriptions[1].TopicFilter != "a/+/c" || out.Subscriptions[1].NoLocal != 1 {
		t.Errorf("subscription[1] = %+v", out.Subscriptions[1])
	}
	if out.Subscriptions[2].RetainAsPublished != 1 || out.Subscriptions[0].RetainHandling != 2 {
		t.Errorf("options lost: %+v", out.Subscriptions)
	}
}

func TestSubscribeSubscriptionIdentifier(t *testing.T) {
	in := &SUBSCRIBE{
		PacketID:      3,
		Props:         &SubscribeProperties{SubscriptionIdentifier: 268435455},
		Subscriptions: []Subscription{{TopicFilter: "t"}},
	}
	out, ok := unpackBytes(t, packToBytes(t, in)).(*SUBSCRIBE)
	if !ok {
		t.Fatal("expected SUBSCRIBE")
	}
	if out.Props.SubscriptionIdentifier != 268435455 {
		t.Errorf("subscription identifier = %d", out.Props.SubscriptionIdentifier)
	}
}

func TestSubscribeRejects(t *testing.T) {
	pack := func(opts byte) []byte {
		body := GetBuffer()
		defer PutBuffer(body)
		body.Write(i2b(5))     // packetID
		body.WriteByte(0x00)   // 属性长度 0
		body.Write(s2b("a/b")) // 过滤器
		body.WriteByte(opts)
		raw := []byte{0x82, byte(body.Len())}
		return append(raw, body.Bytes()...)
	}

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"retain handling 3", pack(0x30), ErrProtocolViolationRetainHandling},
		{"qos 3", pack(0x03), ErrProtocolViolationQosOutOfRange},
		{"reserved bits", pack(0x40), ErrProtocolViolationReservedBit},
		{"no filters", []byte{0x82, 0x03, 0x00, 0x05, 0x00}, ErrProtocolViolationNoFilters},
		{"zero packetID", []byte{0x82, 0x03, 0x00, 0x00, 0x00}, ErrProtocolViolationNoPacketID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unpack(bytes.NewReader(tt.raw)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
