package packet

import (
	"bytes"
	"errors"
	"testing"
)

func TestPublishQos0Fixture(t *testing.T) {
	// QoS 0, topic "a/b", payload "x":
	// 0x30, 0x07, 0x00 0x03 'a' '/' 'b', 0x00 (props len), 'x'
	want := []byte{0x30, 0x07, 0x00, 0x03, 'a', '/', 'b', 0x00, 'x'}
	pub := &PUBLISH{Message: &Message{TopicName: "a/b", Content: []byte("x")}}
	if got := packToBytes(t, pub); !bytes.Equal(got, want) {
		t.Errorf("pack = %#v, want %#v", got, want)
	}

	out, ok := unpackBytes(t, want).(*PUBLISH)
	if !ok {
		t.Fatal("expected PUBLISH")
	}
	if out.Message.TopicName != "a/b" || !bytes.Equal(out.Message.Content, []byte("x")) {
		t.Errorf("unpack = %+v", out.Message)
	}
	if out.QoS != 0 || out.Dup != 0 || out.Retain != 0 {
		t.Errorf("flags = %d/%d/%d", out.Dup, out.QoS, out.Retain)
	}
}

func TestPublishSemanticFlags(t *testing.T) {
	// PUBLISH 的低 4 位是语义标志，必须原样往返。
	in := &PUBLISH{
		FixedHeader: &FixedHeader{Kind: 0x3, QoS: 1, Dup: 1, Retain: 1},
		PacketID:    99,
		Message:     &Message{TopicName: "t", Content: []byte("payload")},
	}
	raw := packToBytes(t, in)
	if raw[0] != 0x3B { // 0b0011_1011: dup=1, qos=1, retain=1
		t.Fatalf("first byte = %#x, want 0x3B", raw[0])
	}
	out, ok := unpackBytes(t, raw).(*PUBLISH)
	if !ok {
		t.Fatal("expected PUBLISH")
	}
	if out.Dup != 1 || out.QoS != 1 || out.Retain != 1 {
		t.Errorf("flags = %d/%d/%d", out.Dup, out.QoS, out.Retain)
	}
	if out.PacketID != 99 {
		t.Errorf("packetID = %d", out.PacketID)
	}
}

func TestPublishPropsRoundTrip(t *testing.T) {
	in := &PUBLISH{
		Message: &Message{TopicName: "a/b", Content: []byte{0x01, 0x02, 0x03}},
		Props: &PublishProperties{
			PayloadFormatIndicator: 1,
			ResponseTopic:          "reply/here",
			CorrelationData:        []byte{0xDE, 0xAD},
			ContentType:            "application/json",
			UserProperty:           []UserProperty{{"trace", "abc"}},
		},
	}
	out, ok := unpackBytes(t, packToBytes(t, in)).(*PUBLISH)
	if !ok {
		t.Fatal("expected PUBLISH")
	}
	p := out.Props
	if p.PayloadFormatIndicator != 1 || p.ResponseTopic != "reply/here" ||
		!bytes.Equal(p.CorrelationData, []byte{0xDE, 0xAD}) || p.ContentType != "application/json" {
		t.Errorf("props mismatch: %+v", p)
	}
	if !bytes.Equal(out.Message.Content, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("payload mismatch: %#v", out.Message.Content)
	}
}

func TestPublishRejects(t *testing.T) {
	t.Run("wildcard in topic", func(t *testing.T) {
		for _, topic := range []string{"a/+/b", "a/#", "+", "#"} {
			raw := packToBytes(t, &PUBLISH{Message: &Message{TopicName: topic, Content: []byte("x")}})
			if _, err := Unpack(bytes.NewReader(raw)); !errors.Is(err, ErrProtocolViolationSurplusWildcard) {
				t.Errorf("topic %q: got %v", topic, err)
			}
		}
	})

	t.Run("empty topic", func(t *testing.T) {
		raw := packToBytes(t, &PUBLISH{Message: &Message{TopicName: "", Content: []byte("x")}})
		if _, err := Unpack(bytes.NewReader(raw)); !errors.Is(err, ErrMalformedTopic) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("qos>0 with zero packetID", func(t *testing.T) {
		raw := packToBytes(t, &PUBLISH{
			FixedHeader: &FixedHeader{Kind: 0x3, QoS: 1},
			PacketID:    0,
			Message:     &Message{TopicName: "t", Content: nil},
		})
		if _, err := Unpack(bytes.NewReader(raw)); !errors.Is(err, ErrProtocolViolationNoPacketID) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("both qos bits", func(t *testing.T) {
		var buf bytes.Buffer
		err := (&PUBLISH{
			FixedHeader: &FixedHeader{Kind: 0x3, QoS: 3},
			Message:     &Message{TopicName: "t"},
		}).Pack(&buf)
		if !errors.Is(err, ErrProtocolViolationQosOutOfRange) {
			t.Errorf("got %v", err)
		}
	})
}
