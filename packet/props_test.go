package packet

import (
	"bytes"
	"errors"
	"testing"
)

func TestPropertyOwnerMask(t *testing.T) {
	// TopicAlias 只属于 PUBLISH；出现在 CONNECT 的属性段里是 BadProperty。
	section := []byte{0x03, PropTopicAlias, 0x00, 0x01}
	props := &ConnectProperties{}
	if err := props.Unpack(bytes.NewBuffer(section)); !errors.Is(err, ErrMalformedBadProperty) {
		t.Errorf("expected ErrMalformedBadProperty, got %v", err)
	}
}

func TestPropertyUnknownID(t *testing.T) {
	section := []byte{0x02, 0x7D, 0x00} // 0x7D 不是任何属性
	props := &PublishProperties{}
	if err := props.Unpack(bytes.NewBuffer(section)); !errors.Is(err, ErrMalformedBadProperty) {
		t.Errorf("expected ErrMalformedBadProperty, got %v", err)
	}
}

func TestPropertyDuplicateSingleValued(t *testing.T) {
	// 单值属性出现两次返回 ErrMalformedProperties。
	section := []byte{0x0A,
		PropSessionExpiryInterval, 0x00, 0x00, 0x00, 0x01,
		PropSessionExpiryInterval, 0x00, 0x00, 0x00, 0x02,
	}
	props := &ConnectProperties{}
	if err := props.Unpack(bytes.NewBuffer(section)); !errors.Is(err, ErrMalformedProperties) {
		t.Errorf("expected ErrMalformedProperties, got %v", err)
	}
}

func TestPropertyRepeatedUserProperty(t *testing.T) {
	buf := GetBuffer()
	defer PutBuffer(buf)
	body := GetBuffer()
	defer PutBuffer(body)
	packUserProps(body, []UserProperty{{"a", "1"}, {"a", "2"}, {"b", "3"}})
	section, err := packProps(body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	buf.Write(section)

	props := &ConnectProperties{}
	if err := props.Unpack(buf); err != nil {
		t.Fatalf("repeated user properties must be accepted: %v", err)
	}
	if len(props.UserProperty) != 3 {
		t.Errorf("expected 3 user properties, got %d", len(props.UserProperty))
	}
}

func TestPropertySectionLengthMismatch(t *testing.T) {
	// 属性段声明 10 个字节但只有 4 个。
	section := []byte{0x0A, PropSessionExpiryInterval, 0x00, 0x00, 0x00}
	props := &ConnectProperties{}
	err := props.Unpack(bytes.NewBuffer(section))
	var insufficient *InsufficientBuffer
	if !errors.As(err, &insufficient) {
		t.Errorf("expected InsufficientBuffer, got %v", err)
	}
}

func TestValidOwnerTable(t *testing.T) {
	tests := []struct {
		id    byte
		owner uint16
		want  bool
	}{
		{PropTopicAlias, ownerPUBLISH, true},
		{PropTopicAlias, ownerCONNECT, false},
		{PropUserProperty, ownerCONNECT, true},
		{PropUserProperty, ownerWill, true},
		{PropWillDelayInterval, ownerWill, true},
		{PropWillDelayInterval, ownerCONNECT, false},
		{PropMaximumQoS, ownerCONNACK, true},
		{PropMaximumQoS, ownerSUBACK, false},
		{PropSubscriptionIdentifier, ownerPUBLISH, true},
		{PropSubscriptionIdentifier, ownerSUBSCRIBE, true},
		{PropSubscriptionIdentifier, ownerUNSUBSCRIBE, false},
		{0x7D, ownerPUBLISH, false},
	}
	for _, tt := range tests {
		if got := validOwner(tt.id, tt.owner); got != tt.want {
			t.Errorf("validOwner(0x%02X, %#x) = %v, want %v", tt.id, tt.owner, got, tt.want)
		}
	}
}
