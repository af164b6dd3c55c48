package fx

import (
	"testing"
)

func TestIsTonePorta(t *testing.T) {
	tests := []struct {
		code uint8
		want bool
	}{
		{TonePorta, true},
		{ToneVSlide, true},
		{PerTPorta, true},
		{UltTPorta, true},
		{Vibrato, false},
		{PortaUp, false},
		{0xff, false},
	}
	for _, test := range tests {
		if got := IsTonePorta(test.code); got != test.want {
			t.Errorf("IsTonePorta(%#x) = %v, want %v", test.code, got, test.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		code uint8
		want string
	}{
		{Arpeggio, "arpeggio"},
		{VolSlide, "volume slide"},
		{PerCancel, "cancel persistent effects"},
		{0x12, "unknown"},
		{maxCode, "unknown"},
		{0xff, "unknown"},
	}
	for _, test := range tests {
		if got := Name(test.code); got != test.want {
			t.Errorf("Name(%#x) = %q, want %q", test.code, got, test.want)
		}
	}

	for code := 0; code < maxCode; code++ {
		if code >= 0x12 && code <= 0x13 || code >= 0x16 && code <= 0x18 ||
			code == 0x1a || code == 0x1c || code >= 0x1e && code <= 0x20 {
			continue
		}
		if Name(uint8(code)) == "unknown" {
			t.Errorf("effect %#x has no name", code)
		}
	}
}
