package pcm

import (
	"bytes"
	"errors"
	"testing"
)

var oneFrame = []byte{0x44, 0x55, 0xAB, 0x77, 0x99, 0xBB, 0x11, 0x22}

func TestConvert(t *testing.T) {
	tests := []struct {
		name  string
		ch    Channel
		width Width
		want  []byte
	}{
		{"left 16", Left, Width16, []byte{0xAB, 0x77}},
		{"right 16", Right, Width16, []byte{0x11, 0x22}},
		{"stereo 16", LeftRight, Width16, []byte{0xAB, 0x77, 0x11, 0x22}},
		{"left 32", Left, Width32, []byte{0x44, 0x55, 0xAB, 0x77}},
		{"right 32", Right, Width32, []byte{0x99, 0xBB, 0x11, 0x22}},
		{"stereo 32", LeftRight, Width32, oneFrame},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 8)

			n, err := Convert(dst, oneFrame, tt.ch, tt.width)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if n != len(tt.want) {
				t.Fatalf("n = %d; want %d", n, len(tt.want))
			}

			if !bytes.Equal(dst[:n], tt.want) {
				t.Errorf("output = % X; want % X", dst[:n], tt.want)
			}
		})
	}
}

func TestConvert_TwoFramesLeft16(t *testing.T) {
	src := make([]byte, 16)
	for i := range src {
		src[i] = byte(i)
	}

	dst := make([]byte, 4)

	n, err := Convert(dst, src, Left, Width16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n != 4 {
		t.Fatalf("n = %d; want 4", n)
	}

	want := []byte{2, 3, 10, 11}
	if !bytes.Equal(dst, want) {
		t.Errorf("output = %v; want %v", dst, want)
	}
}

func TestConvert_StereoWideIsIdentity(t *testing.T) {
	src := make([]byte, 1024)
	for i := range src {
		src[i] = byte(i * 7)
	}

	dst := make([]byte, len(src))

	n, err := Convert(dst, src, LeftRight, Width32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n != len(src) {
		t.Errorf("n = %d; want %d", n, len(src))
	}

	if !bytes.Equal(dst, src) {
		t.Error("stereo 32-bit conversion changed the samples")
	}
}

func TestConvert_Empty(t *testing.T) {
	n, err := Convert(nil, nil, Left, Width16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n != 0 {
		t.Errorf("n = %d; want 0", n)
	}
}

func TestConvert_Errors(t *testing.T) {
	big := make([]byte, 64)

	tests := []struct {
		name    string
		dst     []byte
		src     []byte
		ch      Channel
		width   Width
		wantErr error
	}{
		{"length 7", big, make([]byte, 7), Left, Width16, ErrInvalidInputLength},
		{"length 12", big, make([]byte, 12), LeftRight, Width32, ErrInvalidInputLength},
		{"width 24", big, oneFrame, Left, Width(24), ErrUnsupportedWidth},
		{"width 0", big, oneFrame, Left, Width(0), ErrUnsupportedWidth},
		{"channel 9", big, oneFrame, Channel(9), Width16, ErrUnsupportedChannel},
		{"dst too small", make([]byte, 3), oneFrame, LeftRight, Width16, ErrBufferTooSmall},
		{"dst nil", nil, oneFrame, Left, Width16, ErrBufferTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := Convert(tt.dst, tt.src, tt.ch, tt.width)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v; want %v", err, tt.wantErr)
			}

			if n != 0 {
				t.Errorf("n = %d; want 0 on error", n)
			}
		})
	}
}

func TestConvert_NoPartialWriteOnError(t *testing.T) {
	dst := []byte{0xEE, 0xEE, 0xEE}

	_, err := Convert(dst, oneFrame, LeftRight, Width16)
	if !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("err = %v; want ErrBufferTooSmall", err)
	}

	for i, b := range dst {
		if b != 0xEE {
			t.Errorf("dst[%d] = %#x; want untouched 0xEE", i, b)
		}
	}
}

func TestOutputSize(t *testing.T) {
	tests := []struct {
		n     int
		ch    Channel
		width Width
		want  int
	}{
		{1024, Left, Width16, 256},
		{1024, Right, Width32, 512},
		{1024, LeftRight, Width16, 512},
		{1024, LeftRight, Width32, 1024},
		{0, Left, Width16, 0},
	}

	for _, tt := range tests {
		if got := OutputSize(tt.n, tt.ch, tt.width); got != tt.want {
			t.Errorf("OutputSize(%d, %v, %d) = %d; want %d", tt.n, tt.ch, tt.width, got, tt.want)
		}
	}
}

func TestParseChannel(t *testing.T) {
	tests := []struct {
		input   string
		want    Channel
		wantErr bool
	}{
		{"left", Left, false},
		{"RIGHT", Right, false},
		{" stereo ", LeftRight, false},
		{"left-right", LeftRight, false},
		{"mono", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseChannel(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedChannel) {
				t.Errorf("ParseChannel(%q) err = %v; want ErrUnsupportedChannel", tt.input, err)
			}

			continue
		}

		if err != nil || got != tt.want {
			t.Errorf("ParseChannel(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
		}
	}
}

func TestParseWidth(t *testing.T) {
	if w, err := ParseWidth(16); err != nil || w != Width16 {
		t.Errorf("ParseWidth(16) = %v, %v", w, err)
	}

	if w, err := ParseWidth(32); err != nil || w != Width32 {
		t.Errorf("ParseWidth(32) = %v, %v", w, err)
	}

	if _, err := ParseWidth(24); !errors.Is(err, ErrUnsupportedWidth) {
		t.Errorf("ParseWidth(24) err = %v; want ErrUnsupportedWidth", err)
	}
}

func TestChannelString(t *testing.T) {
	for ch, want := range map[Channel]string{Left: "left", Right: "right", LeftRight: "stereo", Channel(7): "Channel(7)"} {
		if ch.String() != want {
			t.Errorf("String() = %q; want %q", ch.String(), want)
		}
	}
}

func BenchmarkConvertLeft16(b *testing.B) {
	src := make([]byte, 1024)
	dst := make([]byte, OutputSize(len(src), Left, Width16))
	b.SetBytes(int64(len(src)))

	for b.Loop() {
		_, _ = Convert(dst, src, Left, Width16)
	}
}
