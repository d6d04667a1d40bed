package datauri

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		capacity int
		want     []byte
		wantErr  error
	}{
		{name: "empty", in: "", capacity: 0, want: []byte{}},
		{name: "one group", in: "AAAA", capacity: 4, want: []byte{0, 0, 0}},
		{name: "text", in: "aGVsbG8gd29ybGQ=", capacity: 16, want: []byte("hello world")},
		{name: "one pad", in: "QUI=", capacity: 4, want: []byte("AB")},
		{name: "two pads", in: "QQ==", capacity: 4, want: []byte("A")},
		{name: "unpadded tail of three", in: "QUI", capacity: 3, want: []byte("AB")},
		{name: "unpadded tail of two", in: "QQ", capacity: 2, want: []byte("A")},
		{name: "single trailing symbol dropped", in: "AAAAQ", capacity: 5, want: []byte{0, 0, 0}},
		{name: "whitespace skipped", in: " QU\tJD\r\nRA ==\n", capacity: 16, want: []byte("ABCD")},
		{name: "data after pad ignored", in: "QQ==!!not base64", capacity: 16, want: []byte("A")},
		{name: "url alphabet rejected", in: "AA-A", capacity: 4, want: []byte{}, wantErr: ErrInvalidCharacter},
		{name: "invalid keeps whole groups", in: "AAAAAA!A", capacity: 8, want: []byte{0, 0, 0}, wantErr: ErrInvalidCharacter},
		{name: "high byte rejected", in: "AAAA\xffAAA", capacity: 8, want: []byte{0, 0, 0}, wantErr: ErrInvalidCharacter},
		{name: "overflow in group", in: "AAAA", capacity: 2, want: []byte{}, wantErr: ErrOverflow},
		{name: "overflow in tail", in: "AAAAAA", capacity: 3, want: []byte{0, 0, 0}, wantErr: ErrOverflow},
		{name: "overflow in tail of three", in: "AAAAAAA", capacity: 4, want: []byte{0, 0, 0}, wantErr: ErrOverflow},
		{name: "exact capacity", in: "AAAAAAA=", capacity: 5, want: []byte{0, 0, 0, 0, 0}},
		{name: "negative capacity", in: "QQ", capacity: -1, want: []byte{}, wantErr: ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.in), tt.capacity)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Decode(%q, %d) error = %v, want %v", tt.in, tt.capacity, err, tt.wantErr)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Decode(%q, %d) = %v, want %v", tt.in, tt.capacity, got, tt.want)
			}
		})
	}
}

func TestDecodeCorruptOffset(t *testing.T) {
	_, err := Decode([]byte("AAAA AA*A"), 16)
	var ce *CorruptInputError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *CorruptInputError", err)
	}
	if ce.Offset != 7 || ce.Byte != '*' {
		t.Errorf("CorruptInputError = {%d, %q}, want {7, '*'}", ce.Offset, ce.Byte)
	}
}

func TestDecodeLengths(t *testing.T) {
	// n symbols without padding decode to 3n/4 bytes; one or two pad
	// characters remove one or two bytes.
	for groups := 1; groups <= 8; groups++ {
		n := 4 * groups
		full := bytes.Repeat([]byte("Zm9v"), groups)

		got, err := Decode(full, n)
		if err != nil || len(got) != 3*n/4 {
			t.Errorf("%d symbols: len = %d, err = %v, want %d", n, len(got), err, 3*n/4)
		}

		onePad := append(bytes.Repeat([]byte("Zm9v"), groups-1), "Zm8="...)
		got, err = Decode(onePad, n)
		if err != nil || len(got) != 3*n/4-1 {
			t.Errorf("%d symbols, one pad: len = %d, err = %v, want %d", n, len(got), err, 3*n/4-1)
		}

		twoPads := append(bytes.Repeat([]byte("Zm9v"), groups-1), "Zg=="...)
		got, err = Decode(twoPads, n)
		if err != nil || len(got) != 3*n/4-2 {
			t.Errorf("%d symbols, two pads: len = %d, err = %v, want %d", n, len(got), err, 3*n/4-2)
		}
	}
}

func TestMaxDecodedLen(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 3}, {8, 6}, {10, 7},
	}
	for _, tt := range tests {
		if got := MaxDecodedLen(tt.in); got != tt.want {
			t.Errorf("MaxDecodedLen(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDecodeEMF(t *testing.T) {
	got, err := DecodeEMF(EMFPrefix + "AAAA")
	if err != nil {
		t.Fatalf("DecodeEMF error: %v", err)
	}
	if !bytes.Equal(got, []byte{0, 0, 0}) {
		t.Errorf("DecodeEMF = %v, want [0 0 0]", got)
	}

	if _, err := DecodeEMF("data:image/png;base64,AAAA"); !errors.Is(err, ErrNotEMF) {
		t.Errorf("DecodeEMF(png) error = %v, want ErrNotEMF", err)
	}
}

func TestIsEMF(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{"data:image/emf;base64,AAAA", true},
		{"data:image/emf;base64,", true},
		{"data:image/png;base64,AAAA", false},
		{"DATA:image/emf;base64,AAAA", false},
		{"image.emf", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsEMF(tt.href); got != tt.want {
			t.Errorf("IsEMF(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte(""), 0)
	f.Add([]byte("AAAA"), 4)
	f.Add([]byte("QQ=="), 1)
	f.Add([]byte("Zm9v YmFy\n"), 6)
	f.Add([]byte("!!"), 2)

	f.Fuzz(func(t *testing.T, data []byte, capacity int) {
		out, err := Decode(data, capacity)
		if len(out) > max(capacity, 0) {
			t.Fatalf("decoded %d bytes into capacity %d", len(out), capacity)
		}
		if err == nil {
			return
		}
		if !errors.Is(err, ErrOverflow) && !errors.Is(err, ErrInvalidCharacter) {
			t.Fatalf("unexpected error %v", err)
		}
		if len(out)%3 != 0 {
			t.Fatalf("partial output of %d bytes is not whole groups", len(out))
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte{0})
	f.Add([]byte("hello"))
	f.Add([]byte{0xff, 0xfe, 0xfd, 0xfc})

	f.Fuzz(func(t *testing.T, data []byte) {
		enc := base64.StdEncoding.EncodeToString(data)
		out, err := Decode([]byte(enc), len(enc))
		if err != nil {
			t.Fatalf("Decode(%q): %v", enc, err)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("Decode(%q) = %x, want %x", enc, out, data)
		}
	})
}
