package speech

import (
	"bytes"
	"testing"
)

func TestFrameRoundTripWithEvent(t *testing.T) {
	in := &Frame{
		Type:          TypeFullServerResponse,
		Flags:         FlagWithEvent,
		Serialization: SerializeJSON,
		Event:         EventSessionFinished,
		SessionID:     "session-1",
		Payload:       []byte(`{"code":0}`),
	}
	data, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.Type != in.Type || out.Event != in.Event || out.SessionID != in.SessionID {
		t.Fatalf("unexpected frame: %+v", out)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload = %q", out.Payload)
	}
}

func TestFrameConnectionEventCarriesConnectID(t *testing.T) {
	in := &Frame{
		Type:      TypeFullServerResponse,
		Flags:     FlagWithEvent,
		Event:     EventConnectionStarted,
		ConnectID: "conn-9",
	}
	data, _ := in.MarshalBinary()
	out, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.ConnectID != "conn-9" || out.SessionID != "" {
		t.Fatalf("unexpected ids: session=%q connect=%q", out.SessionID, out.ConnectID)
	}
}

func TestAudioChunkFlags(t *testing.T) {
	tests := []struct {
		name    string
		seq     int32
		last    bool
		flags   Flags
		wantSeq int32
	}{
		{"middle chunk", 3, false, FlagPositiveSequence, 3},
		{"last chunk", 4, true, FlagNegativeSequence, -4},
		{"last without sequence", 0, true, FlagLastNoSequence, 0},
		{"unsequenced", 0, false, FlagNoSequence, 0},
	}
	for _, tt := range tests {
		f := audioChunk([]byte{1, 2}, tt.seq, tt.last, CompressNone)
		if f.Flags != tt.flags || f.Sequence != tt.wantSeq {
			t.Fatalf("%s: flags=%04b seq=%d", tt.name, f.Flags, f.Sequence)
		}

		data, _ := f.MarshalBinary()
		parsed, err := ParseFrame(data)
		if err != nil {
			t.Fatalf("%s: parse: %v", tt.name, err)
		}
		if parsed.Sequence != tt.wantSeq || parsed.Last() != tt.last {
			t.Fatalf("%s: parsed seq=%d last=%v", tt.name, parsed.Sequence, parsed.Last())
		}
	}
}

func TestParseFrameErrors(t *testing.T) {
	if _, err := ParseFrame([]byte{0x11}); err == nil {
		t.Fatalf("expected short header error")
	}
	if _, err := ParseFrame([]byte{0x21, 0x10, 0x10, 0x00, 0, 0, 0, 0}); err == nil {
		t.Fatalf("expected version error")
	}
	truncated := []byte{0x11, 0x90, 0x10, 0x00, 0, 0, 0, 9, 'x'}
	if _, err := ParseFrame(truncated); err == nil {
		t.Fatalf("expected truncated payload error")
	}
}

func TestErrorFrameCarriesCode(t *testing.T) {
	in := &Frame{Type: TypeError, ErrorCode: 45000001, Payload: []byte("bad request")}
	data, _ := in.MarshalBinary()
	out, err := ParseFrame(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if out.ErrorCode != 45000001 || string(out.Payload) != "bad request" {
		t.Fatalf("unexpected frame: %+v", out)
	}
}

func TestGzipRoundTrip(t *testing.T) {
	packed, err := compress([]byte("hello hello hello"), CompressGzip)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	plain, err := decompress(packed, CompressGzip)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(plain) != "hello hello hello" {
		t.Fatalf("got %q", plain)
	}
	if _, err := compress(nil, Compression(7)); err == nil {
		t.Fatalf("expected unsupported compression error")
	}
}
