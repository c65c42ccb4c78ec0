package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// 火山引擎二进制帧：
//
//	| version(4) size(4) | type(4) flags(4) | serialization(4) compression(4) | reserved(8) |
//	[sequence int32] [event int32 [session id] [connect id]] [error code] payload size, payload
const protocolVersion uint8 = 0b0001

// MessageType 帧类型
type MessageType uint8

const (
	TypeFullClientRequest  MessageType = 0b0001
	TypeAudioOnlyRequest   MessageType = 0b0010
	TypeFullServerResponse MessageType = 0b1001
	TypeAudioOnlyResponse  MessageType = 0b1011
	TypeError              MessageType = 0b1111
)

// Flags 帧标志位；低两位描述序号，第三位表示携带事件
type Flags uint8

const (
	FlagNoSequence       Flags = 0b0000
	FlagPositiveSequence Flags = 0b0001
	FlagLastNoSequence   Flags = 0b0010
	FlagNegativeSequence Flags = 0b0011
	FlagWithEvent        Flags = 0b0100

	sequenceMask Flags = 0b0011
)

// Event 服务端事件
type Event int32

const (
	EventNone               Event = 0
	EventStartConnection    Event = 1
	EventFinishConnection   Event = 2
	EventConnectionStarted  Event = 50
	EventConnectionFailed   Event = 51
	EventConnectionFinished Event = 52
	EventSessionStarted     Event = 150
	EventSessionFinished    Event = 152
	EventSessionFailed      Event = 153
)

// Serialization 负载序列化方式
type Serialization uint8

const (
	SerializeNone Serialization = 0b0000
	SerializeJSON Serialization = 0b0001
)

// Compression 负载压缩方式
type Compression uint8

const (
	CompressNone Compression = 0b0000
	CompressGzip Compression = 0b0001
)

var errShortHeader = errors.New("frame header shorter than 4 bytes")

// Frame 一个完整的二进制帧
type Frame struct {
	Type          MessageType
	Flags         Flags
	Serialization Serialization
	Compression   Compression
	headerWords   uint8

	Sequence  int32
	Event     Event
	SessionID string
	ConnectID string
	ErrorCode uint32
	Payload   []byte
}

func (f *Frame) hasSequence() bool {
	s := f.Flags & sequenceMask
	return s == FlagPositiveSequence || s == FlagNegativeSequence
}

func (f *Frame) hasEvent() bool {
	return f.Flags&FlagWithEvent != 0
}

// Last 是否为最后一帧
func (f *Frame) Last() bool {
	s := f.Flags & sequenceMask
	return s == FlagLastNoSequence || s == FlagNegativeSequence
}

// MarshalBinary 编码帧
func (f *Frame) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{
		protocolVersion<<4 | 0b0001,
		uint8(f.Type)<<4 | uint8(f.Flags),
		uint8(f.Serialization)<<4 | uint8(f.Compression),
		0x00,
	})

	if f.hasSequence() {
		writeUint32(&buf, uint32(f.Sequence))
	}
	if f.hasEvent() {
		writeUint32(&buf, uint32(f.Event))
		if !connectionScoped(f.Event) {
			writeSized(&buf, f.SessionID)
		}
		if carriesConnectID(f.Event) {
			writeSized(&buf, f.ConnectID)
		}
	}
	if f.Type == TypeError {
		writeUint32(&buf, f.ErrorCode)
	}
	writeUint32(&buf, uint32(len(f.Payload)))
	buf.Write(f.Payload)

	return buf.Bytes(), nil
}

// ParseFrame 解码一个完整帧
func ParseFrame(data []byte) (*Frame, error) {
	if len(data) < 4 {
		return nil, errShortHeader
	}
	if v := data[0] >> 4; v != protocolVersion {
		return nil, fmt.Errorf("unsupported protocol version %d", v)
	}

	f := &Frame{
		headerWords:   data[0] & 0x0F,
		Type:          MessageType(data[1] >> 4),
		Flags:         Flags(data[1] & 0x0F),
		Serialization: Serialization(data[2] >> 4),
		Compression:   Compression(data[2] & 0x0F),
	}

	r := bytes.NewReader(data[4:])
	if extra := int(f.headerWords)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return nil, fmt.Errorf("read extended header: %w", err)
		}
	}

	if f.hasSequence() {
		seq, err := readUint32(r, "sequence")
		if err != nil {
			return nil, err
		}
		f.Sequence = int32(seq)
	}

	if f.hasEvent() {
		ev, err := readUint32(r, "event")
		if err != nil {
			return nil, err
		}
		f.Event = Event(int32(ev))
		if !connectionScoped(f.Event) {
			if f.SessionID, err = readSized(r, "session id"); err != nil {
				return nil, err
			}
		}
		if carriesConnectID(f.Event) {
			if f.ConnectID, err = readSized(r, "connect id"); err != nil {
				return nil, err
			}
		}
	}

	if f.Type == TypeError {
		code, err := readUint32(r, "error code")
		if err != nil {
			return nil, err
		}
		f.ErrorCode = code
	}

	size, err := readUint32(r, "payload size")
	if err != nil {
		return nil, err
	}
	if size > 0 {
		f.Payload = make([]byte, size)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return nil, fmt.Errorf("read payload (%d bytes): %w", size, err)
		}
	}
	return f, nil
}

// clientRequest 携带 JSON 参数的首帧
func clientRequest(payload []byte, c Compression) *Frame {
	return &Frame{
		Type:          TypeFullClientRequest,
		Flags:         FlagNoSequence,
		Serialization: SerializeJSON,
		Compression:   c,
		Payload:       payload,
	}
}

// audioChunk 音频帧；最后一帧序号取负
func audioChunk(chunk []byte, seq int32, last bool, c Compression) *Frame {
	f := &Frame{
		Type:        TypeAudioOnlyRequest,
		Compression: c,
		Sequence:    seq,
		Payload:     chunk,
	}
	switch {
	case last && seq != 0:
		f.Flags = FlagNegativeSequence
		f.Sequence = -seq
	case last:
		f.Flags = FlagLastNoSequence
	case seq > 0:
		f.Flags = FlagPositiveSequence
	default:
		f.Flags = FlagNoSequence
	}
	return f
}

func connectionScoped(e Event) bool {
	switch e {
	case EventStartConnection, EventFinishConnection,
		EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func carriesConnectID(e Event) bool {
	switch e {
	case EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	}
	return false
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeSized(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readUint32(r io.Reader, what string) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("read %s: %w", what, err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readSized(r io.Reader, what string) (string, error) {
	n, err := readUint32(r, what+" size")
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read %s: %w", what, err)
	}
	return string(b), nil
}
