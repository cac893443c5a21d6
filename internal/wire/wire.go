// Package wire implements the control-port byte protocol: framed,
// single-tag commands with big-endian multi-byte fields, matching the
// real hardware's control port byte for byte.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Command tag bytes.
const (
	TagReadReg    = 'R'
	TagWriteReg   = 'W'
	TagWriteTable = 'T'
	TagReadData   = 'D'
)

// EndOfStream is the data-fetch length sentinel signaling that the
// capture stream has ended: all bits set, no payload follows.
const EndOfStream uint32 = 0xFFFFFFFF

// MaxTableWords caps the declared length of a table write. The protocol
// has no resynchronization, so an absurd length can only mean a corrupt
// frame.
const MaxTableWords = 1 << 20

// ErrMalformedFrame reports an unrecognized tag, a short frame or an
// oversized declared length. It is always connection-fatal.
var ErrMalformedFrame = errors.New("malformed frame")

// A Request is one framed control-port command, a tagged variant over
// the four command types.
type Request interface {
	request()
}

// ReadReg requests the value of one register.
type ReadReg struct {
	Block, Num, Reg uint8
}

// WriteReg writes one register. No response is sent.
type WriteReg struct {
	Block, Num, Reg uint8
	Value           uint32
}

// WriteTable replaces a table-backed register's contents in full.
// No response is sent.
type WriteTable struct {
	Block, Num, Reg uint8
	Words           []uint32
}

// ReadData drains up to MaxWords words from the capture buffer.
type ReadData struct {
	MaxWords uint32
}

func (ReadReg) request()    {}
func (WriteReg) request()   {}
func (WriteTable) request() {}
func (ReadData) request()   {}

// ReadRequest reads one framed command from r. A clean EOF before the
// tag byte is returned as io.EOF so callers can tell an orderly
// disconnect from a torn frame; any other decoding failure wraps
// ErrMalformedFrame.
func ReadRequest(r io.Reader) (Request, error) {
	var hdr [7]byte
	if _, err := io.ReadFull(r, hdr[:1]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(ErrMalformedFrame, err.Error())
	}
	switch hdr[0] {
	case TagReadReg:
		if err := readFull(r, hdr[:3]); err != nil {
			return nil, err
		}
		return &ReadReg{Block: hdr[0], Num: hdr[1], Reg: hdr[2]}, nil
	case TagWriteReg:
		if err := readFull(r, hdr[:7]); err != nil {
			return nil, err
		}
		return &WriteReg{
			Block: hdr[0], Num: hdr[1], Reg: hdr[2],
			Value: binary.BigEndian.Uint32(hdr[3:7]),
		}, nil
	case TagWriteTable:
		if err := readFull(r, hdr[:7]); err != nil {
			return nil, err
		}
		n := binary.BigEndian.Uint32(hdr[3:7])
		if n > MaxTableWords {
			return nil, errors.Wrapf(ErrMalformedFrame, "table length %d exceeds %d words", n, MaxTableWords)
		}
		words, err := readWords(r, int(n))
		if err != nil {
			return nil, err
		}
		return &WriteTable{Block: hdr[0], Num: hdr[1], Reg: hdr[2], Words: words}, nil
	case TagReadData:
		// 3 dummy bytes, then the word budget
		if err := readFull(r, hdr[:7]); err != nil {
			return nil, err
		}
		return &ReadData{MaxWords: binary.BigEndian.Uint32(hdr[3:7])}, nil
	default:
		return nil, errors.Wrapf(ErrMalformedFrame, "unknown command tag %#02x", hdr[0])
	}
}

// readFull fills buf or fails with ErrMalformedFrame: EOF inside a
// frame means the command needs more bytes than remain.
func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return errors.Wrap(ErrMalformedFrame, err.Error())
	}
	return nil
}

func readWords(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	raw := make([]byte, 4*n)
	if err := readFull(r, raw); err != nil {
		return nil, err
	}
	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(raw[4*i:])
	}
	return words, nil
}

// WriteValue writes a read-register response: the 4-byte value.
func WriteValue(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "write value response")
}

// WriteData writes a data-fetch response: a 4-byte word count followed
// by the words.
func WriteData(w io.Writer, words []uint32) error {
	buf := make([]byte, 4+4*len(words))
	binary.BigEndian.PutUint32(buf, uint32(len(words)))
	for i, v := range words {
		binary.BigEndian.PutUint32(buf[4+4*i:], v)
	}
	_, err := w.Write(buf)
	return errors.Wrap(err, "write data response")
}

// WriteEndOfStream writes the end-of-stream data-fetch response: the
// sentinel length and nothing else.
func WriteEndOfStream(w io.Writer) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], EndOfStream)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "write end-of-stream response")
}

// AppendRequest appends the wire encoding of req to dst. It is the
// encoder used by clients and tests.
func AppendRequest(dst []byte, req Request) []byte {
	switch q := req.(type) {
	case *ReadReg:
		return append(dst, TagReadReg, q.Block, q.Num, q.Reg)
	case *WriteReg:
		dst = append(dst, TagWriteReg, q.Block, q.Num, q.Reg)
		return binary.BigEndian.AppendUint32(dst, q.Value)
	case *WriteTable:
		dst = append(dst, TagWriteTable, q.Block, q.Num, q.Reg)
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(q.Words)))
		for _, v := range q.Words {
			dst = binary.BigEndian.AppendUint32(dst, v)
		}
		return dst
	case *ReadData:
		dst = append(dst, TagReadData, 0, 0, 0)
		return binary.BigEndian.AppendUint32(dst, q.MaxWords)
	}
	panic("wire: unknown request type")
}
