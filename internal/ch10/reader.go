package ch10

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"example.com/a429kit/internal/common"
)

const (
	syncPattern         = 0xEB25
	primaryHeaderSize   = 20
	checksummedBytes    = 16
	defaultResyncWindow = 64 * 1024

	DataTypeA429 = 0x38
)

var (
	ErrNoSync   = errors.New("sync pattern 0xEB25 not found at expected position")
	ErrChecksum = errors.New("header checksum mismatch")
)

func ParsePrimaryHeader(buf []byte) (PacketHeader, error) {
	var hdr PacketHeader
	if len(buf) < primaryHeaderSize {
		return hdr, io.ErrUnexpectedEOF
	}
	hdr.Sync = binary.BigEndian.Uint16(buf[0:2])
	hdr.ChannelID = binary.BigEndian.Uint16(buf[2:4])
	hdr.PacketLength = binary.BigEndian.Uint32(buf[4:8])
	hdr.DataLength = binary.BigEndian.Uint32(buf[8:12])
	hdr.DataType = binary.BigEndian.Uint16(buf[12:14])
	hdr.SeqNum = buf[14]
	hdr.Flags = buf[15]
	hdr.Checksum = binary.BigEndian.Uint16(buf[16:18])
	return hdr, nil
}

// ComputeHeaderChecksum returns the inverted ones' complement sum of the
// 16-bit words in the first 16 header bytes.
func ComputeHeaderChecksum(header []byte) (uint16, error) {
	if len(header) < primaryHeaderSize {
		return 0, fmt.Errorf("header too short: %d bytes", len(header))
	}
	var sum uint32
	for i := 0; i < checksummedBytes; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum & 0xFFFF), nil
}

// Packet is one packet returned by Reader.Next. A429 is nil for packets of
// other data types.
type Packet struct {
	Offset int64
	Header PacketHeader
	A429   *A429Info
}

// Reader walks the packets of a Chapter 10 recording, resynchronising on
// the sync pattern when a header is damaged.
type Reader struct {
	src          io.ReaderAt
	closer       io.Closer
	size         int64
	offset       int64
	resyncWindow int64
	resyncBuf    []byte
	metrics      *common.Metrics
	hdrBuf       [primaryHeaderSize]byte
}

// NewReader opens the file at path and prepares an iterator.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r := NewReaderAt(f, info.Size())
	r.closer = f
	return r, nil
}

// NewReaderAt iterates over size bytes of src.
func NewReaderAt(src io.ReaderAt, size int64) *Reader {
	return &Reader{
		src:          src,
		size:         size,
		resyncWindow: defaultResyncWindow,
	}
}

// Close releases the underlying file handle, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		r.src = nil
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	r.src = nil
	return err
}

// SetMetrics attaches a metrics recorder to the reader.
func (r *Reader) SetMetrics(m *common.Metrics) {
	r.metrics = m
	if r.metrics != nil {
		r.metrics.SetTotalBytes(r.size)
	}
}

// Next returns the next packet. It returns io.EOF at the end of the input.
func (r *Reader) Next() (Packet, error) {
	if r.src == nil {
		return Packet{}, io.EOF
	}
	for {
		if r.offset+primaryHeaderSize > r.size {
			if r.offset >= r.size {
				return Packet{}, io.EOF
			}
			return Packet{}, io.ErrUnexpectedEOF
		}
		buf := r.hdrBuf[:]
		if _, err := r.src.ReadAt(buf, r.offset); err != nil && !errors.Is(err, io.EOF) {
			return Packet{}, err
		}
		hdr, err := ParsePrimaryHeader(buf)
		if err != nil {
			return Packet{}, err
		}
		if hdr.Sync != syncPattern {
			if err := r.resync("sync pattern"); err != nil {
				return Packet{}, err
			}
			continue
		}
		if sum, _ := ComputeHeaderChecksum(buf); sum != hdr.Checksum {
			if err := r.resync(fmt.Sprintf("%v: got 0x%04X, want 0x%04X", ErrChecksum, hdr.Checksum, sum)); err != nil {
				return Packet{}, err
			}
			continue
		}
		totalLen := int64(hdr.PacketLength) + 4
		if totalLen < primaryHeaderSize {
			if err := r.resync("packet length too small"); err != nil {
				return Packet{}, err
			}
			continue
		}
		nextOffset := r.offset + totalLen
		if nextOffset > r.size {
			if err := r.resync("packet length beyond file"); err != nil {
				return Packet{}, err
			}
			continue
		}

		pkt := Packet{Offset: r.offset, Header: hdr}
		if hdr.DataType == DataTypeA429 {
			bodyLen := totalLen - primaryHeaderSize
			if dl := int64(hdr.DataLength); dl < bodyLen {
				bodyLen = dl
			}
			body := make([]byte, bodyLen)
			if _, err := r.src.ReadAt(body, r.offset+primaryHeaderSize); err != nil && !errors.Is(err, io.EOF) {
				return Packet{}, err
			}
			info := ParseA429Payload(body)
			for i := range info.Words {
				info.Words[i].ChannelID = hdr.ChannelID
				info.Words[i].Offset += r.offset + primaryHeaderSize
			}
			pkt.A429 = info
		}

		if r.metrics != nil {
			r.metrics.AddPacket(totalLen)
			if pkt.A429 != nil {
				r.metrics.AddWords(int64(len(pkt.A429.Words)))
			}
		}
		r.offset = nextOffset
		return pkt, nil
	}
}

// resync scans forward from the current offset for the next sync pattern.
// When the window holds none the offset moves to the end of the window and
// the caller tries again from there.
func (r *Reader) resync(reason string) error {
	common.Logf("resync at offset %d: %s", r.offset, reason)
	if r.metrics != nil {
		r.metrics.IncResync()
	}
	origOffset := r.offset
	defer func() {
		if r.metrics != nil && r.offset > origOffset {
			r.metrics.AddBytes(r.offset - origOffset)
		}
	}()
	start := r.offset + 1
	limit := start + r.resyncWindow
	if limit > r.size {
		limit = r.size
	}
	window := limit - start
	if window < 2 {
		r.offset = r.size
		return io.EOF
	}
	if int64(len(r.resyncBuf)) < window {
		r.resyncBuf = make([]byte, window)
	}
	buf := r.resyncBuf[:window]
	n, err := r.src.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	for i := 0; i < n-1; i++ {
		if buf[i] == 0xEB && buf[i+1] == 0x25 {
			r.offset = start + int64(i)
			common.Logf("resync successful, new offset %d", r.offset)
			return nil
		}
	}
	if limit >= r.size {
		r.offset = r.size
		return io.EOF
	}
	r.offset = limit - 1
	return nil
}

// ParseA429Payload decodes an ARINC 429 packet body: a channel specific data
// word holding the message count, then one ID word and one data word per
// message. Word offsets are relative to the start of body. A body too short
// for its message count is rejected before any word is decoded; problems are
// reported through ParseError.
func ParseA429Payload(body []byte) *A429Info {
	info := &A429Info{}
	if len(body) == 0 {
		info.ParseError = "payload empty"
		return info
	}
	if len(body) < 4 {
		info.ParseError = "payload shorter than CSDW"
		return info
	}
	info.CSDW = binary.BigEndian.Uint32(body[0:4])
	info.MessageCount = info.CSDW & 0x0000FFFF
	if info.MessageCount == 0 {
		return info
	}

	if uint64(info.MessageCount)*8 > uint64(len(body)-4) {
		info.ParseError = "payload shorter than ID/data words"
		return info
	}

	info.Words = make([]A429Word, 0, info.MessageCount)
	cursor := 4
	for i := uint32(0); i < info.MessageCount; i++ {
		word := A429Word{
			Offset:   int64(cursor),
			IDWord:   binary.BigEndian.Uint32(body[cursor : cursor+4]),
			DataWord: binary.BigEndian.Uint32(body[cursor+4 : cursor+8]),
		}
		if err := decodeIDWord(&word); err != nil {
			info.ParseError = fmt.Sprintf("word %d id: %v", i+1, err)
			return info
		}
		info.Words = append(info.Words, word)
		cursor += 8
	}
	return info
}

// ReadA429Words returns every ARINC 429 word recorded in the file at path, in
// file order. Packets of other data types are skipped.
func ReadA429Words(path string, metrics *common.Metrics) ([]A429Word, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	r.SetMetrics(metrics)

	var words []A429Word
	for {
		pkt, err := r.Next()
		if errors.Is(err, io.EOF) {
			return words, nil
		}
		if err != nil {
			return words, err
		}
		if pkt.A429 == nil {
			continue
		}
		if pkt.A429.ParseError != "" {
			common.Logf("packet at offset %d: %s", pkt.Offset, pkt.A429.ParseError)
		}
		words = append(words, pkt.A429.Words...)
	}
}
