package ch10

import (
	"encoding/binary"
	"fmt"
)

const maxA429Messages = 0xFFFF

// BuildPacket assembles a packet with a checksummed primary header around
// payload. No secondary header is written.
func BuildPacket(channelID uint16, dataType uint16, seq uint8, payload []byte) ([]byte, error) {
	totalLen := primaryHeaderSize + len(payload)
	packet := make([]byte, totalLen)
	header := packet[:primaryHeaderSize]
	binary.BigEndian.PutUint16(header[0:2], syncPattern)
	binary.BigEndian.PutUint16(header[2:4], channelID)
	binary.BigEndian.PutUint32(header[4:8], uint32(totalLen-4))
	binary.BigEndian.PutUint32(header[8:12], uint32(len(payload)))
	binary.BigEndian.PutUint16(header[12:14], dataType)
	header[14] = seq
	checksum, err := ComputeHeaderChecksum(header)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(header[16:18], checksum)
	copy(packet[primaryHeaderSize:], payload)
	return packet, nil
}

// BuildA429Packet encodes words as an ARINC 429 data packet. Each word's ID
// word is rebuilt from its Bus, flag and gap fields; IDWord is ignored.
func BuildA429Packet(channelID uint16, seq uint8, words []A429Word) ([]byte, error) {
	if len(words) > maxA429Messages {
		return nil, fmt.Errorf("too many words for one packet: %d", len(words))
	}
	payload := make([]byte, 4+8*len(words))
	binary.BigEndian.PutUint32(payload[0:4], uint32(len(words)))
	cursor := 4
	for i, w := range words {
		id, err := encodeIDWord(w)
		if err != nil {
			return nil, fmt.Errorf("word %d id: %w", i+1, err)
		}
		binary.BigEndian.PutUint32(payload[cursor:cursor+4], id)
		binary.BigEndian.PutUint32(payload[cursor+4:cursor+8], w.DataWord)
		cursor += 8
	}
	return BuildPacket(channelID, DataTypeA429, seq, payload)
}
