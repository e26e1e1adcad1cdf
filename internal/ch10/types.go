package ch10

import "example.com/a429kit/internal/a429"

type PacketHeader struct {
	Sync         uint16
	ChannelID    uint16
	PacketLength uint32
	DataLength   uint32
	DataType     uint16
	SeqNum       uint8
	Flags        uint8
	Checksum     uint16
}

// A429Word is one ARINC 429 word as recorded: the raw 32-bit data word plus
// the recorder's intra-packet ID word. The data word is left uninterpreted.
type A429Word struct {
	Offset          int64
	ChannelID       uint16
	IDWord          uint32
	DataWord        uint32
	Bus             uint8
	FormatError     bool
	ParityErrorFlag bool
	BusSpeedHigh    bool
	GapTime0p1Us    uint32
}

type A429Info struct {
	CSDW         uint32
	MessageCount uint32
	Words        []A429Word
	ParseError   string
}

// The intra-packet ID word is itself a 32-bit word with fixed fields, so it
// is declared as a layout and decoded with the same codec as bus data.
var (
	idGap         = a429.Int[uint32]("gap", 1, 20)
	idBusSpeed    = a429.Flag("busSpeedHigh", 22)
	idParityError = a429.Flag("parityError", 23)
	idFormatError = a429.Flag("formatError", 24)
	idBus         = a429.Int[uint8]("bus", 25, 32)

	IDWordLayout = a429.MustLayout("ch10-a429-id", idGap, idBusSpeed, idParityError, idFormatError, idBus)
)

func decodeIDWord(w *A429Word) error {
	id := IDWordLayout.New(w.IDWord)
	var err error
	if w.GapTime0p1Us, err = a429.Get(id, idGap); err != nil {
		return err
	}
	if w.BusSpeedHigh, err = a429.Get(id, idBusSpeed); err != nil {
		return err
	}
	if w.ParityErrorFlag, err = a429.Get(id, idParityError); err != nil {
		return err
	}
	if w.FormatError, err = a429.Get(id, idFormatError); err != nil {
		return err
	}
	if w.Bus, err = a429.Get(id, idBus); err != nil {
		return err
	}
	return nil
}

func encodeIDWord(w A429Word) (uint32, error) {
	id := IDWordLayout.New(0)
	if err := a429.Set(&id, idGap, w.GapTime0p1Us); err != nil {
		return 0, err
	}
	if err := a429.Set(&id, idBusSpeed, w.BusSpeedHigh); err != nil {
		return 0, err
	}
	if err := a429.Set(&id, idParityError, w.ParityErrorFlag); err != nil {
		return 0, err
	}
	if err := a429.Set(&id, idFormatError, w.FormatError); err != nil {
		return 0, err
	}
	if err := a429.Set(&id, idBus, w.Bus); err != nil {
		return 0, err
	}
	return id.Raw(), nil
}
