package layouts

import (
	"sort"

	"example.com/a429kit/internal/a429"
)

// Entry is one catalog layout.
type Entry struct {
	ID          string
	Label       uint8
	Description string
	Layout      *a429.Layout
}

// Data fields of the catalog layouts. Ranges and resolutions follow the
// usual ARINC 429 label assignments.
var (
	Data      = a429.BNRField("data", 11, 29, a429.Unity)
	BCDData   = a429.BCDField("data", 11, 29, 1)
	Discretes = a429.Int[uint32]("discretes", 11, 29)

	Altitude = a429.BNRField("altitude", 13, 29, a429.Unity)
	Airspeed = a429.BNRField("airspeed", 15, 29, a429.Ratio{Num: 1, Den: 16})
	Heading  = a429.BNRField("heading", 14, 29, a429.Ratio{Num: 180, Den: 32768})
	Distance = a429.BCDField("distance", 11, 29, 0.01)

	ExampleLabel = a429.Int[uint8]("label", 1, 8)
	ExampleValue = a429.Scaled[float64]("value", 11, 28, true, a429.Ratio{Num: 1, Den: 4})
	ExampleSSM   = a429.Int[uint8]("ssm", 29, 30)
)

var catalog = map[string]Entry{}

func register(e Entry) {
	if _, exists := catalog[e.ID]; exists {
		panic("layouts: duplicate id " + e.ID)
	}
	catalog[e.ID] = e
}

func bnr(name string, data a429.Def) *a429.Layout {
	return must(a429.StandardLayout(name, a429.BNRStatusField, data))
}

func bcd(name string, data a429.Def) *a429.Layout {
	return must(a429.StandardLayout(name, a429.BCDStatusField, data))
}

func must(l *a429.Layout, err error) *a429.Layout {
	if err != nil {
		panic(err)
	}
	return l
}

func init() {
	register(Entry{ID: "bnr-generic", Description: "BNR word, 19-bit two's complement data, unit resolution", Layout: bnr("bnr-generic", Data)})
	register(Entry{ID: "bcd-generic", Description: "BCD word, five digits in bits 11-29", Layout: bcd("bcd-generic", BCDData)})
	register(Entry{ID: "discrete", Description: "Discrete word, bits 11-29 as a bit set", Layout: bcd("discrete", Discretes)})
	register(Entry{ID: "altitude-203", Label: 0o203, Description: "Pressure altitude, ft", Layout: bnr("altitude-203", Altitude)})
	register(Entry{ID: "airspeed-206", Label: 0o206, Description: "Computed airspeed, 1/16 kt", Layout: bnr("airspeed-206", Airspeed)})
	register(Entry{ID: "heading-320", Label: 0o320, Description: "Magnetic heading, deg", Layout: bnr("heading-320", Heading)})
	register(Entry{ID: "dme-distance-202", Label: 0o202, Description: "DME distance, 0.01 NM BCD", Layout: bcd("dme-distance-202", Distance)})
	register(Entry{
		ID:          "example",
		Description: "Plain label, scaled value in bits 11-28, status in bits 29-30",
		Layout:      a429.MustLayout("example", ExampleLabel, ExampleValue, ExampleSSM),
	})
}

// Lookup returns the catalog entry with the given id.
func Lookup(id string) (Entry, bool) {
	e, ok := catalog[id]
	return e, ok
}

// IDs returns every catalog id, sorted.
func IDs() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every entry ordered by id.
func All() []Entry {
	ids := IDs()
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog[id])
	}
	return out
}
