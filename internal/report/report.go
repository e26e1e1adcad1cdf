package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"example.com/a429kit/internal/a429"
	"example.com/a429kit/internal/ch10"
	"example.com/a429kit/internal/common"
	"example.com/a429kit/internal/dict"
	"example.com/a429kit/internal/layouts"
)

type FieldEntry struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type WordEntry struct {
	Index     int          `json:"index"`
	Offset    int64        `json:"offset"`
	ChannelID uint16       `json:"channelId"`
	Bus       uint8        `json:"bus"`
	Raw       string       `json:"raw"`
	Label     string       `json:"label"`
	SDI       uint8        `json:"sdi"`
	Name      string       `json:"name,omitempty"`
	Layout    string       `json:"layout,omitempty"`
	Fields    []FieldEntry `json:"fields,omitempty"`
	Flags     []string     `json:"flags,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type Summary struct {
	Words     int `json:"words"`
	Decoded   int `json:"decoded"`
	Annotated int `json:"annotated"`
	Flagged   int `json:"flagged"`
	Errors    int `json:"errors"`
}

type Report struct {
	CreatedAt    time.Time   `json:"createdAt"`
	Source       string      `json:"source,omitempty"`
	SourceSHA256 string      `json:"sourceSha256,omitempty"`
	Layout       string      `json:"layout,omitempty"`
	Summary      Summary     `json:"summary"`
	Words        []WordEntry `json:"words"`
}

var labelView = a429.MustLayout("label-sdi", a429.LabelField, a429.SDIField)

// labelSDI reads the label and SDI every standard word carries.
func labelSDI(raw uint32) (label, sdi uint8, err error) {
	view := labelView.New(raw)
	if label, err = a429.Get(view, a429.LabelField); err != nil {
		return 0, 0, err
	}
	if sdi, err = a429.Get(view, a429.SDIField); err != nil {
		return 0, 0, err
	}
	return label, sdi, nil
}

// FormatLabel renders a label the conventional way, as three octal digits.
func FormatLabel(label uint8) string {
	return fmt.Sprintf("%03o", label)
}

// Fields renders every field of w in declaration order.
func Fields(w a429.Word) []FieldEntry {
	decoded := w.Decode()
	out := make([]FieldEntry, 0, len(decoded))
	for _, fv := range decoded {
		out = append(out, FieldEntry{Name: string(fv.Name), Value: FormatValue(fv.Value)})
	}
	return out
}

// FormatValue renders a decoded field value as text.
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) {
			return "invalid"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		if math.IsNaN(float64(x)) {
			return "invalid"
		}
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// Decode interprets recorded words. A word is decoded with the layout its
// dictionary entry names, or with def when there is none; words left
// without a layout are reported as errors. d may be nil.
func Decode(words []ch10.A429Word, def *a429.Layout, d *dict.Store) Report {
	rep := Report{
		CreatedAt: time.Now().UTC(),
		Words:     make([]WordEntry, 0, len(words)),
	}
	if def != nil {
		rep.Layout = def.Name()
	}
	for i, w := range words {
		label, sdi, err := labelSDI(w.DataWord)
		entry := WordEntry{
			Index:     i,
			Offset:    w.Offset,
			ChannelID: w.ChannelID,
			Bus:       w.Bus,
			Raw:       common.WordHex(w.DataWord),
			Label:     FormatLabel(label),
			SDI:       sdi,
		}
		if w.FormatError {
			entry.Flags = append(entry.Flags, "formatError")
		}
		if w.ParityErrorFlag {
			entry.Flags = append(entry.Flags, "parityError")
		}
		if len(entry.Flags) > 0 {
			rep.Summary.Flagged++
		}
		if err != nil {
			entry.Error = fmt.Sprintf("label: %v", err)
			rep.Summary.Errors++
			rep.Words = append(rep.Words, entry)
			continue
		}

		layout := def
		if de, ok := d.LookupA429(label, sdi); ok {
			entry.Name = de.Name
			rep.Summary.Annotated++
			if de.Layout != "" {
				if le, ok := layouts.Lookup(de.Layout); ok {
					layout = le.Layout
				} else {
					entry.Error = fmt.Sprintf("unknown layout %q for label %s", de.Layout, entry.Label)
				}
			}
		}
		if entry.Error == "" && layout == nil {
			entry.Error = fmt.Sprintf("no layout for label %s", entry.Label)
		}
		if entry.Error != "" {
			rep.Summary.Errors++
		} else {
			entry.Layout = layout.Name()
			entry.Fields = Fields(layout.New(w.DataWord))
			rep.Summary.Decoded++
		}
		rep.Words = append(rep.Words, entry)
	}
	rep.Summary.Words = len(rep.Words)
	return rep
}

// Digest returns the hex SHA-256 of the report's JSON encoding.
func (r Report) Digest() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return common.Sha256Hex(b), nil
}

func SaveJSON(rep Report, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadJSON(path string) (Report, error) {
	var rep Report
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}
