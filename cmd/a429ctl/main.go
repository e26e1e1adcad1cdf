package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"example.com/a429kit/internal/a429"
	"example.com/a429kit/internal/ch10"
	"example.com/a429kit/internal/common"
	"example.com/a429kit/internal/dict"
	"example.com/a429kit/internal/layouts"
	"example.com/a429kit/internal/report"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		return
	}
	var err error
	switch os.Args[1] {
	case "layouts":
		err = layoutsCmd(os.Args[2:], os.Stdout)
	case "decode":
		err = decodeCmd(os.Args[2:], os.Stdout)
	case "encode":
		err = encodeCmd(os.Args[2:], os.Stdout)
	case "scan":
		err = scanCmd(os.Args[2:], os.Stdout)
	default:
		usage(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `a429ctl %s (built %s) <command> [options]

Commands:
  layouts   [--fields]
  decode    --layout <id> --word <0x...>
  encode    --layout <id> [--word <0x...>] --set name=value [--set ...] [--audit <audit.jsonl>]
  scan      --in <file.ch10> [--layout <id>] [--dict <dict.json>] [--out <report.json>] [--pdf <report.pdf>] [--progress] [--log-dir <dir>]
`, version, buildDate)
}

// multiFlag collects a repeated string flag.
type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func lookupLayout(id string) (layouts.Entry, error) {
	if strings.TrimSpace(id) == "" {
		return layouts.Entry{}, errors.New("required: --layout")
	}
	e, ok := layouts.Lookup(id)
	if !ok {
		return layouts.Entry{}, fmt.Errorf("unknown layout %q (see a429ctl layouts)", id)
	}
	return e, nil
}

func layoutsCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("layouts", flag.ContinueOnError)
	fields := fs.Bool("fields", false, "list the fields of every layout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tSPAN\tDESCRIPTION")
	for _, e := range layouts.All() {
		label := "-"
		if e.Label != 0 {
			label = report.FormatLabel(e.Label)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.ID, label, e.Layout.UsedBits(), e.Description)
		if !*fields {
			continue
		}
		for _, d := range e.Layout.Fields() {
			fmt.Fprintf(w, "\t\t[%d,%d]\t%s %s %s\n", d.LSB, d.MSB, d.Name, d.Kind, d.ValueType())
		}
	}
	return w.Flush()
}

func printFields(out io.Writer, word a429.Word) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, f := range report.Fields(word) {
		fmt.Fprintf(w, "%s\t%s\n", f.Name, f.Value)
	}
	w.Flush()
}

func decodeCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	layoutID := fs.String("layout", "", "layout id")
	wordFlag := fs.String("word", "", "raw word (0x..., 0o..., decimal)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := lookupLayout(*layoutID)
	if err != nil {
		return err
	}
	if *wordFlag == "" {
		return errors.New("required: --word")
	}
	raw, err := layouts.ParseWord(*wordFlag)
	if err != nil {
		return err
	}
	word := e.Layout.New(raw)
	fmt.Fprintf(out, "%s\n", word)
	printFields(out, word)
	return nil
}

func encodeCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	layoutID := fs.String("layout", "", "layout id")
	wordFlag := fs.String("word", "", "starting raw word (default 0)")
	auditPath := fs.String("audit", "", "append the edit to this JSONL audit log")
	var sets multiFlag
	fs.Var(&sets, "set", "field assignment name=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	e, err := lookupLayout(*layoutID)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return errors.New("required: --set")
	}
	base, err := layouts.ParseWord(*wordFlag)
	if err != nil {
		return err
	}
	assignments := make([]layouts.Assignment, 0, len(sets))
	for _, s := range sets {
		a, err := layouts.ParseAssignment(s)
		if err != nil {
			return err
		}
		assignments = append(assignments, a)
	}
	res, err := layouts.Apply(e.Layout, base, assignments)
	if err != nil {
		return err
	}
	overflows := make([]string, 0, len(res.Overflows))
	for _, oe := range res.Overflows {
		fmt.Fprintf(out, "WARNING: %v\n", oe)
		overflows = append(overflows, string(oe.Field))
	}
	fmt.Fprintf(out, "0x%s\n", common.WordHex(res.Word.Raw()))
	printFields(out, res.Word)

	if *auditPath != "" {
		entry := common.EncodeEntry{
			Layout:    e.ID,
			Set:       layouts.FieldSets(assignments),
			BeforeHex: common.WordHex(res.Before),
			AfterHex:  common.WordHex(res.Word.Raw()),
			Overflows: overflows,
			Source:    "a429ctl",
		}
		if err := common.NewAuditLog(*auditPath).Append(entry); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
	}
	return nil
}

func scanCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	in := fs.String("in", "", "input .ch10")
	layoutID := fs.String("layout", "", "default layout for labels the dictionary does not map")
	dictPath := fs.String("dict", "", "label dictionary JSON")
	outJSON := fs.String("out", "decode_report.json", "report JSON output")
	outPDF := fs.String("pdf", "", "report PDF output")
	progress := fs.Bool("progress", false, "display progress updates")
	logDir := fs.String("log-dir", "", "also write logs to a rotating file in this directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("required: --in")
	}
	if *logDir != "" {
		closer, err := common.SetupLogging(common.LogConfig{Directory: *logDir, FileName: "a429ctl.log", MaxSizeMB: 10, MaxBackups: 3})
		if err != nil {
			return err
		}
		defer closer.Close()
	}
	var def *a429.Layout
	if *layoutID != "" {
		e, err := lookupLayout(*layoutID)
		if err != nil {
			return err
		}
		def = e.Layout
	}
	var store *dict.Store
	if *dictPath != "" {
		var err error
		store, err = dict.EnsureLoaded(*dictPath)
		if err != nil {
			return fmt.Errorf("dictionary: %w", err)
		}
	}
	if def == nil && store.IsEmpty() {
		return errors.New("required: --layout or --dict")
	}

	metrics := common.NewMetrics()
	metrics.Start()
	var stopProgress func()
	if *progress {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	words, err := ch10.ReadA429Words(*in, metrics)
	if stopProgress != nil {
		stopProgress()
	}
	metrics.Stop()
	if err != nil {
		return err
	}

	rep := report.Decode(words, def, store)
	rep.Source = *in
	if sum, _, err := common.Sha256OfFile(*in); err == nil {
		rep.SourceSHA256 = sum
	}
	if err := report.SaveJSON(rep, *outJSON); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if *outPDF != "" {
		if err := report.SavePDF(rep, *outPDF); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
	}
	snap := metrics.Snapshot()
	fmt.Fprintf(out, "words=%d decoded=%d annotated=%d flagged=%d errors=%d resyncs=%d\n",
		rep.Summary.Words, rep.Summary.Decoded, rep.Summary.Annotated, rep.Summary.Flagged, rep.Summary.Errors, snap.Resyncs)
	return nil
}
