package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"mozuku/internal/augment"
	"mozuku/internal/cache"
	"mozuku/internal/config"
	"mozuku/internal/morph"
	"mozuku/internal/position"
	"mozuku/internal/scanner"
	"mozuku/internal/session"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/term"
)

var errFindings = errors.New("problems found")

var checkFlags struct {
	config  string
	json    bool
	llm     bool
	workers int
	color   string
}

// lineWidth clips echoed source lines; zero leaves them whole.
var lineWidth int

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Proofread files and directories and print the findings",
	Long: `check runs the grammar rules over every supported file below the given
paths (the current directory by default). With --llm the configured language
model is asked as well. The exit status is 1 when anything was found.`,
	RunE: runCheck,
}

func init() {
	f := checkCmd.Flags()
	f.StringVarP(&checkFlags.config, "config", "c", "", "mozuku.toml to use instead of the usual search")
	f.BoolVar(&checkFlags.json, "json", false, "print findings as JSON")
	f.BoolVar(&checkFlags.llm, "llm", false, "ask the configured language model too")
	f.IntVarP(&checkFlags.workers, "jobs", "j", runtime.NumCPU(), "files checked in parallel")
	f.StringVar(&checkFlags.color, "color", "auto", "colorize output (auto|on|off)")
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// setupTerminal applies --color and picks up the terminal width.
func setupTerminal(out io.Writer) error {
	f, ok := out.(*os.File)
	tty := ok && isTerminal(f)
	switch checkFlags.color {
	case "auto":
		color.NoColor = !tty
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color %q (want auto, on or off)", checkFlags.color)
	}
	if tty {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			lineWidth = w
		}
	}
	return nil
}

// report is the outcome for one file.
type report struct {
	Path        string                `json:"path"`
	Diagnostics []protocol.Diagnostic `json:"diagnostics"`
	text        string
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"."}
	}
	cfg, err := loadCheckConfig(args[0])
	if err != nil {
		return err
	}
	files, err := scanner.Files(args)
	if err != nil {
		return err
	}

	tokenizer, err := morph.NewKagome()
	if err != nil {
		return err
	}
	manager := session.NewManager(session.Options{
		Tokenizer: tokenizer,
		Rules:     cfg.Rules(),
	})

	var coordinator *augment.Coordinator
	if checkFlags.llm {
		provider, err := cfg.NewProvider()
		if err != nil {
			return err
		}
		coordinator = augment.New(provider, manager, nil, cache.NewMemory(), nil, cfg.AugmentOptions())
		defer coordinator.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var mu sync.Mutex
	var reports []report
	err = scanner.Scan(ctx, files, checkFlags.workers, func(path string, data []byte) error {
		r, err := checkFile(ctx, manager, coordinator, path, string(data))
		if err != nil {
			return err
		}
		mu.Lock()
		reports = append(reports, r)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return err
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Path < reports[j].Path })

	out := cmd.OutOrStdout()
	if err := setupTerminal(out); err != nil {
		return err
	}
	var total int
	if checkFlags.json {
		total, err = printJSON(out, reports)
		if err != nil {
			return err
		}
	} else {
		total = printReports(out, reports)
	}
	if total > 0 {
		cmd.SilenceErrors = true
		return errFindings
	}
	return nil
}

func loadCheckConfig(first string) (config.Config, error) {
	if checkFlags.config != "" {
		cfg := config.Default()
		return cfg, cfg.LoadFile(checkFlags.config)
	}
	dir := first
	if info, err := os.Stat(first); err == nil && !info.IsDir() {
		dir = filepath.Dir(first)
	}
	return config.Load(dir)
}

func checkFile(
	ctx context.Context,
	manager *session.Manager,
	coordinator *augment.Coordinator,
	path, text string,
) (report, error) {
	uri := fileURI(path)
	doc := manager.Open(uri, "", 1, text)
	defer manager.Close(uri)

	if coordinator.Enabled() {
		job := augment.NewJob(ctx, uri, doc.Stamp(), doc.Format(), text, "")
		if err := coordinator.Run(job.Context(), job); err != nil {
			// The rule results are still worth printing.
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
	}
	return report{Path: path, Diagnostics: doc.Diagnostics(), text: text}, nil
}

func fileURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

func printJSON(w io.Writer, reports []report) (int, error) {
	var total int
	out := make([]report, 0, len(reports))
	for _, r := range reports {
		if len(r.Diagnostics) == 0 {
			continue
		}
		total += len(r.Diagnostics)
		out = append(out, r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return total, enc.Encode(out)
}

var (
	pathColor    = color.New(color.Bold)
	gutterColor  = color.New(color.FgBlue)
	codeColor    = color.New(color.Faint)
	summaryColor = color.New(color.Bold)
)

func severityColor(s protocol.DiagnosticSeverity) *color.Color {
	switch s {
	case protocol.DiagnosticSeverityError:
		return color.New(color.FgRed, color.Bold)
	case protocol.DiagnosticSeverityWarning:
		return color.New(color.FgYellow, color.Bold)
	case protocol.DiagnosticSeverityInformation:
		return color.New(color.FgBlue, color.Bold)
	}
	return color.New(color.FgCyan)
}

func severityName(s protocol.DiagnosticSeverity) string {
	switch s {
	case protocol.DiagnosticSeverityError:
		return "error"
	case protocol.DiagnosticSeverityWarning:
		return "warning"
	case protocol.DiagnosticSeverityInformation:
		return "info"
	}
	return "hint"
}

// printReports writes each finding with its source line and a marker under
// the flagged text, measured in terminal cells.
func printReports(w io.Writer, reports []report) int {
	var total, files int
	for _, r := range reports {
		if len(r.Diagnostics) == 0 {
			continue
		}
		files++
		m := position.NewMapper(r.text)
		for _, d := range r.Diagnostics {
			total++
			sev := protocol.DiagnosticSeverityHint
			if d.Severity != nil {
				sev = *d.Severity
			}
			code := ""
			if d.Code != nil {
				code = fmt.Sprint(d.Code.Value)
			}
			fmt.Fprintf(w, "%s:%d:%d: %s %s %s\n",
				pathColor.Sprint(r.Path),
				d.Range.Start.Line+1,
				d.Range.Start.Character+1,
				severityColor(sev).Sprint(severityName(sev)),
				d.Message,
				codeColor.Sprintf("[%s]", code),
			)
			excerpt(w, m, d.Range, sev)
		}
	}
	if total > 0 {
		fmt.Fprintln(w, summaryColor.Sprintf("%d problem(s) in %d file(s)", total, files))
	}
	return total
}

func excerpt(w io.Writer, m *position.Mapper, rng protocol.Range, sev protocol.DiagnosticSeverity) {
	start, end := m.Span(rng)
	text := m.Text()
	lineStart, lineEnd := m.Line(int(rng.Start.Line))
	if end > lineEnd {
		end = lineEnd
	}
	line := text[lineStart:lineEnd]
	gutter := fmt.Sprintf("%5d | ", rng.Start.Line+1)
	room := 0
	if lineWidth > 0 {
		room = max(lineWidth-len(gutter), 1)
	}
	fmt.Fprintf(w, "%s%s\n", gutterColor.Sprint(gutter), truncate(line, room))

	pad := runewidth.StringWidth(text[lineStart:start])
	width := runewidth.StringWidth(text[start:end])
	if width < 1 {
		width = 1
	}
	if room > 0 {
		pad = min(pad, room-1)
		width = min(width, room-pad)
	}
	fmt.Fprintf(w, "%s%s%s\n",
		gutterColor.Sprint(strings.Repeat(" ", len(gutter)-2)+"| "),
		strings.Repeat(" ", pad),
		severityColor(sev).Sprint(strings.Repeat("^", width)),
	)
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
