// Command hevcres inspects the HEVC entropy decoder from the command line.
//
// Usage:
//
//	hevcres ctx [options]               Print the initialized context models
//	hevcres scan [options]              Print a coefficient scan order
//	hevcres residual [options] <input>  Decode transform blocks from a raw CABAC payload (use "-" for stdin)
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog"

	"github.com/deepteams/hevc"
	"github.com/deepteams/hevc/internal/config"
	"github.com/deepteams/hevc/internal/ctxtable"
	"github.com/deepteams/hevc/internal/scan"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "ctx":
		err = runCtx(os.Args[2:], os.Stdout)
	case "scan":
		err = runScan(os.Args[2:], os.Stdout)
	case "residual":
		err = runResidual(os.Args[2:], os.Stdout)
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "hevcres: unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "hevcres: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage:
  hevcres ctx [options]               Print the initialized context models
  hevcres scan [options]              Print a coefficient scan order
  hevcres residual [options] <input>  Decode transform blocks from a raw CABAC payload

Use "-" as input to read from stdin.

Run "hevcres <command> -h" for command-specific options.
`)
}

// openInput returns an io.ReadCloser for the given path.
// If path is "-", stdin is returned.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// sliceFlags are the options shared by the commands that need slice
// parameters. Flags given on the command line override the config file.
type sliceFlags struct {
	config    string
	sliceType string
	cabacInit bool
	qp        int
	logLevel  string
	logFormat string
}

func addSliceFlags(fs *flag.FlagSet) *sliceFlags {
	f := &sliceFlags{}
	fs.StringVar(&f.config, "config", "", "slice configuration file (JSON or YAML)")
	fs.StringVar(&f.sliceType, "slice", config.DefaultSlice.SliceType, "slice type: I, P or B")
	fs.BoolVar(&f.cabacInit, "cabac-init", false, "set cabac_init_flag")
	fs.IntVar(&f.qp, "qp", config.DefaultSlice.QP, "slice QP")
	fs.StringVar(&f.logLevel, "log-level", config.DefaultSlice.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", config.DefaultSlice.LogFormat, "log format: default or json")
	return f
}

func (f *sliceFlags) load(fs *flag.FlagSet) (*config.SliceConfig, error) {
	cfg := config.DefaultSlice
	if f.config != "" {
		if err := config.LoadSlice(f.config, &cfg); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "slice":
			cfg.SliceType = f.sliceType
		case "cabac-init":
			cfg.CABACInitFlag = f.cabacInit
		case "qp":
			cfg.QP = f.qp
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "log-format":
			cfg.LogFormat = f.logFormat
		}
	})
	return &cfg, nil
}

// --- ctx ---

func runCtx(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("ctx", flag.ContinueOnError)
	sf := addSliceFlags(fs)
	element := fs.String("element", "", "only print this syntax element, e.g. split_cu_flag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := sf.load(fs)
	if err != nil {
		return err
	}
	p, err := cfg.Params()
	if err != nil {
		return errors.Wrap(err, "ctx")
	}

	it := ctxtable.InitTypeFor(p.SliceType, p.CABACInitFlag)
	tbl := ctxtable.New(it, p.QP)
	fmt.Fprintf(w, "slice %v qp %d initType %d\n", p.SliceType, p.QP, it)

	found := false
	for e := ctxtable.Element(0); e < ctxtable.NumElements; e++ {
		if *element != "" && e.String() != *element {
			continue
		}
		found = true
		for i := 0; i < e.Count(); i++ {
			c := tbl.Ctx(e, i)
			fmt.Fprintf(w, "%s[%d] state=%d mps=%d\n", e, i, c.State, c.MPS)
		}
	}
	if !found {
		return errors.Errorf("ctx: unknown element %q", *element)
	}
	return nil
}

// --- scan ---

var scanDirections = map[string]scan.Direction{
	"diagonal":   scan.Diagonal,
	"horizontal": scan.Horizontal,
	"vertical":   scan.Vertical,
}

func parseLog2Size(size int) (int, error) {
	switch size {
	case 4:
		return 2, nil
	case 8:
		return 3, nil
	case 16:
		return 4, nil
	case 32:
		return 5, nil
	}
	return 0, errors.Errorf("transform size %d not one of 4, 8, 16, 32", size)
}

func parseScan(log2Size int, name string) (scan.Direction, error) {
	dir, ok := scanDirections[strings.ToLower(name)]
	if !ok {
		return 0, errors.Errorf("unknown scan %q", name)
	}
	if dir != scan.Diagonal && log2Size > 3 {
		return 0, errors.Errorf("%v scan not allowed for %dx%d blocks", dir, 1<<uint(log2Size), 1<<uint(log2Size))
	}
	return dir, nil
}

func runScan(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	size := fs.Int("size", 4, "transform size: 4, 8, 16 or 32")
	dirName := fs.String("dir", "diagonal", "scan: diagonal, horizontal or vertical")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log2Size, err := parseLog2Size(*size)
	if err != nil {
		return errors.Wrap(err, "scan")
	}
	dir, err := parseScan(log2Size, *dirName)
	if err != nil {
		return errors.Wrap(err, "scan")
	}

	t := scan.For(log2Size, dir)
	fmt.Fprintf(w, "%dx%d %v, %d coefficient groups\n", *size, *size, dir, t.NumCG())
	for y := 0; y < *size; y++ {
		var sb strings.Builder
		for x := 0; x < *size; x++ {
			fmt.Fprintf(&sb, "%5d", t.ScanPos(x, y))
		}
		fmt.Fprintln(w, sb.String())
	}
	return nil
}

// --- residual ---

func runResidual(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("residual", flag.ContinueOnError)
	sf := addSliceFlags(fs)
	size := fs.Int("size", 4, "transform size: 4, 8, 16 or 32")
	cIdx := fs.Int("c", 0, "colour component: 0 luma, 1 Cb, 2 Cr")
	dirName := fs.String("dir", "diagonal", "scan: diagonal, horizontal or vertical")
	count := fs.Int("n", 1, "number of blocks to decode")
	inter := fs.Bool("inter", false, "blocks belong to an inter coding unit")
	predMode := fs.Int("pred-mode", 1, "intra prediction mode, for implicit RDPCM")
	ts := fs.Bool("ts", false, "blocks use transform skip")
	bypass := fs.Bool("bypass", false, "set cu_transquant_bypass_flag")
	dumpMetrics := fs.Bool("metrics", false, "print decode metrics in Prometheus text format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("residual: missing input file\nUsage: hevcres residual [options] <input>")
	}

	cfg, err := sf.load(fs)
	if err != nil {
		return err
	}
	log := config.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	p, err := cfg.Params()
	if err != nil {
		return errors.Wrap(err, "residual")
	}

	log2Size, err := parseLog2Size(*size)
	if err != nil {
		return errors.Wrap(err, "residual")
	}
	dir, err := parseScan(log2Size, *dirName)
	if err != nil {
		return errors.Wrap(err, "residual")
	}
	if *cIdx < 0 || *cIdx > 2 {
		return errors.Errorf("residual: colour component %d", *cIdx)
	}

	in, err := openInput(fs.Arg(0))
	if err != nil {
		return err
	}
	payload, err := io.ReadAll(in)
	in.Close()
	if err != nil {
		return errors.Wrap(err, "residual: reading input")
	}

	reg := prometheus.NewRegistry()
	opts := []hevc.Option{hevc.WithLogger(log)}
	if *dumpMetrics {
		opts = append(opts, hevc.WithMetrics(hevc.NewMetrics(reg)))
	}

	tb := &hevc.TransformBlock{
		Block: hevc.Block{
			Log2Size:      log2Size,
			CIdx:          *cIdx,
			ScanDir:       dir,
			TransformSkip: *ts,
			Bypass:        *bypass,
			Intra:         !*inter,
			IntraPredMode: *predMode,
		},
		QPY: p.QP,
	}
	decodeErr := decodeBlocks(w, log, payload, p, tb, *count, opts)

	if *dumpMetrics {
		if err := writeMetrics(w, reg); err != nil {
			return err
		}
	}
	return decodeErr
}

func decodeBlocks(w io.Writer, log zerolog.Logger, payload []byte, p *hevc.SliceParams, tb *hevc.TransformBlock, count int, opts []hevc.Option) error {
	seg, err := hevc.NewSegment(payload, p, opts...)
	if err != nil {
		return errors.Wrap(err, "residual")
	}
	q := seg.QuantParams(tb)
	fmt.Fprintf(w, "slice %v qp %d, block qp %d shift %d\n", p.SliceType, p.QP, q.QP, q.Shift)

	side := 1 << uint(tb.Log2Size)
	for i := 0; i < count; i++ {
		buf, n, err := seg.DecodeResidualPooled(tb)
		if err != nil && buf == nil {
			return errors.Wrapf(err, "residual: block %d", i)
		}
		if err != nil {
			log.Warn().Err(err).Int("block", i).Msg("malformed residual, continuing")
		}
		fmt.Fprintf(w, "block %d: %dx%d c%d, %d coefficients\n", i, side, side, tb.CIdx, n)
		for y := 0; y < side; y++ {
			var sb strings.Builder
			for x := 0; x < side; x++ {
				fmt.Fprintf(&sb, "%7d", buf[y*side+x])
			}
			fmt.Fprintln(w, sb.String())
		}
		hevc.ReleaseCoeffs(buf)
	}
	return nil
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	mfs, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
