package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deepteams/hevc/internal/cabac/cabactest"
	"github.com/deepteams/hevc/internal/ctxtable"
)

// binaryPath holds the path to the compiled hevcres binary. Set in TestMain.
var binaryPath string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "hevcres-test-bin-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "hevcres")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		// Mark binary as empty so tests skip gracefully.
		binaryPath = ""
	}

	os.Exit(m.Run())
}

// skipIfNoBinary skips the test when the binary was not built.
func skipIfNoBinary(t *testing.T) {
	t.Helper()
	if binaryPath == "" {
		t.Skip("hevcres binary not built; skipping")
	}
}

// runHevcres executes hevcres with the given arguments and optional stdin
// data.
func runHevcres(t *testing.T, stdin []byte, args ...string) (stdout, stderr []byte, err error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// dcPayload encodes one 4x4 intra luma block whose only coefficient is a
// DC level of 1, followed by end_of_slice_segment_flag.
func dcPayload(qp int) []byte {
	tbl := ctxtable.New(0, qp)
	e := cabactest.NewEncoder()
	e.EncodeDecision(tbl.Ctx(ctxtable.LastSigCoeffXPrefix, 0), 0)
	e.EncodeDecision(tbl.Ctx(ctxtable.LastSigCoeffYPrefix, 0), 0)
	e.EncodeDecision(tbl.Ctx(ctxtable.CoeffAbsLevelGreater1, 1), 0)
	e.EncodeBypass(0)
	return e.Finish()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func lines(out []byte) []string {
	return strings.Split(strings.TrimRight(string(out), "\n"), "\n")
}

// --- ctx ---

func TestCtx_Element(t *testing.T) {
	skipIfNoBinary(t)
	stdout, stderr, err := runHevcres(t, nil, "ctx", "-element", "split_cu_flag")
	if err != nil {
		t.Fatalf("ctx failed: %v\nstderr: %s", err, stderr)
	}
	got := lines(stdout)
	want := []string{
		"slice I qp 26 initType 0",
		"split_cu_flag[0] state=63 mps=0",
	}
	if len(got) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(got), stdout)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("line %d = %q, want %q", i, got[i], w)
		}
	}
}

func TestCtx_NeutralContext(t *testing.T) {
	skipIfNoBinary(t)
	stdout, _, err := runHevcres(t, nil, "ctx", "-element", "cu_transquant_bypass_flag")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, string(stdout), "cu_transquant_bypass_flag[0] state=62 mps=0", "neutral context")
}

func TestCtx_AllElements(t *testing.T) {
	skipIfNoBinary(t)
	stdout, _, err := runHevcres(t, nil, "ctx", "-slice", "B", "-cabac-init")
	if err != nil {
		t.Fatal(err)
	}
	got := lines(stdout)
	if got[0] != "slice B qp 26 initType 1" {
		t.Errorf("header = %q", got[0])
	}
	if len(got) != ctxtable.NumContexts+1 {
		t.Errorf("got %d context lines, want %d", len(got)-1, ctxtable.NumContexts)
	}
}

func TestCtx_ConfigFile(t *testing.T) {
	skipIfNoBinary(t)
	path := writeFile(t, "slice.yaml", []byte("slice_type: P\nqp: 32\n"))

	stdout, stderr, err := runHevcres(t, nil, "ctx", "-config", path, "-element", "part_mode")
	if err != nil {
		t.Fatalf("ctx failed: %v\nstderr: %s", err, stderr)
	}
	assertContains(t, string(stdout), "slice P qp 32 initType 1", "config file values")

	// Flags override the file.
	stdout, _, err = runHevcres(t, nil, "ctx", "-config", path, "-qp", "20", "-element", "part_mode")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, string(stdout), "slice P qp 20 initType 1", "flag override")
}

func TestCtx_Errors(t *testing.T) {
	skipIfNoBinary(t)
	for _, args := range [][]string{
		{"ctx", "-element", "no_such_flag"},
		{"ctx", "-qp", "52"},
		{"ctx", "-slice", "X"},
		{"ctx", "-config", filepath.Join(t.TempDir(), "missing.json")},
	} {
		_, stderr, err := runHevcres(t, nil, args...)
		if err == nil {
			t.Errorf("%v: expected non-zero exit", args)
			continue
		}
		assertContains(t, string(stderr), "hevcres:", "error prefix")
	}
}

// --- scan ---

func TestScan_Diagonal4x4(t *testing.T) {
	skipIfNoBinary(t)
	stdout, _, err := runHevcres(t, nil, "scan")
	if err != nil {
		t.Fatal(err)
	}
	got := lines(stdout)
	want := [][]string{
		{"0", "2", "5", "9"},
		{"1", "4", "8", "12"},
		{"3", "7", "11", "14"},
		{"6", "10", "13", "15"},
	}
	if len(got) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(got), stdout)
	}
	for y, w := range want {
		if f := strings.Fields(got[y+1]); strings.Join(f, " ") != strings.Join(w, " ") {
			t.Errorf("row %d = %v, want %v", y, f, w)
		}
	}
}

func TestScan_Horizontal8x8(t *testing.T) {
	skipIfNoBinary(t)
	stdout, _, err := runHevcres(t, nil, "scan", "-size", "8", "-dir", "horizontal")
	if err != nil {
		t.Fatal(err)
	}
	got := lines(stdout)
	if got[0] != "8x8 horizontal, 4 coefficient groups" {
		t.Errorf("header = %q", got[0])
	}
	if f := strings.Fields(got[1]); f[0] != "0" || f[4] != "16" {
		t.Errorf("first row = %v", f)
	}
}

func TestScan_Errors(t *testing.T) {
	skipIfNoBinary(t)
	for _, args := range [][]string{
		{"scan", "-size", "16", "-dir", "vertical"},
		{"scan", "-size", "6"},
		{"scan", "-dir", "zigzag"},
	} {
		if _, _, err := runHevcres(t, nil, args...); err == nil {
			t.Errorf("%v: expected non-zero exit", args)
		}
	}
}

// --- residual ---

func TestResidual_DC(t *testing.T) {
	skipIfNoBinary(t)
	path := writeFile(t, "dc.bin", dcPayload(26))

	stdout, stderr, err := runHevcres(t, nil, "residual", path)
	if err != nil {
		t.Fatalf("residual failed: %v\nstderr: %s", err, stderr)
	}
	got := lines(stdout)
	if len(got) != 6 {
		t.Fatalf("got %d lines, want 6:\n%s", len(got), stdout)
	}
	if got[1] != "block 0: 4x4 c0, 1 coefficients" {
		t.Errorf("block line = %q", got[1])
	}
	if f := strings.Fields(got[2]); strings.Join(f, " ") != "408 0 0 0" {
		t.Errorf("first row = %v, want [408 0 0 0]", f)
	}
}

func TestResidual_Stdin(t *testing.T) {
	skipIfNoBinary(t)
	stdout, _, err := runHevcres(t, dcPayload(26), "residual", "-")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, string(stdout), "1 coefficients", "stdin payload")
}

func TestResidual_Metrics(t *testing.T) {
	skipIfNoBinary(t)
	path := writeFile(t, "dc.bin", dcPayload(26))

	stdout, _, err := runHevcres(t, nil, "residual", "-metrics", path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(stdout)
	assertContains(t, out, `hevc_transform_blocks_decoded_total{channel="luma"} 1`, "blocks metric")
	assertContains(t, out, "hevc_coefficients_decoded_total 1", "coefficients metric")
	assertContains(t, out, "hevc_segments_started_total 1", "segments metric")
}

func TestResidual_Truncated(t *testing.T) {
	skipIfNoBinary(t)
	path := writeFile(t, "short.bin", []byte{0x00})

	_, stderr, err := runHevcres(t, nil, "residual", path)
	if err == nil {
		t.Fatal("expected non-zero exit for a truncated payload")
	}
	assertContains(t, string(stderr), "stream exhausted", "exhaustion error")
}

func TestResidual_MissingInput(t *testing.T) {
	skipIfNoBinary(t)
	if _, _, err := runHevcres(t, nil, "residual"); err == nil {
		t.Fatal("expected non-zero exit for missing input")
	}
}

// --- general ---

func TestUnknownCommand(t *testing.T) {
	skipIfNoBinary(t)
	if _, _, err := runHevcres(t, nil, "badcmd"); err == nil {
		t.Fatal("expected non-zero exit for unknown command, got nil")
	}
}

func TestNoArgs(t *testing.T) {
	skipIfNoBinary(t)
	if _, _, err := runHevcres(t, nil); err == nil {
		t.Fatal("expected non-zero exit for no arguments, got nil")
	}
}

func TestHelp(t *testing.T) {
	skipIfNoBinary(t)
	_, stderr, err := runHevcres(t, nil, "-h")
	if err != nil {
		t.Fatalf("expected zero exit for -h, got: %v", err)
	}
	out := string(stderr)
	assertContains(t, out, "hevcres ctx", "expected usage text for ctx")
	assertContains(t, out, "hevcres residual", "expected usage text for residual")
}

// --- helper ---

func assertContains(t *testing.T, haystack, needle, msg string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("%s: %q not found in output:\n%s", msg, needle, haystack)
	}
}
