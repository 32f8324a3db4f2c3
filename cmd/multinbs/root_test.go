package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// testCohort writes a small two-block cohort: network, mutation list and
// clinical follow-up, plus a config tuned so the pipeline finishes fast.
func testCohort(t *testing.T) (configPath, networkPath, profilePath, clinicalPath, outDir string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	networkPath = writeFile(t, dir, "network.tsv",
		"g1\tg2\n"+
			"g3\tg4\n")

	var muts strings.Builder
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&muts, "b1s%d\tg1\nb1s%d\tg2\n", i, i)
		fmt.Fprintf(&muts, "b2s%d\tg3\nb2s%d\tg4\n", i, i)
	}
	profilePath = writeFile(t, dir, "mutations.txt", muts.String())

	var clin strings.Builder
	clin.WriteString("sample\tvital_status\toverall_survival\n")
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&clin, "b1s%d\t1\t%d\n", i, 100*i)
		fmt.Fprintf(&clin, "b2s%d\t1\t%d\n", i, 700+100*i)
	}
	clinicalPath = writeFile(t, dir, "clinical.tsv", clin.String())

	outDir = filepath.Join(dir, "results")
	configPath = writeFile(t, dir, "config.toml", fmt.Sprintf(`
[paths]
outdir = %q
data_dir = %q

[factorization]
clusters = 2
k_nearest_neighbors = 1
lambda = 0.5
max_iterations = 60

[consensus]
iterations = 5
sample_fraction = 1.0
gene_fraction = 1.0
min_row_sum = 0.0
workers = 2
seed = 7
`, outDir, filepath.Join(dir, "data")))
	return configPath, networkPath, profilePath, clinicalPath, outDir
}

func TestRunCommandEndToEnd(t *testing.T) {
	configPath, network, profile, clinical, outDir := testCohort(t)

	out, err := runCLI(t,
		"--config", configPath,
		"run",
		"--network", network,
		"--profile", profile,
		"--profile-format", "list",
		"--clinical", clinical,
		"--name", "two-blocks")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Run ID:") {
		t.Errorf("output missing run ID:\n%s", out)
	}
	if !strings.Contains(out, "Log-rank:") {
		t.Errorf("output missing log-rank summary:\n%s", out)
	}

	for _, name := range []string{"assignments.tsv", "consensus.tsv", "survival.tsv"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected output %s: %v", name, err)
		}
	}

	samples, labels, err := readAssignmentsTSV(filepath.Join(outDir, "assignments.tsv"))
	if err != nil {
		t.Fatalf("read assignments: %v", err)
	}
	if len(samples) != 8 || len(labels) != 8 {
		t.Fatalf("assignments hold %d samples, want 8", len(samples))
	}

	// The run must be queryable from the ledger afterwards.
	list, err := runCLI(t, "--config", configPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v\n%s", err, list)
	}
	if !strings.Contains(list, "two-blocks") || !strings.Contains(list, "completed") {
		t.Errorf("ledger listing missing the completed run:\n%s", list)
	}
}

func TestRunCommandRequiresInputs(t *testing.T) {
	configPath, _, profile, _, _ := testCohort(t)
	out, err := runCLI(t, "--config", configPath, "run", "--profile", profile)
	if err == nil {
		t.Fatalf("expected error without a network, got:\n%s", out)
	}
	if !strings.Contains(err.Error(), "network") {
		t.Errorf("error should name the missing network: %v", err)
	}
}

func TestRunCommandRecordsFailure(t *testing.T) {
	configPath, network, _, _, _ := testCohort(t)
	dir := t.TempDir()
	// Profile genes share nothing with the network, so the run must fail
	// and the ledger must say so.
	profile := writeFile(t, dir, "disjoint.txt", "s1\tzz1\ns2\tzz2\ns3\tzz1\ns4\tzz2\n")

	out, err := runCLI(t,
		"--config", configPath,
		"run", "--network", network, "--profile", profile, "--name", "doomed")
	if err == nil {
		t.Fatalf("expected the run to fail, got:\n%s", out)
	}

	list, err := runCLI(t, "--config", configPath, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	if !strings.Contains(list, "failed") {
		t.Errorf("ledger should show the failed run:\n%s", list)
	}
}

func TestPropagateCommand(t *testing.T) {
	configPath, network, profile, _, _ := testCohort(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "smoothed.tsv")
	kernelPath := filepath.Join(dir, "kernel.tsv")

	out, err := runCLI(t,
		"--config", configPath,
		"propagate",
		"--network", network,
		"--profile", profile,
		"--profile-format", "list",
		"--out", outPath,
		"--save-kernel", kernelPath)
	if err != nil {
		t.Fatalf("propagate: %v\n%s", err, out)
	}
	for _, p := range []string{outPath, kernelPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected output %s: %v", p, err)
		}
	}
}

func TestNetworkFilterCommand(t *testing.T) {
	configPath, _, _, _, _ := testCohort(t)
	dir := t.TempDir()
	in := writeFile(t, dir, "weighted.tsv",
		"g1\tg2\t0.1\n"+
			"g2\tg3\t0.5\n"+
			"g3\tg4\t0.9\n"+
			"g4\tg5\t0.7\n")
	outPath := filepath.Join(dir, "filtered.tsv")

	out, err := runCLI(t, "--config", configPath,
		"network", "filter", "--in", in, "--out", outPath, "--quantile", "0.5")
	if err != nil {
		t.Fatalf("network filter: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Kept") {
		t.Errorf("missing kept-edge summary:\n%s", out)
	}
	body, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read filtered list: %v", err)
	}
	if strings.Contains(string(body), "0.1") {
		t.Errorf("low-score edge survived the filter:\n%s", body)
	}
}

func TestNetworkShuffleCommand(t *testing.T) {
	configPath, network, _, _, _ := testCohort(t)
	dir := t.TempDir()
	outPath := filepath.Join(dir, "shuffled.tsv")

	for _, mode := range []string{"degree", "label"} {
		out, err := runCLI(t, "--config", configPath,
			"network", "shuffle", "--in", network, "--out", outPath, "--mode", mode, "--seed", "3")
		if err != nil {
			t.Fatalf("network shuffle %s: %v\n%s", mode, err, out)
		}
		body, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("read shuffled list: %v", err)
		}
		if len(strings.Split(strings.TrimSpace(string(body)), "\n")) != 2 {
			t.Errorf("%s shuffle changed the edge count:\n%s", mode, body)
		}
	}

	if _, err := runCLI(t, "--config", configPath,
		"network", "shuffle", "--in", network, "--out", outPath, "--mode", "chaos"); err == nil {
		t.Error("expected error for unknown shuffle mode")
	}
}

func TestMAFConvertCommand(t *testing.T) {
	configPath, _, _, _, _ := testCohort(t)
	dir := t.TempDir()
	maf := writeFile(t, dir, "calls.maf",
		"Hugo_Symbol\tEntrez_Gene_Id\tTumor_Sample_Barcode\n"+
			"TP53\t7157\tTCGA-AB-0001-01A\n"+
			"KRAS\t3845\tTCGA-AB-0001-01A\n"+
			"TP53\t7157\tTCGA-AB-0002-01A\n")
	outPath := filepath.Join(dir, "mutations.tsv")

	out, err := runCLI(t, "--config", configPath,
		"maf", "convert", "--in", maf, "--out", outPath, "--format", "matrix")
	if err != nil {
		t.Fatalf("maf convert: %v\n%s", err, out)
	}
	body, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read converted matrix: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "TCGA-AB-0001") || !strings.Contains(text, "TP53") {
		t.Errorf("converted matrix missing expected rows/columns:\n%s", text)
	}
	if strings.Contains(text, "TCGA-AB-0001-01A") {
		t.Errorf("barcodes should be trimmed to 12 characters:\n%s", text)
	}
}

func TestSurvivalCommand(t *testing.T) {
	configPath, _, _, clinical, _ := testCohort(t)
	dir := t.TempDir()
	var assigns strings.Builder
	assigns.WriteString("sample\tcluster\n")
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&assigns, "b1s%d\t1\n", i)
		fmt.Fprintf(&assigns, "b2s%d\t2\n", i)
	}
	assignPath := writeFile(t, dir, "assignments.tsv", assigns.String())

	out, err := runCLI(t, "--config", configPath,
		"survival", "--assignments", assignPath, "--clinical", clinical)
	if err != nil {
		t.Fatalf("survival: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Log-rank:") {
		t.Errorf("missing log-rank line:\n%s", out)
	}

	jsonOut, err := runCLI(t, "--config", configPath,
		"survival", "--assignments", assignPath, "--clinical", clinical, "--json")
	if err != nil {
		t.Fatalf("survival --json: %v\n%s", err, jsonOut)
	}
	if !strings.Contains(jsonOut, `"chi_square"`) {
		t.Errorf("JSON output missing chi_square:\n%s", jsonOut)
	}
}

func TestCombineCommand(t *testing.T) {
	configPath, _, profile, _, _ := testCohort(t)
	dir := t.TempDir()

	var expr strings.Builder
	expr.WriteString("\tg1\tg2\tg3\tg4\n")
	for i := 1; i <= 4; i++ {
		fmt.Fprintf(&expr, "b1s%d\t%d\t%d\t1\t1\n", i, i, 5-i)
		fmt.Fprintf(&expr, "b2s%d\t1\t1\t%d\t%d\n", i, i, 5-i)
	}
	exprPath := writeFile(t, dir, "expression.tsv", expr.String())
	outPath := filepath.Join(dir, "combined.tsv")

	out, err := runCLI(t, "--config", configPath,
		"combine",
		"--mutations", profile,
		"--expression", exprPath,
		"--out", outPath,
		"--beta", "0.8")
	if err != nil {
		t.Fatalf("combine: %v\n%s", err, out)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("expected combined profile: %v", err)
	}
}

func TestRunsShowAndDelete(t *testing.T) {
	configPath, network, profile, _, _ := testCohort(t)

	out, err := runCLI(t, "--config", configPath,
		"run", "--network", network, "--profile", profile, "--profile-format", "list",
		"--name", "inspect-me")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	idLine := ""
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Run ID:") {
			idLine = strings.TrimSpace(strings.TrimPrefix(line, "Run ID:"))
		}
	}
	if idLine == "" {
		t.Fatalf("no run ID in output:\n%s", out)
	}

	show, err := runCLI(t, "--config", configPath, "runs", "show", idLine)
	if err != nil {
		t.Fatalf("runs show: %v\n%s", err, show)
	}
	if !strings.Contains(show, "inspect-me") || !strings.Contains(show, "completed") {
		t.Errorf("show output incomplete:\n%s", show)
	}

	del, err := runCLI(t, "--config", configPath, "runs", "delete", idLine)
	if err != nil {
		t.Fatalf("runs delete: %v\n%s", err, del)
	}
	if _, err := runCLI(t, "--config", configPath, "runs", "show", idLine); err == nil {
		t.Error("expected error showing a deleted run")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	out, err := runCLI(t, "config", "init")
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	target := filepath.Join(dir, ".config", "multinbs", "config.toml")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}
	if _, err := runCLI(t, "config", "init"); err == nil {
		t.Error("expected error when the config already exists")
	}

	show, err := runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v\n%s", err, show)
	}
	for _, want := range []string{"[propagation]", "[factorization]", "[consensus]"} {
		if !strings.Contains(show, want) {
			t.Errorf("config show missing %s:\n%s", want, show)
		}
	}
}

func TestUnknownCommandFails(t *testing.T) {
	if _, err := runCLI(t, "does-not-exist"); err == nil {
		t.Error("expected error for unknown subcommand")
	}
}
