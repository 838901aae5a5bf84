package vibecheck

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
)

func writeGoFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func defaultChecker() *Checker {
	return New(config.VibeCheckConfig{
		MaxFunctionLines:  30,
		MaxComplexity:     8,
		MaxNestingDepth:   3,
		MaxParameters:     5,
		MaxFileLines:      300,
		DuplicateMinLen:   20,
		DuplicateMaxCount: 3,
	})
}

const cleanSource = `package sample

func Add(a, b int) int {
	return a + b
}
`

func TestCheckFileCleanSourcePasses(t *testing.T) {
	dir := t.TempDir()
	path := writeGoFile(t, dir, "clean.go", cleanSource)
	report := defaultChecker().CheckFile(path, "agent-a")
	if report.Result != ResultPass {
		t.Fatalf("Result = %v, want pass; violations=%v", report.Result, report.Violations)
	}
	if report.TotalFiles != 1 {
		t.Errorf("TotalFiles = %d, want 1", report.TotalFiles)
	}
}

func TestCheckFileSyntaxErrorFails(t *testing.T) {
	dir := t.TempDir()
	path := writeGoFile(t, dir, "broken.go", "package sample\nfunc broken( {\n")
	report := defaultChecker().CheckFile(path, "agent-a")
	if report.Result != ResultFail {
		t.Fatalf("Result = %v, want fail", report.Result)
	}
	if len(report.Violations) != 1 || report.Violations[0].Type != "syntax_error" {
		t.Fatalf("Violations = %v, want single syntax_error", report.Violations)
	}
}

func TestCheckFileMissingFileFails(t *testing.T) {
	report := defaultChecker().CheckFile(filepath.Join(t.TempDir(), "missing.go"), "agent-a")
	if report.Result != ResultFail {
		t.Fatalf("Result = %v, want fail", report.Result)
	}
	if report.Violations[0].Type != "read_error" {
		t.Fatalf("Violations[0].Type = %q, want read_error", report.Violations[0].Type)
	}
}

func TestCheckFileTooManyParameters(t *testing.T) {
	dir := t.TempDir()
	src := `package sample

func six(a, b, c, d, e, f int) int {
	return a + b + c + d + e + f
}
`
	path := writeGoFile(t, dir, "params.go", src)
	report := defaultChecker().CheckFile(path, "agent-a")
	if !hasViolationType(report.Violations, "parameter_count") {
		t.Fatalf("expected parameter_count violation, got %v", report.Violations)
	}
	if report.Result != ResultWarning {
		t.Fatalf("Result = %v, want warning", report.Result)
	}
}

func TestCheckFileComplexityExceeded(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("package sample\n\nfunc classify(n int) string {\n")
	for i := 0; i < 10; i++ {
		b.WriteString("\tif n == ")
		b.WriteString(strconv.Itoa(i))
		b.WriteString(" {\n\t\treturn \"x\"\n\t}\n")
	}
	b.WriteString("\treturn \"y\"\n}\n")
	path := writeGoFile(t, dir, "complex.go", b.String())
	report := defaultChecker().CheckFile(path, "agent-a")
	if !hasViolationType(report.Violations, "complexity_score") {
		t.Fatalf("expected complexity_score violation, got %v", report.Violations)
	}
}

func TestCheckFileNestingDepthExceeded(t *testing.T) {
	dir := t.TempDir()
	src := `package sample

func deep(n int) int {
	if n > 0 {
		if n > 1 {
			if n > 2 {
				if n > 3 {
					return n
				}
			}
		}
	}
	return 0
}
`
	path := writeGoFile(t, dir, "nested.go", src)
	report := defaultChecker().CheckFile(path, "agent-a")
	if !hasViolationType(report.Violations, "nesting_depth") {
		t.Fatalf("expected nesting_depth violation, got %v", report.Violations)
	}
}

func TestCheckFileFunctionLengthExceeded(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("package sample\n\nfunc long() int {\n\tx := 0\n")
	for i := 0; i < 35; i++ {
		b.WriteString("\tx++\n")
	}
	b.WriteString("\treturn x\n}\n")
	path := writeGoFile(t, dir, "long.go", b.String())
	report := defaultChecker().CheckFile(path, "agent-a")
	if !hasViolationType(report.Violations, "function_length") {
		t.Fatalf("expected function_length violation, got %v", report.Violations)
	}
}

func TestCheckFileDuplicationDetected(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString("package sample\n\nfunc repeats() {\n")
	for i := 0; i < 4; i++ {
		b.WriteString("\tdoSomethingRatherLongAndRepeatedHere()\n")
	}
	b.WriteString("}\n")
	path := writeGoFile(t, dir, "dup.go", b.String())
	report := defaultChecker().CheckFile(path, "agent-a")
	if !hasViolationType(report.Violations, "repeated_line") {
		t.Fatalf("expected repeated_line violation, got %v", report.Violations)
	}
}

func TestCheckFileAntiPatternDetected(t *testing.T) {
	dir := t.TempDir()
	src := `package sample

// creating interfaces before understanding requirements
func placeholder() {}
`
	path := writeGoFile(t, dir, "antipattern.go", src)
	report := defaultChecker().CheckFile(path, "agent-a")
	if !hasViolationType(report.Violations, "anti_pattern_premature_interface") {
		t.Fatalf("expected anti_pattern_premature_interface violation, got %v", report.Violations)
	}
	if report.Result != ResultFail {
		t.Fatalf("Result = %v, want fail (critical anti-pattern)", report.Result)
	}
}

func TestCheckFileStrictModePromotesWarningToFail(t *testing.T) {
	dir := t.TempDir()
	src := `package sample

func six(a, b, c, d, e, f int) int {
	return a + b + c + d + e + f
}
`
	path := writeGoFile(t, dir, "params.go", src)
	checker := New(config.VibeCheckConfig{
		MaxFunctionLines: 30, MaxComplexity: 8, MaxNestingDepth: 3, MaxParameters: 5,
		MaxFileLines: 300, DuplicateMinLen: 20, DuplicateMaxCount: 3, StrictMode: true,
	})
	report := checker.CheckFile(path, "agent-a")
	if report.Result != ResultFail {
		t.Fatalf("Result = %v, want fail under strict mode", report.Result)
	}
}

func TestCheckDirectoryAggregatesAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "clean.go", cleanSource)
	writeGoFile(t, dir, "params.go", `package sample

func six(a, b, c, d, e, f int) int {
	return a + b + c + d + e + f
}
`)
	report := defaultChecker().CheckDirectory(dir, "agent-a")
	if report.TotalFiles != 2 {
		t.Fatalf("TotalFiles = %d, want 2", report.TotalFiles)
	}
	if !hasViolationType(report.Violations, "parameter_count") {
		t.Fatalf("expected parameter_count violation across directory, got %v", report.Violations)
	}
}

func hasViolationType(violations []domain.Violation, typ string) bool {
	for _, v := range violations {
		if v.Type == typ {
			return true
		}
	}
	return false
}
