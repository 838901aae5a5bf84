// Package vibecheck implements the Vibe Check static analyzer (spec
// component J): a CI-gate style scan for function/file size, cyclomatic
// complexity, nesting depth, parameter count, duplication, and anti-pattern
// text, over Go source (spec §4.9 generalizes the original Python-AST
// checker to the language this orchestrator and its agents actually write).
package vibecheck

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jaakkos/orchestrator/internal/config"
	"github.com/jaakkos/orchestrator/internal/domain"
	"github.com/jaakkos/orchestrator/internal/rules"
)

// Result is the overall gate verdict.
type Result string

const (
	ResultPass    Result = "pass"
	ResultWarning Result = "warning"
	ResultFail    Result = "fail"
)

// Report is the outcome of a check run over one or more files.
type Report struct {
	Result     Result            `json:"result"`
	TotalFiles int               `json:"total_files"`
	Violations []domain.Violation `json:"violations"`
	Timestamp  time.Time         `json:"timestamp"`
	AgentAuthor string           `json:"agent_author,omitempty"`
}

// Checker runs the vibe check against a configured set of thresholds.
type Checker struct {
	cfg          config.VibeCheckConfig
	antiPatterns []domain.AntiPattern
}

// New builds a Checker from the configured thresholds.
func New(cfg config.VibeCheckConfig) *Checker {
	return &Checker{cfg: cfg, antiPatterns: rules.DefaultAntiPatterns()}
}

// CheckFile runs every check against a single Go source file on disk.
func (c *Checker) CheckFile(path, agentAuthor string) Report {
	content, err := os.ReadFile(path)
	if err != nil {
		return Report{
			Result:      ResultFail,
			TotalFiles:  1,
			Timestamp:   time.Now(),
			AgentAuthor: agentAuthor,
			Violations: []domain.Violation{{
				Category:    "vibe",
				File:        path,
				Type:        "read_error",
				Severity:    domain.SeverityError,
				Description: fmt.Sprintf("failed to read file: %v", err),
				Suggestion:  "check file accessibility",
			}},
		}
	}
	return c.checkContent(path, content, agentAuthor, c.cfg.StrictMode)
}

// CheckSource runs every check against in-memory source, for callers (such
// as the PR Review Protocol) reviewing a proposed change that may not yet
// be written to disk.
func (c *Checker) CheckSource(path, content, agentAuthor string) Report {
	return c.checkContent(path, []byte(content), agentAuthor, c.cfg.StrictMode)
}

// CheckSourceStrict is CheckSource with strict mode forced on regardless of
// the configured threshold, for gates that must treat any warning as
// blocking (spec §4.9 run in strict mode).
func (c *Checker) CheckSourceStrict(path, content, agentAuthor string) Report {
	return c.checkContent(path, []byte(content), agentAuthor, true)
}

func (c *Checker) checkContent(path string, content []byte, agentAuthor string, strict bool) Report {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return Report{
			Result:      ResultFail,
			TotalFiles:  1,
			Timestamp:   time.Now(),
			AgentAuthor: agentAuthor,
			Violations: []domain.Violation{{
				Category:    "vibe",
				File:        path,
				Type:        "syntax_error",
				Severity:    domain.SeverityError,
				Description: fmt.Sprintf("syntax error: %v", err),
				Suggestion:  "fix syntax errors before running vibe check",
			}},
		}
	}

	var violations []domain.Violation
	violations = append(violations, c.checkFunctions(fset, path, node)...)
	violations = append(violations, c.checkFileLength(path, content)...)
	violations = append(violations, c.checkDuplication(path, content)...)
	violations = append(violations, c.checkAntiPatterns(path, content)...)

	return Report{
		Result:      overallResult(violations, strict),
		TotalFiles:  1,
		Violations:  violations,
		Timestamp:   time.Now(),
		AgentAuthor: agentAuthor,
	}
}

// CheckDirectory walks every .go file under dir and aggregates the findings.
func (c *Checker) CheckDirectory(dir, agentAuthor string) Report {
	var all []domain.Violation
	total := 0
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		total++
		r := c.CheckFile(path, agentAuthor)
		all = append(all, r.Violations...)
		return nil
	})
	return Report{
		Result:      overallResult(all, c.cfg.StrictMode),
		TotalFiles:  total,
		Violations:  all,
		Timestamp:   time.Now(),
		AgentAuthor: agentAuthor,
	}
}

func overallResult(violations []domain.Violation, strict bool) Result {
	hasError, hasWarning := false, false
	for _, v := range violations {
		switch v.Severity {
		case domain.SeverityError:
			hasError = true
		case domain.SeverityWarning:
			hasWarning = true
		}
	}
	switch {
	case hasError:
		return ResultFail
	case hasWarning && strict:
		return ResultFail
	case hasWarning:
		return ResultWarning
	default:
		return ResultPass
	}
}

func (c *Checker) checkFunctions(fset *token.FileSet, path string, node *ast.File) []domain.Violation {
	maxLines := nonZero(c.cfg.MaxFunctionLines, 30)
	maxComplexity := nonZero(c.cfg.MaxComplexity, 8)
	maxNesting := nonZero(c.cfg.MaxNestingDepth, 3)
	maxParams := nonZero(c.cfg.MaxParameters, 5)

	var violations []domain.Violation
	for _, decl := range node.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		name := fn.Name.Name
		start := fset.Position(fn.Pos())
		end := fset.Position(fn.End())
		lines := end.Line - start.Line + 1

		if lines > maxLines {
			violations = append(violations, domain.Violation{
				Category: "vibe", File: path, Line: start.Line, Type: "function_length",
				Severity: domain.SeverityWarning,
				Description: fmt.Sprintf("function %s is %d lines (limit %d)", name, lines, maxLines),
				Suggestion: "split into smaller, single-purpose functions",
			})
		}

		params := 0
		if fn.Type.Params != nil {
			for _, field := range fn.Type.Params.List {
				n := len(field.Names)
				if n == 0 {
					n = 1
				}
				params += n
			}
		}
		if params > maxParams {
			violations = append(violations, domain.Violation{
				Category: "vibe", File: path, Line: start.Line, Type: "parameter_count",
				Severity: domain.SeverityWarning,
				Description: fmt.Sprintf("function %s has %d parameters (limit %d)", name, params, maxParams),
				Suggestion: "group related parameters into a struct",
			})
		}

		complexity := cyclomaticComplexity(fn.Body)
		if complexity > maxComplexity {
			violations = append(violations, domain.Violation{
				Category: "vibe", File: path, Line: start.Line, Type: "complexity_score",
				Severity: domain.SeverityWarning,
				Description: fmt.Sprintf("function %s has cyclomatic complexity %d (limit %d)", name, complexity, maxComplexity),
				Suggestion: "extract branches into named helper functions",
			})
		}

		depth := maxNestingDepth(fn.Body, 0)
		if depth > maxNesting {
			violations = append(violations, domain.Violation{
				Category: "vibe", File: path, Line: start.Line, Type: "nesting_depth",
				Severity: domain.SeverityWarning,
				Description: fmt.Sprintf("function %s nests %d levels deep (limit %d)", name, depth, maxNesting),
				Suggestion: "invert conditions or extract nested blocks into helpers",
			})
		}
	}
	return violations
}

// cyclomaticComplexity counts decision points plus one, the standard
// McCabe measure: if/for/case/&&/||  each add one branch.
func cyclomaticComplexity(body ast.Node) int {
	complexity := 1
	ast.Inspect(body, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.IfStmt:
			complexity++
		case *ast.ForStmt:
			complexity++
		case *ast.RangeStmt:
			complexity++
		case *ast.CaseClause:
			if len(v.List) > 0 {
				complexity++
			}
		case *ast.CommClause:
			complexity++
		case *ast.BinaryExpr:
			if v.Op == token.LAND || v.Op == token.LOR {
				complexity++
			}
		}
		return true
	})
	return complexity
}

// maxNestingDepth walks block statements, counting how deep if/for/switch
// blocks nest inside one another.
func maxNestingDepth(n ast.Node, current int) int {
	deepest := current
	switch v := n.(type) {
	case *ast.BlockStmt:
		for _, stmt := range v.List {
			if d := nestingOf(stmt, current); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}

func nestingOf(stmt ast.Stmt, current int) int {
	switch v := stmt.(type) {
	case *ast.IfStmt:
		d := maxNestingDepth(v.Body, current+1)
		if v.Else != nil {
			if ed := nestingOf(v.Else, current+1); ed > d {
				d = ed
			}
		}
		return d
	case *ast.ForStmt:
		return maxNestingDepth(v.Body, current+1)
	case *ast.RangeStmt:
		return maxNestingDepth(v.Body, current+1)
	case *ast.SwitchStmt:
		deepest := current + 1
		for _, c := range v.Body.List {
			if cc, ok := c.(*ast.CaseClause); ok {
				for _, s := range cc.Body {
					if d := nestingOf(s, current+1); d > deepest {
						deepest = d
					}
				}
			}
		}
		return deepest
	case *ast.BlockStmt:
		return maxNestingDepth(v, current)
	default:
		return current
	}
}

func (c *Checker) checkFileLength(path string, content []byte) []domain.Violation {
	maxLines := nonZero(c.cfg.MaxFileLines, 300)
	lines := strings.Count(string(content), "\n") + 1
	if lines <= maxLines {
		return nil
	}
	return []domain.Violation{{
		Category: "vibe", File: path, Type: "file_length",
		Severity:    domain.SeverityWarning,
		Description: fmt.Sprintf("file is %d lines (limit %d)", lines, maxLines),
		Suggestion:  "split into multiple focused files",
	}}
}

// checkDuplication flags identical lines (trimmed, at least DuplicateMinLen
// characters) that occur anywhere in the file more than DuplicateMaxCount
// times, a cheap proxy for copy-paste blocks.
func (c *Checker) checkDuplication(path string, content []byte) []domain.Violation {
	minLen := nonZero(c.cfg.DuplicateMinLen, 20)
	maxCount := nonZero(c.cfg.DuplicateMaxCount, 3)

	lines := strings.Split(string(content), "\n")
	counts := make(map[string]int)
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if len(trimmed) < minLen {
			continue
		}
		counts[trimmed]++
	}

	var repeated []string
	for line, n := range counts {
		if n > maxCount {
			repeated = append(repeated, line)
		}
	}
	if len(repeated) == 0 {
		return nil
	}
	sort.Strings(repeated)
	var violations []domain.Violation
	for _, line := range repeated {
		violations = append(violations, domain.Violation{
			Category: "duplication", File: path, Type: "repeated_line",
			Severity:    domain.SeverityWarning,
			Description: fmt.Sprintf("line repeated %d+ times: %.60q", counts[line], line),
			Suggestion:  "extract the repeated logic into a shared helper",
		})
	}
	return violations
}

func (c *Checker) checkAntiPatterns(path string, content []byte) []domain.Violation {
	lower := strings.ToLower(string(content))
	var violations []domain.Violation
	for _, ap := range c.antiPatterns {
		for _, m := range ap.Manifestations {
			if strings.Contains(lower, m) {
				sev := domain.SeverityWarning
				if ap.Severity == domain.AntiPatternCritical {
					sev = domain.SeverityError
				}
				violations = append(violations, domain.Violation{
					Category: "vibe", File: path, Type: "anti_pattern_" + ap.Name,
					Severity:    sev,
					Description: fmt.Sprintf("possible %s: %s", ap.Name, m),
					Suggestion:  "review against KISS/YAGNI before merging",
				})
			}
		}
	}
	return violations
}

func nonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
