package metrics

import (
	"sort"
	"strings"

	"github.com/panbanda/pymetrics/pkg/engine"
)

// ClassSize carries per-class size and single-file object metrics.
type ClassSize struct {
	Name    string `json:"name"`
	Line    int    `json:"line"`
	Methods int    `json:"methods"`
	// WMC is methods times the file-wide average function complexity, not
	// the sum over this class's own methods.
	WMC float64 `json:"wmc_approximation"`
	DIT int     `json:"dit"`
	NOC int     `json:"noc"`
	CBO int     `json:"cbo"`
}

// SizeMetrics holds line, definition and import counts.
type SizeMetrics struct {
	PhysicalLines  int `json:"physical_lines"`
	LogicalLines   int `json:"logical_lines"`
	CommentLines   int `json:"comment_lines"`
	BlankLines     int `json:"blank_lines"`
	DocstringLines int `json:"docstring_lines"`

	FunctionCount int `json:"function_count"`
	MethodCount   int `json:"method_count"`
	ClassCount    int `json:"class_count"`

	TotalParameters   int     `json:"total_parameters"`
	AverageParameters float64 `json:"average_parameters"`
	MaxParameters     int     `json:"max_parameters"`

	AverageMethodsPerClass float64 `json:"average_methods_per_class"`
	MaxMethodsPerClass     int     `json:"max_methods_per_class"`

	ImportCount           int      `json:"import_count"`
	StdlibImportCount     int      `json:"stdlib_import_count"`
	ThirdPartyImportCount int      `json:"third_party_import_count"`
	LocalImportCount      int      `json:"local_import_count"`
	StdlibImports         []string `json:"stdlib_imports"`
	ThirdPartyImports     []string `json:"third_party_imports"`
	LocalImports          []string `json:"local_imports"`

	WMC        float64     `json:"wmc_approximation"`
	MaxDIT     int         `json:"max_dit"`
	MaxNOC     int         `json:"max_noc"`
	AverageCBO float64     `json:"average_cbo"`
	Classes    []ClassSize `json:"classes"`
}

// ImportClass is the origin of an imported module.
type ImportClass int

const (
	ImportStdlib ImportClass = iota
	ImportThirdParty
	ImportLocal
)

// ClassifyImport places one import into stdlib, third-party or local.
// Relative imports and configured local packages are local.
func ClassifyImport(imp engine.Import, localPackages []string) ImportClass {
	if imp.Level > 0 {
		return ImportLocal
	}
	top := topLevel(imp.Module)
	for _, pkg := range localPackages {
		if top == pkg {
			return ImportLocal
		}
	}
	if IsStdlib(imp.Module) {
		return ImportStdlib
	}
	return ImportThirdParty
}

// Size publishes line counts, definition counts, import origins and the
// single-file object metrics.
func Size(s *engine.Snapshot, opts Options) (*SizeMetrics, error) {
	l := s.Lines
	if l.Logical+l.Comment+l.Blank+l.Docstring != l.Physical {
		return nil, faultf("size", "line categories sum to %d, want %d",
			l.Logical+l.Comment+l.Blank+l.Docstring, l.Physical)
	}

	m := &SizeMetrics{
		PhysicalLines:     l.Physical,
		LogicalLines:      l.Logical,
		CommentLines:      l.Comment,
		BlankLines:        l.Blank,
		DocstringLines:    l.Docstring,
		FunctionCount:     len(s.Functions),
		ClassCount:        len(s.Classes),
		StdlibImports:     []string{},
		ThirdPartyImports: []string{},
		LocalImports:      []string{},
		Classes:           make([]ClassSize, 0, len(s.Classes)),
	}

	for _, fn := range s.Functions {
		if fn.IsMethod {
			m.MethodCount++
		}
		m.TotalParameters += fn.Params
		if fn.Params > m.MaxParameters {
			m.MaxParameters = fn.Params
		}
	}
	m.AverageParameters = round(ratio(m.TotalParameters, len(s.Functions)), 2)

	m.countImports(s.Imports, opts.LocalPackages)
	m.classMetrics(s)
	return m, nil
}

func (m *SizeMetrics) countImports(imports []engine.Import, localPackages []string) {
	seen := make(map[string]struct{})
	for _, imp := range imports {
		m.ImportCount++
		name := strings.Repeat(".", imp.Level) + imp.Module
		class := ClassifyImport(imp, localPackages)
		switch class {
		case ImportStdlib:
			m.StdlibImportCount++
		case ImportThirdParty:
			m.ThirdPartyImportCount++
		case ImportLocal:
			m.LocalImportCount++
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		switch class {
		case ImportStdlib:
			m.StdlibImports = append(m.StdlibImports, name)
		case ImportThirdParty:
			m.ThirdPartyImports = append(m.ThirdPartyImports, name)
		case ImportLocal:
			m.LocalImports = append(m.LocalImports, name)
		}
	}
	sort.Strings(m.StdlibImports)
	sort.Strings(m.ThirdPartyImports)
	sort.Strings(m.LocalImports)
}

func (m *SizeMetrics) classMetrics(s *engine.Snapshot) {
	if len(s.Classes) == 0 {
		return
	}

	avg := AverageComplexity(s)
	byName := make(map[string]*engine.ClassRecord, len(s.Classes))
	for i := range s.Classes {
		byName[s.Classes[i].Name] = &s.Classes[i]
	}
	children := make(map[string]int)
	for _, c := range s.Classes {
		for _, base := range c.Bases {
			children[base]++
		}
	}
	coupled := importedNames(s.Imports)
	for name := range byName {
		coupled[name] = struct{}{}
	}

	totalMethods, totalCBO := 0, 0
	for _, c := range s.Classes {
		cs := ClassSize{
			Name:    c.Name,
			Line:    c.StartLine,
			Methods: c.Methods,
			WMC:     round(float64(c.Methods)*avg, 2),
			DIT:     inheritanceDepth(c.Name, byName),
			NOC:     children[c.Name],
			CBO:     coupling(c, coupled),
		}
		m.Classes = append(m.Classes, cs)

		totalMethods += c.Methods
		totalCBO += cs.CBO
		m.WMC += cs.WMC
		if c.Methods > m.MaxMethodsPerClass {
			m.MaxMethodsPerClass = c.Methods
		}
		if cs.DIT > m.MaxDIT {
			m.MaxDIT = cs.DIT
		}
		if cs.NOC > m.MaxNOC {
			m.MaxNOC = cs.NOC
		}
	}
	m.WMC = round(m.WMC, 2)
	m.AverageMethodsPerClass = round(ratio(totalMethods, len(s.Classes)), 2)
	m.AverageCBO = round(ratio(totalCBO, len(s.Classes)), 2)
}

// inheritanceDepth follows base classes defined in the same file. A base
// defined elsewhere contributes one level; object contributes none.
func inheritanceDepth(name string, classes map[string]*engine.ClassRecord) int {
	type frame struct {
		name  string
		depth int
	}
	best := 0
	visited := map[string]bool{name: true}
	stack := []frame{{name: name}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > best {
			best = f.depth
		}
		c, ok := classes[f.name]
		if !ok {
			continue
		}
		for _, base := range c.Bases {
			if base == "object" {
				continue
			}
			if _, local := classes[base]; !local {
				if f.depth+1 > best {
					best = f.depth + 1
				}
				continue
			}
			if visited[base] {
				continue
			}
			visited[base] = true
			stack = append(stack, frame{name: base, depth: f.depth + 1})
		}
	}
	return best
}

// coupling counts distinct classes and imported names referenced by the
// class body, excluding the class itself.
func coupling(c engine.ClassRecord, coupled map[string]struct{}) int {
	n := 0
	for _, ref := range c.References {
		if ref == c.Name {
			continue
		}
		if _, ok := coupled[ref]; ok {
			n++
		}
	}
	return n
}

func importedNames(imports []engine.Import) map[string]struct{} {
	out := make(map[string]struct{})
	for _, imp := range imports {
		if !imp.From {
			out[topLevel(imp.Module)] = struct{}{}
			continue
		}
		for _, name := range imp.Names {
			if name != "*" {
				out[name] = struct{}{}
			}
		}
	}
	return out
}

func topLevel(module string) string {
	if i := strings.IndexByte(module, '.'); i >= 0 {
		return module[:i]
	}
	return module
}
