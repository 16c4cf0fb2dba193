package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validate checks a parsed JSON document against the named schema.
//
// The document must be the result of decoding a JSON object (the CLI layer
// rejects non-object top-level values before calling this). Validation is a
// pure function of its inputs: it performs no I/O, mutates nothing, and
// returns identical results for identical inputs, including violation order.
//
// The only error condition is an unrecognized schema name
// (ErrUnknownSchema); every document-level problem is reported as a
// Violation in the Result instead.
func Validate(doc map[string]any, schemaName string) (*Result, error) {
	s, err := Lookup(schemaName)
	if err != nil {
		return nil, err
	}
	return s.Validate(doc), nil
}

// Validate checks a parsed JSON document against this schema.
//
// The walk visits fields in schema declaration order and array elements in
// document order, accumulating every violation rather than stopping at the
// first. A cross-cutting duplicate-id pass and the advisory checks run after
// the structural walk, so their findings always follow the structural ones.
func (s *Schema) Validate(doc map[string]any) *Result {
	w := &walker{res: &Result{Violations: []Violation{}}}
	w.walkRecord("", &s.root, doc)
	w.reportDuplicates()
	w.adviseGeneratedAt(doc)
	w.adviseMonotonicIDs()
	if s.advise != nil {
		s.advise(doc, w.res)
	}
	w.res.Valid = len(w.res.Violations) == 0
	return w.res
}

// idOccurrence records one declared identifier found during the walk, for
// the duplicate pass and the monotonic-sequence advisory.
type idOccurrence struct {
	value string
	path  string

	// group is the owning collection path plus prefix ("/slices|S"),
	// so sequences are checked per collection and per prefix.
	group string
	num   int
	numOK bool
}

type walker struct {
	res *Result
	ids []idOccurrence
}

func (w *walker) violate(path string, kind Kind, format string, args ...any) {
	w.res.Violations = append(w.res.Violations, Violation{
		Path:    path,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

func (w *walker) warn(path string, format string, args ...any) {
	w.res.Warnings = append(w.res.Warnings, Warning{
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

// walkRecord validates an object against a record spec. For variant records
// (issues) the common fields are checked first, then the fields selected by
// the variant key, preserving a stable per-record field order.
func (w *walker) walkRecord(path string, spec *recordSpec, obj map[string]any) {
	variant := ""
	if spec.variantKey != "" {
		variant, _ = obj[spec.variantKey].(string)
	}

	for _, f := range spec.fields {
		w.walkField(path, spec, f, variant, obj)
	}

	if spec.variants != nil {
		if extra, ok := spec.variants[variant]; ok {
			for _, f := range extra {
				w.walkField(path, spec, f, variant, obj)
			}
		}
	}
}

func (w *walker) walkField(recordPath string, spec *recordSpec, f fieldSpec, variant string, obj map[string]any) {
	path := recordPath + "/" + f.name

	val, present := obj[f.name]
	if !present {
		if f.required {
			w.violate(path, KindMissingRequiredField, "%s is required", f.name)
		}
		return
	}

	// An issue's id prefix is selected by its type. When the type itself is
	// missing or invalid, any known prefix is accepted so the id problem is
	// not double-reported.
	prefix := f.idPrefix
	var anyPrefix []string
	if f.name == "id" && spec.variantIDPrefix != nil {
		if p, ok := spec.variantIDPrefix[variant]; ok {
			prefix = p
		} else {
			for _, p := range spec.variantIDPrefix {
				anyPrefix = append(anyPrefix, p)
			}
		}
	}

	switch f.typ {
	case typeString:
		str, ok := val.(string)
		if !ok {
			w.violate(path, KindTypeMismatch, "expected string, got %s", jsonTypeName(val))
			return
		}
		if len(f.enum) > 0 && !contains(f.enum, str) {
			w.violate(path, KindInvalidEnumValue, "%s must be one of %s (got %q)",
				f.name, strings.Join(f.enum, ", "), str)
			return
		}
		if prefix != "" {
			w.checkID(path, prefix, str, !f.idRef)
		} else if len(anyPrefix) > 0 {
			w.checkIDAnyPrefix(path, anyPrefix, str)
		}

	case typeBool:
		if _, ok := val.(bool); !ok {
			w.violate(path, KindTypeMismatch, "expected boolean, got %s", jsonTypeName(val))
		}

	case typeObject:
		m, ok := val.(map[string]any)
		if !ok {
			w.violate(path, KindTypeMismatch, "expected object, got %s", jsonTypeName(val))
			return
		}
		w.walkRecord(path, f.record, m)

	case typeStringList:
		arr, ok := val.([]any)
		if !ok {
			w.violate(path, KindTypeMismatch, "expected array of strings, got %s", jsonTypeName(val))
			return
		}
		if f.nonEmpty && len(arr) == 0 {
			w.violate(path, KindEmptyRequiredCollection, "%s must not be empty", f.name)
			return
		}
		for i, elem := range arr {
			if _, ok := elem.(string); !ok {
				w.violate(fmt.Sprintf("%s/%d", path, i), KindTypeMismatch,
					"expected string, got %s", jsonTypeName(elem))
			}
		}

	case typeObjectList:
		arr, ok := val.([]any)
		if !ok {
			w.violate(path, KindTypeMismatch, "expected array of objects, got %s", jsonTypeName(val))
			return
		}
		if f.nonEmpty && len(arr) == 0 {
			w.violate(path, KindEmptyRequiredCollection, "%s must not be empty", f.name)
			return
		}
		for i, elem := range arr {
			elemPath := fmt.Sprintf("%s/%d", path, i)
			m, ok := elem.(map[string]any)
			if !ok {
				w.violate(elemPath, KindTypeMismatch,
					"expected %s object, got %s", f.record.label, jsonTypeName(elem))
				continue
			}
			w.walkRecord(elemPath, f.record, m)
		}
	}
}

// checkID validates an identifier against its {prefix}-NNN pattern and,
// for declarations, records it for the duplicate and sequence passes.
// Pattern-invalid declarations are still recorded so duplicates among them
// are caught.
func (w *walker) checkID(path, prefix, value string, declaration bool) {
	num, ok := parseID(prefix, value)
	if !ok {
		w.violate(path, KindPatternMismatch, "id must match %s-### (got %q)", prefix, value)
	}
	if declaration {
		w.ids = append(w.ids, idOccurrence{
			value: value,
			path:  path,
			group: collectionOf(path) + "|" + prefix,
			num:   num,
			numOK: ok,
		})
	}
}

// checkIDAnyPrefix is the fallback for issue ids when the issue type is
// absent or invalid: the id must match one of the known prefixes.
func (w *walker) checkIDAnyPrefix(path string, prefixes []string, value string) {
	matched := ""
	num := 0
	for _, p := range prefixes {
		if n, ok := parseID(p, value); ok {
			matched, num = p, n
			break
		}
	}
	if matched == "" {
		patterns := sortedCopy(prefixes)
		for i, p := range patterns {
			patterns[i] = p + "-###"
		}
		w.violate(path, KindPatternMismatch,
			"id must match one of %s (got %q)", strings.Join(patterns, ", "), value)
		w.ids = append(w.ids, idOccurrence{value: value, path: path, group: collectionOf(path) + "|?"})
		return
	}
	w.ids = append(w.ids, idOccurrence{
		value: value,
		path:  path,
		group: collectionOf(path) + "|" + matched,
		num:   num,
		numOK: true,
	})
}

// parseID checks value against {prefix}-NNN (exactly three digits) and
// returns the sequence number. "S-1" and "SLICE-001" both fail for "S".
func parseID(prefix, value string) (int, bool) {
	rest, found := strings.CutPrefix(value, prefix+"-")
	if !found || len(rest) != 3 {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	num, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return num, true
}

// collectionOf trims the trailing "/{index}/id" from an id path, yielding
// the owning array path ("/slices/2/id" -> "/slices"). Ids outside an array
// group under their record path.
func collectionOf(path string) string {
	trimmed := strings.TrimSuffix(path, "/id")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return trimmed
	}
	if _, err := strconv.Atoi(trimmed[i+1:]); err == nil {
		return trimmed[:i]
	}
	return trimmed
}

// reportDuplicates emits one DuplicateId violation per identifier value
// declared more than once, ordered by first occurrence, with every location
// named in the message.
func (w *walker) reportDuplicates() {
	paths := make(map[string][]string)
	var order []string
	for _, occ := range w.ids {
		if len(paths[occ.value]) == 0 {
			order = append(order, occ.value)
		}
		paths[occ.value] = append(paths[occ.value], occ.path)
	}

	for _, value := range order {
		locs := paths[value]
		if len(locs) < 2 {
			continue
		}
		w.violate(locs[0], KindDuplicateId,
			"duplicate id %q (declared at %s)", value, strings.Join(locs, " and "))
	}
}

// adviseGeneratedAt warns when meta.generated_at is present but not an
// RFC 3339 timestamp. Type problems are already covered by the walk.
func (w *walker) adviseGeneratedAt(doc map[string]any) {
	meta, ok := doc["meta"].(map[string]any)
	if !ok {
		return
	}
	ts, ok := meta["generated_at"].(string)
	if !ok {
		return
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		w.warn("/meta/generated_at", "generated_at is not an RFC 3339 timestamp (got %q)", ts)
	}
}

// adviseMonotonicIDs warns once per collection whose id sequence numbers are
// not strictly increasing in document order. Uniqueness is the hard
// invariant; monotonicity is a recommendation only.
func (w *walker) adviseMonotonicIDs() {
	last := make(map[string]idOccurrence)
	flagged := make(map[string]bool)

	for _, occ := range w.ids {
		if !occ.numOK {
			continue
		}
		if prev, ok := last[occ.group]; ok && occ.num <= prev.num && !flagged[occ.group] {
			w.warn(collectionPath(occ.group),
				"id sequence not monotonically increasing (%s after %s)", occ.value, prev.value)
			flagged[occ.group] = true
		}
		last[occ.group] = occ
	}
}

func collectionPath(group string) string {
	if i := strings.Index(group, "|"); i >= 0 {
		return group[:i]
	}
	return group
}

// adviseIssueBundle runs the issue-bundle advisory checks: blocked_by
// entries must reference declared issue ids, and the blocked_by graph must
// be acyclic. Both produce warnings only.
func adviseIssueBundle(doc map[string]any, res *Result) {
	issues, ok := doc["issues"].([]any)
	if !ok {
		return
	}

	known := make(map[string]bool)
	for _, elem := range issues {
		issue, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := issue["id"].(string); ok {
			known[id] = true
		}
	}

	// Edges in document order keep cycle reporting deterministic.
	edges := make(map[string][]string)
	var nodes []string

	for i, elem := range issues {
		issue, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		id, _ := issue["id"].(string)
		if id != "" {
			nodes = append(nodes, id)
		}
		blockedBy, ok := issue["blocked_by"].([]any)
		if !ok {
			continue
		}
		for j, dep := range blockedBy {
			ref, ok := dep.(string)
			if !ok {
				continue
			}
			if !known[ref] {
				res.Warnings = append(res.Warnings, Warning{
					Path:    fmt.Sprintf("/issues/%d/blocked_by/%d", i, j),
					Message: fmt.Sprintf("blocked_by references unknown id %q", ref),
				})
				continue
			}
			if id != "" {
				edges[id] = append(edges[id], ref)
			}
		}
	}

	reportCycles(nodes, edges, res)
}

// reportCycles walks the blocked_by graph with a three-color DFS and emits
// one warning per cycle found.
func reportCycles(nodes []string, edges map[string][]string, res *Result) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var stack []string

	var visit func(id string)
	visit = func(id string) {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range edges[id] {
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Found a back edge; report the cycle from next to id.
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, stack[start:]...), next)
				res.Warnings = append(res.Warnings, Warning{
					Path:    "/issues",
					Message: fmt.Sprintf("dependency cycle: %s", strings.Join(cycle, " -> ")),
				})
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, id := range nodes {
		if color[id] == white {
			visit(id)
		}
	}
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func sortedCopy(in []string) []string {
	out := append([]string{}, in...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
