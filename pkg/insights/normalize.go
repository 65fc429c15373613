package insights

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MaxFlattenDepth bounds how deep nested objects are followed. Sub-trees
// below this depth are ignored.
const MaxFlattenDepth = 8

// valuesSegment is dropped from flattened paths so that load-testing exports
// shaped like {"latency":{"values":{"avg":1}}} produce "latency.avg".
const valuesSegment = "values"

// reservedKeys are top-level fields of a bare payload that describe the
// report rather than measure it.
var reservedKeys = map[string]bool{
	"name":        true,
	"timestamp":   true,
	"metrics":     true,
	"metadata":    true,
	"meta":        true,
	"description": true,
	"version":     true,
	"environment": true,
	"tags":        true,
	"id":          true,
}

// decimalNumber matches plain decimal numbers with an optional exponent.
// strconv.ParseFloat alone would also take hex floats, underscores and
// Inf/NaN spellings.
var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// ValidationResult is the structured outcome of normalizing one payload.
type ValidationResult struct {
	Valid    bool               `json:"valid"`
	Errors   []string           `json:"errors"`
	Warnings []string           `json:"warnings"`
	Report   *PerformanceReport `json:"report,omitempty"`
}

// Err returns an *InvalidInputError when the payload was rejected.
func (v ValidationResult) Err() error {
	return v.ErrFor("")
}

// ErrFor is Err with the rejected payload named in the message.
func (v ValidationResult) ErrFor(source string) error {
	if v.Valid {
		return nil
	}
	return &InvalidInputError{Source: source, Errors: v.Errors}
}

// Normalize flattens a decoded JSON payload into a report. It returns nil when
// the payload is not an object or holds no numeric metric.
func Normalize(raw interface{}, fallbackName string) *PerformanceReport {
	return Validate(raw, fallbackName).Report
}

// NormalizeJSON decodes data and normalizes it.
func NormalizeJSON(data []byte, fallbackName string) (*PerformanceReport, error) {
	res := ValidateJSON(data, fallbackName)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Report, nil
}

// ValidateJSON decodes data and validates it.
func ValidateJSON(data []byte, fallbackName string) ValidationResult {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return ValidationResult{
			Errors:   []string{fmt.Sprintf("payload is not valid JSON: %v", err)},
			Warnings: []string{},
		}
	}
	return Validate(raw, fallbackName)
}

// Validate normalizes raw and reports every error and dropped value.
// Numeric leaves that cannot be coerced are dropped with a warning and never
// replaced by zero.
func Validate(raw interface{}, fallbackName string) ValidationResult {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}

	root, ok := raw.(map[string]interface{})
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("payload must be a JSON object, got %s", describe(raw)))
		return res
	}

	var source map[string]interface{}
	if m, present := root["metrics"]; present {
		obj, isObj := m.(map[string]interface{})
		if !isObj {
			res.Errors = append(res.Errors, fmt.Sprintf("metrics must be an object, got %s", describe(m)))
			return res
		}
		source = obj
	} else {
		source = make(map[string]interface{}, len(root))
		for k, v := range root {
			if !reservedKeys[k] {
				source[k] = v
			}
		}
	}

	metrics := make(map[string]float64)
	f := flattener{out: metrics, warnings: &res.Warnings}
	f.walk("", source, 0)

	if len(metrics) == 0 {
		res.Errors = append(res.Errors, "no numeric metrics found")
		return res
	}

	name := fallbackName
	if s, ok := root["name"].(string); ok && strings.TrimSpace(s) != "" {
		name = strings.TrimSpace(s)
	}
	var timestamp string
	if s, ok := root["timestamp"].(string); ok {
		timestamp = strings.TrimSpace(s)
	}

	res.Valid = true
	res.Report = &PerformanceReport{
		Name:      name,
		Timestamp: timestamp,
		Metrics:   metrics,
	}
	return res
}

type flattener struct {
	out      map[string]float64
	warnings *[]string
}

func (f flattener) walk(prefix string, node map[string]interface{}, depth int) {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := node[k]

		if child, isObj := v.(map[string]interface{}); isObj {
			path := prefix
			if k != valuesSegment {
				path = joinPath(prefix, k)
			}
			if depth+1 > MaxFlattenDepth {
				f.warn("dropped sub-tree %q: nested deeper than %d levels", joinPath(prefix, k), MaxFlattenDepth)
				continue
			}
			f.walk(path, child, depth+1)
			continue
		}

		path := joinPath(prefix, k)
		num, reason := coerceNumber(v)
		if reason != "" {
			f.warn("dropped metric %q: %s", path, reason)
			continue
		}
		if _, dup := f.out[path]; dup {
			f.warn("duplicate metric %q: later value kept", path)
		}
		f.out[path] = num
	}
}

func (f flattener) warn(format string, args ...interface{}) {
	*f.warnings = append(*f.warnings, fmt.Sprintf(format, args...))
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// coerceNumber converts a JSON leaf to a finite float64. A non-empty reason
// means the value was rejected.
func coerceNumber(v interface{}) (float64, string) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return float64(n), ""
	case int32:
		return float64(n), ""
	case int64:
		return float64(n), ""
	case uint:
		return float64(n), ""
	case uint32:
		return float64(n), ""
	case uint64:
		return float64(n), ""
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, "not a number"
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, "empty string"
		}
		if !decimalNumber.MatchString(s) {
			return 0, fmt.Sprintf("string %q is not numeric", truncate(s, 32))
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Sprintf("string %q is not numeric", truncate(s, 32))
		}
		f = parsed
	case nil:
		return 0, "null value"
	case bool:
		return 0, "boolean value"
	case []interface{}:
		return 0, "array value"
	default:
		return 0, fmt.Sprintf("unsupported type %T", v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "not a finite number"
	}
	return f, ""
}

func describe(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
