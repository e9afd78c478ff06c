package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/component.schema.json
var schemaBytes []byte

const schemaURL = "component.schema.json"

var (
	headerSchema = sync.OnceValues(compileHeaderSchema)
	printer      = message.NewPrinter(language.English)
)

// groupingKeywords only combine other results and never describe a
// violation by themselves.
var groupingKeywords = map[string]bool{
	"oneOf": true,
	"anyOf": true,
	"allOf": true,
	"$ref":  true,
}

// ValidationResult is the outcome of checking a header against the schema.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is one violation. Path is a JSON pointer into the header
// such as "/timeout" or "/dependencies/0", empty for the header itself.
type ValidationIssue struct {
	Path    string
	Message string
	Keyword string
}

func compileHeaderSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("reading header schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("registering header schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling header schema: %w", err)
	}
	return s, nil
}

// ValidateHeader checks a decoded header block against the component schema.
// An error means the header could not be checked at all; violations are
// reported through the result.
func ValidateHeader(raw map[string]any) (*ValidationResult, error) {
	schema, err := headerSchema()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(jsonValue(raw))
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}

	var ve *jsonschema.ValidationError
	switch err := schema.Validate(inst); {
	case err == nil:
		return &ValidationResult{Valid: true}, nil
	case errors.As(err, &ve):
		return &ValidationResult{Issues: headerIssues(ve)}, nil
	default:
		return nil, err
	}
}

// headerIssues flattens the error tree into its leaf violations, once each,
// ordered by path. A list key that fails both of its accepted shapes reports
// one issue per shape.
func headerIssues(root *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	seen := make(map[ValidationIssue]bool)

	pending := []*jsonschema.ValidationError{root}
	for len(pending) > 0 {
		ve := pending[0]
		pending = pending[1:]
		if len(ve.Causes) > 0 {
			pending = append(pending, ve.Causes...)
			continue
		}
		if issue, ok := leafIssue(ve); ok && !seen[issue] {
			seen[issue] = true
			issues = append(issues, issue)
		}
	}

	if len(issues) == 0 {
		return []ValidationIssue{{Message: root.Error()}}
	}
	slices.SortStableFunc(issues, func(a, b ValidationIssue) int {
		return strings.Compare(a.Path, b.Path)
	})
	return issues
}

func leafIssue(ve *jsonschema.ValidationError) (ValidationIssue, bool) {
	if ve.ErrorKind == nil {
		return ValidationIssue{}, false
	}
	kw := ve.ErrorKind.KeywordPath()
	if len(kw) == 0 || groupingKeywords[kw[len(kw)-1]] {
		return ValidationIssue{}, false
	}

	issue := ValidationIssue{
		Keyword: kw[len(kw)-1],
		Message: ve.ErrorKind.LocalizedString(printer),
	}
	if len(ve.InstanceLocation) > 0 {
		issue.Path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	return issue, true
}

// jsonValue converts decoded header values into types encoding/json can
// marshal. Hand-built headers may carry maps keyed by any.
func jsonValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = jsonValue(item)
		}
		return out
	default:
		return val
	}
}
