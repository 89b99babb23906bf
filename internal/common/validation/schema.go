package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema defines the structure for input schemas
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties *bool               `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Minimum     *float64    `json:"minimum,omitempty"`
	Maximum     *float64    `json:"maximum,omitempty"`
	Enum        []string    `json:"enum,omitempty"`
	Pattern     *string     `json:"pattern,omitempty"`
	Format      string      `json:"format,omitempty"`
	MinLength   *int        `json:"minLength,omitempty"`
	MaxLength   *int        `json:"maxLength,omitempty"`
	Const       interface{} `json:"const,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error codes reported in ValidationError.Code.
const (
	CodeRequired  = "REQUIRED_FIELD_MISSING"
	CodeType      = "INVALID_TYPE"
	CodeMinLength = "MIN_LENGTH_VIOLATION"
	CodeMaxLength = "MAX_LENGTH_VIOLATION"
	CodePattern   = "PATTERN_MISMATCH"
	CodeFormat    = "INVALID_FORMAT"
	CodeMinimum   = "MINIMUM_VIOLATION"
	CodeMaximum   = "MAXIMUM_VIOLATION"
	CodeEnum      = "INVALID_ENUM_VALUE"
	CodeConst     = "CONST_MISMATCH"
	CodeExtra     = "EXTRA_FIELD"
)

var errorCodes = map[string]string{
	"required":                        CodeRequired,
	"invalid_type":                    CodeType,
	"string_gte":                      CodeMinLength,
	"string_lte":                      CodeMaxLength,
	"pattern":                         CodePattern,
	"format":                          CodeFormat,
	"number_gte":                      CodeMinimum,
	"number_gt":                       CodeMinimum,
	"number_lte":                      CodeMaximum,
	"number_lt":                       CodeMaximum,
	"enum":                            CodeEnum,
	"const":                           CodeConst,
	"additional_property_not_allowed": CodeExtra,
}

// Validator is a compiled schema, safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// Compile compiles schema once so it can be applied to many inputs.
func Compile(schema JSONSchema) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// MustCompile is like Compile but panics on an invalid schema.
func MustCompile(schema JSONSchema) *Validator {
	v, err := Compile(schema)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks input and returns errors sorted by field then code.
func (v *Validator) Validate(input map[string]interface{}) *ValidationResult {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Message: err.Error(),
			Code:    CodeType,
		}}}
	}
	return convert(result)
}

// ValidateInput validates input against JSON schema with detailed errors
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	v, err := Compile(schema)
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{Message: err.Error(), Code: CodeType}}}
	}
	return v.Validate(input)
}

func convert(result *gojsonschema.Result) *ValidationResult {
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    codeOf(desc.Type()),
		})
	}
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Field != errs[j].Field {
			return errs[i].Field < errs[j].Field
		}
		return errs[i].Code < errs[j].Code
	})
	return &ValidationResult{Errors: errs}
}

// fieldOf resolves the offending property. Required and additional-property
// errors are reported against the parent object, the name is in the details.
func fieldOf(desc gojsonschema.ResultError) string {
	if p, ok := desc.Details()["property"].(string); ok && p != "" {
		parent := desc.Field()
		if parent == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
			return p
		}
		return parent + "." + p
	}
	return desc.Field()
}

func codeOf(errorType string) string {
	if code, ok := errorCodes[errorType]; ok {
		return code
	}
	return strings.ToUpper(errorType)
}

// GetSchemaFromJSON parses JSON schema from string
func GetSchemaFromJSON(schemaJSON string) (JSONSchema, error) {
	var schema JSONSchema
	err := json.Unmarshal([]byte(schemaJSON), &schema)
	return schema, err
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// Helpers for building schemas inline.

func Int(v int) *int { return &v }

func Float(v float64) *float64 { return &v }

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }
