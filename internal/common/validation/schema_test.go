package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applicantSchema() JSONSchema {
	return JSONSchema{
		Type: "object",
		Properties: map[string]Property{
			"FirstName": {Type: "string", MaxLength: Int(50)},
			"Mobile":    {Type: "string", Pattern: String(`^[6-9]\d{9}$`)},
			"Email":     {Type: "string", Format: "email", MaxLength: Int(80)},
			"Count":     {Type: "integer", Minimum: Float(1), Maximum: Float(999)},
			"Accepted":  {Type: "boolean", Const: true},
		},
		Required: []string{"FirstName", "Mobile"},
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		wantField string
		wantCode  string
	}{
		{"missing required", map[string]interface{}{"Mobile": "9876543210"}, "FirstName", CodeRequired},
		{"too long", map[string]interface{}{"FirstName": string(make([]byte, 51)), "Mobile": "9876543210"}, "FirstName", CodeMaxLength},
		{"bad mobile", map[string]interface{}{"FirstName": "Asha", "Mobile": "5876543210"}, "Mobile", CodePattern},
		{"bad email", map[string]interface{}{"FirstName": "Asha", "Mobile": "9876543210", "Email": "nope"}, "Email", CodeFormat},
		{"count too small", map[string]interface{}{"FirstName": "Asha", "Mobile": "9876543210", "Count": 0}, "Count", CodeMinimum},
		{"count too big", map[string]interface{}{"FirstName": "Asha", "Mobile": "9876543210", "Count": 1000}, "Count", CodeMaximum},
		{"count fractional", map[string]interface{}{"FirstName": "Asha", "Mobile": "9876543210", "Count": 1.5}, "Count", CodeType},
		{"terms not accepted", map[string]interface{}{"FirstName": "Asha", "Mobile": "9876543210", "Accepted": false}, "Accepted", CodeConst},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, applicantSchema())
			require.False(t, result.Valid)
			require.Len(t, result.Errors, 1, result.GetErrorMessages())
			assert.Equal(t, tt.wantField, result.Errors[0].Field)
			assert.Equal(t, tt.wantCode, result.Errors[0].Code)
		})
	}
}

func TestValidateInput_Valid(t *testing.T) {
	result := ValidateInput(map[string]interface{}{
		"FirstName": "आशा",
		"Mobile":    "9876543210",
		"Email":     "asha@example.in",
		"Count":     3,
		"Accepted":  true,
		"Extra":     "allowed",
	}, applicantSchema())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidateInput_MaxLengthCountsRunes(t *testing.T) {
	schema := JSONSchema{Type: "object", Properties: map[string]Property{
		"Name": {Type: "string", MaxLength: Int(4)},
	}}
	assert.True(t, ValidateInput(map[string]interface{}{"Name": "आशा"}, schema).Valid)
}

func TestValidate_ErrorsSortedAndQueryable(t *testing.T) {
	v := MustCompile(applicantSchema())
	result := v.Validate(map[string]interface{}{"Email": "bad"})

	require.False(t, result.Valid)
	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"Email", "FirstName", "Mobile"}, fields)
	assert.True(t, result.HasErrors("Mobile"))
	assert.False(t, result.HasErrors("Count"))
	assert.Len(t, result.GetErrorsForField("FirstName"), 1)
}

func TestValidateInput_AdditionalPropertiesClosed(t *testing.T) {
	schema := applicantSchema()
	schema.AdditionalProperties = Bool(false)

	result := ValidateInput(map[string]interface{}{"FirstName": "A", "Mobile": "9876543210", "Other": 1}, schema)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Other", result.Errors[0].Field)
	assert.Equal(t, CodeExtra, result.Errors[0].Code)
}

func TestGetSchemaFromJSON(t *testing.T) {
	schema, err := GetSchemaFromJSON(`{"type":"object","properties":{"a":{"type":"string","maxLength":3}},"required":["a"]}`)
	require.NoError(t, err)
	assert.Equal(t, 3, *schema.Properties["a"].MaxLength)
	assert.Equal(t, []string{"a"}, schema.Required)
}
