// internal/forms/definition.go
package forms

import (
	"sort"

	"rts-portal/internal/common/storage"
	"rts-portal/internal/common/validation"
	"rts-portal/internal/models"
)

// DocumentSlot is an upload input and the subfolder its files land in.
type DocumentSlot struct {
	Field     string `json:"field"`
	Label     string `json:"label"`
	Subfolder string `json:"subfolder"`
}

// Messages are the user-facing texts of a form.
type Messages struct {
	Success     string `json:"success"`
	Updated     string `json:"updated,omitempty"`
	Deleted     string `json:"deleted,omitempty"`
	Validation  string `json:"validation"`
	InvalidData string `json:"invalidData"`
	Unexpected  string `json:"unexpected"`
	Failure     string `json:"failure"`
	Terms       string `json:"terms,omitempty"`
}

// Definition parameterizes the submission pipeline for one application type.
type Definition struct {
	Route     string
	Type      models.ApplicationType
	Prefix    string
	FormName  string
	Priority  string
	Fields    []Field
	Documents []DocumentSlot
	Terms     []string
	Policy    storage.Policy
	Messages  Messages
	// Extra adds data to a successful submit response.
	Extra func(values map[string]interface{}) map[string]interface{}

	// Updatable forms accept Update and Delete after submission.
	Updatable bool

	validator *validation.Validator
	index     map[string]int
}

func (d *Definition) compile() error {
	d.index = make(map[string]int, len(d.Fields)+len(d.Terms))
	for i, f := range d.Fields {
		d.index[f.Name] = i
	}
	v, err := validation.Compile(d.Schema())
	if err != nil {
		return err
	}
	d.validator = v
	return nil
}

// Schema is the JSON schema of the bound values. Terms are checked
// separately so each one reports its own message.
func (d *Definition) Schema() validation.JSONSchema {
	schema := validation.JSONSchema{
		Type:                 "object",
		Properties:           make(map[string]validation.Property, len(d.Fields)+len(d.Terms)),
		AdditionalProperties: validation.Bool(false),
	}
	for _, f := range d.Fields {
		schema.Properties[f.Name] = f.property()
		if f.Required {
			schema.Required = append(schema.Required, f.Name)
		}
	}
	for _, t := range d.Terms {
		schema.Properties[t] = validation.Property{Type: "boolean"}
	}
	return schema
}

// Field looks up a declared field by name.
func (d *Definition) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

// Slot looks up a document slot by field name.
func (d *Definition) Slot(field string) (DocumentSlot, bool) {
	for _, s := range d.Documents {
		if s.Field == field {
			return s, true
		}
	}
	return DocumentSlot{}, false
}

// Bind coerces raw input into typed values. Undeclared keys are dropped,
// blanks take the field default or stay absent, and every term is present.
func (d *Definition) Bind(raw map[string]interface{}) (map[string]interface{}, []models.FieldError) {
	values := make(map[string]interface{}, len(d.Fields)+len(d.Terms))
	var errs []models.FieldError

	for _, f := range d.Fields {
		v, ok, err := f.coerce(raw[f.Name])
		if err != nil {
			errs = append(errs, models.FieldError{Field: f.Name, Message: err.Error()})
			continue
		}
		if !ok {
			if f.Default == nil {
				continue
			}
			v = f.Default
		}
		values[f.Name] = v
	}
	for _, t := range d.Terms {
		values[t] = coerceBool(raw[t])
	}
	return values, errs
}

// Validate checks bound values. Errors are ordered by field declaration,
// followed by one error per unaccepted term.
func (d *Definition) Validate(values map[string]interface{}) []models.FieldError {
	var errs []models.FieldError

	result := d.validator.Validate(values)
	if !result.Valid {
		type ranked struct {
			pos int
			err models.FieldError
		}
		ranks := make([]ranked, 0, len(result.Errors))
		for _, ve := range result.Errors {
			f, ok := d.Field(ve.Field)
			if !ok {
				ranks = append(ranks, ranked{pos: len(d.Fields), err: models.FieldError{Field: ve.Field, Message: ve.Message}})
				continue
			}
			ranks = append(ranks, ranked{pos: d.index[f.Name], err: models.FieldError{Field: f.Name, Message: f.message(ve.Code)}})
		}
		sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].pos < ranks[j].pos })
		for _, r := range ranks {
			errs = append(errs, r.err)
		}
	}

	for _, t := range d.Terms {
		if accepted, _ := values[t].(bool); !accepted {
			errs = append(errs, models.FieldError{Field: t, Message: d.Messages.Terms})
		}
	}
	return errs
}

// Check binds and validates raw input. A field that failed coercion is
// reported once.
func (d *Definition) Check(raw map[string]interface{}) (map[string]interface{}, []models.FieldError) {
	values, bindErrs := d.Bind(raw)
	errs := d.Validate(values)
	if len(bindErrs) == 0 {
		return values, errs
	}

	failed := make(map[string]bool, len(bindErrs))
	for _, e := range bindErrs {
		failed[e.Field] = true
	}
	out := bindErrs
	for _, e := range errs {
		if !failed[e.Field] {
			out = append(out, e)
		}
	}
	return values, out
}

// Build maps bound values onto a new application envelope and payload.
func (d *Definition) Build(values map[string]interface{}) *models.Application {
	app := &models.Application{
		Type:     d.Type,
		FormName: d.FormName,
		Status:   models.StatusSubmitted,
		Priority: d.Priority,
		IsActive: true,
		Payload:  make(map[string]interface{}),
	}

	for _, f := range d.Fields {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		if f.Column == "" {
			app.Payload[f.Name] = v
			continue
		}
		assignColumn(app, f.Column, v)
	}
	for _, t := range d.Terms {
		if v, ok := values[t]; ok {
			app.Payload[t] = v
		}
	}
	return app
}

func assignColumn(app *models.Application, column string, v interface{}) {
	s, _ := v.(string)
	switch column {
	case ToTitle:
		app.Applicant.Title = s
	case ToFirstName:
		app.Applicant.FirstName = s
	case ToMiddleName:
		app.Applicant.MiddleName = s
	case ToLastName:
		app.Applicant.LastName = s
	case ToMobile:
		app.Applicant.Mobile = s
	case ToEmail:
		app.Applicant.Email = s
	case ToStreet:
		app.Address.Street = s
	case ToArea:
		app.Address.Area = s
	case ToCity:
		app.Address.City = s
	case ToDistrict:
		app.Address.District = s
	case ToPinCode:
		app.Address.PinCode = s
	case ToLandmark:
		app.Address.Landmark = s
	case ToLatitude:
		if f, ok := v.(float64); ok {
			app.Address.Latitude = &f
		}
	case ToLongitude:
		if f, ok := v.(float64); ok {
			app.Address.Longitude = &f
		}
	}
}

// Descriptor is the JSON description served by GET /{Form}/Create.
type Descriptor struct {
	Route     string                 `json:"route"`
	Type      models.ApplicationType `json:"applicationType"`
	FormName  string                 `json:"formName"`
	Prefix    string                 `json:"trackingPrefix"`
	Fields    []Field                `json:"fields"`
	Documents []DocumentSlot         `json:"documents"`
	Terms     []string               `json:"terms,omitempty"`
	Upload    UploadPolicy           `json:"upload"`
}

type UploadPolicy struct {
	MaxBytes   int64    `json:"maxBytes"`
	Extensions []string `json:"extensions"`
}

func (d *Definition) Descriptor() Descriptor {
	return Descriptor{
		Route:     d.Route,
		Type:      d.Type,
		FormName:  d.FormName,
		Prefix:    d.Prefix,
		Fields:    d.Fields,
		Documents: d.Documents,
		Terms:     d.Terms,
		Upload:    UploadPolicy{MaxBytes: d.Policy.MaxBytes, Extensions: d.Policy.Extensions},
	}
}
