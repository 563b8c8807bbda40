package profile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/profile.schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so errors line up with the document.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single failure at a dotted field path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "profile validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "profile validation failed: " + strings.Join(parts, "; ")
}

func documentSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks a raw JSON profile document against the profile
// schema. Unlike Validate it catches missing branches and leaves, which
// decode silently to zero values.
func ValidateDocument(doc []byte) error {
	schema, err := documentSchema()
	if err != nil {
		return fmt.Errorf("loading profile schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("reading profile document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: desc.Description()})
	}
	return verr
}

// Validate checks enum and range constraints on a decoded profile.
func (p Profile) Validate() error {
	err := structValidator.Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := strings.TrimPrefix(fe.Namespace(), "Profile.")
		msg := fmt.Sprintf("failed %q constraint", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q constraint (%s), got %v", fe.Tag(), fe.Param(), fe.Value())
		}
		verr.Errors = append(verr.Errors, FieldError{Field: field, Message: msg})
	}
	return verr
}

// Parse validates a complete JSON profile document and decodes it.
func Parse(doc []byte) (Profile, error) {
	if err := ValidateDocument(doc); err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(doc, &p); err != nil {
		return Profile{}, fmt.Errorf("decoding profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}
