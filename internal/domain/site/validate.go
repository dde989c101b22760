package site

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/catalogsite/backend/internal/domain/shared"
)

// ShardKeyPattern is the allowed form of ids that are used as shard keys
var ShardKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("shardkey", func(fl validator.FieldLevel) bool {
			return ShardKeyPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("locale", func(fl validator.FieldLevel) bool {
			_, err := CanonicalLocale(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// FieldViolation describes one failed rule
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateShardKey checks that id can be used as a shard key
func ValidateShardKey(id string) error {
	if !ShardKeyPattern.MatchString(id) {
		return shared.ErrValidation.WithMessage(fmt.Sprintf("invalid id %q: must match %s", id, ShardKeyPattern))
	}
	return nil
}

// Validate checks the document against the schema and its cross-field rules
func (d *Document) Validate() error {
	var violations []FieldViolation
	if err := validatorInstance().Struct(d); err != nil {
		violations = append(violations, toViolations(err)...)
	}
	if d.Locales.Default != "" && !slices.Contains(d.Locales.Supported, d.Locales.Default) {
		violations = append(violations, FieldViolation{Field: "locales.default", Message: "must be one of the supported locales"})
	}
	seen := make(map[string]bool, len(d.Products))
	for i, p := range d.Products {
		if seen[p.ID] {
			violations = append(violations, FieldViolation{
				Field:   fmt.Sprintf("products[%d].id", i),
				Message: fmt.Sprintf("duplicate product id %q", p.ID),
			})
		}
		seen[p.ID] = true
		violations = append(violations, p.imageViolations(fmt.Sprintf("products[%d].", i))...)
	}
	return violationError("document", violations)
}

// Validate checks a single product
func (p *Product) Validate() error {
	var violations []FieldViolation
	if err := validatorInstance().Struct(p); err != nil {
		violations = append(violations, toViolations(err)...)
	}
	violations = append(violations, p.imageViolations("")...)
	return violationError("product", violations)
}

func (p *Product) imageViolations(prefix string) []FieldViolation {
	if len(p.Images) == 0 || slices.Contains(p.Images, p.MainImage) {
		return nil
	}
	return []FieldViolation{{Field: prefix + "mainImage", Message: "must be one of images"}}
}

// Validate checks an inquiry
func (i *Inquiry) Validate() error {
	if err := validatorInstance().Struct(i); err != nil {
		return violationError("inquiry", toViolations(err))
	}
	return nil
}

// Violations extracts the field violations carried by a validation error
func Violations(err error) []FieldViolation {
	var ve *violationsError
	if errors.As(err, &ve) {
		return ve.violations
	}
	return nil
}

type violationsError struct {
	violations []FieldViolation
}

func (e *violationsError) Error() string {
	parts := make([]string, len(e.violations))
	for i, v := range e.violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return strings.Join(parts, "; ")
}

func violationError(subject string, violations []FieldViolation) error {
	if len(violations) == 0 {
		return nil
	}
	return shared.ErrValidation.
		WithMessage(fmt.Sprintf("invalid %s", subject)).
		WithCause(&violationsError{violations: violations})
}

func toViolations(err error) []FieldViolation {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldViolation{{Field: "", Message: err.Error()}}
	}
	out := make([]FieldViolation, 0, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		out = append(out, FieldViolation{Field: field, Message: violationMessage(e)})
	}
	return out
}

func violationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "shardkey":
		return "Must contain only letters, digits, '-' or '_' (1-128 characters)"
	case "locale":
		return "Invalid locale code"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "min":
		return "Must have at least " + e.Param() + " entries"
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "url":
		return "Invalid URL format"
	default:
		return "Invalid value"
	}
}
