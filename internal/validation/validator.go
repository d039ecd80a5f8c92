package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/plant-nursery-api/internal/models"
	"github.com/shopspring/decimal"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Validator provides validation methods. The scraped-product checks keep a
// per-run cache of source ids, so use one Validator per import run.
type Validator struct {
	validate      *validator.Validate
	sourceIDCache map[string]bool
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	v := validator.New()

	// report json field names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("register slug validation: %v", err))
	}

	return &Validator{
		validate:      v,
		sourceIDCache: make(map[string]bool),
	}
}

// ValidateImportRequest validates an import job request
func (v *Validator) ValidateImportRequest(req *models.ImportJobRequest) []ValidationError {
	return v.structErrors(req)
}

// ValidateCreateProduct validates a manual product creation request
func (v *Validator) ValidateCreateProduct(req *models.CreateProductRequest) []ValidationError {
	errs := v.structErrors(req)
	if req.Name != "" && strings.TrimSpace(req.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name must not be blank"})
	}
	return errs
}

// ValidateProductContent validates a product content upsert
func (v *Validator) ValidateProductContent(req *models.ProductContentRequest) []ValidationError {
	errs := v.structErrors(req)
	if req.DetailedDescription == "" && req.GrowingRequirements == "" && req.CareInstructions == "" &&
		req.Uses == "" && req.Benefits == "" {
		errs = append(errs, ValidationError{Field: "content", Message: "at least one content field is required"})
	}
	return errs
}

// ValidateScrapedProduct checks a product read from the partner site before
// it is written to the catalog
func (v *Validator) ValidateScrapedProduct(p *models.ScrapedProduct) []ValidationError {
	var errs []ValidationError

	if p.SourceID == "" {
		errs = append(errs, ValidationError{Field: "sourceId", Message: "sourceId is required"})
	} else if v.sourceIDCache[p.SourceID] {
		errs = append(errs, ValidationError{Field: "sourceId", Message: "duplicate sourceId in this run", Value: p.SourceID})
	}

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "name is required"})
	}

	if p.Price.IsNegative() {
		errs = append(errs, ValidationError{Field: "price", Message: "price must not be negative", Value: p.Price.String()})
	}

	if p.Availability != "" && !models.ValidAvailabilities[p.Availability] {
		errs = append(errs, ValidationError{Field: "availability", Message: "unknown availability", Value: string(p.Availability)})
	}

	if len(errs) == 0 {
		v.sourceIDCache[p.SourceID] = true
	}
	return errs
}

func (v *Validator) structErrors(s interface{}) []ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Message: message(fe),
			Value:   printable(fe.Value()),
		})
	}
	return out
}

// fieldPath drops the struct name prefix: "ImportJobRequest.categories[0]" → "categories[0]"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "slug":
		return fmt.Sprintf("%s must be kebab-case (lowercase letters, numbers, hyphens)", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// printable keeps error values JSON-friendly and drops empty ones
func printable(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		if rv.Len() == 0 {
			return nil
		}
		return rv.String()
	case reflect.Int, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	default:
		return nil
	}
}
