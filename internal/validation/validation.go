// Package validation checks request parameters before they reach the
// services. Body payloads are validated through go-playground/validator with
// every violation reported at once; single-condition query parameters
// (pagination, id, search term) fail fast with a single bad-request error.
package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"shopapi/internal/apperrors"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their json names so clients see "minPrice", not "MinPrice".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates a tagged payload struct and collects every violation into
// one ValidationError.
func Struct(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	violations, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.BadRequest("Invalid request body")
	}
	fields := make([]apperrors.FieldError, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, apperrors.FieldError{
			Field:   v.Field(),
			Message: fieldMessage(v),
		})
	}
	return apperrors.Validation("Validation failed", fields)
}

func fieldMessage(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", v.Field())
	case "email":
		return "Invalid email format"
	case "min":
		if v.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", v.Field(), v.Param())
		}
		return fmt.Sprintf("%s must be at least %s", v.Field(), v.Param())
	case "max":
		if v.Kind() == reflect.String {
			return fmt.Sprintf("%s cannot exceed %s characters", v.Field(), v.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", v.Field(), v.Param())
	case "gte":
		return fmt.Sprintf("%s must be a valid positive number", v.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", v.Field(), strings.ReplaceAll(v.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", v.Field())
	}
}

// Pagination parses page/limit query values, applying defaults when absent.
func Pagination(pageStr, limitStr string) (page, limit int, err error) {
	page, limit = DefaultPage, DefaultLimit
	if pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			return 0, 0, apperrors.BadRequest("Page must be a positive integer")
		}
	}
	if limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > MaxLimit {
			return 0, 0, apperrors.BadRequest(fmt.Sprintf("Limit must be between 1 and %d", MaxLimit))
		}
	}
	return page, limit, nil
}

// ID parses a route id parameter into a positive integer. The entity name
// only shapes the error message.
func ID(entity, param string) (uint, error) {
	if param == "" {
		return 0, apperrors.BadRequest(fmt.Sprintf("%s ID is required", entity))
	}
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.BadRequest(fmt.Sprintf("%s ID must be a valid positive integer", entity))
	}
	return uint(id), nil
}

// SearchTerm requires a non-empty term of at most 100 characters and returns
// it trimmed.
func SearchTerm(term string) (string, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return "", apperrors.BadRequest("Search term is required")
	}
	if len(trimmed) > 100 {
		return "", apperrors.BadRequest("Search term cannot exceed 100 characters")
	}
	return trimmed, nil
}

// FilterQuery is the raw product filter portion of the query string.
type FilterQuery struct {
	Category  string
	MinPrice  string
	MaxPrice  string
	SortBy    string
	SortOrder string
	InStock   string
}

var sortableFields = []string{"name", "price", "stock", "createdAt"}

// Filters validates filter parameters, accumulating every violation.
func Filters(q FilterQuery) error {
	var fields []apperrors.FieldError
	var minVal, maxVal float64
	var minOK, maxOK bool

	if q.MinPrice != "" {
		v, err := strconv.ParseFloat(q.MinPrice, 64)
		if err != nil || v < 0 {
			fields = append(fields, apperrors.FieldError{Field: "minPrice", Message: "Minimum price must be a valid positive number"})
		} else {
			minVal, minOK = v, true
		}
	}
	if q.MaxPrice != "" {
		v, err := strconv.ParseFloat(q.MaxPrice, 64)
		if err != nil || v < 0 {
			fields = append(fields, apperrors.FieldError{Field: "maxPrice", Message: "Maximum price must be a valid positive number"})
		} else {
			maxVal, maxOK = v, true
		}
	}
	if minOK && maxOK && minVal > maxVal {
		fields = append(fields, apperrors.FieldError{Field: "priceRange", Message: "Minimum price cannot be greater than maximum price"})
	}

	if q.SortBy != "" && !contains(sortableFields, q.SortBy) {
		fields = append(fields, apperrors.FieldError{
			Field:   "sortBy",
			Message: fmt.Sprintf("Sort field must be one of: %s", strings.Join(sortableFields, ", ")),
		})
	}
	if q.SortOrder != "" {
		order := strings.ToUpper(q.SortOrder)
		if order != "ASC" && order != "DESC" {
			fields = append(fields, apperrors.FieldError{Field: "sortOrder", Message: "Sort order must be ASC or DESC"})
		}
	}
	if q.InStock != "" {
		v := strings.ToLower(q.InStock)
		if v != "true" && v != "false" {
			fields = append(fields, apperrors.FieldError{Field: "inStock", Message: "inStock must be true or false"})
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation("Filter validation failed", fields)
	}
	return nil
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
