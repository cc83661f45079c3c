// Package validation checks the scalar fields of incoming product requests.
//
// Checks return a *FieldError instead of failing the request directly, so the
// caller decides how a rejected field is reported.
package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// MaxStringLength is the longest accepted string field, in characters.
const MaxStringLength = 255

// Kind classifies a rejected field.
type Kind int

const (
	// MissingField means the key is absent or null.
	MissingField Kind = iota + 1
	// WrongType means the value has a different JSON type than required.
	WrongType
	// TooLong means a string exceeds MaxStringLength.
	TooLong
)

func (k Kind) String() string {
	switch k {
	case MissingField:
		return "missing_field"
	case WrongType:
		return "wrong_type"
	case TooLong:
		return "too_long"
	default:
		return "unknown"
	}
}

// FieldError describes the first check a field failed.
type FieldError struct {
	Kind  Kind
	Label string
	// Expected names the required type for WrongType errors.
	Expected string
}

func (e *FieldError) Error() string {
	switch e.Kind {
	case MissingField:
		return fmt.Sprintf("Product %s is missing!", e.Label)
	case WrongType:
		return fmt.Sprintf("Product %s must be %s!", e.Label, e.Expected)
	case TooLong:
		return fmt.Sprintf("Product %s must be shorter than %d characters!", e.Label, MaxStringLength)
	default:
		return fmt.Sprintf("Product %s is invalid!", e.Label)
	}
}

var validate = validator.New()

// ValidateString checks presence, type and length of value, in that order.
// present reports whether the key existed in the request at all.
func ValidateString(value any, present bool, label string) *FieldError {
	if !present || value == nil {
		return &FieldError{Kind: MissingField, Label: label}
	}
	s, ok := value.(string)
	if !ok {
		return &FieldError{Kind: WrongType, Label: label, Expected: "a string"}
	}
	if err := validate.Var(s, "max="+strconv.Itoa(MaxStringLength)); err != nil {
		return &FieldError{Kind: TooLong, Label: label}
	}
	return nil
}

// ValidateInteger checks presence and integer type of value, in that order.
func ValidateInteger(value any, present bool, label string) *FieldError {
	if !present || value == nil {
		return &FieldError{Kind: MissingField, Label: label}
	}
	if _, ok := AsInt64(value); !ok {
		return &FieldError{Kind: WrongType, Label: label, Expected: "an integer"}
	}
	return nil
}

// AsInt64 converts integer values to int64. json.Number is accepted only when
// its literal is a plain integer; floats and numeric strings are rejected.
func AsInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case nil, string, bool, float32, float64:
		return 0, false
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}
