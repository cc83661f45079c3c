package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// ErrMalformedBody is returned when a request body is not a single JSON object.
var ErrMalformedBody = errors.New("request body must be a JSON object")

// Params is a decoded flat request body. Numbers are kept as json.Number so
// integers and floats stay distinguishable.
type Params map[string]any

// DecodeParams parses body into Params.
func DecodeParams(body []byte) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var params Params
	if err := dec.Decode(&params); err != nil {
		return nil, errors.Join(ErrMalformedBody, err)
	}
	if params == nil {
		return nil, ErrMalformedBody
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrMalformedBody
	}
	return params, nil
}

// Lookup returns the value stored under key and whether the key was present.
func (p Params) Lookup(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// String validates key as a string field and returns its value.
func (p Params) String(key, label string) (string, *FieldError) {
	v, ok := p.Lookup(key)
	if fe := ValidateString(v, ok, label); fe != nil {
		return "", fe
	}
	return v.(string), nil
}

// Int validates key as an integer field and returns its value.
func (p Params) Int(key, label string) (int64, *FieldError) {
	v, ok := p.Lookup(key)
	if fe := ValidateInteger(v, ok, label); fe != nil {
		return 0, fe
	}
	n, _ := AsInt64(v)
	return n, nil
}
