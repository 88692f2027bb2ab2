// Package binder decodes request bodies into structs. JSON and HTML form
// bodies are supported so the same handler can serve both a browser form
// post and an API client.
package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Bind decodes the request body into v based on the Content-Type header.
// v must be a non-nil pointer to a struct.
func Bind(r *http.Request, v any) error {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return ErrMissingContentType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
	}

	switch mediaType {
	case "application/json":
		return BindJSON(r, v)
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return BindForm(r, v)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}
}

// BindJSON decodes a JSON body into v. Unknown fields are rejected.
func BindJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrInvalidJSON)
		}
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var extra json.RawMessage
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidJSON)
	}
	return nil
}

// BindForm decodes form values into v using `form` struct tags. Supported
// field types are string, bool, integers, floats and pointers to them.
func BindForm(r *http.Request, v any) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidForm, err)
		}
	} else if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidForm, err)
	}
	return bindValues(v, r.PostForm)
}

func bindValues(v any, values url.Values) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a non-nil struct pointer", ErrInvalidForm)
	}

	rv = rv.Elem()
	rt := rv.Type()
	for i := range rt.NumField() {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		name := field.Tag.Get("form")
		if name == "-" {
			continue
		}
		if idx := strings.Index(name, ","); idx != -1 {
			name = name[:idx]
		}
		if name == "" {
			name = strings.ToLower(field.Name)
		}

		raw, ok := values[name]
		if !ok || len(raw) == 0 {
			continue
		}

		if err := setField(rv.Field(i), raw[0]); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidForm, name, err)
		}
	}
	return nil
}

func setField(fv reflect.Value, raw string) error {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}
		fv = fv.Elem()
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Kind())
	}
	return nil
}
