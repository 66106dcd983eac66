package tool

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	contractx "github.com/autoosone/auto-state/agent/contract"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Check verifies required fields and primitive types of args against params.
func Check(params contractx.Params, args map[string]any) error {
	var problems []string
	checkObject("", params, args, &problems)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", contractx.ErrValidation, strings.Join(problems, "; "))
}

// Bind checks args, decodes them into T and runs its struct validation tags.
func Bind[T any](params contractx.Params, args map[string]any) (T, error) {
	var out T
	if err := Check(params, args); err != nil {
		return out, err
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("%w: encode arguments: %v", contractx.ErrValidation, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: decode arguments: %v", contractx.ErrValidation, err)
	}

	if reflect.Indirect(reflect.ValueOf(&out)).Kind() != reflect.Struct {
		return out, nil
	}
	if err := validate.Struct(&out); err != nil {
		return out, fmt.Errorf("%w: %s", contractx.ErrValidation, describe(err))
	}
	return out, nil
}

// ValidateStruct runs struct validation tags on v.
func ValidateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s", contractx.ErrValidation, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func checkObject(path string, params contractx.Params, obj map[string]any, problems *[]string) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := params[name]
		if p == nil {
			continue
		}
		field := join(path, name)
		v, ok := obj[name]
		if !ok || v == nil {
			if p.Required {
				*problems = append(*problems, field+" is required")
			}
			continue
		}
		checkValue(field, p, v, problems)
	}
}

func checkValue(path string, p *contractx.Param, v any, problems *[]string) {
	switch p.Type {
	case contractx.ParamString:
		s, ok := v.(string)
		if !ok {
			*problems = append(*problems, path+" must be a string")
			return
		}
		if p.Required && strings.TrimSpace(s) == "" {
			*problems = append(*problems, path+" is required")
			return
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			*problems = append(*problems, fmt.Sprintf("%s must be one of %s", path, strings.Join(p.Enum, ", ")))
		}
	case contractx.ParamNumber:
		if _, ok := toFloat(v); !ok {
			*problems = append(*problems, path+" must be a number")
		}
	case contractx.ParamInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			*problems = append(*problems, path+" must be an integer")
		}
	case contractx.ParamBoolean:
		if _, ok := v.(bool); !ok {
			*problems = append(*problems, path+" must be a boolean")
		}
	case contractx.ParamID:
		if s, ok := v.(string); ok {
			if strings.TrimSpace(s) == "" {
				*problems = append(*problems, path+" is required")
			}
			return
		}
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			*problems = append(*problems, path+" must be a string or integer")
		}
	case contractx.ParamObject:
		obj, ok := v.(map[string]any)
		if !ok {
			*problems = append(*problems, path+" must be an object")
			return
		}
		checkObject(path, p.Fields, obj, problems)
	case contractx.ParamArray:
		items, ok := toSlice(v)
		if !ok {
			*problems = append(*problems, path+" must be an array")
			return
		}
		if p.Required && len(items) == 0 {
			*problems = append(*problems, path+" must not be empty")
			return
		}
		if p.Elem == nil {
			return
		}
		for i, item := range items {
			checkValue(fmt.Sprintf("%s[%d]", path, i), p.Elem, item, problems)
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
