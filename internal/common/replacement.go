package common

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
)

// keyRefPattern matches {key_name} references. Lookups are case-insensitive,
// matching the variables store.
var keyRefPattern = regexp.MustCompile(`\{([a-zA-Z0-9_-]+)\}`)

// ReplaceKeyReferences substitutes {key} references with values from kvMap.
// Unknown references are left in place and reported by name only.
func ReplaceKeyReferences(input string, kvMap map[string]string, logger arbor.ILogger) string {
	if input == "" || !strings.Contains(input, "{") {
		return input
	}

	return keyRefPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := kvMap[strings.ToLower(name)]; ok {
			return value
		}
		logger.Warn().Str("key", name).Msg("Unresolved key reference")
		return match
	})
}

// ReplaceInStruct resolves {key} references in the exported string fields of
// a struct, descending into nested structs, pointers, string slices and
// string maps. v must be a pointer to a struct. Values are never logged.
func ReplaceInStruct(v interface{}, kvMap map[string]string, logger arbor.ILogger) (int, error) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return 0, fmt.Errorf("ReplaceInStruct requires a non-nil pointer, got %T", v)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return 0, fmt.Errorf("ReplaceInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}
	return replaceInValue(val, kvMap, logger), nil
}

func replaceInValue(val reflect.Value, kvMap map[string]string, logger arbor.ILogger) int {
	replaced := 0
	resolve := func(s string) (string, bool) {
		out := ReplaceKeyReferences(s, kvMap, logger)
		return out, out != s
	}

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if out, changed := resolve(field.String()); changed {
				field.SetString(out)
				replaced++
			}
		case reflect.Struct:
			replaced += replaceInValue(field, kvMap, logger)
		case reflect.Ptr:
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				replaced += replaceInValue(field.Elem(), kvMap, logger)
			}
		case reflect.Slice:
			if field.Type().Elem().Kind() != reflect.String {
				continue
			}
			for j := 0; j < field.Len(); j++ {
				elem := field.Index(j)
				if out, changed := resolve(elem.String()); changed {
					elem.SetString(out)
					replaced++
				}
			}
		case reflect.Map:
			if field.IsNil() || field.Type().Key().Kind() != reflect.String || field.Type().Elem().Kind() != reflect.String {
				continue
			}
			iter := field.MapRange()
			for iter.Next() {
				if out, changed := resolve(iter.Value().String()); changed {
					field.SetMapIndex(iter.Key(), reflect.ValueOf(out).Convert(field.Type().Elem()))
					replaced++
				}
			}
		}
	}
	return replaced
}
