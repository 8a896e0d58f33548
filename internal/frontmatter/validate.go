package frontmatter

import (
	"fmt"
	"reflect"
	"time"
)

// ValidationResult contains the result of frontmatter validation.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// dateLayouts are the date formats Hexo accepts in frontmatter.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// ParseDate parses a frontmatter date in one of the layouts Hexo writes.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks that fm can be serialized and flags suspicious values.
func Validate(fm Frontmatter) ValidationResult {
	result := ValidationResult{
		IsValid:  true,
		Errors:   []string{},
		Warnings: []string{},
	}

	for key, value := range fm.Custom.All() {
		if IsKnownKey(key) {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Custom field %q duplicates a recognized field", key))
		}
		checkForProblematicValues(value, &result, key)
	}

	// Only try to encode if no problematic values were found
	if result.IsValid {
		if _, err := metadataNode(fm); err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Invalid YAML structure: %v", err))
		}
	}

	if fm.Title == "" {
		result.Warnings = append(result.Warnings, "Title is empty")
	}
	if fm.Date != "" {
		if _, ok := ParseDate(fm.Date); !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Date %q is not in a format Hexo recognizes", fm.Date))
		}
	}

	return result
}

func checkForProblematicValues(obj any, result *ValidationResult, path string) {
	if obj == nil {
		return
	}

	if fields, ok := obj.(*Fields); ok {
		for key, value := range fields.All() {
			checkForProblematicValues(value, result, path+"."+key)
		}
		return
	}

	v := reflect.ValueOf(obj)

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		result.Errors = append(result.Errors, fmt.Sprintf("Value of type %T is not allowed in frontmatter at path: %s", obj, path))
		result.IsValid = false

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			checkForProblematicValues(v.Index(i).Interface(), result, fmt.Sprintf("%s[%d]", path, i))
		}

	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key()
			if key.Kind() != reflect.String {
				result.Errors = append(result.Errors, fmt.Sprintf("Non-string keys are not allowed: %v", key.Interface()))
				result.IsValid = false
			}
			checkForProblematicValues(iter.Value().Interface(), result, fmt.Sprintf("%s.%v", path, key.Interface()))
		}
	}
}
