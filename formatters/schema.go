package formatters

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/flanksource/commons/text"
)

type column struct {
	Key   string
	Label string
}

// table is a value flattened into string cells. A single struct becomes a
// table with one row and list set to false.
type table struct {
	columns []column
	rows    []map[string]string
	list    bool
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

type fieldInfo struct {
	key       string
	label     string
	hide      bool
	omitempty bool
}

// parseField reads the json tag for the column key and the pretty tag
// (label=..., hide) for display.
func parseField(f reflect.StructField) fieldInfo {
	info := fieldInfo{key: f.Name, label: f.Name}
	if tag := f.Tag.Get("json"); tag != "" {
		parts := strings.Split(tag, ",")
		if parts[0] == "-" {
			info.hide = true
		} else if parts[0] != "" {
			info.key = parts[0]
		}
		for _, p := range parts[1:] {
			if p == "omitempty" {
				info.omitempty = true
			}
		}
	}
	for _, part := range strings.Split(f.Tag.Get("pretty"), ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "hide" || part == "-":
			info.hide = true
		case strings.HasPrefix(part, "label="):
			info.label = strings.TrimPrefix(part, "label=")
		}
	}
	return info
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}
		v = v.Elem()
	}
	return v, true
}

func isNested(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && t != timeType
}

func columns(t reflect.Type, prefix string) []column {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		info := parseField(f)
		if info.hide {
			continue
		}
		if isNested(f.Type) {
			cols = append(cols, columns(f.Type, prefix+info.key+".")...)
			continue
		}
		cols = append(cols, column{Key: prefix + info.key, Label: info.label})
	}
	return cols
}

func flatten(v reflect.Value, prefix string, row map[string]string) {
	v, ok := indirect(v)
	if !ok {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		info := parseField(f)
		if info.hide {
			continue
		}
		fv := v.Field(i)
		if isNested(f.Type) {
			flatten(fv, prefix+info.key+".", row)
			continue
		}
		if info.omitempty && fv.IsZero() {
			continue
		}
		row[prefix+info.key] = cell(fv)
	}
}

func cell(v reflect.Value) string {
	v, ok := indirect(v)
	if !ok {
		return ""
	}
	switch v.Type() {
	case timeType:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	case durationType:
		return text.HumanizeDuration(time.Duration(v.Int()))
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Map, reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return ""
		}
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return fmt.Sprint(v.Interface())
		}
		return string(data)
	}
	return fmt.Sprint(v.Interface())
}

func toTable(data any) (*table, error) {
	v, ok := indirect(reflect.ValueOf(data))
	if !ok || !v.IsValid() {
		return &table{}, nil
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		elem := v.Type().Elem()
		if !isNested(elem) {
			return nil, fmt.Errorf("cannot format a list of %s", elem.Kind())
		}
		t := &table{columns: columns(elem, ""), list: true}
		for i := 0; i < v.Len(); i++ {
			row := map[string]string{}
			flatten(v.Index(i), "", row)
			t.rows = append(t.rows, row)
		}
		return t, nil
	case reflect.Struct:
		row := map[string]string{}
		flatten(v, "", row)
		return &table{columns: columns(v.Type(), ""), rows: []map[string]string{row}}, nil
	}
	return nil, fmt.Errorf("cannot format %s", v.Kind())
}

// used drops the columns that are empty in every row.
func (t *table) used() []column {
	var cols []column
	for _, c := range t.columns {
		for _, row := range t.rows {
			if row[c.Key] != "" {
				cols = append(cols, c)
				break
			}
		}
	}
	return cols
}
