package tabular

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ColumnType is the inferred logical type of a column.
type ColumnType string

const (
	TypeText     ColumnType = "text"
	TypeInteger  ColumnType = "integer"
	TypeReal     ColumnType = "real"
	TypeBoolean  ColumnType = "boolean"
	TypeDatetime ColumnType = "datetime"
)

// Column is one entry of an ordered schema.
type Column struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Samples []string   `json:"sampleValues,omitempty"`
}

var datetimeShapes = []struct {
	pattern *regexp.Regexp
	layouts []string
}{
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`),
		[]string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`),
		[]string{"2006-01-02 15:04:05"},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
		[]string{"1/2/2006", "01/02/2006"},
	},
}

func isDatetime(value string) bool {
	for _, shape := range datetimeShapes {
		if !shape.pattern.MatchString(value) {
			continue
		}
		for _, layout := range shape.layouts {
			if _, err := time.Parse(layout, value); err == nil {
				return true
			}
		}
	}
	return false
}

func isBoolean(value string) bool {
	switch strings.ToLower(value) {
	case "true", "false":
		return true
	default:
		return false
	}
}

// InferType infers a column type from its sampled values.
//
// Empty values are ignored. Mixed integer and real promote to real; any
// other mix falls back to text, so the result is always the narrowest
// type every non-empty sample can be parsed as.
func InferType(values []string) ColumnType {
	var seenInteger, seenReal, seenBoolean, seenDatetime, seenText, seenAny bool

	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		seenAny = true

		switch {
		case isBoolean(value):
			seenBoolean = true
		case isDatetime(value):
			seenDatetime = true
		default:
			if _, err := strconv.ParseInt(value, 10, 64); err == nil {
				seenInteger = true
			} else if _, err := strconv.ParseFloat(value, 64); err == nil {
				seenReal = true
			} else {
				seenText = true
			}
		}
	}

	switch {
	case !seenAny || seenText:
		return TypeText
	case seenBoolean && !seenInteger && !seenReal && !seenDatetime:
		return TypeBoolean
	case seenDatetime && !seenInteger && !seenReal && !seenBoolean:
		return TypeDatetime
	case (seenInteger || seenReal) && !seenBoolean && !seenDatetime:
		if seenReal {
			return TypeReal
		}
		return TypeInteger
	default:
		return TypeText
	}
}
