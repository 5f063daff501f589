package slicer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// DefaultDateLayout renders dateTime columns without a format hint.
const DefaultDateLayout = "2006-01-02"

// valueFormatter renders one non-null cell of a column.
type valueFormatter func(v any) string

// Formatter renders raw cell values into display strings. The per-column
// rendering function is chosen once, when the formatter is built.
type Formatter struct {
	label      string
	emptyBlank bool
	cols       []valueFormatter
	fallback   valueFormatter
}

// NewFormatter resolves a value formatter for every column.
func NewFormatter(columns []model.Column, opts Options) *Formatter {
	tag := opts.Locale
	if tag == language.Und {
		tag = language.English
	}
	p := message.NewPrinter(tag)

	f := &Formatter{
		label:      opts.emptyLabel(),
		emptyBlank: opts.EmptyStringIsBlank,
		cols:       make([]valueFormatter, len(columns)),
		fallback:   formatText,
	}
	for i, col := range columns {
		f.cols[i] = formatterFor(col, p)
	}
	return f
}

// Format renders the cell at column col. Nulls render as the empty leaf
// label.
func (f *Formatter) Format(col int, v any) string {
	if v == nil {
		return f.label
	}
	if s, ok := v.(string); ok && s == "" && f.emptyBlank {
		return f.label
	}
	fn := f.fallback
	if col >= 0 && col < len(f.cols) {
		fn = f.cols[col]
	}
	return fn(v)
}

// EmptyLabel returns the label used for null cells.
func (f *Formatter) EmptyLabel() string {
	return f.label
}

func formatterFor(col model.Column, p *message.Printer) valueFormatter {
	switch col.Type {
	case model.TypeInteger:
		return integerFormatter(col.Format, p)
	case model.TypeNumeric:
		return numericFormatter(col.Format, p)
	case model.TypeBoolean:
		return formatBoolean
	case model.TypeDateTime:
		return dateFormatter(col.Format)
	default:
		return formatText
	}
}

func formatText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// integerFormatter groups digits only when the format hint asks for it
// ("#,##0" style).
func integerFormatter(format string, p *message.Printer) valueFormatter {
	var opts []number.Option
	if !strings.Contains(format, ",") {
		opts = append(opts, number.NoSeparator())
	}
	return func(v any) string {
		n, ok := toInt(v)
		if !ok {
			return formatText(v)
		}
		return p.Sprintf("%v", number.Decimal(n, opts...))
	}
}

// numericFormatter honours a fixed precision hint such as "0.00" or
// "#,##0.0".
func numericFormatter(format string, p *message.Printer) valueFormatter {
	var opts []number.Option
	if !strings.Contains(format, ",") {
		opts = append(opts, number.NoSeparator())
	}
	if i := strings.LastIndex(format, "."); i >= 0 {
		digits := len(format) - i - 1
		opts = append(opts, number.MinFractionDigits(digits), number.MaxFractionDigits(digits))
	}
	return func(v any) string {
		f, ok := toFloat(v)
		if !ok {
			return formatText(v)
		}
		return p.Sprintf("%v", number.Decimal(f, opts...))
	}
}

func formatBoolean(v any) string {
	var b bool
	switch x := v.(type) {
	case bool:
		b = x
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return x
		}
		b = parsed
	default:
		n, ok := toFloat(v)
		if !ok {
			return formatText(v)
		}
		b = n != 0
	}
	if b {
		return "True"
	}
	return "False"
}

var dateInputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func dateFormatter(layout string) valueFormatter {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return func(v any) string {
		switch x := v.(type) {
		case time.Time:
			return x.Format(layout)
		case string:
			for _, in := range dateInputLayouts {
				if t, err := time.Parse(in, x); err == nil {
					return t.Format(layout)
				}
			}
			return x
		case int64:
			return time.Unix(x, 0).UTC().Format(layout)
		default:
			return formatText(v)
		}
	}
}

func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float32:
		return int64(x), true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	n, ok := toInt(v)
	return float64(n), ok
}
