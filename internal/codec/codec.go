// Package codec converts records to and from the line-oriented table format
// used by every persistence backend. One line holds one record; fields are
// separated by commas and backslash escaping keeps separators, backslashes and
// line breaks inside a single line.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/pkg/domain"
)

// Separator delimits fields within a line.
const Separator = ','

const (
	// DateLayout is the canonical calendar date format.
	DateLayout = "2006-01-02"
	// TimestampLayout is the canonical instant format.
	TimestampLayout = time.RFC3339Nano
	// MoneyPlaces is the number of fractional digits kept for currency.
	MoneyPlaces = 2
)

// Layouts accepted for timestamps written by earlier releases. They carry no
// zone and are read as UTC.
var legacyTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Join escapes each field and joins them into one line.
func Join(fields []string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(Separator)
		}
		escapeInto(&b, f)
	}
	return b.String()
}

func escapeInto(b *strings.Builder, s string) {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case Separator:
			b.WriteString(`\,`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(c)
		}
	}
}

// Split reverses Join. It fails on a dangling or unknown escape sequence.
func Split(line string) ([]string, error) {
	fields := make([]string, 0, 8)
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case '\\':
			if i+1 >= len(line) {
				return nil, fmt.Errorf("dangling escape at end of line")
			}
			i++
			switch line[i] {
			case '\\':
				cur.WriteByte('\\')
			case Separator:
				cur.WriteByte(Separator)
			case 'n':
				cur.WriteByte('\n')
			case 'r':
				cur.WriteByte('\r')
			default:
				return nil, fmt.Errorf("unknown escape \\%c at offset %d", line[i], i-1)
			}
		case Separator:
			fields = append(fields, cur.String())
			cur.Reset()
		case '\n', '\r':
			return nil, fmt.Errorf("raw line break at offset %d", i)
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields, nil
}

// FormatMoney renders a currency amount with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string { return d.StringFixed(MoneyPlaces) }

// NormalizeMoney rounds to the canonical precision so that an encoded and
// decoded amount compares equal to the original.
func NormalizeMoney(d decimal.Decimal) decimal.Decimal { return d.Round(MoneyPlaces) }

// HasMoneyPrecision reports whether d needs no more than two fractional digits.
func HasMoneyPrecision(d decimal.Decimal) bool { return d.Equal(d.Round(MoneyPlaces)) }

// FormatDate renders a calendar date.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// NormalizeDate drops the time of day and zone.
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatTimestamp renders an instant in UTC.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// NormalizeTimestamp converts t to UTC and drops the monotonic reading.
func NormalizeTimestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Round(0)
}

// fieldReader parses typed columns and remembers the first failure so decoders
// can read every column and check once.
type fieldReader struct {
	kind   domain.Kind
	fields []string
	err    error
}

func newFieldReader(kind domain.Kind, line string, widths ...int) (*fieldReader, error) {
	fields, err := Split(line)
	if err != nil {
		return nil, corrupt(kind, err.Error())
	}
	for _, w := range widths {
		if len(fields) == w {
			return &fieldReader{kind: kind, fields: fields}, nil
		}
	}
	return nil, corrupt(kind, fmt.Sprintf("expected %s columns, got %d", describeWidths(widths), len(fields)))
}

func describeWidths(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strconv.Itoa(w)
	}
	return strings.Join(parts, " or ")
}

func (r *fieldReader) width() int { return len(r.fields) }

func (r *fieldReader) str(i int) string { return r.fields[i] }

func (r *fieldReader) fail(name, value, reason string) {
	if r.err == nil {
		r.err = corrupt(r.kind, fmt.Sprintf("%s %q: %s", name, value, reason))
	}
}

func (r *fieldReader) int(i int, name string) int {
	raw := strings.TrimSpace(r.fields[i])
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(name, raw, "not an integer")
	}
	return v
}

func (r *fieldReader) money(i int, name string) decimal.Decimal {
	raw := strings.TrimSpace(r.fields[i])
	d, err := decimal.NewFromString(raw)
	if err != nil {
		r.fail(name, raw, "not a decimal amount")
		return decimal.Zero
	}
	return NormalizeMoney(d)
}

// count reads a quantity, which may not be negative.
func (r *fieldReader) count(i int, name string) int {
	v := r.int(i, name)
	if v < 0 {
		r.fail(name, r.fields[i], "must not be negative")
	}
	return v
}

// amount reads a money value, which may not be negative.
func (r *fieldReader) amount(i int, name string) decimal.Decimal {
	d := r.money(i, name)
	if d.IsNegative() {
		r.fail(name, r.fields[i], "must not be negative")
	}
	return d
}

func (r *fieldReader) date(i int, name string) time.Time {
	raw := strings.TrimSpace(r.fields[i])
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		r.fail(name, raw, "not a date")
	}
	return NormalizeDate(t)
}

func (r *fieldReader) timestamp(i int, name string) time.Time {
	raw := strings.TrimSpace(r.fields[i])
	if raw == "" {
		return time.Time{}
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		r.fail(name, raw, "not a timestamp")
	}
	return t
}

// ParseTimestamp accepts the canonical layout and the zone-less layouts of
// earlier releases.
func ParseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, raw); err == nil {
		return NormalizeTimestamp(t), nil
	}
	for _, layout := range legacyTimestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return NormalizeTimestamp(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func corrupt(kind domain.Kind, reason string) error {
	return &domain.CorruptRecordError{Kind: kind, Reason: reason}
}
