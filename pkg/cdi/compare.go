package cdi

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// Comparator evaluates SMART pass/fail predicates over parsed records.
// Attributes are matched by name, not ID. A failed comparison is reported
// through the bool result; errors are reserved for bad selectors and bad hex.
type Comparator struct {
	logger *slog.Logger
}

// NewComparator creates a comparator; a nil logger uses slog.Default
func NewComparator(logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{logger: logger}
}

// RawValue parses a SMART raw value as a big-endian unsigned hex integer
func RawValue(hex string) (int64, error) {
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return int64(v), nil
}

// GetValues returns the raw values of the requested attributes on the disk
// matched by selector. Names without a SMART row are omitted.
func (c *Comparator) GetValues(rec *Record, selector string, names []string) (map[string]int64, error) {
	disk, err := rec.FindDisk(selector)
	if err != nil {
		return nil, err
	}

	values := make(map[string]int64, len(names))
	for _, name := range names {
		attr, ok := disk.Attribute(name)
		if !ok {
			continue
		}
		v, err := RawValue(attr.RawValue)
		if err != nil {
			return nil, &ParseError{Attribute: name, Value: attr.RawValue, Err: err}
		}
		values[name] = v
	}
	return values, nil
}

// AllValues returns every SMART raw value of the disk matched by selector,
// keyed by attribute name. The first row wins when a name repeats.
func (c *Comparator) AllValues(rec *Record, selector string) (map[string]int64, error) {
	disk, err := rec.FindDisk(selector)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(disk.Smart))
	for _, attr := range disk.Smart {
		names = append(names, attr.Name)
	}
	return c.GetValues(rec, selector, names)
}

// AssertEquals passes when every named attribute equals expected.
// A missing attribute fails.
func (c *Comparator) AssertEquals(rec *Record, selector string, names []string, expected int64) (bool, string, error) {
	values, err := c.GetValues(rec, selector, names)
	if err != nil {
		return false, "", err
	}

	var passed []string
	for _, name := range names {
		got, ok := values[name]
		if !ok {
			return c.fail(selector, name, fmt.Sprintf("Check SMART Failed %s: missing != %d", name, expected))
		}
		if got != expected {
			return c.fail(selector, name, fmt.Sprintf("Check SMART Failed %s: %d != %d", name, got, expected))
		}
		passed = append(passed, c.pass(selector, name, fmt.Sprintf("%s: %d == %d", name, got, expected)))
	}
	return true, passMessage(passed), nil
}

// AssertNoIncrease passes when every named attribute is unchanged between
// the two snapshots. Missing values count as 0.
func (c *Comparator) AssertNoIncrease(before, after *Record, selector string, names []string) (bool, string, error) {
	bv, av, err := c.pair(before, after, selector, names)
	if err != nil {
		return false, "", err
	}

	var passed []string
	for _, name := range names {
		b, a := bv[name], av[name]
		if b != a {
			return c.fail(selector, name, fmt.Sprintf("Check SMART Failed %s: %d != %d", name, b, a))
		}
		passed = append(passed, c.pass(selector, name, fmt.Sprintf("%s: %d == %d", name, b, a)))
	}
	return true, passMessage(passed), nil
}

// AssertDelta passes when after-before equals expectedDelta exactly for every
// named attribute. Missing values count as 0; deltas may be negative.
func (c *Comparator) AssertDelta(before, after *Record, selector string, names []string, expectedDelta int64) (bool, string, error) {
	bv, av, err := c.pair(before, after, selector, names)
	if err != nil {
		return false, "", err
	}

	var passed []string
	for _, name := range names {
		b, a := bv[name], av[name]
		delta := a - b
		if delta != expectedDelta {
			return c.fail(selector, name,
				fmt.Sprintf("Check SMART Failed %s: %d - %d = %d != %d", name, a, b, delta, expectedDelta))
		}
		passed = append(passed, c.pass(selector, name,
			fmt.Sprintf("%s: %d - %d = %d == %d", name, a, b, delta, expectedDelta)))
	}
	return true, passMessage(passed), nil
}

func (c *Comparator) pair(before, after *Record, selector string, names []string) (map[string]int64, map[string]int64, error) {
	bv, err := c.GetValues(before, selector, names)
	if err != nil {
		return nil, nil, err
	}
	av, err := c.GetValues(after, selector, names)
	if err != nil {
		return nil, nil, err
	}
	return bv, av, nil
}

func (c *Comparator) fail(selector, name, msg string) (bool, string, error) {
	c.logger.Error(msg, "drive", selector, "attribute", name)
	return false, msg, nil
}

func (c *Comparator) pass(selector, name, detail string) string {
	c.logger.Info("Check SMART Passed "+detail, "drive", selector, "attribute", name)
	return detail
}

// passMessage aggregates every checked attribute into one message
func passMessage(details []string) string {
	if len(details) == 0 {
		return "Check SMART Passed: no attributes checked"
	}
	return "Check SMART Passed " + strings.Join(details, "; ")
}
