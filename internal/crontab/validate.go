package crontab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/pkg/errors"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

type fieldRange struct {
	min, max int
}

// minute hour day month weekday; 0 and 7 are both Sunday
var fieldRanges = [5]fieldRange{
	{0, 59},
	{0, 23},
	{1, 31},
	{1, 12},
	{0, 7},
}

// ValidateSchedule checks a 5-field expression. Literals, comma lists and
// simple ranges are range-checked per field; other forms such as steps or
// month names are left to gronx.
func ValidateSchedule(expr string) (bool, string) {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return false, "Cron schedule must have 5 parts: minute hour day month weekday"
	}
	extended := false
	for i, part := range parts {
		if part == "*" {
			continue
		}
		if !isSimpleField(part) {
			extended = true
			continue
		}
		if reason := checkField(i, part); reason != "" {
			return false, reason
		}
	}
	if extended && !gronx.New().IsValid(expr) {
		return false, fmt.Sprintf("Invalid format: %s", expr)
	}
	return true, "Valid cron schedule"
}

// Validate is ValidateSchedule as an error.
func Validate(expr string) error {
	if ok, reason := ValidateSchedule(expr); !ok {
		return errors.Wrap(ErrInvalidSchedule, reason)
	}
	return nil
}

func isSimpleField(part string) bool {
	for _, c := range part {
		if (c < '0' || c > '9') && c != '-' && c != ',' {
			return false
		}
	}
	return true
}

func checkField(i int, part string) string {
	r := fieldRanges[i]
	pos := i + 1
	if strings.Contains(part, "-") {
		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return fmt.Sprintf("Invalid format in position %d: %s", pos, part)
		}
		start, err1 := strconv.Atoi(bounds[0])
		end, err2 := strconv.Atoi(bounds[1])
		if err1 != nil || err2 != nil {
			return fmt.Sprintf("Invalid format in position %d: %s", pos, part)
		}
		if start < r.min || end > r.max || start > end {
			return fmt.Sprintf("Invalid range in position %d: %s", pos, part)
		}
		return ""
	}
	for _, v := range strings.Split(part, ",") {
		val, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Sprintf("Invalid format in position %d: %s", pos, part)
		}
		if val < r.min || val > r.max {
			return fmt.Sprintf("Invalid value in position %d: %d", pos, val)
		}
	}
	return ""
}
