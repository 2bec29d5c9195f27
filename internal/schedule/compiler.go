// Package schedule compiles HH:mm wall-clock specs into daily recurrences.
//
// Compilation only checks the two-digit:two-digit shape. Hour and minute are
// deliberately not range-checked; the behavior is kept compatible with the
// existing API surface. See DESIGN.md before tightening.
package schedule

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"

	"notehub/internal/domain"
)

// ErrInvalidScheduleFormat is returned when the input does not match the
// HH:mm shape. It is a client error and is never retried.
var ErrInvalidScheduleFormat = errors.New("invalid schedule format, expected HH:mm")

var specPattern = regexp.MustCompile(`^(\d{2}):(\d{2})$`)

// Compile translates an HH:mm spec into a daily recurrence. It is pure and
// deterministic: equal inputs always yield equal recurrences.
func Compile(spec string) (domain.DailyTime, error) {
	m := specPattern.FindStringSubmatch(spec)
	if m == nil {
		return domain.DailyTime{}, fmt.Errorf("%w, got %q", ErrInvalidScheduleFormat, spec)
	}

	// The pattern guarantees exactly two digits per field.
	hour := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	minute := int(m[2][0]-'0')*10 + int(m[2][1]-'0')

	return domain.DailyTime{Hour: hour, Minute: minute}, nil
}

// CronExpression renders a daily recurrence as a five-field cron expression.
func CronExpression(d domain.DailyTime) string {
	return fmt.Sprintf("%d %d * * *", d.Minute, d.Hour)
}

// ValidateCron checks that the rendered cron form of d parses under a
// standard five-field parser. Compile's permissive hour/minute values can
// fail here; callers that need broker-compatible expressions use this as the
// stricter gate.
func ValidateCron(d domain.DailyTime) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(CronExpression(d))
	return err
}
