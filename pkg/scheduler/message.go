package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultMessageTemplate = "Server time: %s"
	DefaultTimeLayout      = "15:04:05"
)

var ErrInvalidTemplate = errors.New("message template must contain exactly one %s verb")

// MessageFunc computes the payload broadcast on a tick.
type MessageFunc func(now time.Time) (string, error)

// TimestampMessage renders now with layout and substitutes it into template.
func TimestampMessage(template, layout string) (MessageFunc, error) {
	stripped := strings.ReplaceAll(template, "%%", "")
	if strings.Count(stripped, "%") != 1 || !strings.Contains(stripped, "%s") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, template)
	}
	if layout == "" {
		layout = DefaultTimeLayout
	}

	return func(now time.Time) (string, error) {
		return fmt.Sprintf(template, now.Format(layout)), nil
	}, nil
}

func defaultMessage(now time.Time) (string, error) {
	return fmt.Sprintf(DefaultMessageTemplate, now.Format(DefaultTimeLayout)), nil
}
