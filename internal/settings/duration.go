package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// ParseSeconds reads a duration from a config or scenario value. Strings in
// Go duration syntax ("250ms") are parsed as such; bare numbers, and strings
// holding one, count seconds.
func ParseSeconds(v any) (time.Duration, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		v = s
	}

	secs, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %v", v)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
