package hostlib

import (
	"time"

	"github.com/dustin/go-humanize"

	"vellum/internal/value"
)

// Humanize exposes humanize.bytes(n) and humanize.time(unixSeconds), letting
// a script format host-supplied byte counts and timestamps for display
// without reimplementing the formatting rules itself.
func Humanize() Module {
	return namespace(map[string]value.HostFunc{
		"bytes": func(_ value.Value, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Value{}, hostlibError("humanize.bytes requires a byte-count argument")
			}
			return value.String(humanize.Bytes(uint64(args[0].ToNumber()))), nil
		},
		"time": func(_ value.Value, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Value{}, hostlibError("humanize.time requires a unix-seconds argument")
			}
			t := time.Unix(int64(args[0].ToNumber()), 0)
			return value.String(humanize.Time(t)), nil
		},
	})
}
