package hostlib

import (
	"github.com/google/uuid"

	"vellum/internal/value"
)

// UUID exposes uuid.v4(), a random-generator capability grounded on the
// same github.com/google/uuid module the pack already depends on elsewhere.
func UUID() Module {
	return namespace(map[string]value.HostFunc{
		"v4": func(_ value.Value, _ []value.Value) (value.Value, error) {
			return value.String(uuid.NewString()), nil
		},
	})
}
