package builtins

import (
	"strconv"

	"vellum/internal/value"
)

func init() {
	RegisterMethod(value.KindNumber, "toFixed", func(this value.Value, args []value.Value) (value.Value, error) {
		digits := 0
		if len(args) > 0 {
			digits = int(args[0].ToNumber())
		}
		return value.String(strconv.FormatFloat(this.Number, 'f', digits, 64)), nil
	})
	RegisterMethod(value.KindNumber, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(this.ToString()), nil
	})
}
