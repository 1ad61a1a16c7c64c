package builtins

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vellum/internal/value"
)

// Case-folding goes through golang.org/x/text/cases rather than
// strings.ToUpper/ToLower: the stdlib functions are byte-wise correct only
// for simple case mappings, and this VM has no notion of source locale to
// pick a strings.ToUpper substitute for.
var (
	upperCaser = cases.Upper(language.Und)
	lowerCaser = cases.Lower(language.Und)
)

func init() {
	RegisterMethod(value.KindString, "toUpperCase", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(upperCaser.String(this.Str)), nil
	})
	RegisterMethod(value.KindString, "toLowerCase", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(lowerCaser.String(this.Str)), nil
	})
	RegisterMethod(value.KindString, "trim", func(this value.Value, _ []value.Value) (value.Value, error) {
		return value.String(strings.TrimSpace(this.Str)), nil
	})
	RegisterMethod(value.KindString, "charAt", func(this value.Value, args []value.Value) (value.Value, error) {
		runes := []rune(this.Str)
		i := argInt(args, 0)
		if i < 0 || i >= len(runes) {
			return value.String(""), nil
		}
		return value.String(string(runes[i])), nil
	})
	RegisterMethod(value.KindString, "indexOf", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Number(-1), nil
		}
		return value.Number(float64(strings.Index(this.Str, args[0].ToString()))), nil
	})
	RegisterMethod(value.KindString, "includes", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		return value.Bool(strings.Contains(this.Str, args[0].ToString())), nil
	})
	RegisterMethod(value.KindString, "startsWith", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		return value.Bool(strings.HasPrefix(this.Str, args[0].ToString())), nil
	})
	RegisterMethod(value.KindString, "endsWith", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		return value.Bool(strings.HasSuffix(this.Str, args[0].ToString())), nil
	})
	RegisterMethod(value.KindString, "replace", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) < 2 {
			return this, nil
		}
		return value.String(strings.Replace(this.Str, args[0].ToString(), args[1].ToString(), 1)), nil
	})
	RegisterMethod(value.KindString, "split", func(this value.Value, args []value.Value) (value.Value, error) {
		sep := ""
		if len(args) > 0 {
			sep = args[0].ToString()
		}
		var parts []string
		if sep == "" {
			for _, r := range this.Str {
				parts = append(parts, string(r))
			}
		} else {
			parts = strings.Split(this.Str, sep)
		}
		elems := make([]value.Value, len(parts))
		for i, p := range parts {
			elems[i] = value.String(p)
		}
		return value.FromArray(value.NewArray(elems)), nil
	})
	RegisterMethod(value.KindString, "slice", func(this value.Value, args []value.Value) (value.Value, error) {
		runes := []rune(this.Str)
		start, end := sliceBounds(len(runes), args)
		return value.String(string(runes[start:end])), nil
	})
	RegisterMethod(value.KindString, "concat", func(this value.Value, args []value.Value) (value.Value, error) {
		s := this.Str
		for _, a := range args {
			s += a.ToString()
		}
		return value.String(s), nil
	})
	RegisterMethod(value.KindString, "toString", func(this value.Value, _ []value.Value) (value.Value, error) {
		return this, nil
	})
	RegisterMethod(value.KindString, "has", func(this value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Bool(false), nil
		}
		i := int(args[0].ToNumber())
		return value.Bool(i >= 0 && i < len([]rune(this.Str))), nil
	})
	RegisterMethod(value.KindString, "keys", func(this value.Value, _ []value.Value) (value.Value, error) {
		n := len([]rune(this.Str))
		keys := make([]value.Value, n)
		for i := 0; i < n; i++ {
			keys[i] = value.String(strconv.Itoa(i))
		}
		return value.FromArray(value.NewArray(keys)), nil
	})
}

func argInt(args []value.Value, i int) int {
	if i >= len(args) {
		return 0
	}
	return int(args[i].ToNumber())
}

// sliceBounds implements the clamp-and-default rule shared by
// String.prototype.slice/Array.prototype.slice: negative indices count from
// the end, out-of-range indices clamp, a missing end defaults to length.
func sliceBounds(length int, args []value.Value) (int, int) {
	start, end := 0, length
	if len(args) > 0 {
		start = clampIndex(int(args[0].ToNumber()), length)
	}
	if len(args) > 1 {
		end = clampIndex(int(args[1].ToNumber()), length)
	}
	if end < start {
		end = start
	}
	return start, end
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}
