package builtins

import (
	"regexp"

	"vellum/internal/value"
)

// registerRegExp wires the RegExp literal constructor the compiler emits
// for /pattern/flags literals (internal/compiler/expr.go's RegExpLiteral
// case pushes flags, then pattern, then RegExp itself, then NEW 2). No third-party regex engine
// appears anywhere in the retrieved pack, so this leans on the standard
// library's RE2-flavored regexp package.
func init() {
	RegisterFunc("RegExp", func(_ value.Value, args []value.Value) (value.Value, error) {
		if len(args) == 0 {
			return value.Value{}, errRegExpArgs
		}
		pattern := args[0].ToString()
		flags := ""
		if len(args) > 1 {
			flags = args[1].ToString()
		}
		goPattern := pattern
		var inlineFlags string
		if containsRune(flags, 'i') {
			inlineFlags += "i"
		}
		if containsRune(flags, 's') {
			inlineFlags += "s"
		}
		if containsRune(flags, 'm') {
			inlineFlags += "m"
		}
		if inlineFlags != "" {
			goPattern = "(?" + inlineFlags + ")" + goPattern
		}
		re, err := regexp.Compile(goPattern)
		if err != nil {
			return value.Value{}, err
		}
		ho := &value.HostObject{TypeName: "RegExp", Data: re}
		ho.Methods = map[string]value.HostFunc{
			"test": func(_ value.Value, callArgs []value.Value) (value.Value, error) {
				if len(callArgs) == 0 {
					return value.Bool(false), nil
				}
				return value.Bool(re.MatchString(callArgs[0].ToString())), nil
			},
			"exec": func(_ value.Value, callArgs []value.Value) (value.Value, error) {
				if len(callArgs) == 0 {
					return value.Null, nil
				}
				m := re.FindStringSubmatch(callArgs[0].ToString())
				if m == nil {
					return value.Null, nil
				}
				elems := make([]value.Value, len(m))
				for i, s := range m {
					elems[i] = value.String(s)
				}
				return value.FromArray(value.NewArray(elems)), nil
			},
		}
		return value.FromHostObject(ho), nil
	})
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

type regexpArgError struct{ msg string }

func (e *regexpArgError) Error() string { return e.msg }

var errRegExpArgs = &regexpArgError{"RegExp: pattern argument required"}
