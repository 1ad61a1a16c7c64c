package hostlib

import (
	"golang.org/x/crypto/bcrypt"

	"vellum/internal/value"
)

// Hash exposes hash.password(plaintext) and hash.verify(plaintext, digest),
// a realistic capability a host embedding vellum as a sandboxed script
// engine would grant selectively rather than bake into the default
// built-ins (spec §6.3 ships nothing that touches a cryptographic library).
func Hash() Module {
	return namespace(map[string]value.HostFunc{
		"password": func(_ value.Value, args []value.Value) (value.Value, error) {
			if len(args) == 0 {
				return value.Value{}, hostlibError("hash.password requires a plaintext argument")
			}
			digest, err := bcrypt.GenerateFromPassword([]byte(args[0].ToString()), bcrypt.DefaultCost)
			if err != nil {
				return value.Value{}, err
			}
			return value.String(string(digest)), nil
		},
		"verify": func(_ value.Value, args []value.Value) (value.Value, error) {
			if len(args) < 2 {
				return value.Value{}, hostlibError("hash.verify requires a plaintext and a digest argument")
			}
			err := bcrypt.CompareHashAndPassword([]byte(args[1].ToString()), []byte(args[0].ToString()))
			return value.Bool(err == nil), nil
		},
	})
}

type hostlibError string

func (e hostlibError) Error() string { return string(e) }
