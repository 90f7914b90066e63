package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

var dobPattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

func init() {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// dob: MM/DD/YYYY, shape only.
	_ = v.RegisterValidation("dob", func(fl validator.FieldLevel) bool {
		return dobPattern.MatchString(fl.Field().String())
	})
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Fields validates s and returns the failing fields keyed by their json name, with
// "Required" for missing values and the expected format otherwise.
func Fields(s interface{}) map[string]string {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			out[name] = "Required"
		case "dob":
			out[name] = "MM/DD/YYYY"
		default:
			out[name] = fmt.Sprintf("failed '%s'", fe.Tag())
		}
	}
	return out
}

// FormatDOB keeps the digits of s and inserts slashes as MM/DD/YYYY, dropping anything
// past eight digits.
func FormatDOB(s string) string {
	var digits []rune
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
			if len(digits) == 8 {
				break
			}
		}
	}
	out := string(digits[:min(2, len(digits))])
	if len(digits) > 2 {
		out += "/" + string(digits[2:min(4, len(digits))])
	}
	if len(digits) > 4 {
		out += "/" + string(digits[4:])
	}
	return out
}
