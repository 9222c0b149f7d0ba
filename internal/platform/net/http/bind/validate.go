package bind

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidatorSvc pairs the shared validator with its english translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc

	marketCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)
)

// rule is a custom tag or an override of a stock message. {0} is the field, {1} the param.
type rule struct {
	tag  string
	text string
	fn   validator.Func // nil overrides only the message
}

var rules = []rule{
	{tag: "max", text: "{0} must be at most {1}"},
	{tag: "market_code", text: "{0} must be a two-letter upper-case market code", fn: func(fl validator.FieldLevel) bool {
		return IsMarketCode(fl.Field().String())
	}},
}

// Init builds the singleton on first call and returns it
func Init() *ValidatorSvc {
	vOnce.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		for _, r := range rules {
			register(v, trans, r)
		}
		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// Get returns the validator singleton
func Get() *ValidatorSvc { return Init() }

// jsonName reports fields by their json key so messages match the payload
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func register(v *validator.Validate, trans ut.Translator, r rule) {
	if r.fn != nil {
		_ = v.RegisterValidation(r.tag, r.fn)
	}
	_ = v.RegisterTranslation(r.tag, trans,
		func(t ut.Translator) error { return t.Add(r.tag, r.text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(r.tag, fe.Field(), fe.Param())
			return msg
		},
	)
}

// ValidationFieldAndMessage returns the first failing field and its translated
// message; errors that are not validation failures yield their text and no field
func ValidationFieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	}
	return "", err.Error()
}

// IsMarketCode reports whether s is two upper-case letters
func IsMarketCode(s string) bool { return marketCodeRe.MatchString(s) }
