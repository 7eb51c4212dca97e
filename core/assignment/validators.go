package assignment

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/paku/core"
)

var (
	statusTag    = "status"
	sentimentTag = "sentiment"
)

// InitValidators registers the `status` & `sentiment` validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, func(fl validator.FieldLevel) bool {
		_, err := ParseStatus(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, statusTag, "must be one of: "+joinStatuses())

	_ = validate.RegisterValidation(sentimentTag, func(fl validator.FieldLevel) bool {
		_, err := ParseSentiment(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, sentimentTag, "must be one of: "+joinSentiments())
}

func joinStatuses() string {
	s := make([]string, 0, len(Statuses))
	for _, st := range Statuses {
		s = append(s, string(st))
	}
	return strings.Join(s, ", ")
}

func joinSentiments() string {
	s := make([]string, 0, len(Sentiments))
	for _, st := range Sentiments {
		s = append(s, string(st))
	}
	return strings.Join(s, ", ")
}
