package participant

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/paku/core"
)

var (
	skillTag  = "skill"
	skillText = "must be one of: " + joinSkills()
)

func joinSkills() string {
	s := ""
	for i, lvl := range SkillLevels {
		if i > 0 {
			s += ", "
		}
		s += string(lvl)
	}
	return s
}

// InitValidators registers the participant validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(skillTag, skillValidation)
	core.RegisterCustomTranslation(validate, translator, skillTag, skillText)
}

func skillValidation(fl validator.FieldLevel) bool {
	_, err := ParseSkillLevel(fl.Field().String())
	return err == nil
}
