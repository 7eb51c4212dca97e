package task

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
)

type Step struct {
	TaskID      string `json:"task_id"`
	StepNumber  int    `json:"step_number"`
	Instruction string `json:"instruction"`
	ImagePath   string `json:"image_path,omitempty"`
}

type Task struct {
	ID            string                 `json:"id"`
	AdminID       string                 `json:"admin_id"`
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	RequiredSkill participant.SkillLevel `json:"required_skill"`
	CreatedAt     time.Time              `json:"created_at"` // UTC
	Steps         []Step                 `json:"steps,omitempty"`
}

// SortedSteps returns a copy of the steps in ascending step_number order.
func (t Task) SortedSteps() []Step {
	steps := make([]Step, len(t.Steps))
	copy(steps, t.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].StepNumber < steps[j].StepNumber })
	return steps
}

type NewStep struct {
	StepNumber  int    `json:"step_number" validate:"gte=0"`
	Instruction string `json:"instruction"`
	ImagePath   string `json:"image_path"`
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Name          string    `json:"name" validate:"required"`
	Description   string    `json:"description"`
	RequiredSkill string    `json:"required_skill" validate:"required,skill"`
	Steps         []NewStep `json:"steps" validate:"required,min=1,dive"`
}

// Validate cleans the input, drops blank steps and numbers the un-numbered ones after the highest given number.
func (nt *NewTask) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanText(nt.Name)
	nt.Description = core.CleanText(nt.Description)
	nt.RequiredSkill = core.CleanString(nt.RequiredSkill)

	steps := make([]NewStep, 0, len(nt.Steps))
	maxNum := 0
	for _, s := range nt.Steps {
		s.Instruction = core.CleanText(s.Instruction)
		s.ImagePath = core.CleanString(s.ImagePath)
		if s.Instruction == "" {
			continue
		}
		if s.StepNumber > maxNum {
			maxNum = s.StepNumber
		}
		steps = append(steps, s)
	}
	seen := make(map[int]struct{}, len(steps))
	for i := range steps {
		if steps[i].StepNumber == 0 {
			maxNum++
			steps[i].StepNumber = maxNum
		}
		if _, ok := seen[steps[i].StepNumber]; ok {
			return core.NewValidationError(nil, core.FieldError{Field: "steps", Error: "step numbers must be unique"})
		}
		seen[steps[i].StepNumber] = struct{}{}
	}
	nt.Steps = steps

	return validate.Struct(nt)
}
