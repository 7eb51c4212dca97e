package task_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/paku/core"
	"github.com/trezcool/paku/core/participant"
	"github.com/trezcool/paku/core/task"
	inmemdb "github.com/trezcool/paku/storage/database/inmem"
)

func newValidator() *validator.Validate {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	participant.InitValidators(validate, translator)
	return validate
}

func TestNewTask_Validate(t *testing.T) {
	validate := newValidator()
	skill := string(participant.SkillSimpleSteps)

	tests := []struct {
		name      string
		nt        task.NewTask
		wantSteps []task.NewStep
		wantErr   bool
	}{
		{
			name: "numbered in order",
			nt:   task.NewTask{Name: "Brush", RequiredSkill: skill, Steps: []task.NewStep{{Instruction: "Wet brush"}, {Instruction: "Brush"}, {Instruction: "Rinse"}}},
			wantSteps: []task.NewStep{
				{StepNumber: 1, Instruction: "Wet brush"},
				{StepNumber: 2, Instruction: "Brush"},
				{StepNumber: 3, Instruction: "Rinse"},
			},
		},
		{
			name: "un-numbered go after the highest & blanks are dropped",
			nt:   task.NewTask{Name: "Brush", RequiredSkill: skill, Steps: []task.NewStep{{Instruction: "a"}, {Instruction: "   "}, {StepNumber: 5, Instruction: "b"}, {Instruction: "c"}}},
			wantSteps: []task.NewStep{
				{StepNumber: 6, Instruction: "a"},
				{StepNumber: 5, Instruction: "b"},
				{StepNumber: 7, Instruction: "c"},
			},
		},
		{name: "duplicate numbers", nt: task.NewTask{Name: "Brush", RequiredSkill: skill, Steps: []task.NewStep{{StepNumber: 2, Instruction: "a"}, {StepNumber: 2, Instruction: "b"}}}, wantErr: true},
		{name: "only blank steps", nt: task.NewTask{Name: "Brush", RequiredSkill: skill, Steps: []task.NewStep{{Instruction: " "}}}, wantErr: true},
		{name: "no name", nt: task.NewTask{RequiredSkill: skill, Steps: []task.NewStep{{Instruction: "a"}}}, wantErr: true},
		{name: "pending is not a skill", nt: task.NewTask{Name: "Brush", RequiredSkill: "Pending", Steps: []task.NewStep{{Instruction: "a"}}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nt.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSteps, tt.nt.Steps)
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := task.NewService(inmemdb.NewTaskRepository(inmemdb.Open()))
	admin := core.Actor{ID: "a1", Role: core.RoleAdmin}
	nt := task.NewTask{
		Name:          "Brush Teeth",
		RequiredSkill: string(participant.SkillBasicVisual),
		Steps:         []task.NewStep{{StepNumber: 2, Instruction: "Brush"}, {StepNumber: 1, Instruction: "Wet brush"}},
	}

	_, err := svc.Create(ctx, core.Actor{ID: "p1", Role: core.RoleParent}, nt)
	var azErr *core.AuthorizationError
	assert.ErrorAs(t, err, &azErr)

	_, err = svc.Create(ctx, admin, task.NewTask{Name: "x", RequiredSkill: "nope", Steps: nt.Steps})
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.Create(ctx, admin, task.NewTask{Name: "x", RequiredSkill: nt.RequiredSkill})
	assert.ErrorAs(t, err, &vErr)

	created, err := svc.Create(ctx, admin, nt)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, created.AdminID)

	got, err := svc.GetWithSteps(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "Wet brush", got.Steps[0].Instruction)
	assert.Equal(t, created.ID, got.Steps[1].TaskID)

	_, err = svc.GetWithSteps(ctx, "nope")
	assert.Equal(t, task.ErrNotFound, err)

	all, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
