package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantops/growtask/internal/domain"
)

func newGatedTask(t *testing.T, sopIDs, trainingIDs []string) *domain.Task {
	t.Helper()
	p := validParams()
	p.RequiredSOPIDs = sopIDs
	p.RequiredTrainingIDs = trainingIDs
	task, err := domain.NewTask(p, newFixedClock())
	require.NoError(t, err)
	return task
}

func TestCheckGating_NoRequirementsNeverGated(t *testing.T) {
	task := newGatedTask(t, nil, nil)

	for _, completed := range [][]string{nil, {}, {"sop-x", "train-y"}} {
		res := task.CheckGating(completed, completed)
		assert.False(t, res.Gated)
		assert.Empty(t, res.MissingSOPIDs)
		assert.Empty(t, res.MissingTrainingIDs)
		assert.Empty(t, res.Reasons)
	}
}

func TestCheckGating_MissingSOP(t *testing.T) {
	task := newGatedTask(t, []string{"sop-a", "sop-b"}, nil)

	res := task.CheckGating([]string{"sop-a"}, nil)
	assert.True(t, res.Gated)
	assert.Equal(t, []string{"sop-b"}, res.MissingSOPIDs)
	assert.Empty(t, res.MissingTrainingIDs)
	assert.Equal(t, []string{domain.ReasonMissingSOPs}, res.Reasons)
}

func TestCheckGating_MissingTraining(t *testing.T) {
	task := newGatedTask(t, nil, []string{"train-1"})

	res := task.CheckGating(nil, nil)
	assert.True(t, res.Gated)
	assert.Equal(t, []string{"train-1"}, res.MissingTrainingIDs)
	assert.Equal(t, []string{domain.ReasonMissingTraining}, res.Reasons)
}

func TestCheckGating_BothSetsUnmet(t *testing.T) {
	task := newGatedTask(t, []string{"sop-a"}, []string{"train-1", "train-2"})

	res := task.CheckGating(nil, []string{"train-2"})
	assert.True(t, res.Gated)
	assert.Equal(t, []string{"sop-a"}, res.MissingSOPIDs)
	assert.Equal(t, []string{"train-1"}, res.MissingTrainingIDs)
	assert.Equal(t, []string{domain.ReasonMissingSOPs, domain.ReasonMissingTraining}, res.Reasons)
}

func TestCheckGating_AllRequirementsMet(t *testing.T) {
	task := newGatedTask(t, []string{"sop-a"}, []string{"train-1"})

	res := task.CheckGating([]string{"sop-a", "sop-extra"}, []string{"train-1"})
	assert.False(t, res.Gated)
	assert.Empty(t, res.Reasons)
}
