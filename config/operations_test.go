package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationsSetAndClear(t *testing.T) {
	var op Operations

	assert.Equal(t, op, Operations(0))
	assert.False(t, op.IsSupported(RuleCreate))

	op.Set(RuleCreate | RuleDelete)
	assert.True(t, op.IsSupported(RuleCreate))
	assert.True(t, op.IsSupported(RuleDelete))
	assert.True(t, op.IsSupported(RuleCreate|RuleDelete))
	assert.False(t, op.IsSupported(RuleCreate|RuleUpdate))

	op.Clear(RuleCreate)
	assert.False(t, op.IsSupported(RuleCreate))
	assert.True(t, op.IsSupported(RuleDelete))
}

func TestOperationsAdd(t *testing.T) {
	op, err := Ops("RecordUpdate", "ruleCreate", " RuleUpdate ", "RuleDelete", "")
	require.NoError(t, err)
	assert.Equal(t, AllOperations, op)
	assert.Equal(t, "RecordUpdate,RuleCreate,RuleUpdate,RuleDelete", op.String())

	_, err = Ops("RecordUpdate", "TableDrop")
	assert.EqualError(t, err, "invalid operation: TableDrop")
}

func TestOperationsNames(t *testing.T) {
	op, err := Ops("RuleUpdate")
	require.NoError(t, err)
	assert.Equal(t, []string{"RuleUpdate"}, op.Names())
	assert.Empty(t, Operations(0).Names())
}
