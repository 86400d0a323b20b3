package solana

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionError_Keyed(t *testing.T) {
	e := NewInstructionError(2, InstructionErrorInvalidArgument)

	assert.Equal(t, InstructionErrorInvalidArgument, e.ErrorKey())
	assert.Nil(t, e.CustomError())
	assert.Equal(t, "Error processing Instruction 2: InvalidArgument", e.Error())

	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(e.JSONString()), &raw))
	assert.Equal(t, []interface{}{2.0, "InvalidArgument"}, raw)
}

func TestInstructionError_Custom(t *testing.T) {
	e := InstructionError{
		Index: 0,
		Err:   CustomError(3),
	}

	assert.Equal(t, InstructionErrorCustom, e.ErrorKey())
	require.NotNil(t, e.CustomError())
	assert.Equal(t, CustomError(3), *e.CustomError())

	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(e.JSONString()), &raw))
	assert.Equal(t, []interface{}{0.0, map[string]interface{}{"Custom": 3.0}}, raw)
}

func TestInstructionError_Empty(t *testing.T) {
	var e InstructionError
	assert.EqualValues(t, "", e.ErrorKey())
}
