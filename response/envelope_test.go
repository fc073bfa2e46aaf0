package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubhamforall/petstore-api/apperror"
)

func TestSuccessShape(t *testing.T) {
	body, err := Success(200, "Pets fetched successfully", json.RawMessage(`{"count":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": {"count": 1},
		"errors": null,
		"messages": {"message": "Pets fetched successfully"},
		"status_code": 200,
		"is_success": true
	}`, string(body))
}

func TestSuccessNilData(t *testing.T) {
	body, err := Success(200, "ok", nil)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":null`)
}

func TestFailureShape(t *testing.T) {
	body, err := Failure(apperror.Validation([]apperror.FieldError{
		{Field: "name", Code: "required", Message: "name is required"},
	}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": null,
		"errors": [{"field": "name", "code": "required", "message": "name is required"}],
		"messages": {"message": "Validation failed", "code": "VALIDATION_FAILED"},
		"status_code": 400,
		"is_success": false
	}`, string(body))

	body, err = Failure(apperror.NotFound("Pet not found"))
	require.NoError(t, err)
	assert.Contains(t, string(body), `"errors":null`)
}

func TestSuccessIsDeterministic(t *testing.T) {
	data, err := json.Marshal(map[string]any{"b": 2, "a": "<x>"})
	require.NoError(t, err)
	first, err := Success(200, "m", data)
	require.NoError(t, err)
	second, err := Success(200, "m", json.RawMessage(string(data)))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
