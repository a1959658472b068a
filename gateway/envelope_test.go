package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailBuildsDiagnosticMessage(t *testing.T) {
	t.Parallel()

	env := Fail("get_item", `key {"PK":"PROJECT#t1"}`, Permanent(KindNotFound, errors.New("item not found")))

	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "get_item")
	assert.Contains(t, env.Error, `PROJECT#t1`)
	assert.Contains(t, env.Error, "item not found")
	assert.Equal(t, KindNotFound, env.ErrorKind)
}

func TestFailWithoutTarget(t *testing.T) {
	t.Parallel()

	env := Fail("create_issue", "", NewValidationError("project_key", "is required"))

	assert.Equal(t, "create_issue: project_key is required", env.Error)
	assert.Equal(t, KindValidation, env.ErrorKind)
}

func TestEnvelopeJSONShape(t *testing.T) {
	t.Parallel()

	ok, err := json.Marshal(OK())
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(ok))

	fail, err := json.Marshal(Fail("scan", "", Transient(errors.New("throttled"))))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"scan: throttled","error_kind":"transient"}`, string(fail))
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	throttle := Transient(errors.New("throttled"))

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", NewValidationError("jql", "is required"), KindValidation},
		{"transient", throttle, KindTransient},
		{"not found", Permanent(KindNotFound, errors.New("gone")), KindNotFound},
		{"permission", Permanent(KindPermission, errors.New("forbidden")), KindPermission},
		{"conflict", Permanent(KindConflict, errors.New("condition failed")), KindConflict},
		{"bare permanent", &PermanentError{Err: errors.New("rejected")}, KindPermanent},
		{"exhausted wraps transient", &ExhaustedRetriesError{Op: "query", Attempts: 4, Err: throttle}, KindExhausted},
		{"unclassified defaults to permanent", errors.New("mystery"), KindPermanent},
		{"wrapped validation", fmt.Errorf("create_issue: %w", NewValidationError("item", "must not be empty")), KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTransient(Transient(errors.New("x"))))
	assert.False(t, IsTransient(Permanent(KindNotFound, errors.New("x"))))
	assert.True(t, IsValidation(NewValidationError("f", "m")))
	assert.False(t, IsValidation(errors.New("x")))
	assert.Nil(t, Transient(nil))
	assert.Nil(t, Permanent(KindConflict, nil))
}
