package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormat(t *testing.T) {
	err := New(EStaleBase, "branch tip advanced since load")
	assert.Equal(t, "E_STALE_BASE: branch tip advanced since load", err.Error())
}

func TestWrapUnwrap(t *testing.T) {
	cause := stderrors.New("exit status 128")
	err := Wrap(EObjectRead, "cat-file failed", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, EObjectRead, GetCode(err))

	// Codes survive further fmt wrapping.
	outer := fmt.Errorf("loading board: %w", err)
	assert.Equal(t, EObjectRead, GetCode(outer))
	assert.True(t, HasCode(outer, EObjectRead))
	assert.False(t, HasCode(outer, EStaleBase))
}

func TestGetCodeNonGanbanError(t *testing.T) {
	assert.Equal(t, Code(""), GetCode(stderrors.New("plain")))
	assert.Equal(t, Code(""), GetCode(nil))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", New(EUsage, "unknown flag"), 2},
		{"other", New(ENoBoard, "no ganban branch"), 1},
		{"plain", stderrors.New("plain"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, New(ENoRepo, "not inside a git repository"))
	require.Equal(t, "error_code: E_NO_REPO\nnot inside a git repository\n", buf.String())

	buf.Reset()
	Print(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestDetailsCopied(t *testing.T) {
	details := map[string]string{"path": "1.backlog"}
	err := WrapWithDetails(EColumnNotFound, "no such column", nil, details)
	details["path"] = "mutated"

	ge, ok := AsGanbanError(err)
	require.True(t, ok)
	assert.Equal(t, "1.backlog", ge.Details["path"])
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(ERefUpdate, "update-ref rejected", map[string]string{"ref": "refs/heads/ganban"})
	ge, ok := AsGanbanError(err)
	require.True(t, ok)
	assert.Equal(t, ERefUpdate, ge.Code)
	assert.Equal(t, "refs/heads/ganban", ge.Details["ref"])
}
