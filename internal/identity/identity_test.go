package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ganban/ganban/internal/errors"
	"github.com/ganban/ganban/internal/exec"
	"github.com/ganban/ganban/internal/gitx"
)

func TestCurrent(t *testing.T) {
	stub := exec.NewStubRunner()
	stub.On("git", []string{"config", "--get", "user.name"}, exec.CmdResult{Stdout: "Jane Doe\n"})
	stub.On("git", []string{"config", "--get", "user.email"}, exec.CmdResult{Stdout: "jane@example.com\n"})

	a, err := Current(context.Background(), gitx.New(stub, "/repo"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", a.Name)
	assert.Equal(t, "Jane Doe <jane@example.com>", a.String())
}

func TestCurrentMissingEmail(t *testing.T) {
	stub := exec.NewStubRunner()
	stub.On("git", []string{"config", "--get", "user.name"}, exec.CmdResult{Stdout: "Jane Doe\n"})
	stub.On("git", []string{"config", "--get", "user.email"}, exec.CmdResult{ExitCode: 1})

	_, err := Current(context.Background(), gitx.New(stub, "/repo"))
	assert.True(t, errors.HasCode(err, errors.EUsage))
}
