package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SAUCE_CONFIG", filepath.Join(t.TempDir(), "config.json"))
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "saucecheck dev\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level", "loud", "version"})
	assert.Error(t, cmd.Execute())
}

func TestScenarios(t *testing.T) {
	out, err := execute(t, "scenarios", "--suite", "security")
	require.NoError(t, err)
	assert.Contains(t, out, "SUITE")
	assert.Contains(t, out, "Logged out user cannot access other pages")
	assert.NotContains(t, out, "Purchase one product")
}

func TestFixtureValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
  "users": {"standard_user": {"username": "standard_user", "password": "secret_sauce"}},
  "products": [{"name": "Sauce Labs Onesie", "price": 7.99}],
  "authUser": {"firstName": "John", "lastName": "Doe", "postalCode": "12345"}
}`), 0644))

	out, err := execute(t, "fixture", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (1 users, 1 products)")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"users": {}, "products": [{"name": "x", "price": -1}]}`), 0644))
	_, err = execute(t, "fixture", "validate", bad)
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	t.Setenv("SAUCE_DRIVER", "http")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	t.Setenv("SAUCE_CONFIG", path)
	cmd.SetArgs([]string{"config", "init"})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, path)

	cmd.SetArgs([]string{"config", "init"})
	assert.Error(t, cmd.Execute(), "refuses to overwrite")

	out.Reset()
	cmd.SetArgs([]string{"config", "show"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Driver:     http")
}

func TestRunLocal(t *testing.T) {
	t.Setenv("SAUCE_GLITCH_MS", "10")
	t.Setenv("SAUCE_TIMEOUT_MS", "1000")
	t.Setenv("SAUCE_POLL_MS", "10")
	out, err := execute(t, "run", "--local", "--driver", "http", "--suite", "login")
	require.NoError(t, err, out)
	assert.True(t, strings.HasSuffix(out, "7 passed, 0 failed, 7 total\n"), out)
}

func TestRunNoMatch(t *testing.T) {
	_, err := execute(t, "run", "--driver", "http", "--suite", "nope")
	assert.ErrorContains(t, err, "no scenarios match")
}
