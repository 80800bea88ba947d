package hostkey

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/assert"
)

const (
	keyLine = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIPMjD7rlX7V/oNVlN30wmQIt7VhAjzyljBbIjs9s62b8"

	// Produced by ssh-keygen -H from "[localhost]:5555 <keyLine>".
	hashedEntry = "|1|ekkHBMQdHS+GP/MtFW1YS54dqek=|aE5k/NIl4gGCvdqoPbWJBpYQ92Q= " + keyLine
)

func writeKnownHosts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "known_hosts")
	assert.NilError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRemovePlainEntry(t *testing.T) {
	content := "github.com " + keyLine + "\n" +
		"# added by thingtunnel\n" +
		"[localhost]:5555 " + keyLine + "\n" +
		"example.com,10.0.0.7 " + keyLine + "\n"
	path := writeKnownHosts(t, content)

	assert.NilError(t, Remove(path, "localhost:5555"))

	got, err := os.ReadFile(path)
	assert.NilError(t, err)
	want := "github.com " + keyLine + "\n" +
		"# added by thingtunnel\n" +
		"example.com,10.0.0.7 " + keyLine + "\n"
	assert.Equal(t, string(got), want)
}

func TestRemoveHashedEntry(t *testing.T) {
	content := "github.com " + keyLine + "\n" + hashedEntry + "\n"
	path := writeKnownHosts(t, content)

	assert.NilError(t, Remove(path, "localhost:5555"))

	got, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(got), "github.com "+keyLine+"\n")
}

func TestRemoveMatchesWithinHostList(t *testing.T) {
	content := "[localhost]:5555,[127.0.0.1]:5555 " + keyLine + "\n"
	path := writeKnownHosts(t, content)

	assert.NilError(t, Remove(path, "localhost:5555"))

	got, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(got), "")
}

func TestRemoveNoMatchLeavesFileAlone(t *testing.T) {
	content := "github.com " + keyLine + "\n" +
		"[localhost]:2222 " + keyLine + "\n"
	path := writeKnownHosts(t, content)

	assert.NilError(t, Remove(path, "localhost:5555"))

	got, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Equal(t, string(got), content)
}

func TestRemoveMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	assert.NilError(t, Remove(path, "localhost:5555"))
}
