package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-service/internal/identity"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "sign", "watch"})
}

func TestSignWithKeyFlag(t *testing.T) {
	out, err := run(t, "sign", "u1", "--key", "secret")
	require.NoError(t, err)
	assert.Equal(t, identity.Sign("u1", "secret"), strings.TrimSpace(out))
}

func TestSignUsesFirstConfiguredKey(t *testing.T) {
	t.Setenv("SIGNING_KEYS", "first,second")
	out, err := run(t, "sign", "u1")
	require.NoError(t, err)
	assert.Equal(t, identity.Sign("u1", "first"), strings.TrimSpace(out))
}

func TestSignWithoutKey(t *testing.T) {
	t.Setenv("SIGNING_KEYS", "")
	_, err := run(t, "sign", "u1")
	assert.Error(t, err)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("SIGNING_KEYS", "k")
	_, err := run(t, "serve", "--pubsub-driver", "kafka")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka")
}

func TestWatchRejectsBadChannelID(t *testing.T) {
	_, err := run(t, "watch", "not-a-uuid", "--user", "u1", "--signature", "sig")
	assert.Error(t, err)

	_, err = run(t, "watch", uuid.NewString())
	assert.Error(t, err, "user flag is required")
}

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { _ = SetLogLevel("info") })

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, jww.LevelDebug, jww.StdoutThreshold())
	require.NoError(t, SetLogLevel("WARN"))
	assert.Equal(t, jww.LevelWarn, jww.StdoutThreshold())
	assert.Error(t, SetLogLevel("loud"))
}
