package awsconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/benaskins/tripwire/internal/fileio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSync(t *testing.T) (*Sync, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), ".aws")
	return NewSync(dir, WithLockOptions(fileio.LockOptions{Attempts: 3, RetryDelay: 5 * time.Millisecond})), dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

var testCreds = Credentials{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "secret", SessionToken: "token"}

func TestUpsertThenRemoveFromEmpty(t *testing.T) {
	s, dir := newTestSync(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfile(ctx, "canary", "us-east-1", testCreds))

	assert.Equal(t, "[profile canary]\nregion = us-east-1\n\n", readFile(t, filepath.Join(dir, "config")))
	assert.Equal(t, "[canary]\n"+
		"aws_access_key_id = AKIAEXAMPLE\n"+
		"aws_secret_access_key = secret\n"+
		"aws_session_token = token\n", readFile(t, filepath.Join(dir, "credentials")))

	require.NoError(t, s.RemoveProfile(ctx, "canary"))

	assert.Empty(t, readFile(t, s.ConfigPath()))
	assert.Empty(t, readFile(t, s.CredentialsPath()))
}

func TestUpsertCreatesOwnerOnlyFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	s, dir := newTestSync(t)
	require.NoError(t, s.UpsertProfile(context.Background(), "canary", "us-east-1", testCreds))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	for _, p := range []string{s.ConfigPath(), s.CredentialsPath()} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), p)
	}
}

func TestUpsertIsIdempotentReplace(t *testing.T) {
	s, _ := newTestSync(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProfile(ctx, "canary", "us-east-1", testCreds))
	second := Credentials{AccessKeyID: "AKIASECOND", SecretAccessKey: "secret2", SessionToken: "token2"}
	require.NoError(t, s.UpsertProfile(ctx, "canary", "eu-west-2", second))

	config := readFile(t, s.ConfigPath())
	assert.Equal(t, 1, strings.Count(config, "[profile canary]"))
	assert.Contains(t, config, "region = eu-west-2")
	assert.NotContains(t, config, "us-east-1")

	creds := readFile(t, s.CredentialsPath())
	assert.Equal(t, 1, strings.Count(creds, "[canary]"))
	assert.Contains(t, creds, "aws_access_key_id = AKIASECOND")
	assert.NotContains(t, creds, "AKIAEXAMPLE")
}

func TestUpsertLeavesUnrelatedSectionsAlone(t *testing.T) {
	s, dir := newTestSync(t)
	require.NoError(t, os.MkdirAll(dir, 0700))

	config := "# my settings\n[profile foo]\n    region = eu-central-1\n    output = json\n\n"
	creds := "[foo]\naws_access_key_id = FOO\n# rotate monthly\naws_secret_access_key = FOOSECRET\n"
	require.NoError(t, os.WriteFile(s.ConfigPath(), []byte(config), 0600))
	require.NoError(t, os.WriteFile(s.CredentialsPath(), []byte(creds), 0600))

	require.NoError(t, s.UpsertProfile(context.Background(), "bar", "us-east-1", testCreds))

	gotConfig := readFile(t, s.ConfigPath())
	assert.True(t, strings.HasPrefix(gotConfig, config), "existing config must be untouched:\n%s", gotConfig)
	assert.Equal(t, config+"[profile bar]\nregion = us-east-1\n\n", gotConfig)

	gotCreds := readFile(t, s.CredentialsPath())
	assert.True(t, strings.HasPrefix(gotCreds, creds), "existing credentials must be untouched:\n%s", gotCreds)

	require.NoError(t, s.RemoveProfile(context.Background(), "bar"))
	assert.Equal(t, config, readFile(t, s.ConfigPath()))
	assert.Equal(t, creds, readFile(t, s.CredentialsPath()))
}

func TestUpsertReplacesSectionInMiddle(t *testing.T) {
	s, dir := newTestSync(t)
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(s.ConfigPath(), []byte("[profile canary]\nregion = old\n[profile after]\nregion = x\n"), 0600))

	require.NoError(t, s.UpsertProfile(context.Background(), "canary", "new", testCreds))

	assert.Equal(t, "[profile after]\nregion = x\n[profile canary]\nregion = new\n\n", readFile(t, s.ConfigPath()))
}

func TestRemoveProfileToleratesMissingFiles(t *testing.T) {
	s, _ := newTestSync(t)
	assert.NoError(t, s.RemoveProfile(context.Background(), "canary"))

	_, err := os.Stat(s.ConfigPath())
	assert.True(t, errors.Is(err, os.ErrNotExist), "remove must not create files")
}

func TestRemoveProfileOnlyCredentialsFile(t *testing.T) {
	s, dir := newTestSync(t)
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(s.CredentialsPath(), []byte("[canary]\naws_access_key_id = X\n[keep]\n"), 0600))

	require.NoError(t, s.RemoveProfile(context.Background(), "canary"))

	assert.Equal(t, "[keep]\n", readFile(t, s.CredentialsPath()))
}

func TestUpsertFailsWhenLocked(t *testing.T) {
	s, _ := newTestSync(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertProfile(ctx, "canary", "us-east-1", testCreds))
	before := readFile(t, s.ConfigPath())

	held, err := fileio.Open(ctx, s.CredentialsPath(), os.O_RDWR, 0600, fileio.Exclusive, fileio.DefaultLockOptions())
	require.NoError(t, err)
	defer held.Close()

	err = s.UpsertProfile(ctx, "canary", "eu-west-1", testCreds)
	require.ErrorIs(t, err, fileio.ErrLockTimeout)
	assert.Equal(t, before, readFile(t, s.ConfigPath()), "config must not change when credentials cannot be locked")
}

func TestUpsertRequiresProfile(t *testing.T) {
	s, _ := newTestSync(t)
	assert.Error(t, s.UpsertProfile(context.Background(), "", "us-east-1", testCreds))
	assert.Error(t, s.RemoveProfile(context.Background(), ""))
}
