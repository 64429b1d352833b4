package version

import (
	"encoding/json"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setBuild overrides the ldflags variables for one test.
func setBuild(t *testing.T, v, commit, date string) {
	t.Helper()
	oldV, oldC, oldD := Version, Commit, Date
	Version, Commit, Date = v, commit, date
	t.Cleanup(func() { Version, Commit, Date = oldV, oldC, oldD })
}

func TestGetInfo_UsesLdflagsValues(t *testing.T) {
	// Given: a release build
	setBuild(t, "1.4.0", "abc1234", "2026-03-01T00:00:00Z")

	// When: calling GetInfo()
	info := GetInfo()

	// Then: ldflags values win over toolchain metadata
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, "abc1234", info.Commit)
	assert.Equal(t, "2026-03-01T00:00:00Z", info.Date)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
}

func TestString_ReturnsFormattedString(t *testing.T) {
	setBuild(t, "1.4.0", "abc1234", "2026-03-01T00:00:00Z")

	assert.Equal(t, "sitesearch 1.4.0 (commit: abc1234, built: 2026-03-01T00:00:00Z, go: "+GoVersion+")", String())
	assert.Equal(t, "1.4.0", Short())
}

func TestGetInfo_DevBuildHasVersion(t *testing.T) {
	// Given: a build without ldflags
	setBuild(t, "dev", "unknown", "unknown")

	// Then: a version is always reported
	assert.NotEmpty(t, Short())
	assert.NotEmpty(t, GetInfo().Commit)
}

func TestGetInfo_IsJSONSerializable(t *testing.T) {
	data, err := json.Marshal(GetInfo())
	require.NoError(t, err)

	var parsed map[string]string
	require.NoError(t, json.Unmarshal(data, &parsed))

	for _, key := range []string{"version", "commit", "date", "go_version", "os", "arch"} {
		assert.Contains(t, parsed, key)
	}
}
