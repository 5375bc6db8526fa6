package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "dev", Info{CommitHash: "dev"}.Short())
	assert.Equal(t, "0123456", Info{CommitHash: "0123456789abcdef"}.Short())
}

func TestString(t *testing.T) {
	info := Info{Version: "v1.2.0", CommitHash: "0123456789", BuildTime: "2026-01-02"}
	assert.Equal(t, "hmis v1.2.0 (commit 0123456, built 2026-01-02)", info.String())
}
