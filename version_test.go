package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion_StringContainsVersionAndGoVersion(t *testing.T) {
	info := GetVersion()
	s := info.String()
	assert.True(t, strings.HasPrefix(s, "localflow "+Version))
	assert.Contains(t, s, info.GoVersion)
}
