package utils_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-otp-auth/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 3, utils.Value(utils.Ptr(3)))
}

func TestCopyDoesNotAlias(t *testing.T) {
	require.Nil(t, utils.Copy[time.Time](nil))

	orig := utils.Ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	cp := utils.Copy(orig)
	require.Equal(t, *orig, *cp)

	*cp = cp.Add(time.Hour)
	require.NotEqual(t, *orig, *cp)
}
