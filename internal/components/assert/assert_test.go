package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type api interface{ Do() }

type impl struct{}

func (*impl) Do() {}

func TestNotNil(t *testing.T) {
	require.Panics(t, func() { NotNil(nil) })

	var typed *impl
	var intf api = typed
	require.Panics(t, func() { NotNil(intf) })
	require.Panics(t, func() { NotNil(map[string]int(nil)) })

	require.NotPanics(t, func() { NotNil(&impl{}) })
	require.NotPanics(t, func() { NotNil(struct{}{}) })
	require.NotPanics(t, func() { NotNil(0) })
}

func TestNotEmptyStr(t *testing.T) {
	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("DB-1") })
}
