package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardTime(t *testing.T) {
	standard, err := NewStandardTime("")
	require.NoError(t, err)
	require.Equal(t, DefaultZone, standard.Location().String())
	require.Equal(t, standard.Location(), standard.Now().Location())

	_, err = NewStandardTime("Nowhere/Nothing")
	require.Error(t, err)
}

func TestDate(t *testing.T) {
	require.Equal(t, "2026-02-07", Date(time.Date(2026, time.February, 7, 23, 59, 0, 0, time.UTC)))
	require.Equal(t, "0999-12-01", Date(time.Date(999, time.December, 1, 0, 0, 0, 0, time.UTC)))

	fixed := FixedTime{Time: time.Date(2026, time.February, 7, 9, 0, 0, 0, time.UTC)}
	require.Equal(t, time.UTC, fixed.Location())
	require.Equal(t, "2026-02-07", Date(fixed.Now()))
}
