package chain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimePointSec(t *testing.T) {
	ts, err := ParseTimePointSec("2018-06-01T12:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2018-06-01T12:00:00", ts.String())
	assert.Equal(t, time.Date(2018, 6, 1, 12, 0, 0, 0, time.UTC), ts.Time())

	// A trailing Z and a fractional part are tolerated on input.
	withZ, err := ParseTimePointSec("2018-06-01T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, ts, withZ)
	withFrac, err := ParseTimePointSec("2018-06-01T12:00:00.500")
	require.NoError(t, err)
	assert.Equal(t, ts, withFrac)

	_, err = ParseTimePointSec("June 1st")
	assert.Error(t, err)
}

func TestTimePoint(t *testing.T) {
	tp, err := ParseTimePoint("2018-06-01T12:00:00.500")
	require.NoError(t, err)
	assert.Equal(t, "2018-06-01T12:00:00.500", tp.String())
	assert.Equal(t, int64(1527854400500000), int64(tp))

	// Seconds-only input gets a zero fractional part.
	plain, err := ParseTimePoint("2018-06-01T12:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2018-06-01T12:00:00.000", plain.String())
}

func TestBlockTimestamp(t *testing.T) {
	// Slot 0 is the epoch itself.
	assert.Equal(t, "2000-01-01T00:00:00.000", BlockTimestamp(0).String())
	assert.Equal(t, "2000-01-01T00:00:00.500", BlockTimestamp(1).String())

	bt, err := ParseBlockTimestamp("2000-01-01T00:00:01.000")
	require.NoError(t, err)
	assert.Equal(t, BlockTimestamp(2), bt)
}

func TestTimeJSON(t *testing.T) {
	var ts TimePointSec
	require.NoError(t, json.Unmarshal([]byte(`"2018-06-01T12:00:00"`), &ts))
	blob, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2018-06-01T12:00:00"`, string(blob))

	var bt BlockTimestamp
	require.NoError(t, json.Unmarshal([]byte(`"2000-01-01T00:00:00.500"`), &bt))
	assert.Equal(t, BlockTimestamp(1), bt)
}
