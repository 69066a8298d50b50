package chain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/digigaia/kudu/bstream"
)

// Node API timestamp layouts. No timezone suffix, always UTC.
const (
	timePointSecLayout = "2006-01-02T15:04:05"
	timePointLayout    = "2006-01-02T15:04:05.000"
)

// Half-second slots since this instant make up a BlockTimestamp.
var blockTimestampEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

func parseChainTime(s string, layouts ...string) (time.Time, error) {
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("chain: invalid timestamp %q", s)
}

// TimePointSec is a second-resolution timestamp, a 32-bit epoch count on the
// wire. Transaction expirations use this type.
type TimePointSec uint32

// NewTimePointSec truncates t to whole seconds.
func NewTimePointSec(t time.Time) TimePointSec {
	return TimePointSec(t.Unix())
}

// ParseTimePointSec parses the "2006-01-02T15:04:05" node API form.
func ParseTimePointSec(s string) (TimePointSec, error) {
	t, err := parseChainTime(s, timePointSecLayout, timePointLayout)
	if err != nil {
		return 0, err
	}
	return NewTimePointSec(t), nil
}

func (t TimePointSec) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

func (t TimePointSec) String() string {
	return t.Time().Format(timePointSecLayout)
}

func (t TimePointSec) Pack(s *bstream.ByteStream) { s.WriteU32(uint32(t)) }

func (t *TimePointSec) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadU32()
	if err != nil {
		return err
	}
	*t = TimePointSec(v)
	return nil
}

func (t TimePointSec) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *TimePointSec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimePointSec(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// TimePoint is a microsecond-resolution timestamp, a signed 64-bit count of
// microseconds since the Unix epoch on the wire.
type TimePoint int64

func NewTimePoint(t time.Time) TimePoint {
	return TimePoint(t.UnixMicro())
}

// ParseTimePoint parses the "2006-01-02T15:04:05.000" node API form.
func ParseTimePoint(s string) (TimePoint, error) {
	t, err := parseChainTime(s, timePointLayout, timePointSecLayout)
	if err != nil {
		return 0, err
	}
	return NewTimePoint(t), nil
}

func (t TimePoint) Time() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

func (t TimePoint) String() string {
	return t.Time().Format(timePointLayout)
}

func (t TimePoint) Pack(s *bstream.ByteStream) { s.WriteI64(int64(t)) }

func (t *TimePoint) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadI64()
	if err != nil {
		return err
	}
	*t = TimePoint(v)
	return nil
}

func (t TimePoint) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *TimePoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimePoint(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// BlockTimestamp counts half-second block slots since 2000-01-01T00:00:00.
type BlockTimestamp uint32

func NewBlockTimestamp(t time.Time) BlockTimestamp {
	return BlockTimestamp(t.Sub(blockTimestampEpoch) / (500 * time.Millisecond))
}

// ParseBlockTimestamp parses the "2006-01-02T15:04:05.000" node API form.
func ParseBlockTimestamp(s string) (BlockTimestamp, error) {
	t, err := parseChainTime(s, timePointLayout, timePointSecLayout)
	if err != nil {
		return 0, err
	}
	return NewBlockTimestamp(t), nil
}

func (t BlockTimestamp) Time() time.Time {
	return blockTimestampEpoch.Add(time.Duration(t) * 500 * time.Millisecond)
}

func (t BlockTimestamp) String() string {
	return t.Time().Format(timePointLayout)
}

func (t BlockTimestamp) Pack(s *bstream.ByteStream) { s.WriteU32(uint32(t)) }

func (t *BlockTimestamp) Unpack(s *bstream.ByteStream) error {
	v, err := s.ReadU32()
	if err != nil {
		return err
	}
	*t = BlockTimestamp(v)
	return nil
}

func (t BlockTimestamp) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *BlockTimestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseBlockTimestamp(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
