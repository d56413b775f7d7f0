package blacklist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Level is the severity of a blacklist entry.
type Level int

// Severity levels accepted by add_platform_users.
const (
	LevelUnknown Level = iota
	LevelLight
	LevelModerate
	LevelSevere
)

// Labels the service returns in the level field. They are owned by the remote
// service and may change between its versions.
const (
	LabelLight    = "轻微"
	LabelModerate = "中等"
	LabelSevere   = "严重"
)

// OneYearSeconds is the retention used for light entries.
const OneYearSeconds = 31536000

// ParseLevel maps a numeric command argument (1..3) to a Level.
func ParseLevel(n int) (Level, bool) {
	switch Level(n) {
	case LevelLight, LevelModerate, LevelSevere:
		return Level(n), true
	default:
		return LevelUnknown, false
	}
}

// LevelFromLabel maps a service label to a Level.
func LevelFromLabel(label string) (Level, bool) {
	switch label {
	case LabelLight:
		return LevelLight, true
	case LabelModerate:
		return LevelModerate, true
	case LabelSevere:
		return LevelSevere, true
	default:
		return LevelUnknown, false
	}
}

// Label returns the service label for l.
func (l Level) Label() string {
	switch l {
	case LevelLight:
		return LabelLight
	case LevelModerate:
		return LabelModerate
	case LevelSevere:
		return LabelSevere
	default:
		return ""
	}
}

func (l Level) String() string {
	switch l {
	case LevelLight:
		return "light"
	case LevelModerate:
		return "moderate"
	case LevelSevere:
		return "severe"
	default:
		return "unknown"
	}
}

// Expiration returns the retention in seconds sent on insert; 0 means permanent.
func (l Level) Expiration() int {
	if l == LevelLight {
		return OneYearSeconds
	}
	return 0
}

// Record is one blacklist entry as returned by get_platform_users.
type Record struct {
	Account      FlexString `json:"account_name"`
	Platform     FlexString `json:"platform"`
	LevelLabel   FlexString `json:"level"`
	Description  FlexString `json:"describe"`
	Registration FlexString `json:"registration"`
	AddTime      FlexString `json:"add_time"`
	Expiration   FlexString `json:"expiration"`
}

// Level classifies the record by its label.
func (r Record) Level() (Level, bool) {
	return LevelFromLabel(string(r.LevelLabel))
}

func (r Record) isZero() bool {
	return r == Record{}
}

// FlexString accepts a JSON string, number, bool or null.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unsupported value %s", b)
	}
	*f = FlexString(strconv.FormatBool(v))
	return nil
}

// Result is a decoded service envelope.
type Result struct {
	Code    int
	Message string
	// Records holds zero or one entry regardless of how data was shaped.
	Records []Record
}

// Success reports whether the service accepted the call.
func (r *Result) Success() bool {
	return r.Code == successCode
}

// Record returns the first record, if any.
func (r *Result) Record() (Record, bool) {
	if len(r.Records) == 0 {
		return Record{}, false
	}
	return r.Records[0], true
}

// Empty reports whether data carried no record.
func (r *Result) Empty() bool {
	return len(r.Records) == 0
}

const successCode = 1

type envelope struct {
	Code FlexString      `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  FlexString      `json:"msg"`
}

// decodeResult normalizes the data union (object, array, null, "" or false)
// into a list of zero or one record.
func decodeResult(body []byte) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	code, err := strconv.Atoi(string(env.Code))
	if err != nil && env.Code != "" {
		return nil, fmt.Errorf("%w: code %q", ErrMalformed, env.Code)
	}

	res := &Result{Code: code, Message: string(env.Msg)}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 {
		return res, nil
	}

	switch data[0] {
	case '[':
		var list []Record
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: data: %w", ErrMalformed, err)
		}
		if len(list) > 0 && !list[0].isZero() {
			res.Records = list[:1]
		}
	case '{':
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: data: %w", ErrMalformed, err)
		}
		if !rec.isZero() {
			res.Records = []Record{rec}
		}
	}

	return res, nil
}
