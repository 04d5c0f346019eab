package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MeasurementRecord is one build's bundle sizes as written by the CI job.
type MeasurementRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	Repo         string    `json:"repo,omitempty"`
	PRNumber     int       `json:"pr_number,omitempty"`
	PRURL        string    `json:"pr_url,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	CommitSHA    string    `json:"commit_sha,omitempty"`
	AndroidSize  *int64    `json:"android_size,omitempty"`
	IOSSize      *int64    `json:"ios_size,omitempty"`
	AndroidError ErrorFlag `json:"android_error,omitempty"`
	IOSError     ErrorFlag `json:"ios_error,omitempty"`
}

// UnmarshalJSON accepts the looser shapes older CI jobs wrote: timestamps
// without an offset or with a "-0700" offset, and numbers written as strings
// or with a fraction.
func (r *MeasurementRecord) UnmarshalJSON(data []byte) error {
	type Alias MeasurementRecord
	aux := struct {
		*Alias
		Timestamp   timestamp `json:"timestamp"`
		PRNumber    looseInt  `json:"pr_number"`
		AndroidSize looseInt  `json:"android_size"`
		IOSSize     looseInt  `json:"ios_size"`
	}{Alias: (*Alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.Timestamp = time.Time(aux.Timestamp)
	r.PRNumber = 0
	if aux.PRNumber.set {
		r.PRNumber = int(aux.PRNumber.n)
	}
	r.AndroidSize = aux.AndroidSize.ptr()
	r.IOSSize = aux.IOSSize.ptr()
	return nil
}

// Android returns the three-state Android size of the record.
func (r MeasurementRecord) Android() Size {
	return ClassifySize(r.AndroidSize, r.AndroidError)
}

// IOS returns the three-state iOS size of the record.
func (r MeasurementRecord) IOS() Size {
	return ClassifySize(r.IOSSize, r.IOSError)
}

// ErrorFlag marks a failed measurement. The CI job has written it as a bool,
// a message string and a status object over time, so any JSON value is
// accepted and reduced to whether it is set.
type ErrorFlag bool

func (f *ErrorFlag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*f = false
	case bytes.Equal(data, []byte("true")):
		*f = true
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = s != ""
	case data[0] == '{' || data[0] == '[':
		*f = true
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return err
		}
		*f = n != 0
	}
	return nil
}

// PRRef is the shorthand shown for a pull request, e.g. "PR #42".
func PRRef(number int) string {
	return "PR #" + strconv.Itoa(number)
}

// timestampLayouts are tried in order. Layouts without an offset parse as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			*t = timestamp(ts)
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// looseInt is a JSON number, possibly written as a string or with a
// fraction. null, "" and non-numeric strings leave it unset.
type looseInt struct {
	n   int64
	set bool
}

func (l *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return nil
		}
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		l.n, l.set = n, true
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	l.n, l.set = int64(math.Round(f)), true
	return nil
}

func (l looseInt) ptr() *int64 {
	if !l.set {
		return nil
	}
	n := l.n
	return &n
}
