package media

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is returned for files whose extension is neither audio nor video
var ErrUnsupportedFormat = errors.New("unsupported media format")

// ProbeError reports that a file's duration could not be read
type ProbeError struct {
	Path   string
	Output string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("probe %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("probe %s: %v (output: %s)", e.Path, e.Err, e.Output)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// TranscodeError reports a failed ffmpeg invocation together with its diagnostic output
type TranscodeError struct {
	Op     string
	Src    string
	Dst    string
	Output string
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("%s %s -> %s: %v\nOutput: %s", e.Op, e.Src, e.Dst, e.Err, e.Output)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}
