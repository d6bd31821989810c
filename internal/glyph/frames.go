package glyph

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// FrameReader yields the fields of one CSV animation frame per line.
type FrameReader struct {
	scanner *bufio.Scanner
	lengths []int
	line    int
}

// NewFrameReader reads frames from r. Lines whose field count is not in
// lengths end the stream with ErrUnsupportedLength.
func NewFrameReader(r io.Reader, lengths []int) *FrameReader {
	return &FrameReader{
		scanner: bufio.NewScanner(r),
		lengths: lengths,
	}
}

// Next returns the fields of the next frame, or io.EOF.
func (f *FrameReader) Next() ([]string, error) {
	if !f.scanner.Scan() {
		if err := f.scanner.Err(); err != nil {
			return nil, fmt.Errorf("read frame %d: %w", f.line+1, err)
		}
		return nil, io.EOF
	}
	f.line++

	fields := SplitFrame(f.scanner.Text())
	if !slices.Contains(f.lengths, len(fields)) {
		return nil, fmt.Errorf("%w: line %d has %d fields", ErrUnsupportedLength, f.line, len(fields))
	}
	return fields, nil
}

// Line returns the number of lines consumed so far.
func (f *FrameReader) Line() int {
	return f.line
}

// SplitFrame strips spaces and one trailing comma, then splits on commas.
func SplitFrame(line string) []string {
	line = strings.ReplaceAll(line, " ", "")
	line = strings.TrimSuffix(line, ",")
	return strings.Split(line, ",")
}

// CheckAnimation reads a whole animation and reports the first frame that
// would fail playback or exceed maxValue. It returns the number of frames.
func CheckAnimation(r io.Reader, lengths []int, maxValue int) (int, error) {
	frames := NewFrameReader(r, lengths)
	for {
		fields, err := frames.Next()
		if err == io.EOF {
			return frames.Line(), nil
		}
		if err != nil {
			return frames.Line(), err
		}
		for i, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil || v < 0 {
				return frames.Line(), fmt.Errorf("%w: line %d field %d %q", ErrMalformedFrame, frames.Line(), i+1, field)
			}
			if v > maxValue {
				return frames.Line(), fmt.Errorf("line %d field %d: %d above %d", frames.Line(), i+1, v, maxValue)
			}
		}
	}
}
