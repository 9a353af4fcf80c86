package engine

import (
	"bytes"

	"github.com/RoaringBitmap/roaring/v2"
)

// lineSet tracks 1-based line numbers that belong to string literals.
type lineSet struct {
	bitmap *roaring.Bitmap
}

func newLineSet() lineSet {
	return lineSet{bitmap: roaring.New()}
}

func (l lineSet) addRange(start, end int) {
	if start < 1 || end < start {
		return
	}
	l.bitmap.AddRange(uint64(start), uint64(end)+1)
}

func (l lineSet) contains(line int) bool {
	return line > 0 && l.bitmap.Contains(uint32(line))
}

// classifyLines assigns every physical line to exactly one category.
// Lines follow str.splitlines: a trailing terminator does not start a new
// line, and \r\n counts as one terminator. Lines inside a multi-line
// string other than a docstring are logical whatever their text.
func classifyLines(source []byte, docstrings, strs lineSet) LineCounts {
	var counts LineCounts
	line := 0
	for len(source) > 0 {
		end := bytes.IndexAny(source, "\r\n")
		var text []byte
		if end < 0 {
			text, source = source, nil
		} else {
			text = source[:end]
			skip := 1
			if source[end] == '\r' && end+1 < len(source) && source[end+1] == '\n' {
				skip = 2
			}
			source = source[end+skip:]
		}
		line++
		counts.Physical++

		trimmed := bytes.TrimSpace(text)
		switch {
		case docstrings.contains(line):
			counts.Docstring++
		case strs.contains(line):
			counts.Logical++
		case len(trimmed) == 0:
			counts.Blank++
		case trimmed[0] == '#':
			counts.Comment++
		default:
			counts.Logical++
		}
	}
	return counts
}
