package slicer

import (
	"strconv"
	"strings"
)

const (
	// IDSeparator joins the path segments of an ownId.
	IDSeparator = ","
	// SetDelimiter joins ownIds when a set is persisted as a single string.
	SetDelimiter = "|"
	// levelMarker precedes the level suffix of each segment.
	levelMarker = "@"
)

// SanitizeValue strips the characters that collide with IDSeparator or
// SetDelimiter. Every ownId segment goes through it, so a segment can never
// introduce a separator of its own.
func SanitizeValue(v string) string {
	if !strings.ContainsAny(v, IDSeparator+SetDelimiter) {
		return v
	}
	return strings.Map(func(r rune) rune {
		switch string(r) {
		case IDSeparator, SetDelimiter:
			return -1
		}
		return r
	}, v)
}

// OwnID builds the key of the node at depth len(path)-1 from the formatted
// values of its path, root first.
func OwnID(path []string) string {
	var sb strings.Builder
	for level, v := range path {
		if level > 0 {
			sb.WriteString(IDSeparator)
		}
		sb.WriteString(SanitizeValue(v))
		sb.WriteString(levelMarker)
		sb.WriteString(strconv.Itoa(level))
	}
	return sb.String()
}

// ChildID extends a parent ownId by one level. It yields the same key as
// OwnID over the full path.
func ChildID(parentID, value string, level int) string {
	seg := SanitizeValue(value) + levelMarker + strconv.Itoa(level)
	if parentID == "" {
		return seg
	}
	return parentID + IDSeparator + seg
}

// SplitID returns the sanitized values of an ownId, root first.
func SplitID(id string) []string {
	if id == "" {
		return nil
	}
	segs := strings.Split(id, IDSeparator)
	out := make([]string, len(segs))
	for i, seg := range segs {
		if j := strings.LastIndex(seg, levelMarker); j >= 0 {
			seg = seg[:j]
		}
		out[i] = seg
	}
	return out
}
