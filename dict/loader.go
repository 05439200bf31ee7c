package dict

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// tagByName maps a tag's String() spelling back to its Tag value, for
// parsing text dictionaries and user additions.
var tagByName = func() map[string]Tag {
	m := make(map[string]Tag, len(tagNames))
	for t, name := range tagNames {
		if name != "" {
			m[name] = Tag(t)
		}
	}
	return m
}()

// ParseTag resolves a tag's canonical name (e.g. "NNG", "VV") to its Tag
// value, or ErrFormat if unrecognized.
func ParseTag(name string) (Tag, error) {
	name = strings.TrimSuffix(name, "-I")
	t, ok := tagByName[name]
	if !ok {
		return Unknown, newError(ErrFormat, "unknown POS tag %q", name)
	}
	return t, nil
}

// LoadDictionary reads a text-format user dictionary from r and adds every
// entry via AddWord, past the built-in ID range (spec §4.6).
//
// Line format (tab-separated, '#'-prefixed lines and blank lines
// skipped): surface\ttag\t[vowelCond]\t[userScore]
//
//	학교	NNG
//	었	EP	vocalic	0.1
func (d *Dictionary) LoadDictionary(r io.Reader) (int, error) {
	if d.finalized {
		return 0, newError(ErrInvalidArgument, "LoadDictionary: dictionary already finalized")
	}

	sc := bufio.NewScanner(r)
	count := 0
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return count, newError(ErrFormat, "LoadDictionary: line %d: expected at least surface and tag", lineNo)
		}
		surface := fields[0]
		tag, err := ParseTag(fields[1])
		if err != nil {
			return count, newError(ErrFormat, "LoadDictionary: line %d: %v", lineNo, err)
		}

		var vowel VowelCond
		if len(fields) > 2 && fields[2] != "" {
			vowel, err = parseVowelCond(fields[2])
			if err != nil {
				return count, newError(ErrFormat, "LoadDictionary: line %d: %v", lineNo, err)
			}
		}

		var score float32
		if len(fields) > 3 && fields[3] != "" {
			f, err := strconv.ParseFloat(fields[3], 32)
			if err != nil {
				return count, newError(ErrFormat, "LoadDictionary: line %d: bad score %q", lineNo, fields[3])
			}
			score = float32(f)
		}

		if _, err := d.AddWord(surface, tag, vowel, PolarityNone, score, -1); err != nil {
			return count, err
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return count, newError(ErrIOWrap, "LoadDictionary: %v", err)
	}
	return count, nil
}

var vowelCondNames = map[string]VowelCond{
	"none": CondNone, "any": CondAny, "vowel": CondVowel,
	"vocalic": CondVocalic, "vocalicH": CondVocalicH,
	"nonVowel": CondNonVowel, "nonVocalic": CondNonVocalic, "nonVocalicH": CondNonVocalicH,
}

func parseVowelCond(s string) (VowelCond, error) {
	v, ok := vowelCondNames[s]
	if !ok {
		return CondNone, newError(ErrFormat, "unknown vowel condition %q", s)
	}
	return v, nil
}
