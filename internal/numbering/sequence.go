package numbering

import "strconv"

// renderOrdinal renders a 0-based rank per the component's style and
// offset.
func renderOrdinal(rank int, c Component) string {
	n := rank + c.Offset
	var body string
	if c.Style == StyleAlphabetic {
		body = alphaSequence(n)
	} else {
		body = strconv.Itoa(n)
	}
	return c.Prefix + body + c.Suffix
}

// alphaSequence renders n in spreadsheet-column style: 0 -> A, 25 -> Z,
// 26 -> AA, 27 -> AB. Offsets shift within the same sequence, so an
// offset of 1 starts at B.
func alphaSequence(n int) string {
	if n < 0 {
		return ""
	}
	var buf []byte
	for {
		buf = append([]byte{byte('A' + n%26)}, buf...)
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return string(buf)
}
