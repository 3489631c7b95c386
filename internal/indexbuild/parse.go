package indexbuild

import "strings"

// parseLine splits one input line into its three whitespace-separated
// fields per spec.md §6: "s␠p␠(o…).␊ lines; trailing whitespace and a
// terminating '.' are stripped." The object field may itself contain
// embedded whitespace (quoted literals), so only the first two fields are
// split strictly; everything remaining becomes the object text.
func parseLine(line string) (s, p, o string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", "", false
	}
	line = strings.TrimSuffix(line, ".")
	line = strings.TrimRight(line, " \t")

	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return "", "", "", false
	}
	s = line[:i]
	rest := strings.TrimLeft(line[i+1:], " \t")

	j := strings.IndexAny(rest, " \t")
	if j < 0 {
		return "", "", "", false
	}
	p = rest[:j]
	o = strings.TrimSpace(rest[j+1:])
	if s == "" || p == "" || o == "" {
		return "", "", "", false
	}
	return s, p, o, true
}
