package route

import "strings"

// NormalizePath removes dot segments from an escaped request path (RFC 3986
// section 5.2.4), treating percent-encoded dots as dots. Other escapes such as
// %2F are kept, so an encoded slash never becomes a segment boundary. A
// trailing slash is kept, and ".." never climbs above the root.
func NormalizePath(escaped string) string {
	if escaped == "" {
		return "/"
	}
	if !strings.HasPrefix(escaped, "/") {
		return escaped
	}

	segments := strings.Split(escaped[1:], "/")
	out := make([]string, 0, len(segments))
	for i, seg := range segments {
		last := i == len(segments)-1
		switch {
		case isDoubleDot(seg):
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			if last {
				out = append(out, "")
			}
		case isSingleDot(seg):
			if last {
				out = append(out, "")
			}
		default:
			out = append(out, seg)
		}
	}

	return "/" + strings.Join(out, "/")
}

func isSingleDot(seg string) bool {
	return seg == "." || strings.EqualFold(seg, "%2e")
}

func isDoubleDot(seg string) bool {
	switch strings.ToLower(seg) {
	case "..", ".%2e", "%2e.", "%2e%2e":
		return true
	}
	return false
}
