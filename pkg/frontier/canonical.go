package frontier

import (
	"net/url"
	"strings"
)

// Canonicalize applies the bit-exact canonicalization rule from the
// external interfaces section: lowercase host, strip default ports, strip
// the fragment, keep path case, keep the query string as-is. Applying the
// transform twice yields the same result (§8.2).
//
// This is implemented by hand rather than with a generic URL-normalization
// library (e.g. purell): those libraries also lowercase the path and
// reorder/dedupe query parameters by default, which would violate the
// "keep path case" / "keep query as-is" requirements here.
func Canonicalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	u.Host = stripDefaultPort(host, u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

func stripDefaultPort(host, scheme string) string {
	switch {
	case strings.HasSuffix(host, ":80") && scheme == "http":
		return strings.TrimSuffix(host, ":80")
	case strings.HasSuffix(host, ":443") && scheme == "https":
		return strings.TrimSuffix(host, ":443")
	default:
		return host
	}
}

// HostOf extracts the lowercase, www.-stripped host from a canonical URL.
func HostOf(canonicalURL string) string {
	u, err := url.Parse(canonicalURL)
	if err != nil {
		return ""
	}

	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
