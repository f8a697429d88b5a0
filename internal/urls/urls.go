package urls

import (
	"net/url"
	"strings"
)

// Build joins a base URL and a relative path.
// If base ends with "/" and relative starts with "/", one leading "/" is
// stripped from relative. Nothing else is normalized. An empty relative
// yields the empty string.
func Build(base, relative string) string {
	if relative == "" {
		return ""
	}

	if strings.HasSuffix(base, "/") && strings.HasPrefix(relative, "/") {
		relative = relative[1:]
	}

	return base + relative
}

// BaseFromLocation returns the directory of a description LOCATION: scheme,
// host and path up to and including the last "/". Query and fragment are
// dropped. Returns "" when location is not an absolute URL.
//
//	http://h/dev/desc.xml -> http://h/dev/
//	http://h:8200         -> http://h:8200/
func BaseFromLocation(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	dir := "/"
	if idx := strings.LastIndex(u.Path, "/"); idx >= 0 {
		dir = u.Path[:idx+1]
	}
	return u.Scheme + "://" + u.Host + dir
}

// ResolveReference resolves a service URL against the LOCATION of a
// description that carries no URLBase. Relative paths resolve against the
// description's directory, absolute paths against its host, and absolute
// URLs are returned unchanged. An empty ref yields "".
func ResolveReference(location, ref string) string {
	if ref == "" {
		return ""
	}

	base, err := url.Parse(location)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return Build(BaseFromLocation(location), ref)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return Build(BaseFromLocation(location), ref)
	}
	return base.ResolveReference(r).String()
}
