// Package urls builds the absolute URLs a control point derives from device
// descriptions.
//
// Device firmware frequently publishes malformed or unusual relative paths, so
// Build deliberately performs no normalization beyond collapsing a single
// doubled slash at the join point:
//
//	urls.Build("http://10.0.0.5:80/", "/scpd.xml") // "http://10.0.0.5:80/scpd.xml"
//	urls.Build("http://h/a", "b.xml")             // "http://h/ab.xml"
//	urls.Build("http://h/", "")                   // "" (field unavailable)
//
// An empty result means the description did not carry the field. Callers skip
// any network call that depends on it rather than treating it as an error.
package urls
