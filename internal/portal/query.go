package portal

import (
	"net/url"
	"strings"
)

type param struct {
	key, value string
}

// Query is an ordered list of query parameters. Portals are picky about
// parameter order, and url.Values.Encode sorts keys.
type Query []param

// NewQuery starts a query for a portal type/action pair.
func NewQuery(typ, action string) Query {
	return Query{{"type", typ}, {"action", action}}
}

// Add appends key=value and returns the extended query.
func (q Query) Add(key, value string) Query {
	return append(q, param{key, value})
}

// Get returns the first value for key.
func (q Query) Get(key string) string {
	for _, p := range q {
		if p.key == key {
			return p.value
		}
	}
	return ""
}

// Action returns the action parameter, used for logs and metrics.
func (q Query) Action() string {
	return q.Get("action")
}

// Encode renders the query in insertion order, always terminated with the
// JsHttpRequest marker the portal expects.
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(p.key))
		b.WriteByte('=')
		b.WriteString(escape(p.value))
	}
	if len(q) > 0 {
		b.WriteByte('&')
	}
	b.WriteString("JsHttpRequest=1-xml")
	return b.String()
}

// escape percent-encodes s the way browsers' encodeURIComponent does for the
// characters portals care about: spaces become %20, not '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
