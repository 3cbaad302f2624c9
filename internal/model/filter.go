package model

import "net/url"

// Filter selects which ledger events a fetch cycle should match. The
// poller treats it as opaque: two filters with the same canonical
// serialization (Key) share cursor state.
//
// Filters are immutable for the poller's lifetime.
type Filter struct {
	EventType  string            `yaml:"event_type" json:"event_type,omitempty"`
	Emitter    string            `yaml:"emitter" json:"emitter,omitempty"`
	Attributes map[string]string `yaml:"attributes" json:"attributes,omitempty"`
}

// QueryValues encodes the filter as query parameters for the ledger's
// event-query endpoint. Attribute matchers are prefixed with "attr.".
func (f Filter) QueryValues() url.Values {
	v := url.Values{}
	if f.EventType != "" {
		v.Set("event_type", f.EventType)
	}
	if f.Emitter != "" {
		v.Set("emitter", f.Emitter)
	}
	for k, val := range f.Attributes {
		v.Set("attr."+k, val)
	}
	return v
}

// Key returns the canonical serialization of the filter, used to key
// cursor state. url.Values.Encode sorts by parameter name, so attribute
// map ordering can never split one logical filter across two entries.
func (f Filter) Key() string {
	return f.QueryValues().Encode()
}
