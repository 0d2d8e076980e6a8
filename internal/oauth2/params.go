package oauth2

import (
	"net/url"
	"strings"
)

// Parameters is a multi-valued, insertion-ordered parameter map.
// url.Values sorts keys on Encode; authorize URLs must keep the caller's order.
type Parameters struct {
	keys   []string
	values map[string][]string
}

// NewParameters returns an empty parameter set.
func NewParameters() *Parameters {
	return &Parameters{values: make(map[string][]string)}
}

// Add appends v to the values of key.
func (p *Parameters) Add(key, v string) *Parameters {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = append(p.values[key], v)
	return p
}

// Set replaces the values of key, keeping its original position.
func (p *Parameters) Set(key, v string) *Parameters {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = []string{v}
	return p
}

// Get returns the first value of key.
func (p *Parameters) Get(key string) string {
	if p == nil {
		return ""
	}
	if vs := p.values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Del removes key.
func (p *Parameters) Del(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (p *Parameters) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Len reports the number of distinct keys.
func (p *Parameters) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// SetRedirectURI sets redirect_uri.
func (p *Parameters) SetRedirectURI(v string) *Parameters { return p.Set("redirect_uri", v) }

// SetScope sets scope.
func (p *Parameters) SetScope(v string) *Parameters { return p.Set("scope", v) }

// SetState sets state.
func (p *Parameters) SetState(v string) *Parameters { return p.Set("state", v) }

// Encode form-encodes the parameters in insertion order.
func (p *Parameters) Encode() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	for _, k := range p.keys {
		for _, v := range p.values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Values converts to url.Values for request bodies, where order is irrelevant.
func (p *Parameters) Values() url.Values {
	out := url.Values{}
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		for _, v := range p.values[k] {
			out.Add(k, v)
		}
	}
	return out
}

// Clone returns a deep copy.
func (p *Parameters) Clone() *Parameters {
	out := NewParameters()
	if p == nil {
		return out
	}
	for _, k := range p.keys {
		for _, v := range p.values[k] {
			out.Add(k, v)
		}
	}
	return out
}
