package oauth1

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const signatureMethod = "HMAC-SHA1"

// Signer produces HMAC-SHA1 signatures and Authorization headers.
// Clock and Nonce can be replaced in tests.
type Signer struct {
	ConsumerKey    string
	ConsumerSecret string

	Clock func() time.Time
	Nonce func() string
}

// NewSigner returns a Signer for the given consumer credentials.
func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{ConsumerKey: consumerKey, ConsumerSecret: consumerSecret}
}

// AuthorizationHeader signs the request described by method, rawURL and the
// form params, and returns the full "OAuth ..." header value. oauthParams
// carries leg-specific protocol params (oauth_token, oauth_callback,
// oauth_verifier); the common ones are added here.
func (s *Signer) AuthorizationHeader(method, rawURL string, oauthParams map[string]string, form url.Values, tokenSecret string) (string, error) {
	proto := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_signature_method": signatureMethod,
		"oauth_timestamp":        strconv.FormatInt(s.now().Unix(), 10),
		"oauth_nonce":            s.nonce(),
		"oauth_version":          "1.0",
	}
	for k, v := range oauthParams {
		if v != "" {
			proto[k] = v
		}
	}

	base, err := SignatureBaseString(method, rawURL, proto, form)
	if err != nil {
		return "", err
	}
	proto["oauth_signature"] = Sign(s.ConsumerSecret, tokenSecret, base)

	keys := make([]string, 0, len(proto))
	for k := range proto {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(percentEncode(k))
		b.WriteString(`="`)
		b.WriteString(percentEncode(proto[k]))
		b.WriteByte('"')
	}
	return b.String(), nil
}

// SignatureBaseString builds METHOD&url&params as defined by RFC 5849 3.4.1.
// Query parameters of rawURL and form are folded into the normalized set.
func SignatureBaseString(method, rawURL string, oauthParams map[string]string, form url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	type pair struct{ k, v string }
	var pairs []pair
	add := func(k, v string) { pairs = append(pairs, pair{percentEncode(k), percentEncode(v)}) }

	for k, v := range oauthParams {
		if k == "realm" || k == "oauth_signature" {
			continue
		}
		add(k, v)
	}
	for k, vs := range u.Query() {
		for _, v := range vs {
			add(k, v)
		}
	}
	for k, vs := range form {
		for _, v := range vs {
			add(k, v)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k == pairs[j].k {
			return pairs[i].v < pairs[j].v
		}
		return pairs[i].k < pairs[j].k
	})

	var params strings.Builder
	for i, p := range pairs {
		if i > 0 {
			params.WriteByte('&')
		}
		params.WriteString(p.k)
		params.WriteByte('=')
		params.WriteString(p.v)
	}

	return strings.ToUpper(method) + "&" + percentEncode(baseURL(u)) + "&" + percentEncode(params.String()), nil
}

// Sign returns the base64 HMAC-SHA1 of base keyed by the two secrets.
func Sign(consumerSecret, tokenSecret, base string) string {
	key := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func baseURL(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

// percentEncode is RFC 3986 encoding: only ALPHA DIGIT - . _ ~ stay literal.
func percentEncode(s string) string {
	const hexUpper = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z') || ('0' <= c && c <= '9') ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexUpper[c>>4])
		b.WriteByte(hexUpper[c&15])
	}
	return b.String()
}

func (s *Signer) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Signer) nonce() string {
	if s.Nonce != nil {
		return s.Nonce()
	}
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
