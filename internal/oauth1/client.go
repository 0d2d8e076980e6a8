package oauth1

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// NewClient returns an http.Client that signs every request with the
// consumer credentials of s and the given access token.
func NewClient(base *http.Client, s *Signer, accessToken *Token) *http.Client {
	var rt http.RoundTripper = http.DefaultTransport
	c := &http.Client{}
	if base != nil {
		c.Timeout = base.Timeout
		if base.Transport != nil {
			rt = base.Transport
		}
	}
	c.Transport = &signingTransport{signer: s, token: accessToken, base: rt}
	return c
}

type signingTransport struct {
	signer *Signer
	token  *Token
	base   http.RoundTripper
}

func (t *signingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())

	var form url.Values
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Body != nil && mt == "application/x-www-form-urlencoded" {
		raw, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		if err != nil {
			return nil, err
		}
		form, err = url.ParseQuery(string(raw))
		if err != nil {
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))
		r.ContentLength = int64(len(raw))
	}

	header, err := t.signer.AuthorizationHeader(r.Method, r.URL.String(), map[string]string{"oauth_token": t.token.Value}, form, t.token.Secret)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Authorization", header)
	return t.base.RoundTrip(r)
}
