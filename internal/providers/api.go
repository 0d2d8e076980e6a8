package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dropDatabas3/socialconnect/internal/connect"
)

const maxBody = 1 << 20

// APIClient hace llamadas JSON autenticadas a la API de un provider. El
// http.Client recibido ya firma o autoriza cada request.
type APIClient struct {
	ProviderID string
	BaseURL    string
	HTTP       *http.Client
	Observe    ObserveFunc
}

// NewAPIClient arma el cliente para cfg con el http.Client autorizado.
func NewAPIClient(cfg Config, baseURL string, hc *http.Client) *APIClient {
	return &APIClient{
		ProviderID: cfg.ProviderID(),
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTP:       hc,
		Observe:    cfg.Observe,
	}
}

// GetJSON hace GET sobre path (relativo a BaseURL o absoluto) y retorna el
// cuerpo parseado. Los errores HTTP se clasifican como *connect.APIError.
func (c *APIClient) GetJSON(ctx context.Context, call, path string, q url.Values) (gjson.Result, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.BaseURL + "/" + strings.TrimLeft(path, "/")
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if c.Observe != nil {
		c.Observe(c.ProviderID, call, time.Since(start))
	}
	if err != nil {
		return gjson.Result{}, &connect.APIError{ProviderID: c.ProviderID, Kind: connect.KindProviderDown, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return gjson.Result{}, &connect.APIError{ProviderID: c.ProviderID, Kind: connect.KindProviderDown, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, connect.ClassifyHTTP(c.ProviderID, resp.StatusCode, errorMessage(body))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &connect.APIError{
			ProviderID: c.ProviderID,
			Kind:       connect.KindOther,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s: invalid json response", call),
		}
	}
	return gjson.ParseBytes(body), nil
}

// errorMessage busca el texto de error en los formatos más comunes.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"error.message", "errors.0.message", "error_description", "message", "error"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}
