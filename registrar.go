package regdns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// DefaultTimeout applies to every registrar and public IP request.
const DefaultTimeout = 10 * time.Second

const (
	tokenPath = "auth/token"
	dnsPath   = "api/v1/whmcs/domain/dns"
	scope     = "whmcs-access"

	maxBodySize = 1 << 20
)

// tokenSafetyMargin is subtracted from the server supplied lifetime so tokens are refreshed before they lapse.
const tokenSafetyMargin = time.Hour

// Credentials authenticate against the registrar identity endpoint with a password grant.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// AuthToken is the credential returned by the identity endpoint.
type AuthToken struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int // seconds, as returned by the server
	Scope        string
	RefreshToken string
	IssuedAt     time.Time
}

// ExpiresAt is the instant after which the token is no longer used.
// It is one hour earlier than the lifetime the server reported.
func (t AuthToken) ExpiresAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn)*time.Second - tokenSafetyMargin)
}

// Valid reports whether the token can be used at now.
func (t AuthToken) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Before(t.ExpiresAt())
}

func (t AuthToken) authorization() string {
	typ := t.TokenType
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// RegistrarClient implements Registrar for the registrar's WHMCS DNS API.
//
// It should be constructed using NewRegistrarClient.
type RegistrarClient struct {
	httpClient *http.Client
	baseURL    *url.URL
	version    string
	creds      Credentials
	logger     logr.Logger
	now        func() time.Time
}

// NewRegistrarClient returns a client for the API rooted at baseURL, e.g. "https://api.example.net/".
// version is sent with every DNS request body.
func NewRegistrarClient(baseURL, version string, creds Credentials) (*RegistrarClient, error) {
	if baseURL == "" {
		return nil, configErrorf("registrar API URL cannot be empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, configErrorf("invalid registrar API URL %q: %s", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, configErrorf("invalid registrar API URL %q: scheme and host are required", baseURL)
	}
	return &RegistrarClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    u,
		version:    version,
		creds:      creds,
		logger:     logr.Discard(),
		now:        time.Now,
	}, nil
}

func (rc *RegistrarClient) SetLogger(logger logr.Logger) { rc.logger = logger }

// SetHTTPClient replaces the HTTP client. A client without a timeout gets DefaultTimeout.
func (rc *RegistrarClient) SetHTTPClient(httpClient *http.Client) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if httpClient.Timeout == 0 {
		c := *httpClient
		c.Timeout = DefaultTimeout
		httpClient = &c
	}
	rc.httpClient = httpClient
}

type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    flexInt `json:"expires_in"`
	Scope        string  `json:"scope"`
	RefreshToken string  `json:"refresh_token"`
}

// Authenticate exchanges the configured credentials for an AuthToken.
func (rc *RegistrarClient) Authenticate(ctx context.Context) (AuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", rc.creds.ClientID)
	form.Set("client_secret", rc.creds.ClientSecret)
	form.Set("username", rc.creds.Username)
	form.Set("password", rc.creds.Password)
	form.Set("scope", scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.baseURL.JoinPath(tokenPath).String(), strings.NewReader(form.Encode()))
	if err != nil {
		return AuthToken{}, fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	issued := rc.now()
	status, body, err := rc.do(req, "token request")
	if err != nil {
		return AuthToken{}, err
	}
	if !success(status) {
		return AuthToken{}, &AuthenticationError{StatusCode: status, Body: strings.TrimSpace(string(body))}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return AuthToken{}, &AuthenticationError{StatusCode: status, Body: "error decoding token response: " + err.Error()}
	}
	if tr.AccessToken == "" {
		return AuthToken{}, &AuthenticationError{StatusCode: status, Body: "response did not include an access_token"}
	}
	t := AuthToken{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		ExpiresIn:    tr.ExpiresIn.v,
		Scope:        tr.Scope,
		RefreshToken: tr.RefreshToken,
		IssuedAt:     issued,
	}
	rc.logger.V(1).Info("obtained access token", "type", t.TokenType, "expiresAt", t.ExpiresAt())
	return t, nil
}

type zoneBody struct {
	SLD string `json:"sld"`
	TLD string `json:"tld"`
}

type replaceBody struct {
	SLD     string   `json:"sld"`
	TLD     string   `json:"tld"`
	Records []Record `json:"dns_records"`
}

type dnsRequest struct {
	Body    any    `json:"body"`
	Version string `json:"version"`
}

type dnsResponse struct {
	Data struct {
		Records *[]Record `json:"dns_records"`
	} `json:"data"`
}

// FetchRecords returns the complete record set of zone in registrar order.
func (rc *RegistrarClient) FetchRecords(ctx context.Context, zone Zone, token AuthToken) ([]Record, error) {
	status, body, err := rc.dnsCall(ctx, http.MethodPost, "fetch records", token, dnsRequest{
		Body:    zoneBody{SLD: zone.SLD, TLD: zone.TLD},
		Version: rc.version,
	})
	if err != nil {
		return nil, err
	}
	if !success(status) {
		return nil, &APIError{Op: "fetch records", StatusCode: status, Body: strings.TrimSpace(string(body))}
	}
	rc.logger.V(2).Info("records response", "body", string(body))
	var resp dnsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &APIError{Op: "fetch records", StatusCode: status, Body: "error decoding records: " + err.Error()}
	}
	// A missing record list is an error, not an empty set.
	if resp.Data.Records == nil {
		return nil, &APIError{Op: "fetch records", StatusCode: status, Body: strings.TrimSpace(string(body))}
	}
	records := *resp.Data.Records
	if records == nil {
		records = []Record{}
	}
	rc.logger.V(1).Info("fetched records", "zone", zone.String(), "count", len(records))
	return records, nil
}

// ReplaceRecords submits records as the complete record set of zone.
func (rc *RegistrarClient) ReplaceRecords(ctx context.Context, zone Zone, token AuthToken, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	req := dnsRequest{
		Body:    replaceBody{SLD: zone.SLD, TLD: zone.TLD, Records: records},
		Version: rc.version,
	}
	status, body, err := rc.dnsCall(ctx, http.MethodPut, "replace records", token, req)
	if err != nil {
		return err
	}
	if !success(status) {
		return &APIError{Op: "replace records", StatusCode: status, Body: strings.TrimSpace(string(body))}
	}
	rc.logger.V(1).Info("replaced records", "zone", zone.String(), "count", len(records))
	return nil
}

func (rc *RegistrarClient) dnsCall(ctx context.Context, method, op string, token AuthToken, payload dnsRequest) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("error encoding %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, method, rc.baseURL.JoinPath(dnsPath).String(), bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("error creating %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", token.authorization())
	rc.logger.V(2).Info("sending request", "op", op, "method", method, "body", string(data))
	return rc.do(req, op)
}

func (rc *RegistrarClient) do(req *http.Request, op string) (int, []byte, error) {
	resp, err := rc.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Op: op, Err: fmt.Errorf("error reading response: %w", err)}
	}
	rc.logger.V(2).Info("received response", "op", op, "status", resp.StatusCode)
	return resp.StatusCode, body, nil
}

func success(status int) bool { return status >= 200 && status < 300 }
