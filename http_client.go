package eduauth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
	bearerScheme        = "Bearer "
)

// Route paths consumed by the HTTP client. Exact prefixes are the
// backend's concern; these are relative to the configured base URL.
const (
	routeLogin         = "/auth/login"
	routeSendOTP       = "/auth/send-otp"
	routeVerifyOTP     = "/auth/verify-otp"
	routeAdminLogin    = "/auth/admin/login"
	routeVerifyAdmin   = "/auth/verify-admin"
	routeVerifyTeacher = "/auth/verify-teacher"
	routeVerifyToken   = "/auth/verify-token"
	routeProfile       = "/auth/profile"
)

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// HTTPServiceClient is the concrete ServiceClient over net/http.
type HTTPServiceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     Logger
}

var _ ServiceClient = (*HTTPServiceClient)(nil)

type HTTPServiceClientOption func(*HTTPServiceClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) HTTPServiceClientOption {
	return func(c *HTTPServiceClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClientLogger overrides the client logger.
func WithClientLogger(logger Logger) HTTPServiceClientOption {
	return func(c *HTTPServiceClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewHTTPServiceClient(baseURL string, opts ...HTTPServiceClientOption) *HTTPServiceClient {
	c := &HTTPServiceClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

func (c *HTTPServiceClient) Login(ctx context.Context, mobile string) (*AuthResult, error) {
	result := &AuthResult{}
	body := map[string]string{"mobile": mobile}
	if err := c.do(ctx, http.MethodPost, routeLogin, "", body, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPServiceClient) SendOTP(ctx context.Context, mobile string) error {
	body := map[string]string{"mobile": mobile}
	return c.do(ctx, http.MethodPost, routeSendOTP, "", body, nil)
}

func (c *HTTPServiceClient) VerifyOTP(ctx context.Context, mobile, code string) (*AuthResult, error) {
	result := &AuthResult{}
	body := map[string]string{"mobile": mobile, "otp": code}
	if err := c.do(ctx, http.MethodPost, routeVerifyOTP, "", body, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPServiceClient) AdminLogin(ctx context.Context, mobile, password string) (*AuthResult, error) {
	result := &AuthResult{}
	body := map[string]string{"mobile": mobile, "password": password}
	if err := c.do(ctx, http.MethodPost, routeAdminLogin, "", body, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPServiceClient) VerifyAdmin(ctx context.Context, adminToken string) (*VerifyAdminResult, error) {
	result := &VerifyAdminResult{}
	if err := c.do(ctx, http.MethodPost, routeVerifyAdmin, adminToken, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPServiceClient) VerifyTeacher(ctx context.Context, token string) (*VerifyTeacherResult, error) {
	result := &VerifyTeacherResult{}
	if err := c.do(ctx, http.MethodPost, routeVerifyTeacher, token, nil, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPServiceClient) VerifyToken(ctx context.Context, token string) (*User, error) {
	result := struct {
		User *User `json:"user"`
	}{}
	if err := c.do(ctx, http.MethodPost, routeVerifyToken, token, nil, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

func (c *HTTPServiceClient) UpdateProfile(ctx context.Context, token string, patch ProfilePatch) (*User, error) {
	result := struct {
		User *User `json:"user"`
	}{}
	if err := c.do(ctx, http.MethodPut, routeProfile, token, patch, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// do performs a request and decodes the envelope. Failures split into
// two families: the backend answered success=false (rejected) or the
// backend never answered / answered garbage (transport).
func (c *HTTPServiceClient) do(ctx context.Context, method, path, bearer string, body, out any) error {
	reqURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return NewTransportError(err)
	}

	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return NewTransportError(err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return NewTransportError(err)
	}

	if body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	if bearer != "" {
		req.Header.Set(headerAuthorization, bearerScheme+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("auth request transport failure", "path", path, "error", err)
		return NewTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewTransportError(err)
	}

	env := envelope{}
	if err := json.Unmarshal(raw, &env); err != nil {
		// a reply we cannot decode is indistinguishable from no reply
		c.logger.Warn("auth response unreadable", "path", path, "status", resp.StatusCode)
		return NewTransportError(err)
	}

	if !env.Success {
		return NewRejectedError(env.Message)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return NewTransportError(err)
		}
	}

	return nil
}
