package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// HeaderAuthorization is the bearer header protected endpoints expect.
const HeaderAuthorization = "Authorization"

// Gateway wraps outbound API calls with the current credential attached.
// Feature screens call it directly; they never touch the credential itself.
//
// Reconciliation lives here: any response indicating an invalid or expired
// credential triggers the Manager's single CredentialExpired transition.
type Gateway struct {
	manager *Manager
	client  *http.Client
	logger  Logger
}

// NewGateway returns a gateway bound to the session manager. A nil client
// falls back to http.DefaultClient.
func NewGateway(manager *Manager, client *http.Client) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{
		manager: manager,
		client:  client,
		logger:  defLogger{},
	}
}

// WithLogger overrides the gateway logger.
func (g *Gateway) WithLogger(logger Logger) *Gateway {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Do sends the request with the session credential attached. A 401 answer
// expires the session before the response is returned to the caller.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	session := g.manager.Session()
	if session.Authenticated() {
		req.Header.Set(HeaderAuthorization, "Bearer "+session.Credential)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, ErrTransportFailure.Category, ErrTransportFailure.Message).
			WithTextCode(ErrTransportFailure.TextCode)
	}

	if res.StatusCode == http.StatusUnauthorized && session.Authenticated() {
		g.logger.Info("gateway: credential rejected by %s, expiring session", req.URL.Path)
		g.manager.Expire(req.Context())
	}

	return res, nil
}

// credentialEnvelope is the wire shape of a successful authentication answer.
type credentialEnvelope struct {
	Credential string   `json:"credential"`
	Identity   Identity `json:"identity"`
}

// errorEnvelope is the wire shape of a declined authentication answer.
type errorEnvelope struct {
	Error    string `json:"error"`
	TextCode string `json:"text_code,omitempty"`
}

// HTTPAuthClient implements the AuthClient contract against the backend's
// authentication endpoints.
type HTTPAuthClient struct {
	baseURL string
	client  *http.Client
	logger  Logger
}

// NewHTTPAuthClient returns a wire client rooted at baseURL. A nil client
// falls back to http.DefaultClient.
func NewHTTPAuthClient(baseURL string, client *http.Client) *HTTPAuthClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  defLogger{},
	}
}

// WithLogger overrides the client logger.
func (c *HTTPAuthClient) WithLogger(logger Logger) *HTTPAuthClient {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Authenticate implements AuthClient for the primary subject/secret flow.
func (c *HTTPAuthClient) Authenticate(ctx context.Context, payload LoginPayload) (*LoginResult, error) {
	return c.postForCredential(ctx, "/auth/login", map[string]string{
		"identifier": payload.GetIdentifier(),
		"password":   payload.GetPassword(),
	})
}

// AuthenticateAccessKey implements AuthClient for the company access key flow.
func (c *HTTPAuthClient) AuthenticateAccessKey(ctx context.Context, payload AccessKeyPayload) (*LoginResult, error) {
	return c.postForCredential(ctx, "/auth/access-key", map[string]string{
		"key_id":     payload.GetKeyID(),
		"key_secret": payload.GetKeySecret(),
	})
}

// RequestLoginCode implements AuthClient for the customer code flow.
func (c *HTTPAuthClient) RequestLoginCode(ctx context.Context, phoneNumber string) error {
	res, err := c.post(ctx, "/auth/code/request", map[string]string{
		"phone_number": phoneNumber,
	})
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	return c.decodeFailure(res)
}

// AuthenticateCode implements AuthClient for the customer code flow.
func (c *HTTPAuthClient) AuthenticateCode(ctx context.Context, payload CodePayload) (*LoginResult, error) {
	return c.postForCredential(ctx, "/auth/code/verify", map[string]string{
		"phone_number": payload.GetPhoneNumber(),
		"code":         payload.GetCode(),
	})
}

func (c *HTTPAuthClient) postForCredential(ctx context.Context, path string, body map[string]string) (*LoginResult, error) {
	res, err := c.post(ctx, path, body)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, c.decodeFailure(res)
	}

	var envelope credentialEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, goerrors.Wrap(err, ErrTransportFailure.Category, "undecodable authentication answer").
			WithTextCode(ErrTransportFailure.TextCode)
	}

	return &LoginResult{
		Credential: envelope.Credential,
		Identity:   envelope.Identity,
	}, nil
}

func (c *HTTPAuthClient) post(ctx context.Context, path string, body map[string]string) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode auth payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build auth request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("auth endpoint unreachable: %v", err)
		return nil, goerrors.Wrap(err, ErrTransportFailure.Category, ErrTransportFailure.Message).
			WithTextCode(ErrTransportFailure.TextCode)
	}

	return res, nil
}

// decodeFailure maps non-2xx auth answers onto the error taxonomy: auth
// status codes mean the server declined the attempt, anything else is a
// transport level failure.
func (c *HTTPAuthClient) decodeFailure(res *http.Response) error {
	var envelope errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	_ = json.Unmarshal(raw, &envelope)

	message := envelope.Error
	if message == "" {
		message = fmt.Sprintf("authentication endpoint answered %d", res.StatusCode)
	}

	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity, http.StatusBadRequest:
		return errWithMetadata(ErrAuthenticationRejected, map[string]any{
			"status_code": res.StatusCode,
			"message":     message,
			"text_code":   envelope.TextCode,
		})
	default:
		return errWithMetadata(ErrTransportFailure, map[string]any{
			"status_code": res.StatusCode,
			"message":     message,
		})
	}
}

var _ AuthClient = (*HTTPAuthClient)(nil)
