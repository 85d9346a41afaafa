package host

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
)

// Client is an HTTP implementation of ModuleAPI against the homeserver's
// module API, authenticated with a shared secret.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient creates a module API client
func NewClient(baseURL, sharedSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  sharedSecret,
		http:    &http.Client{Timeout: timeout},
	}
}

// registerRequest is the register call payload
type registerRequest struct {
	Username    string   `json:"username"`
	Displayname string   `json:"displayname"`
	Emails      []string `json:"emails"`
}

// RegisterUser creates a local account and returns its user ID
func (c *Client) RegisterUser(ctx context.Context, localpart, displayname string, emails []string) (string, error) {
	var resp struct {
		UserID string `json:"user_id"`
	}
	err := c.do(ctx, http.MethodPost, "/register", registerRequest{
		Username:    localpart,
		Displayname: displayname,
		Emails:      emails,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.UserID == "" {
		return "", fmt.Errorf("host returned empty user id")
	}
	return resp.UserID, nil
}

// RecordUserExternalID associates an external identifier with a local account
func (c *Client) RecordUserExternalID(ctx context.Context, authProvider, externalID, userID string) error {
	path := fmt.Sprintf("/users/%s/external_ids/%s",
		url.PathEscape(userID), url.PathEscape(authProvider))
	return c.do(ctx, http.MethodPut, path, map[string]string{
		"external_id": externalID,
	}, nil)
}

// UsernameAvailable reports whether a localpart is free to register
func (c *Client) UsernameAvailable(ctx context.Context, localpart string) (bool, error) {
	var resp struct {
		Available bool `json:"available"`
	}
	path := "/register/available?username=" + url.QueryEscape(localpart)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		// The host reports a taken name as a collision error rather
		// than available=false on some versions.
		if IsNameUnavailable(err) {
			return false, nil
		}
		return false, err
	}
	return resp.Available, nil
}

// CompleteSSOLogin obtains a short-lived login token for the account,
// appends it to the client redirect URL, and sends the browser there.
func (c *Client) CompleteSSOLogin(w http.ResponseWriter, r *http.Request, userID, clientRedirectURL string) error {
	var resp struct {
		LoginToken string `json:"login_token"`
	}
	path := fmt.Sprintf("/users/%s/login_token", url.PathEscape(userID))
	if err := c.do(r.Context(), http.MethodPost, path, map[string]string{}, &resp); err != nil {
		return err
	}
	if resp.LoginToken == "" {
		return fmt.Errorf("host returned empty login token")
	}

	redirect, err := addLoginToken(clientRedirectURL, resp.LoginToken)
	if err != nil {
		return fmt.Errorf("invalid client redirect URL: %w", err)
	}

	http.Redirect(w, r, redirect, http.StatusFound)
	return nil
}

// addLoginToken appends a loginToken query parameter, preserving any
// existing query string.
func addLoginToken(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("loginToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// do performs a JSON request against the host and decodes the response into
// out when non-nil. Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("host request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode host response: %w", err)
		}
	}
	return nil
}

// decodeError turns a non-2xx host response into *Error
func decodeError(resp *http.Response) error {
	var body struct {
		Errcode string `json:"errcode"`
		Err     string `json:"error"`
	}
	msg := http.StatusText(resp.StatusCode)
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body); err == nil && body.Err != "" {
		msg = body.Err
	}
	return &Error{
		Code:    resp.StatusCode,
		Errcode: body.Errcode,
		Msg:     msg,
	}
}
