// Package accounts wraps the storefront user endpoints. Calls share the
// catalog client's rate limiter and timeout policy and are never cached.
package accounts

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/KoduruNani/Flipkart-2/apierr"
	"github.com/KoduruNani/Flipkart-2/httpclient"
)

// Caller is the subset of httpclient.Client used here.
type Caller interface {
	Call(ctx context.Context, endpoint string, req httpclient.Request) (json.RawMessage, error)
}

type Name struct {
	First string `json:"firstname"`
	Last  string `json:"lastname"`
}

type User struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     *Name  `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	Token string `json:"token"`
}

// Registration is the sign-up form.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     *Name  `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 128)),
	)
}

// ProfileUpdate holds the fields a user may change. Empty fields are left untouched.
type ProfileUpdate struct {
	Email string `json:"email,omitempty"`
	Name  *Name  `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Bio   string `json:"bio,omitempty"`
}

func (u ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Email, is.EmailFormat),
		validation.Field(&u.Bio, validation.Length(0, 500)),
	)
}

// Client calls the account endpoints.
type Client struct {
	caller Caller
}

func New(caller Caller) *Client {
	return &Client{caller: caller}
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Session{}, apierr.InvalidArgument("username and password are required")
	}

	return call[Session](ctx, c.caller, "/login", httpclient.Request{
		Method: http.MethodPost,
		Body:   map[string]string{"username": username, "password": password},
	})
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg Registration) (User, error) {
	if err := invalid("registration", reg.Validate()); err != nil {
		return User{}, err
	}

	return call[User](ctx, c.caller, "/register", httpclient.Request{
		Method: http.MethodPost,
		Body:   reg,
	})
}

// Profile fetches a user. It requires the API key.
func (c *Client) Profile(ctx context.Context, userID int) (User, error) {
	if userID <= 0 {
		return User{}, apierr.InvalidArgument("user id is required")
	}

	return call[User](ctx, c.caller, userEndpoint(userID), httpclient.Request{
		Route:         "/users/{id}",
		Authenticated: true,
	})
}

func (c *Client) UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) (User, error) {
	if userID <= 0 {
		return User{}, apierr.InvalidArgument("user id is required")
	}
	if err := invalid("profile update", update.Validate()); err != nil {
		return User{}, err
	}

	return call[User](ctx, c.caller, userEndpoint(userID), httpclient.Request{
		Method:        http.MethodPut,
		Body:          update,
		Route:         "/users/{id}",
		Authenticated: true,
	})
}

func (c *Client) DeleteUser(ctx context.Context, userID int) error {
	if userID <= 0 {
		return apierr.InvalidArgument("user id is required")
	}

	_, err := c.caller.Call(ctx, userEndpoint(userID), httpclient.Request{
		Method:        http.MethodDelete,
		Route:         "/users/{id}",
		Authenticated: true,
	})
	return err
}

func call[T any](ctx context.Context, caller Caller, endpoint string, req httpclient.Request) (T, error) {
	var out T
	body, err := caller.Call(ctx, endpoint, req)
	if err != nil {
		return out, err
	}
	if len(body) == 0 {
		return out, apierr.Transport(endpoint, errors.New("empty response body"))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, apierr.Transport(endpoint, errors.Wrap(err, "decode response"))
	}
	return out, nil
}

func invalid(what string, err error) error {
	if err == nil {
		return nil
	}
	e := apierr.InvalidArgument("invalid %s: %v", what, err)
	e.Cause = err
	return e
}

func userEndpoint(id int) string {
	return "/users/" + strconv.Itoa(id)
}
