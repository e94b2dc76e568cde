package club

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the club's scheduling backend. The transport timeout is
// deliberately short: the engines above decide how long to wait between
// attempts, not the HTTP layer.
//
// All methods take the Session explicitly; the client itself holds no
// per-user state and is safe to share across workers.
type Client struct {
	hc       *http.Client
	limiter  *rate.Limiter
	baseURL  string
	facility string
}

func New(baseURL, facilityID string) *Client {
	return &Client{
		hc:       &http.Client{Timeout: 3 * time.Second},
		limiter:  rate.NewLimiter(10, 5),
		baseURL:  strings.TrimRight(baseURL, "/"),
		facility: facilityID,
	}
}

// Authenticate exchanges credentials for a session token.
func (c *Client) Authenticate(ctx context.Context, email, password string) (Session, error) {
	payload := map[string]string{"email": email, "password": password}
	status, body, err := c.do(ctx, Session{}, http.MethodPost, "auth/local", payload)
	if err != nil {
		return Session{}, err
	}
	if status >= 400 {
		return Session{}, fmt.Errorf("%w (status=%d)", ErrAuth, status)
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return Session{}, &ShapeError{Op: "authenticate", Err: err}
	}
	if res.Token == "" {
		return Session{}, &ShapeError{Op: "authenticate", Err: fmt.Errorf("empty token")}
	}
	return Session{Token: res.Token}, nil
}

// Identity resolves the authenticated caller's user id.
func (c *Client) Identity(ctx context.Context, sess Session) (string, error) {
	status, body, err := c.do(ctx, sess, http.MethodGet, "api/users/me", nil)
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", fmt.Errorf("%w (status=%d)", ErrAuth, status)
	}
	if status >= 400 {
		return "", &StatusError{Op: "identity", Status: status}
	}
	var res struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", &ShapeError{Op: "identity", Err: err}
	}
	if res.ID == "" {
		return "", &ShapeError{Op: "identity", Err: fmt.Errorf("missing _id")}
	}
	return res.ID, nil
}

// ScheduledClasses returns the caller's upcoming reservations for one
// class type, cancelled ones included.
func (c *Client) ScheduledClasses(ctx context.Context, sess Session, classType string) ([]UpcomingBooking, error) {
	path := fmt.Sprintf("api/users/%s/upcoming", classType)
	status, body, err := c.do(ctx, sess, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &StatusError{Op: "scheduled classes", Status: status}
	}
	var res []UpcomingBooking
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &ShapeError{Op: "scheduled classes", Err: err}
	}
	return res, nil
}

// SlotInventory returns the live bookable inventory for one class type,
// grouped by day in the order the backend publishes them (ascending date).
func (c *Client) SlotInventory(ctx context.Context, sess Session, classType string) ([]InventoryDay, error) {
	path := fmt.Sprintf("api/class/gym/%s/%s", c.facility, classType)
	status, body, err := c.do(ctx, sess, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &StatusError{Op: "slot inventory", Status: status}
	}
	var res []InventoryDay
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &ShapeError{Op: "slot inventory", Err: err}
	}
	return res, nil
}

// Book reserves one seat block on a class for the given user. No local
// retry: a blind retry here could double-book, so failures propagate to
// the control loop unchanged.
func (c *Client) Book(ctx context.Context, sess Session, classID, userID string) error {
	payload := map[string]any{"userId": userID, "isSinglePayment": true}
	status, _, err := c.do(ctx, sess, http.MethodPost, "api/class/"+classID, payload)
	if err != nil {
		return err
	}
	if status >= 400 {
		return &StatusError{Op: "book", Status: status}
	}
	return nil
}

// Cancel withdraws an existing booking. Not driven by the control loop;
// exposed for manual use.
func (c *Client) Cancel(ctx context.Context, sess Session, bookingID, userID string) error {
	payload := map[string]string{"userId": userID}
	path := fmt.Sprintf("api/attendance/%s/cancel", bookingID)
	status, _, err := c.do(ctx, sess, http.MethodPatch, path, payload)
	if err != nil {
		return err
	}
	if status >= 400 {
		return &StatusError{Op: "cancel", Status: status}
	}
	return nil
}

func (c *Client) do(ctx context.Context, sess Session, method, path string, payload any) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("club: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("club: read %s %s: %w", method, path, err)
	}
	return res.StatusCode, b, nil
}
