// Package portal is the client of the university portal REST API.
//
// Failures never escape as anything but the package's sentinel errors:
// ErrAuthFailure for authentication, ErrRemoteUnavailable for data calls.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kgeu-bot/internal/models"
	"kgeu-bot/pkg/logger"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://iep.kgeu.ru"
	DefaultTimeout = 15 * time.Second

	tokenHeader  = "x-access-token"
	maxBodyBytes = 4 << 20

	// maxSemesters bounds semester discovery.
	maxSemesters = 12
)

var (
	ErrAuthFailure       = errors.New("portal: authentication failed")
	ErrRemoteUnavailable = errors.New("portal: remote unavailable")
	ErrMalformedEntry    = errors.New("portal: malformed entry")
)

// Session is the result of a successful authentication.
type Session struct {
	Token   string
	Profile models.Profile
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a client. A zero timeout means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrNop(log).Named("portal"),
	}
}

// Authenticate exchanges login and password for a token and the cached profile.
func (c *Client) Authenticate(ctx context.Context, login, password string) (Session, error) {
	q := url.Values{}
	q.Set("login", login)
	q.Set("password", password)

	body, err := c.get(ctx, "/api/auth", q, "")
	if err != nil {
		c.log.Warn("auth request failed", zap.Error(err))
		return Session{}, fmt.Errorf("%w: %w", ErrAuthFailure, err)
	}
	if t := gjson.GetBytes(body, "type").String(); t != "success" {
		return Session{}, fmt.Errorf("%w: response type %q", ErrAuthFailure, t)
	}

	var p authPayload
	if err := json.Unmarshal([]byte(gjson.GetBytes(body, "payload").Raw), &p); err != nil || p.Token == "" {
		return Session{}, fmt.Errorf("%w: bad payload", ErrAuthFailure)
	}

	return Session{
		Token: p.Token,
		Profile: models.Profile{
			LastName:   p.UserData.LastName,
			FirstName:  p.UserData.FirstName,
			ParentName: p.UserData.ParentName,
			Email:      p.UserData.EMail,
			Position:   p.UserData.Position,
		},
	}, nil
}

// CheckToken reports whether the portal still accepts token.
func (c *Client) CheckToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	body, err := c.get(ctx, "/api/user", nil, token)
	if err != nil {
		c.log.Debug("token check failed", zap.Error(err))
		return false
	}
	return gjson.GetBytes(body, "type").String() == "success"
}

// ScheduleWeek fetches the class sessions of one academic week.
// Malformed entries are logged and skipped.
func (c *Client) ScheduleWeek(ctx context.Context, token string, week int) ([]models.ScheduleEntry, error) {
	q := url.Values{}
	q.Set("week", strconv.Itoa(week))

	var p schedulePayload
	if err := c.payload(ctx, "/api/schedule", q, token, &p); err != nil {
		return nil, err
	}

	entries := make([]models.ScheduleEntry, 0, len(p.Schedules))
	for _, raw := range p.Schedules {
		var item scheduleItem
		if err := json.Unmarshal(raw, &item); err != nil {
			c.log.Warn("skipping schedule entry", zap.Int(logger.FieldWeek, week),
				zap.Error(fmt.Errorf("%w: %v", ErrMalformedEntry, err)))
			continue
		}
		entry, err := item.toEntry()
		if err != nil {
			c.log.Warn("skipping schedule entry", zap.Int(logger.FieldWeek, week), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Grades fetches the BRS report. semester <= 0 means the current one.
func (c *Client) Grades(ctx context.Context, token string, semester int) (*models.GradeReport, error) {
	var p brsPayload
	if err := c.payload(ctx, "/api/user/brs", semesterQuery(semester), token, &p); err != nil {
		return nil, err
	}
	return p.toReport(semester), nil
}

// Transcript fetches the record book. semester <= 0 means the current one.
func (c *Client) Transcript(ctx context.Context, token string, semester int) (*models.Transcript, error) {
	var p recordPayload
	if err := c.payload(ctx, "/api/user/record", semesterQuery(semester), token, &p); err != nil {
		return nil, err
	}
	return p.toTranscript(semester), nil
}

// Semesters probes BRS reports from semester 1 upward and returns those with data.
// Probing stops at the first empty or failed semester.
func (c *Client) Semesters(ctx context.Context, token string) ([]int, error) {
	var semesters []int
	for s := 1; s <= maxSemesters; s++ {
		report, err := c.Grades(ctx, token, s)
		if err != nil {
			if len(semesters) == 0 {
				return nil, err
			}
			break
		}
		if len(report.Subjects) == 0 {
			break
		}
		semesters = append(semesters, s)
	}
	return semesters, nil
}

func semesterQuery(semester int) url.Values {
	if semester <= 0 {
		return nil
	}
	q := url.Values{}
	q.Set("semestr", strconv.Itoa(semester))
	return q
}

func (c *Client) payload(ctx context.Context, path string, q url.Values, token string, dst interface{}) error {
	body, err := c.get(ctx, path, q, token)
	if err != nil {
		c.log.Warn("portal request failed", zap.String(logger.FieldOperation, path), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}

	payload := gjson.GetBytes(body, "payload")
	if !payload.IsObject() {
		c.log.Warn("portal response without payload", zap.String(logger.FieldOperation, path),
			zap.String("type", gjson.GetBytes(body, "type").String()))
		return fmt.Errorf("%w: no payload in %s response", ErrRemoteUnavailable, path)
	}
	if err := json.Unmarshal([]byte(payload.Raw), dst); err != nil {
		c.log.Warn("portal payload decode failed", zap.String(logger.FieldOperation, path), zap.Error(err))
		return fmt.Errorf("%w: decode %s: %w", ErrRemoteUnavailable, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, token string) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error carries the full URL, which includes credentials for /api/auth.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("do request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}
	return body, nil
}
