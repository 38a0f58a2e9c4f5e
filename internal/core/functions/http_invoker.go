// Package functions calls the platform's named remote functions over HTTP.
package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/markdave123-py/CoachHub/internal/core"
	"github.com/markdave123-py/CoachHub/internal/logging"
)

// Remote function names.
const (
	CreateSessionWithCalendar = "createSessionWithCalendar"
	GenerateSessionAnalysis   = "generateSessionAnalysis"
	SyncCalendarStatus        = "syncCalendarStatus"
	BackfillMeetArtifacts     = "backfillMeetArtifacts"
)

var _ core.FunctionInvoker = (*HTTPInvoker)(nil)

// RemoteError is a non-2xx answer from a remote function.
type RemoteError struct {
	Function string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("function %s failed with %d: %s", e.Function, e.Status, e.Message)
}

type tokenKey struct{}

// WithUserToken makes invocations on ctx run as the calling user.
func WithUserToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// HTTPInvoker posts JSON payloads to <baseURL>/<name>. Calls are not retried.
type HTTPInvoker struct {
	baseURL      string
	serviceToken string
	client       *http.Client
}

func NewHTTPInvoker(baseURL, serviceToken string, client *http.Client) *HTTPInvoker {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPInvoker{
		baseURL:      strings.TrimRight(baseURL, "/"),
		serviceToken: serviceToken,
		client:       client,
	}
}

// Invoke calls name with payload and returns the "data" member of the
// response, or the whole body when there is none.
func (i *HTTPInvoker) Invoke(ctx context.Context, name string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	token := i.serviceToken
	if userToken, ok := ctx.Value(tokenKey{}).(string); ok && userToken != "" {
		token = userToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", name, err)
	}
	logging.Logger.Debug("remote function invoked", "function", name, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Function: name, Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("null"), nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if data, ok := envelope["data"]; ok {
			return data, nil
		}
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("function %s returned invalid JSON", name)
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch e := body.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
		if body.Message != "" {
			return body.Message
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}
