package scoringhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// scoreFields are the numeric response fields accepted from a scorer that
// answers with a single object.
var scoreFields = []string{"score", "prediction", "nsfw", "probability", "value"}

// nsfwLabels is the vocabulary matched when the scorer answers with a list of
// {label, score} pairs.
var nsfwLabels = map[string]struct{}{
	"nsfw":     {},
	"porn":     {},
	"adult":    {},
	"sexual":   {},
	"hentai":   {},
	"explicit": {},
}

type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("%s: status=%d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: status=%d", e.Op, e.StatusCode)
	default:
		return e.Op
	}
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Client posts image bytes to the remote NSFW scorer and parses its response.
// A scoring request is not idempotent enough to retry; any failure is reported
// to the caller as a failed signal, never retried here.
type Client struct {
	scoreURL   string
	secret     string
	fieldName  string
	httpClient *http.Client
}

func NewClient(scoreURL, secret, fieldName string, timeout time.Duration) (*Client, error) {
	trimmedURL := strings.TrimSpace(scoreURL)
	if trimmedURL == "" {
		return nil, &RequestError{Op: "create scoring client", Err: errors.New("model api url is empty")}
	}

	parsed, err := url.Parse(trimmedURL)
	if err != nil {
		return nil, &RequestError{Op: "parse model api url", Err: err}
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, &RequestError{Op: "validate model api url", Err: fmt.Errorf("invalid model api url: %s", trimmedURL)}
	}

	if strings.TrimSpace(fieldName) == "" {
		fieldName = "image"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		scoreURL:  trimmedURL,
		secret:    strings.TrimSpace(secret),
		fieldName: fieldName,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *Client) Score(ctx context.Context, image []byte, filename string) (float64, error) {
	if c == nil || c.httpClient == nil {
		return 0, &RequestError{Op: "score image", Err: errors.New("scoring client is not initialized")}
	}
	if filename == "" {
		filename = "image.jpg"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(c.fieldName, filename)
	if err != nil {
		return 0, &RequestError{Op: "build multipart body", Err: err}
	}
	if _, err := part.Write(image); err != nil {
		return 0, &RequestError{Op: "write multipart body", Err: err}
	}
	if err := writer.Close(); err != nil {
		return 0, &RequestError{Op: "close multipart body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.scoreURL, &body)
	if err != nil {
		return 0, &RequestError{Op: "create score request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &RequestError{Op: "execute score request", Err: err}
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return 0, &RequestError{Op: "read score response", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(responseBytes))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return 0, &RequestError{Op: "unexpected score status", StatusCode: resp.StatusCode, Err: errors.New(message)}
	}

	score, err := ParseScore(responseBytes)
	if err != nil {
		return 0, &RequestError{Op: "parse score response", StatusCode: resp.StatusCode, Err: err}
	}
	return score, nil
}

// ParseScore accepts the two response shapes deployed scorers use: a single
// object carrying a numeric field named by one of the known synonyms, or an
// array of {label, score} pairs where the max score among NSFW-vocabulary
// labels wins. Anything else is an error.
func ParseScore(payload []byte) (float64, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return 0, errors.New("empty score response")
	}

	if trimmed[0] == '{' {
		var object map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &object); err != nil {
			return 0, fmt.Errorf("decode score object: %w", err)
		}
		for _, field := range scoreFields {
			raw, ok := object[field]
			if !ok {
				continue
			}
			var value float64
			if err := json.Unmarshal(raw, &value); err != nil {
				return 0, fmt.Errorf("field %q is not numeric", field)
			}
			return clampScore(value), nil
		}
		// Some scorers nest the label list under "predictions".
		if raw, ok := object["predictions"]; ok {
			return parseLabelScores(raw)
		}
		return 0, errors.New("score object has no recognized field")
	}

	if trimmed[0] == '[' {
		return parseLabelScores(trimmed)
	}

	return 0, errors.New("unrecognized score response shape")
}

func parseLabelScores(payload []byte) (float64, error) {
	var pairs []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(payload, &pairs); err != nil {
		return 0, fmt.Errorf("decode label scores: %w", err)
	}
	if len(pairs) == 0 {
		return 0, errors.New("empty label score list")
	}

	labeled := false
	best := 0.0
	for _, pair := range pairs {
		label := strings.ToLower(strings.TrimSpace(pair.Label))
		if label == "" {
			continue
		}
		labeled = true
		if _, ok := nsfwLabels[label]; !ok {
			continue
		}
		if pair.Score > best {
			best = pair.Score
		}
	}
	if !labeled {
		return 0, errors.New("score list carries no labels")
	}
	// A list of only safe labels is a valid "not NSFW" answer.
	return clampScore(best), nil
}

func clampScore(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
