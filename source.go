package revbrief

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"
)

// ResourcesPath is the brief generation endpoint, relative to the API base URL.
const ResourcesPath = "/api/resources"

// fallbackErrorMessage is reported when a failed response carries no message.
const fallbackErrorMessage = "Request failed."

// maxResponseBytes bounds how much of a generation response is read.
const maxResponseBytes = 8 << 20

// ErrNoDocuments is returned when brief generation is asked for no documents.
var ErrNoDocuments = errors.New("at least one document ID is required")

// BriefSource produces generated study text for a set of documents.
type BriefSource interface {
	GenerateBrief(ctx context.Context, documentIDs []string) (string, error)
}

// Compile-time interface checks
var (
	_ BriefSource = (*HTTPSource)(nil)
	_ BriefSource = (*FileSource)(nil)
)

// APIError is a non-2xx response from the generation API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brief API: %d: %s", e.Status, e.Message)
}

// generateRequest is the body posted to ResourcesPath.
type generateRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

// generatedResources is the generation response. Only the cheat sheet is exported.
type generatedResources struct {
	Summary    string          `json:"summary"`
	CheatSheet string          `json:"cheatSheet"`
	Quiz       json.RawMessage `json:"quiz"`
}

// HTTPSource requests briefs from the study-resources API.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTPSource for baseURL. Trailing slashes are
// dropped. A nil client gets one with timeout.
func NewHTTPSource(baseURL string, client *http.Client, timeout time.Duration) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// GenerateBrief posts the document IDs and returns the generated cheat sheet.
func (s *HTTPSource) GenerateBrief(ctx context.Context, documentIDs []string) (string, error) {
	if len(documentIDs) == 0 {
		return "", ErrNoDocuments
	}

	body, err := json.Marshal(generateRequest{DocumentIDs: documentIDs})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+ResourcesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting brief: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Header.Get("Content-Type"), raw)}
	}

	var out generatedResources
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if strings.TrimSpace(out.CheatSheet) == "" {
		return "", fmt.Errorf("%w: API returned no cheat sheet", ErrEmptyText)
	}
	return out.CheatSheet, nil
}

// errorMessage extracts a message from a failed response: a JSON string,
// then the "error" field, then "message", then a plain text body.
func errorMessage(contentType string, raw []byte) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" {
		var body any
		if err := json.Unmarshal(raw, &body); err != nil {
			return fallbackErrorMessage
		}
		switch v := body.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case map[string]any:
			for _, key := range []string{"error", "message"} {
				if msg, ok := v[key].(string); ok && strings.TrimSpace(msg) != "" {
					return msg
				}
			}
		}
		return fallbackErrorMessage
	}

	if text := string(raw); strings.TrimSpace(text) != "" {
		return text
	}
	return fallbackErrorMessage
}

// FileSource reads previously generated brief text from disk.
// The document IDs are ignored.
type FileSource struct {
	Path string
}

// GenerateBrief returns the file's content.
func (s *FileSource) GenerateBrief(ctx context.Context, _ []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := os.ReadFile(s.Path) // #nosec G304 -- user-provided path
	if err != nil {
		return "", fmt.Errorf("reading brief: %w", err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyText, s.Path)
	}
	return string(content), nil
}
