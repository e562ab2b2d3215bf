package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labwise/medextract/internal/common"
	"github.com/labwise/medextract/internal/extract"
	"github.com/labwise/medextract/internal/inference"
)

// Extract implements extract.InferenceAdapter over chat/completions. Image
// requests attach the rendered page as a base64 data URL; text requests send
// the page text inline. Responses are validated against the request schema
// before anything reaches the merger.
func (c *Client) Extract(ctx context.Context, req extract.InferenceRequest) (extract.InferenceResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	mode := "text"
	if req.Image != nil {
		mode = "image"
	}
	c.logger.Info("inference.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"mode", mode,
		"fields", len(req.Fields),
		"text_len", len(req.Text),
	)

	schema := inference.BuildExtractionSchema(req.Fields)
	body, err := c.buildBody(req, schema)
	if err != nil {
		return extract.InferenceResult{}, err
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("inference.extract.retry", "req_id", rid, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return extract.InferenceResult{}, common.WrapError(ctx.Err(), "inference retry")
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
		}

		res, err := c.once(ctx, rid, endpoint, body, schema)
		if err == nil {
			c.logger.Info("inference.extract.ok",
				"req_id", rid,
				"fields_returned", len(res.Fields),
				"input_tokens", res.InputTokens,
				"output_tokens", res.OutputTokens,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res, nil
		}
		lastErr = err
	}

	c.logger.Error("inference.extract.failed",
		"req_id", rid, "error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return extract.InferenceResult{}, common.NewAppError("INFERENCE_FAILED", lastErr.Error(), common.ErrExternalCallFailed)
}

func (c *Client) once(ctx context.Context, rid, endpoint string, body map[string]any, schema map[string]any) (extract.InferenceResult, error) {
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		return extract.InferenceResult{}, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return extract.InferenceResult{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return extract.InferenceResult{}, fmt.Errorf("no choices in openai response")
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	rawContent := []byte(content)

	if err := inference.ValidateJSONAgainstSchema(schema, rawContent); err != nil {
		c.logger.Error("inference.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content", truncate(content, 2000))
		return extract.InferenceResult{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(rawContent, &fields); err != nil {
		return extract.InferenceResult{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return extract.InferenceResult{
		Fields:       fields,
		InputTokens:  cc.Usage.PromptTokens,
		OutputTokens: cc.Usage.CompletionTokens,
	}, nil
}

func (c *Client) buildBody(req extract.InferenceRequest, schema map[string]any) (map[string]any, error) {
	sys := buildSystemPrompt()
	schemaMsg := "JSON Schema:\n" + mustJSON(schema)

	var userContent any
	if req.Image != nil {
		b, err := os.ReadFile(req.Image.Path)
		if err != nil {
			return nil, common.WrapError(err, "read page image")
		}
		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(b)
		userContent = []map[string]any{
			{"type": "text", "text": buildUserPrompt(req.Fields, "")},
			{"type": "image_url", "image_url": map[string]any{"url": dataURL, "detail": "high"}},
		}
	} else {
		userContent = buildUserPrompt(req.Fields, req.Text)
	}

	return map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": sys},
			{"role": "user", "content": userContent},
			{"role": "system", "content": schemaMsg},
		},
	}, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("openai response body close error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(resp.Body)
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, truncate(buf.String(), 2000))
	}

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	return buf.Bytes(), nil
}

func buildSystemPrompt() string {
	parts := []string{
		"You are a medical lab report extractor. Return ONLY JSON that matches the JSON Schema provided.",
		"Extract only values that are explicitly visible in the report; never estimate or infer missing values.",
		"Numeric results must be bare numbers without units.",
		"If a result carries a high/low marker, put HIGH or LOW in the paired _Flag property; otherwise set it to null.",
		"Blood group is one of A, B, AB, O. Rh type is Positive or Negative.",
		"For X-RAY, PFT and AUDIOMETRY, summarize the finding or impression in a short phrase.",
		"Set any field not present in the report to null.",
	}
	return strings.Join(parts, " ")
}

func buildUserPrompt(fields []string, text string) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from this lab report page: ")
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(".")
	if text != "" {
		b.WriteString("\n\nPage text:\n")
		if len(text) > 12000 {
			b.WriteString(text[:12000])
		} else {
			b.WriteString(text)
		}
	}
	b.WriteString("\n\nReturn ONLY JSON that matches the provided schema.")
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
