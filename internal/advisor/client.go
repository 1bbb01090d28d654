package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/touchtrial/touchtrial-backend/pkg/config"
	"github.com/touchtrial/touchtrial-backend/pkg/enums"
	pkgerrors "github.com/touchtrial/touchtrial-backend/pkg/errors"
)

// Message is one chat turn exchanged with the advisor model.
type Message struct {
	Role    enums.MessageRole `json:"role"`
	Content string            `json:"content"`
}

const recommendToolName = "recommend_phones"

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []chatTool    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

var recommendToolParameters = json.RawMessage(`{
	"type": "object",
	"properties": {
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"phone_id": {"type": "string"},
					"reason": {"type": "string"}
				},
				"required": ["phone_id", "reason"]
			}
		}
	},
	"required": ["recommendations"]
}`)

// Client talks to the upstream chat-completions gateway.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient builds a gateway client from the advisor configuration.
func NewClient(cfg config.AdvisorConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("advisor base url is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("advisor api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("advisor model is required")
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// StreamChat posts the conversation and returns the raw event stream body.
// The caller owns closing the returned reader.
func (c *Client) StreamChat(ctx context.Context, messages []Message) (io.ReadCloser, error) {
	payload := chatRequest{
		Model:  c.model,
		Stream: true,
		Tools: []chatTool{{
			Type: "function",
			Function: chatFunction{
				Name:        recommendToolName,
				Description: "Recommend phones from the trial catalogue for the user's stated needs.",
				Parameters:  recommendToolParameters,
			},
		}},
	}
	for _, msg := range messages {
		payload.Messages = append(payload.Messages, chatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal chat request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create chat request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send chat request")
	}

	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, gatewayError(resp)
	}

	return resp.Body, nil
}

// gatewayError maps upstream rejections onto the platform error taxonomy,
// keeping the server-provided message when one is present.
func gatewayError(resp *http.Response) error {
	message := "advisor gateway request failed"
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if err == nil {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeRateLimit, message)
	case http.StatusPaymentRequired:
		return pkgerrors.New(pkgerrors.CodePayment, message)
	default:
		return pkgerrors.New(pkgerrors.CodeDependency, message).
			WithDetails(map[string]int{"upstream_status": resp.StatusCode})
	}
}
