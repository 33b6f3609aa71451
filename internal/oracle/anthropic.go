// kai-classifier - scheduled catalog label reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kai-classifier

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/kai-classifier/internal/logging"
)

const anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// AnthropicClient speaks the Claude Messages API.
type AnthropicClient struct {
	apiKey  string
	model   string
	client  *http.Client
	pricing Pricing
}

// NewAnthropicClient returns a Client backed by the Claude Messages API.
func NewAnthropicClient(apiKey, model string, pricing Pricing) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		pricing: pricing,
	}
}

type messagesRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	System      string           `json:"system"`
	Messages    []messageContent `json:"messages"`
}

type messageContent struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify sends one batch classification request and parses the reply,
// salvaging malformed JSON where possible.
func (c *AnthropicClient) Classify(ctx context.Context, req Request) (Response, error) {
	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return Response{}, err
	}

	body, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   4096,
		Temperature: 0,
		System:      buildSystemPrompt(req.Category),
		Messages:    []messageContent{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return Response{}, fmt.Errorf("oracle: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("oracle: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, &TransientError{Cause: err}
	}
	defer resp.Body.Close()

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Response{}, &TransientError{Cause: fmt.Errorf("decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if decoded.Error != nil {
			msg = decoded.Error.Message
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return Response{}, &TransientError{Cause: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
		}
		return Response{}, &FatalError{Cause: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	var text string
	for _, block := range decoded.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	verdicts, err := parseDecisions(text)
	if err != nil {
		logging.Ctx(ctx).Debug().Str("category", req.Category).Msg("oracle: parse-salvage engaged")
		return Response{}, &TransientError{Cause: err}
	}

	usage := Usage{
		InputTokens:   decoded.Usage.InputTokens,
		OutputTokens:  decoded.Usage.OutputTokens,
		EstimatedCost: c.pricing.EstimateCost(decoded.Usage.InputTokens, decoded.Usage.OutputTokens),
		RequestCount:  1,
	}

	return Response{Verdicts: verdicts, Usage: usage}, nil
}

// TransientError wraps an oracle failure worth retrying: network errors,
// 5xx, rate limiting, and malformed replies that survived salvage.
type TransientError struct{ Cause error }

func (e *TransientError) Error() string { return "oracle: transient: " + e.Cause.Error() }
func (e *TransientError) Unwrap() error { return e.Cause }

// FatalError wraps an oracle failure that retrying cannot fix: a
// malformed request or an authentication failure.
type FatalError struct{ Cause error }

func (e *FatalError) Error() string { return "oracle: fatal: " + e.Cause.Error() }
func (e *FatalError) Unwrap() error { return e.Cause }
