package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mwhitfield/skytalk/minutes"
	"github.com/mwhitfield/skytalk/speech"
)

const (
	defaultBaseURL        = "https://api.openai.com"
	defaultConnectTimeout = 10 * time.Second

	transcribeModel = "whisper-1"
	summaryModel    = "gpt-4-turbo-preview"
	speechModel     = "tts-1"
	realtimeModel   = "gpt-4o-realtime-preview-2024-12-17"
)

// ErrNoCredential means no upstream API key was configured.
var ErrNoCredential = errors.New("OpenAI API key not configured")

// UpstreamError carries a non-2xx upstream response so handlers can
// relay the status and detail payload.
type UpstreamError struct {
	Status int
	Detail json.RawMessage
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// UpstreamConfig configures the provider client.
type UpstreamConfig struct {
	// BaseURL overrides the provider endpoint, mostly for tests.
	BaseURL string

	// APIKey is injected as the bearer credential on every call.
	APIKey string

	// ProxyURL routes outbound calls through a forward proxy.
	// Usually sourced from HTTPS_PROXY/HTTP_PROXY.
	ProxyURL string

	// ConnectTimeout bounds dialing the provider (or the proxy).
	ConnectTimeout time.Duration
}

// Upstream is the HTTP client for the AI provider. It implements
// minutes.Transcriber and minutes.Summarizer.
type Upstream struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewUpstream(cfg UpstreamConfig) (*Upstream, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	proxy := http.ProxyFromEnvironment
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		proxy = http.ProxyURL(proxyURL)
		slog.Info("Using outbound proxy", "proxy", cfg.ProxyURL)
	}

	transport := &http.Transport{
		Proxy: proxy,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
	}

	return &Upstream{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Transport: transport},
	}, nil
}

func (u *Upstream) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if u.apiKey == "" {
		return nil, ErrNoCredential
	}
	req, err := http.NewRequestWithContext(ctx, method, u.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	return req, nil
}

func (u *Upstream) do(req *http.Request) (*http.Response, error) {
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if !json.Valid(detail) {
			detail = nil
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Detail: detail}
	}
	return resp, nil
}

// Transcribe sends a recording to the speech-to-text endpoint.
func (u *Upstream) Transcribe(ctx context.Context, name string, content io.Reader) (minutes.Transcription, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return minutes.Transcription{}, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return minutes.Transcription{}, fmt.Errorf("failed to copy audio into form: %w", err)
	}
	form.WriteField("model", transcribeModel)
	form.WriteField("response_format", "verbose_json")
	if err := form.Close(); err != nil {
		return minutes.Transcription{}, fmt.Errorf("failed to finish upload form: %w", err)
	}

	req, err := u.newRequest(ctx, http.MethodPost, "/v1/audio/transcriptions", &body)
	if err != nil {
		return minutes.Transcription{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.do(req)
	if err != nil {
		return minutes.Transcription{}, err
	}
	defer resp.Body.Close()

	var out struct {
		Text     string  `json:"text"`
		Duration float64 `json:"duration"`
		Language string  `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return minutes.Transcription{}, fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return minutes.Transcription{
		Transcript: out.Text,
		Duration:   int(out.Duration),
		Language:   out.Language,
	}, nil
}

const summarySystemPrompt = `你是一个专业的会议记录助手。你的任务是基于会议的转录文本，生成结构化的会议纪要。

请按照以下格式生成会议纪要：

1. **会议概述 (overview)**: 用1-2段话总结会议的主要内容和目的
2. **关键要点 (keyPoints)**: 列出会议中讨论的主要话题和重要信息（3-8个要点）
3. **决策事项 (decisions)**: 列出会议中做出的所有决定和结论
4. **行动项 (actionItems)**: 列出需要执行的任务，每个任务包括：
   - task: 任务描述
   - assignee: 负责人（如果提到）
   - deadline: 截止日期（如果提到）
   - priority: 优先级（high/medium/low，根据会议内容判断）
5. **参会人员 (participants)**: 列出所有参会人员（如果转录中提到）
6. **后续步骤 (nextSteps)**: 列出会议后需要采取的行动和计划

注意：
- 如果某些信息在转录中没有提到，可以省略对应字段
- 保持客观和准确，不要添加转录中没有的信息
- 使用清晰简洁的语言
- 对于行动项，如果没有明确的负责人或截止日期，可以留空

请以 JSON 格式返回结果。`

const summaryUserPrompt = `请基于以下会议转录内容生成结构化的会议纪要：

会议标题：%s

转录内容：
%s

请返回 JSON 格式的会议纪要。`

// Summarize implements minutes.Summarizer with the default prompt.
func (u *Upstream) Summarize(ctx context.Context, transcript, title string) (minutes.Summary, error) {
	return u.SummarizeWithPrompt(ctx, transcript, title, "")
}

// SummarizeWithPrompt generates a summary, optionally replacing the
// default user prompt entirely.
func (u *Upstream) SummarizeWithPrompt(ctx context.Context, transcript, title, customPrompt string) (minutes.Summary, error) {
	if title == "" {
		title = "未命名会议"
	}
	userPrompt := customPrompt
	if userPrompt == "" {
		userPrompt = fmt.Sprintf(summaryUserPrompt, title, transcript)
	}

	payload := map[string]any{
		"model": summaryModel,
		"messages": []map[string]string{
			{"role": "system", "content": summarySystemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0.3,
		"max_tokens":      2000,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return minutes.Summary{}, fmt.Errorf("failed to encode summary request: %w", err)
	}

	req, err := u.newRequest(ctx, http.MethodPost, "/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return minutes.Summary{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.do(req)
	if err != nil {
		return minutes.Summary{}, err
	}
	defer resp.Body.Close()

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return minutes.Summary{}, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return minutes.Summary{}, errors.New("no summary generated")
	}

	summary, err := minutes.DecodeSummary([]byte(completion.Choices[0].Message.Content))
	if err != nil {
		return minutes.Summary{}, fmt.Errorf("failed to parse summary JSON: %w", err)
	}
	return summary, nil
}

// Speak synthesizes text and returns the audio stream. The caller
// owns closing the body.
func (u *Upstream) Speak(ctx context.Context, req speech.Request) (io.ReadCloser, error) {
	payload := map[string]any{
		"model":           speechModel,
		"voice":           req.Voice,
		"input":           req.Text,
		"speed":           req.Speed,
		"response_format": req.Format,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode speech request: %w", err)
	}

	httpReq, err := u.newRequest(ctx, http.MethodPost, "/v1/audio/speech", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := u.do(httpReq)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Realtime forwards an SDP offer to the realtime endpoint and returns
// the SDP answer.
func (u *Upstream) Realtime(ctx context.Context, model, voice string, offer []byte) ([]byte, error) {
	if model == "" {
		model = realtimeModel
	}
	path := "/v1/realtime?model=" + url.QueryEscape(model) + "&voice=" + url.QueryEscape(voice)

	req, err := u.newRequest(ctx, http.MethodPost, path, bytes.NewReader(offer))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := u.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read SDP answer: %w", err)
	}
	return answer, nil
}

const realtimeInstructions = "Start conversation with the user by saying 'Hello, how can I help you today?' " +
	"Use the available tools when relevant. After executing a tool, you will need to respond " +
	"(create a subsequent conversation item) to the user sharing the function result or error. " +
	"If you do not respond with additional message with function result, user will not know you " +
	"successfully executed the tool. Speak and respond in the language of the user."

// RealtimeSession issues an ephemeral realtime session configuration.
func (u *Upstream) RealtimeSession(ctx context.Context, voice string) (json.RawMessage, error) {
	if voice == "" {
		voice = speech.VoiceAlloy
	}
	payload := map[string]any{
		"model":        realtimeModel,
		"voice":        voice,
		"modalities":   []string{"audio", "text"},
		"instructions": realtimeInstructions,
		"tool_choice":  "auto",
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := u.newRequest(ctx, http.MethodPost, "/v1/realtime/sessions", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read session response: %w", err)
	}
	return json.RawMessage(data), nil
}

// FriendlyMessage maps transport failures to a user-facing string by
// sniffing the error text, keeping timeout and refusal distinct.
func FriendlyMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "timeout"):
		return "Connection to the voice service timed out. Please try again."
	case strings.Contains(msg, "connection refused"):
		return "Could not reach the voice service. Please check your network."
	default:
		return "Request to the voice service failed. Please try again."
	}
}
