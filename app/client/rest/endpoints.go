package rest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// The backend exposes a few hundred JSON endpoints grouped by theme prefix.
// Instead of one wrapper method per endpoint, the groups the voice layer
// touches are described declaratively and dispatched through lookup tables.

type endpoint struct {
	method   string
	path     string
	cacheTTL time.Duration
}

// WorkspaceKind selects a Google workspace integration.
type WorkspaceKind string

const (
	WorkspaceEmail    WorkspaceKind = "email"
	WorkspaceCalendar WorkspaceKind = "calendar"
	WorkspaceTasks    WorkspaceKind = "tasks"
	WorkspaceContacts WorkspaceKind = "contacts"
	WorkspaceDrive    WorkspaceKind = "drive"
)

var workspaceEndpoints = map[WorkspaceKind]endpoint{
	WorkspaceEmail:    {http.MethodGet, "/google/gmail/recent?limit=8", 0},
	WorkspaceCalendar: {http.MethodGet, "/google/calendar/upcoming?limit=8", 0},
	WorkspaceTasks:    {http.MethodGet, "/google/tasks/lists", 0},
	WorkspaceContacts: {http.MethodGet, "/google/contacts?limit=15", 0},
	WorkspaceDrive:    {http.MethodGet, "/google/drive/files?limit=8", 0},
}

var planetEndpoints = map[string]endpoint{
	"mercury": {http.MethodGet, "/mercury/overview", 5 * time.Minute},
	"venus":   {http.MethodGet, "/venus/overview", 5 * time.Minute},
	"earth":   {http.MethodGet, "/earth/overview", 2 * time.Minute},
	"mars":    {http.MethodGet, "/mars/overview", 5 * time.Minute},
	"jupiter": {http.MethodGet, "/jupiter/overview", 5 * time.Minute},
	"saturn":  {http.MethodGet, "/saturn/overview", 10 * time.Minute},
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, WithoutAuth())
	if err != nil {
		return nil, err
	}

	var parsed AuthResponse
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}

	if err = c.session.SetCredentials(parsed.Token, parsed.User.ID); err != nil {
		return nil, err
	}

	return &parsed, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	}, WithoutAuth())
	if err != nil {
		return nil, err
	}

	var parsed AuthResponse
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}

	if err = c.session.SetCredentials(parsed.Token, parsed.User.ID); err != nil {
		return nil, err
	}

	return &parsed, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/auth/me", nil, WithCache(10*time.Minute))
	if err != nil {
		return nil, err
	}

	var parsed User
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}

	return &parsed, nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodPost, "/auth/logout", nil)
	if clearErr := c.session.Clear(); clearErr != nil {
		return clearErr
	}

	return err
}

type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []ChatMessage `json:"conversationHistory"`
	Personality         string        `json:"personality"`
	Voice               string        `json:"voice"`
	RequestedTier       string        `json:"requestedTier"`
	ResponseFormat      string        `json:"responseFormat"`
}

type ChatResponse struct {
	Message  string `json:"message"`
	Response string `json:"response"`
	Tier     string `json:"tier"`
	FollowUp string `json:"followUp"`
}

// Text returns whichever field the backend populated for the reply body.
func (r *ChatResponse) Text() string {
	if r.Message != "" {
		return r.Message
	}

	return r.Response
}

func (c *Client) CompanionChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.RequestedTier == "" {
		req.RequestedTier = "auto"
	}
	req.ResponseFormat = "json"

	raw, err := c.Request(ctx, http.MethodPost, "/phoenix/companion/chat", req)
	if err != nil {
		return nil, err
	}

	// Some tiers wrap the reply in a data envelope.
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err = json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}

	var parsed ChatResponse
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	return &parsed, nil
}

type Classification struct {
	Category            string         `json:"category"`
	ActionType          string         `json:"actionType"`
	Method              string         `json:"method"`
	Parameters          map[string]any `json:"parameters"`
	ConfirmationMessage string         `json:"confirmationMessage"`
}

func (c *Client) ClassifyCommand(ctx context.Context, command string) (*Classification, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/phoenix/butler/classify", map[string]any{
		"command": command,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Classification Classification `json:"classification"`
	}
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	return &parsed.Classification, nil
}

type ExecuteResult struct {
	Success             bool   `json:"success"`
	ConfirmationMessage string `json:"confirmationMessage"`
	UserMessage         string `json:"userMessage"`
}

func (c *Client) ExecuteButlerAction(ctx context.Context, cls Classification) (*ExecuteResult, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/butler/router/execute", map[string]any{
		"actionType": cls.ActionType,
		"method":     cls.Method,
		"parameters": cls.Parameters,
		"confirmed":  true,
	})
	if err != nil {
		return nil, err
	}

	var parsed ExecuteResult
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse execution result: %w", err)
	}

	return &parsed, nil
}

type SpeechRequest struct {
	Text     string  `json:"text"`
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed"`
	Language string  `json:"language"`
	Model    string  `json:"model"`
	Format   string  `json:"format"`
}

// GenerateSpeech synthesizes text and returns decoded MP3 bytes.
func (c *Client) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if req.Model == "" {
		req.Model = "tts-1"
	}
	if req.Speed == 0 {
		req.Speed = 1.0
	}
	req.Format = "base64"

	raw, err := c.Request(ctx, http.MethodPost, "/tts/generate", req, WithoutAuth())
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Audio string `json:"audio"`
	}
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse synthesis response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(parsed.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}

	return audio, nil
}

// UpdatePreferences persists voice settings server-side and mirrors them in
// the local session so they survive restarts even when the backend is down.
func (c *Client) UpdatePreferences(ctx context.Context, voice, language, personality string) error {
	_, err := c.Request(ctx, http.MethodPut, "/users/preferences", map[string]string{
		"voice":       voice,
		"language":    language,
		"personality": personality,
	})
	if err != nil {
		return err
	}

	return c.session.SetPreferences(voice, language, personality)
}

type Subscription struct {
	Tier   string `json:"tier"`
	Active bool   `json:"active"`
}

func (c *Client) SubscriptionStatus(ctx context.Context) (*Subscription, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/subscriptions/status", nil, WithCache(10*time.Minute))
	if err != nil {
		return nil, err
	}

	var parsed Subscription
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse subscription: %w", err)
	}

	return &parsed, nil
}

// TranscribeAudio is the server-side recognition fallback for recorded audio,
// used when no streaming recognizer is available.
func (c *Client) TranscribeAudio(ctx context.Context, audio []byte) (string, error) {
	raw, err := c.Request(ctx, http.MethodPost, "/whisper/transcribe", map[string]string{
		"audio":  base64.StdEncoding.EncodeToString(audio),
		"format": "base64",
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse transcription: %w", err)
	}

	return parsed.Text, nil
}

type HealthSummary struct {
	RecoveryScore *int   `json:"recoveryScore"`
	Readiness     string `json:"readiness"`
}

func (c *Client) HealthSummary(ctx context.Context) (*HealthSummary, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/wearables/health/summary", nil)
	if err != nil {
		return nil, err
	}

	var parsed HealthSummary
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse health summary: %w", err)
	}

	return &parsed, nil
}

type FinanceSummary struct {
	BudgetRemaining *float64 `json:"budgetRemaining"`
}

func (c *Client) FinanceSummary(ctx context.Context) (*FinanceSummary, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/finance/summary", nil)
	if err != nil {
		return nil, err
	}

	var parsed FinanceSummary
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse finance summary: %w", err)
	}

	return &parsed, nil
}

type Goal struct {
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
}

func (c *Client) ActiveGoals(ctx context.Context) ([]Goal, error) {
	raw, err := c.Request(ctx, http.MethodGet, "/goals/active", nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Goals []Goal `json:"goals"`
	}
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse goals: %w", err)
	}

	return parsed.Goals, nil
}

// WorkspaceItems holds whichever list field the workspace endpoint returned
// plus an optional explicit count.
type WorkspaceItems struct {
	Count     int               `json:"count"`
	Emails    []json.RawMessage `json:"emails"`
	Events    []json.RawMessage `json:"events"`
	TaskLists []json.RawMessage `json:"taskLists"`
	Contacts  []json.RawMessage `json:"contacts"`
	Files     []json.RawMessage `json:"files"`
	Error     string            `json:"error"`
}

// Size returns the explicit count when present, the list length otherwise.
func (w *WorkspaceItems) Size() int {
	if w.Count > 0 {
		return w.Count
	}

	for _, list := range [][]json.RawMessage{w.Emails, w.Events, w.TaskLists, w.Contacts, w.Files} {
		if len(list) > 0 {
			return len(list)
		}
	}

	return 0
}

func (c *Client) FetchWorkspace(ctx context.Context, kind WorkspaceKind) (*WorkspaceItems, error) {
	ep, ok := workspaceEndpoints[kind]
	if !ok {
		return nil, fmt.Errorf("unknown workspace kind %q", kind)
	}

	raw, err := c.Request(ctx, ep.method, ep.path, nil)
	if err != nil {
		return nil, err
	}

	var parsed WorkspaceItems
	if err = json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse workspace response: %w", err)
	}

	return &parsed, nil
}

// PlanetOverview fetches the cached dashboard payload for a planet view.
func (c *Client) PlanetOverview(ctx context.Context, planet string) (json.RawMessage, error) {
	ep, ok := planetEndpoints[planet]
	if !ok {
		return nil, fmt.Errorf("unknown planet %q", planet)
	}

	return c.Request(ctx, ep.method, ep.path, nil, WithCache(ep.cacheTTL))
}
