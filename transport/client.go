package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agentui/chat"
	"agentui/model"
)

const (
	DefaultAgentsPath  = "/agents/all_agents"
	DefaultHistoryPath = "/chats/get_chat"
	DefaultSendPath    = "/chats/send_message"
	DefaultTimeout     = 60 * time.Second

	// agentPageSize matches the backend's default page.
	agentPageSize = 100
	maxAgentPages = 50
)

// Options configures a Client. Empty paths and a zero timeout take the
// defaults above.
type Options struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	AgentsPath  string
	HistoryPath string
	SendPath    string
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// Client talks to the chat backend over HTTP/JSON.
type Client struct {
	baseURL     *url.URL
	token       string
	agentsPath  string
	historyPath string
	sendPath    string
	http        *http.Client
	log         zerolog.Logger
}

var _ model.Transport = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:     parsed,
		token:       opts.Token,
		agentsPath:  orDefault(opts.AgentsPath, DefaultAgentsPath),
		historyPath: orDefault(opts.HistoryPath, DefaultHistoryPath),
		sendPath:    orDefault(opts.SendPath, DefaultSendPath),
		http:        httpClient,
		log:         opts.Logger,
	}, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// ListAgents pages through the agent directory.
func (c *Client) ListAgents(ctx context.Context) ([]model.Agent, error) {
	var all []model.Agent
	seen := make(map[string]bool)
	for page := 0; page < maxAgentPages; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(agentPageSize))
		query.Set("offset", strconv.Itoa(page*agentPageSize))

		var batch []model.Agent
		if err := c.do(ctx, "list agents", http.MethodGet, c.agentsPath, query, nil, &batch); err != nil {
			return nil, err
		}
		// A server that ignores offset keeps returning the first page
		if len(batch) > 0 && seen[batch[0].ID] {
			c.log.Warn().Int("page", page).Msg("agent page repeated, offset ignored by server")
			break
		}
		for _, agent := range batch {
			seen[agent.ID] = true
		}
		all = append(all, batch...)
		if len(batch) < agentPageSize {
			break
		}
	}
	c.log.Debug().Int("count", len(all)).Msg("agent directory fetched")
	return all, nil
}

// GetHistory returns the stored conversation in server order.
func (c *Client) GetHistory(ctx context.Context, userID, agentID string) ([]chat.RawMessage, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("agent_id", agentID)

	var messages []chat.RawMessage
	if err := c.do(ctx, "get history", http.MethodGet, c.historyPath, query, nil, &messages); err != nil {
		return nil, err
	}
	c.log.Debug().Str("agent_id", agentID).Int("count", len(messages)).Msg("history fetched")
	return messages, nil
}

// SendMessage posts msg and returns the agent's reply.
func (c *Client) SendMessage(ctx context.Context, msg chat.RawMessage) (*model.Reply, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	var reply model.Reply
	if err := c.do(ctx, "send message", http.MethodPost, c.sendPath, nil, body, &reply); err != nil {
		return nil, err
	}
	c.log.Debug().
		Str("agent_id", msg.AgentID).
		Bool("ai_response", reply.AIResponse != "").
		Bool("text", reply.Text != "").
		Msg("send acknowledged")
	return &reply, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		c.log.Debug().Err(err).Str("op", op).Msg("request failed")
		return &UnavailableError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UnavailableError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(op, resp.StatusCode, data)
	}

	// 204 and blank 2xx bodies leave out at its zero value
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	return nil
}
