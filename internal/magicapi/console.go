package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// consolePath is the backend's WebSocket console endpoint.
const consolePath = "/console"

// anonymousUser is the login placeholder the console protocol expects when
// no username is configured.
const anonymousUser = "unauthorization"

// Console message types the listener understands. Frames are plain text,
// "TYPE,payload".
const (
	msgLog           = "LOG"
	msgLogs          = "LOGS"
	msgPing          = "PING"
	msgLoginResponse = "LOGIN_RESPONSE"
	msgOnlineUsers   = "ONLINE_USERS"
)

// ConsoleMessage is one frame delivered to the handler. LOG and LOGS frames
// arrive as individual log lines; unknown types pass through untouched.
type ConsoleMessage struct {
	Type    string
	Payload string
}

// ConsoleHandler receives console frames. Returning an error stops the
// listener and surfaces the error from Listen.
type ConsoleHandler func(msg ConsoleMessage) error

// Console streams backend script logs over the WebSocket console channel.
// It shares nothing with the HTTP session beyond the username, so closing
// the stream never disturbs session state.
type Console struct {
	baseURL  string
	username string
	clientID string
	logger   *slog.Logger
}

// NewConsole creates a console listener for the given backend. username may
// be empty for backends without authentication. clientID correlates log
// output with Caller invocations; empty generates one.
func NewConsole(baseURL, username, clientID string, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}

	if clientID == "" {
		clientID = uuid.NewString()
	}

	return &Console{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		clientID: clientID,
		logger:   logger,
	}
}

// ClientID returns the console client id, for correlating Caller requests.
func (c *Console) ClientID() string {
	return c.clientID
}

// Listen connects, announces the client, and dispatches frames to handler
// until the context is canceled, the connection closes, or the handler
// returns an error. PING frames are answered with pong before dispatch.
func (c *Console) Listen(ctx context.Context, handler ConsoleHandler) error {
	wsURL, err := c.consoleURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dialing console: %v", ErrNetwork, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	user := c.username
	if user == "" {
		user = anonymousUser
	}

	login := fmt.Sprintf("login,%s,%s", user, c.clientID)
	if err := conn.Write(ctx, websocket.MessageText, []byte(login)); err != nil {
		return fmt.Errorf("%w: console login: %v", ErrNetwork, err)
	}

	c.logger.Info("console connected",
		slog.String("url", wsURL),
		slog.String("client_id", c.clientID),
	)

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("%w: console read: %v", ErrNetwork, err)
		}

		if err := c.dispatch(ctx, conn, string(frame), handler); err != nil {
			return err
		}
	}
}

// dispatch routes one frame. LOGS frames fan out into one handler call per
// line; a LOGS payload that is not a JSON array falls back to a single LOG.
func (c *Console) dispatch(ctx context.Context, conn *websocket.Conn, frame string, handler ConsoleHandler) error {
	msgType, payload, _ := strings.Cut(frame, ",")
	msgType = strings.ToUpper(msgType)

	switch msgType {
	case msgPing:
		if err := conn.Write(ctx, websocket.MessageText, []byte("pong")); err != nil {
			return fmt.Errorf("%w: console pong: %v", ErrNetwork, err)
		}

		return nil
	case msgLoginResponse, msgOnlineUsers:
		return nil
	case msgLog:
		return handler(ConsoleMessage{Type: msgLog, Payload: payload})
	case msgLogs:
		var lines []string
		if err := json.Unmarshal([]byte(payload), &lines); err != nil {
			return handler(ConsoleMessage{Type: msgLog, Payload: payload})
		}

		for _, line := range lines {
			if err := handler(ConsoleMessage{Type: msgLog, Payload: line}); err != nil {
				return err
			}
		}

		return nil
	default:
		return handler(ConsoleMessage{Type: msgType, Payload: payload})
	}
}

// consoleURL derives the ws:// console URL from the HTTP base URL.
func (c *Console) consoleURL() (string, error) {
	parsed, err := url.Parse(c.baseURL + consolePath)
	if err != nil {
		return "", fmt.Errorf("magicapi: invalid base URL %q: %v", c.baseURL, err)
	}

	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("magicapi: unsupported scheme %q for console", parsed.Scheme)
	}

	return parsed.String(), nil
}
