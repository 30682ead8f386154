package realtime_conversation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/flowgrid/flowgrid/internal/ctxlog"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package. The
// conversation server URL comes from engine config; nodes may override it
// with a serverUrl data field.
type Module struct {
	ServerURL string
	Timeout   time.Duration
}

// opResult passes the exchange outcome through the done channel.
type opResult struct {
	value any
	err   error
}

// OnRunRealtimeConversation is the handler for the 'realtime-conversation'
// node. It connects to the conversation socket server, sends one utterance,
// and waits for the reply. An unreachable server is an expected runtime
// failure and settles the node as failed, never crashes the run.
func (m *Module) OnRunRealtimeConversation(ctx context.Context, ec *registry.Context) registry.Result {
	logger := ctxlog.FromContext(ctx).With("node", ec.Node.ID, "type", ec.Node.Type)

	serverURL := ec.Node.DataString("serverUrl")
	if serverURL == "" {
		serverURL = m.ServerURL
	}
	if serverURL == "" {
		return registry.Result{Err: errors.New("no conversation server configured")}
	}
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return registry.Result{Err: fmt.Errorf("invalid conversation server URL: %w", err)}
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}

	baseURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)
	defer io.Disconnect()

	done := make(chan opResult, 1)

	io.On(types.EventName("connect"), func(...any) {
		logger.Debug("Connected to conversation server.", "sid", io.Id())
		io.Emit("utterance", map[string]any{
			"audio": ec.Input(flow.DefaultPort),
			"voice": ec.Node.DataString("voice"),
		})
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		e, _ := errs[0].(error)
		if e == nil {
			e = errors.New("connection failed")
		}
		done <- opResult{err: fmt.Errorf("conversation server unreachable: %w", e)}
	})
	io.On(types.EventName("reply"), func(data ...any) {
		var reply any
		if len(data) > 0 {
			reply = data[0]
		}
		done <- opResult{value: reply}
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		return registry.Result{Err: fmt.Errorf("conversation timed out: %w", opCtx.Err())}
	case res := <-done:
		if res.err != nil {
			return registry.Result{Err: res.err}
		}
		return registry.Result{Output: res.value}
	}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeRealtimeConversation,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortAudio, Optional: true},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortResponse},
		},
		Run: m.OnRunRealtimeConversation,
	})
}
