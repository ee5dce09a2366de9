// Package notify pushes trading events to operator channels (Telegram,
// Discord). Events can be filtered by type so operators only receive the
// alerts they care about.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// Event types emitted by the trading engine.
const (
	EventEntry    = "entry"
	EventExit     = "exit"
	EventFlip     = "flip"
	EventCooldown = "cooldown"
	EventOracle   = "oracle"
	EventArchive  = "archive"
)

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier fans notifications out to all registered senders. Notify applies
// the configured event filter; an empty filter allows every event type.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders, forwarding
// only the listed event types (all types when the list is empty).
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers a notification if its event type passes the filter.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// PositionOpened reports a new entry fill.
func (n *Notifier) PositionOpened(ctx context.Context, symbol string, side domain.PositionSide, qty, price float64, model domain.StrategyModel) error {
	title := fmt.Sprintf("Opened %s %s", side, symbol)
	msg := fmt.Sprintf("qty %.6f @ %.4f (%s)", qty, price, model)
	return n.Notify(ctx, EventEntry, title, msg)
}

// PositionClosed reports an exit fill. flipped marks closes that immediately
// precede an opposite-side entry.
func (n *Notifier) PositionClosed(ctx context.Context, symbol string, side domain.PositionSide, qty, price float64, flipped bool) error {
	event := EventExit
	title := fmt.Sprintf("Closed %s %s", side, symbol)
	if flipped {
		event = EventFlip
		title = fmt.Sprintf("Flipping %s %s", side, symbol)
	}
	msg := fmt.Sprintf("qty %.6f @ %.4f", qty, price)
	return n.Notify(ctx, event, title, msg)
}

// CooldownTriggered reports a symbol entering its cooldown block.
func (n *Notifier) CooldownTriggered(ctx context.Context, symbol, reason string) error {
	return n.Notify(ctx, EventCooldown, fmt.Sprintf("Cooldown %s", symbol), reason)
}

// OracleDegraded reports a strategy oracle failure that forced a local
// fallback decision.
func (n *Notifier) OracleDegraded(ctx context.Context, symbol string, err error) error {
	return n.Notify(ctx, EventOracle, "Oracle fallback", fmt.Sprintf("%s: %v", symbol, err))
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// postJSON marshals payload and POSTs it, treating any non-2xx status as an
// error with a truncated response body.
func postJSON(ctx context.Context, client *http.Client, name, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s: unexpected status %d: %s", name, resp.StatusCode, string(respBody))
	}
	return nil
}
