// internal/message/message.go
//
// Outbound lifecycle webhooks.
//
// Context
//   Integrators (DNS automation, CDN purges, billing) want to hear about
//   network changes without polling.  Webhooks subscribes to the hooks Bus
//   and POSTs one JSON document per event to every configured URL.
//
// Workflow
//   1. Subscribe registers handlers for add_network, update_network,
//      delete_network, and move_site.
//   2. Each handler builds an Event and hands it to a background goroutine,
//      so the CRUD caller never waits on the network.
//   3. go-retryablehttp retries 5xx and transport errors with backoff.
//      Final failures are logged, never returned.
//   4. Close waits for in-flight deliveries during shutdown.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package message

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/stuttter/wp-multi-network-sub000/internal/directory"
	"github.com/stuttter/wp-multi-network-sub000/internal/hooks"
)

// Event is the JSON body POSTed to every endpoint.
type Event struct {
	Event        string    `json:"event"`
	NetworkID    int64     `json:"network_id,omitempty"`
	SiteID       int64     `json:"site_id,omitempty"`
	OldNetworkID *int64    `json:"old_network_id,omitempty"`
	NewNetworkID *int64    `json:"new_network_id,omitempty"`
	OldDomain    string    `json:"old_domain,omitempty"`
	OldPath      string    `json:"old_path,omitempty"`
	Data         any       `json:"data,omitempty"`
	Timestamp    time.Time `json:"ts"`
}

// Webhooks delivers Events.  Create with NewWebhooks.
type Webhooks struct {
	urls   []string
	client *retryablehttp.Client
	log    *zap.SugaredLogger
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewWebhooks returns a dispatcher for urls.  A nil log uses zap.S().
func NewWebhooks(urls []string, log *zap.SugaredLogger) *Webhooks {
	if log == nil {
		log = zap.S()
	}
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 10 * time.Second
	c.Logger = leveled{log}

	return &Webhooks{
		urls:   append([]string(nil), urls...),
		client: c,
		log:    log,
		now:    time.Now,
	}
}

// Subscribe registers the webhook handlers on bus.  With no URLs it does
// nothing.
func (w *Webhooks) Subscribe(bus *hooks.Bus) {
	if len(w.urls) == 0 || bus == nil {
		return
	}
	bus.On(hooks.AddNetwork, func(ctx context.Context, args ...any) {
		ev := Event{Event: hooks.AddNetwork}
		ev.NetworkID, _ = arg[int64](args, 0)
		ev.Data, _ = arg[any](args, 1)
		w.enqueue(ctx, ev)
	})
	bus.On(hooks.UpdateNetwork, func(ctx context.Context, args ...any) {
		ev := Event{Event: hooks.UpdateNetwork}
		ev.NetworkID, _ = arg[int64](args, 0)
		ev.OldDomain, _ = arg[string](args, 1)
		ev.OldPath, _ = arg[string](args, 2)
		w.enqueue(ctx, ev)
	})
	bus.On(hooks.DeleteNetwork, func(ctx context.Context, args ...any) {
		ev := Event{Event: hooks.DeleteNetwork}
		if n, ok := arg[directory.Network](args, 0); ok {
			ev.NetworkID = n.ID
			ev.OldDomain, ev.OldPath = n.Domain, n.Path
			ev.Data = n
		}
		w.enqueue(ctx, ev)
	})
	bus.On(hooks.MoveSite, func(ctx context.Context, args ...any) {
		ev := Event{Event: hooks.MoveSite}
		ev.SiteID, _ = arg[int64](args, 0)
		if v, ok := arg[int64](args, 1); ok {
			ev.OldNetworkID = &v
		}
		if v, ok := arg[int64](args, 2); ok {
			ev.NewNetworkID = &v
		}
		w.enqueue(ctx, ev)
	})
}

// Close waits for in-flight deliveries.
func (w *Webhooks) Close() { w.wg.Wait() }

func (w *Webhooks) enqueue(ctx context.Context, ev Event) {
	ev.Timestamp = w.now().UTC()
	body, err := json.Marshal(ev)
	if err != nil {
		w.log.Errorw("webhook encode", "event", ev.Event, "err", err)
		return
	}

	// Deliveries outlive the request that fired them.
	ctx = context.WithoutCancel(ctx)
	for _, u := range w.urls {
		w.wg.Add(1)
		go func(url string) {
			defer w.wg.Done()
			if err := w.post(ctx, url, body); err != nil {
				w.log.Errorw("webhook delivery failed", "event", ev.Event, "url", url, "err", err)
			}
		}(u)
	}
}

func (w *Webhooks) post(ctx context.Context, url string, body []byte) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "wpmn-webhooks/1")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// arg returns args[i] as T.
func arg[T any](args []any, i int) (T, bool) {
	var zero T
	if i >= len(args) {
		return zero, false
	}
	v, ok := args[i].(T)
	return v, ok
}

// leveled adapts a sugared logger to retryablehttp.LeveledLogger.
type leveled struct{ l *zap.SugaredLogger }

func (z leveled) Error(msg string, kv ...any) { z.l.Errorw(msg, kv...) }
func (z leveled) Warn(msg string, kv ...any)  { z.l.Warnw(msg, kv...) }
func (z leveled) Info(msg string, kv ...any)  { z.l.Debugw(msg, kv...) }
func (z leveled) Debug(msg string, kv ...any) { z.l.Debugw(msg, kv...) }
