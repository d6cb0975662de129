// Package push delivers Web Push notifications to browser subscriptions
// registered by the dashboard's service worker.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nguyenvh/custodesk/internal/models"
	"github.com/nguyenvh/custodesk/pkg/logger"
)

// ErrNoSubscription signals that the user has no registered push endpoint.
// Callers treat this as a skip, not a delivery failure.
var ErrNoSubscription = errors.New("push: no subscription registered")

// ErrMissingVAPIDKeys signals absent provider credentials. Retrying cannot
// succeed, so callers must fail fast.
var ErrMissingVAPIDKeys = errors.New("push: vapid keys not configured")

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Config carries the VAPID key pair and sender contact.
type Config struct {
	Enabled         bool
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string // contact mailto per RFC 8292
	TTL             int
}

// Gateway fans notifications out to the stored subscription for a user.
// Expired endpoints are pruned from the registry on 404/410 responses.
type Gateway struct {
	db     *gorm.DB
	cfg    Config
	log    *zap.Logger
	sendFn func(ctx context.Context, message []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
}

// NewGateway constructs a Gateway. Missing keys on an enabled gateway fail fast.
func NewGateway(db *gorm.DB, cfg Config) (*Gateway, error) {
	if db == nil {
		return nil, errors.New("push: db is required")
	}
	if cfg.Enabled {
		if strings.TrimSpace(cfg.VAPIDPublicKey) == "" || strings.TrimSpace(cfg.VAPIDPrivateKey) == "" {
			return nil, ErrMissingVAPIDKeys
		}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60
	}

	return &Gateway{
		db:     db,
		cfg:    cfg,
		log:    logger.WithModule("push"),
		sendFn: webpush.SendNotificationWithContext,
	}, nil
}

// Enabled reports whether push delivery is configured.
func (g *Gateway) Enabled() bool {
	return g.cfg.Enabled
}

// Send delivers the payload to the subscription registered for username.
func (g *Gateway) Send(ctx context.Context, username string, payload Payload) error {
	if !g.cfg.Enabled {
		return ErrMissingVAPIDKeys
	}

	var row models.PushSubscription
	err := g.db.WithContext(ctx).Where("username = ?", username).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoSubscription
	}
	if err != nil {
		return fmt.Errorf("push: load subscription: %w", err)
	}

	var sub models.WebPushSubscription
	if err := json.Unmarshal(row.Subscription, &sub); err != nil {
		return fmt.Errorf("push: decode subscription for %s: %w", username, err)
	}

	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("push: encode payload: %w", err)
	}

	target := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}

	resp, err := g.sendFn(ctx, message, target, &webpush.Options{
		Subscriber:      g.cfg.Subscriber,
		VAPIDPublicKey:  g.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: g.cfg.VAPIDPrivateKey,
		TTL:             g.cfg.TTL,
	})
	if err != nil {
		return fmt.Errorf("push: send to %s: %w", username, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		// The browser dropped the endpoint; prune it so the next send skips cleanly.
		if err := g.db.WithContext(ctx).Where("username = ?", username).Delete(&models.PushSubscription{}).Error; err != nil {
			g.log.Warn("failed to prune expired subscription", zap.String("username", username), zap.Error(err))
		}
		return ErrNoSubscription
	case resp.StatusCode >= 400:
		return fmt.Errorf("push: endpoint returned status %d for %s", resp.StatusCode, username)
	}

	return nil
}

// Upsert stores the subscription for username, replacing any previous device.
// The conflict clause makes concurrent subscribes for the same username
// resolve in a single statement, so the last device always wins.
func (g *Gateway) Upsert(ctx context.Context, username string, sub models.WebPushSubscription) error {
	if strings.TrimSpace(sub.Endpoint) == "" {
		return errors.New("push: subscription endpoint is required")
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("push: encode subscription: %w", err)
	}

	row := models.PushSubscription{Username: username, Subscription: data}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"subscription", "updated_at"}),
		}).
		Create(&row).Error
}
