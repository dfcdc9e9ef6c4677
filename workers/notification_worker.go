package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/normatel/norahub/db"
	"github.com/normatel/norahub/internal/config"
	"github.com/normatel/norahub/services"
)

const (
	pollInterval = 1 * time.Second
	batchSize    = 20
)

// NotificationWorker polls undelivered notifications and fans them out to
// their channels: FCM push for portal users, the e-mail gateway for explicit
// recipient lists. A notification is marked delivered after one delivery
// attempt per channel; per-channel failures are logged, not retried forever.
type NotificationWorker struct {
	Notifications *services.NotificationService
	Users         *services.UserService
	FCM           *services.FCMService

	httpClient *http.Client
}

func NewNotificationWorker(notifications *services.NotificationService, users *services.UserService, fcm *services.FCMService) *NotificationWorker {
	return &NotificationWorker{
		Notifications: notifications,
		Users:         users,
		FCM:           fcm,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Run polls until the context is cancelled
func (w *NotificationWorker) Run(ctx context.Context) {
	log.Println("Notification worker started")
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Notification worker stopped")
			return
		case <-ticker.C:
			w.deliverBatch(ctx)
		}
	}
}

func (w *NotificationWorker) deliverBatch(ctx context.Context) {
	batch, err := w.Notifications.UndeliveredBatch(ctx, batchSize)
	if err != nil {
		log.Printf("worker: failed to fetch batch: %v", err)
		return
	}

	for _, n := range batch {
		w.deliver(ctx, &n)
		if err := w.Notifications.MarkDelivered(ctx, n.ID); err != nil {
			log.Printf("worker: failed to mark %s delivered: %v", n.ID, err)
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, n *db.Notification) {
	for _, channel := range n.Channels {
		switch channel {
		case "push":
			w.deliverPush(ctx, n)
		case "email":
			w.deliverEmail(ctx, n)
		default:
			log.Printf("worker: notification %s has unknown channel %q", n.ID, channel)
		}
	}
}

func (w *NotificationWorker) deliverPush(ctx context.Context, n *db.Notification) {
	if w.FCM == nil || !w.FCM.Enabled() || n.UserID == "" {
		return
	}
	user, err := w.Users.GetUser(ctx, n.UserID)
	if err != nil || user.FCMToken == "" {
		return
	}
	err = w.FCM.SendToToken(ctx, user.FCMToken, n.Title, n.Body, map[string]string{
		"kind":            n.Kind,
		"notification_id": n.ID,
	})
	if err != nil {
		log.Printf("worker: push for %s failed: %v", n.ID, err)
	}
}

// deliverEmail relays the notification through the configured e-mail gateway
func (w *NotificationWorker) deliverEmail(ctx context.Context, n *db.Notification) {
	gateway := config.App.NotificationGatewayDetails
	if gateway.URL == "" {
		return
	}

	recipients := n.Emails
	if len(recipients) == 0 && n.UserID != "" {
		user, err := w.Users.GetUser(ctx, n.UserID)
		if err != nil {
			log.Printf("worker: e-mail for %s skipped, user lookup failed: %v", n.ID, err)
			return
		}
		recipients = []string{user.Email}
	}

	for _, to := range recipients {
		if err := w.sendEmail(ctx, to, n.Title, n.Body); err != nil {
			log.Printf("worker: e-mail to %s failed: %v", to, err)
		}
	}
}

func (w *NotificationWorker) sendEmail(ctx context.Context, to, subject, body string) error {
	gateway := config.App.NotificationGatewayDetails

	payload, err := json.Marshal(map[string]string{
		"instance_id": gateway.InstanceID,
		"to":          to,
		"subject":     subject,
		"body":        body,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gateway.URL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+gateway.APIToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return nil
}
