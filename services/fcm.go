package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/normatel/norahub/internal/config"
)

// FCMService sends push notifications through Firebase Cloud Messaging.
// Initialization failure degrades to a no-op sender so the portal keeps
// working without push.
type FCMService struct {
	client *messaging.Client
}

func NewFCMService() *FCMService {
	service := &FCMService{}

	opt := option.WithCredentialsFile(config.App.FirebaseCredentialsFile)
	app, err := firebase.NewApp(context.Background(), &firebase.Config{
		ProjectID: config.App.FirebaseProjectID,
	}, opt)
	if err != nil {
		log.Printf("FCM not initialized: %v (push delivery disabled)", err)
		return service
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		log.Printf("FCM messaging client not initialized: %v (push delivery disabled)", err)
		return service
	}

	service.client = client
	log.Println("FCM service initialized")
	return service
}

// Enabled reports whether push delivery is available
func (s *FCMService) Enabled() bool {
	return s.client != nil
}

// SendToToken pushes a notification to a single device token
func (s *FCMService) SendToToken(ctx context.Context, token, title, body string, data map[string]string) error {
	if s.client == nil {
		return fmt.Errorf("fcm not initialized")
	}
	if token == "" {
		return fmt.Errorf("empty fcm token")
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	id, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}
	log.Printf("Push sent: %s", id)
	return nil
}
