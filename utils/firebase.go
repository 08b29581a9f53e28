// utils/firebase.go
package utils

import (
	"context"
	"fmt"
	"sync"

	"marketlink/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

var (
	firebaseApp  *firebase.App
	firebaseErr  error
	firebaseOnce sync.Once
)

// FirebaseApp initializes the Firebase App once from the configured service account.
func FirebaseApp(ctx context.Context) (*firebase.App, error) {
	firebaseOnce.Do(func() {
		var fbCfg *firebase.Config
		if config.AppConfig.FirebaseProjectID != "" {
			fbCfg = &firebase.Config{ProjectID: config.AppConfig.FirebaseProjectID}
		}
		opt := option.WithCredentialsFile(config.AppConfig.FirebaseCredentials)
		firebaseApp, firebaseErr = firebase.NewApp(ctx, fbCfg, opt)
		if firebaseErr != nil {
			firebaseErr = fmt.Errorf("firebase: error initializing app: %w", firebaseErr)
		}
	})
	return firebaseApp, firebaseErr
}

// FCMClient returns a Firebase Cloud Messaging client.
func FCMClient(ctx context.Context) (*messaging.Client, error) {
	app, err := FirebaseApp(ctx)
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Messaging client: %w", err)
	}
	return client, nil
}
