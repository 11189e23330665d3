package initializers

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"github.com/PushRelay/services"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"
	"google.golang.org/api/option"
)

// NewPushGateway builds the gateway client selected by PUSH_GATEWAY.
func NewPushGateway(ctx context.Context, cfg *Config) (services.PushGateway, error) {
	switch cfg.PushGateway {
	case GatewayAPNS:
		return newAPNSGateway(cfg)
	case GatewayFCM:
		return newFCMGateway(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown push gateway %q", cfg.PushGateway)
	}
}

func newAPNSGateway(cfg *Config) (*services.APNSGateway, error) {
	authKey, err := token.AuthKeyFromFile(cfg.APNSKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load apns auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.APNSKeyID,
		TeamID:  cfg.APNSTeamID,
	})
	if cfg.APNSProduction {
		client = client.Production()
	} else {
		client = client.Development()
	}
	if cfg.APNSHost != "" {
		client.Host = cfg.APNSHost
	}

	slog.Info("apns gateway initialized", slog.String("host", client.Host))
	return services.NewAPNSGateway(client), nil
}

func newFCMGateway(ctx context.Context, cfg *Config) (*services.FCMGateway, error) {
	var opts []option.ClientOption
	if cfg.FirebaseServiceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseServiceAccountPath))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get firebase messaging client: %w", err)
	}

	if cfg.FirebaseServiceAccountPath != "" {
		slog.Info("fcm gateway initialized with service account file")
	} else {
		slog.Info("fcm gateway initialized with application default credentials")
	}
	return services.NewFCMGateway(client), nil
}
