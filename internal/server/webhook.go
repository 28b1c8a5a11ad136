package server

import (
	"context"
	"time"

	"github.com/tempolab/podtempo/internal/shared"
	"github.com/tempolab/podtempo/internal/storage"
)

// webhookTTL is the lifetime requested for a storage watch channel. Drive
// caps channels at roughly a day, so registration must be repeated.
const webhookTTL = 24 * time.Hour

// RegisterWebhook opens a change-notification channel pointing storage at
// the public webhook address. The returned channel id identifies the
// registration; the secret becomes the channel token checked on delivery.
func RegisterWebhook(ctx context.Context, store storage.Storage, address, secret string) (storage.WatchChannel, error) {
	channel := storage.WatchChannel{
		ID:         shared.GenerateID(),
		Type:       "web_hook",
		Address:    address,
		Token:      secret,
		Expiration: time.Now().Add(webhookTTL).UnixMilli(),
	}
	if err := store.Watch(ctx, channel); err != nil {
		return storage.WatchChannel{}, err
	}
	return channel, nil
}
