// Package notifications delivers pending-input push notifications via FCM.
package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	shared "github.com/fitglue/enricher/pkg"
	"github.com/fitglue/enricher/pkg/types"
)

const (
	pendingInputTitle = "Action Required: FitGlue"
	pendingInputBody  = "An activity needs more information to be processed."
)

type FCMAdapter struct {
	client *messaging.Client
	fs     *firestore.Client
}

func NewFCMAdapter(ctx context.Context, app *firebase.App, fs *firestore.Client) (*FCMAdapter, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}
	return &FCMAdapter{client: client, fs: fs}, nil
}

// NotifyPendingInput tells the user's devices that an activity is paused
// waiting on their input. The data payload carries the stable pending-input ID
// so the app can deep-link straight to the input form.
func (a *FCMAdapter) NotifyPendingInput(ctx context.Context, user *types.UserRecord, pendingInputID string) error {
	if len(user.FCMTokens) == 0 {
		slog.Debug("No FCM tokens registered, skipping notification", "user_id", user.UserID)
		return nil
	}

	slog.Info("Notifying user of pending input",
		"user_id", user.UserID,
		"pending_input_id", pendingInputID,
		"token_count", len(user.FCMTokens),
	)

	message := &messaging.MulticastMessage{
		Tokens: user.FCMTokens,
		Notification: &messaging.Notification{
			Title: pendingInputTitle,
			Body:  pendingInputBody,
		},
		Data: map[string]string{
			"type":             "PENDING_INPUT",
			"pending_input_id": pendingInputID,
			"user_id":          user.UserID,
		},
	}

	response, err := a.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send multicast message: %w", err)
	}

	if response.FailureCount > 0 {
		slog.Warn("Some push notifications failed to send",
			"user_id", user.UserID,
			"failure_count", response.FailureCount,
			"success_count", response.SuccessCount,
		)
		a.cleanupDeadTokens(ctx, user.UserID, user.FCMTokens, response.Responses)
	}

	return nil
}

// cleanupDeadTokens removes tokens that returned NotRegistered from the user
// document so later sends stop retrying them.
func (a *FCMAdapter) cleanupDeadTokens(ctx context.Context, userID string, tokens []string, responses []*messaging.SendResponse) {
	var deadTokens []interface{}
	for i, resp := range responses {
		if resp.Error != nil && messaging.IsRegistrationTokenNotRegistered(resp.Error) {
			deadTokens = append(deadTokens, tokens[i])
		}
	}

	if len(deadTokens) == 0 {
		return
	}

	slog.Info("Removing dead FCM tokens", "user_id", userID, "count", len(deadTokens))
	_, err := a.fs.Collection(shared.CollectionUsers).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "fcm_tokens", Value: firestore.ArrayRemove(deadTokens...)},
	})
	if err != nil {
		slog.Error("Failed to remove dead FCM tokens", "user_id", userID, "error", err)
	}
}
