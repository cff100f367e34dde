package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// FCMService delivers push notifications over the Firebase Cloud Messaging
// HTTP v1 API. Device tokens live in the fcm_tokens table; retailers register
// them at login so publish/award events reach their devices.
type FCMService struct {
	projectID   string
	db          *sql.DB
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
}

// serviceAccount is the subset of the Firebase credentials file we need.
type serviceAccount struct {
	ProjectID   string `json:"project_id"`
	PrivateKey  string `json:"private_key"`
	ClientEmail string `json:"client_email"`
	TokenURI    string `json:"token_uri"`
}

// NewFCMService reads the service account file and prepares an OAuth2 token
// source scoped to firebase.messaging.
func NewFCMService(credentialsPath string, db *sql.DB) (*FCMService, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("credentials path is required")
	}
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("error reading credentials file: %v", err)
	}

	var creds serviceAccount
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("error parsing credentials: %v", err)
	}

	config := &jwt.Config{
		Email:      creds.ClientEmail,
		PrivateKey: []byte(strings.ReplaceAll(creds.PrivateKey, "\\n", "\n")),
		Scopes:     []string{"https://www.googleapis.com/auth/firebase.messaging"},
		TokenURL:   creds.TokenURI,
	}

	return &FCMService{
		projectID:   creds.ProjectID,
		db:          db,
		httpClient:  &http.Client{},
		tokenSource: config.TokenSource(context.Background()),
	}, nil
}

// SaveToken stores or replaces a user's device token.
func (f *FCMService) SaveToken(userID int, token string) error {
	_, err := f.db.Exec(`
		INSERT INTO fcm_tokens (user_id, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET token = $2, updated_at = NOW()
	`, userID, token)
	return err
}

// RemoveToken deletes a user's device token.
func (f *FCMService) RemoveToken(userID int) error {
	_, err := f.db.Exec(`DELETE FROM fcm_tokens WHERE user_id = $1`, userID)
	return err
}

// SendToUser pushes one notification to a user's registered device.
func (f *FCMService) SendToUser(ctx context.Context, userID int, title, body string, data map[string]string) error {
	var token string
	err := f.db.QueryRow(`SELECT token FROM fcm_tokens WHERE user_id = $1`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		// No registered device, nothing to push.
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetching token for user %d: %v", userID, err)
	}
	return f.send(ctx, token, title, body, data)
}

// SendToUsers pushes a notification to every user's registered device.
// Individual failures do not stop the fan-out; the first error is returned.
func (f *FCMService) SendToUsers(ctx context.Context, userIDs []int, title, body string, data map[string]string) error {
	var firstErr error
	for _, userID := range userIDs {
		if err := f.SendToUser(ctx, userID, title, body, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// send posts one message to the FCM HTTP v1 endpoint.
func (f *FCMService) send(ctx context.Context, token, title, body string, data map[string]string) error {
	oauthToken, err := f.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("error getting OAuth token: %v", err)
	}

	message := map[string]interface{}{
		"message": map[string]interface{}{
			"token": token,
			"notification": map[string]string{
				"title": title,
				"body":  body,
			},
			"data": data,
		},
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", f.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+oauthToken.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("FCM returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
