package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ibrahimkeyboad/payrun/internal/core/security"
)

// SendWebhook posts the JSON payload to the configured URL. When secret is
// non-empty the payload is signed so the receiver can verify the sender.
// Used for batch lifecycle events; failures are logged by the caller, never
// retried here.
func SendWebhook(url string, payload interface{}, secret string) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Payrun-Webhook/1.0")
	if secret != "" {
		req.Header.Set("X-Payrun-Signature", security.Sign(secret, jsonData))
	}

	// Don't let a slow receiver block the worker.
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return fmt.Errorf("webhook receiver returned error: %d", resp.StatusCode)
}
