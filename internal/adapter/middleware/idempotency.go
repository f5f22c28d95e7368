package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Idempotency replays the stored response when a request carries an
// Idempotency-Key that was seen before. Dashboards send one per upload so a
// retried POST cannot create the payroll batch twice. Only successful
// responses are stored; a failed upload may be retried with the same key.
func Idempotency(db *pgxpool.Pool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		var status int
		var body []byte
		err := db.QueryRow(c.Context(),
			"SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1",
			key).Scan(&status, &body)
		if err == nil {
			slog.Info("Idempotency hit, replaying stored response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(status).Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resStatus := c.Response().StatusCode()
		if resStatus < http.StatusOK || resStatus >= http.StatusMultipleChoices {
			return nil
		}
		resBody := c.Response().Body()

		if _, err := db.Exec(c.Context(),
			"INSERT INTO idempotency_keys (key_id, response_status, response_body) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
			key, resStatus, resBody); err != nil {
			slog.Error("❌ Failed to save idempotency key", "error", err, "key", key)
		}
		return nil
	}
}
