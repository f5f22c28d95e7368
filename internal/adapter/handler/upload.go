package handler

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ibrahimkeyboad/payrun/internal/adapter/ingest"
)

type UploadHandler struct {
	Batches BatchStore
	Worker  WorkerTrigger
}

// Upload accepts a payroll XML file, creates the batch and its payments, and
// wakes the worker. The batch is named after the uploaded file.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "A file upload is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		slog.Error("Failed to open uploaded file", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not read uploaded file"})
	}
	defer file.Close()

	payments, err := ingest.ParseBatch(file)
	if err != nil {
		slog.Warn("Rejected upload", "file", fileHeader.Filename, "error", err)
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	batch, err := h.Batches.Create(c.Context(), fileHeader.Filename, payments)
	if err != nil {
		slog.Error("Failed to create batch", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create batch"})
	}

	slog.Info("📦 Batch uploaded", "batch_id", batch.ID, "name", batch.Name, "payments", len(payments))
	h.Worker.Trigger()

	return c.Status(http.StatusCreated).JSON(batch)
}
