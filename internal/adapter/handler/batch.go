package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payrun/internal/adapter/storage"
	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

// BatchStore is the slice of the batch repository the handlers need.
// Create persists the batch and its payments atomically.
type BatchStore interface {
	Create(ctx context.Context, name string, payments []domain.Payment) (*domain.Batch, error)
	List(ctx context.Context) ([]domain.Batch, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Batch, error)
	Approve(ctx context.Context, id uuid.UUID) error
	Reject(ctx context.Context, id uuid.UUID) error
}

type PaymentStore interface {
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.Payment, error)
}

// WorkerTrigger wakes the worker without waiting for its next tick.
type WorkerTrigger interface {
	Trigger()
}

type BatchHandler struct {
	Batches  BatchStore
	Payments PaymentStore
	Worker   WorkerTrigger
}

func (h *BatchHandler) ListBatches(c *fiber.Ctx) error {
	batches, err := h.Batches.List(c.Context())
	if err != nil {
		slog.Error("Failed to list batches", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not list batches"})
	}
	if batches == nil {
		batches = []domain.Batch{}
	}
	return c.JSON(fiber.Map{"batches": batches})
}

func (h *BatchHandler) GetBatch(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid batch ID"})
	}

	batch, err := h.Batches.Get(c.Context(), batchID)
	if err != nil {
		slog.Error("Failed to get batch", "error", err, "batch_id", batchID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch batch"})
	}
	if batch == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Batch not found"})
	}
	return c.JSON(batch)
}

func (h *BatchHandler) ListPayments(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid batch ID"})
	}

	payments, err := h.Payments.ListByBatch(c.Context(), batchID)
	if err != nil {
		slog.Error("Failed to list payments", "error", err, "batch_id", batchID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch payments"})
	}
	if payments == nil {
		payments = []domain.Payment{}
	}
	return c.JSON(fiber.Map{"payments": payments})
}

// ApproveBatch flags the batch for fund transfer and wakes the worker so an
// already-pending batch starts processing immediately.
func (h *BatchHandler) ApproveBatch(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid batch ID"})
	}

	batch, err := h.Batches.Get(c.Context(), batchID)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch batch"})
	}
	if batch == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Batch not found"})
	}

	if err := h.Batches.Approve(c.Context(), batchID); err != nil {
		if errors.Is(err, storage.ErrInvalidState) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "Batch can no longer be approved"})
		}
		slog.Error("Failed to approve batch", "error", err, "batch_id", batchID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not approve batch"})
	}

	slog.Info("✅ Batch approved", "batch_id", batchID)
	h.Worker.Trigger()
	return c.JSON(fiber.Map{"status": "success", "message": "Batch approved"})
}

// RejectBatch discards the batch. The worker never selects a discarded batch.
func (h *BatchHandler) RejectBatch(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid batch ID"})
	}

	batch, err := h.Batches.Get(c.Context(), batchID)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch batch"})
	}
	if batch == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "Batch not found"})
	}

	if err := h.Batches.Reject(c.Context(), batchID); err != nil {
		if errors.Is(err, storage.ErrInvalidState) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "Batch can no longer be rejected"})
		}
		slog.Error("Failed to reject batch", "error", err, "batch_id", batchID)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not reject batch"})
	}

	slog.Info("🗑️ Batch rejected", "batch_id", batchID)
	return c.JSON(fiber.Map{"status": "success", "message": "Batch rejected"})
}
