package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

// ReportHandler renders the per-batch CSV reports the dashboard offers for
// download. Reports are read-only over payment records.
type ReportHandler struct {
	Payments PaymentStore
}

func (h *ReportHandler) loadPayments(c *fiber.Ctx) ([]domain.Payment, bool, error) {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, false, c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid batch ID"})
	}
	payments, err := h.Payments.ListByBatch(c.Context(), batchID)
	if err != nil {
		slog.Error("Failed to load payments for report", "error", err, "batch_id", batchID)
		return nil, false, c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not build report"})
	}
	return payments, true, nil
}

// PaymentsReport lists every payment with its outcome.
func (h *ReportHandler) PaymentsReport(c *fiber.Ctx) error {
	payments, ok, err := h.loadPayments(c)
	if !ok {
		return err
	}

	records := [][]string{{
		"employee_dunkin_id", "employee_name", "branch",
		"payor_dunkin_id", "payor_name",
		"loan_account_number", "amount", "status", "error", "method_payment_id",
	}}
	for _, p := range payments {
		records = append(records, []string{
			p.Employee.DunkinID,
			p.Employee.FirstName + " " + p.Employee.LastName,
			p.Employee.Branch,
			p.Payor.DunkinID,
			p.Payor.Name,
			p.Payee.LoanAccountNumber,
			formatCents(p.Amount),
			string(p.Status),
			p.Error,
			p.MethodPaymentID,
		})
	}
	return sendCSV(c, "payments.csv", records)
}

// BranchesReport totals the funds paid out per Dunkin branch. Only completed
// payments count as paid.
func (h *ReportHandler) BranchesReport(c *fiber.Ctx) error {
	payments, ok, err := h.loadPayments(c)
	if !ok {
		return err
	}

	totals := make(map[string]int64)
	counts := make(map[string]int)
	for _, p := range payments {
		if p.Status != domain.PaymentStatusComplete {
			continue
		}
		totals[p.Employee.Branch] += p.Amount
		counts[p.Employee.Branch]++
	}

	records := [][]string{{"branch", "payments_count", "total_amount"}}
	for _, branch := range sortedKeys(totals) {
		records = append(records, []string{
			branch,
			fmt.Sprintf("%d", counts[branch]),
			formatCents(totals[branch]),
		})
	}
	return sendCSV(c, "branches.csv", records)
}

// PayorsReport totals the funds each payor corporation sent.
func (h *ReportHandler) PayorsReport(c *fiber.Ctx) error {
	payments, ok, err := h.loadPayments(c)
	if !ok {
		return err
	}

	totals := make(map[string]int64)
	names := make(map[string]string)
	for _, p := range payments {
		if p.Status != domain.PaymentStatusComplete {
			continue
		}
		totals[p.Payor.DunkinID] += p.Amount
		names[p.Payor.DunkinID] = p.Payor.Name
	}

	records := [][]string{{"payor_dunkin_id", "payor_name", "total_amount"}}
	for _, id := range sortedKeys(totals) {
		records = append(records, []string{id, names[id], formatCents(totals[id])})
	}
	return sendCSV(c, "payors.csv", records)
}

func sendCSV(c *fiber.Ctx, filename string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Could not render report"})
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

func formatCents(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
