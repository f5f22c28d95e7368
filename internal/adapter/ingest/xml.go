package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
)

// The payroll files are XML exports of the form
// <root><row><Employee>...</Employee><Payor>...</Payor><Payee>...</Payee><Amount>$23.45</Amount></row>...</root>

type xmlAddress struct {
	Line1 string `xml:"Line1"`
	City  string `xml:"City"`
	State string `xml:"State"`
	Zip   string `xml:"Zip"`
}

type xmlRow struct {
	Employee struct {
		DunkinID     string `xml:"DunkinId"`
		DunkinBranch string `xml:"DunkinBranch"`
		FirstName    string `xml:"FirstName"`
		LastName     string `xml:"LastName"`
		DOB          string `xml:"DOB"`
		PhoneNumber  string `xml:"PhoneNumber"`
	} `xml:"Employee"`
	Payor struct {
		DunkinID      string     `xml:"DunkinId"`
		ABARouting    string     `xml:"ABARouting"`
		AccountNumber string     `xml:"AccountNumber"`
		Name          string     `xml:"Name"`
		DBA           string     `xml:"DBA"`
		EIN           string     `xml:"EIN"`
		Address       xmlAddress `xml:"Address"`
	} `xml:"Payor"`
	Payee struct {
		PlaidID           string `xml:"PlaidId"`
		LoanAccountNumber string `xml:"LoanAccountNumber"`
	} `xml:"Payee"`
	Amount string `xml:"Amount"`
}

type xmlFile struct {
	XMLName xml.Name `xml:"root"`
	Rows    []xmlRow `xml:"row"`
}

// ParseBatch decodes a payroll XML file into payment records, preserving row
// order. Any malformed row fails the whole upload; the worker only ever sees
// well-formed payments.
func ParseBatch(r io.Reader) ([]domain.Payment, error) {
	var file xmlFile
	if err := xml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("parse XML: %w", err)
	}
	if len(file.Rows) == 0 {
		return nil, fmt.Errorf("file contains no payment rows")
	}

	payments := make([]domain.Payment, 0, len(file.Rows))
	for i, row := range file.Rows {
		if row.Employee.DunkinID == "" {
			return nil, fmt.Errorf("row %d: employee DunkinId is missing", i+1)
		}
		if row.Payor.DunkinID == "" {
			return nil, fmt.Errorf("row %d: payor DunkinId is missing", i+1)
		}

		amount, err := parseCents(row.Amount)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		payments = append(payments, domain.Payment{
			Employee: domain.Employee{
				DunkinID:  row.Employee.DunkinID,
				Branch:    row.Employee.DunkinBranch,
				FirstName: row.Employee.FirstName,
				LastName:  row.Employee.LastName,
				DOB:       row.Employee.DOB,
				Phone:     row.Employee.PhoneNumber,
			},
			Payor: domain.Payor{
				DunkinID:      row.Payor.DunkinID,
				ABARouting:    row.Payor.ABARouting,
				AccountNumber: row.Payor.AccountNumber,
				Name:          row.Payor.Name,
				DBA:           row.Payor.DBA,
				EIN:           row.Payor.EIN,
				Address: domain.Address{
					Line1: row.Payor.Address.Line1,
					City:  row.Payor.Address.City,
					State: row.Payor.Address.State,
					Zip:   row.Payor.Address.Zip,
				},
			},
			Payee: domain.Payee{
				PlaidID:           row.Payee.PlaidID,
				LoanAccountNumber: row.Payee.LoanAccountNumber,
			},
			Amount: amount,
			Status: domain.PaymentStatusPending,
		})
	}
	return payments, nil
}

// parseCents converts a dollar string like "$1,234.56" into integer cents.
// Floats are avoided on purpose.
func parseCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}

	whole, frac := s, ""
	if dot := strings.Index(s, "."); dot >= 0 {
		whole, frac = s[:dot], s[dot+1:]
	}
	if whole == "" {
		whole = "0"
	}

	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || dollars < 0 {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	var cents int64
	switch len(frac) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid amount %q", raw)
		}
		cents = d * 10
	case 2:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || d < 0 {
			return 0, fmt.Errorf("invalid amount %q", raw)
		}
		cents = d
	default:
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	return dollars*100 + cents, nil
}
