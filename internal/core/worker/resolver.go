package worker

import (
	"context"
	"fmt"

	"github.com/ibrahimkeyboad/payrun/internal/core/domain"
	"github.com/ibrahimkeyboad/payrun/internal/core/method"
)

// capabilitiesPhone is the sandbox phone number Method accepts for
// individuals without triggering phone verification.
const capabilitiesPhone = "+15121231111"

// fallbackAddress is attached to payor corporations whose source record has
// no address. Method requires one before the entity can fund payments.
var fallbackAddress = domain.Address{
	Line1: "3300 N Interstate 35",
	City:  "Austin",
	State: "TX",
	Zip:   "78705",
}

// Resolver provisions provider-side entities and accounts idempotently:
// a local lookup by natural key precedes every create, and local persistence
// goes through the stores' insert-if-absent upserts, so racing passes can
// never leave two records for one key.
type Resolver struct {
	provider Provider
	entities EntityStore
	accounts AccountStore
}

func NewResolver(provider Provider, entities EntityStore, accounts AccountStore) *Resolver {
	return &Resolver{provider: provider, entities: entities, accounts: accounts}
}

// EmployeeEntity resolves or creates the individual entity for an employee,
// keyed by their Dunkin id.
func (r *Resolver) EmployeeEntity(ctx context.Context, emp domain.Employee) (*domain.Entity, error) {
	existing, err := r.entities.FindByDunkinID(ctx, emp.DunkinID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if existing != nil {
		return existing, nil
	}

	dob, err := domain.NormalizeDOB(emp.DOB)
	if err != nil {
		return nil, err
	}

	methodID, err := r.provider.CreateEntity(ctx, method.EntityRequest{
		Type: string(domain.EntityKindIndividual),
		Individual: &method.IndividualProfile{
			FirstName: emp.FirstName,
			LastName:  emp.LastName,
			Phone:     capabilitiesPhone,
			DOB:       dob,
		},
	})
	if err != nil {
		return nil, err
	}

	saved, err := r.entities.Upsert(ctx, domain.Entity{
		DunkinID:       emp.DunkinID,
		Branch:         emp.Branch,
		Kind:           domain.EntityKindIndividual,
		FirstName:      emp.FirstName,
		LastName:       emp.LastName,
		DOB:            dob,
		Phone:          capabilitiesPhone,
		MethodEntityID: methodID,
	})
	if err != nil {
		return nil, wrapStore(err)
	}
	return saved, nil
}

// PayorEntity resolves or creates the corporation entity for a payor, keyed
// by its Dunkin id.
func (r *Resolver) PayorEntity(ctx context.Context, payor domain.Payor) (*domain.Entity, error) {
	existing, err := r.entities.FindByDunkinID(ctx, payor.DunkinID)
	if err != nil {
		return nil, wrapStore(err)
	}
	if existing != nil {
		return existing, nil
	}

	addr := payor.Address
	if addr.Line1 == "" {
		addr = fallbackAddress
	}

	methodID, err := r.provider.CreateEntity(ctx, method.EntityRequest{
		Type: string(domain.EntityKindCorporation),
		Corporation: &method.CorporationProfile{
			Name:   payor.Name,
			DBA:    payor.DBA,
			EIN:    payor.EIN,
			Owners: []string{}, // Method rejects the request when owners is absent
		},
		Address: &method.AddressPayload{
			Line1: addr.Line1,
			City:  addr.City,
			State: addr.State,
			Zip:   addr.Zip,
		},
	})
	if err != nil {
		return nil, err
	}

	saved, err := r.entities.Upsert(ctx, domain.Entity{
		DunkinID:       payor.DunkinID,
		Kind:           domain.EntityKindCorporation,
		CorpName:       payor.Name,
		DBA:            payor.DBA,
		EIN:            payor.EIN,
		Address:        addr,
		MethodEntityID: methodID,
	})
	if err != nil {
		return nil, wrapStore(err)
	}
	return saved, nil
}

// PayorACHAccount resolves or creates the payor's funding account under its
// entity. A freshly created account gets an auto-verify session so it can
// send funds.
func (r *Resolver) PayorACHAccount(ctx context.Context, holder *domain.Entity, payor domain.Payor) (*domain.Account, error) {
	existing, err := r.accounts.FindACH(ctx, holder.ID, payor.ABARouting, payor.AccountNumber)
	if err != nil {
		return nil, wrapStore(err)
	}
	if existing != nil {
		return existing, nil
	}

	methodID, err := r.provider.CreateAccount(ctx, method.AccountRequest{
		HolderID: holder.MethodEntityID,
		ACH: &method.ACHPayload{
			Routing: payor.ABARouting,
			Number:  payor.AccountNumber,
			Type:    "checking",
		},
	})
	if err != nil {
		return nil, err
	}
	if err := r.provider.VerifyAccount(ctx, methodID); err != nil {
		return nil, fmt.Errorf("auto-verify payor account: %w", err)
	}

	saved, err := r.accounts.Upsert(ctx, domain.Account{
		HolderID:        holder.ID,
		Kind:            domain.AccountKindACH,
		Routing:         payor.ABARouting,
		Number:          payor.AccountNumber,
		Subtype:         "checking",
		MethodAccountID: methodID,
	})
	if err != nil {
		return nil, wrapStore(err)
	}
	return saved, nil
}

// PayeeLiabilityAccount resolves or creates the employee's loan account under
// their entity, tied to the merchant resolved from the payee's Plaid id.
func (r *Resolver) PayeeLiabilityAccount(ctx context.Context, holder *domain.Entity, merchantID string, payee domain.Payee) (*domain.Account, error) {
	existing, err := r.accounts.FindLiability(ctx, holder.ID, payee.LoanAccountNumber)
	if err != nil {
		return nil, wrapStore(err)
	}
	if existing != nil {
		return existing, nil
	}

	methodID, err := r.provider.CreateAccount(ctx, method.AccountRequest{
		HolderID: holder.MethodEntityID,
		Liability: &method.LiabilityPayload{
			MerchantID:    merchantID,
			AccountNumber: payee.LoanAccountNumber,
		},
	})
	if err != nil {
		return nil, err
	}

	saved, err := r.accounts.Upsert(ctx, domain.Account{
		HolderID:        holder.ID,
		Kind:            domain.AccountKindLiability,
		MerchantID:      merchantID,
		AccountNumber:   payee.LoanAccountNumber,
		MethodAccountID: methodID,
	})
	if err != nil {
		return nil, wrapStore(err)
	}
	return saved, nil
}
