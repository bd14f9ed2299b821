package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
)

// In-memory store fakes. They mirror the repository contracts: missing
// single records surface as gorm.ErrRecordNotFound and state changes are
// compare-and-set.

type fakeSettlementStore struct {
	settlements map[uuid.UUID]*model.Settlement
	requests    *fakeRequestStore
	expenses    *fakeExpenseStore
	createErr   error
}

func newFakeSettlementStore() *fakeSettlementStore {
	return &fakeSettlementStore{settlements: make(map[uuid.UUID]*model.Settlement)}
}

// Create also mirrors the repository's claims: requests move to
// por_liquidar and expenses point at the new settlement.
func (f *fakeSettlementStore) Create(_ context.Context, s *model.Settlement) error {
	if f.createErr != nil {
		return f.createErr
	}
	stored := *s
	f.settlements[s.ID] = &stored
	if f.requests != nil {
		for _, id := range s.RequestIDs {
			if req, ok := f.requests.requests[id]; ok {
				req.Billing = model.BillingReadyToSettle
				req.SettlementIDs = append(req.SettlementIDs, s.ID)
			}
		}
	}
	if f.expenses != nil {
		for _, id := range s.ExpenseIDs() {
			if expense, ok := f.expenses.expenses[id]; ok {
				claim := s.ID
				expense.SettlementID = &claim
			}
		}
	}
	return nil
}

func (f *fakeSettlementStore) Get(_ context.Context, id uuid.UUID) (*model.Settlement, error) {
	settlement, ok := f.settlements[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *settlement
	copied.Lines = append([]model.VehicleSettlement(nil), settlement.Lines...)
	return &copied, nil
}

func (f *fakeSettlementStore) List(_ context.Context, filter model.SettlementFilter) ([]model.Settlement, int64, error) {
	var out []model.Settlement
	for _, settlement := range f.settlements {
		if settlement.CompanyID != filter.CompanyID {
			continue
		}
		if filter.State != nil && settlement.State != *filter.State {
			continue
		}
		out = append(out, *settlement)
	}
	return out, int64(len(out)), nil
}

func (f *fakeSettlementStore) Transition(_ context.Context, id uuid.UUID, from, to model.SettlementState, actor uuid.UUID, notes string, at time.Time) (bool, error) {
	settlement, ok := f.settlements[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if settlement.State != from {
		return false, nil
	}
	settlement.State = to
	settlement.Notes = notes
	switch to {
	case model.SettlementApproved:
		settlement.ApprovedBy = &actor
		settlement.ApprovedAt = &at
	case model.SettlementRejected:
		settlement.RejectedBy = &actor
		settlement.RejectedAt = &at
	}
	return true, nil
}

func (f *fakeSettlementStore) UpdateLine(_ context.Context, lineID uuid.UUID, state model.LineState, payableID *uuid.UUID) error {
	for _, settlement := range f.settlements {
		for i := range settlement.Lines {
			if settlement.Lines[i].ID == lineID {
				settlement.Lines[i].State = state
				settlement.Lines[i].PayableAccountID = payableID
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeSettlementStore) AppendSendRecord(_ context.Context, id uuid.UUID, rec model.SendRecord) error {
	settlement, ok := f.settlements[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	settlement.SendLog = append(settlement.SendLog, rec)
	settlement.SentToClient = true
	return nil
}

type fakeRequestStore struct {
	requests map[uuid.UUID]*model.ServiceRequest
	released []uuid.UUID
}

func newFakeRequestStore(requests ...*model.ServiceRequest) *fakeRequestStore {
	store := &fakeRequestStore{requests: make(map[uuid.UUID]*model.ServiceRequest)}
	for _, req := range requests {
		store.requests[req.ID] = req
	}
	return store
}

func (f *fakeRequestStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.ServiceRequest, error) {
	var out []model.ServiceRequest
	for _, id := range ids {
		if req, ok := f.requests[id]; ok {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestStore) Release(_ context.Context, requestID, settlementID uuid.UUID) error {
	req, ok := f.requests[requestID]
	if !ok {
		return nil
	}
	req.Billing = model.BillingInvoiced
	kept := req.SettlementIDs[:0]
	for _, id := range req.SettlementIDs {
		if id != settlementID {
			kept = append(kept, id)
		}
	}
	req.SettlementIDs = kept
	f.released = append(f.released, requestID)
	return nil
}

type fakeExpenseStore struct {
	expenses map[uuid.UUID]*model.Expense

	// setStateErr is returned by the next SetState call and then cleared.
	setStateErr error
}

func newFakeExpenseStore(expenses ...*model.Expense) *fakeExpenseStore {
	store := &fakeExpenseStore{expenses: make(map[uuid.UUID]*model.Expense)}
	for _, expense := range expenses {
		store.expenses[expense.ID] = expense
	}
	return store
}

func (f *fakeExpenseStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Expense, error) {
	var out []model.Expense
	for _, id := range ids {
		if expense, ok := f.expenses[id]; ok {
			out = append(out, *expense)
		}
	}
	return out, nil
}

func (f *fakeExpenseStore) ListUnliquidatedByVehicles(_ context.Context, vehicleIDs []uuid.UUID) ([]model.Expense, error) {
	wanted := make(map[uuid.UUID]struct{}, len(vehicleIDs))
	for _, id := range vehicleIDs {
		wanted[id] = struct{}{}
	}
	var out []model.Expense
	for _, expense := range f.expenses {
		if _, ok := wanted[expense.VehicleID]; !ok {
			continue
		}
		if expense.State != model.ExpenseUnliquidated || expense.SettlementID != nil {
			continue
		}
		out = append(out, *expense)
	}
	return out, nil
}

func (f *fakeExpenseStore) SetState(_ context.Context, ids []uuid.UUID, state model.ExpenseState) error {
	if f.setStateErr != nil {
		err := f.setStateErr
		f.setStateErr = nil
		return err
	}
	for _, id := range ids {
		if expense, ok := f.expenses[id]; ok {
			expense.State = state
			if state == model.ExpenseUnliquidated {
				expense.SettlementID = nil
			}
		}
	}
	return nil
}

type fakeVehicleStore struct {
	vehicles map[uuid.UUID]model.Vehicle
}

func newFakeVehicleStore(vehicles ...model.Vehicle) *fakeVehicleStore {
	store := &fakeVehicleStore{vehicles: make(map[uuid.UUID]model.Vehicle)}
	for _, vehicle := range vehicles {
		store.vehicles[vehicle.ID] = vehicle
	}
	return store
}

func (f *fakeVehicleStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]model.Vehicle, error) {
	var out []model.Vehicle
	for _, id := range ids {
		if vehicle, ok := f.vehicles[id]; ok {
			out = append(out, vehicle)
		}
	}
	return out, nil
}

type fakePayableStore struct {
	accounts map[uuid.UUID]*model.PayableAccount
}

func newFakePayableStore(accounts ...*model.PayableAccount) *fakePayableStore {
	store := &fakePayableStore{accounts: make(map[uuid.UUID]*model.PayableAccount)}
	for _, account := range accounts {
		store.accounts[account.ID] = account
	}
	return store
}

func (f *fakePayableStore) Get(_ context.Context, id uuid.UUID) (*model.PayableAccount, error) {
	account, ok := f.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *account
	return &copied, nil
}

func (f *fakePayableStore) FindByPayeeAndRequest(_ context.Context, payeeID, requestID uuid.UUID) (*model.PayableAccount, error) {
	for _, account := range f.accounts {
		if account.PayeeID == payeeID && account.ServiceRequestID == requestID {
			copied := *account
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePayableStore) Create(_ context.Context, acc *model.PayableAccount) error {
	stored := *acc
	f.accounts[acc.ID] = &stored
	return nil
}

func (f *fakePayableStore) AddItem(_ context.Context, accountID uuid.UUID, item model.PayableItem) (*model.PayableAccount, error) {
	account, ok := f.accounts[accountID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	duplicate := false
	for _, acc := range f.accounts {
		for _, existing := range acc.Items {
			if existing.VehicleSettlementID == item.VehicleSettlementID {
				duplicate = true
			}
		}
	}
	if !duplicate {
		account.Items = append(account.Items, item)
	}
	account.Base, account.Deducted, account.Net = 0, 0, 0
	for _, existing := range account.Items {
		account.Base += existing.Base
		account.Deducted += existing.Deducted
		account.Net += existing.Net
	}
	account.State = model.PayableCalculated
	copied := *account
	return &copied, nil
}

func (f *fakePayableStore) ListByPayee(_ context.Context, companyID, payeeID uuid.UUID) ([]model.PayableAccount, error) {
	var out []model.PayableAccount
	for _, account := range f.accounts {
		if account.CompanyID == companyID && account.PayeeID == payeeID {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (f *fakePayableStore) Transition(_ context.Context, id uuid.UUID, from, to model.PayableState) (bool, error) {
	account, ok := f.accounts[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if account.State != from {
		return false, nil
	}
	account.State = to
	return true, nil
}

type fakePDFGenerator struct{}

func (fakePDFGenerator) Generate(model.SettlementDocument) ([]byte, error) {
	return []byte("%PDF-fake"), nil
}

type fakeExcelGenerator struct{}

func (fakeExcelGenerator) Generate(model.Settlement) ([]byte, error) {
	return []byte("xlsx-fake"), nil
}

type enqueuedSend struct {
	doc       model.SettlementDocument
	recipient string
	actor     uuid.UUID
}

type fakeDispatcher struct {
	sent []enqueuedSend
}

func (f *fakeDispatcher) Enqueue(doc model.SettlementDocument, recipient string, actor uuid.UUID) error {
	f.sent = append(f.sent, enqueuedSend{doc: doc, recipient: recipient, actor: actor})
	return nil
}
