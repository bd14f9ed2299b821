package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodavia/transport-settlements/internal/model"
	"github.com/rodavia/transport-settlements/internal/repository"
)

var (
	testCompanyID = uuid.MustParse("0c8e5aa0-9f76-4d25-8f36-6c1f7130d001")
	testClientID  = uuid.MustParse("0c8e5aa0-9f76-4d25-8f36-6c1f7130d002")
)

func coordinatorPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), CompanyID: testCompanyID, Role: "COORDINADOR"}
}

func accountingPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), CompanyID: testCompanyID, Role: "CONTABILIDAD"}
}

func driverPrincipal() model.Principal {
	return model.Principal{UserID: uuid.New(), CompanyID: testCompanyID, Role: "CONDUCTOR"}
}

func invoicedRequest(code string, clientValue float64, vehicleIDs ...uuid.UUID) *model.ServiceRequest {
	assignments := make([]model.VehicleAssignment, 0, len(vehicleIDs))
	for _, id := range vehicleIDs {
		assignments = append(assignments, model.VehicleAssignment{VehicleID: id, Seats: 4})
	}
	return &model.ServiceRequest{
		ID:            uuid.New(),
		Code:          code,
		ClientID:      testClientID,
		ClientName:    "Acme Corp",
		Assignments:   assignments,
		ClientValue:   clientValue,
		Status:        model.RequestStatusAccepted,
		Execution:     model.ExecutionFinished,
		Billing:       model.BillingInvoiced,
		InvoiceNumber: "FV-" + code,
		CreatedAt:     time.Now().UTC(),
	}
}

func operationalExpense(vehicleID uuid.UUID, values ...float64) *model.Expense {
	items := make([]model.ExpenseItem, 0, len(values))
	for _, value := range values {
		items = append(items, model.ExpenseItem{ID: uuid.New(), Concept: "combustible", Value: value})
	}
	return &model.Expense{
		ID:        uuid.New(),
		CompanyID: testCompanyID,
		VehicleID: vehicleID,
		Kind:      model.ExpenseOperational,
		State:     model.ExpenseUnliquidated,
		Items:     items,
	}
}

func preoperationalExpense(vehicleID uuid.UUID, value float64) *model.Expense {
	return &model.Expense{
		ID:        uuid.New(),
		CompanyID: testCompanyID,
		VehicleID: vehicleID,
		Kind:      model.ExpensePreoperational,
		State:     model.ExpenseUnliquidated,
		Items:     []model.ExpenseItem{{ID: uuid.New(), Concept: "alistamiento", Value: value}},
	}
}

func affiliatedVehicle(plate string) model.Vehicle {
	return model.Vehicle{
		ID:         uuid.New(),
		Plate:      plate,
		FleetType:  model.FleetAffiliated,
		OwnerKind:  model.OwnerCompany,
		OwnerID:    uuid.New(),
		OwnerName:  "Transportes " + plate,
		OwnerEmail: plate + "@example.com",
	}
}

func ownedVehicle(plate string) model.Vehicle {
	return model.Vehicle{
		ID:        uuid.New(),
		Plate:     plate,
		FleetType: model.FleetOwned,
		OwnerKind: model.OwnerCompany,
		OwnerID:   testCompanyID,
		OwnerName: "Rodavia S.A.S.",
	}
}

type settlementFixture struct {
	service     *SettlementService
	settlements *fakeSettlementStore
	requests    *fakeRequestStore
	expenses    *fakeExpenseStore
	vehicles    *fakeVehicleStore
	payables    *fakePayableStore
	dispatcher  *fakeDispatcher
}

func newSettlementFixture(requests *fakeRequestStore, expenses *fakeExpenseStore, vehicles *fakeVehicleStore) *settlementFixture {
	settlements := newFakeSettlementStore()
	settlements.requests = requests
	settlements.expenses = expenses
	payables := newFakePayableStore()
	dispatcher := &fakeDispatcher{}
	svc := NewSettlementService(
		settlements, requests, expenses, vehicles, payables,
		fakePDFGenerator{}, fakeExcelGenerator{}, dispatcher, "Rodavia S.A.S.",
	)
	return &settlementFixture{
		service:     svc,
		settlements: settlements,
		requests:    requests,
		expenses:    expenses,
		vehicles:    vehicles,
		payables:    payables,
		dispatcher:  dispatcher,
	}
}

func TestGenerateSplitsMultiVehicleRequestsEqually(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	v2 := affiliatedVehicle("DEF-456")
	r1 := invoicedRequest("SR-001", 1_000_000, v1.ID)
	r2 := invoicedRequest("SR-002", 600_000, v1.ID, v2.ID)
	expense := operationalExpense(v1.ID, 150_000)

	fx := newSettlementFixture(
		newFakeRequestStore(r1, r2),
		newFakeExpenseStore(expense),
		newFakeVehicleStore(v1, v2),
	)

	settlement, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs:     []uuid.UUID{r1.ID, r2.ID},
		OperationalIDs: []uuid.UUID{expense.ID},
		Principal:      coordinatorPrincipal(),
	})
	require.NoError(t, err)
	require.Len(t, settlement.Lines, 2)

	first := settlement.Lines[0]
	assert.Equal(t, v1.ID, first.VehicleID)
	assert.Equal(t, "ABC-123", first.Plate)
	assert.InDelta(t, 1_300_000, first.Services, 0.001)
	assert.InDelta(t, 150_000, first.Expenses, 0.001)
	assert.InDelta(t, 1_150_000, first.Net, 0.001)
	assert.ElementsMatch(t, []uuid.UUID{r1.ID, r2.ID}, first.RequestIDs)
	assert.Equal(t, model.LineStatePending, first.State)

	second := settlement.Lines[1]
	assert.Equal(t, v2.ID, second.VehicleID)
	assert.InDelta(t, 300_000, second.Services, 0.001)
	assert.InDelta(t, 0, second.Expenses, 0.001)
	assert.InDelta(t, 300_000, second.Net, 0.001)

	assert.InDelta(t, 1_600_000, settlement.TotalServices, 0.001)
	assert.InDelta(t, 150_000, settlement.TotalOperational, 0.001)
	assert.InDelta(t, 1_450_000, settlement.TotalNet, 0.001)
	assert.Equal(t, model.SettlementPending, settlement.State)
	assert.Equal(t, "PRELIQ_MULTI_SR-001-SR-002_ACME_CORP", settlement.Number)
}

func TestGeneratePreoperationalExpensesStayOutOfLines(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 1_000_000, v1.ID)
	preop := preoperationalExpense(v1.ID, 50_000)

	fx := newSettlementFixture(
		newFakeRequestStore(r1),
		newFakeExpenseStore(preop),
		newFakeVehicleStore(v1),
	)

	settlement, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs:        []uuid.UUID{r1.ID},
		PreoperationalIDs: []uuid.UUID{preop.ID},
		Principal:         coordinatorPrincipal(),
	})
	require.NoError(t, err)
	require.Len(t, settlement.Lines, 1)

	line := settlement.Lines[0]
	assert.InDelta(t, 1_000_000, line.Services, 0.001)
	assert.InDelta(t, 0, line.Expenses, 0.001)
	assert.InDelta(t, 1_000_000, line.Net, 0.001)
	assert.Empty(t, line.ExpenseIDs)

	assert.InDelta(t, 50_000, settlement.TotalPreoperational, 0.001)
	assert.InDelta(t, 950_000, settlement.TotalNet, 0.001)
	assert.Equal(t, "PRELIQ_SR-001_ACME_CORP", settlement.Number)
}

func TestGeneratePreconditions(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")

	t.Run("driver denied", func(t *testing.T) {
		fx := newSettlementFixture(newFakeRequestStore(), newFakeExpenseStore(), newFakeVehicleStore())
		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs: []uuid.UUID{uuid.New()},
			Principal:  driverPrincipal(),
		})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("empty request set", func(t *testing.T) {
		fx := newSettlementFixture(newFakeRequestStore(), newFakeExpenseStore(), newFakeVehicleStore())
		_, err := fx.service.Generate(context.Background(), GenerateInput{Principal: coordinatorPrincipal()})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("duplicate request id", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))
		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs: []uuid.UUID{r1.ID, r1.ID},
			Principal:  coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorContains(t, err, r1.ID.String())
	})

	t.Run("duplicate expense id", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		expense := operationalExpense(v1.ID, 10_000)
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(expense), newFakeVehicleStore(v1))
		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs:     []uuid.UUID{r1.ID},
			OperationalIDs: []uuid.UUID{expense.ID, expense.ID},
			Principal:      coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.ErrorContains(t, err, expense.ID.String())
	})

	t.Run("unknown request", func(t *testing.T) {
		fx := newSettlementFixture(newFakeRequestStore(), newFakeExpenseStore(), newFakeVehicleStore())
		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs: []uuid.UUID{uuid.New()},
			Principal:  coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("request not invoiced", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		r1.Billing = model.BillingNotInvoiced
		r1.InvoiceNumber = ""
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))

		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs: []uuid.UUID{r1.ID},
			Principal:  coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("request already settled", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		r1.SettlementIDs = []uuid.UUID{uuid.New()}
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))

		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs: []uuid.UUID{r1.ID},
			Principal:  coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("expense of the wrong kind", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		preop := preoperationalExpense(v1.ID, 10_000)
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(preop), newFakeVehicleStore(v1))

		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs:     []uuid.UUID{r1.ID},
			OperationalIDs: []uuid.UUID{preop.ID},
			Principal:      coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("expense already liquidated", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		expense := operationalExpense(v1.ID, 10_000)
		expense.State = model.ExpenseLiquidated
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(expense), newFakeVehicleStore(v1))

		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs:     []uuid.UUID{r1.ID},
			OperationalIDs: []uuid.UUID{expense.ID},
			Principal:      coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("expense claimed by another settlement", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		expense := operationalExpense(v1.ID, 10_000)
		other := uuid.New()
		expense.SettlementID = &other
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(expense), newFakeVehicleStore(v1))

		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs:     []uuid.UUID{r1.ID},
			OperationalIDs: []uuid.UUID{expense.ID},
			Principal:      coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("duplicate number surfaces as conflict", func(t *testing.T) {
		r1 := invoicedRequest("SR-001", 100_000, v1.ID)
		fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))
		fx.settlements.createErr = repository.ErrDuplicateNumber

		_, err := fx.service.Generate(context.Background(), GenerateInput{
			RequestIDs: []uuid.UUID{r1.ID},
			Principal:  coordinatorPrincipal(),
		})
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestApproveIssuesPayablesForNonOwnedLines(t *testing.T) {
	owned := ownedVehicle("GHI-789")
	affiliated := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 800_000, owned.ID, affiliated.ID)
	expense := operationalExpense(affiliated.ID, 100_000)

	fx := newSettlementFixture(
		newFakeRequestStore(r1),
		newFakeExpenseStore(expense),
		newFakeVehicleStore(owned, affiliated),
	)

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs:     []uuid.UUID{r1.ID},
		OperationalIDs: []uuid.UUID{expense.ID},
		Principal:      coordinatorPrincipal(),
	})
	require.NoError(t, err)

	approver := accountingPrincipal()
	approved, err := fx.service.Approve(context.Background(), created.ID, approver, "ok")
	require.NoError(t, err)

	assert.Equal(t, model.SettlementApproved, approved.State)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, approver.UserID, *approved.ApprovedBy)

	require.Len(t, approved.Lines, 2)
	for _, line := range approved.Lines {
		assert.Equal(t, model.LineStateSettledUnpaid, line.State)
		if line.VehicleID == owned.ID {
			assert.Nil(t, line.PayableAccountID, "owned fleet never gets a payable account")
			continue
		}
		require.NotNil(t, line.PayableAccountID)
		account, err := fx.payables.Get(context.Background(), *line.PayableAccountID)
		require.NoError(t, err)
		assert.Equal(t, model.PayableCalculated, account.State)
		assert.Equal(t, r1.ID, account.ServiceRequestID)
		assert.InDelta(t, 400_000, account.Base, 0.001)
		assert.InDelta(t, 100_000, account.Deducted, 0.001)
		assert.InDelta(t, 300_000, account.Net, 0.001)
	}

	assert.Equal(t, model.ExpenseLiquidated, fx.expenses.expenses[expense.ID].State)
}

func TestApproveRequiresAccountingOrAdmin(t *testing.T) {
	fx := newSettlementFixture(newFakeRequestStore(), newFakeExpenseStore(), newFakeVehicleStore())
	_, err := fx.service.Approve(context.Background(), uuid.New(), coordinatorPrincipal(), "")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestApproveTwiceConflicts(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 100_000, v1.ID)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs: []uuid.UUID{r1.ID},
		Principal:  coordinatorPrincipal(),
	})
	require.NoError(t, err)

	_, err = fx.service.Approve(context.Background(), created.ID, accountingPrincipal(), "")
	require.NoError(t, err)

	_, err = fx.service.Approve(context.Background(), created.ID, accountingPrincipal(), "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApproveResumesAfterInterruptedRun(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 100_000, v1.ID)
	expense := operationalExpense(v1.ID, 10_000)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(expense), newFakeVehicleStore(v1))

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs:     []uuid.UUID{r1.ID},
		OperationalIDs: []uuid.UUID{expense.ID},
		Principal:      coordinatorPrincipal(),
	})
	require.NoError(t, err)

	// The first run flips the state and settles the lines, then dies on
	// the expense update.
	fx.expenses.setStateErr = errors.New("connection reset")
	_, err = fx.service.Approve(context.Background(), created.ID, accountingPrincipal(), "ok")
	require.Error(t, err)

	stuck, err := fx.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementApproved, stuck.State)
	assert.Equal(t, model.ExpenseUnliquidated, fx.expenses.expenses[expense.ID].State)

	// Re-invoking Approve finishes the interrupted run instead of
	// conflicting, and never issues a second payable item for the line.
	approved, err := fx.service.Approve(context.Background(), created.ID, accountingPrincipal(), "ok")
	require.NoError(t, err)
	assert.Equal(t, model.SettlementApproved, approved.State)
	assert.Equal(t, model.ExpenseLiquidated, fx.expenses.expenses[expense.ID].State)

	require.Len(t, approved.Lines, 1)
	require.NotNil(t, approved.Lines[0].PayableAccountID)
	account, err := fx.payables.Get(context.Background(), *approved.Lines[0].PayableAccountID)
	require.NoError(t, err)
	require.Len(t, account.Items, 1)
	assert.InDelta(t, 90_000, account.Net, 0.001)

	// Once the run completed, approving again is a plain conflict.
	_, err = fx.service.Approve(context.Background(), created.ID, accountingPrincipal(), "ok")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestApproveGroupsSharedPayeeLinesIntoOneAccount(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	v2 := affiliatedVehicle("DEF-456")
	v2.OwnerID = v1.OwnerID
	v2.OwnerName = v1.OwnerName
	r1 := invoicedRequest("SR-001", 800_000, v1.ID, v2.ID)
	r2 := invoicedRequest("SR-002", 400_000, v1.ID, v2.ID)
	fx := newSettlementFixture(newFakeRequestStore(r1, r2), newFakeExpenseStore(), newFakeVehicleStore(v1, v2))

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs: []uuid.UUID{r1.ID, r2.ID},
		Principal:  coordinatorPrincipal(),
	})
	require.NoError(t, err)
	require.Len(t, created.Lines, 2)
	// Both lines keep the requests in selection order, so they share the
	// same leading request and land in the same payable account.
	assert.Equal(t, []uuid.UUID{r1.ID, r2.ID}, created.Lines[0].RequestIDs)
	assert.Equal(t, []uuid.UUID{r1.ID, r2.ID}, created.Lines[1].RequestIDs)

	approved, err := fx.service.Approve(context.Background(), created.ID, accountingPrincipal(), "")
	require.NoError(t, err)

	require.NotNil(t, approved.Lines[0].PayableAccountID)
	require.NotNil(t, approved.Lines[1].PayableAccountID)
	assert.Equal(t, *approved.Lines[0].PayableAccountID, *approved.Lines[1].PayableAccountID)
	require.Len(t, fx.payables.accounts, 1)

	account, err := fx.payables.Get(context.Background(), *approved.Lines[0].PayableAccountID)
	require.NoError(t, err)
	assert.Equal(t, r1.ID, account.ServiceRequestID)
	require.Len(t, account.Items, 2)
	assert.InDelta(t, 1_200_000, account.Base, 0.001)
}

func TestRejectReleasesRequestsAndExpenses(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 100_000, v1.ID)
	expense := operationalExpense(v1.ID, 10_000)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(expense), newFakeVehicleStore(v1))

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs:     []uuid.UUID{r1.ID},
		OperationalIDs: []uuid.UUID{expense.ID},
		Principal:      coordinatorPrincipal(),
	})
	require.NoError(t, err)

	rejected, err := fx.service.Reject(context.Background(), created.ID, accountingPrincipal(), "valores errados")
	require.NoError(t, err)

	assert.Equal(t, model.SettlementRejected, rejected.State)
	assert.Equal(t, "valores errados", rejected.Notes)
	assert.Equal(t, model.ExpenseUnliquidated, fx.expenses.expenses[expense.ID].State)
	assert.Nil(t, fx.expenses.expenses[expense.ID].SettlementID)
	assert.Contains(t, fx.requests.released, r1.ID)

	// No payable accounts are ever issued on rejection.
	assert.Empty(t, fx.payables.accounts)
}

func TestRejectResumesAfterInterruptedRun(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 100_000, v1.ID)
	expense := operationalExpense(v1.ID, 10_000)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(expense), newFakeVehicleStore(v1))

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs:     []uuid.UUID{r1.ID},
		OperationalIDs: []uuid.UUID{expense.ID},
		Principal:      coordinatorPrincipal(),
	})
	require.NoError(t, err)

	fx.expenses.setStateErr = errors.New("connection reset")
	_, err = fx.service.Reject(context.Background(), created.ID, accountingPrincipal(), "valores errados")
	require.Error(t, err)

	stuck, err := fx.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementRejected, stuck.State)
	require.NotNil(t, fx.expenses.expenses[expense.ID].SettlementID)

	rejected, err := fx.service.Reject(context.Background(), created.ID, accountingPrincipal(), "valores errados")
	require.NoError(t, err)
	assert.Equal(t, model.SettlementRejected, rejected.State)
	assert.Equal(t, model.ExpenseUnliquidated, fx.expenses.expenses[expense.ID].State)
	assert.Nil(t, fx.expenses.expenses[expense.ID].SettlementID)
	assert.Contains(t, fx.requests.released, r1.ID)

	_, err = fx.service.Reject(context.Background(), created.ID, accountingPrincipal(), "valores errados")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPreviewComputesWithoutPersisting(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 500_000, v1.ID)
	expense := operationalExpense(v1.ID, 80_000)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(expense), newFakeVehicleStore(v1))

	preview, err := fx.service.Preview(context.Background(), PreviewInput{
		RequestIDs: []uuid.UUID{r1.ID},
		Principal:  coordinatorPrincipal(),
	})
	require.NoError(t, err)

	require.Len(t, preview.Lines, 1)
	assert.InDelta(t, 500_000, preview.Lines[0].Services, 0.001)
	assert.InDelta(t, 80_000, preview.Lines[0].Expenses, 0.001)
	assert.InDelta(t, 420_000, preview.TotalNet, 0.001)

	assert.Empty(t, fx.settlements.settlements)
}

func TestPreviewRejectsDuplicateRequestIDs(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 500_000, v1.ID)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))

	_, err := fx.service.Preview(context.Background(), PreviewInput{
		RequestIDs: []uuid.UUID{r1.ID, r1.ID},
		Principal:  coordinatorPrincipal(),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSendToClientQueuesApprovedSettlements(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 100_000, v1.ID)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs: []uuid.UUID{r1.ID},
		Principal:  coordinatorPrincipal(),
	})
	require.NoError(t, err)

	sender := accountingPrincipal()
	err = fx.service.SendToClient(context.Background(), created.ID, "", sender)
	assert.ErrorIs(t, err, ErrConflict, "pending settlements cannot be sent")

	_, err = fx.service.Approve(context.Background(), created.ID, sender, "")
	require.NoError(t, err)

	require.NoError(t, fx.service.SendToClient(context.Background(), created.ID, "", sender))
	require.Len(t, fx.dispatcher.sent, 1)
	assert.Equal(t, "ABC-123@example.com", fx.dispatcher.sent[0].recipient)
	assert.Equal(t, sender.UserID, fx.dispatcher.sent[0].actor)
	assert.Equal(t, created.Number, fx.dispatcher.sent[0].doc.Settlement.Number)
}

func TestRenderPDFAndExportExcelNameFilesAfterTheNumber(t *testing.T) {
	v1 := affiliatedVehicle("ABC-123")
	r1 := invoicedRequest("SR-001", 100_000, v1.ID)
	fx := newSettlementFixture(newFakeRequestStore(r1), newFakeExpenseStore(), newFakeVehicleStore(v1))

	created, err := fx.service.Generate(context.Background(), GenerateInput{
		RequestIDs: []uuid.UUID{r1.ID},
		Principal:  coordinatorPrincipal(),
	})
	require.NoError(t, err)

	pdfResult, err := fx.service.RenderPDF(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number+".pdf", pdfResult.FileName)
	assert.NotEmpty(t, pdfResult.Content)

	excelResult, err := fx.service.ExportExcel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number+".xlsx", excelResult.FileName)
}

func TestBuildNumber(t *testing.T) {
	tests := []struct {
		name     string
		client   string
		codes    []string
		expected string
	}{
		{"single request", "Acme Corp", []string{"SR-010"}, "PRELIQ_SR-010_ACME_CORP"},
		{"multiple requests sorted", "Acme Corp", []string{"SR-011", "SR-009"}, "PRELIQ_MULTI_SR-009-SR-011_ACME_CORP"},
		{"client with punctuation", "Minera El Roble S.A.S.", []string{"SR-001"}, "PRELIQ_SR-001_MINERA_EL_ROBLE_SAS"},
		{"underscore runs collapse", "Acme   Corp", []string{"SR-001"}, "PRELIQ_SR-001_ACME_CORP"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			requests := make([]model.ServiceRequest, 0, len(tc.codes))
			for _, code := range tc.codes {
				requests = append(requests, model.ServiceRequest{Code: code, ClientName: tc.client})
			}
			assert.Equal(t, tc.expected, buildNumber(requests))
		})
	}
}

func TestNotifierDeliversAndRecordsSend(t *testing.T) {
	settlements := newFakeSettlementStore()
	settlement := &model.Settlement{
		ID:     uuid.New(),
		Number: "PRELIQ_SR-001_ACME_CORP",
		State:  model.SettlementApproved,
	}
	settlements.settlements[settlement.ID] = settlement

	sender := &recordingSender{}
	notifier := NewNotifier(sender, fakePDFGenerator{}, settlements, zerolog.Nop(), 4, 3)
	notifier.Start()

	actor := uuid.New()
	doc := model.SettlementDocument{Settlement: *settlement, CompanyName: "Rodavia S.A.S."}
	require.NoError(t, notifier.Enqueue(doc, "cliente@example.com", actor))
	notifier.Close()

	require.Len(t, sender.calls, 1)
	assert.Equal(t, "cliente@example.com", sender.calls[0].recipient)
	assert.Equal(t, "Preliquidación PRELIQ_SR-001_ACME_CORP", sender.calls[0].subject)
	assert.Equal(t, settlement.Number+".pdf", sender.calls[0].attachmentName)

	require.Len(t, settlement.SendLog, 1)
	assert.Equal(t, actor, settlement.SendLog[0].SentBy)
	assert.True(t, settlement.SentToClient)
}

func TestNotifierRejectsWhenQueueIsFull(t *testing.T) {
	settlements := newFakeSettlementStore()
	notifier := NewNotifier(&recordingSender{}, fakePDFGenerator{}, settlements, zerolog.Nop(), 1, 1)
	// Not started, so the single buffered slot fills up.

	doc := model.SettlementDocument{Settlement: model.Settlement{ID: uuid.New()}}
	require.NoError(t, notifier.Enqueue(doc, "a@example.com", uuid.New()))
	assert.Error(t, notifier.Enqueue(doc, "b@example.com", uuid.New()))
}

type sentCall struct {
	recipient      string
	subject        string
	attachmentName string
}

type recordingSender struct {
	calls []sentCall
}

func (r *recordingSender) Send(recipient, subject, _, attachmentName string, _ []byte) error {
	r.calls = append(r.calls, sentCall{recipient: recipient, subject: subject, attachmentName: attachmentName})
	return nil
}
