package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rodavia/transport-settlements/internal/model"
	"github.com/rodavia/transport-settlements/internal/repository"
)

type PDFGenerator interface {
	Generate(doc model.SettlementDocument) ([]byte, error)
}

type ExcelGenerator interface {
	Generate(settlement model.Settlement) ([]byte, error)
}

// Dispatcher queues settlement emails for asynchronous delivery.
type Dispatcher interface {
	Enqueue(doc model.SettlementDocument, recipient string, actor uuid.UUID) error
}

// SettlementService runs the settlement (preliquidación) engine: it groups
// invoiced service requests and unliquidated expenses per vehicle, nets
// them, and drives the pendiente→aprobada/rechazada workflow. Approval
// issues payable accounts for non-owned vehicles.
type SettlementService struct {
	settlements SettlementStore
	requests    RequestStore
	expenses    ExpenseStore
	vehicles    VehicleStore
	payables    PayableStore
	pdf         PDFGenerator
	excel       ExcelGenerator
	notifier    Dispatcher
	companyName string
}

func NewSettlementService(
	settlements SettlementStore,
	requests RequestStore,
	expenses ExpenseStore,
	vehicles VehicleStore,
	payables PayableStore,
	pdf PDFGenerator,
	excel ExcelGenerator,
	notifier Dispatcher,
	companyName string,
) *SettlementService {
	return &SettlementService{
		settlements: settlements,
		requests:    requests,
		expenses:    expenses,
		vehicles:    vehicles,
		payables:    payables,
		pdf:         pdf,
		excel:       excel,
		notifier:    notifier,
		companyName: companyName,
	}
}

type GenerateInput struct {
	RequestIDs        []uuid.UUID
	OperationalIDs    []uuid.UUID
	PreoperationalIDs []uuid.UUID
	Notes             string
	Principal         model.Principal
}

// Generate computes and persists one settlement in pendiente state. All
// preconditions are checked before the first write; the persist itself is
// all or nothing, so a failed run leaves no partial state behind.
func (s *SettlementService) Generate(ctx context.Context, input GenerateInput) (*model.Settlement, error) {
	if input.Principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	if len(input.RequestIDs) == 0 {
		return nil, fmt.Errorf("%w: service_request_ids is required", ErrInvalidInput)
	}
	if dup := firstDuplicate(input.RequestIDs); dup != nil {
		return nil, fmt.Errorf("%w: service request %s is listed more than once", ErrInvalidInput, dup)
	}
	if dup := firstDuplicate(input.OperationalIDs); dup != nil {
		return nil, fmt.Errorf("%w: operational expense %s is listed more than once", ErrInvalidInput, dup)
	}
	if dup := firstDuplicate(input.PreoperationalIDs); dup != nil {
		return nil, fmt.Errorf("%w: preoperational expense %s is listed more than once", ErrInvalidInput, dup)
	}

	requests, err := s.loadRequests(ctx, input.RequestIDs)
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		if !req.Invoiced() {
			return nil, fmt.Errorf("%w: service request %s is not invoiced", ErrInvalidInput, req.Code)
		}
	}
	for _, req := range requests {
		if len(req.SettlementIDs) > 0 {
			return nil, fmt.Errorf("%w: service request %s is already referenced by settlement %s",
				ErrConflict, req.Code, req.SettlementIDs[0])
		}
	}

	operational, err := s.loadExpenses(ctx, input.OperationalIDs, model.ExpenseOperational)
	if err != nil {
		return nil, err
	}
	preoperational, err := s.loadExpenses(ctx, input.PreoperationalIDs, model.ExpensePreoperational)
	if err != nil {
		return nil, err
	}

	vehicles, err := s.loadVehicles(ctx, requests, operational)
	if err != nil {
		return nil, err
	}

	lines, err := buildLines(requests, operational, vehicles)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	settlement := &model.Settlement{
		ID:                uuid.New(),
		CompanyID:         input.Principal.CompanyID,
		Number:            buildNumber(requests),
		GeneratedAt:       now,
		ClientName:        requests[0].ClientName,
		RequestIDs:        input.RequestIDs,
		OperationalIDs:    input.OperationalIDs,
		PreoperationalIDs: input.PreoperationalIDs,
		Lines:             lines,
		State:             model.SettlementPending,
		Notes:             input.Notes,
		CreatedBy:         input.Principal.UserID,
		CreatedAt:         now,
	}

	// Consolidated totals come from the request and expense records, not
	// from the per-vehicle lines, so split rounding never double counts.
	for _, req := range requests {
		settlement.TotalServices += req.ClientValue
	}
	for _, expense := range operational {
		settlement.TotalOperational += expense.Total()
	}
	for _, expense := range preoperational {
		settlement.TotalPreoperational += expense.Total()
	}
	settlement.TotalNet = settlement.TotalServices - (settlement.TotalOperational + settlement.TotalPreoperational)

	for i := range settlement.Lines {
		settlement.Lines[i].SettlementID = settlement.ID
	}

	if err := s.settlements.Create(ctx, settlement); err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadySettled):
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		case errors.Is(err, repository.ErrDuplicateNumber):
			return nil, fmt.Errorf("%w: settlement number %s already exists", ErrConflict, settlement.Number)
		}
		return nil, err
	}
	return s.Get(ctx, settlement.ID)
}

// Approve transitions a pending settlement to aprobada, issues payable
// accounts for every non-propio line and marks the referenced expenses as
// liquidado. The state flip commits first; the line and expense updates
// after it are idempotent, so an interrupted run can be re-driven by
// calling Approve again. A fully approved settlement conflicts, which
// keeps re-invocation from ever double-issuing payables.
func (s *SettlementService) Approve(ctx context.Context, id uuid.UUID, principal model.Principal, notes string) (*model.Settlement, error) {
	if !(principal.IsAdmin() || principal.IsAccounting()) {
		return nil, ErrPermissionDenied
	}

	settlement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch settlement.State {
	case model.SettlementPending:
		ok, err := s.settlements.Transition(ctx, id, model.SettlementPending, model.SettlementApproved, principal.UserID, notes, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: settlement %s is no longer %s",
				ErrConflict, settlement.Number, model.SettlementPending)
		}
	case model.SettlementApproved:
		incomplete, err := s.approvalIncomplete(ctx, settlement)
		if err != nil {
			return nil, err
		}
		if !incomplete {
			return nil, fmt.Errorf("%w: settlement %s is already %s",
				ErrConflict, settlement.Number, settlement.State)
		}
	default:
		return nil, fmt.Errorf("%w: settlement %s is %s, not %s",
			ErrConflict, settlement.Number, settlement.State, model.SettlementPending)
	}

	for _, line := range settlement.Lines {
		if line.State != model.LineStatePending {
			continue
		}
		var payableID *uuid.UUID
		if line.FleetType != model.FleetOwned {
			account, err := s.issuePayable(ctx, settlement, line, now)
			if err != nil {
				return nil, err
			}
			payableID = &account.ID
		}
		if err := s.settlements.UpdateLine(ctx, line.ID, model.LineStateSettledUnpaid, payableID); err != nil {
			return nil, err
		}
	}

	if err := s.expenses.SetState(ctx, settlement.ExpenseIDs(), model.ExpenseLiquidated); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// approvalIncomplete reports whether an approved settlement still carries
// leftovers from an interrupted approval: lines in pendiente or referenced
// expenses that never reached liquidado.
func (s *SettlementService) approvalIncomplete(ctx context.Context, settlement *model.Settlement) (bool, error) {
	for _, line := range settlement.Lines {
		if line.State == model.LineStatePending {
			return true, nil
		}
	}
	ids := settlement.ExpenseIDs()
	if len(ids) == 0 {
		return false, nil
	}
	expenses, err := s.expenses.GetByIDs(ctx, ids)
	if err != nil {
		return false, err
	}
	for _, expense := range expenses {
		if expense.State != model.ExpenseLiquidated {
			return true, nil
		}
	}
	return false, nil
}

// Reject transitions a pending settlement to rechazada and undoes the
// selection: expenses return to no_liquidado and every request drops this
// settlement's reference and goes back to plain invoiced. Like Approve,
// the cleanup after the flip is idempotent and a re-invocation resumes it
// when the previous run was interrupted.
func (s *SettlementService) Reject(ctx context.Context, id uuid.UUID, principal model.Principal, notes string) (*model.Settlement, error) {
	if !(principal.IsAdmin() || principal.IsAccounting()) {
		return nil, ErrPermissionDenied
	}

	settlement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch settlement.State {
	case model.SettlementPending:
		ok, err := s.settlements.Transition(ctx, id, model.SettlementPending, model.SettlementRejected, principal.UserID, notes, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: settlement %s is no longer %s",
				ErrConflict, settlement.Number, model.SettlementPending)
		}
	case model.SettlementRejected:
		incomplete, err := s.rejectionIncomplete(ctx, settlement)
		if err != nil {
			return nil, err
		}
		if !incomplete {
			return nil, fmt.Errorf("%w: settlement %s is already %s",
				ErrConflict, settlement.Number, settlement.State)
		}
	default:
		return nil, fmt.Errorf("%w: settlement %s is %s, not %s",
			ErrConflict, settlement.Number, settlement.State, model.SettlementPending)
	}

	// Only expenses still claimed by this settlement are reverted; an
	// expense released earlier and re-claimed by a newer run stays put.
	claimed, err := s.claimedExpenseIDs(ctx, settlement)
	if err != nil {
		return nil, err
	}
	if err := s.expenses.SetState(ctx, claimed, model.ExpenseUnliquidated); err != nil {
		return nil, err
	}
	for _, requestID := range settlement.RequestIDs {
		if err := s.requests.Release(ctx, requestID, settlement.ID); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

// rejectionIncomplete reports whether a rejected settlement still holds
// any of its claims: expenses pointing at it, or requests left in
// por_liquidar with no live settlement referencing them.
func (s *SettlementService) rejectionIncomplete(ctx context.Context, settlement *model.Settlement) (bool, error) {
	claimed, err := s.claimedExpenseIDs(ctx, settlement)
	if err != nil {
		return false, err
	}
	if len(claimed) > 0 {
		return true, nil
	}
	requests, err := s.requests.GetByIDs(ctx, settlement.RequestIDs)
	if err != nil {
		return false, err
	}
	for _, req := range requests {
		if req.Billing == model.BillingReadyToSettle && len(req.SettlementIDs) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *SettlementService) claimedExpenseIDs(ctx context.Context, settlement *model.Settlement) ([]uuid.UUID, error) {
	ids := settlement.ExpenseIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	expenses, err := s.expenses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var claimed []uuid.UUID
	for _, expense := range expenses {
		if expense.SettlementID != nil && *expense.SettlementID == settlement.ID {
			claimed = append(claimed, expense.ID)
		}
	}
	return claimed, nil
}

func (s *SettlementService) Get(ctx context.Context, id uuid.UUID) (*model.Settlement, error) {
	settlement, err := s.settlements.Get(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: settlement %s", ErrNotFound, id)
		}
		return nil, err
	}
	return settlement, nil
}

func (s *SettlementService) List(ctx context.Context, filter model.SettlementFilter) ([]model.Settlement, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	return s.settlements.List(ctx, filter)
}

type PreviewInput struct {
	RequestIDs []uuid.UUID
	Principal  model.Principal
}

type Preview struct {
	Lines               []model.VehicleSettlement
	TotalServices       float64
	TotalOperational    float64
	TotalPreoperational float64
	TotalNet            float64
}

// Preview computes the per-vehicle lines a settlement run would produce
// for the given requests, pulling in the vehicles' current unliquidated
// expenses. Nothing is persisted.
func (s *SettlementService) Preview(ctx context.Context, input PreviewInput) (*Preview, error) {
	if input.Principal.IsDriver() {
		return nil, ErrPermissionDenied
	}
	if len(input.RequestIDs) == 0 {
		return nil, fmt.Errorf("%w: service_request_ids is required", ErrInvalidInput)
	}
	if dup := firstDuplicate(input.RequestIDs); dup != nil {
		return nil, fmt.Errorf("%w: service request %s is listed more than once", ErrInvalidInput, dup)
	}

	requests, err := s.loadRequests(ctx, input.RequestIDs)
	if err != nil {
		return nil, err
	}

	vehicleIDs := make([]uuid.UUID, 0, len(requests))
	seen := make(map[uuid.UUID]struct{})
	for _, req := range requests {
		for _, assignment := range req.Assignments {
			if _, ok := seen[assignment.VehicleID]; ok {
				continue
			}
			seen[assignment.VehicleID] = struct{}{}
			vehicleIDs = append(vehicleIDs, assignment.VehicleID)
		}
	}

	pending, err := s.expenses.ListUnliquidatedByVehicles(ctx, vehicleIDs)
	if err != nil {
		return nil, err
	}
	var operational, preoperational []model.Expense
	for _, expense := range pending {
		if expense.Kind == model.ExpensePreoperational {
			preoperational = append(preoperational, expense)
			continue
		}
		operational = append(operational, expense)
	}

	vehicles, err := s.loadVehicles(ctx, requests, operational)
	if err != nil {
		return nil, err
	}
	lines, err := buildLines(requests, operational, vehicles)
	if err != nil {
		return nil, err
	}

	preview := &Preview{Lines: lines}
	for _, req := range requests {
		preview.TotalServices += req.ClientValue
	}
	for _, expense := range operational {
		preview.TotalOperational += expense.Total()
	}
	for _, expense := range preoperational {
		preview.TotalPreoperational += expense.Total()
	}
	preview.TotalNet = preview.TotalServices - (preview.TotalOperational + preview.TotalPreoperational)
	return preview, nil
}

type ExportResult struct {
	FileName string
	Content  []byte
}

func (s *SettlementService) RenderPDF(ctx context.Context, id uuid.UUID) (*ExportResult, error) {
	settlement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := s.pdf.Generate(model.SettlementDocument{Settlement: *settlement, CompanyName: s.companyName})
	if err != nil {
		return nil, err
	}
	return &ExportResult{FileName: settlement.Number + ".pdf", Content: content}, nil
}

func (s *SettlementService) ExportExcel(ctx context.Context, id uuid.UUID) (*ExportResult, error) {
	settlement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	content, err := s.excel.Generate(*settlement)
	if err != nil {
		return nil, err
	}
	return &ExportResult{FileName: settlement.Number + ".xlsx", Content: content}, nil
}

// SendToClient queues the settlement PDF for email delivery. Only approved
// settlements are sent, and delivery runs outside this call: a failed
// render or send never touches the settlement state.
func (s *SettlementService) SendToClient(ctx context.Context, id uuid.UUID, recipient string, principal model.Principal) error {
	if principal.IsDriver() {
		return ErrPermissionDenied
	}

	settlement, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if settlement.State != model.SettlementApproved {
		return fmt.Errorf("%w: settlement %s is %s, only approved settlements can be sent",
			ErrConflict, settlement.Number, settlement.State)
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		for _, line := range settlement.Lines {
			if line.FleetType != model.FleetOwned && line.PayeeEmail != "" {
				recipient = line.PayeeEmail
				break
			}
		}
	}
	if recipient == "" {
		return fmt.Errorf("%w: no recipient available for settlement %s", ErrInvalidInput, settlement.Number)
	}

	doc := model.SettlementDocument{Settlement: *settlement, CompanyName: s.companyName}
	return s.notifier.Enqueue(doc, recipient, principal.UserID)
}

func (s *SettlementService) loadRequests(ctx context.Context, ids []uuid.UUID) ([]model.ServiceRequest, error) {
	requests, err := s.requests.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(ids, requestIDSet(requests)); len(missing) > 0 {
		return nil, fmt.Errorf("%w: service requests not found: %s", ErrNotFound, joinIDs(missing))
	}
	return requests, nil
}

func (s *SettlementService) loadExpenses(ctx context.Context, ids []uuid.UUID, kind model.ExpenseKind) ([]model.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	expenses, err := s.expenses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]struct{}, len(expenses))
	for _, expense := range expenses {
		found[expense.ID] = struct{}{}
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, fmt.Errorf("%w: expenses not found: %s", ErrNotFound, joinIDs(missing))
	}
	for _, expense := range expenses {
		if expense.Kind != kind {
			return nil, fmt.Errorf("%w: expense %s is %s, expected %s", ErrInvalidInput, expense.ID, expense.Kind, kind)
		}
		if expense.State != model.ExpenseUnliquidated {
			return nil, fmt.Errorf("%w: expense %s is already %s", ErrConflict, expense.ID, expense.State)
		}
		if expense.SettlementID != nil {
			return nil, fmt.Errorf("%w: expense %s is already referenced by settlement %s",
				ErrConflict, expense.ID, expense.SettlementID)
		}
	}
	return expenses, nil
}

func (s *SettlementService) loadVehicles(ctx context.Context, requests []model.ServiceRequest, operational []model.Expense) (map[uuid.UUID]model.Vehicle, error) {
	var ids []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, req := range requests {
		for _, assignment := range req.Assignments {
			add(assignment.VehicleID)
		}
	}
	for _, expense := range operational {
		add(expense.VehicleID)
	}

	vehicles, err := s.vehicles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.Vehicle, len(vehicles))
	for _, vehicle := range vehicles {
		byID[vehicle.ID] = vehicle
	}
	if missing := missingIDs(ids, vehicleIDSet(vehicles)); len(missing) > 0 {
		return nil, fmt.Errorf("%w: vehicles not found: %s", ErrNotFound, joinIDs(missing))
	}
	return byID, nil
}

func (s *SettlementService) issuePayable(ctx context.Context, settlement *model.Settlement, line model.VehicleSettlement, now time.Time) (*model.PayableAccount, error) {
	if len(line.RequestIDs) == 0 {
		return nil, fmt.Errorf("%w: settlement line %s has no service requests", ErrInvalidInput, line.ID)
	}
	firstRequest := line.RequestIDs[0]

	account, err := s.payables.FindByPayeeAndRequest(ctx, line.PayeeID, firstRequest)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}
		account = &model.PayableAccount{
			ID:               uuid.New(),
			CompanyID:        settlement.CompanyID,
			PayeeKind:        line.PayeeKind,
			PayeeID:          line.PayeeID,
			PayeeName:        line.PayeeName,
			ServiceRequestID: firstRequest,
			State:            model.PayablePending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.payables.Create(ctx, account); err != nil {
			return nil, err
		}
	}

	item := model.PayableItem{
		ID:                  uuid.New(),
		PayableAccountID:    account.ID,
		VehicleSettlementID: line.ID,
		VehicleID:           line.VehicleID,
		Plate:               line.Plate,
		Base:                line.Services,
		Deducted:            line.Expenses,
		Net:                 line.Net,
		CreatedAt:           now,
	}
	return s.payables.AddItem(ctx, account.ID, item)
}

// buildLines folds requests and operational expenses into one accumulator
// per vehicle, in first-seen order. A multi-vehicle request contributes an
// equal share of its billed value to every assigned vehicle.
// Pre-operational expenses never enter the per-vehicle lines; they only
// count against the consolidated totals.
func buildLines(requests []model.ServiceRequest, operational []model.Expense, vehicles map[uuid.UUID]model.Vehicle) ([]model.VehicleSettlement, error) {
	var order []uuid.UUID
	accs := make(map[uuid.UUID]*model.VehicleSettlement)

	acc := func(vehicleID uuid.UUID) (*model.VehicleSettlement, error) {
		if line, ok := accs[vehicleID]; ok {
			return line, nil
		}
		vehicle, ok := vehicles[vehicleID]
		if !ok {
			return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, vehicleID)
		}
		payeeKind, payeeID, payeeName := vehicle.Payee()
		line := &model.VehicleSettlement{
			ID:         uuid.New(),
			VehicleID:  vehicle.ID,
			Plate:      vehicle.Plate,
			FleetType:  vehicle.FleetType,
			PayeeKind:  payeeKind,
			PayeeID:    payeeID,
			PayeeName:  payeeName,
			PayeeEmail: vehicle.OwnerEmail,
			State:      model.LineStatePending,
		}
		accs[vehicleID] = line
		order = append(order, vehicleID)
		return line, nil
	}

	for _, req := range requests {
		if len(req.Assignments) == 0 {
			return nil, fmt.Errorf("%w: service request %s has no vehicle assignments", ErrInvalidInput, req.Code)
		}
		share := req.ClientValue / float64(len(req.Assignments))
		for _, assignment := range req.Assignments {
			line, err := acc(assignment.VehicleID)
			if err != nil {
				return nil, err
			}
			line.Services += share
			line.RequestIDs = appendUnique(line.RequestIDs, req.ID)
		}
	}

	for _, expense := range operational {
		line, err := acc(expense.VehicleID)
		if err != nil {
			return nil, err
		}
		line.Expenses += expense.Total()
		line.ExpenseIDs = appendUnique(line.ExpenseIDs, expense.ID)
	}

	lines := make([]model.VehicleSettlement, 0, len(order))
	for _, vehicleID := range order {
		line := accs[vehicleID]
		line.Net = line.Services - line.Expenses
		lines = append(lines, *line)
	}
	return lines, nil
}

// buildNumber derives the deterministic settlement number from the client
// name and the sorted human-readable request codes.
func buildNumber(requests []model.ServiceRequest) string {
	codes := make([]string, 0, len(requests))
	for _, req := range requests {
		codes = append(codes, req.Code)
	}
	sort.Strings(codes)

	client := sanitizeClientToken(requests[0].ClientName)
	if len(codes) == 1 {
		return fmt.Sprintf("PRELIQ_%s_%s", codes[0], client)
	}
	return fmt.Sprintf("PRELIQ_MULTI_%s-%s_%s", codes[0], codes[len(codes)-1], client)
}

// sanitizeClientToken uppercases the client name, turns spaces into
// underscores, strips everything that is not alphanumeric and collapses
// underscore runs.
func sanitizeClientToken(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range upper {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == ' ', r == '_':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

func firstDuplicate(ids []uuid.UUID) *uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			dup := id
			return &dup
		}
		seen[id] = struct{}{}
	}
	return nil
}

func appendUnique(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func requestIDSet(requests []model.ServiceRequest) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(requests))
	for _, req := range requests {
		set[req.ID] = struct{}{}
	}
	return set
}

func vehicleIDSet(vehicles []model.Vehicle) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(vehicles))
	for _, vehicle := range vehicles {
		set[vehicle.ID] = struct{}{}
	}
	return set
}

func missingIDs(wanted []uuid.UUID, found map[uuid.UUID]struct{}) []uuid.UUID {
	var missing []uuid.UUID
	for _, id := range wanted {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, ", ")
}
