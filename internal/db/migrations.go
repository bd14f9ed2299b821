package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS companies (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS persons (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255),
		company_id UUID REFERENCES companies(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id),
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		plate VARCHAR(16) NOT NULL,
		fleet_type VARCHAR(16) NOT NULL,
		owner_kind VARCHAR(16) NOT NULL,
		owner_company_id UUID REFERENCES companies(id),
		owner_person_id UUID REFERENCES persons(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_vehicles_plate ON vehicles (plate);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id),
		client_id UUID NOT NULL REFERENCES clients(id),
		contract_type VARCHAR(16) NOT NULL DEFAULT 'fijo',
		hour_rate NUMERIC(18,2) NOT NULL DEFAULT 0,
		km_rate NUMERIC(18,2) NOT NULL DEFAULT 0,
		trip_rate NUMERIC(18,2) NOT NULL DEFAULT 0,
		tariff_rate NUMERIC(18,2) NOT NULL DEFAULT 0,
		budget_period VARCHAR(16) NOT NULL DEFAULT 'mensual',
		budget_cap NUMERIC(18,2),
		consumed NUMERIC(18,2) NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_client_id ON contracts (client_id);`,
	`CREATE TABLE IF NOT EXISTS contract_events (
		id UUID PRIMARY KEY,
		contract_id UUID NOT NULL REFERENCES contracts(id),
		kind VARCHAR(32) NOT NULL,
		prev_cap NUMERIC(18,2),
		new_cap NUMERIC(18,2),
		prev_consumed NUMERIC(18,2) NOT NULL,
		new_consumed NUMERIC(18,2) NOT NULL,
		service_request_id UUID,
		amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		mode VARCHAR(32) NOT NULL DEFAULT 'dentro_contrato',
		actor UUID NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contract_events_contract_id ON contract_events (contract_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		logbook_id UUID NOT NULL,
		code VARCHAR(64) NOT NULL,
		client_id UUID NOT NULL REFERENCES clients(id),
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		origin VARCHAR(255) NOT NULL,
		destination VARCHAR(255) NOT NULL,
		client_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		paid_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		utility NUMERIC(18,2) NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'pendiente',
		execution VARCHAR(16) NOT NULL DEFAULT 'sin_iniciar',
		billing VARCHAR(16) NOT NULL DEFAULT 'sin_facturar',
		invoice_number VARCHAR(64),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_service_requests_code ON service_requests (code);`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_billing ON service_requests (billing);`,
	`CREATE TABLE IF NOT EXISTS service_request_vehicles (
		request_id UUID NOT NULL REFERENCES service_requests(id) ON DELETE CASCADE,
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		driver_id UUID,
		seats INT NOT NULL DEFAULT 0,
		contract_mode VARCHAR(32),
		contract_amount NUMERIC(18,2),
		PRIMARY KEY (request_id, vehicle_id)
	);`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		company_id UUID NOT NULL REFERENCES companies(id),
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		kind VARCHAR(16) NOT NULL,
		state VARCHAR(16) NOT NULL DEFAULT 'no_liquidado',
		settlement_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_vehicle_state ON expenses (vehicle_id, state);`,
	`CREATE TABLE IF NOT EXISTS expense_items (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		expense_id UUID NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		concept VARCHAR(64) NOT NULL,
		value NUMERIC(18,2) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS settlements (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id),
		number VARCHAR(255) NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL,
		client_name VARCHAR(255) NOT NULL,
		total_services NUMERIC(18,2) NOT NULL,
		total_operational NUMERIC(18,2) NOT NULL,
		total_preoperational NUMERIC(18,2) NOT NULL,
		total_net NUMERIC(18,2) NOT NULL,
		state VARCHAR(16) NOT NULL DEFAULT 'pendiente',
		approved_by UUID,
		approved_at TIMESTAMPTZ,
		rejected_by UUID,
		rejected_at TIMESTAMPTZ,
		notes TEXT,
		sent_to_client BOOLEAN NOT NULL DEFAULT FALSE,
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_settlements_number ON settlements (number);`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_company_state ON settlements (company_id, state);`,
	`CREATE TABLE IF NOT EXISTS settlement_requests (
		settlement_id UUID NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
		request_id UUID NOT NULL REFERENCES service_requests(id),
		position INT NOT NULL DEFAULT 0,
		PRIMARY KEY (settlement_id, request_id)
	);`,
	`CREATE TABLE IF NOT EXISTS settlement_expenses (
		settlement_id UUID NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
		expense_id UUID NOT NULL REFERENCES expenses(id),
		PRIMARY KEY (settlement_id, expense_id)
	);`,
	`CREATE TABLE IF NOT EXISTS settlement_lines (
		id UUID PRIMARY KEY,
		settlement_id UUID NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
		position INT NOT NULL,
		vehicle_id UUID NOT NULL REFERENCES vehicles(id),
		plate VARCHAR(16) NOT NULL,
		fleet_type VARCHAR(16) NOT NULL,
		payee_kind VARCHAR(16) NOT NULL,
		payee_id UUID NOT NULL,
		payee_name VARCHAR(255) NOT NULL,
		payee_email VARCHAR(255),
		services NUMERIC(18,2) NOT NULL,
		expenses NUMERIC(18,2) NOT NULL,
		net NUMERIC(18,2) NOT NULL,
		state VARCHAR(32) NOT NULL DEFAULT 'pendiente',
		payable_account_id UUID
	);`,
	`CREATE INDEX IF NOT EXISTS idx_settlement_lines_settlement ON settlement_lines (settlement_id, position);`,
	`CREATE TABLE IF NOT EXISTS settlement_line_requests (
		line_id UUID NOT NULL REFERENCES settlement_lines(id) ON DELETE CASCADE,
		request_id UUID NOT NULL REFERENCES service_requests(id),
		position INT NOT NULL DEFAULT 0,
		PRIMARY KEY (line_id, request_id)
	);`,
	`CREATE TABLE IF NOT EXISTS settlement_line_expenses (
		line_id UUID NOT NULL REFERENCES settlement_lines(id) ON DELETE CASCADE,
		expense_id UUID NOT NULL REFERENCES expenses(id),
		PRIMARY KEY (line_id, expense_id)
	);`,
	`CREATE TABLE IF NOT EXISTS settlement_sends (
		settlement_id UUID NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
		recipient VARCHAR(255) NOT NULL,
		sent_by UUID NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS payable_accounts (
		id UUID PRIMARY KEY,
		company_id UUID NOT NULL REFERENCES companies(id),
		payee_kind VARCHAR(16) NOT NULL,
		payee_id UUID NOT NULL,
		payee_name VARCHAR(255) NOT NULL,
		service_request_id UUID NOT NULL REFERENCES service_requests(id),
		base_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		deducted_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		net_value NUMERIC(18,2) NOT NULL DEFAULT 0,
		state VARCHAR(16) NOT NULL DEFAULT 'pendiente',
		support_document TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_payable_accounts_payee_request ON payable_accounts (payee_id, service_request_id);`,
	`CREATE TABLE IF NOT EXISTS payable_items (
		id UUID PRIMARY KEY,
		payable_account_id UUID NOT NULL REFERENCES payable_accounts(id) ON DELETE CASCADE,
		vehicle_settlement_id UUID NOT NULL,
		vehicle_id UUID NOT NULL,
		plate VARCHAR(16) NOT NULL,
		base_value NUMERIC(18,2) NOT NULL,
		deducted_value NUMERIC(18,2) NOT NULL,
		net_value NUMERIC(18,2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_payable_items_line ON payable_items (vehicle_settlement_id);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
