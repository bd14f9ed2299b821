package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodavia/transport-settlements/internal/model"
)

func sampleDocument() model.SettlementDocument {
	return model.SettlementDocument{
		CompanyName: "Rodavia S.A.S.",
		Settlement: model.Settlement{
			ID:          uuid.New(),
			Number:      "PRELIQ_SR-001_ACME_CORP",
			GeneratedAt: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			ClientName:  "Acme Corp",
			Lines: []model.VehicleSettlement{
				{
					ID:        uuid.New(),
					VehicleID: uuid.New(),
					Plate:     "ABC-123",
					FleetType: model.FleetAffiliated,
					PayeeName: "Transportes García",
					Services:  1_300_000,
					Expenses:  150_000,
					Net:       1_150_000,
				},
			},
			TotalServices:       1_300_000,
			TotalOperational:    150_000,
			TotalPreoperational: 50_000,
			TotalNet:            1_100_000,
			State:               model.SettlementPending,
			Notes:               "preliquidación de marzo",
		},
	}
}

func TestGenerateProducesPDF(t *testing.T) {
	generator, err := NewGenerator()
	require.NoError(t, err)

	content, err := generator.Generate(sampleDocument())
	require.NoError(t, err)
	require.NotEmpty(t, content)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")), "output should start with the PDF magic bytes")
}

func TestGenerateHandlesEmptyLines(t *testing.T) {
	generator, err := NewGenerator()
	require.NoError(t, err)

	doc := sampleDocument()
	doc.Settlement.Lines = nil
	doc.Settlement.Notes = ""

	content, err := generator.Generate(doc)
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}
