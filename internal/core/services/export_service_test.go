package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"cardpool/internal/adapters/persistence/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")
	bob := f.createMember(t, "bob")

	f.addExpense(t, alice.ID, 120000)
	f.addExpense(t, bob.ID, 45000)

	exportService := NewExportService(repositories.NewExpenseRepository(f.db))

	data, err := exportService.ExportCSV(ctx)
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	records, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows
	assert.Equal(t, exportHeader, records[0])

	nicknames := []string{records[1][1], records[2][1]}
	assert.Contains(t, nicknames, "alice")
	assert.Contains(t, nicknames, "bob")
}

func TestExportXLSX(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.createMember(t, "alice")

	f.addExpense(t, alice.ID, 120000)

	exportService := NewExportService(repositories.NewExpenseRepository(f.db))

	data, err := exportService.ExportXLSX(ctx)
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Expenses")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[1][1])
	assert.Equal(t, "120000", rows[1][2])
}
