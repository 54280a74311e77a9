package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertSpec{
		Table:        "listings.raw",
		Columns:      []string{"listing_key", "public_payload"},
		ConflictKeys: []string{"listing_key"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertSpec{
		Table:        "listings.raw",
		ConflictKeys: []string{"listing_key"},
	}, [][]any{{"A1", "{}"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertSpec{
		Table:   "listings.raw",
		Columns: []string{"listing_key", "public_payload"},
	}, [][]any{{"A1", "{}"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_CopyAndInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_listings_sold"}, []string{"listing_key", "status"}).
		WillReturnResult(2)
	mock.ExpectExec("INSERT INTO \"listings\".\"sold\"").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertSpec{
		Table:        "listings.sold",
		Columns:      []string{"listing_key", "status"},
		ConflictKeys: []string{"listing_key"},
	}, [][]any{{"A1", "Sold"}, {"B2", "Expired"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"listings.sold", `"listings"."sold"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"listing_key", "status", "closed_date"`,
		quoteAndJoin([]string{"listing_key", "status", "closed_date"}))
}
