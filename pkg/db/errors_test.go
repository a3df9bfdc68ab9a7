package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name: "pgconn unique violation on matching constraint",
			err: &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "ledger_entries_transaction_id_key",
			},
			constraint: "transaction_id",
			want:       true,
		},
		{
			name: "pgconn unique violation on other constraint",
			err: &pgconn.PgError{
				Code:           "23505",
				ConstraintName: "commission_records_pkey",
			},
			constraint: "transaction_id",
			want:       false,
		},
		{
			name: "pgconn not-null violation mentioning the column",
			err: &pgconn.PgError{
				Code:    "23502",
				Message: `null value in column "transaction_id" violates not-null constraint`,
			},
			constraint: "transaction_id",
			want:       false,
		},
		{
			name: "pq unique violation",
			err: &pq.Error{
				Code:       "23505",
				Constraint: "ledger_entries_transaction_id_key",
			},
			constraint: "transaction_id",
			want:       true,
		},
		{
			name:       "sqlite unique violation",
			err:        errors.New("UNIQUE constraint failed: ledger_entries.transaction_id"),
			constraint: "transaction_id",
			want:       true,
		},
		{
			name:       "sqlite unique violation on other column",
			err:        errors.New("UNIQUE constraint failed: ledger_entries.id"),
			constraint: "transaction_id",
			want:       false,
		},
		{
			name:       "unrelated error mentioning the column",
			err:        fmt.Errorf("invalid input syntax for transaction_id"),
			constraint: "transaction_id",
			want:       false,
		},
		{
			name: "nil error",
			want: false,
		},
		{
			name: "any constraint when name omitted",
			err:  errors.New("UNIQUE constraint failed: ledger_entries.id"),
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}
