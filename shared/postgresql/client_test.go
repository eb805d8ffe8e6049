package postgresql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "hoarder",
		Password: "secret",
		Database: "jobs",
	}
	assert.Equal(t, "host=localhost port=5432 user=hoarder password=secret dbname=jobs sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestConstraintViolations(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	fk := &pq.Error{Code: "23503"}
	check := &pq.Error{Code: "23514", Constraint: "summarized_job_salary_range"}

	tests := []struct {
		name              string
		err               error
		unique, fk, check bool
	}{
		{name: "nil", err: nil},
		{name: "plain error", err: errors.New("boom")},
		{name: "unique", err: unique, unique: true},
		{name: "wrapped unique", err: fmt.Errorf("insert company: %w", unique), unique: true},
		{name: "foreign key", err: fk, fk: true},
		{name: "check", err: check, check: true},
		{name: "wrapped check", err: fmt.Errorf("update enrichment: %w", check), check: true},
		{name: "other sqlstate", err: &pq.Error{Code: "40001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueViolation(tt.err))
			assert.Equal(t, tt.fk, IsForeignKeyViolation(tt.err))
			assert.Equal(t, tt.check, IsCheckViolation(tt.err))
		})
	}
}
