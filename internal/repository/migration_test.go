package repository

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationAllowsZeroFeeAmounts(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_fees.up.sql"))
	require.NoError(t, err)
	schema := string(raw)

	assert.Regexp(t, regexp.MustCompile(`total_amount\s+NUMERIC\(14, 2\) NOT NULL CHECK \(total_amount >= 0\)`), schema)
	assert.Regexp(t, regexp.MustCompile(`\bamount\s+NUMERIC\(14, 2\) NOT NULL CHECK \(amount >= 0\)`), schema)
	assert.NotContains(t, schema, "CHECK (amount > 0)")
	assert.NotContains(t, schema, "CHECK (total_amount > 0)")
}
