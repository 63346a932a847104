package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("TEXTGEN_API_KEY", "")
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"quotectl"}, args...))
	return out.String(), err
}

func TestInsurers_FiltersByProduct(t *testing.T) {
	out, err := run(t, "insurers", "--product", "consortium")
	require.NoError(t, err)

	assert.Contains(t, out, "porto")
	assert.Contains(t, out, "ademicon")
	assert.NotContains(t, out, "allianz")
}

func TestInsurers_UnknownProduct(t *testing.T) {
	_, err := run(t, "insurers", "--product", "boat")
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}

func TestQuote_JSON(t *testing.T) {
	out, err := run(t, "quote", "--product", "auto", "--age", "30", "--value", "85000", "--json")
	require.NoError(t, err)

	var batch domain.QuoteBatch
	require.NoError(t, json.Unmarshal([]byte(out), &batch))
	assert.Len(t, batch.Results, 3)
	for _, r := range batch.Results {
		assert.Equal(t, domain.QuoteSuccess, r.Status)
	}
}

func TestQuote_Table(t *testing.T) {
	out, err := run(t, "quote", "--product", "Seguro Residencial", "--value", "400000")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Batch "))
	assert.Contains(t, out, "Porto Seguro")
	assert.Contains(t, out, "R$ ")
}

func TestIntake_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lead.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "Marcos Lima", "age": 50, "product": "auto", "inputValue": 120000}`), 0o600))

	out, err := run(t, "intake", "--file", path)
	require.NoError(t, err)

	var lead domain.Lead
	require.NoError(t, json.Unmarshal([]byte(out), &lead))
	assert.Equal(t, "Marcos Lima (Web)", lead.Name)
	assert.Len(t, lead.PreCalculatedQuotes, 3)
	assert.True(t, lead.ReadyToPropose)
}

func TestIntake_RejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lead.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"product": "auto"}`), 0o600))

	_, err := run(t, "intake", "--file", path)
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}
