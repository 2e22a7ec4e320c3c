package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/payroll-extract/internal/domain"
)

func TestBatch_Run(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeDoc(t, dir, "sep.txt", "Competencia 09/2025", "123456 JOHN DOE", "Developer", "1.000,00 800,00"),
		writeDoc(t, dir, "broken.txt", "123456 JOHN DOE", "Developer", "1.000,00 800,00"),
		writeDoc(t, dir, "oct.txt", "Competencia 10/2025", "123456 JOHN DOE", "Developer", "1.100,00 880,00"),
	}

	var done []string
	items, err := NewBatch(newService(t, DefaultOptions()), 2).
		OnDone(func(it BatchItem) { done = append(done, it.Source) }).
		Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.ElementsMatch(t, paths, done)

	assert.NoError(t, items[0].Err)
	assert.Equal(t, domain.Period{Month: 9, Year: 2025}, items[0].Result.Payroll.Period())

	assert.True(t, domain.IsType(items[1].Err, domain.ErrorTypePeriodNotDetected))
	assert.Nil(t, items[1].Result)

	assert.NoError(t, items[2].Err)
	assert.Equal(t, paths[2], items[2].Source)
	assert.Equal(t, domain.Period{Month: 10, Year: 2025}, items[2].Result.Payroll.Period())
}

func TestBatch_Cancelled(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeDoc(t, dir, "a.txt", "Competencia 09/2025", "123456 JOHN DOE", "Developer", "1.000,00 800,00"),
		writeDoc(t, dir, "b.txt", "Competencia 09/2025", "123456 JOHN DOE", "Developer", "1.000,00 800,00"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := NewBatch(newService(t, DefaultOptions()), 0).Run(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.ErrorIs(t, it.Err, context.Canceled)
	}
}

func TestNewBatch_DefaultConcurrency(t *testing.T) {
	b := NewBatch(newService(t, DefaultOptions()), -1)
	assert.Equal(t, DefaultConcurrency, b.concurrency)
}
