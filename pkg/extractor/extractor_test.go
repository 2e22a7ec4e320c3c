package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/payroll-extract/internal/cache"
	"github.com/spherical/payroll-extract/internal/pdf/pdftest"
)

const samplePage = "Competência 09/2025\n123456 JOHN DOE\nSenior Developer\n8.500,00 6.800,00"

func newClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClientWithConfig(&Config{Options: DefaultOptions()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_ExtractText(t *testing.T) {
	res, err := newClient(t).ExtractText(context.Background(), "inline", samplePage)
	require.NoError(t, err)

	p := res.Payroll
	assert.Equal(t, Period{Month: 9, Year: 2025}, p.Period())
	e, ok := p.Employee("123456")
	require.True(t, ok)
	assert.Equal(t, "JOHN DOE", e.Name)
	assert.Equal(t, "8.500,00", e.Gross.Format())
	assert.Equal(t, "6.800,00", e.Net.Format())
}

func TestClient_PeriodOverride(t *testing.T) {
	opts := DefaultOptions()
	override, err := ParsePeriod("10/2025")
	require.NoError(t, err)
	opts.Parser.PeriodOverride = override

	c, err := NewClientWithConfig(&Config{Options: opts})
	require.NoError(t, err)

	res, err := c.ExtractText(context.Background(), "inline", "123456 JOHN DOE\nDeveloper\n1.000,00 800,00")
	require.NoError(t, err)
	assert.Equal(t, override, res.Payroll.Period())
}

func TestClient_ErrorKinds(t *testing.T) {
	c := newClient(t)

	_, err := c.ExtractText(context.Background(), "inline", "nothing here")
	assert.True(t, IsError(err, ErrPeriodNotDetected))

	_, err = c.ExtractBytes(context.Background(), "x.pdf", []byte("junk"))
	assert.True(t, IsError(err, ErrDocumentUnreadable))

	_, err = NewClientWithConfig(nil)
	assert.Error(t, err)
}

func TestClient_ProcessStreamsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payroll.txt")
	require.NoError(t, os.WriteFile(path, []byte(samplePage), 0o644))

	events, err := newClient(t).Process(context.Background(), path)
	require.NoError(t, err)

	var types []EventType
	for e := range events {
		types = append(types, e.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, EventStart, types[0])
	assert.Contains(t, types, EventPeriodDetected)
	assert.Contains(t, types, EventEmployeeParsed)
	assert.Equal(t, EventComplete, types[len(types)-1])

	_, err = newClient(t).Process(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.True(t, IsError(err, ErrDocumentUnreadable))
}

func TestClient_ProcessDeliversCompleteToSlowConsumer(t *testing.T) {
	lines := []string{"Competencia 09/2025"}
	for i := 0; i < 150; i++ {
		lines = append(lines, fmt.Sprintf("%06d JOHN DOE", 100000+i), "Developer", "1.000,00 800,00")
	}
	path := filepath.Join(t.TempDir(), "payroll.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	events, err := newClient(t).Process(context.Background(), path)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	var last EventType
	for e := range events {
		last = e.Type
	}
	assert.Equal(t, EventComplete, last)
}

func TestClient_ExtractTextWithoutPages(t *testing.T) {
	_, err := newClient(t).ExtractText(context.Background(), "inline", " \n\f ")
	assert.True(t, IsError(err, ErrDocumentUnreadable))
}

func TestClient_ExtractAllWithCache(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte(samplePage), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("no payroll"), 0o644))

	c, err := NewClientWithConfig(&Config{Options: DefaultOptions(), Concurrency: 2, Cache: cache.NewMemoryClient(10)})
	require.NoError(t, err)
	defer c.Close()

	items, err := c.ExtractAll(context.Background(), []string{a, b})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.NoError(t, items[0].Err)
	assert.Error(t, items[1].Err)

	res, err := c.Extract(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, res.Report.CacheHit)
}

func TestClient_ExtractPDF(t *testing.T) {
	path := pdftest.Write(t, "september.pdf",
		[]string{"Folha de Pagamento", "Competência 09/2025", "123456 JOHN DOE", "Senior Developer", "8.500,00 6.800,00"},
		[]string{"234567 MARY JANE", "Analyst", "3.000,00 2.400,00"},
	)

	res, err := newClient(t).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, Period{Month: 9, Year: 2025}, res.Payroll.Period())
	assert.Equal(t, 2, res.Report.Pages)
	require.Equal(t, 2, res.Payroll.Len())

	mary, ok := res.Payroll.Employee("234567")
	require.True(t, ok)
	assert.Equal(t, "Analyst", mary.Position)
	assert.Equal(t, 2, mary.Page)
	assert.Equal(t, "11.500,00", res.Summary().TotalGross.Format())
}
