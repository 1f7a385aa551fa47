package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

type failingRenderer struct{}

func (failingRenderer) Render(export.Dataset) ([]byte, error) {
	return nil, errors.New("boom")
}

func TestBuildGridPlacesLessons(t *testing.T) {
	stored := sampleStored("sch-1")
	grid := BuildGrid(stored.Name, stored.Snapshot(), ExportFilter{})

	assert.Equal(t, []string{"Period", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, grid.Headers)
	require.Len(t, grid.Rows, 6)
	assert.Equal(t, "1", grid.Rows[0]["Period"])
	assert.Equal(t, "Maths (Year 7A) Mr Smith, Room 101", grid.Rows[0]["Monday"])
	assert.Equal(t, "Science (Year 8A) Dr Brown, Science Lab", grid.Rows[1]["Wednesday"])
	assert.Empty(t, grid.Rows[5]["Friday"])

	filtered := BuildGrid(stored.Name, stored.Snapshot(), ExportFilter{Group: "Year 7B"})
	assert.Equal(t, "Autumn: Year 7B", filtered.Title)
	assert.Empty(t, filtered.Rows[0]["Monday"])
	assert.Contains(t, filtered.Rows[0]["Tuesday"], "Science")

	byTeacher := BuildGrid(stored.Name, stored.Snapshot(), ExportFilter{Teacher: "SMI"})
	assert.Contains(t, byTeacher.Rows[2]["Tuesday"], "History")
	assert.Empty(t, byTeacher.Rows[1]["Monday"])
}

func TestExportServiceRendersCSV(t *testing.T) {
	svc := NewExportService(newMemoryStore(sampleStored("sch-1")), nil, nil, nil)

	result, err := svc.Export(context.Background(), "sch-1", "CSV", ExportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "Autumn_v1.csv", result.Filename)
	assert.True(t, strings.HasPrefix(string(result.Data), "Period,Monday,Tuesday,Wednesday,Thursday,Friday"))
	assert.Contains(t, string(result.Data), "Maths (Year 7A) Mr Smith, Room 101")
}

func TestExportServiceRendersPDF(t *testing.T) {
	svc := NewExportService(newMemoryStore(sampleStored("sch-1")), nil, nil, nil)

	result, err := svc.Export(context.Background(), "sch-1", ExportPDF, ExportFilter{Group: "Year 8A"})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Data), "%PDF"))
}

func TestExportServiceErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewExportService(newMemoryStore(sampleStored("sch-1")), nil, failingRenderer{}, nil)

	_, err := svc.Export(ctx, "sch-1", "xlsx", ExportFilter{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Export(ctx, "missing", ExportCSV, ExportFilter{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Export(ctx, "sch-1", ExportCSV, ExportFilter{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}
