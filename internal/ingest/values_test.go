package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/store"
)

type fakeRepo struct {
	params    []model.Parameter
	companies []model.Company
	batches   [][]model.ParameterValue
	writeErr  error
}

func (f *fakeRepo) ListParameters(context.Context) ([]model.Parameter, error) {
	return f.params, nil
}

func (f *fakeRepo) ListCompanies(context.Context, store.CompanyFilter) ([]model.Company, error) {
	return f.companies, nil
}

func (f *fakeRepo) UpsertParameterValues(_ context.Context, values []model.ParameterValue) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	batch := make([]model.ParameterValue, len(values))
	copy(batch, values)
	f.batches = append(f.batches, batch)
	return len(values), nil
}

func (f *fakeRepo) written() []model.ParameterValue {
	var out []model.ParameterValue
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		params: []model.Parameter{
			{ID: "p-carbon", Name: "CARBON_INTENSITY", DataType: model.DataTypeNumber},
			{ID: "p-policy", Name: "HAS_CLIMATE_POLICY", DataType: model.DataTypeBoolean},
			{ID: "p-rating", Name: "MSCI_RATING", DataType: model.DataTypeString},
		},
		companies: []model.Company{
			{ID: "c1", Name: "Acme", Ticker: "ACM"},
			{ID: "c2", Name: "Bright"},
		},
	}
}

func day(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		raw     string
		dt      model.DataType
		want    string
		wantErr bool
	}{
		{"150", model.DataTypeNumber, "150", false},
		{"12.5%", model.DataTypeNumber, "12.5", false},
		{"1,250.75", model.DataTypeNumber, "1250.75", false},
		{"abc", model.DataTypeNumber, "", true},
		{"NaN", model.DataTypeNumber, "", true},
		{"inf", model.DataTypeNumber, "", true},
		{"-Infinity", model.DataTypeNumber, "", true},
		{"Yes", model.DataTypeBoolean, "true", false},
		{"0", model.DataTypeBoolean, "false", false},
		{"maybe", model.DataTypeBoolean, "", true},
		{"AA", model.DataTypeString, `"AA"`, false},
		{`say "hi"`, model.DataTypeString, `"say \"hi\""`, false},
		{"1", model.DataType("date"), "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.dt)+"/"+tt.raw, func(t *testing.T) {
			got, err := EncodeValue(tt.raw, tt.dt)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestImportRows(t *testing.T) {
	repo := newFakeRepo()
	rows := [][]string{
		{"Company", "Parameter", "As Of Date", "Value", "Source"},
		{"acm", "carbon_intensity", "2024-03-31", "150", "CDP"},
		{"c2", "HAS_CLIMATE_POLICY", "2024-03-31", "yes", ""},
		{"c2", "msci_rating", "", "AA", ""},
		{"", "", "", "", ""},
		{"c1", "MSCI_RATING", "2024-03-31", "", ""},
	}
	fallback := day("2024-01-01")

	rep, err := NewImporter(repo).ImportRows(context.Background(), rows, Options{AsOfDate: &fallback, Source: "upload"})
	require.NoError(t, err)

	assert.Equal(t, &Report{Rows: 4, Written: 3, Skipped: 1}, rep)
	assert.Equal(t, []model.ParameterValue{
		{CompanyID: "c1", ParameterID: "p-carbon", AsOfDate: day("2024-03-31"), Value: json.RawMessage("150"), Source: "CDP"},
		{CompanyID: "c2", ParameterID: "p-policy", AsOfDate: day("2024-03-31"), Value: json.RawMessage("true"), Source: "upload"},
		{CompanyID: "c2", ParameterID: "p-rating", AsOfDate: fallback, Value: json.RawMessage(`"AA"`), Source: "upload"},
	}, repo.written())
}

func TestImportRows_RejectsBadRows(t *testing.T) {
	repo := newFakeRepo()
	rows := [][]string{
		{"company", "parameter", "as_of_date", "value"},
		{"c1", "CARBON_INTENSITY", "2024-03-31", "150"},
		{"zzz", "CARBON_INTENSITY", "2024-03-31", "1"},
		{"c1", "WATER_USE", "2024-03-31", "1"},
		{"c1", "CARBON_INTENSITY", "31/03/2024", "1"},
		{"c1", "CARBON_INTENSITY", "", "1"},
		{"c1", "HAS_CLIMATE_POLICY", "2024-03-31", "perhaps"},
	}

	rep, err := NewImporter(repo).ImportRows(context.Background(), rows, Options{})
	require.NoError(t, err)

	assert.Equal(t, 6, rep.Rows)
	assert.Equal(t, 1, rep.Written)
	require.Len(t, rep.Rejected, 5)
	assert.Equal(t, RowError{Line: 3, Reason: `unknown company "zzz"`}, rep.Rejected[0])
	assert.Equal(t, RowError{Line: 4, Reason: `unknown parameter "WATER_USE"`}, rep.Rejected[1])
	assert.Contains(t, rep.Rejected[2].Reason, "invalid as_of_date")
	assert.Equal(t, "no as_of_date for CARBON_INTENSITY", rep.Rejected[3].Reason)
	assert.Equal(t, `value "perhaps" is not a boolean`, rep.Rejected[4].Reason)
}

func TestImportRows_RejectsNonFiniteNumbers(t *testing.T) {
	repo := newFakeRepo()
	rows := [][]string{
		{"company", "parameter", "as_of_date", "value"},
		{"c1", "CARBON_INTENSITY", "2024-03-31", "NaN"},
		{"c1", "CARBON_INTENSITY", "2024-06-30", "+Inf"},
		{"c1", "CARBON_INTENSITY", "2024-09-30", "120"},
	}

	rep, err := NewImporter(repo).ImportRows(context.Background(), rows, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Written)
	require.Len(t, rep.Rejected, 2)
	assert.Equal(t, RowError{Line: 2, Reason: `value "NaN" is not a number`}, rep.Rejected[0])
	assert.Equal(t, RowError{Line: 3, Reason: `value "+Inf" is not a number`}, rep.Rejected[1])
	for _, v := range repo.written() {
		assert.True(t, json.Valid(v.Value), string(v.Value))
	}
}

func TestImportRows_StrictWritesNothing(t *testing.T) {
	repo := newFakeRepo()
	rows := [][]string{
		{"company", "parameter", "as_of_date", "value"},
		{"c1", "CARBON_INTENSITY", "2024-03-31", "150"},
		{"c1", "CARBON_INTENSITY", "2024-03-31", "lots"},
	}

	rep, err := NewImporter(repo).ImportRows(context.Background(), rows, Options{Strict: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 rows rejected (line 3")
	assert.Len(t, rep.Rejected, 1)
	assert.Empty(t, repo.batches)
}

func TestImportRows_Batches(t *testing.T) {
	repo := newFakeRepo()
	rows := [][]string{{"company", "parameter", "as_of_date", "value"}}
	for i := range 5 {
		rows = append(rows, []string{"c1", "CARBON_INTENSITY", time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC).Format(model.DateLayout), "1"})
	}

	rep, err := NewImporter(repo).ImportRows(context.Background(), rows, Options{BatchSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Written)
	require.Len(t, repo.batches, 3)
	assert.Len(t, repo.batches[2], 1)
}

func TestImportRows_HeaderErrors(t *testing.T) {
	im := NewImporter(newFakeRepo())

	_, err := im.ImportRows(context.Background(), nil, Options{})
	assert.EqualError(t, err, "ingest: file is empty")

	_, err = im.ImportRows(context.Background(), [][]string{{"ticker", "date"}}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns: parameter, value")
}

func TestImportRows_WriteError(t *testing.T) {
	repo := newFakeRepo()
	repo.writeErr = eris.New("disk full")
	rows := [][]string{
		{"company", "parameter", "as_of_date", "value"},
		{"c1", "CARBON_INTENSITY", "2024-03-31", "150"},
	}

	_, err := NewImporter(repo).ImportRows(context.Background(), rows, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestImportFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.csv")
	content := strings.Join([]string{
		"# exported 2024-04-01",
		"company,parameter,as_of_date,value",
		"ACM, CARBON_INTENSITY ,2024-03-31, 150 ",
		`c2,MSCI_RATING,2024-03-31,"A, stable"`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	repo := newFakeRepo()
	rep, err := NewImporter(repo).ImportFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Written)

	got := repo.written()
	assert.Equal(t, json.RawMessage("150"), got[0].Value)
	assert.Equal(t, json.RawMessage(`"A, stable"`), got[1].Value)
}

func TestImportFile_TSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.tsv")
	content := "company\tparameter\tas_of_date\tvalue\nc1\tHAS_CLIMATE_POLICY\t2024-03-31\tno\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	repo := newFakeRepo()
	_, err := NewImporter(repo).ImportFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("false"), repo.written()[0].Value)
}

func TestImportFile_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Values": {
			{"Ticker", "Metric", "Date", "Value"},
			{"ACM", "CARBON_INTENSITY", "2024-03-31", "99.5"},
		},
	})

	repo := newFakeRepo()
	rep, err := NewImporter(repo).ImportFile(context.Background(), path, Options{Sheet: XLSXOptions{SheetName: "Values"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Written)
	assert.Equal(t, "c1", repo.written()[0].CompanyID)
	assert.Equal(t, json.RawMessage("99.5"), repo.written()[0].Value)
}

func TestImportFile_UnsupportedType(t *testing.T) {
	_, err := NewImporter(newFakeRepo()).ImportFile(context.Background(), "values.json", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported file type ".json"`)
}

func TestReadXLSX_SheetErrors(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{"Sheet1": {{"a"}}})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	assert.Error(t, err)

	rows, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}}, rows)
}

func TestStreamCSV_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{})
	for range rowCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()

	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, row := range rows {
			r := sheet.AddRow()
			for _, val := range row {
				cell := r.AddCell()
				cell.SetString(val)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}
