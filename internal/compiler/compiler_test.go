package compiler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"planql/internal/catalog"
	"planql/internal/domain"
	"planql/internal/metricdef"
)

var clock = func() time.Time {
	return time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
}

func testCompiler(t *testing.T) (*Compiler, *catalog.Snapshot) {
	t.Helper()

	snap, err := catalog.Parse([]byte(`
default_table: proj.data.cartera
tables:
  - name: proj.data.cartera
    columns: [MES, TOTAL_RIESGO, IMPORTE_DUDOSO, DESC_CNAE, SECTOR_COV19, PROVINCIA]
synonyms:
  sector: DESC_CNAE
  riesgo: TOTAL_RIESGO
`))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	registry, err := metricdef.Parse([]byte(`
metrics:
  RIESGO:
    expr: SUM(TOTAL_RIESGO)
  TASA_MORA:
    expr: SAFE_DIVIDE(SUM(IMPORTE_DUDOSO), SUM(TOTAL_RIESGO))
`))
	if err != nil {
		t.Fatalf("parse metrics: %v", err)
	}

	return New(registry, Options{}, clock), snap
}

func TestCompileGroupedMetric(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL:    true,
		Metrics:    []string{"RIESGO"},
		Dimensions: []string{"DESC_CNAE"},
		Filters:    map[string]any{"MES": "LAST_3M"},
		Ordering:   []domain.Ordering{{By: "RIESGO", Dir: "desc"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "SELECT\n" +
		"  `DESC_CNAE`,\n" +
		"  SUM(TOTAL_RIESGO) AS RIESGO\n" +
		"FROM `proj.data.cartera`\n" +
		"WHERE CAST(MES AS INT64) BETWEEN 202403 AND 202406\n" +
		"GROUP BY `DESC_CNAE`\n" +
		"ORDER BY RIESGO DESC\n" +
		"LIMIT 1000"
	if result.SQL != want {
		t.Errorf("SQL =\n%s\nwant\n%s", result.SQL, want)
	}
	if result.UsedTable != "`proj.data.cartera`" {
		t.Errorf("UsedTable = %q", result.UsedTable)
	}
	if len(result.Notes) != 0 {
		t.Errorf("Notes = %v, want none for exact matches", result.Notes)
	}
}

func TestCompileNoDimensionsNoGroupBy(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL: true,
		Metrics: []string{"RIESGO"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(result.SQL, "GROUP BY") {
		t.Errorf("GROUP BY emitted with no dimensions:\n%s", result.SQL)
	}
	if !strings.HasSuffix(result.SQL, "LIMIT 1000") {
		t.Errorf("default limit missing:\n%s", result.SQL)
	}
}

func TestCompileSynonymDimension(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL:    true,
		Metrics:    []string{"RIESGO"},
		Dimensions: []string{"sector"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.SQL, "GROUP BY `DESC_CNAE`") {
		t.Errorf("synonym not canonicalized:\n%s", result.SQL)
	}
	if len(result.Notes) != 1 || !strings.Contains(result.Notes[0], "synonym") {
		t.Errorf("Notes = %v, want one synonym note", result.Notes)
	}
}

func TestCompileCastMetricOrderedByAlias(t *testing.T) {
	_, snap := testCompiler(t)
	registry, err := metricdef.Parse([]byte("metrics:\n  MES_MAX:\n    expr: MAX(CAST(MES AS INT64))"))
	if err != nil {
		t.Fatal(err)
	}
	comp := New(registry, Options{}, clock)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL:  true,
		Metrics:  []string{"MES_MAX"},
		Ordering: []domain.Ordering{{By: "MES_MAX"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Every alias ORDER BY binds to must exist in the SELECT list.
	if !strings.Contains(result.SQL, "MAX(CAST(MES AS INT64)) AS MES_MAX") {
		t.Errorf("alias missing from SELECT list:\n%s", result.SQL)
	}
	if !strings.Contains(result.SQL, "ORDER BY MES_MAX DESC") {
		t.Errorf("ORDER BY not rendered:\n%s", result.SQL)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	comp, snap := testCompiler(t)

	plan := domain.Plan{
		NeedSQL:    true,
		Metrics:    []string{"RIESGO", "TASA_MORA"},
		Dimensions: []string{"DESC_CNAE", "PROVINCIA"},
		Filters: map[string]any{
			"MES": "YTD",
			"eq":  map[string]any{"PROVINCIA": "Madrid", "SECTOR_COV19": "AFECTADO"},
			"in":  map[string]any{"DESC_CNAE": []any{"Hostelería", "Comercio"}},
		},
		Ordering: []domain.Ordering{{By: "TASA_MORA"}},
	}

	first, err := comp.Compile(snap, plan)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := comp.Compile(snap, plan)
		if err != nil {
			t.Fatal(err)
		}
		if again.SQL != first.SQL {
			t.Fatalf("compilation not deterministic:\n%s\nvs\n%s", first.SQL, again.SQL)
		}
	}
}

func TestCompileGenericFilters(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL: true,
		Metrics: []string{"RIESGO"},
		Filters: map[string]any{
			"eq":    map[string]any{"provincia": "Madrid"},
			"in":    map[string]any{"SECTOR_COV19": []any{"AFECTADO", "NO AFECTADO"}},
			"like":  map[string]any{"DESC_CNAE": "%HOSTELER%"},
			"ilike": map[string]any{"DESC_CNAE": "%hosteler%"},
			"where": "TOTAL_RIESGO > 0",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, clause := range []string{
		"`PROVINCIA` = 'Madrid'",
		"`SECTOR_COV19` IN ('AFECTADO', 'NO AFECTADO')",
		"`DESC_CNAE` LIKE '%HOSTELER%'",
		"LOWER(`DESC_CNAE`) LIKE LOWER('%hosteler%')",
		"(TOTAL_RIESGO > 0)",
	} {
		if !strings.Contains(result.SQL, clause) {
			t.Errorf("missing clause %q in:\n%s", clause, result.SQL)
		}
	}
}

func TestCompileFilterEscapesQuotes(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL: true,
		Metrics: []string{"RIESGO"},
		Filters: map[string]any{"eq": map[string]any{"PROVINCIA": "L'Hospitalet"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.SQL, "'L''Hospitalet'") {
		t.Errorf("quote not escaped:\n%s", result.SQL)
	}
}

func TestCompileSkipsUnknownFilterColumns(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL: true,
		Metrics: []string{"RIESGO"},
		Filters: map[string]any{"eq": map[string]any{"no_such_column": "x"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(result.SQL, "WHERE") {
		t.Errorf("unknown filter column rendered:\n%s", result.SQL)
	}
}

func TestCompileOrderByValidation(t *testing.T) {
	comp, snap := testCompiler(t)

	// Case-insensitive match against a metric alias succeeds.
	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL:    true,
		Metrics:    []string{"RIESGO"},
		Dimensions: []string{"DESC_CNAE"},
		Ordering:   []domain.Ordering{{By: "riesgo", Dir: "asc"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.SQL, "ORDER BY RIESGO ASC") {
		t.Errorf("ORDER BY not canonicalized:\n%s", result.SQL)
	}

	// A target outside the output set is a hard error.
	_, err = comp.Compile(snap, domain.Plan{
		NeedSQL:  true,
		Metrics:  []string{"RIESGO"},
		Ordering: []domain.Ordering{{By: "TOTAL_RIESGO"}},
	})
	var invalidOrder *domain.InvalidOrderByError
	if !errors.As(err, &invalidOrder) {
		t.Fatalf("error = %v, want InvalidOrderByError", err)
	}
	if invalidOrder.By != "TOTAL_RIESGO" {
		t.Errorf("By = %q", invalidOrder.By)
	}
}

func TestCompileLimits(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{NeedSQL: true, Metrics: []string{"RIESGO"}, Limit: 25})
	if err != nil {
		t.Fatal(err)
	}
	if result.Limit != 25 || !strings.HasSuffix(result.SQL, "LIMIT 25") {
		t.Errorf("plan limit not applied: %d, %s", result.Limit, result.SQL)
	}

	// Non-positive plan limits fall back to the default.
	result, err = comp.Compile(snap, domain.Plan{NeedSQL: true, Metrics: []string{"RIESGO"}, Limit: -5})
	if err != nil {
		t.Fatal(err)
	}
	if result.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", result.Limit, DefaultLimit)
	}
}

func TestCompileCustomDefaultLimit(t *testing.T) {
	_, snap := testCompiler(t)
	registry, err := metricdef.Parse([]byte("metrics:\n  RIESGO:\n    expr: SUM(TOTAL_RIESGO)"))
	if err != nil {
		t.Fatal(err)
	}
	comp := New(registry, Options{DefaultLimit: 10}, clock)

	result, err := comp.Compile(snap, domain.Plan{NeedSQL: true, Metrics: []string{"RIESGO"}})
	if err != nil {
		t.Fatal(err)
	}
	if result.Limit != 10 {
		t.Errorf("Limit = %d, want 10", result.Limit)
	}
}

func TestCompileRejectsUnsafeStatements(t *testing.T) {
	comp, snap := testCompiler(t)

	cases := []struct {
		name string
		plan domain.Plan
	}{
		{"empty select", domain.Plan{NeedSQL: true}},
		{"wildcard metric", domain.Plan{NeedSQL: true, Metrics: []string{"*"}}},
		{"dml in where", domain.Plan{NeedSQL: true, Metrics: []string{"RIESGO"},
			Filters: map[string]any{"where": "1=1 OR DELETE FROM x"}}},
		{"separator smuggled", domain.Plan{NeedSQL: true, Metrics: []string{"RIESGO"},
			Filters: map[string]any{"where": "1=1; SELECT 1"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			result, err := comp.Compile(snap, c.plan)
			var unsafeStmt *domain.UnsafeStatementError
			if !errors.As(err, &unsafeStmt) {
				t.Fatalf("error = %v, want UnsafeStatementError", err)
			}
			if result != nil {
				t.Error("SQL returned for an unsafe statement")
			}
		})
	}
}

func TestCompileRejectsDMLInMetricExpression(t *testing.T) {
	comp, snap := testCompiler(t)

	_, err := comp.Compile(snap, domain.Plan{
		NeedSQL: true,
		Metrics: []string{"SUM(TOTAL_RIESGO)); DROP TABLE x; --"},
	})
	if err == nil {
		t.Fatal("injection attempt compiled")
	}
}

func TestCompileUnknownDimensionFails(t *testing.T) {
	comp, snap := testCompiler(t)

	_, err := comp.Compile(snap, domain.Plan{
		NeedSQL:    true,
		Metrics:    []string{"RIESGO"},
		Dimensions: []string{"definitely_not_a_column"},
	})
	var unknownCol *domain.UnknownColumnError
	if !errors.As(err, &unknownCol) {
		t.Fatalf("error = %v, want UnknownColumnError", err)
	}
}

func TestCompileSkipsBlankMetricRefs(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL: true,
		Metrics: []string{"RIESGO", "", "  "},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Metrics) != 1 {
		t.Errorf("Metrics = %v, want only RIESGO", result.Metrics)
	}
}

func TestCompileTableSelection(t *testing.T) {
	comp, snap := testCompiler(t)

	result, err := comp.Compile(snap, domain.Plan{
		NeedSQL: true,
		Tables:  []string{"not.allowed.table"},
		Metrics: []string{"RIESGO"},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Unknown candidates fall back to the configured default.
	if result.UsedTable != "`proj.data.cartera`" {
		t.Errorf("UsedTable = %q", result.UsedTable)
	}
}
