package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painelpib/internal/query"
)

const cmdGeo = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"CD_MUN7":1,"NM_MUN":"Porto Alegre"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
 {"type":"Feature","properties":{"CD_MUN7":2,"NM_MUN":"Água Santa"},
  "geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}},
 {"type":"Feature","properties":{"CD_MUN7":3,"NM_MUN":"Caxias do Sul"},
  "geometry":{"type":"Polygon","coordinates":[[[0,1],[1,1],[1,2],[0,2],[0,1]]]}},
 {"type":"Feature","properties":{"NM_MUN":"Sem código"},"geometry":null}
]}`

const cmdCSV = `Ano;CD_MUN7;Nome do Município;variavel;serie;valor_brl
2020;1;Porto Alegre;Produto Interno Bruto;PIB a preços correntes;100
2020;2;Água Santa;Produto Interno Bruto;PIB a preços correntes;10
2020;3;Caxias do Sul;Produto Interno Bruto;PIB a preços correntes;60
2021;1;Porto Alegre;Produto Interno Bruto;PIB a preços correntes;140
2021;2;Água Santa;Produto Interno Bruto;PIB a preços correntes;20
2021;3;Caxias do Sul;Produto Interno Bruto;PIB a preços correntes;80
2021;9;Fora do mapa;Produto Interno Bruto;PIB a preços correntes;5
2021;1;Porto Alegre;Produto Interno Bruto;PIB a preços correntes;
`

// writeFixture lays out both sources and a config file pointing at them.
func writeFixture(t *testing.T, extra string) (cfgPath, outDir string) {
	t.Helper()
	dir := t.TempDir()
	geo := filepath.Join(dir, "mun.geojson")
	csv := filepath.Join(dir, "pib.csv")
	outDir = filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(geo, []byte(cmdGeo), 0o644))
	require.NoError(t, os.WriteFile(csv, []byte(cmdCSV), 0o644))

	cfg := "geometry_source: " + geo + "\n" +
		"table_source: " + csv + "\n" +
		"csv_delimiter: \";\"\n" +
		"output_dir: " + outDir + "\n" + extra
	cfgPath = filepath.Join(dir, "painel.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, outDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	cfg, _ := writeFixture(t, "")
	out, err := run(t, "--config", cfg, "inspect")
	require.NoError(t, err)

	assert.Contains(t, out, "Municípios: 3 (ignorados na geometria: 1)")
	assert.Contains(t, out, "Linhas: 8 | mantidas: 6 | descartadas: 2")
	assert.Contains(t, out, "unknown_code: 1")
	assert.Contains(t, out, "value: 1")
	assert.Contains(t, out, "Série fixa: PIB a preços correntes | sobrescritas: 0")
	assert.Contains(t, out, "OK — Produto Interno Bruto (PIB a preços correntes) | Anos: 2020–2021")
}

func TestRank(t *testing.T) {
	cfg, _ := writeFixture(t, "")
	out, err := run(t, "--config", cfg, "rank", "--year", "2020")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Ano: 2020 | Top 15")
	assert.Contains(t, lines[1], "Porto Alegre")
	assert.Contains(t, lines[1], "R$ 100")
	assert.Contains(t, lines[3], "Água Santa")

	out, err = run(t, "--config", cfg, "rank", "--top", "2", "--json")
	require.NoError(t, err)
	var v query.RankingView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 2021, v.Year)
	assert.Equal(t, 5, v.TopN, "clamped to the lower bound")
	assert.Len(t, v.Rows, 3)
}

func TestRender(t *testing.T) {
	cfg, outDir := writeFixture(t, "")
	out, err := run(t, "--config", cfg, "render")
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	base := "Produto_Interno_Bruto_PIB_a_precos_correntes"
	assert.Contains(t, names, "ranking_RS_"+base+"_2021_top15.doc")
	assert.Contains(t, names, "ranking_RS_"+base+"_2021_top15.png")
	assert.Contains(t, names, "mapa_RS_"+base+"_2021.png")
	assert.Contains(t, names, "painel_RS_"+base+"_2021.xlsx")
	assert.Contains(t, names, "painel_RS_"+base+"_2021.md")
	assert.Len(t, names, 7, "ranking, series and map outputs plus workbook and report")
	assert.Equal(t, 7, strings.Count(out, "📈"))

	report, err := os.ReadFile(filepath.Join(outDir, "painel_RS_"+base+"_2021.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "Porto Alegre")
}

func TestRenderExplicitSelection(t *testing.T) {
	cfg, _ := writeFixture(t, "")
	outDir := filepath.Join(t.TempDir(), "custom")
	_, err := run(t, "--config", cfg, "render", "--out", outDir, "--code", "2", "--year", "2020")
	require.NoError(t, err)

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "serie_RS_") && strings.HasSuffix(e.Name(), "munis_Agua_Santa.doc") {
			found = true
		}
	}
	assert.True(t, found, "series document named after the selection")
}

func TestInvalidConfig(t *testing.T) {
	cfg, _ := writeFixture(t, "top_n_min: 60\n")
	_, err := run(t, "--config", cfg, "inspect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "inspect")
	require.Error(t, err)
}

func TestLoadFailure(t *testing.T) {
	cfg, _ := writeFixture(t, "")
	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	broken := strings.Replace(string(data), "pib.csv", "nada.csv", 1)
	require.NoError(t, os.WriteFile(cfg, []byte(broken), 0o644))

	_, err = run(t, "--config", cfg, "rank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch table")
}
