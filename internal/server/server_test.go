package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painelpib/internal/loader"
	"painelpib/internal/metrics"
	"painelpib/internal/query"
)

const testGeo = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"CD_MUN7":1,"NM_MUN":"Porto Alegre"},
  "geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
 {"type":"Feature","properties":{"CD_MUN7":2,"NM_MUN":"Água Santa"},
  "geometry":{"type":"Polygon","coordinates":[[[1,0],[2,0],[2,1],[1,1],[1,0]]]}},
 {"type":"Feature","properties":{"CD_MUN7":3,"NM_MUN":"Caxias do Sul"},
  "geometry":{"type":"Polygon","coordinates":[[[0,1],[1,1],[1,2],[0,2],[0,1]]]}},
 {"type":"Feature","properties":{"CD_MUN7":4,"NM_MUN":"Erechim"},
  "geometry":{"type":"Polygon","coordinates":[[[1,1],[2,1],[2,2],[1,2],[1,1]]]}}
]}`

const testCSV = `Ano,CD_MUN7,Nome do Município,variavel,serie,valor_brl
2019,1,Porto Alegre,Produto Interno Bruto,PIB a preços correntes,100
2019,2,Água Santa,Produto Interno Bruto,PIB a preços correntes,10
2019,3,Caxias do Sul,Produto Interno Bruto,PIB a preços correntes,60
2020,1,Porto Alegre,Produto Interno Bruto,PIB a preços correntes,120
2021,1,Porto Alegre,Produto Interno Bruto,PIB a preços correntes,140
2021,2,Água Santa,Produto Interno Bruto,PIB a preços correntes,20
2021,3,Caxias do Sul,Produto Interno Bruto,PIB a preços correntes,80
2021,4,Erechim,Produto Interno Bruto,PIB a preços correntes,80
2021,1,Porto Alegre,Produto Interno Bruto,PIB a preços de 2023,999
`

type memFetcher struct {
	mu    sync.Mutex
	files map[string]string
}

func (m *memFetcher) Fetch(ctx context.Context, loc string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.files[loc]
	if !ok {
		return nil, fmt.Errorf("no such source %q", loc)
	}
	return []byte(body), nil
}

func (m *memFetcher) remove(loc string) {
	m.mu.Lock()
	delete(m.files, loc)
	m.mu.Unlock()
}

type testEnv struct {
	srv     *httptest.Server
	fetcher *memFetcher
	sess    *query.Session
	metrics *metrics.Metrics
}

func newEnv(t *testing.T, load bool) *testEnv {
	t.Helper()
	f := &memFetcher{files: map[string]string{"geo": testGeo, "csv": testCSV}}
	m := metrics.New()
	sess := query.NewSession(f, query.Options{
		Load: loader.Options{
			GeometrySource: "geo",
			TableSource:    "csv",
			Geometry:       loader.GeometryOptions{CodeProperty: "CD_MUN7", NameProperty: "NM_MUN"},
		},
		PreferredVariable: "produto interno bruto",
		Observer:          m,
	}, zerolog.Nop())
	if load {
		require.NoError(t, sess.Load(context.Background()))
	}
	s := New(sess, Options{Region: "RS", FeatureIDKey: "properties.CD_MUN7"}, zerolog.Nop(), m)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return &testEnv{srv: ts, fetcher: f, sess: sess, metrics: m}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readAll(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return b
}

func TestNotLoaded(t *testing.T) {
	e := newEnv(t, false)

	resp := e.get(t, "/api/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decode[statusResponse](t, resp)
	assert.False(t, st.Loaded)
	assert.Equal(t, query.StateIdle, st.Status.State)

	resp = e.get(t, "/api/ranking")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, query.ErrNotLoaded.Error(), decode[errorBody](t, resp).Error)

	assert.Equal(t, http.StatusServiceUnavailable, e.get(t, "/geometry").StatusCode)
}

func TestStatus(t *testing.T) {
	e := newEnv(t, true)
	st := decode[statusResponse](t, e.get(t, "/api/status"))
	assert.True(t, st.Loaded)
	assert.Equal(t, query.StateReady, st.Status.State)
	assert.Equal(t, "PIB a preços correntes", st.Series)
	assert.Equal(t, "Produto Interno Bruto", st.DefaultVariable)
	assert.Equal(t, "OK — Produto Interno Bruto (PIB a preços correntes) | Anos: 2019–2021", st.Panorama)
	assert.Equal(t, 4, st.Entities)
	assert.Equal(t, 9, st.Records)
	require.NotNil(t, st.Rows)
	assert.Equal(t, 9, st.Rows.Kept)
}

func TestYears(t *testing.T) {
	e := newEnv(t, true)
	v := decode[yearsResponse](t, e.get(t, "/api/years"))
	assert.Equal(t, []int{2019, 2020, 2021}, v.Years)

	v = decode[yearsResponse](t, e.get(t, "/api/years?variable=Nada"))
	assert.Equal(t, []int{}, v.Years)
	assert.Equal(t, "OK — Nada (PIB a preços correntes) | Anos: —", v.Status)
}

func TestRanking(t *testing.T) {
	e := newEnv(t, true)

	v := decode[rankingResponse](t, e.get(t, "/api/ranking"))
	assert.Equal(t, 2021, v.Year, "defaults to the last year")
	assert.Equal(t, 15, v.TopN)
	require.Len(t, v.Rows, 4)
	assert.Equal(t, []string{"Porto Alegre", "Caxias do Sul", "Erechim", "Água Santa"},
		[]string{v.Rows[0].Name, v.Rows[1].Name, v.Rows[2].Name, v.Rows[3].Name})
	assert.Equal(t, "Ano: 2021 | Top 15 | Produto Interno Bruto (PIB a preços correntes)", v.Meta)

	v = decode[rankingResponse](t, e.get(t, "/api/ranking?year=2020&top=500"))
	assert.Equal(t, 50, v.TopN)
	require.Len(t, v.Rows, 1)

	v = decode[rankingResponse](t, e.get(t, "/api/ranking?year=1999"))
	assert.True(t, v.NoData)
	assert.Equal(t, "Sem dados.", v.Meta)

	for _, q := range []string{"year=abc", "top=x", "mean=talvez"} {
		resp := e.get(t, "/api/ranking?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestRaceAndMap(t *testing.T) {
	e := newEnv(t, true)

	race := decode[query.RaceView](t, e.get(t, "/api/race?top=5"))
	require.Len(t, race.Frames, 3)
	assert.Equal(t, 140.0, race.GlobalMax)

	m := decode[map[string]any](t, e.get(t, "/api/map"))
	assert.Len(t, m["frames"], 3)
	assert.Equal(t, []any{"1", "2", "3", "4"}, m["codes"])
}

func TestSeries(t *testing.T) {
	e := newEnv(t, true)

	v := decode[seriesResponse](t, e.get(t, "/api/series?code=1&code=3&mean=true"))
	require.Len(t, v.Lines, 2)
	assert.True(t, v.ShowMean)
	assert.Equal(t, "OK — Produto Interno Bruto (PIB a preços correntes) | Anos disponíveis: 2019–2021 | Selecionados: 2",
		v.Status)
	assert.Equal(t, "Produto Interno Bruto (PIB a preços correntes) | Municípios: Porto Alegre, Caxias do Sul", v.Meta)

	comma := decode[seriesResponse](t, e.get(t, "/api/series?code=1,3"))
	assert.Len(t, comma.Lines, 2)
	assert.False(t, comma.ShowMean)

	rows := decode[[]query.SeriesRow](t, e.get(t, "/api/series/rows?code=1&code=2"))
	require.Len(t, rows, 5)
	assert.Equal(t, "Água Santa", rows[0].Name, "pt-BR collation sorts Água before Porto")
}

func TestMunicipalities(t *testing.T) {
	e := newEnv(t, true)
	all := decode[[]query.Option](t, e.get(t, "/api/municipalities"))
	assert.Len(t, all, 4)

	hit := decode[[]query.Option](t, e.get(t, "/api/municipalities?q=%C3%A1gua"))
	assert.Equal(t, []query.Option{{Code: "2", Name: "Água Santa"}}, hit)
}

func TestTotals(t *testing.T) {
	e := newEnv(t, true)
	v := decode[query.TotalsView](t, e.get(t, "/api/totals"))
	require.Len(t, v.Rows, 3)
	assert.Equal(t, 320.0, v.Rows[2].Total)
	assert.Equal(t, "Porto Alegre", v.Rows[2].Leader)
}

func TestFigures(t *testing.T) {
	e := newEnv(t, true)
	for _, p := range []string{"/api/figures/map", "/api/figures/race", "/api/figures/series?code=1"} {
		resp := e.get(t, p)
		require.Equal(t, http.StatusOK, resp.StatusCode, p)
		fig := decode[map[string]any](t, resp)
		assert.Contains(t, fig, "data", p)
		assert.Contains(t, fig, "layout", p)
	}
}

func TestGeometryPassthrough(t *testing.T) {
	e := newEnv(t, true)
	resp := e.get(t, "/geometry")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, testGeo, string(readAll(t, resp)))
}

func TestExports(t *testing.T) {
	e := newEnv(t, true)

	cases := []struct {
		path, filename, contentType, magic string
	}{
		{"/api/export/ranking.doc", "ranking_RS_Produto_Interno_Bruto_PIB_a_precos_correntes_2021_top15.doc", "application/msword", "<html"},
		{"/api/export/ranking.xlsx", "ranking_RS_Produto_Interno_Bruto_PIB_a_precos_correntes_2021_top15.xlsx", "spreadsheetml", "PK"},
		{"/api/export/ranking.png", "ranking_RS_Produto_Interno_Bruto_PIB_a_precos_correntes_2021_top15.png", "image/png", "\x89PNG"},
		{"/api/export/series.doc?code=1&code=3", "serie_RS_", "application/msword", "<html"},
		{"/api/export/series.xlsx?code=1", "serie_RS_", "spreadsheetml", "PK"},
		{"/api/export/series.png?code=1&code=3", "serie_RS_", "image/png", "\x89PNG"},
		{"/api/export/map.png?year=2019", "mapa_RS_Produto_Interno_Bruto_PIB_a_precos_correntes_2019.png", "image/png", "\x89PNG"},
		{"/api/export/report.md", "relatorio_RS_", "text/markdown", "# PAINEL PIB MUNICIPAL"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp := e.get(t, tc.path)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tc.contentType)
			assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
			assert.Contains(t, resp.Header.Get("Content-Disposition"), tc.filename)
			assert.True(t, strings.HasPrefix(string(readAll(t, resp)), tc.magic))
		})
	}
}

func TestExportErrors(t *testing.T) {
	e := newEnv(t, true)

	resp := e.get(t, "/api/export/series.doc")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "no municipality selected")

	resp = e.get(t, "/api/export/ranking.png?year=1999")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.get(t, "/api/export/map.png?year=1999")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReload(t *testing.T) {
	e := newEnv(t, true)

	resp, err := http.Post(e.srv.URL+"/api/reload", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	e.fetcher.remove("csv")
	resp, err = http.Post(e.srv.URL+"/api/reload", "", nil)
	require.NoError(t, err)
	st := decode[query.Status](t, resp)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, query.MsgReloadError, st.Message)

	// the previous dataset keeps serving
	v := decode[rankingResponse](t, e.get(t, "/api/ranking"))
	assert.Len(t, v.Rows, 4)

	assert.Equal(t, http.StatusMethodNotAllowed, e.get(t, "/api/reload").StatusCode)
}

func TestReloadSurvivesClientCancel(t *testing.T) {
	e := newEnv(t, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/reload", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.srv.Config.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, query.StateReady, e.sess.Status().State)
}

func TestSeriesRepeatedCodes(t *testing.T) {
	e := newEnv(t, true)

	v := decode[seriesResponse](t, e.get(t, "/api/series?code=1&code=1,2&mean=true"))
	assert.Equal(t, []string{"Porto Alegre", "Água Santa"}, v.Names())
	assert.Contains(t, v.Status, "Selecionados: 2")

	once := decode[seriesResponse](t, e.get(t, "/api/series?code=1,2&mean=true"))
	assert.Equal(t, once.Mean, v.Mean)

	rows := decode[[]query.SeriesRow](t, e.get(t, "/api/series/rows?code=2&code=2&code=1"))
	assert.Len(t, rows, 5)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t, true)
	e.get(t, "/api/ranking")
	e.get(t, "/api/ranking?year=abc")

	body := string(readAll(t, e.get(t, "/metrics")))
	assert.Contains(t, body, `painel_http_requests_total{code="200",route="GET /api/ranking"} 1`)
	assert.Contains(t, body, `painel_http_requests_total{code="400",route="GET /api/ranking"} 1`)
	assert.Contains(t, body, `painel_load_total{outcome="ok"} 1`)
	assert.Contains(t, body, "painel_rows_kept 9")
}
