package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credreview/internal/adapter/driven/rangeapi"
	"github.com/ericfisherdev/credreview/internal/config"
	"github.com/ericfisherdev/credreview/internal/domain/model"
)

// SHA-1("password") is 5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8.
const exportCSV = "profile,site,username,password,usage\n" +
	"mail,https://mail.example,alice,password,3\n" +
	"bank,https://bank.example,alice,correct-horse-battery-staple,\n"

type fakeProber struct {
	calls atomic.Int32
}

func (p *fakeProber) Probe(_ context.Context, _ string) model.ProbeResult {
	p.calls.Add(1)
	status := http.StatusOK
	return model.ProbeResult{Status: model.SiteStatusAlive, HTTPStatus: &status}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRangeServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/range/5BAA6" {
			_, _ = io.WriteString(w, "1E4C9B93F3F0682250B6CF8331B7EE68FD8:3861493\r\n")
			return
		}
		_, _ = io.WriteString(w, "0000000000000000000000000000000000A:1\r\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() *config.Config {
	return &config.Config{
		LookupConcurrency: 2,
		MaxBatch:          500,
		ProbeTimeout:      time.Second,
		ExportPartBytes:   150 * 1024,
	}
}

func testAdapters(t *testing.T, prober *fakeProber) adapters {
	srv := newRangeServer(t)
	noWait := func(int, bool) time.Duration { return 0 }
	return adapters{
		lookup: rangeapi.NewClientWithHTTPClient(srv.Client(), srv.URL, noWait, discardLogger()),
		prober: prober,
	}
}

func decodeReport(t *testing.T, data []byte) Report {
	t.Helper()
	var r Report
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func TestRunCheck_JSONReport(t *testing.T) {
	var out bytes.Buffer
	opts := &checkOptions{sortKey: "breach", format: formatJSON}

	err := runCheck(context.Background(), testConfig(), opts, exportCSV, testAdapters(t, &fakeProber{}), &out, discardLogger())
	require.NoError(t, err)

	assert.NotContains(t, out.String(), "correct-horse")
	assert.NotContains(t, out.String(), `"password"`)

	r := decodeReport(t, out.Bytes())
	assert.Equal(t, 2, r.Summary.Checked)
	assert.Equal(t, 1, r.Summary.Breached)
	assert.False(t, r.Summary.Probed)
	require.Len(t, r.Records, 2)
	assert.Equal(t, "mail", r.Records[0].Profile)
	assert.Equal(t, model.KnownBreachCount(3861493), r.Records[0].Breach)
	assert.Equal(t, model.KnownBreachCount(0), r.Records[1].Breach)
}

func TestRunCheck_RowsAndProbe(t *testing.T) {
	var out bytes.Buffer
	prober := &fakeProber{}
	opts := &checkOptions{rows: "2", sortKey: "profile", format: formatJSON, probe: true}

	err := runCheck(context.Background(), testConfig(), opts, exportCSV, testAdapters(t, prober), &out, discardLogger())
	require.NoError(t, err)

	r := decodeReport(t, out.Bytes())
	assert.Equal(t, 1, r.Summary.Checked)
	assert.True(t, r.Summary.Probed)
	assert.Equal(t, 1, r.Summary.Alive)
	assert.Equal(t, int32(1), prober.calls.Load())
	require.Len(t, r.Records, 1)
	assert.Equal(t, "bank", r.Records[0].Profile)
	assert.Equal(t, model.SiteStatusAlive, r.Records[0].SiteStatus)
}

func TestRunCheck_DeleteAndExport(t *testing.T) {
	var out bytes.Buffer
	path := filepath.Join(t.TempDir(), "reviewed.csv")
	opts := &checkOptions{
		sortKey:        "breach",
		format:         formatYAML,
		deleteBreached: true,
		yes:            true,
		exportPath:     path,
	}

	err := runCheck(context.Background(), testConfig(), opts, exportCSV, testAdapters(t, &fakeProber{}), &out, discardLogger())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `"profile","site","username","password","usage"`+"\nbank,https://bank.example,alice,correct-horse-battery-staple,", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Contains(t, out.String(), "deleted: 1")
	assert.NotContains(t, out.String(), "mail.example")
}

func TestRunCheck_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    checkOptions
		input   string
		wantErr string
	}{
		{
			name:    "delete without confirmation",
			opts:    checkOptions{sortKey: "breach", format: formatTable, deleteBreached: true},
			input:   exportCSV,
			wantErr: "without --yes",
		},
		{
			name:    "all with rows",
			opts:    checkOptions{all: true, rows: "1", sortKey: "breach", format: formatTable},
			input:   exportCSV,
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad sort key",
			opts:    checkOptions{sortKey: "age", format: formatTable},
			input:   exportCSV,
			wantErr: "unknown sort key",
		},
		{
			name:    "bad format",
			opts:    checkOptions{sortKey: "breach", format: "xml"},
			input:   exportCSV,
			wantErr: "unknown format",
		},
		{
			name:    "empty input",
			opts:    checkOptions{sortKey: "breach", format: formatTable},
			input:   "name,url,username,password\n",
			wantErr: "no credential rows",
		},
		{
			name:    "row out of range",
			opts:    checkOptions{rows: "3", sortKey: "breach", format: formatTable},
			input:   exportCSV,
			wantErr: "out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runCheck(context.Background(), testConfig(), &tt.opts, tt.input, testAdapters(t, &fakeProber{}), &out, discardLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, out.String())
		})
	}
}

func TestReadInput_Stdin(t *testing.T) {
	got, err := readInput(strings.NewReader("a,b"), "-")
	require.NoError(t, err)
	assert.Equal(t, "a,b", got)

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestRunCheck_SortOrder(t *testing.T) {
	tests := []struct {
		sortKey string
		want    []string
	}{
		{sortKey: "breach", want: []string{"mail", "bank"}},
		{sortKey: "usage", want: []string{"mail", "bank"}},
		{sortKey: "profile", want: []string{"bank", "mail"}},
	}

	for _, tt := range tests {
		t.Run(tt.sortKey, func(t *testing.T) {
			var out bytes.Buffer
			opts := &checkOptions{sortKey: tt.sortKey, format: formatJSON}
			require.NoError(t, runCheck(context.Background(), testConfig(), opts, exportCSV, testAdapters(t, &fakeProber{}), &out, discardLogger()))

			r := decodeReport(t, out.Bytes())
			var got []string
			for _, rec := range r.Records {
				got = append(got, rec.Profile)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRootCmd_CheckRequiresFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{"check", "--env-file", filepath.Join(t.TempDir(), "none.env")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
