package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBarsCSV(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,high,low,close\n")
	for i := 0; i < 80; i++ {
		ph := i % 10
		z := float64(ph) * 4
		if ph > 5 {
			z = float64(10-ph) * 4
		}
		c := 100 + float64(i) + z
		fmt.Fprintf(&b, "2024-%02d-%02d,%.2f,%.2f,%.2f\n", 1+i/28, 1+i%28, c+1, c-1, c)
	}
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAnalyze_JSON(t *testing.T) {
	t.Setenv("TRENDSCOPE_WINDOW", "2")
	t.Setenv("TRENDSCOPE_RANGES", "10")
	t.Setenv("TRENDSCOPE_MARGIN", "2")

	out, err := run(t, "analyze", "--source", "csv", "--path", writeBarsCSV(t), "--format", "json")
	require.NoError(t, err)

	var rep struct {
		Bars    int `json:"bars"`
		Support []struct {
			Line struct {
				Anchor int `json:"anchor"`
			} `json:"line"`
		} `json:"support"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 80, rep.Bars)
	require.Len(t, rep.Support, 1)
	assert.Equal(t, 10, rep.Support[0].Line.Anchor)
}

func TestAnalyze_PairwiseMethod(t *testing.T) {
	t.Setenv("TRENDSCOPE_WINDOW", "2")

	out, err := run(t, "analyze", "--source", "csv", "--path", writeBarsCSV(t), "--format", "json", "--method", "pairwise")
	require.NoError(t, err)

	var rep struct {
		Method  string `json:"method"`
		Support []struct {
			SupportingPoints []int `json:"supporting_points"`
		} `json:"support"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "pairwise", rep.Method)
	require.Len(t, rep.Support, 6)
	assert.Equal(t, []int{10, 20}, rep.Support[0].SupportingPoints)

	_, err = run(t, "analyze", "--source", "mock", "--method", "regression")
	assert.ErrorContains(t, err, "config validation")
}

func TestAnalyze_Text(t *testing.T) {
	out, err := run(t, "analyze", "--source", "mock", "--symbol", "DEMO")
	require.NoError(t, err)
	assert.Contains(t, out, "TrendScope | DEMO | 300 bars")
	assert.Contains(t, out, "Support lines")
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := run(t, "analyze", "--source", "mock", "--format", "xml")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = run(t, "analyze", "--source", "ftp")
	assert.ErrorContains(t, err, "config validation")

	_, err = run(t, "analyze", "--source", "csv", "--path", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "open csv")
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "trendscope version dev")
}
