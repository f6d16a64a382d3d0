package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appointmentsCSV = `visit_id,branch_name,patient_id,patient_name,gender,age,doctor_name,specialty,visit_timestamp,disease_name
V0001,Clifton Clinic,P1,ali khan,M,34,Dr. A,General Practice,01/01/2024 10:00,Flu
V0002,Clifton Clinic,P2,SARA,F,29,Dr. B,General Practice,bad-date,Flu
V0003,Saddar Medical,P3,Omar,M,,Dr. B,Cardiology,02/01/2024 11:15,Hypertension
V0004,Downtown Hub,P4,Hina,F,51,Dr. A,General Practice,04/01/2024 09:00,
`

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, debug, flagLogFormat, flagHTTPTimeoutSec = "", false, "", 0
	flagCleanedDir, flagKBDir = "", ""
	runSQLitePath, runTopN = "", 0
	reportJSON, insightsContext = false, false
	askProvider, askModel, askOffline = "", "", false
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPipelineCommandsEndToEnd(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MEDLOOM_PROVIDER", "none")
	dir := t.TempDir()
	input := filepath.Join(dir, "appointments.csv")
	require.NoError(t, os.WriteFile(input, []byte(appointmentsCSV), 0o644))
	cleaned := filepath.Join(dir, "cleaned")
	kbDir := filepath.Join(dir, "kb")
	dirs := []string{"--cleaned-dir", cleaned, "--kb-dir", kbDir}

	out, err := execute(t, append([]string{"run", input}, dirs...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Processed 4 rows")
	assert.Contains(t, out, "3 accepted, 1 rejected")
	assert.FileExists(t, filepath.Join(kbDir, "analytics_kb.json"))
	assert.FileExists(t, filepath.Join(cleaned, "cleaning_report.json"))

	out, err = execute(t, append([]string{"ask", "--offline", "who", "is", "the", "busiest", "doctor"}, dirs...)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Dr. A")
	assert.Contains(t, out, "[answered by: fallback]")

	out, err = execute(t, append([]string{"report", "--json", input}, dirs...)...)
	require.NoError(t, err, out)
	var report struct {
		Rows struct {
			Read     int `json:"read"`
			Accepted int `json:"accepted"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, 4, report.Rows.Read)
	assert.Equal(t, 3, report.Rows.Accepted)

	out, err = execute(t, append([]string{"insights"}, dirs...)...)
	require.NoError(t, err, out)
	assert.True(t, strings.Contains(out, "Flu") || strings.Contains(out, "Hypertension"), out)
}

func TestAskWithoutKnowledgeBase(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := execute(t, "ask", "--offline", "--kb-dir", t.TempDir(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "medloom run")
}

func TestConfigSetAndShow(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := execute(t, "config", "set", "provider", "local")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "api_key", "sk-or-1234567890")
	require.NoError(t, err)
	_, err = execute(t, "config", "set", "provider", "carrier-pigeon")
	require.Error(t, err)

	out, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: ollama")
	assert.Contains(t, out, "api_key: sk-****890")
	assert.NotContains(t, out, "1234567890")
	assert.FileExists(t, filepath.Join(home, ".medloom", "config.yaml"))
}
