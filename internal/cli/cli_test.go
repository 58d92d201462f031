package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/skills"
	"resumatch/internal/types"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{Weights: skills.DefaultWeights()},
		App: config.AppConfig{
			LogLevel:         "error",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
			MaxFileSize:      1 << 20,
		},
	}
}

// resetFlags restores every flag so one command run does not leak into the
// next.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the command line with args and returns what it printed.
func execute(t *testing.T, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	ctx := withDependencies(context.Background(), cfg, errors.Discard())
	// cobra only hands the root context to subcommands that have none yet.
	for _, sub := range rootCmd.Commands() {
		sub.SetContext(ctx)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const (
	testResume = "Skills\nPython, SQL, leadership"
	testJD     = "Looking for Python and Docker plus leadership"
)

func decodeReport(t *testing.T, out string) types.AnalysisReport {
	t.Helper()
	var report types.AnalysisReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	return report
}

func TestAnalyzeJSON(t *testing.T) {
	resume := writeFile(t, "resume.txt", testResume)
	jd := writeFile(t, "jd.md", testJD)

	out, err := execute(t, testConfig(), "", "analyze", resume, jd)
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, []string{"docker"}, report.Result.Missing)
	assert.Equal(t, skills.DefaultWeights(), report.Weights)
	assert.Nil(t, report.Insights)
}

func TestAnalyzeReadsJobDescriptionFromStdin(t *testing.T) {
	resume := writeFile(t, "resume.txt", testResume)

	out, err := execute(t, testConfig(), testJD, "analyze", resume, "-", "--weights", "soft=10,operational=5")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, []string{"docker"}, report.Result.Missing)
	assert.Equal(t, skills.Weights{Technical: 60, Soft: 10, Operational: 5}, report.Weights)
}

func TestAnalyzeMarkdownToFile(t *testing.T) {
	resume := writeFile(t, "resume.txt", testResume)
	jd := writeFile(t, "jd.txt", testJD)
	target := filepath.Join(t.TempDir(), "reports", "fit.md")

	out, err := execute(t, testConfig(), "", "analyze", resume, jd, "--format", "markdown", "-o", target, "--insights")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "docker")
}

func TestAnalyzeErrors(t *testing.T) {
	resume := writeFile(t, "resume.txt", testResume)
	jd := writeFile(t, "jd.txt", testJD)
	blank := writeFile(t, "blank.txt", "  \n\t ")

	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantErr  string
	}{
		{name: "blank job description", args: []string{"analyze", resume, blank}, wantCode: errors.ErrCodeEmptyJobDescription},
		{name: "both from stdin", args: []string{"analyze", "-", "-"}, wantCode: errors.ErrCodeInvalidRequest},
		{name: "bad weights", args: []string{"analyze", resume, jd, "--weights", "technical=abc"}, wantCode: errors.ErrCodeInvalidWeights},
		{name: "zero weight", args: []string{"analyze", resume, jd, "--weights", "soft=0"}, wantCode: errors.ErrCodeInvalidWeights},
		{name: "missing file", args: []string{"analyze", filepath.Join(t.TempDir(), "nope.txt"), jd}, wantCode: errors.ErrCodeFileNotFound},
		{name: "unsupported format", args: []string{"analyze", resume, jd, "--format", "xml"}, wantErr: "unsupported output format 'xml'"},
		{name: "wrong arg count", args: []string{"analyze", resume}, wantErr: "accepts 2 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, testConfig(), "", tt.args...)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			appErr, ok := errors.AsAppError(err)
			require.True(t, ok, "expected AppError, got %v", err)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestTaxonomyPrintsLoadableDocument(t *testing.T) {
	out, err := execute(t, testConfig(), "", "taxonomy")
	require.NoError(t, err)

	tax, err := skills.ParseTaxonomy([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, skills.DefaultTaxonomy().Len(), tax.Len())

	out, err = execute(t, testConfig(), "", "taxonomy", "--format", "json")
	require.NoError(t, err)
	var doc skills.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.Categories[skills.Technical])

	_, err = execute(t, testConfig(), "", "taxonomy", "--format", "toml")
	assert.ErrorContains(t, err, "unsupported taxonomy format")
}

func TestTaxonomyValidate(t *testing.T) {
	valid := writeFile(t, "taxonomy.yaml", `
categories:
  technical: [python, sql]
  soft: [leadership]
  operational: [budgeting]
synonyms:
  postgres: [sql]
`)
	invalid := writeFile(t, "broken.yaml", `
categories:
  technical: [python]
  soft: [python]
`)

	out, err := execute(t, testConfig(), "", "taxonomy", "--validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "valid taxonomy with 4 skills (technical 2, soft 1, operational 1)")

	_, err = execute(t, testConfig(), "", "taxonomy", "--validate", invalid)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, testConfig(), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "resumatch version "+Version)
	assert.Contains(t, out, "Git commit: "+GitCommit)
}

func TestConfigFileFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"absent", []string{"analyze", "a.txt", "b.txt"}, ""},
		{"separate value", []string{"--config", "/etc/r.yaml", "serve"}, "/etc/r.yaml"},
		{"equals", []string{"serve", "--config=dev.yaml", "--port", "9000"}, "dev.yaml"},
		{"after unknown flags", []string{"analyze", "--format", "json", "--config", "c.yaml", "a", "b"}, "c.yaml"},
		{"help", []string{"--help"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigFileFromArgs(tt.args))
		})
	}
}

func TestApplyServeFlags(t *testing.T) {
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	base := config.ServerConfig{Host: "0.0.0.0", Port: "8080", TLS: config.TLSConfig{Mode: "disabled"}}
	require.NoError(t, serveCmd.Flags().Set("port", "9443"))
	require.NoError(t, serveCmd.Flags().Set("tls-mode", "server"))
	require.NoError(t, serveCmd.Flags().Set("cert-file", "/certs/tls.crt"))

	got := applyServeFlags(serveCmd, base)
	assert.Equal(t, "0.0.0.0", got.Host)
	assert.Equal(t, "9443", got.Port)
	assert.Equal(t, "server", got.TLS.Mode)
	assert.Equal(t, "/certs/tls.crt", got.TLS.CertFile)
	assert.Empty(t, got.TLS.KeyFile)
	assert.Equal(t, "8080", base.Port, "the loaded config is not modified")
}
