// Package pipeline runs the cleaning and knowledge-base stages end to end and writes
// their artifacts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/medloom/internal/kb"
	"github.com/KaramelBytes/medloom/internal/logging"
	"github.com/KaramelBytes/medloom/internal/metrics"
	"github.com/KaramelBytes/medloom/internal/quality"
	"github.com/KaramelBytes/medloom/internal/records"
	"github.com/KaramelBytes/medloom/internal/store"
	"github.com/KaramelBytes/medloom/internal/tables"
	"github.com/KaramelBytes/medloom/internal/utils"
)

// ErrInputNotFound is returned before any artifact is written when the input file is missing.
var ErrInputNotFound = errors.New("input file not found")

// Options configures a run.
type Options struct {
	InputFile  string
	CleanedDir string
	KBDir      string
	// SQLitePath enables the SQLite mirror of the derived tables when set.
	SQLitePath string

	Parser records.Options
	// Areas adds branch keyword → area mappings on top of the built-in ones.
	Areas map[string]string
	TopN  int

	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
	// Now and NewRunID are overridable for tests.
	Now      func() time.Time
	NewRunID func() string
}

// Result describes a finished run.
type Result struct {
	RunID     string
	Parsed    *records.ParseResult
	Report    *quality.Report
	Tables    *tables.Tables
	KB        *kb.KnowledgeBase
	Artifacts []string
	Duration  time.Duration
}

// KBPath returns where the knowledge base of a run with these options is written.
func (o Options) KBPath() string { return filepath.Join(o.KBDir, kb.FileName) }

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewRunID == nil {
		o.NewRunID = uuid.NewString
	}
}

// Analyze runs every stage in memory and writes nothing.
func Analyze(ctx context.Context, opt Options) (*Result, error) {
	opt.defaults()
	start := opt.Now()
	log := opt.Logger.WithField("input", opt.InputFile)

	fi, err := os.Stat(opt.InputFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opt.InputFile)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("input %s is a directory", opt.InputFile)
	}

	parsed, err := records.NewParser(opt.Parser).ParseFile(opt.InputFile)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", opt.InputFile, err)
	}
	log.WithFields(logrus.Fields{
		"rows":       parsed.RowsRead,
		"parsed":     len(parsed.Appointments),
		"row_errors": len(parsed.Errors),
	}).Info("parsed input")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	norm := records.NewNormalizer(records.NewAreaMapper(opt.Areas)).Normalize(parsed.Appointments)
	if len(norm.Duplicates) > 0 {
		log.WithField("duplicates", len(norm.Duplicates)).Warn("dropped duplicate visit ids")
	}
	t := tables.Derive(norm.Appointments)

	res := &Result{RunID: opt.NewRunID(), Parsed: parsed, Tables: t}
	res.Report = quality.Build(quality.RunInfo{RunID: res.RunID, GeneratedAt: start}, parsed, norm, t)
	res.KB = kb.Build(t, kb.Options{Source: filepath.Base(opt.InputFile), TopN: opt.TopN})
	log.WithFields(logrus.Fields{
		"accepted": res.Report.Rows.Accepted,
		"rejected": res.Report.Rows.Rejected,
		"status":   res.Report.Status,
	}).Info("built report and knowledge base")
	res.Duration = opt.Now().Sub(start)
	return res, nil
}

// Run analyzes the input and writes the derived tables, the cleaning report, the knowledge
// base and the insights summary. Nothing is written when the input cannot be read.
func Run(ctx context.Context, opt Options) (*Result, error) {
	opt.defaults()
	start := opt.Now()
	res, err := Analyze(ctx, opt)
	if err != nil {
		opt.Metrics.ObservePipelineRun("failed")
		return nil, err
	}
	if err := write(ctx, opt, res); err != nil {
		opt.Metrics.ObservePipelineRun("failed")
		return nil, err
	}
	opt.Metrics.ObserveRows(res.Report.Rows.Accepted, res.Report.Rows.Rejected)
	opt.Metrics.ObservePipelineRun("success")
	res.Duration = opt.Now().Sub(start)
	opt.Logger.WithFields(logrus.Fields{
		"run_id":    res.RunID,
		"artifacts": len(res.Artifacts),
	}).Info("pipeline finished")
	return res, nil
}

func write(ctx context.Context, opt Options, res *Result) error {
	paths, err := res.Tables.WriteCSV(opt.CleanedDir)
	res.Artifacts = append(res.Artifacts, paths...)
	if err != nil {
		return fmt.Errorf("write tables: %w", err)
	}

	b, err := utils.PrettyJSON(res.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	reportPath := filepath.Join(opt.CleanedDir, quality.ReportFile)
	if err := utils.SafeWriteFile(reportPath, b); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	res.Artifacts = append(res.Artifacts, reportPath)

	kbPath := opt.KBPath()
	if err := kb.Save(res.KB, kbPath); err != nil {
		return fmt.Errorf("write knowledge base: %w", err)
	}
	res.Artifacts = append(res.Artifacts, kbPath)

	insightsPath := filepath.Join(opt.KBDir, kb.InsightsFile)
	if err := utils.SafeWriteFile(insightsPath, []byte(kb.Insights(res.KB))); err != nil {
		return fmt.Errorf("write insights: %w", err)
	}
	res.Artifacts = append(res.Artifacts, insightsPath)

	if opt.SQLitePath != "" {
		db, err := store.Open(opt.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite export: %w", err)
		}
		defer db.Close()
		if err := db.Replace(ctx, res.Tables); err != nil {
			return fmt.Errorf("sqlite export: %w", err)
		}
		res.Artifacts = append(res.Artifacts, opt.SQLitePath)
	}
	return nil
}
