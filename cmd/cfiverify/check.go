// (c) Copyright cfiverify's authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/securego/cfiverify"
	"github.com/securego/cfiverify/report"
)

// Check implements subcommands.Command for the "check" command.
type Check struct {
	format      string
	output      string
	config      string
	include     string
	exclude     string
	failFast    bool
	concurrency int
	metrics     string
	noColor     bool
	verbose     bool
	sort        bool

	stdout io.Writer
	stderr io.Writer
}

func newCheck() *Check {
	return &Check{stdout: os.Stdout, stderr: os.Stderr}
}

// Name implements subcommands.Command.Name.
func (*Check) Name() string {
	return "check"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Check) Synopsis() string {
	return "verify the indirect calls of lifted modules"
}

// Usage implements subcommands.Command.Usage.
func (*Check) Usage() string {
	return `check [flags] MODULE [MODULE...] - verify the indirect calls of lifted modules.

	# Check a module and save the results in json format
	$ cfiverify check -fmt=json -out=results.json guest.json

	# Run a specific checker
	$ cfiverify check -include=C102 guest.yaml

`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Check) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "fmt", "text", "Set output format. Valid options are: "+strings.Join(report.Formats, ", "))
	f.StringVar(&c.output, "out", "", "Set output file for results")
	f.StringVar(&c.config, "conf", "", "Path to optional config file (.json, .yaml or .toml)")
	f.StringVar(&c.include, "include", "", "Comma separated list of checker IDs to include. (see checkers)")
	f.StringVar(&c.exclude, "exclude", "", "Comma separated list of checker IDs to exclude. (see checkers)")
	f.BoolVar(&c.failFast, "failfast", false, "Stop checking a function at its first violation")
	f.IntVar(&c.concurrency, "concurrency", 0, "Number of functions checked in parallel (default: number of CPUs)")
	f.StringVar(&c.metrics, "metrics", "", "Write Prometheus metrics in text format to the given file")
	f.BoolVar(&c.noColor, "no-color", false, "Prints the text format report without colorization")
	f.BoolVar(&c.verbose, "verbose", false, "Log every checked statement")
	f.BoolVar(&c.sort, "sort", true, "Sort issues by severity")
}

// Execute implements subcommands.Command.Execute.
func (c *Check) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintf(c.stderr, "Error: MODULE [MODULE...] expected\n\n%s", c.Usage())
		return subcommands.ExitUsageError
	}
	logger := c.newLogger()

	conf, err := c.loadConfig()
	if err != nil {
		logger.Errorf("cannot continue: %v", err)
		return subcommands.ExitFailure
	}

	analyzer := cfiverify.NewAnalyzer(conf, logger)
	if len(analyzer.Rules()) == 0 {
		logger.Error("cannot continue: no checkers are enabled")
		return subcommands.ExitFailure
	}
	logger.Infof("Enabled checkers: %s", strings.Join(analyzer.Rules().IDs(), ", "))

	if err := analyzer.Process(f.Args()...); err != nil {
		logger.Errorf("cannot continue: %v", err)
		return subcommands.ExitFailure
	}

	issues, metrics, errors := analyzer.Report()
	if c.sort {
		sortIssues(issues)
	}
	data := cfiverify.NewReportInfo(issues, metrics, errors).WithVersion(Version)

	if err := c.saveReport(f.Args(), data); err != nil {
		logger.Errorf("writing report: %v", err)
		return subcommands.ExitFailure
	}
	if c.metrics != "" {
		if err := writeMetrics(c.metrics, analyzer); err != nil {
			logger.Errorf("writing metrics: %v", err)
			return subcommands.ExitFailure
		}
	}

	if len(issues) > 0 || len(errors) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *Check) newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(c.stderr)
	logger.SetLevel(logrus.WarnLevel)
	if c.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// loadConfig reads the optional config file and lets flags override its
// globals
func (c *Check) loadConfig() (cfiverify.Config, error) {
	conf := cfiverify.NewConfig()
	if c.config != "" {
		var err error
		if conf, err = cfiverify.LoadConfig(c.config); err != nil {
			return nil, err
		}
	}
	if c.failFast {
		conf.SetGlobal(cfiverify.FailFast, "true")
	}
	if c.concurrency > 0 {
		conf.SetGlobal(cfiverify.Concurrency, strconv.Itoa(c.concurrency))
	}
	if c.include != "" {
		conf.SetGlobal(cfiverify.IncludeRules, c.include)
	}
	if c.exclude != "" {
		conf.SetGlobal(cfiverify.ExcludeRules, c.exclude)
	}
	return conf, nil
}

func (c *Check) saveReport(modules []string, data *cfiverify.ReportInfo) error {
	if c.output == "" {
		return report.CreateReport(c.stdout, c.format, !c.noColor, modules, data)
	}
	// #nosec
	outfile, err := os.Create(c.output)
	if err != nil {
		return err
	}
	defer outfile.Close() // #nosec
	return report.CreateReport(outfile, c.format, false, modules, data)
}

func writeMetrics(path string, analyzer *cfiverify.Analyzer) error {
	// #nosec
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close() // #nosec
	return analyzer.Collector().WriteText(out)
}
