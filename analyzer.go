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

// Package cfiverify holds the central verification logic used by cfiverify
package cfiverify

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/securego/cfiverify/checkers"
	"github.com/securego/cfiverify/internal/stats"
	"github.com/securego/cfiverify/ir"
	"github.com/securego/cfiverify/issue"
)

// Metrics used when reporting information about a verification run.
type Metrics struct {
	NumFunctions    int `json:"functions" yaml:"functions"`
	NumInstructions int `json:"instructions" yaml:"instructions"`
	NumStatements   int `json:"statements" yaml:"statements"`
	NumFound        int `json:"found" yaml:"found"`
}

// Analyzer is the main object of cfiverify. It runs the analysis of every
// function of a module and checks the enabled rules against the result.
type Analyzer struct {
	config      Config
	logger      *logrus.Logger
	rules       checkers.RuleList
	failFast    bool
	concurrency int
	collector   *stats.Collector

	mu     sync.Mutex
	issues []*issue.Issue
	stats  *Metrics
	errors map[string][]Error
}

// NewAnalyzer builds a new analyzer.
func NewAnalyzer(conf Config, logger *logrus.Logger) *Analyzer {
	failFast, _ := conf.IsGlobalEnabled(FailFast)
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
	}
	var filters []checkers.RuleFilter
	if ids := conf.ruleIDs(IncludeRules); len(ids) > 0 {
		filters = append(filters, checkers.NewRuleFilter(false, ids...))
	}
	if ids := conf.ruleIDs(ExcludeRules); len(ids) > 0 {
		filters = append(filters, checkers.NewRuleFilter(true, ids...))
	}
	return &Analyzer{
		config:      conf,
		logger:      logger,
		rules:       checkers.Generate(filters...),
		failFast:    failFast,
		concurrency: conf.concurrency(),
		collector:   stats.New(),
		issues:      make([]*issue.Issue, 0, 16),
		stats:       &Metrics{},
		errors:      make(map[string][]Error),
	}
}

// LoadRules replaces the enabled rules
func (a *Analyzer) LoadRules(rules checkers.RuleList) {
	a.rules = rules
}

// Rules returns the enabled rules
func (a *Analyzer) Rules() checkers.RuleList {
	return a.rules
}

// Collector returns the Prometheus counters of the analyzer
func (a *Analyzer) Collector() *stats.Collector {
	return a.collector
}

// Process loads IR documents from disk and checks them
func (a *Analyzer) Process(paths ...string) error {
	for _, path := range paths {
		mod, err := ir.LoadModule(path)
		if err != nil {
			return fmt.Errorf("loading module: %w", err)
		}
		a.CheckModule(mod)
	}
	return nil
}

// CheckModule checks every function of mod. Functions are independent and
// are checked in parallel. A function that fails to analyze is recorded as
// an Error and does not stop the others.
func (a *Analyzer) CheckModule(mod *ir.Module) {
	a.logger.Infof("Checking module: %s (%d functions)", mod.Name, len(mod.Functions))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for _, fn := range mod.Functions {
		fn := fn
		g.Go(func() error {
			a.checkFunction(mod, fn)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Analyzer) checkFunction(mod *ir.Module, fn *ir.Function) {
	name := fn.DisplayName()
	a.logger.Debugf("Checking function: %s at 0x%x", name, fn.Addr)
	start := time.Now()
	verdict, err := checkers.CheckCalls(fn, mod.Metadata, a.rules, checkers.Options{FailFast: a.failFast}, a.logger)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.logger.Errorf("Integration error in %s: %v", name, err)
		a.errors[mod.Name] = append(a.errors[mod.Name], Error{Function: name, Address: fn.Addr, Err: err.Error()})
		a.collector.ObserveError()
		return
	}
	rules := make([]string, 0, len(verdict.Issues))
	for _, iss := range verdict.Issues {
		rules = append(rules, iss.RuleID)
	}
	a.issues = append(a.issues, verdict.Issues...)
	a.stats.NumFunctions++
	a.stats.NumInstructions += fn.NumInstructions()
	a.stats.NumStatements += verdict.Statements
	a.stats.NumFound += len(verdict.Issues)
	a.collector.ObserveFunction(verdict.Statements, rules, time.Since(start))
}

// Report returns the current issues discovered, the metrics about the run
// and the integration errors
func (a *Analyzer) Report() ([]*issue.Issue, *Metrics, map[string][]Error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sort.Slice(a.issues, func(i, j int) bool {
		x, y := a.issues[i], a.issues[j]
		if x.Address != y.Address {
			return x.Address < y.Address
		}
		if x.StmtIdx != y.StmtIdx {
			return x.StmtIdx < y.StmtIdx
		}
		if x.Function != y.Function {
			return x.Function < y.Function
		}
		return x.RuleID < y.RuleID
	})
	sortErrors(a.errors)
	return a.issues, a.stats, a.errors
}

// Reset clears issues, metrics and errors from the configured analyzer
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.issues = make([]*issue.Issue, 0, 16)
	a.stats = &Metrics{}
	a.errors = make(map[string][]Error)
}
