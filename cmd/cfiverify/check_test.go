package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/securego/cfiverify"
)

// checkReport picks the fields of a json report the tests look at
type checkReport struct {
	Issues []struct {
		RuleID   string `json:"rule_id"`
		Function string `json:"function"`
		Address  uint64 `json:"address"`
	}
	Stats cfiverify.Metrics
}

const (
	lookupModule = "../../ir/testdata/lookup.yaml"
	callsModule  = "../../ir/testdata/calls.json"
	cleanModule  = "testdata/clean.json"
)

var _ = Describe("check command", func() {
	var (
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	)

	BeforeEach(func() {
		stdout = new(bytes.Buffer)
		stderr = new(bytes.Buffer)
	})

	run := func(args ...string) subcommands.ExitStatus {
		cmd := &Check{stdout: stdout, stderr: stderr}
		fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
		cmd.SetFlags(fs)
		Expect(fs.Parse(args)).To(Succeed())
		return cmd.Execute(context.Background(), fs)
	}

	decode := func() *checkReport {
		data := &checkReport{}
		Expect(json.Unmarshal(stdout.Bytes(), data)).To(Succeed())
		return data
	}

	It("should succeed on a module without violations", func() {
		Expect(run("-fmt=json", cleanModule)).To(Equal(subcommands.ExitSuccess))
		data := decode()
		Expect(data.Issues).To(BeEmpty())
		Expect(data.Stats.NumFunctions).To(Equal(1))
	})

	It("should fail when violations are found", func() {
		Expect(run("-fmt=json", lookupModule, callsModule)).To(Equal(subcommands.ExitFailure))
		data := decode()
		Expect(data.Issues).To(HaveLen(3))
		Expect(data.Stats.NumFunctions).To(Equal(3))
	})

	It("should honor checker filters", func() {
		Expect(run("-fmt=json", "-include=C101", lookupModule, callsModule)).To(Equal(subcommands.ExitFailure))
		data := decode()
		Expect(data.Issues).To(HaveLen(2))
		for _, iss := range data.Issues {
			Expect(iss.RuleID).To(Equal("C101"))
		}

		stdout.Reset()
		Expect(run("-fmt=json", "-exclude=C101", callsModule)).To(Equal(subcommands.ExitSuccess))
		Expect(decode().Issues).To(BeEmpty())
	})

	It("should refuse to run without checkers", func() {
		Expect(run("-exclude=C101,C102", cleanModule)).To(Equal(subcommands.ExitFailure))
		Expect(stderr.String()).To(ContainSubstring("no checkers are enabled"))
	})

	It("should require a module", func() {
		Expect(run()).To(Equal(subcommands.ExitUsageError))
		Expect(stderr.String()).To(ContainSubstring("MODULE [MODULE...] expected"))
	})

	It("should fail on an unreadable module", func() {
		Expect(run("does-not-exist.json")).To(Equal(subcommands.ExitFailure))
		Expect(stderr.String()).To(ContainSubstring("loading module"))
	})

	It("should fail on an unknown format", func() {
		Expect(run("-fmt=html", cleanModule)).To(Equal(subcommands.ExitFailure))
		Expect(stderr.String()).To(ContainSubstring("unsupported report format"))
	})

	It("should write the report and the metrics to files", func() {
		dir := GinkgoT().TempDir()
		out := filepath.Join(dir, "report.csv")
		metrics := filepath.Join(dir, "metrics.prom")

		Expect(run("-fmt=csv", "-out="+out, "-metrics="+metrics, callsModule)).To(Equal(subcommands.ExitFailure))
		Expect(stdout.Len()).To(BeZero())

		csv, err := os.ReadFile(out)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(csv)).To(ContainSubstring("guest_func_calls,0x1009,IndirectCall"))

		text, err := os.ReadFile(metrics)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(text)).To(ContainSubstring("cfiverify_functions_checked_total 1"))
		Expect(string(text)).To(ContainSubstring(`cfiverify_violations_total{rule="C101"} 1`))
	})

	It("should read globals from a config file", func() {
		conf := filepath.Join(GinkgoT().TempDir(), "cfiverify.toml")
		Expect(os.WriteFile(conf, []byte("[global]\nexclude = \"C101\"\n"), 0o600)).To(Succeed())
		Expect(run("-fmt=json", "-conf="+conf, callsModule)).To(Equal(subcommands.ExitSuccess))
		Expect(decode().Issues).To(BeEmpty())
	})

	It("should log statements when verbose", func() {
		Expect(run("-fmt=json", "-verbose", callsModule)).To(Equal(subcommands.ExitFailure))
		Expect(stderr.String()).To(ContainSubstring("Checking function: guest_func_calls"))
	})
})

var _ = Describe("checkers command", func() {
	It("should list every checker with its CWE", func() {
		buf := new(bytes.Buffer)
		cmd := &Checkers{stdout: buf}
		Expect(cmd.Execute(context.Background(), flag.NewFlagSet("checkers", flag.ContinueOnError))).To(Equal(subcommands.ExitSuccess))
		Expect(buf.String()).To(MatchRegexp(`C101\s+CWE-691\s+Indirect call target`))
		Expect(buf.String()).To(MatchRegexp(`C102\s+CWE-129\s+Call table lookup`))
	})
})

var _ = Describe("version command", func() {
	It("should print the build information", func() {
		Version, GitTag, BuildDate = "", "v1.0.0", "2026-10-16"
		prepareVersionInfo()
		Expect(Version).ToNot(BeEmpty())

		buf := new(bytes.Buffer)
		cmd := &VersionCmd{stdout: buf}
		Expect(cmd.Execute(context.Background(), flag.NewFlagSet("version", flag.ContinueOnError))).To(Equal(subcommands.ExitSuccess))
		Expect(buf.String()).To(ContainSubstring("Git tag: v1.0.0"))
		Expect(buf.String()).To(ContainSubstring("Build date: 2026-10-16"))
	})
})
