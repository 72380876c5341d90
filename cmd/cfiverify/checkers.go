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
	"text/tabwriter"

	"github.com/google/subcommands"

	"github.com/securego/cfiverify/checkers"
	"github.com/securego/cfiverify/issue"
)

// Checkers implements subcommands.Command for the "checkers" command.
type Checkers struct {
	stdout io.Writer
}

// Name implements subcommands.Command.Name.
func (*Checkers) Name() string {
	return "checkers"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Checkers) Synopsis() string {
	return "list the available checkers"
}

// Usage implements subcommands.Command.Usage.
func (*Checkers) Usage() string {
	return "checkers - list the available checkers with their CWE.\n"
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Checkers) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (c *Checkers) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	out := c.stdout
	if out == nil {
		out = os.Stdout
	}
	rules := checkers.Generate()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCWE\tDESCRIPTION")
	for _, id := range rules.IDs() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", id, issue.GetCweByRule(id).SprintID(), rules[id].Description)
	}
	if err := w.Flush(); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
