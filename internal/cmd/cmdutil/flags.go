// Package cmdutil provides shared flags and helpers for fitler commands.
package cmdutil

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ckdake/fitler/internal/cmd/output"
	"github.com/ckdake/fitler/internal/cmd/table"
	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/period"
)

// PeriodFlags holds the optional end of a month range.
type PeriodFlags struct {
	To string
}

// AddPeriodFlags adds --to to a command that takes a YYYY-MM argument.
func AddPeriodFlags(cmd *cobra.Command) *PeriodFlags {
	flags := &PeriodFlags{}
	cmd.Flags().StringVar(&flags.To, "to", "",
		"Last month of the range (YYYY-MM), inclusive")
	return flags
}

// Range parses the month argument and --to into an inclusive range. Without
// --to the range is the single month.
func (f *PeriodFlags) Range(arg string) (period.Period, period.Period, error) {
	from, err := ParsePeriod("period", arg)
	if err != nil {
		return period.Period{}, period.Period{}, err
	}
	to := from
	if f != nil && f.To != "" {
		if to, err = ParsePeriod("to", f.To); err != nil {
			return period.Period{}, period.Period{}, err
		}
		if to.Before(from) {
			return period.Period{}, period.Period{}, errors.NewValidationError("to", f.To, "must not be before "+from.String())
		}
	}
	return from, to, nil
}

// ParsePeriod parses a YYYY-MM value for the named argument.
func ParsePeriod(name, value string) (period.Period, error) {
	p, err := period.Parse(value)
	if err != nil {
		return period.Period{}, errors.WrapValidation(name, err)
	}
	if !p.Valid() {
		return period.Period{}, errors.NewValidationError(name, value, "not a calendar month")
	}
	return p, nil
}

// SourceFlags holds a source filter.
type SourceFlags struct {
	Sources []string
}

// AddSourceFlags adds --source to a command.
func AddSourceFlags(cmd *cobra.Command, usage string) *SourceFlags {
	flags := &SourceFlags{}
	cmd.Flags().StringSliceVarP(&flags.Sources, "source", "s", nil, usage)
	return flags
}

// Parsed resolves the source names.
func (f *SourceFlags) Parsed() ([]activities.Source, error) {
	if f == nil || len(f.Sources) == 0 {
		return nil, nil
	}
	out, err := activities.ParseSources(f.Sources...)
	if err != nil {
		return nil, errors.WrapValidation("source", err)
	}
	return out, nil
}

// Write renders raw in the requested format. Table and CSV output use
// tabular.
func Write(w io.Writer, format string, raw any, tabular table.Data) error {
	f, err := output.ParseFormat(format)
	if err != nil {
		return errors.WrapValidation("output", err)
	}
	return output.Write(w, output.DetectFormat(string(f)), raw, &tabular)
}

// Confirm asks a yes/no question on out and reads the answer from in.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	_, _ = io.WriteString(out, question+" [y/N]: ")
	buf := make([]byte, 64)
	n, _ := in.Read(buf)
	answer := strings.ToLower(strings.TrimSpace(string(buf[:n])))
	return answer == "y" || answer == "yes"
}
