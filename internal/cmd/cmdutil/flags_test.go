package cmdutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckdake/fitler/internal/cmd/table"
	"github.com/ckdake/fitler/pkg/activities"
	"github.com/ckdake/fitler/pkg/errors"
	"github.com/ckdake/fitler/pkg/period"
)

func TestPeriodFlagsRange(t *testing.T) {
	tests := []struct {
		name    string
		arg, to string
		from    string
		wantTo  string
		wantErr bool
	}{
		{name: "single month", arg: "2024-08", from: "2024-08", wantTo: "2024-08"},
		{name: "range", arg: "2024-01", to: "2024-03", from: "2024-01", wantTo: "2024-03"},
		{name: "reversed", arg: "2024-03", to: "2024-01", wantErr: true},
		{name: "bad month", arg: "2024-13", wantErr: true},
		{name: "bad to", arg: "2024-01", to: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "x"}
			flags := AddPeriodFlags(cmd)
			if tt.to != "" {
				require.NoError(t, cmd.Flags().Set("to", tt.to))
			}
			from, to, err := flags.Range(tt.arg)
			if tt.wantErr {
				assert.True(t, errors.IsValidationError(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, period.MustParse(tt.from), from)
			assert.Equal(t, period.MustParse(tt.wantTo), to)
		})
	}
}

func TestSourceFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	flags := AddSourceFlags(cmd, "sources")
	require.NoError(t, cmd.ParseFlags([]string{"--source", "strava,rwgps", "-s", "Garmin"}))

	got, err := flags.Parsed()
	require.NoError(t, err)
	assert.Equal(t, []activities.Source{activities.Strava, activities.RideWithGPS, activities.Garmin}, got)

	none, err := (&SourceFlags{}).Parsed()
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = (&SourceFlags{Sources: []string{"polar"}}).Parsed()
	assert.True(t, errors.IsValidationError(err))
}

func TestWrite(t *testing.T) {
	data := table.Data{Headers: []string{"Period"}, Rows: [][]string{{"2024-08"}}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "csv", nil, data))
	assert.Equal(t, "Period\n2024-08\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, "json", map[string]int{"links": 2}, data))
	assert.JSONEq(t, `{"links": 2}`, buf.String())

	assert.Error(t, Write(&buf, "xml", nil, data))
}

func TestConfirm(t *testing.T) {
	for answer, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		var prompt bytes.Buffer
		assert.Equal(t, want, Confirm(strings.NewReader(answer), &prompt, "Reset 2024-08?"), "answer %q", answer)
		assert.Equal(t, "Reset 2024-08? [y/N]: ", prompt.String())
	}
}
