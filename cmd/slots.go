package cmd

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/spigell/lead-responder/internal/meetings"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Suggest upcoming meeting slots",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tz, _ := cmd.Flags().GetString("tz")
		duration, _ := cmd.Flags().GetInt("duration")
		count, _ := cmd.Flags().GetInt("count")

		s := meetings.SuggestSlots(time.Now(), tz, duration, count)

		tw := table.NewWriter()
		tw.SetOutputMirror(cmd.OutOrStdout())
		tw.SetTitle("Slots (" + s.Timezone + ")")
		tw.AppendHeader(table.Row{"Day", "Date", "Start", "End", "Minutes"})
		for _, slot := range s.Slots {
			tw.AppendRow(table.Row{slot.DayOfWeek, slot.Start.Format("2006-01-02"), slot.TimeFormatted, slot.End().Format("03:04 PM"), slot.DurationMinutes})
		}
		tw.Render()
		return nil
	},
}

func init() {
	slotsCmd.Flags().String("tz", "UTC", "IANA time zone")
	slotsCmd.Flags().Int("duration", meetings.DefaultDuration, "meeting length in minutes")
	slotsCmd.Flags().Int("count", meetings.DefaultSlots, "number of slots")
	rootCmd.AddCommand(slotsCmd)
}
