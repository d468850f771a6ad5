package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
)

const dateLayout = "2006-01-02"

var (
	exportFormat   string
	exportOut      string
	exportStart    string
	exportEnd      string
	exportProvince string
	exportBasin    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write filtered observations to a CSV or Excel file",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := exportFilter()
		if err != nil {
			return err
		}

		env, err := openStore()
		if err != nil {
			return err
		}
		defer env.Close()

		file, err := service.NewExportService(env.Records, clockwork.NewRealClock()).Export(cmd.Context(), filter, exportFormat)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		out := exportOut
		if out == "" {
			out = file.Name
		}
		if err := os.WriteFile(out, file.Data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", out)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", file.Rows, out)
		return nil
	},
}

// exportFilter builds the UTC query window; --end is inclusive of the whole day
func exportFilter() (repository.WaterQualityFilter, error) {
	filter := repository.WaterQualityFilter{Province: exportProvince, Basin: exportBasin}
	if exportStart != "" {
		t, err := time.Parse(dateLayout, exportStart)
		if err != nil {
			return filter, eris.Wrapf(err, "invalid --start %q", exportStart)
		}
		filter.Start = &t
	}
	if exportEnd != "" {
		t, err := time.Parse(dateLayout, exportEnd)
		if err != nil {
			return filter, eris.Wrapf(err, "invalid --end %q", exportEnd)
		}
		t = t.AddDate(0, 0, 1)
		filter.End = &t
	}
	return filter, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", service.FormatCSV, "csv or excel")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default generated name)")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "first day, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "last day, YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportProvince, "province", "", "only this province")
	exportCmd.Flags().StringVar(&exportBasin, "basin", "", "only this basin")
	rootCmd.AddCommand(exportCmd)
}
