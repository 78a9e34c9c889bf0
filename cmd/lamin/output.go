package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"lamin/internal/setup"
	"lamin/internal/tracking"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// finishOutcome prints the outcome message and maps the outcome to the
// command's error. Store failures carry no outcome and surface as-is.
func finishOutcome(cmd *cobra.Command, outcome tracking.Outcome, err error) error {
	if outcome.Message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
	}
	if outcome.ExitCode != 0 {
		return &ExitError{Code: outcome.ExitCode, Err: err, Silent: true}
	}
	return err
}

func renderInfo(info *setup.Info) string {
	rows := [][]string{}
	if info.User != nil {
		rows = append(rows, []string{"User", fmt.Sprintf("%s (uid: %s)", info.User.Handle, info.User.UID)})
	} else {
		rows = append(rows, []string{"User", "not logged in"})
	}
	if inst := info.Instance; inst != nil {
		rows = append(rows,
			[]string{"Instance", inst.Slug()},
			[]string{"Storage", inst.Storage},
			[]string{"Database", inst.DB},
			[]string{"Registered", yesNo(inst.Registered)},
		)
		if inst.Schema != "" {
			rows = append(rows, []string{"Schema", inst.Schema})
		}
		if info.StorageLocal {
			rows = append(rows,
				[]string{"Storage writable", yesNo(info.StorageWritable)},
				[]string{"Storage free", humanBytes(info.StorageFree)},
			)
		}
	} else {
		rows = append(rows, []string{"Instance", "none loaded"})
	}
	rows = append(rows,
		[]string{"Cache dir", info.CacheDir},
		[]string{"Settings dir", info.SettingsDir},
	)
	return renderTable([]string{"Setting", "Value"}, rows, nil)
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
