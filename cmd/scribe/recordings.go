package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/scribe/internal/appconfig"
	"pkt.systems/scribe/internal/persist"
	"pkt.systems/scribe/schema"
)

func newRecordingsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "recordings",
		Short: "Manage stored recordings",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newRecordingsListCmd(&cfgPath))
	cmd.AddCommand(newRecordingsShowCmd(&cfgPath))
	cmd.AddCommand(newRecordingsDeleteCmd(&cfgPath))

	return cmd
}

func newRecordingsListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			summaries, err := store.ListRecordings(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTARTED\tEVENTS\tWORKFLOW")
			for _, s := range summaries {
				workflow := "-"
				if s.HasWorkflow {
					workflow = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					s.ID, s.Title, s.StartedAt.Format(time.RFC3339), s.EventCount, workflow)
			}
			return w.Flush()
		},
	}
}

func newRecordingsShowCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show <recording-id>",
		Short: "Print one recording as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			rec, err := store.GetRecording(cmd.Context(), schema.RecordingID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
}

func newRecordingsDeleteCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recording-id>",
		Short: "Delete a recording and its workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			id := schema.RecordingID(args[0])
			if err := store.DeleteRecording(cmd.Context(), id); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return err
		},
	}
}

func newWorkflowCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect synthesized workflows",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <recording-id>",
		Short: "Print the workflow for a recording as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), cfgPath)
			if err != nil {
				return err
			}
			wf, err := store.GetWorkflow(cmd.Context(), schema.RecordingID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd, wf)
		},
	})

	return cmd
}

func openStore(ctx context.Context, cfgPath string) (*persist.Store, error) {
	cfg, err := appconfig.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	rc, err := schema.NormalizeRecorderConfig(cfg.RecorderSchemaConfig())
	if err != nil {
		return nil, err
	}
	return persist.NewStoreWithLogger(rc.StateDir, rc.KeyStorePath, pslog.Ctx(ctx))
}

func printJSON(cmd *cobra.Command, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
