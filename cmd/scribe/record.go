package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/scribe"
	"pkt.systems/scribe/internal/appconfig"
	"pkt.systems/scribe/internal/chromert"
	"pkt.systems/scribe/schema"
)

func newRecordCmd() *cobra.Command {
	var cfgPath string
	var title string
	var startURL string
	var headless bool
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Launch the browser and record a session",
		Long: "Launches Chrome, starts recording the active tab, and runs until " +
			"interrupted. The finalized recording is stored under the state directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if headless {
				cfg.Browser.Headless = true
			}

			recorder, err := scribe.New(scribe.Config{
				Recorder: cfg.RecorderSchemaConfig(),
				Browser: chromert.Options{
					Headless:    cfg.Browser.Headless,
					ExecPath:    cfg.Browser.ExecPath,
					UserDataDir: cfg.Browser.UserDataDir,
				},
			}, scribe.Deps{Logger: logger})
			if err != nil {
				return err
			}
			if err := recorder.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = recorder.Close(context.Background()) }()

			req := schema.StartRecordingRequest{Title: title}
			if startURL != "" {
				tab, err := recorder.OpenTab(cmd.Context(), startURL)
				if err != nil {
					return err
				}
				req.TabID = tab.ID
			}
			start, err := recorder.StartRecording(cmd.Context(), req)
			if err != nil {
				return err
			}
			logger.Info("recording", "session", start.SessionID, "tab", start.TabID)

			events, cancel, err := recorder.Subscribe()
			if err != nil {
				return err
			}
			defer cancel()
			go logSessionEvents(cmd.Context(), logger, events)

			<-cmd.Context().Done()

			stop, err := recorder.StopRecording(context.Background(), schema.StopRecordingRequest{})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "recording %s saved (%d events)\n",
				stop.Recording.ID, len(stop.Recording.Events))
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&title, "title", "t", "", "title for the stored recording")
	cmd.Flags().StringVarP(&startURL, "url", "u", "", "open a new tab at this URL and record it")
	cmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
	return cmd
}

func logSessionEvents(ctx context.Context, logger pslog.Logger, events <-chan schema.SessionEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case schema.SessionEventCaptured:
				logger.Debug("event captured", "id", ev.EventID, "action", ev.ActionType, "tab", ev.TabID)
			case schema.SessionStateCaptured:
				logger.Debug("state captured", "id", ev.EventID, "tab", ev.TabID)
			case schema.SessionPreprocessingFailed:
				logger.Warn("workflow synthesis failed", "recording", ev.RecordingID, "err", ev.Err)
			default:
				logger.Info(string(ev.Type), "session", ev.SessionID, "recording", ev.RecordingID)
			}
		}
	}
}
