package cmd

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nuvio-play/nuvioplay/adapter"
	"github.com/nuvio-play/nuvioplay/key"
	"github.com/nuvio-play/nuvioplay/playback"
	"github.com/nuvio-play/nuvioplay/tui"
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("backend", "b", "", "Decoder backend to use (mpv, vlc, ffplay)")
	_ = runCmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(adapter.KindMPV), string(adapter.KindVLC), string(adapter.KindFFplay)}, cobra.ShellCompDirectiveNoFileComp
	})

	runCmd.Flags().StringP("title", "t", "", "Display title for the session")
	runCmd.Flags().StringP("content", "c", "", "Content identifier for watch-progress tracking")
	runCmd.Flags().StringP("episode", "e", "", "Episode identifier for watch-progress tracking")
	runCmd.Flags().Float64P("duration", "d", 0, "Estimated duration in seconds until the decoder confirms one")
	runCmd.Flags().BoolP("paused", "p", false, "Start the session paused")
	runCmd.Flags().StringArrayP("header", "H", nil, "HTTP header to send to the source, as 'Name: value'")
}

// runCmd starts a playback session over a streaming source.
var runCmd = &cobra.Command{
	Use:     "run [url]",
	Short:   "Play a streaming source",
	Args:    cobra.MaximumNArgs(1),
	Example: "  nuvioplay run https://cdn.example.com/stream.m3u8 -c tt0111161 -t \"The Movie\"",
	Run: func(cmd *cobra.Command, args []string) {
		var uri string
		if len(args) >= 1 {
			uri = args[0]
		} else {
			input := survey.Input{Message: "Stream URL:"}
			handleErr(survey.AskOne(&input, &uri, survey.WithValidator(survey.Required)))
		}

		backend := lo.Must(cmd.Flags().GetString("backend"))
		if backend == "" {
			backend = viper.GetString(key.PlayerBackend)
		}
		checkBackend(backend)

		headers, err := parseHeaders(lo.Must(cmd.Flags().GetStringArray("header")))
		handleErr(err)

		controller, err := playback.New(playback.Options{
			SourceURI:         uri,
			Headers:           headers,
			Backend:           adapter.Kind(backend),
			ContentID:         lo.Must(cmd.Flags().GetString("content")),
			EpisodeID:         lo.Must(cmd.Flags().GetString("episode")),
			EstimatedDuration: lo.Must(cmd.Flags().GetFloat64("duration")),
			StartPaused:       lo.Must(cmd.Flags().GetBool("paused")),
		})
		handleErr(err)

		title := lo.Must(cmd.Flags().GetString("title"))
		if title == "" {
			title = uri
		}

		handleErr(tui.Run(&tui.Options{
			Controller: controller,
			Title:      title,
		}))
	},
}

// parseHeaders converts repeated 'Name: value' flags into a header map.
func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, found := strings.Cut(h, ":")
		if !found || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	return headers, nil
}
