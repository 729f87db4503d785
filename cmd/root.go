// Package cmd implements the command-line interface for nuvioplay.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nuvio-play/nuvioplay/color"
	"github.com/nuvio-play/nuvioplay/constant"
	"github.com/nuvio-play/nuvioplay/icon"
	"github.com/nuvio-play/nuvioplay/key"
	"github.com/nuvio-play/nuvioplay/log"
	"github.com/nuvio-play/nuvioplay/style"
	"github.com/nuvio-play/nuvioplay/util"
	"github.com/nuvio-play/nuvioplay/where"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., emoji, nerd, plain)")
	_ = rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	})
	_ = viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons"))

	// Initialize cleanup of localized temporary files on application startup.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for the nuvioplay application.
var rootCmd = &cobra.Command{
	Use:   constant.Nuvioplay,
	Short: "A playback engine for streaming media with progress sync and subtitle arbitration",
	Long: style.New().Italic(true).Foreground(color.HiCyan).
		Render("  nuvioplay - drive native decoders over streaming sources from your terminal"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		_ = cmd.Help()
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
