package cmd

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/nuvio-play/nuvioplay/auth"
	"github.com/nuvio-play/nuvioplay/color"
	"github.com/nuvio-play/nuvioplay/icon"
	"github.com/nuvio-play/nuvioplay/style"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authDeleteCmd)
}

// authCmd serves as the parent command for watch-state service credentials.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the watch-state service API token",
}

// authSetCmd stores the API token in the system keyring.
var authSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store the watch-state service API token in the system keyring",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var token string
		if len(args) >= 1 {
			token = args[0]
		} else {
			prompt := survey.Password{Message: "API token:"}
			handleErr(survey.AskOne(&prompt, &token, survey.WithValidator(survey.Required)))
		}

		if token == "" {
			handleErr(errors.New("token must not be empty"))
		}

		handleErr(auth.SetToken(token))
		fmt.Printf("%s token stored\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

// authStatusCmd reports whether a token is currently stored.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a watch-state service API token is stored",
	Run: func(cmd *cobra.Command, args []string) {
		_, err := auth.GetToken()
		if err != nil {
			fmt.Printf("%s no token stored\n", style.Fg(color.Red)(icon.Get(icon.Fail)))
			return
		}

		fmt.Printf("%s token present\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}

// authDeleteCmd removes the token from the system keyring.
var authDeleteCmd = &cobra.Command{
	Use:     "delete",
	Short:   "Remove the watch-state service API token from the system keyring",
	Aliases: []string{"remove"},
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(auth.DeleteToken())
		fmt.Printf("%s token deleted\n", style.Fg(color.Green)(icon.Get(icon.Success)))
	},
}
