package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"quizzapp-service/internal/terminal"
)

// NewPlayCmd runs the interactive terminal player.
func NewPlayCmd(configPath *string) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			// the player advances itself after printing feedback
			noLockout := time.Duration(0)
			rt, err := loadRuntime(cmd.Context(), *configPath, wiringOptions{lockout: &noLockout})
			if err != nil {
				return err
			}
			defer rt.close()
			return terminal.NewPlayer(rt.service, user).Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&user, "user", defaultUser(), "player name used for score tracking")
	return cmd
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
