package cli

import (
	"errors"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"quizzapp-service/internal/transport/telegram"
)

var errNoTelegramToken = errors.New("telegram token not configured")

// NewBotCmd runs the Telegram bot with long polling.
func NewBotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the quiz as a Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath, wiringOptions{})
			if err != nil {
				return err
			}
			defer rt.close()

			token := rt.cfg.Telegram.Token
			if env := os.Getenv("TELEGRAM_TOKEN"); env != "" {
				token = env
			}
			if token == "" {
				return errNoTelegramToken
			}

			api, err := tgbotapi.NewBotAPI(token)
			if err != nil {
				return err
			}
			api.Debug = rt.cfg.Telegram.Debug
			rt.logger.Info().Str("account", api.Self.UserName).Msg("authorized on telegram")

			u := tgbotapi.NewUpdate(0)
			u.Timeout = 60
			updates := api.GetUpdatesChan(u)
			defer api.StopReceivingUpdates()

			telegram.New(api, rt.service, rt.logger).Run(cmd.Context(), updates)
			return nil
		},
	}
}
