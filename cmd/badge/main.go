package main

import (
	"fmt"
	"os"
	"time"

	"pinboard/internal/clientsync"
	"pinboard/internal/config"
	"pinboard/internal/logger"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	session   string
	timeout   time.Duration
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "badge",
	Short: "Watch pinboard unread badges from the terminal",
	Long: `badge polls a pinboard server the same way the web client does and
prints the notification and chat unread totals as they change.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if session == "" {
			session = os.Getenv("PINBOARD_SESSION")
		}
		if session == "" {
			return fmt.Errorf("a session cookie is required (--session or PINBOARD_SESSION)")
		}
		return logger.Initialize(logLevel, "badge.log")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "pinboard server base URL")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "value of the pinboard_session cookie")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(watchCmd, openCmd)
}

func newClient() *clientsync.Client {
	c := clientsync.NewClient(serverURL, timeout)
	c.SetSession(session)
	return c
}

func intervals() (time.Duration, time.Duration) {
	cfg := config.Load()
	return cfg.NotificationPollInterval, cfg.ChatPollInterval
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBadges(notifyEvery, chatEvery time.Duration) *clientsync.Badges {
	return clientsync.NewBadges(newClient(), notifyEvery, chatEvery)
}
