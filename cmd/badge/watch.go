package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print unread totals until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		notifyEvery, chatEvery := intervals()
		badges := newBadges(notifyEvery, chatEvery)
		out := cmd.OutOrStdout()
		badges.Notifications.OnChange(func(total int64) {
			fmt.Fprintf(out, "%s notifications: %d\n", time.Now().Format(time.TimeOnly), total)
		})
		badges.Chats.OnChange(func(total int64) {
			fmt.Fprintf(out, "%s chats: %d\n", time.Now().Format(time.TimeOnly), total)
		})

		badges.Activate(ctx)
		<-ctx.Done()
		badges.Deactivate()
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <userId>",
	Short: "Open a conversation (marking it read) and print the remaining chat total",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || userID == 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		total, err := newClient().OpenConversation(ctx, uint(userID))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "chats: %d\n", total)
		return nil
	},
}
