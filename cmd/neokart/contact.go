package main

import (
	"github.com/safar/neokart/internal/models"
	"github.com/spf13/cobra"
)

func newContactCmd(a *app) *cobra.Command {
	var msg models.ContactMessage
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message to the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.user.SendContactMessage(cmd.Context(), msg); err != nil {
				return err
			}
			a.message(cmd, "Your message has been sent successfully!")
			return nil
		},
	}
	cmd.Flags().StringVar(&msg.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&msg.Email, "email", "", "Email address to reply to")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "Subject")
	cmd.Flags().StringVar(&msg.Message, "message", "", "Message text")
	for _, f := range []string{"name", "email", "subject", "message"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
