package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/campusfix/campusfix/portal"
)

func newLoginCmd(client *portal.Client) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(os.Stderr, "Password: ")
				if _, err := fmt.Scanln(&password); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			if _, err := client.Login(cmd.Context(), args[0], password); err != nil {
				return err
			}
			fmt.Println("Signed in as", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(client *portal.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the session and cached responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			client.Logout()
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(client *portal.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s> (%s)\n", me.FullName, me.Email, me.Role)
			return nil
		},
	}
}

func newIssuesCmd(client *portal.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List maintenance issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := client.ListIssues(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tCATEGORY\tTITLE")
			for _, is := range issues {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", is.ID, is.Status, is.Priority, is.Category, is.Title)
			}
			return w.Flush()
		},
	}

	rate := &cobra.Command{
		Use:   "rate <id> <stars>",
		Short: "Rate a resolved issue (1-5)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id, stars int
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("bad issue id %q", args[0])
			}
			if _, err := fmt.Sscanf(args[1], "%d", &stars); err != nil || stars < 1 || stars > 5 {
				return fmt.Errorf("stars must be 1-5")
			}
			review, _ := cmd.Flags().GetString("review")
			return client.RateIssue(cmd.Context(), id, stars, review)
		},
	}
	rate.Flags().String("review", "", "optional review text")
	cmd.AddCommand(rate)
	return cmd
}

func newStatsCmd(client *portal.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := client.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Total: %d  Pending: %d  Resolved: %d  Mine: %d\n",
				s.TotalIssues, s.Pending, s.Resolved, s.MyIssues)
			return nil
		},
	}
}

func newMessCmd(client *portal.Client) *cobra.Command {
	var mess, scope string

	cmd := &cobra.Command{
		Use:   "mess",
		Short: "Show mess food rating analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := client.MessAnalytics(cmd.Context(), mess, scope)
			if err != nil {
				return err
			}
			fmt.Printf("Ratings: %d  Hygiene: %.1f  Taste: %.1f  Quality: %.1f  Overall: %.1f\n",
				m.Total, m.Avg.Hygiene, m.Avg.Taste, m.Avg.Quality, m.Avg.Overall)
			fmt.Printf("Sentiment: %s\nAction: %s\n", m.Sentiment, m.ActionItem)
			return nil
		},
	}
	cmd.Flags().StringVar(&mess, "name", "", "filter by mess name")
	cmd.Flags().StringVar(&scope, "scope", "week", "week or all")
	return cmd
}
