package main

import (
	"fmt"
	"strconv"

	"threads/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newUsersCmd(a *app) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "List, inspect and delete users",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.users.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			t := a.table()
			t.AppendHeader(table.Row{"ID", "Username", "Email", "Full name", "Created"})
			for _, u := range users {
				t.AppendRow(table.Row{u.ID, u.Username, u.Email, u.FullName, u.CreatedAt.Format("2006-01-02")})
			}
			t.AppendFooter(table.Row{"", "", "", "Total", len(users)})
			t.Render()
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a user with follow counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			p, err := a.users.GetProfile(cmd.Context(), id)
			if err != nil {
				return err
			}
			t := a.table()
			t.AppendRows([]table.Row{
				{"ID", p.ID},
				{"Username", p.Username},
				{"Email", p.Email},
				{"Full name", p.FullName},
				{"Bio", p.Bio},
				{"Following", p.FollowingCount},
				{"Followers", p.FollowerCount},
				{"Created", p.CreatedAt.Format("2006-01-02 15:04")},
			})
			t.Render()
			return nil
		},
	}

	var yes bool
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user with its posts, comments, likes and follow edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("refusing to delete user %d without --yes", id)
			}
			if err := a.users.DeleteUser(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted user %d\n", id)
			return nil
		},
	}
	deleteCmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")

	usersCmd.AddCommand(listCmd, showCmd, deleteCmd)
	return usersCmd
}

func newFollowsCmd(a *app) *cobra.Command {
	var followers bool
	cmd := &cobra.Command{
		Use:   "follows <id>",
		Short: "List the users a user follows, or its followers with --followers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			var list []models.UserSummary
			if followers {
				list, err = a.follows.ListFollowers(cmd.Context(), id)
			} else {
				list, err = a.follows.ListFollowing(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			t := a.table()
			t.AppendHeader(table.Row{"ID", "Username", "Full name"})
			for _, u := range list {
				t.AppendRow(table.Row{u.ID, u.Username, u.FullName})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&followers, "followers", false, "list followers instead of followees")
	return cmd
}

func (a *app) table() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.SetStyle(table.StyleLight)
	return t
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}
