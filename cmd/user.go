package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/club-scheduler/internal/booking"
	"github.com/example/club-scheduler/internal/club"
	"github.com/example/club-scheduler/internal/config"
	"github.com/example/club-scheduler/internal/crypto"
	"github.com/example/club-scheduler/internal/db"
	"github.com/example/club-scheduler/internal/migrate"
	"github.com/example/club-scheduler/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users and their standing preferences",
	}
	cmd.AddCommand(newUserAddCmd())
	cmd.AddCommand(newUserListCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var email, password, classType, weekday, times, companions string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a user (or refresh their password) and one standing preference",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateClassType(classType); err != nil {
				return err
			}
			if _, err := booking.ParseWeekday(weekday); err != nil {
				return err
			}
			timeList := splitFlagCSV(times)
			if len(timeList) == 0 {
				return fmt.Errorf("at least one time is required, e.g. --times \"9:00 am,7:30 pm\"")
			}
			for _, t := range timeList {
				if _, err := booking.ParseClockTime(t); err != nil {
					return err
				}
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			sealer, err := crypto.New(cfg.EncryptKey)
			if err != nil {
				return err
			}
			sealed, err := sealer.Seal(password)
			if err != nil {
				return err
			}

			st := store.New(d)
			userID, err := st.UpsertUser(ctx, email, sealed)
			if err != nil {
				return err
			}
			if err := st.AddPreference(ctx, store.PreferenceRow{
				UserID:     userID,
				ClassType:  classType,
				Weekday:    weekday,
				Times:      timeList,
				Companions: splitFlagCSV(companions),
			}); err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "stored preference for %q: %s %s at %s\n", email, classType, weekday, times)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "club account email")
	c.Flags().StringVar(&password, "password", "", "club account password")
	c.Flags().StringVar(&classType, "class", "", "class type (swimmingClass, gymClass, tennisClass)")
	c.Flags().StringVar(&weekday, "weekday", "", "weekday, e.g. Monday")
	c.Flags().StringVar(&times, "times", "", "comma-separated times, e.g. \"9:00 am,7:30 pm\"")
	c.Flags().StringVar(&companions, "companions", "", "comma-separated companion user ids")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	_ = c.MarkFlagRequired("class")
	_ = c.MarkFlagRequired("weekday")
	_ = c.MarkFlagRequired("times")
	return c
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users and their preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			st := store.New(d)
			users, err := st.ListUsers(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintf(os.Stdout, "%s\n", u.Email)
				prefs, err := st.PreferencesByUser(ctx, u.ID)
				if err != nil {
					return err
				}
				for classType, rows := range prefs {
					for _, p := range rows {
						fmt.Fprintf(os.Stdout, "  %s: %s at %s", classType, p.Weekday, strings.Join(p.Times, ", "))
						if len(p.Companions) > 0 {
							fmt.Fprintf(os.Stdout, " with %s", strings.Join(p.Companions, ", "))
						}
						fmt.Fprintln(os.Stdout)
					}
				}
			}
			return nil
		},
	}
}

func validateClassType(classType string) error {
	for _, ct := range club.ClassTypes {
		if classType == ct {
			return nil
		}
	}
	return fmt.Errorf("unknown class type %q (want one of %s)", classType, strings.Join(club.ClassTypes, ", "))
}

func splitFlagCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
