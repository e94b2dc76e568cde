package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/club-scheduler/internal/booking"
	"github.com/example/club-scheduler/internal/club"
	"github.com/example/club-scheduler/internal/config"
	"github.com/example/club-scheduler/internal/crypto"
	"github.com/example/club-scheduler/internal/db"
	"github.com/example/club-scheduler/internal/logging"
	"github.com/example/club-scheduler/internal/migrate"
	"github.com/example/club-scheduler/internal/store"
)

func newRunCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the booking engines for every configured user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			logger := logging.New(cfg.Environment)
			defer logger.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if migrateUp {
				if err := migrate.Up(ctx, d); err != nil {
					return err
				}
			}

			sealer, err := crypto.New(cfg.EncryptKey)
			if err != nil {
				return err
			}

			st := store.New(d)
			client := club.New(cfg.ClubBaseURL, cfg.FacilityID)
			clock := booking.NewClock()

			engines, err := buildEngines(ctx, cfg, logger, st, st, sealer, client, clock)
			if err != nil {
				return err
			}
			if len(engines) == 0 {
				return fmt.Errorf("no users with preferences configured; add one with `clubsched user add`")
			}

			logger.Sugar().Infow("starting booking engines", "workers", len(engines))

			var wg sync.WaitGroup
			for _, e := range engines {
				wg.Add(1)
				go func(e *booking.Engine) {
					defer wg.Done()
					_ = e.Run(ctx)
				}(e)
			}
			wg.Wait()
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}

// prefSource is the slice of the store buildEngines reads.
type prefSource interface {
	ListUsers(ctx context.Context) ([]store.User, error)
	PreferencesByUser(ctx context.Context, userID string) (map[string][]store.PreferenceRow, error)
}

// buildEngines opens one engine per (user, class type) pair that has at
// least one stored preference. A user whose password cannot be unsealed
// is skipped rather than blocking everyone else's engines.
func buildEngines(ctx context.Context, cfg config.Config, logger *zap.Logger, st prefSource, rec booking.Recorder, sealer *crypto.Sealer, svc booking.Service, clock booking.Clock) ([]*booking.Engine, error) {
	users, err := st.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	var engines []*booking.Engine
	for _, u := range users {
		password, err := sealer.Open(u.SealedPassword)
		if err != nil {
			logger.Sugar().Errorw("cannot unseal password, skipping user", "email", u.Email, "error", err)
			continue
		}
		byClass, err := st.PreferencesByUser(ctx, u.ID)
		if err != nil {
			return nil, err
		}

		for _, classType := range club.ClassTypes {
			rows := byClass[classType]
			if len(rows) == 0 {
				continue
			}
			prefs := make([]booking.Preference, 0, len(rows))
			for _, row := range rows {
				wd, err := booking.ParseWeekday(row.Weekday)
				if err != nil {
					return nil, fmt.Errorf("preference %s for %s: %w", row.ID, u.Email, err)
				}
				prefs = append(prefs, booking.Preference{
					Weekday:    wd,
					Times:      row.Times,
					Companions: row.Companions,
				})
			}

			policy := booking.DefaultPolicy()
			policy.HorizonDays = cfg.HorizonDays
			policy.TargetLeadDays = cfg.TargetLeadDays
			policy.CrawlInterval = cfg.CrawlInterval
			policy.AuthBackoff = cfg.AuthBackoff
			policy.HorizonBackoff = cfg.HorizonBackoff
			policy.CrawlBackoff = cfg.CrawlBackoff
			policy.RestartBackoff = cfg.RestartBackoff
			policy.ReauthAfter = cfg.ReauthAfter
			policy.HorizonPoll = cfg.HorizonPoll
			policy.DeadlineOffset = cfg.DeadlineOffsets[classType]

			log := logger.Named(u.Email).Named(classType).Sugar()
			engines = append(engines, booking.NewEngine(svc, rec, clock, log, u.Email, password, classType, prefs, policy))
		}
	}
	return engines, nil
}
