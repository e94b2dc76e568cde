package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/club-scheduler/internal/club"
)

// Service is the slice of the remote scheduling API the engine drives.
type Service interface {
	Authenticate(ctx context.Context, email, password string) (club.Session, error)
	Identity(ctx context.Context, sess club.Session) (string, error)
	ScheduledClasses(ctx context.Context, sess club.Session, classType string) ([]club.UpcomingBooking, error)
	SlotInventory(ctx context.Context, sess club.Session, classType string) ([]club.InventoryDay, error)
	Book(ctx context.Context, sess club.Session, classID, userID string) error
}

// BookingRecord is the per-booking summary the engine hands outward once
// a reservation call succeeds.
type BookingRecord struct {
	UserEmail string
	ClassType string
	ClassID   string
	Date      string
	Time      string
	BookedAt  time.Time
}

// Recorder persists booking summaries. A failed record never fails the
// cycle: the reservation already exists on the remote side.
type Recorder interface {
	RecordBooking(ctx context.Context, rec BookingRecord) error
}

// Policy holds the timing knobs of one worker's control loop.
type Policy struct {
	HorizonDays    int
	TargetLeadDays int

	CrawlInterval  time.Duration // pause between crawler passes
	AuthBackoff    time.Duration // wait after a failed authentication
	HorizonBackoff time.Duration // wait after a failed horizon poll
	CrawlBackoff   time.Duration // wait after a failed crawler pass
	RestartBackoff time.Duration // wait before restarting a failed cycle

	// HorizonPoll is the pause between horizon polls. Zero means "sleep
	// until the top of the next hour", which is when the backend tends to
	// open new dates.
	HorizonPoll time.Duration

	// ReauthAfter forces a fresh authentication when a horizon search has
	// been running this long, since the token may have expired silently.
	ReauthAfter time.Duration

	// DeadlineOffset shifts the crawler cutoff past next midnight, to
	// clear the backend's own daily rollover.
	DeadlineOffset time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		HorizonDays:    8,
		TargetLeadDays: 7,
		CrawlInterval:  30 * time.Second,
		AuthBackoff:    30 * time.Minute,
		HorizonBackoff: 30 * time.Minute,
		CrawlBackoff:   10 * time.Minute,
		RestartBackoff: 10 * time.Minute,
		ReauthAfter:    3 * time.Hour,
	}
}

// Engine runs the booking loop for one (user, class type) pair. Engines
// share nothing mutable: each owns its session, candidates, and policy.
type Engine struct {
	svc   Service
	rec   Recorder
	clock Clock
	log   *zap.SugaredLogger

	email     string
	password  string
	classType string
	prefs     []Preference
	policy    Policy
}

func NewEngine(svc Service, rec Recorder, clock Clock, log *zap.SugaredLogger, email, password, classType string, prefs []Preference, policy Policy) *Engine {
	return &Engine{
		svc:       svc,
		rec:       rec,
		clock:     clock,
		log:       log,
		email:     email,
		password:  password,
		classType: classType,
		prefs:     prefs,
		policy:    policy,
	}
}

// Run drives daily cycles until the context is cancelled. A failed cycle
// is logged and restarted after a back-off; the engine itself never gives
// up on transient failure.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := e.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.log.Errorw("cycle failed, restarting", "error", err, "backoff", e.policy.RestartBackoff)
			if err := e.clock.Sleep(ctx, e.policy.RestartBackoff); err != nil {
				return err
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (e *Engine) cycle(ctx context.Context) error {
	now := e.clock.Now()
	deadline := nextDayStart(now).Add(e.policy.DeadlineOffset)
	target := now.AddDate(0, 0, e.policy.TargetLeadDays).Format(DateLayout)

	sess, err := e.authenticate(ctx)
	if err != nil {
		return err
	}

	sess, err = e.awaitHorizon(ctx, sess, target)
	if err != nil {
		return err
	}

	upcoming, err := e.svc.ScheduledClasses(ctx, sess, e.classType)
	if err != nil {
		return err
	}
	scheduled, err := NormalizeScheduled(upcoming)
	if err != nil {
		return err
	}
	cands, err := GenerateCandidates(e.clock.Now(), e.policy.HorizonDays, e.prefs, scheduled)
	if err != nil {
		return err
	}
	e.log.Infow("candidates generated", "count", len(cands))

	residual, err := e.matchAndBook(ctx, sess, cands)
	if err != nil {
		return err
	}
	if len(residual) > 0 {
		if err := e.crawl(ctx, &sess, residual, deadline); err != nil {
			return err
		}
	}

	if now := e.clock.Now(); now.Before(deadline) {
		e.log.Infow("cycle complete, sleeping until next day", "wakeAt", deadline)
		return e.clock.Sleep(ctx, deadline.Sub(now))
	}
	return nil
}

// authenticate retries until the remote accepts the credentials, backing
// off between attempts. Context cancellation and malformed responses make
// it give up; everything else is treated as transient.
func (e *Engine) authenticate(ctx context.Context) (club.Session, error) {
	for {
		sess, err := e.svc.Authenticate(ctx, e.email, e.password)
		if err == nil {
			var uid string
			if uid, err = e.svc.Identity(ctx, sess); err == nil {
				sess.UserID = uid
				e.log.Infow("authenticated", "userId", uid)
				return sess, nil
			}
		}
		if ctx.Err() != nil {
			return club.Session{}, ctx.Err()
		}
		if club.IsShape(err) {
			return club.Session{}, err
		}
		e.log.Errorw("authentication failed", "error", err, "backoff", e.policy.AuthBackoff)
		if serr := e.clock.Sleep(ctx, e.policy.AuthBackoff); serr != nil {
			return club.Session{}, serr
		}
	}
}

// awaitHorizon polls the inventory until its furthest visible day reaches
// the target date. The backend opens new days on its own schedule, so this
// can run for hours.
func (e *Engine) awaitHorizon(ctx context.Context, sess club.Session, target string) (club.Session, error) {
	e.log.Infow("waiting for booking horizon", "target", target)
	started := e.clock.Now()
	for {
		inv, err := e.svc.SlotInventory(ctx, sess, e.classType)
		if err != nil {
			if ctx.Err() != nil {
				return sess, ctx.Err()
			}
			if club.IsShape(err) {
				return sess, err
			}
			e.log.Errorw("horizon poll failed", "error", err, "backoff", e.policy.HorizonBackoff)
			if serr := e.clock.Sleep(ctx, e.policy.HorizonBackoff); serr != nil {
				return sess, serr
			}
			if sess, err = e.authenticate(ctx); err != nil {
				return sess, err
			}
			continue
		}

		last, err := furthestDate(inv)
		if err != nil {
			return sess, err
		}
		if last >= target {
			e.log.Infow("booking horizon reached", "lastVisible", last)
			return sess, nil
		}

		if e.clock.Now().Sub(started) >= e.policy.ReauthAfter {
			e.log.Infow("re-authenticating after prolonged horizon search")
			if sess, err = e.authenticate(ctx); err != nil {
				return sess, err
			}
			started = e.clock.Now()
		}
		wait := e.horizonWait()
		e.log.Infow("horizon not open yet", "lastVisible", last, "sleep", wait)
		if err := e.clock.Sleep(ctx, wait); err != nil {
			return sess, err
		}
	}
}

// matchAndBook runs one inventory fetch, books every match, and returns
// the candidates still outstanding.
func (e *Engine) matchAndBook(ctx context.Context, sess club.Session, cands []Candidate) ([]Candidate, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	inv, err := e.svc.SlotInventory(ctx, sess, e.classType)
	if err != nil {
		return nil, err
	}
	matches, residual, dropped, err := MatchInventory(inv, sess.UserID, cands)
	if err != nil {
		return nil, err
	}
	for _, c := range dropped {
		e.log.Infow("candidate cancelled earlier by user, not rebooking", "date", c.Date, "time", c.Time)
	}
	for _, m := range matches {
		if err := e.svc.Book(ctx, sess, m.ClassID, sess.UserID); err != nil {
			return nil, fmt.Errorf("book %s %s: %w", m.Date, m.Time, err)
		}
		e.log.Infow("booked class", "date", m.Date, "time", m.Time, "classId", m.ClassID)
		if e.rec != nil {
			if err := e.rec.RecordBooking(ctx, BookingRecord{
				UserEmail: e.email,
				ClassType: e.classType,
				ClassID:   m.ClassID,
				Date:      m.Date,
				Time:      m.Time,
				BookedAt:  e.clock.Now(),
			}); err != nil {
				e.log.Errorw("failed to record booking", "error", err)
			}
		}
	}
	return residual, nil
}

// crawl keeps retrying match+book for outstanding candidates until the
// set empties or the deadline passes. The residual set survives transport
// failures; only the session is refreshed.
func (e *Engine) crawl(ctx context.Context, sess *club.Session, residual []Candidate, deadline time.Time) error {
	e.log.Infow("crawler started", "outstanding", len(residual), "deadline", deadline)
	lastReport := e.clock.Now()

	for e.clock.Now().Before(deadline) && len(residual) > 0 {
		rest, err := e.matchAndBook(ctx, *sess, residual)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if club.IsShape(err) {
				return err
			}
			e.log.Errorw("crawler pass failed", "error", err, "backoff", e.policy.CrawlBackoff)
			if serr := e.clock.Sleep(ctx, e.policy.CrawlBackoff); serr != nil {
				return serr
			}
			ns, aerr := e.authenticate(ctx)
			if aerr != nil {
				return aerr
			}
			*sess = ns
			continue
		}
		residual = rest
		if len(residual) == 0 {
			break
		}
		if now := e.clock.Now(); now.Sub(lastReport) >= time.Hour {
			e.log.Infow("still searching", "outstanding", len(residual))
			lastReport = now
		}
		if err := e.clock.Sleep(ctx, e.policy.CrawlInterval); err != nil {
			return err
		}
	}

	e.log.Infow("crawler stopped", "outstanding", len(residual))
	return nil
}

func (e *Engine) horizonWait() time.Duration {
	if e.policy.HorizonPoll > 0 {
		return e.policy.HorizonPoll
	}
	now := e.clock.Now()
	return now.Truncate(time.Hour).Add(time.Hour).Sub(now)
}

// furthestDate returns the canonical date of the last published inventory
// day, or the empty string for an empty inventory (horizon not open).
func furthestDate(inv []club.InventoryDay) (string, error) {
	if len(inv) == 0 {
		return "", nil
	}
	d, err := parseRemoteDate(inv[len(inv)-1].ID)
	if err != nil {
		return "", fmt.Errorf("inventory day id: %w", err)
	}
	return d.Format(DateLayout), nil
}

func nextDayStart(now time.Time) time.Time {
	d := now.AddDate(0, 0, 1)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
