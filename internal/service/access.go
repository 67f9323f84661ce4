package service

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vgents/portaljuridico/internal/errs"
	"github.com/vgents/portaljuridico/internal/model"
)

var (
	sigiloDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pj_sigilo_decisions_total",
			Help: "Document visibility decisions by classification and outcome.",
		},
		[]string{"classification", "result"},
	)
	groupCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pj_group_cache_hits_total",
		Help: "Membership lookups answered from the group cache.",
	})
	groupCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pj_group_cache_misses_total",
		Help: "Membership lookups that had to load groups from storage.",
	})
)

func recordDecision(c model.Classification, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	label := string(c.OrDefault())
	if !c.OrDefault().Known() {
		label = "unknown"
	}
	sigiloDecisions.WithLabelValues(label, result).Inc()
}

// requireIdentity rejects callers without a user id.
func requireIdentity(u *model.User) error {
	if u == nil || u.ID == 0 {
		return errs.ErrUnauthorized
	}
	return nil
}

// requireAdmin rejects callers without the Administrador profile.
func requireAdmin(u *model.User) error {
	if err := requireIdentity(u); err != nil {
		return err
	}
	if !u.IsAdmin() {
		return fmt.Errorf("%w: administrator profile required", errs.ErrForbidden)
	}
	return nil
}

// PasswordChecker confirms the password of an authenticated user.
type PasswordChecker interface {
	ConfirmPassword(ctx context.Context, userID int64, password string) (bool, error)
}

// confirm turns a failed password confirmation into ErrUnauthorized.
func confirm(ctx context.Context, pc PasswordChecker, actor *model.User, password string) error {
	ok, err := pc.ConfirmPassword(ctx, actor.ID, password)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: password confirmation failed", errs.ErrUnauthorized)
	}
	return nil
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errs.ErrValidation}, args...)...)
}
