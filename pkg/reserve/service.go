package reserve

import (
	"context"
	"crypto/ed25519"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/token-wrapper/pkg/async"
	"github.com/code-payments/token-wrapper/pkg/metrics"
	"github.com/code-payments/token-wrapper/pkg/rate"
	"github.com/code-payments/token-wrapper/pkg/retry"
	"github.com/code-payments/token-wrapper/pkg/retry/backoff"
)

const (
	snapshotEventName = "ReserveSnapshot"

	vaultNotFoundMetricName       = "ReserveAuditor_VaultNotFound"
	undercollateralizedMetricName = "ReserveAuditor_Undercollateralized"
	runDurationMetricName         = "ReserveAuditor_RunDuration"
)

type service struct {
	log     *logrus.Entry
	conf    *conf
	auditor *Auditor
	store   Store
	limiter rate.Limiter
}

// NewService returns a service that periodically audits the vault of every
// configured underlying mint and records the snapshots in store.
func NewService(auditor *Auditor, store Store, configProvider ConfigProvider) async.Service {
	return newService(auditor, store, configProvider)
}

func newService(auditor *Auditor, store Store, configProvider ConfigProvider) *service {
	conf := configProvider()
	return &service{
		log:     logrus.StandardLogger().WithField("service", "reserve_auditor"),
		conf:    conf,
		auditor: auditor,
		store:   store,
		limiter: rate.NewLocalRateLimiter(xrate.Limit(conf.maxAuditsPerSecond.Get(context.Background()))),
	}
}

func (s *service) Start(serviceCtx context.Context, interval time.Duration) error {
	for {
		_, err := retry.Retry(
			func() error {
				s.log.Trace("auditing vault reserves")

				nr, _ := serviceCtx.Value(metrics.NewRelicContextKey).(*newrelic.Application)
				m := nr.StartTransaction("async__reserve_auditor_service")
				defer m.End()
				tracedCtx := newrelic.NewContext(serviceCtx, m)

				_, err := s.auditAll(tracedCtx)
				if err != nil {
					m.NoticeError(err)
					s.log.WithError(err).Warn("failed to audit vault reserves")
				}

				return err
			},
			retry.NonRetriableErrors(context.Canceled),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), interval, 0.1),
		)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				// Should not happen since only non-retriable error is context.Canceled
				s.log.WithError(err).Warn("unexpected error when auditing vault reserves")
			}

			return err
		}

		select {
		case <-serviceCtx.Done():
			return serviceCtx.Err()
		case <-time.After(interval):
		}
	}
}

// auditAll audits every configured vault under a new run id. Vaults that
// aren't initialized yet are skipped.
func (s *service) auditAll(ctx context.Context) ([]*Snapshot, error) {
	mints, err := s.getUnderlyingMints(ctx)
	if err != nil {
		return nil, err
	}

	runId := uuid.New().String()
	log := s.log.WithField("run_id", runId)
	start := time.Now()

	var snapshots []*Snapshot
	for _, mint := range mints {
		encoded := base58.Encode(mint)
		log := log.WithField("underlying_mint", encoded)

		allowed, err := s.limiter.Allow(encoded)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check rate limit")
		} else if !allowed {
			log.Debug("audit rate limited")
			continue
		}

		snapshot, err := s.auditor.Audit(ctx, mint)
		if err == ErrVaultNotFound {
			log.Warn("vault isn't initialized")
			metrics.RecordCount(ctx, vaultNotFoundMetricName, 1)
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "failed to audit vault for %s", encoded)
		}
		snapshot.RunId = runId

		if !s.conf.disableSnapshotPersistence.Get(ctx) {
			if err := s.store.Put(ctx, snapshot); err != nil {
				return nil, errors.Wrap(err, "failed to save snapshot")
			}
		}

		recordSnapshotEvent(ctx, snapshot)

		if snapshot.Status == StatusUnderCollateralized {
			metrics.RecordCount(ctx, undercollateralizedMetricName, 1)
			log.WithFields(logrus.Fields{
				"supply":  snapshot.SupplyQuantity().String(),
				"reserve": snapshot.ReserveQuantity().String(),
				"deficit": snapshot.Surplus().Neg().String(),
			}).Error("vault is undercollateralized")
		}

		snapshots = append(snapshots, snapshot)
	}

	metrics.RecordDuration(ctx, runDurationMetricName, time.Since(start))
	log.WithField("snapshots", len(snapshots)).Debug("audit run complete")

	return snapshots, nil
}

func (s *service) getUnderlyingMints(ctx context.Context) ([]ed25519.PublicKey, error) {
	var mints []ed25519.PublicKey
	for _, value := range strings.Split(s.conf.underlyingMints.Get(ctx), ",") {
		value = strings.TrimSpace(value)
		if len(value) == 0 {
			continue
		}

		decoded, err := base58.Decode(value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid underlying mint %q", value)
		}
		if len(decoded) != ed25519.PublicKeySize {
			return nil, errors.Errorf("invalid underlying mint %q", value)
		}

		mints = append(mints, decoded)
	}
	return mints, nil
}

func recordSnapshotEvent(ctx context.Context, snapshot *Snapshot) {
	surplus, _ := snapshot.Surplus().Float64()

	metrics.RecordEvent(ctx, snapshotEventName, map[string]interface{}{
		"run_id":          snapshot.RunId,
		"underlying_mint": snapshot.UnderlyingMint,
		"wrapper_mint":    snapshot.WrapperMint,
		"wrapper_supply":  snapshot.WrapperSupply,
		"reserve_balance": snapshot.ReserveBalance,
		"surplus":         surplus,
		"status":          snapshot.Status.String(),
		"slot":            snapshot.Slot,
	})
}
