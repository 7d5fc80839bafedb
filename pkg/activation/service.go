package activation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicecap/pkg/capacity"
	"github.com/dmitrymomot/devicecap/pkg/device"
	"github.com/dmitrymomot/devicecap/pkg/plan"
	"github.com/dmitrymomot/devicecap/pkg/qrcode"
	"github.com/dmitrymomot/devicecap/pkg/store"
	"github.com/dmitrymomot/devicecap/pkg/subscription"
)

// Warning is the capacity signal attached to a successful activation.
type Warning string

const (
	WarningNone           Warning = ""
	WarningNoSubscription Warning = "no_subscription"
	WarningOverCapacity   Warning = "over_capacity"
)

// Recorder receives activation outcomes, e.g. for metrics.
type Recorder interface {
	DeviceActivated(warning string)
}

type noopRecorder struct{}

func (noopRecorder) DeviceActivated(string) {}

// Issued is a freshly minted activation token together with its plaintext code.
// The code is not stored and cannot be recovered later.
type Issued struct {
	Code  string                  `json:"code"`
	Token *device.ActivationToken `json:"token"`
}

// Request redeems an activation code for an account.
type Request struct {
	AccountID    uuid.UUID
	Code         string
	DeviceTypeID string
	Name         string
}

// Result is a successful activation. The device is always active; Warning tells the
// caller whether to surface an upsell.
type Result struct {
	Device           *device.Device `json:"device"`
	Warning          Warning        `json:"capacity_warning,omitempty"`
	Message          string         `json:"message,omitempty"`
	OperationalCount int            `json:"operational_count"`
	EffectiveLimit   int            `json:"effective_limit"`
}

// Service issues and redeems activation tokens.
type Service struct {
	store         store.Store
	catalog       *plan.Catalog
	codec         *codec
	ttl           time.Duration
	fallbackLimit int
	log           *slog.Logger
	now           func() time.Time
	recorder      Recorder
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTTL sets how long issued tokens stay redeemable.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithFallbackLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.fallbackLimit = n
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService creates the activation service. secret signs codes and keys their stored digests.
func NewService(st store.Store, catalog *plan.Catalog, secret string, opts ...Option) (*Service, error) {
	if st == nil {
		panic("activation: store is required")
	}
	if catalog == nil {
		panic("activation: plan catalog is required")
	}
	c, err := newCodec(secret)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:         st,
		catalog:       catalog,
		codec:         c,
		ttl:           30 * 24 * time.Hour,
		fallbackLimit: capacity.DefaultFallbackLimit,
		log:           slog.Default(),
		now:           time.Now,
		recorder:      noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue mints a single-use token for one device type and purchase, recorded under the issuing account's lock.
func (s *Service) Issue(ctx context.Context, accountID uuid.UUID, deviceTypeID, purchaseRef string) (*Issued, error) {
	deviceTypeID = strings.TrimSpace(deviceTypeID)
	if deviceTypeID == "" {
		return nil, ErrDeviceTypeMissing
	}

	now := s.now().UTC()
	tok := &device.ActivationToken{
		ID:           uuid.New(),
		DeviceTypeID: deviceTypeID,
		PurchaseRef:  purchaseRef,
		ExpiresAt:    now.Add(s.ttl).Truncate(time.Second),
		CreatedAt:    now,
	}
	code, err := s.codec.sign(codePayload{TokenID: tok.ID, DeviceTypeID: deviceTypeID, ExpiresAt: tok.ExpiresAt.Unix()})
	if err != nil {
		return nil, err
	}
	tok.Digest = s.codec.digest(code)

	if err := s.store.InAccountTx(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveActivationToken(ctx, tok)
	}); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "activation token issued",
		slog.String("account_id", accountID.String()),
		slog.String("token_id", tok.ID.String()),
		slog.String("device_type_id", deviceTypeID),
	)
	return &Issued{Code: code, Token: tok}, nil
}

// Activate redeems a code and creates an active device. Capacity never blocks activation:
// an account over its limit or without a subscription gets a warning on a successful result.
// A past-due subscription is a conflict.
func (s *Service) Activate(ctx context.Context, req Request) (*Result, error) {
	log := s.log.With(slog.String("account_id", req.AccountID.String()), slog.String("device_type_id", req.DeviceTypeID))

	res, err := s.activate(ctx, req)
	if err != nil {
		if IsValidationError(err) || IsConflictError(err) {
			log.DebugContext(ctx, "device activation rejected", slog.Any("error", err))
		} else {
			log.ErrorContext(ctx, "device activation failed", slog.Any("error", err))
		}
		return nil, err
	}

	s.recorder.DeviceActivated(string(res.Warning))
	log.InfoContext(ctx, "device activated",
		slog.String("device_id", res.Device.ID.String()),
		slog.String("capacity_warning", string(res.Warning)),
	)
	return res, nil
}

func (s *Service) activate(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.DeviceTypeID) == "" {
		return nil, ErrDeviceTypeMissing
	}
	payload, err := s.codec.parse(req.Code)
	if err != nil {
		return nil, err
	}
	if payload.DeviceTypeID != req.DeviceTypeID {
		return nil, errors.Join(ErrWrongDeviceType, fmt.Errorf("token is for %q", payload.DeviceTypeID))
	}
	digest := s.codec.digest(req.Code)

	var res *Result
	err = s.store.InAccountTx(ctx, req.AccountID, func(ctx context.Context, tx store.Tx) error {
		now := s.now().UTC()

		sub, current, err := s.currentPlan(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if sub != nil && sub.Status == subscription.StatusPastDue {
			return errors.Join(subscription.ErrNoActiveSubscription, errors.New("subscription is past due"))
		}

		tok, err := tx.ActivationTokenByDigest(ctx, digest)
		if err != nil {
			return err
		}
		switch {
		case tok.IsUsed():
			return ErrTokenAlreadyUsed
		case tok.IsExpired(now):
			return ErrTokenExpired
		case tok.DeviceTypeID != req.DeviceTypeID:
			return ErrWrongDeviceType
		}

		d := device.New(req.AccountID, req.DeviceTypeID, req.Name, now)
		if err := d.Activate(ctx, now); err != nil {
			return err
		}
		if err := tx.SaveDevice(ctx, d); err != nil {
			return err
		}
		tok.Redeem(d.ID, now)
		if err := tx.SaveActivationToken(ctx, tok); err != nil {
			return err
		}

		devices, err := tx.Devices(ctx, req.AccountID)
		if err != nil {
			return err
		}
		acc := capacity.New(sub, current, devices, capacity.WithFallbackLimit(s.fallbackLimit), capacity.WithNow(now))

		res = &Result{
			Device:           d,
			OperationalCount: acc.OperationalCount(),
			EffectiveLimit:   acc.EffectiveLimit(),
		}
		switch {
		case !acc.HasSubscription():
			res.Warning = WarningNoSubscription
			res.Message = "The device is active, but the account has no subscription. Choose a plan to keep it connected."
		case acc.IsOverCapacity():
			res.Warning = WarningOverCapacity
			res.Message = fmt.Sprintf("The device is active, but %d operational devices exceed the plan limit of %d. Upgrade or add a device slot.",
				acc.OperationalCount(), acc.EffectiveLimit())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) currentPlan(ctx context.Context, tx store.Tx, accountID uuid.UUID) (*subscription.Subscription, *plan.Plan, error) {
	sub, err := tx.CurrentSubscription(ctx, accountID)
	if errors.Is(err, subscription.ErrSubscriptionNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	p, err := s.catalog.Get(sub.PlanID)
	if err != nil {
		// Without the plan the limit is unknown; treat like no subscription rather than blocking the device.
		return nil, nil, nil
	}
	return sub, &p, nil
}

// QRCode renders a PNG QR code for a valid, unexpired activation code.
// A size of zero selects qrcode.DefaultSize.
func (s *Service) QRCode(code string, size int) ([]byte, error) {
	payload, err := s.codec.parse(code)
	if err != nil {
		return nil, err
	}
	if payload.expired(s.now()) {
		return nil, ErrTokenExpired
	}
	return qrcode.Generate(code, size)
}
