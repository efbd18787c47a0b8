package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

// Activation outcomes reported to the ActivationObserver.
const (
	ResultActivated = "activated"
	ResultInvalid   = "invalid"
	ResultNotFound  = "not_found"
	ResultError     = "error"
)

// Notifier delivers the activation link for a freshly registered account.
type Notifier interface {
	SendActivation(ctx context.Context, account *Account) error
}

// ActivationObserver records activation outcomes.
type ActivationObserver interface {
	ObserveActivation(result string)
}

// Service handles account business logic.
type Service struct {
	repo     Repository
	notifier Notifier
	observer ActivationObserver
	logger   *slog.Logger
	validate *validator.Validate
	inflight singleflight.Group
}

// NewService builds Service instance. notifier, observer and logger are optional.
func NewService(repo Repository, notifier Notifier, observer ActivationObserver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		observer: observer,
		logger:   logger,
		validate: validator.New(),
	}
}

// Activate marks the account identified by req as active and returns the
// message to show the user. The message is set for every outcome; the error
// is nil, ErrInvalidParameters, ErrAccountNotFound or a storage failure.
func (s *Service) Activate(ctx context.Context, req ActivationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		s.observe(ResultInvalid)
		return MessageInvalidParameters, err
	}

	id, err := strconv.ParseInt(req.ID, 10, 64)
	if err != nil {
		s.observe(ResultNotFound)
		return MessageAccountNotFound, ErrAccountNotFound
	}

	// Concurrent requests for the same link share one transaction. The
	// shared work must not die with whichever caller started it.
	workCtx := context.WithoutCancel(ctx)
	resCh := s.inflight.DoChan(strconv.FormatInt(id, 10)+"\x00"+req.Email, func() (interface{}, error) {
		return nil, s.activate(workCtx, id, req.Email)
	})

	select {
	case <-ctx.Done():
		return MessageInternalError, ctx.Err()
	case res := <-resCh:
		err = res.Err
	}

	switch {
	case err == nil:
		s.observe(ResultActivated)
		return MessageActivated, nil
	case errors.Is(err, ErrAccountNotFound):
		s.observe(ResultNotFound)
		return MessageAccountNotFound, ErrAccountNotFound
	default:
		s.observe(ResultError)
		return MessageInternalError, fmt.Errorf("account: activate %d: %w", id, err)
	}
}

func (s *Service) activate(ctx context.Context, id int64, email string) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		account, err := tx.LockByIDAndEmail(ctx, id, email)
		if err != nil {
			return err
		}
		if account.Activate() {
			s.logger.Info("account activated", slog.Int64("account_id", account.ID))
		}
		return tx.Save(ctx, account)
	})
}

// Register creates a pending account and sends its activation link.
func (s *Service) Register(ctx context.Context, req SignupRequest) (*Account, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, toValidationError(fieldErrs)
		}
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password1), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("account: hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, Account{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		IsActive:     false,
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.SendActivation(ctx, created); err != nil {
			s.logger.Warn("send activation email", slog.Int64("account_id", created.ID), slog.Any("error", err))
		}
	}
	return created, nil
}

func (s *Service) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveActivation(result)
	}
}

func toValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		fields[jsonFieldName(fieldErr.Field())] = describeTag(fieldErr)
	}
	return &ValidationError{Fields: fields}
}

func jsonFieldName(field string) string {
	switch field {
	case "Email":
		return "email"
	case "Name":
		return "name"
	case "Password1":
		return "password1"
	case "Password2":
		return "password2"
	}
	return field
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "passwords do not match"
	}
	return fe.Error()
}
