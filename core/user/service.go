package user

import (
	"context"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/store"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")

	nowFunc = time.Now // mockable
)

// StoreConfig describes the persistence slot of user accounts.
var StoreConfig = store.Config{Slot: "user-storage", Field: "users", Version: 1}

// NewStore returns the AuthStore, rehydrated from its slot.
func NewStore(ctx context.Context, backend core.SlotStorage, opts ...store.Option) (*store.Store[account], error) {
	return store.New[account](ctx, backend, StoreConfig, opts...)
}

type Service struct {
	store   *store.Store[account]
	mailSvc core.EmailService
	tokens  tokenGenerator

	// serializes uniqueness checks with the writes they guard
	mu sync.Mutex
}

func NewService(st *store.Store[account], mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		store:   st,
		mailSvc: mailSvc,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func users(accounts []account) []User {
	out := make([]User, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.user())
	}
	return out
}

// CheckUniqueness returns a *core.ValidationError when another account already uses uname or email.
func (svc *Service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	excluded := make(map[string]bool, len(exclUsers))
	for _, usr := range exclUsers {
		excluded[usr.ID] = true
	}

	var err error
	svc.store.Filter(func(a account) bool {
		if err != nil || excluded[a.ID] {
			return false
		}
		if uname != "" && a.Username == uname {
			err = ErrUsernameExists
		} else if email != "" && a.Email == email {
			err = ErrEmailExists
		}
		return false
	})

	var field string
	switch err {
	case nil:
		return nil
	case ErrUsernameExists:
		field = "username"
	case ErrEmailExists:
		field = "email"
	}
	return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := nowFunc().UTC()
	usr := User{
		ID:         uuid.New().String(),
		Name:       nu.Name,
		Username:   nu.Username,
		Email:      nu.Email,
		RoomNumber: nu.RoomNumber,
		IsActive:   true,
		Roles:      nu.Roles,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if err := svc.CheckUniqueness(usr.Username, usr.Email); err != nil {
		return User{}, err
	}
	if err := svc.store.Add(ctx, newAccount(usr)); err != nil {
		return usr, errors.Wrap(err, "adding user")
	}
	return usr, nil
}

func (svc *Service) QueryAll() []User {
	return users(svc.store.GetAll())
}

// Filter applies AND operation on available QueryFilter fields.
func (svc *Service) Filter(filter QueryFilter) []User {
	return users(svc.store.Filter(func(a account) bool { return filter.Match(a.User) }))
}

func (svc *Service) GetByID(id string) (User, error) {
	a, ok := svc.store.Find(id)
	if !ok {
		return User{}, ErrNotFound
	}
	return a.user(), nil
}

func (svc *Service) getOne(match func(account) bool) (User, error) {
	found := svc.store.Filter(match)
	if len(found) == 0 {
		return User{}, ErrNotFound
	}
	return found[0].user(), nil
}

func (svc *Service) GetByUsername(uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	return svc.getOne(func(a account) bool { return uname != "" && a.Username == uname })
}

func (svc *Service) GetByEmail(email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	return svc.getOne(func(a account) bool { return email != "" && a.Email == email })
}

func (svc *Service) GetByUsernameOrEmail(uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	return svc.getOne(func(a account) bool { return uname != "" && (a.Username == uname || a.Email == uname) })
}

// Update applies a validated UpdateUser to the user with the given id.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	var hash []byte
	if uu.Password != "" {
		var tmp User
		if err := tmp.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
		hash = tmp.PasswordHash
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	orig, err := svc.GetByID(id)
	if err != nil {
		return User{}, err
	}
	if err := svc.CheckUniqueness(uu.Username, uu.Email, orig); err != nil {
		return User{}, err
	}

	now := nowFunc().UTC()
	err = svc.store.Update(ctx, id, store.PatchFunc[account](func(a *account) {
		if uu.Name != "" {
			a.Name = uu.Name
		}
		if uu.Username != "" {
			a.Username = uu.Username
		}
		if uu.Email != "" {
			a.Email = uu.Email
		}
		if uu.RoomNumber != nil {
			a.RoomNumber = *uu.RoomNumber
		}
		if uu.IsActive != nil {
			a.IsActive = *uu.IsActive
		}
		if uu.Roles != nil {
			a.Roles = append([]string(nil), uu.Roles...)
		}
		if hash != nil {
			a.Hash = hash
		}
		a.UpdatedAt = now
	}))
	usr, _ := svc.GetByID(id)
	return usr, errors.Wrap(err, "updating user")
}

// UpdateOrCreate saves usr as is, creating it when its id is unknown. Used by the admin CLI and fixtures.
func (svc *Service) UpdateOrCreate(ctx context.Context, usr User) (User, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	now := nowFunc().UTC()
	usr.UpdatedAt = now
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if _, ok := svc.store.Find(usr.ID); ok && usr.ID != "" {
		err := svc.store.Update(ctx, usr.ID, store.PatchFunc[account](func(a *account) { *a = newAccount(usr) }))
		return usr, errors.Wrap(err, "updating user")
	}

	if err := svc.CheckUniqueness(usr.Username, usr.Email); err != nil {
		return User{}, err
	}
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = now
	}
	return usr, errors.Wrap(svc.store.Add(ctx, newAccount(usr)), "adding user")
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	now := nowFunc().UTC()
	err := svc.store.Update(ctx, usr.ID, store.PatchFunc[account](func(a *account) {
		a.LastLogin = null.TimeFrom(now)
	}))
	usr.LastLogin = null.TimeFrom(now)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := svc.store.Remove(ctx, id); err != nil {
			return errors.Wrap(err, "removing user")
		}
	}
	return nil
}

// RequestPasswordReset mails a password reset link to the active user owning email.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

// ResetPassword sets a new password when the reset token is valid.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	invalid := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})

	id, err := decodeUID(rp.UID)
	if err != nil {
		return invalid
	}
	usr, err := svc.GetByID(id)
	if err != nil {
		if core.IsNotFound(err) {
			return invalid
		}
		return err
	}
	if err := svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}

	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	now := nowFunc().UTC()
	err = svc.store.Update(ctx, usr.ID, store.PatchFunc[account](func(a *account) {
		a.Hash = usr.PasswordHash
		a.UpdatedAt = now
	}))
	return errors.Wrap(err, "resetting password")
}
