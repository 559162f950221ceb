package store

import (
	"context"
	"strings"

	"github.com/MichaelFlanagan/SystemFifty/models"
	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minPasswordLen = 6

type Users struct {
	db   *gorm.DB
	cost int
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db, cost: bcrypt.DefaultCost}
}

// WithCost sets the bcrypt cost used for new hashes.
func (r *Users) WithCost(cost int) *Users {
	r.cost = cost
	return r
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Users) hash(password string) ([]byte, error) {
	if len(password) < minPasswordLen {
		return nil, apperr.Validation("password too short (min 6)")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, apperr.Storage("failed to hash password", err)
	}
	return h, nil
}

func (r *Users) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, translate(err, "user not found", "failed to fetch user")
	}
	return &u, nil
}

func (r *Users) ByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user not found", "failed to fetch user")
	}
	return &u, nil
}

// Create registers a new admin identity.
func (r *Users) Create(ctx context.Context, email, name, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("email required")
	}
	h, err := r.hash(password)
	if err != nil {
		return nil, err
	}
	u := models.User{ID: uuid.NewString(), Email: email, Name: strings.TrimSpace(name), HashedPassword: h}
	if err := r.db.WithContext(ctx).Create(&u).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperr.Validation("user already exists")
		}
		return nil, apperr.Storage("failed to create user", err)
	}
	return &u, nil
}

// SeedAdmin creates the identity for email unless it already exists. An
// existing identity is returned untouched with created=false.
func (r *Users) SeedAdmin(ctx context.Context, email, name, password string) (u *models.User, created bool, err error) {
	email = normalizeEmail(email)
	if existing, err := r.ByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, false, err
	}

	h, err := r.hash(password)
	if err != nil {
		return nil, false, err
	}
	candidate := models.User{ID: uuid.NewString(), Email: email, Name: name, HashedPassword: h}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&candidate)
	if res.Error != nil {
		return nil, false, apperr.Storage("failed to seed admin", res.Error)
	}
	// A concurrent seed may have won the insert.
	stored, err := r.ByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return stored, res.RowsAffected == 1 && stored.ID == candidate.ID, nil
}

// SetPassword replaces the password hash of the user with email.
func (r *Users) SetPassword(ctx context.Context, email, password string) error {
	u, err := r.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	h, err := r.hash(password)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(u).Update("hashed_password", h).Error; err != nil {
		return apperr.Storage("failed to update password", err)
	}
	return nil
}

// Authenticate checks email and password. Unknown email and wrong password
// produce the same error.
func (r *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := r.ByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.HashedPassword, []byte(password)); err != nil {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return u, nil
}
