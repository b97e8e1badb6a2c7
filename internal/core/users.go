package core

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"stockroom/internal/codec"
	"stockroom/internal/logdetail"
	"stockroom/pkg/domain"
)

// UserStore holds application accounts. Usernames are unique ignoring case and
// passwords are stored as bcrypt hashes.
type UserStore struct {
	*Table[domain.User]
}

func newUserStore(reg *Registry) *UserStore {
	return &UserStore{Table: newTable(reg, schema[domain.User]{
		codec:    codec.Users,
		key:      func(u domain.User) string { return u.UserID },
		setKey:   func(u *domain.User, k string) { u.UserID = k },
		strategy: keySequential,
		prefix:   PrefixUser,
		prepare: func(u *domain.User) error {
			u.Username = strings.TrimSpace(u.Username)
			u.Email = strings.TrimSpace(u.Email)
			if u.Password == "" || isPasswordHash(u.Password) {
				return nil
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), reg.passwordCost)
			if err != nil {
				return err
			}
			u.Password = string(hash)
			return nil
		},
		validate: func(u domain.User) string {
			if problem := missing("username", u.Username, "password", u.Password); problem != "" {
				return problem
			}
			if !u.Role.Valid() {
				return "role " + string(u.Role) + " is not recognised"
			}
			if u.Email != "" && !strings.Contains(u.Email, "@") {
				return "email is not valid"
			}
			return ""
		},
		conflict: func(existing, candidate domain.User) string {
			if strings.EqualFold(existing.Username, candidate.Username) {
				return "username " + candidate.Username + " is already taken"
			}
			return ""
		},
		audit: &auditTemplate[domain.User]{
			noun:       "user",
			createVerb: logdetail.VerbAdded,
			updateVerb: logdetail.VerbUpdated,
			subject:    func(u domain.User) string { return u.Username },
		},
	})}
}

func isPasswordHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// ByUsername finds a user by username, ignoring case.
func (s *UserStore) ByUsername(ctx context.Context, username string) (domain.User, error) {
	name := strings.TrimSpace(username)
	matches, err := s.Filter(ctx, func(u domain.User) bool { return strings.EqualFold(u.Username, name) })
	if err != nil {
		return domain.User{}, err
	}
	if len(matches) == 0 {
		return domain.User{}, domain.NewError("get", domain.KindUser, name, domain.ErrNotFound, "")
	}
	return matches[0], nil
}

// ByRole lists users holding role.
func (s *UserStore) ByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return s.Filter(ctx, func(u domain.User) bool { return u.Role == role })
}

// Authenticate checks a username and password. Rows written before hashing
// was introduced hold plaintext and are compared in constant time.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	denied := domain.NewError("authenticate", domain.KindUser, "", domain.ErrValidation, "invalid username or password")
	u, err := s.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, denied
		}
		return domain.User{}, err
	}
	if !passwordMatches(u.Password, password) {
		return domain.User{}, denied
	}
	return u, nil
}

func passwordMatches(stored, given string) bool {
	if stored == "" || given == "" {
		return false
	}
	if isPasswordHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
