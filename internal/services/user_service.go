package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/models"
	"github.com/isdelr/devsec-blog-be/internal/validation"
)

// reservedUsernames can never be claimed through self-registration.
var reservedUsernames = map[string]bool{
	"admin":    true,
	"msdevsec": true,
}

// IsReservedUsername reports whether username (case-insensitive) is reserved.
func IsReservedUsername(username string) bool {
	return reservedUsernames[strings.ToLower(strings.TrimSpace(username))]
}

// RegisterInput is the registration schema.
type RegisterInput struct {
	FirstName       string `json:"firstName" validate:"required,min=2,max=50"`
	LastName        string `json:"lastName" validate:"required,min=2,max=50"`
	Username        string `json:"username" validate:"required,min=3,max=30,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=100,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
}

// ValidationMessages implements validation.Messenger.
func (RegisterInput) ValidationMessages() map[string]string {
	return map[string]string{
		"firstName.required":       "First name is required",
		"firstName.min":            "First name must be at least 2 characters",
		"firstName.max":            "First name must not exceed 50 characters",
		"lastName.required":        "Last name is required",
		"lastName.min":             "Last name must be at least 2 characters",
		"lastName.max":             "Last name must not exceed 50 characters",
		"username.required":        "Username is required",
		"username.min":             "Username must be at least 3 characters",
		"username.max":             "Username must not exceed 30 characters",
		"username.username":        "Username can only contain letters, numbers, and underscores",
		"email.required":           "Email is required",
		"email.email":              "Must be a valid email address",
		"password.required":        "Password is required",
		"password.min":             "Password must be at least 8 characters",
		"password.max":             "Password must not exceed 100 characters",
		"password.strongpassword":  "Password must contain at least one uppercase letter, one lowercase letter, and one number",
		"confirmPassword.required": "Password confirmation is required",
		"confirmPassword.eqfield":  "Passwords do not match",
	}
}

// LoginInput is the login schema.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidationMessages implements validation.Messenger.
func (LoginInput) ValidationMessages() map[string]string {
	return map[string]string{
		"email.required":    "Email is required",
		"email.email":       "Must be a valid email address",
		"password.required": "Password is required",
	}
}

// ChangePasswordInput is the schema for changing one's own password.
type ChangePasswordInput struct {
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=8,max=100,strongpassword"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

// ValidationMessages implements validation.Messenger.
func (ChangePasswordInput) ValidationMessages() map[string]string {
	return map[string]string{
		"currentPassword.required":    "Current password is required",
		"newPassword.required":        "New password is required",
		"newPassword.min":             "Password must be at least 8 characters",
		"newPassword.max":             "Password must not exceed 100 characters",
		"newPassword.strongpassword":  "Password must contain at least one uppercase letter, one lowercase letter, and one number",
		"confirmNewPassword.required": "Password confirmation is required",
		"confirmNewPassword.eqfield":  "Passwords do not match",
	}
}

// UpdateUserInput is the admin schema for changing a user's role or premium flag.
type UpdateUserInput struct {
	Role      *models.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
	IsPremium *bool        `json:"isPremium"`
}

// ValidationMessages implements validation.Messenger.
func (UpdateUserInput) ValidationMessages() map[string]string {
	return map[string]string{"role.oneof": "Role must be one of: USER, ADMIN"}
}

// AuthResult is returned by registration and login.
type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (AuthResult, error)
	Login(ctx context.Context, in LoginInput) (AuthResult, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	ChangePassword(ctx context.Context, id string, in ChangePasswordInput) error
	ListUsers(ctx context.Context) ([]models.UserWithCounts, error)
	GetUserDetail(ctx context.Context, id string) (models.UserDetail, error)
	UpdateUser(ctx context.Context, actor auth.Session, id string, in UpdateUserInput) (models.User, error)
	DeleteUser(ctx context.Context, actor auth.Session, id string) error
	CreateAdmin(ctx context.Context, in RegisterInput, premium bool) (models.User, error)
}

// UserService provides business logic for accounts and user management.
type UserService struct {
	db       *sql.DB
	hasher   *auth.Hasher
	tokens   *auth.TokenManager
	validate *validation.Validator
	events   EventServiceProvider
	now      func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, hasher *auth.Hasher, tokens *auth.TokenManager, validate *validation.Validator, events EventServiceProvider) *UserService {
	return &UserService{
		db:       db,
		hasher:   hasher,
		tokens:   tokens,
		validate: validate,
		events:   events,
		now:      time.Now,
	}
}

const userColumns = "id, email, username, password_hash, first_name, last_name, role, is_premium, created_at"

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	err := scanner.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.Role, &user.IsPremium, &user.CreatedAt)
	return user, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a regular USER account and issues a token for it. Reserved
// usernames are rejected before any other check.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.normalize()
	if IsReservedUsername(in.Username) {
		return AuthResult{}, ErrReservedUsername
	}

	user, err := s.createUser(ctx, in, models.RoleUser, false)
	if err != nil {
		return AuthResult{}, err
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}

// CreateAdmin provisions an account out of band. It bypasses the reserved
// username rule and grants the ADMIN role.
func (s *UserService) CreateAdmin(ctx context.Context, in RegisterInput, premium bool) (models.User, error) {
	in.normalize()
	user, err := s.createUser(ctx, in, models.RoleAdmin, premium)
	if err != nil {
		return models.User{}, err
	}
	record(ctx, s.events, "user.provision", LevelWarn, fmt.Sprintf("Admin account '%s' provisioned.", user.Username), "")
	return user, nil
}

func (s *UserService) createUser(ctx context.Context, in RegisterInput, role models.Role, premium bool) (models.User, error) {
	if err := s.validate.Struct(&in); err != nil {
		return models.User{}, err
	}
	if err := s.checkAvailable(ctx, in.Email, in.Username); err != nil {
		return models.User{}, err
	}

	hashedPassword, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hashedPassword,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
		IsPremium:    premium,
		CreatedAt:    s.now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users("+userColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Username, user.PasswordHash, user.FirstName, user.LastName,
		user.Role, user.IsPremium, user.CreatedAt)
	if err != nil {
		// The pre-check above races with concurrent registrations; the
		// UNIQUE constraints are the authority.
		if col, ok := uniqueViolation(err); ok {
			return models.User{}, accountConflict(col)
		}
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	// Return user without password hash
	user.PasswordHash = ""
	return user, nil
}

// checkAvailable reports every identity field already in use.
func (s *UserService) checkAvailable(ctx context.Context, email, username string) error {
	var fields []validation.FieldError

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count); err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if count > 0 {
		fields = append(fields, validation.FieldError{Field: "username", Message: "Username is already taken"})
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&count); err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		fields = append(fields, validation.FieldError{Field: "email", Message: "Email is already registered"})
	}

	if len(fields) > 0 {
		return validation.NewError(fields...)
	}
	return nil
}

func accountConflict(column string) error {
	switch column {
	case "users.username":
		return validation.NewError(validation.FieldError{Field: "username", Message: "Username is already taken"})
	case "users.email":
		return validation.NewError(validation.FieldError{Field: "email", Message: "Email is already registered"})
	default:
		return validation.NewError(validation.FieldError{Field: "email", Message: "User already exists"})
	}
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords produce the same ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(&in); err != nil {
		return AuthResult{}, err
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", in.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.hasher.CheckDummy(in.Password)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Check(in.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	// Don't send the password hash to the client
	user.PasswordHash = ""

	token, err := s.tokens.Generate(user)
	if err != nil {
		return AuthResult{}, fmt.Errorf("failed to generate token: %w", err)
	}
	return AuthResult{User: user, Token: token}, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// ChangePassword verifies the current password, then hashes and sets a new password for a user.
func (s *UserService) ChangePassword(ctx context.Context, id string, in ChangePasswordInput) error {
	if err := s.validate.Struct(&in); err != nil {
		return err
	}

	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE id = ?", id).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("could not load user to update password: %w", err)
	}

	if !s.hasher.Check(in.CurrentPassword, hash) {
		return validation.NewError(validation.FieldError{Field: "currentPassword", Message: "Current password is incorrect"})
	}

	hashedPassword, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	_, err = s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hashedPassword, id)
	return err
}

// ListUsers returns every user with their post and comment counts, newest first.
func (s *UserService) ListUsers(ctx context.Context) ([]models.UserWithCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.username, u.password_hash, u.first_name, u.last_name, u.role, u.is_premium, u.created_at,
		       (SELECT COUNT(*) FROM posts p WHERE p.author_id = u.id),
		       (SELECT COUNT(*) FROM comments c WHERE c.author_id = u.id)
		FROM users u
		ORDER BY u.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.UserWithCounts{}
	for rows.Next() {
		var u models.UserWithCounts
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.Role, &u.IsPremium, &u.CreatedAt, &u.Count.Posts, &u.Count.Comments); err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUserDetail returns a user together with their posts and comments.
func (s *UserService) GetUserDetail(ctx context.Context, id string) (models.UserDetail, error) {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.UserDetail{}, err
	}

	detail := models.UserDetail{User: user, Posts: []models.PostSummary{}}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, slug, category, is_published FROM posts WHERE author_id = ? ORDER BY created_at DESC", id)
	if err != nil {
		return models.UserDetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var p models.PostSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Category, &p.IsPublished); err != nil {
			return models.UserDetail{}, err
		}
		detail.Posts = append(detail.Posts, p)
	}
	if err := rows.Err(); err != nil {
		return models.UserDetail{}, err
	}

	detail.Comments, err = queryComments(ctx, s.db, "WHERE c.author_id = ?", id)
	if err != nil {
		return models.UserDetail{}, err
	}
	return detail, nil
}

// UpdateUser changes a user's role and/or premium flag.
func (s *UserService) UpdateUser(ctx context.Context, actor auth.Session, id string, in UpdateUserInput) (models.User, error) {
	if err := s.validate.Struct(&in); err != nil {
		return models.User{}, err
	}

	var sets []string
	var args []interface{}
	if in.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *in.Role)
	}
	if in.IsPremium != nil {
		sets = append(sets, "is_premium = ?")
		args = append(args, *in.IsPremium)
	}
	if len(sets) == 0 {
		return s.GetUserByID(ctx, id)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return models.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.User{}, ErrNotFound
	}

	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	record(ctx, s.events, "user.update", LevelInfo,
		fmt.Sprintf("User '%s' updated (role=%s, premium=%t).", user.Username, user.Role, user.IsPremium), actor.ID)
	return user, nil
}

// DeleteUser removes a user; their posts and comments go with them.
func (s *UserService) DeleteUser(ctx context.Context, actor auth.Session, id string) error {
	user, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	actorID := actor.ID
	if actorID == id {
		actorID = ""
	}
	record(ctx, s.events, "user.delete", LevelWarn, fmt.Sprintf("User '%s' was deleted.", user.Username), actorID)
	return nil
}
