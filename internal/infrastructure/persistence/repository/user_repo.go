package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/expenseflow/backend/internal/application/port"
	"github.com/expenseflow/backend/internal/domain/entity"
	"github.com/expenseflow/backend/internal/infrastructure/persistence/sqlite"
)

// UserRepository implements the read side of port.UserRepository. User
// management is owned by the external identity collaborator; the engine
// only resolves approvers against the roster.
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, company_id, name, email, role, manager_id, is_manager_approver, created_at`

// GetByID retrieves a user, or (nil, nil) when it does not exist
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindByRole returns every company user holding the role. Unbounded on
// purpose: role steps need the full approver set.
func (r *UserRepository) FindByRole(ctx context.Context, companyID string, role entity.Role) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = ? AND role = ? ORDER BY id ASC`
	return r.queryUsers(ctx, query, companyID, string(role))
}

// FindByManager returns the users reporting to the given manager
func (r *UserRepository) FindByManager(ctx context.Context, companyID, managerID string) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE company_id = ? AND manager_id = ? ORDER BY id ASC`
	return r.queryUsers(ctx, query, companyID, managerID)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*entity.User, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	var role string
	var managerID sql.NullString

	err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&role,
		&managerID,
		&user.IsManagerApprover,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = entity.Role(role)
	if managerID.Valid {
		user.ManagerID = managerID.String
	}
	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
