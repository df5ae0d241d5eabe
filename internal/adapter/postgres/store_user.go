package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

// userColumns derives property and apartment references from the join
// tables so they can never drift from the apartments' tenant column.
const userColumns = `u.id, u.external_id, u.email, u.name, u.phone, u.password_hash, u.role, u.status,
	u.permissions, COALESCE(u.client_id::text, ''),
	ARRAY(SELECT ps.property_id::text FROM property_staff ps WHERE ps.user_id = u.id
	      UNION SELECT a.property_id::text FROM apartments a WHERE a.tenant_id = u.id),
	ARRAY(SELECT a.id::text FROM apartments a WHERE a.tenant_id = u.id),
	u.tokens, u.created_at, u.updated_at`

func scanUser(row scannable) (user.User, error) {
	var (
		u     user.User
		perms []string
	)
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash, &u.Role, &u.Status,
		&perms, &u.ClientID, &u.PropertyIDs, &u.ApartmentIDs, &u.Tokens, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return u, err
	}
	u.Permissions = user.NewPermissionSet()
	for _, p := range perms {
		u.Permissions[user.Permission(p)] = struct{}{}
	}
	return u, nil
}

func (s *Store) CreateClientOwner(ctx context.Context, u *user.User, c *user.Client) error {
	assignIDs(&u.ID, &u.ExternalID)
	assignIDs(&c.ID, &c.ExternalID)
	now := time.Now().UTC()
	u.ClientID, c.OwnerID = c.ID, u.ID
	u.CreatedAt, u.UpdatedAt, c.CreatedAt = now, now, now

	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO clients (id, external_id, company_name, created_at)
			VALUES ($1, $2, $3, $4)`,
			c.ID, c.ExternalID, c.CompanyName, c.CreatedAt); err != nil {
			return conflictWrap(err, "create client")
		}
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE clients SET owner_id = $2 WHERE id = $1`, c.ID, u.ID); err != nil {
			return fmt.Errorf("set client owner: %w", err)
		}
		return nil
	})
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	assignIDs(&u.ID, &u.ExternalID)
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	if len(u.PropertyIDs) == 0 {
		return insertUser(ctx, s.pool, u)
	}
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertUser(ctx, tx, u); err != nil {
			return err
		}
		return replaceStaffProperties(ctx, tx, u.ID, u.ClientID, u.PropertyIDs)
	})
}

func insertUser(ctx context.Context, db querier, u *user.User) error {
	var id string
	err := db.QueryRow(ctx, `
		INSERT INTO users (id, external_id, email, name, phone, password_hash, role, status, permissions, client_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		u.ID, u.ExternalID, u.Email, u.Name, u.Phone, u.PasswordHash, u.Role, u.Status,
		pgTextArray(u.Permissions.Strings()), nullIfEmpty(u.ClientID), u.CreatedAt, u.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return conflictWrap(err, "create user %s", u.Email)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, user.NormalizeEmail(email)))
	if err != nil {
		return nil, notFoundWrap(err, "get user by email")
	}
	return &u, nil
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.external_id = $1 AND u.client_id = $2`,
		externalID, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", externalID)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, roles []user.Role, page domain.PageRequest) ([]user.User, int, error) {
	roleFilter := make([]string, 0, len(roles))
	for _, r := range roles {
		roleFilter = append(roleFilter, string(r))
	}
	const where = `u.client_id = $1 AND u.status <> 'DELETED'
		AND (cardinality($2::text[]) = 0 OR u.role = ANY($2))
		AND ($3 = '' OR u.name ILIKE '%' || $3 || '%' OR u.email ILIKE '%' || $3 || '%')`
	cid := clientFromCtx(ctx)

	total, err := s.count(ctx, `SELECT COUNT(*) FROM users u WHERE `+where, cid, roleFilter, page.Query)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users u WHERE `+where+` ORDER BY u.created_at DESC LIMIT $4 OFFSET $5`,
		cid, roleFilter, page.Query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, 0, fmt.Errorf("scan user: %w", err)
	}
	return users, total, nil
}

func (s *Store) ListAllUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users u ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list all users: %w", err)
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return users, nil
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, hash)
	return execExpectOne(tag, err, "update password %s", userID)
}

func (s *Store) UpdateUserStatus(ctx context.Context, userID string, status user.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET status = $2, updated_at = now() WHERE id = $1`, userID, status)
	return execExpectOne(tag, err, "update user status %s", userID)
}

func (s *Store) UpdatePermissions(ctx context.Context, userID string, perms user.PermissionSet) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET permissions = $2, updated_at = now() WHERE id = $1`,
		userID, pgTextArray(perms.Strings()))
	return execExpectOne(tag, err, "update permissions %s", userID)
}

func (s *Store) SetStaffProperties(ctx context.Context, userID string, propertyIDs []string) error {
	cid := user.ClientIDFromContext(ctx)
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var role user.Role
		err := tx.QueryRow(ctx,
			`SELECT role FROM users WHERE id = $1 AND client_id = $2 FOR UPDATE`, userID, nullIfEmpty(cid)).Scan(&role)
		if err != nil {
			return notFoundWrap(err, "set staff properties %s", userID)
		}
		if !role.IsStaff() {
			return domain.Invalid("user is not a staff member")
		}
		return replaceStaffProperties(ctx, tx, userID, cid, propertyIDs)
	})
}

// replaceStaffProperties rewrites the property_staff rows of a user. Only
// properties of the same client are linked.
func replaceStaffProperties(ctx context.Context, tx pgx.Tx, userID, clientID string, propertyIDs []string) error {
	propertyIDs = uniqueStrings(propertyIDs)
	if _, err := tx.Exec(ctx, `DELETE FROM property_staff WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear staff properties: %w", err)
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO property_staff (property_id, user_id, client_id)
		SELECT p.id, $1, p.client_id FROM properties p
		WHERE p.id::text = ANY($2) AND p.client_id = $3`,
		userID, pgTextArray(propertyIDs), nullIfEmpty(clientID))
	if err != nil {
		return fmt.Errorf("link staff properties: %w", err)
	}
	if int(tag.RowsAffected()) != len(propertyIDs) {
		return fmt.Errorf("link staff properties: %w", domain.ErrNotFound)
	}
	return nil
}
