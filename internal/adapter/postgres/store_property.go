package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/PropertyHub/internal/domain"
	"github.com/Strob0t/PropertyHub/internal/domain/property"
	"github.com/Strob0t/PropertyHub/internal/domain/user"
)

const propertyColumns = `id, external_id, client_id, name, property_type, address, archived, created_at`

func scanProperty(row scannable) (property.Property, error) {
	var p property.Property
	err := row.Scan(&p.ID, &p.ExternalID, &p.ClientID, &p.Name, &p.PropertyType, &p.Address, &p.Archived, &p.CreatedAt)
	return p, err
}

const apartmentColumns = `a.id, a.external_id, a.client_id, a.property_id, p.name, a.floor, a.door, a.size, a.rooms,
	COALESCE(a.tenant_id::text, ''), a.lease_start, a.lease_end, a.rent, a.deposit, a.late_fee, a.archived, a.created_at`

const apartmentFrom = ` FROM apartments a JOIN properties p ON p.id = a.property_id`

func scanApartment(row scannable) (property.Apartment, error) {
	var a property.Apartment
	err := row.Scan(&a.ID, &a.ExternalID, &a.ClientID, &a.PropertyID, &a.PropertyName, &a.Floor, &a.Door, &a.Size, &a.Rooms,
		&a.TenantID, &a.Lease.StartDate, &a.Lease.EndDate, &a.Lease.Rent, &a.Lease.Deposit, &a.Lease.LateFee, &a.Archived, &a.CreatedAt)
	return a, err
}

func (s *Store) CreateProperty(ctx context.Context, p *property.Property) error {
	assignIDs(&p.ID, &p.ExternalID)
	p.ClientID = user.ClientIDFromContext(ctx)
	p.CreatedAt = time.Now().UTC()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO properties (id, external_id, client_id, name, property_type, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.ExternalID, nullIfEmpty(p.ClientID), p.Name, p.PropertyType, p.Address, p.CreatedAt)
	if err != nil {
		return conflictWrap(err, "create property")
	}
	return nil
}

func (s *Store) ListProperties(ctx context.Context, page domain.PageRequest) ([]property.Property, int, error) {
	const where = `client_id = $1 AND NOT archived AND ($2 = '' OR name ILIKE '%' || $2 || '%')`
	cid := clientFromCtx(ctx)
	total, err := s.count(ctx, `SELECT COUNT(*) FROM properties WHERE `+where, cid, page.Query)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		cid, page.Query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	props, err := collect(rows, scanProperty)
	if err != nil {
		return nil, 0, fmt.Errorf("scan property: %w", err)
	}
	return props, total, nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (*property.Property, error) {
	p, err := scanProperty(s.pool.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1 AND client_id = $2`, id, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get property %s", id)
	}
	return &p, nil
}

func (s *Store) GetPropertyByExternalID(ctx context.Context, externalID string) (*property.Property, error) {
	p, err := scanProperty(s.pool.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE external_id = $1 AND client_id = $2`, externalID, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get property %s", externalID)
	}
	return &p, nil
}

func (s *Store) ResolvePropertyIDs(ctx context.Context, externalIDs []string) ([]string, error) {
	if len(externalIDs) == 0 {
		return []string{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text FROM properties WHERE external_id = ANY($1) AND client_id = $2`,
		externalIDs, clientFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("resolve properties: %w", err)
	}
	ids, err := collect(rows, func(r scannable) (string, error) {
		var id string
		return id, r.Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve properties: %w", err)
	}
	if len(ids) != len(uniqueStrings(externalIDs)) {
		return nil, fmt.Errorf("resolve properties: %w", domain.ErrNotFound)
	}
	return ids, nil
}

func (s *Store) CreateApartment(ctx context.Context, a *property.Apartment) error {
	assignIDs(&a.ID, &a.ExternalID)
	a.ClientID = user.ClientIDFromContext(ctx)
	a.CreatedAt = time.Now().UTC()
	// The property must belong to the same client.
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO apartments (id, external_id, client_id, property_id, floor, door, size, rooms, created_at)
		SELECT $1, $2, p.client_id, p.id, $4, $5, $6, $7, $8
		FROM properties p WHERE p.id = $3 AND p.client_id = $9`,
		a.ID, a.ExternalID, a.PropertyID, a.Floor, a.Door, a.Size, a.Rooms, a.CreatedAt, nullIfEmpty(a.ClientID))
	if err != nil {
		return conflictWrap(err, "create apartment")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create apartment: property %s: %w", a.PropertyID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) GetApartment(ctx context.Context, id string) (*property.Apartment, error) {
	a, err := scanApartment(s.pool.QueryRow(ctx,
		`SELECT `+apartmentColumns+apartmentFrom+` WHERE a.id = $1 AND a.client_id = $2`, id, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get apartment %s", id)
	}
	return &a, nil
}

func (s *Store) GetApartmentByExternalID(ctx context.Context, externalID string) (*property.Apartment, error) {
	a, err := scanApartment(s.pool.QueryRow(ctx,
		`SELECT `+apartmentColumns+apartmentFrom+` WHERE a.external_id = $1 AND a.client_id = $2`, externalID, clientFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get apartment %s", externalID)
	}
	return &a, nil
}

func (s *Store) ListApartments(ctx context.Context, propertyID string) ([]property.Apartment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apartmentColumns+apartmentFrom+`
		 WHERE a.property_id = $1 AND a.client_id = $2 AND NOT a.archived
		 ORDER BY a.floor, a.door`, propertyID, clientFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list apartments: %w", err)
	}
	apts, err := collect(rows, scanApartment)
	if err != nil {
		return nil, fmt.Errorf("scan apartment: %w", err)
	}
	return apts, nil
}

func (s *Store) DeleteApartment(ctx context.Context, apartmentID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var tenant *string
		err := tx.QueryRow(ctx,
			`SELECT tenant_id::text FROM apartments WHERE id = $1 AND client_id = $2 FOR UPDATE`,
			apartmentID, clientFromCtx(ctx)).Scan(&tenant)
		if err != nil {
			return notFoundWrap(err, "delete apartment %s", apartmentID)
		}
		if tenant != nil {
			return fmt.Errorf("%w: apartment is occupied", domain.ErrConflict)
		}
		_, err = tx.Exec(ctx, `DELETE FROM apartments WHERE id = $1`, apartmentID)
		if err != nil {
			return fmt.Errorf("delete apartment %s: %w", apartmentID, err)
		}
		return nil
	})
}

func (s *Store) AssignTenant(ctx context.Context, tenantID, apartmentID string, lease property.Lease) error {
	cid := clientFromCtx(ctx)
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var role user.Role
		err := tx.QueryRow(ctx,
			`SELECT role FROM users WHERE id = $1 AND client_id = $2 FOR UPDATE`, tenantID, cid).Scan(&role)
		if err != nil {
			return notFoundWrap(err, "assign tenant %s", tenantID)
		}
		if role != user.RoleTenant {
			return domain.Invalid("user is not a tenant")
		}

		var current *string
		err = tx.QueryRow(ctx,
			`SELECT tenant_id::text FROM apartments WHERE id = $1 AND client_id = $2 FOR UPDATE`,
			apartmentID, cid).Scan(&current)
		if err != nil {
			return notFoundWrap(err, "assign apartment %s", apartmentID)
		}
		if current != nil && *current != tenantID {
			return fmt.Errorf("%w: apartment is occupied by another tenant", domain.ErrConflict)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE apartments SET tenant_id = NULL, lease_start = NULL, lease_end = NULL
			WHERE tenant_id = $1 AND id <> $2`, tenantID, apartmentID); err != nil {
			return fmt.Errorf("vacate previous apartment: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE apartments
			SET tenant_id = $2, lease_start = $3, lease_end = $4, rent = $5, deposit = $6, late_fee = $7
			WHERE id = $1`,
			apartmentID, tenantID, lease.StartDate, lease.EndDate, lease.Rent, lease.Deposit, lease.LateFee); err != nil {
			return conflictWrap(err, "assign apartment %s", apartmentID)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, tenantID); err != nil {
			return fmt.Errorf("touch tenant: %w", err)
		}
		return nil
	})
}

func (s *Store) ListOccupiedApartments(ctx context.Context) ([]property.Apartment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+apartmentColumns+apartmentFrom+`
		 WHERE a.tenant_id IS NOT NULL AND a.lease_start IS NOT NULL AND NOT a.archived
		 ORDER BY a.client_id, a.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list occupied apartments: %w", err)
	}
	apts, err := collect(rows, scanApartment)
	if err != nil {
		return nil, fmt.Errorf("scan apartment: %w", err)
	}
	return apts, nil
}

func (s *Store) PropertyStaff(ctx context.Context, propertyID string, roles ...user.Role) ([]string, error) {
	roleFilter := make([]string, 0, len(roles))
	for _, r := range roles {
		roleFilter = append(roleFilter, string(r))
	}
	rows, err := s.pool.Query(ctx, `
		SELECT u.id::text FROM property_staff ps
		JOIN users u ON u.id = ps.user_id
		WHERE ps.property_id = $1 AND ps.client_id = $2
		  AND u.status IN ('NEW', 'ACTIVE')
		  AND (cardinality($3::text[]) = 0 OR u.role = ANY($3))
		ORDER BY u.created_at`,
		propertyID, clientFromCtx(ctx), roleFilter)
	if err != nil {
		return nil, fmt.Errorf("property staff: %w", err)
	}
	ids, err := collect(rows, func(r scannable) (string, error) {
		var id string
		return id, r.Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("property staff: %w", err)
	}
	return orEmpty(ids), nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
