package store

import (
	"context"
	"fmt"
	"strings"
)

// ── dogs ──

const dogColumns = `id, org_id, name, breed, sex, stage, intake_at, microchip, notes, updated_by_name, created_at, updated_at`

func (s *PostgresStore) InsertDog(ctx context.Context, dog Dog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dogs (id, org_id, name, breed, sex, stage, intake_at, microchip, notes, updated_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, dog.ID, dog.OrgID, dog.Name, dog.Breed, dog.Sex, dog.Stage, dog.IntakeAt, dog.Microchip, dog.Notes, dog.UpdatedBy)
	if err != nil {
		return fmt.Errorf("insert dog: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetDog(ctx context.Context, orgID, dogID string) (Dog, error) {
	var dog Dog
	err := s.db.QueryRowContext(ctx, `
		SELECT `+dogColumns+` FROM dogs WHERE org_id=$1 AND id=$2
	`, orgID, dogID).Scan(&dog.ID, &dog.OrgID, &dog.Name, &dog.Breed, &dog.Sex, &dog.Stage, &dog.IntakeAt, &dog.Microchip, &dog.Notes, &dog.UpdatedBy, &dog.CreatedAt, &dog.UpdatedAt)
	if err != nil {
		return Dog{}, err
	}
	return dog, nil
}

func (s *PostgresStore) ListDogs(ctx context.Context, orgID, stage, query string) ([]Dog, error) {
	sqlQuery := `SELECT ` + dogColumns + ` FROM dogs WHERE org_id=$1`
	args := []any{orgID}
	if stage != "" {
		args = append(args, stage)
		sqlQuery += fmt.Sprintf(" AND stage=$%d", len(args))
	}
	if trimmed := strings.TrimSpace(query); trimmed != "" {
		args = append(args, "%"+trimmed+"%")
		sqlQuery += fmt.Sprintf(" AND (name ILIKE $%d OR breed ILIKE $%d OR microchip ILIKE $%d)", len(args), len(args), len(args))
	}
	sqlQuery += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list dogs: %w", err)
	}
	defer rows.Close()

	items := make([]Dog, 0)
	for rows.Next() {
		var dog Dog
		if err := rows.Scan(&dog.ID, &dog.OrgID, &dog.Name, &dog.Breed, &dog.Sex, &dog.Stage, &dog.IntakeAt, &dog.Microchip, &dog.Notes, &dog.UpdatedBy, &dog.CreatedAt, &dog.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dog: %w", err)
		}
		items = append(items, dog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dogs: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateDog(ctx context.Context, dog Dog) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE dogs
		SET name=$3, breed=$4, sex=$5, stage=$6, intake_at=$7, microchip=$8, notes=$9, updated_by_name=$10, updated_at=NOW()
		WHERE org_id=$1 AND id=$2
	`, dog.OrgID, dog.ID, dog.Name, dog.Breed, dog.Sex, dog.Stage, dog.IntakeAt, dog.Microchip, dog.Notes, dog.UpdatedBy)
	if err != nil {
		return false, fmt.Errorf("update dog: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update dog rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteDog(ctx context.Context, orgID, dogID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dogs WHERE org_id=$1 AND id=$2`, orgID, dogID)
	if err != nil {
		return false, fmt.Errorf("delete dog: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete dog rows: %w", err)
	}
	return affected > 0, nil
}

// ── transports ──

const transportColumns = `id, org_id, dog_id, from_location, to_location, depart_at, arrive_at, driver_contact_id, status, notes, updated_by_name, created_at, updated_at`

func (s *PostgresStore) InsertTransport(ctx context.Context, t Transport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transports (id, org_id, dog_id, from_location, to_location, depart_at, arrive_at, driver_contact_id, status, notes, updated_by_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, t.ID, t.OrgID, t.DogID, t.FromLocation, t.ToLocation, t.DepartAt, t.ArriveAt, t.DriverContactID, t.Status, t.Notes, t.UpdatedBy)
	if err != nil {
		return fmt.Errorf("insert transport: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransport(ctx context.Context, orgID, transportID string) (Transport, error) {
	var t Transport
	err := s.db.QueryRowContext(ctx, `
		SELECT `+transportColumns+` FROM transports WHERE org_id=$1 AND id=$2
	`, orgID, transportID).Scan(&t.ID, &t.OrgID, &t.DogID, &t.FromLocation, &t.ToLocation, &t.DepartAt, &t.ArriveAt, &t.DriverContactID, &t.Status, &t.Notes, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Transport{}, err
	}
	return t, nil
}

func (s *PostgresStore) ListTransports(ctx context.Context, orgID, dogID, status string) ([]Transport, error) {
	sqlQuery := `SELECT ` + transportColumns + ` FROM transports WHERE org_id=$1`
	args := []any{orgID}
	if dogID != "" {
		args = append(args, dogID)
		sqlQuery += fmt.Sprintf(" AND dog_id=$%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		sqlQuery += fmt.Sprintf(" AND status=$%d", len(args))
	}
	sqlQuery += ` ORDER BY depart_at DESC NULLS LAST`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list transports: %w", err)
	}
	defer rows.Close()

	items := make([]Transport, 0)
	for rows.Next() {
		var t Transport
		if err := rows.Scan(&t.ID, &t.OrgID, &t.DogID, &t.FromLocation, &t.ToLocation, &t.DepartAt, &t.ArriveAt, &t.DriverContactID, &t.Status, &t.Notes, &t.UpdatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan transport: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transports: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateTransport(ctx context.Context, t Transport) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE transports
		SET from_location=$3, to_location=$4, depart_at=$5, arrive_at=$6, driver_contact_id=$7, status=$8, notes=$9, updated_by_name=$10, updated_at=NOW()
		WHERE org_id=$1 AND id=$2
	`, t.OrgID, t.ID, t.FromLocation, t.ToLocation, t.DepartAt, t.ArriveAt, t.DriverContactID, t.Status, t.Notes, t.UpdatedBy)
	if err != nil {
		return false, fmt.Errorf("update transport: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update transport rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteTransport(ctx context.Context, orgID, transportID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM transports WHERE org_id=$1 AND id=$2`, orgID, transportID)
	if err != nil {
		return false, fmt.Errorf("delete transport: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete transport rows: %w", err)
	}
	return affected > 0, nil
}

// ── contacts ──

const contactColumns = `id, org_id, name, email, phone, kind, notes, created_at, updated_at`

func (s *PostgresStore) InsertContact(ctx context.Context, c Contact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, org_id, name, email, phone, kind, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.OrgID, c.Name, c.Email, c.Phone, c.Kind, c.Notes)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetContact(ctx context.Context, orgID, contactID string) (Contact, error) {
	var c Contact
	err := s.db.QueryRowContext(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE org_id=$1 AND id=$2
	`, orgID, contactID).Scan(&c.ID, &c.OrgID, &c.Name, &c.Email, &c.Phone, &c.Kind, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, orgID, kind string) ([]Contact, error) {
	sqlQuery := `SELECT ` + contactColumns + ` FROM contacts WHERE org_id=$1`
	args := []any{orgID}
	if kind != "" {
		args = append(args, kind)
		sqlQuery += fmt.Sprintf(" AND kind=$%d", len(args))
	}
	sqlQuery += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	items := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Name, &c.Email, &c.Phone, &c.Kind, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, c Contact) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE contacts SET name=$3, email=$4, phone=$5, kind=$6, notes=$7, updated_at=NOW()
		WHERE org_id=$1 AND id=$2
	`, c.OrgID, c.ID, c.Name, c.Email, c.Phone, c.Kind, c.Notes)
	if err != nil {
		return false, fmt.Errorf("update contact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update contact rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteContact(ctx context.Context, orgID, contactID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE org_id=$1 AND id=$2`, orgID, contactID)
	if err != nil {
		return false, fmt.Errorf("delete contact: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete contact rows: %w", err)
	}
	return affected > 0, nil
}

// ── medical records ──

const medicalColumns = `id, org_id, dog_id, kind, title, due_at, administered_at, vet_contact_id, notes, created_at, updated_at`

func (s *PostgresStore) InsertMedicalRecord(ctx context.Context, m MedicalRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medical_records (id, org_id, dog_id, kind, title, due_at, administered_at, vet_contact_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.OrgID, m.DogID, m.Kind, m.Title, m.DueAt, m.AdministeredAt, m.VetContactID, m.Notes)
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMedicalRecord(ctx context.Context, orgID, recordID string) (MedicalRecord, error) {
	var m MedicalRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT `+medicalColumns+` FROM medical_records WHERE org_id=$1 AND id=$2
	`, orgID, recordID).Scan(&m.ID, &m.OrgID, &m.DogID, &m.Kind, &m.Title, &m.DueAt, &m.AdministeredAt, &m.VetContactID, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return MedicalRecord{}, err
	}
	return m, nil
}

func (s *PostgresStore) ListMedicalRecords(ctx context.Context, orgID, dogID string) ([]MedicalRecord, error) {
	sqlQuery := `SELECT ` + medicalColumns + ` FROM medical_records WHERE org_id=$1`
	args := []any{orgID}
	if dogID != "" {
		args = append(args, dogID)
		sqlQuery += fmt.Sprintf(" AND dog_id=$%d", len(args))
	}
	sqlQuery += ` ORDER BY due_at DESC NULLS LAST`

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	defer rows.Close()

	items := make([]MedicalRecord, 0)
	for rows.Next() {
		var m MedicalRecord
		if err := rows.Scan(&m.ID, &m.OrgID, &m.DogID, &m.Kind, &m.Title, &m.DueAt, &m.AdministeredAt, &m.VetContactID, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan medical record: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medical records: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateMedicalRecord(ctx context.Context, m MedicalRecord) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE medical_records
		SET kind=$3, title=$4, due_at=$5, administered_at=$6, vet_contact_id=$7, notes=$8, updated_at=NOW()
		WHERE org_id=$1 AND id=$2
	`, m.OrgID, m.ID, m.Kind, m.Title, m.DueAt, m.AdministeredAt, m.VetContactID, m.Notes)
	if err != nil {
		return false, fmt.Errorf("update medical record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update medical record rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteMedicalRecord(ctx context.Context, orgID, recordID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM medical_records WHERE org_id=$1 AND id=$2`, orgID, recordID)
	if err != nil {
		return false, fmt.Errorf("delete medical record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete medical record rows: %w", err)
	}
	return affected > 0, nil
}
