package hospital

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hospital/hospital/internal/platform/db"
)

// queryable abstracts pgxpool.Pool and pgx.Tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Hospital Repository --

type hospitalRepoPG struct {
	pool *pgxpool.Pool
	tx   *db.Transactor
}

func NewHospitalRepo(pool *pgxpool.Pool) HospitalRepository {
	return &hospitalRepoPG{pool: pool, tx: db.NewTransactor(pool)}
}

const hospitalColumns = `id, name, address, created_at, updated_at`

func (r *hospitalRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

func (r *hospitalRepoPG) Create(ctx context.Context, h *Hospital) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hospital (name, address)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`,
		h.Name, h.Address,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
}

func (r *hospitalRepoPG) GetByID(ctx context.Context, id int64) (*Hospital, error) {
	h, err := scanHospital(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospital WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, hospitalNotFound(id)
	}
	return h, err
}

func (r *hospitalRepoPG) GetByIDs(ctx context.Context, ids []int64) ([]*Hospital, error) {
	if len(ids) == 0 {
		return []*Hospital{}, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalColumns+` FROM hospital WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hospitals := []*Hospital{}
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, rows.Err()
}

// Update changes name and address in one statement, so a row deleted
// concurrently yields NotFound rather than a silent no-op.
func (r *hospitalRepoPG) Update(ctx context.Context, h *Hospital) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE hospital SET name = $2, address = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		h.ID, h.Name, h.Address,
	).Scan(&h.CreatedAt, &h.UpdatedAt)
	if db.IsNoRows(err) {
		return hospitalNotFound(h.ID)
	}
	return err
}

func (r *hospitalRepoPG) Delete(ctx context.Context, id int64) (int64, error) {
	var cascaded int64
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		n, err := cascadeDelete(ctx, r.conn(ctx), "hospital", "hospital_id", id)
		if err != nil {
			return err
		}
		if n < 0 {
			return hospitalNotFound(id)
		}
		cascaded = n
		return nil
	})
	return cascaded, err
}

func (r *hospitalRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hospital WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	if err := row.Scan(&h.ID, &h.Name, &h.Address, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
	tx   *db.Transactor
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool, tx: db.NewTransactor(pool)}
}

const patientColumns = `id, first_name, last_name, birth_date, created_at, updated_at`

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (first_name, last_name, birth_date)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		p.FirstName, p.LastName, p.BirthDate,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patient WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, patientNotFound(id)
	}
	return p, err
}

func (r *patientRepoPG) GetByIDs(ctx context.Context, ids []int64) ([]*Patient, error) {
	if len(ids) == 0 {
		return []*Patient{}, nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientColumns+` FROM patient WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET first_name = $2, last_name = $3, birth_date = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.FirstName, p.LastName, p.BirthDate,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return patientNotFound(p.ID)
	}
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id int64) (int64, error) {
	var cascaded int64
	err := r.tx.InTx(ctx, func(ctx context.Context) error {
		n, err := cascadeDelete(ctx, r.conn(ctx), "patient", "patient_id", id)
		if err != nil {
			return err
		}
		if n < 0 {
			return patientNotFound(id)
		}
		cascaded = n
		return nil
	})
	return cascaded, err
}

func (r *patientRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.BirthDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// cascadeDelete deletes the parent row and every registration pointing at
// it. It must run inside a transaction. The parent row is locked first so
// no registration can be inserted for it between the two deletes. It
// returns -1 when the parent does not exist, otherwise the number of
// registrations removed.
func cascadeDelete(ctx context.Context, q queryable, table, fkColumn string, id int64) (int64, error) {
	var locked int64
	err := q.QueryRow(ctx, `SELECT id FROM `+table+` WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if db.IsNoRows(err) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lock %s %d: %w", table, id, err)
	}

	tag, err := q.Exec(ctx, `DELETE FROM registration WHERE `+fkColumn+` = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete registrations of %s %d: %w", table, id, err)
	}
	cascaded := tag.RowsAffected()

	if _, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id); err != nil {
		return 0, fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	return cascaded, nil
}

// -- Registration Repository --

type registrationRepoPG struct {
	pool *pgxpool.Pool
}

func NewRegistrationRepo(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepoPG{pool: pool}
}

const registrationColumns = `patient_id, hospital_id, registered_at`

func (r *registrationRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

// Create relies on the (patient_id, hospital_id) primary key for uniqueness
// and on the foreign keys for existence of both parents.
func (r *registrationRepoPG) Create(ctx context.Context, reg *Registration) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO registration (patient_id, hospital_id)
		VALUES ($1, $2)
		RETURNING registered_at`,
		reg.PatientID, reg.HospitalID,
	).Scan(&reg.RegisteredAt)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err):
		return alreadyRegistered(reg.ID())
	case db.IsForeignKeyViolation(err):
		if strings.Contains(db.ConstraintName(err), "hospital") {
			return hospitalNotFound(reg.HospitalID)
		}
		return patientNotFound(reg.PatientID)
	default:
		return err
	}
}

func (r *registrationRepoPG) GetByID(ctx context.Context, id RegistrationID) (*Registration, error) {
	reg, err := scanRegistration(r.conn(ctx).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registration WHERE patient_id = $1 AND hospital_id = $2`,
		id.PatientID, id.HospitalID))
	if db.IsNoRows(err) {
		return nil, registrationNotFound(id)
	}
	return reg, err
}

func (r *registrationRepoPG) Delete(ctx context.Context, id RegistrationID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM registration WHERE patient_id = $1 AND hospital_id = $2`,
		id.PatientID, id.HospitalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return registrationNotFound(id)
	}
	return nil
}

func (r *registrationRepoPG) Exists(ctx context.Context, id RegistrationID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registration WHERE patient_id = $1 AND hospital_id = $2)`,
		id.PatientID, id.HospitalID).Scan(&exists)
	return exists, err
}

func (r *registrationRepoPG) ListByHospital(ctx context.Context, hospitalID int64) ([]*Registration, error) {
	return r.list(ctx,
		`SELECT `+registrationColumns+` FROM registration WHERE hospital_id = $1 ORDER BY registered_at, patient_id`,
		hospitalID)
}

func (r *registrationRepoPG) ListByPatient(ctx context.Context, patientID int64) ([]*Registration, error) {
	return r.list(ctx,
		`SELECT `+registrationColumns+` FROM registration WHERE patient_id = $1 ORDER BY registered_at, hospital_id`,
		patientID)
}

func (r *registrationRepoPG) list(ctx context.Context, query string, id int64) ([]*Registration, error) {
	rows, err := r.conn(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func scanRegistration(row pgx.Row) (*Registration, error) {
	var reg Registration
	if err := row.Scan(&reg.PatientID, &reg.HospitalID, &reg.RegisteredAt); err != nil {
		return nil, err
	}
	return &reg, nil
}
