package hospital

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of the three repositories and
// of Transactor. A transaction holds the store lock for its whole duration
// and is rolled back from a snapshot when the unit of work fails, so it
// offers the same atomicity as the PostgreSQL store. Ids come from counters
// that are never rolled back and never reused.
type MemoryStore struct {
	mu sync.Mutex

	hospitals     map[int64]Hospital
	patients      map[int64]Patient
	registrations map[RegistrationID]memRegistration

	lastHospitalID int64
	lastPatientID  int64
	lastRegSeq     int64

	now func() time.Time
}

type memRegistration struct {
	Registration
	seq int64
}

type memTxKey struct{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hospitals:     make(map[int64]Hospital),
		patients:      make(map[int64]Patient),
		registrations: make(map[RegistrationID]memRegistration),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Hospitals() HospitalRepository         { return memHospitalRepo{s} }
func (s *MemoryStore) Patients() PatientRepository           { return memPatientRepo{s} }
func (s *MemoryStore) Registrations() RegistrationRepository { return memRegistrationRepo{s} }

// InTx runs fn while holding the store lock. Nested calls join the open
// transaction.
func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hospitals, patients, registrations := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, s)); err != nil {
		s.hospitals, s.patients, s.registrations = hospitals, patients, registrations
		return err
	}
	return nil
}

func (s *MemoryStore) snapshot() (map[int64]Hospital, map[int64]Patient, map[RegistrationID]memRegistration) {
	hospitals := make(map[int64]Hospital, len(s.hospitals))
	for k, v := range s.hospitals {
		hospitals[k] = v
	}
	patients := make(map[int64]Patient, len(s.patients))
	for k, v := range s.patients {
		patients[k] = v
	}
	registrations := make(map[RegistrationID]memRegistration, len(s.registrations))
	for k, v := range s.registrations {
		registrations[k] = v
	}
	return hospitals, patients, registrations
}

// Counts returns the number of stored hospitals, patients and registrations.
func (s *MemoryStore) Counts() (hospitals, patients, registrations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hospitals), len(s.patients), len(s.registrations)
}

// cascade removes every registration matching and returns how many went.
func (s *MemoryStore) cascade(match func(RegistrationID) bool) int64 {
	var n int64
	for id := range s.registrations {
		if match(id) {
			delete(s.registrations, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) sortedRegistrations(match func(RegistrationID) bool) []*Registration {
	var found []memRegistration
	for id, reg := range s.registrations {
		if match(id) {
			found = append(found, reg)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].seq < found[j].seq })

	out := make([]*Registration, 0, len(found))
	for _, reg := range found {
		r := reg.Registration
		out = append(out, &r)
	}
	return out
}

// -- Hospital Repository --

type memHospitalRepo struct{ s *MemoryStore }

func (r memHospitalRepo) Create(ctx context.Context, h *Hospital) error {
	return r.s.InTx(ctx, func(context.Context) error {
		r.s.lastHospitalID++
		now := r.s.now()
		h.ID = r.s.lastHospitalID
		h.CreatedAt, h.UpdatedAt = now, now
		r.s.hospitals[h.ID] = *h
		return nil
	})
}

func (r memHospitalRepo) GetByID(ctx context.Context, id int64) (*Hospital, error) {
	var out *Hospital
	err := r.s.InTx(ctx, func(context.Context) error {
		h, ok := r.s.hospitals[id]
		if !ok {
			return hospitalNotFound(id)
		}
		out = &h
		return nil
	})
	return out, err
}

func (r memHospitalRepo) GetByIDs(ctx context.Context, ids []int64) ([]*Hospital, error) {
	out := []*Hospital{}
	err := r.s.InTx(ctx, func(context.Context) error {
		for _, id := range ids {
			if h, ok := r.s.hospitals[id]; ok {
				out = append(out, &h)
			}
		}
		return nil
	})
	return out, err
}

func (r memHospitalRepo) Update(ctx context.Context, h *Hospital) error {
	return r.s.InTx(ctx, func(context.Context) error {
		cur, ok := r.s.hospitals[h.ID]
		if !ok {
			return hospitalNotFound(h.ID)
		}
		cur.Name, cur.Address = h.Name, h.Address
		cur.UpdatedAt = r.s.now()
		r.s.hospitals[h.ID] = cur
		*h = cur
		return nil
	})
}

func (r memHospitalRepo) Delete(ctx context.Context, id int64) (int64, error) {
	var cascaded int64
	err := r.s.InTx(ctx, func(context.Context) error {
		if _, ok := r.s.hospitals[id]; !ok {
			return hospitalNotFound(id)
		}
		cascaded = r.s.cascade(func(rid RegistrationID) bool { return rid.HospitalID == id })
		delete(r.s.hospitals, id)
		return nil
	})
	return cascaded, err
}

func (r memHospitalRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.s.InTx(ctx, func(context.Context) error {
		_, ok = r.s.hospitals[id]
		return nil
	})
	return ok, err
}

// -- Patient Repository --

type memPatientRepo struct{ s *MemoryStore }

func (r memPatientRepo) Create(ctx context.Context, p *Patient) error {
	return r.s.InTx(ctx, func(context.Context) error {
		r.s.lastPatientID++
		now := r.s.now()
		p.ID = r.s.lastPatientID
		p.CreatedAt, p.UpdatedAt = now, now
		r.s.patients[p.ID] = *p
		return nil
	})
}

func (r memPatientRepo) GetByID(ctx context.Context, id int64) (*Patient, error) {
	var out *Patient
	err := r.s.InTx(ctx, func(context.Context) error {
		p, ok := r.s.patients[id]
		if !ok {
			return patientNotFound(id)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memPatientRepo) GetByIDs(ctx context.Context, ids []int64) ([]*Patient, error) {
	out := []*Patient{}
	err := r.s.InTx(ctx, func(context.Context) error {
		for _, id := range ids {
			if p, ok := r.s.patients[id]; ok {
				out = append(out, &p)
			}
		}
		return nil
	})
	return out, err
}

func (r memPatientRepo) Update(ctx context.Context, p *Patient) error {
	return r.s.InTx(ctx, func(context.Context) error {
		cur, ok := r.s.patients[p.ID]
		if !ok {
			return patientNotFound(p.ID)
		}
		cur.FirstName, cur.LastName, cur.BirthDate = p.FirstName, p.LastName, p.BirthDate
		cur.UpdatedAt = r.s.now()
		r.s.patients[p.ID] = cur
		*p = cur
		return nil
	})
}

func (r memPatientRepo) Delete(ctx context.Context, id int64) (int64, error) {
	var cascaded int64
	err := r.s.InTx(ctx, func(context.Context) error {
		if _, ok := r.s.patients[id]; !ok {
			return patientNotFound(id)
		}
		cascaded = r.s.cascade(func(rid RegistrationID) bool { return rid.PatientID == id })
		delete(r.s.patients, id)
		return nil
	})
	return cascaded, err
}

func (r memPatientRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.s.InTx(ctx, func(context.Context) error {
		_, ok = r.s.patients[id]
		return nil
	})
	return ok, err
}

// -- Registration Repository --

type memRegistrationRepo struct{ s *MemoryStore }

// Create enforces the same constraints the PostgreSQL schema does: both
// parents must exist and the pair must be new.
func (r memRegistrationRepo) Create(ctx context.Context, reg *Registration) error {
	return r.s.InTx(ctx, func(context.Context) error {
		if _, ok := r.s.patients[reg.PatientID]; !ok {
			return patientNotFound(reg.PatientID)
		}
		if _, ok := r.s.hospitals[reg.HospitalID]; !ok {
			return hospitalNotFound(reg.HospitalID)
		}
		id := reg.ID()
		if _, ok := r.s.registrations[id]; ok {
			return alreadyRegistered(id)
		}
		r.s.lastRegSeq++
		reg.RegisteredAt = r.s.now()
		r.s.registrations[id] = memRegistration{Registration: *reg, seq: r.s.lastRegSeq}
		return nil
	})
}

func (r memRegistrationRepo) GetByID(ctx context.Context, id RegistrationID) (*Registration, error) {
	var out *Registration
	err := r.s.InTx(ctx, func(context.Context) error {
		reg, ok := r.s.registrations[id]
		if !ok {
			return registrationNotFound(id)
		}
		found := reg.Registration
		out = &found
		return nil
	})
	return out, err
}

func (r memRegistrationRepo) Delete(ctx context.Context, id RegistrationID) error {
	return r.s.InTx(ctx, func(context.Context) error {
		if _, ok := r.s.registrations[id]; !ok {
			return registrationNotFound(id)
		}
		delete(r.s.registrations, id)
		return nil
	})
}

func (r memRegistrationRepo) Exists(ctx context.Context, id RegistrationID) (bool, error) {
	var ok bool
	err := r.s.InTx(ctx, func(context.Context) error {
		_, ok = r.s.registrations[id]
		return nil
	})
	return ok, err
}

func (r memRegistrationRepo) ListByHospital(ctx context.Context, hospitalID int64) ([]*Registration, error) {
	var out []*Registration
	err := r.s.InTx(ctx, func(context.Context) error {
		out = r.s.sortedRegistrations(func(id RegistrationID) bool { return id.HospitalID == hospitalID })
		return nil
	})
	return out, err
}

func (r memRegistrationRepo) ListByPatient(ctx context.Context, patientID int64) ([]*Registration, error) {
	var out []*Registration
	err := r.s.InTx(ctx, func(context.Context) error {
		out = r.s.sortedRegistrations(func(id RegistrationID) bool { return id.PatientID == patientID })
		return nil
	})
	return out, err
}

// Ping always succeeds; it lets the store back the health endpoint.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
