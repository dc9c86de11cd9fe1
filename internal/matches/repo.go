package matches

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xaitan80/X-Cricket/internal/scorecard"
)

var ErrDraftNotFound = errors.New("draft not found")

// Repo persists drafts and submission attempts.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func pstr(s string) *string {
	if s == "" {
		return nil
	}
	v := s
	return &v
}

func encodeForm(f *scorecard.Form) (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode form: %w", err)
	}
	return string(b), nil
}

func decodeForm(d Draft) (*scorecard.Form, error) {
	var f scorecard.Form
	if err := json.Unmarshal([]byte(d.Form), &f); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", d.ID, err)
	}
	return &f, nil
}

func (r *Repo) Create(ctx context.Context, f *scorecard.Form, createdBy string) (Draft, error) {
	body, err := encodeForm(f)
	if err != nil {
		return Draft{}, err
	}
	now := time.Now().UTC()
	d := Draft{
		ID:        uuid.NewString(),
		MatchID:   f.MatchID,
		Form:      body,
		CreatedBy: pstr(createdBy),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (r *Repo) get(tx *gorm.DB, id string) (Draft, error) {
	var d Draft
	if err := tx.First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Draft{}, ErrDraftNotFound
		}
		return Draft{}, err
	}
	return d, nil
}

// Get returns the draft row and its decoded form.
func (r *Repo) Get(ctx context.Context, id string) (Draft, *scorecard.Form, error) {
	d, err := r.get(r.db.WithContext(ctx), id)
	if err != nil {
		return Draft{}, nil, err
	}
	f, err := decodeForm(d)
	if err != nil {
		return Draft{}, nil, err
	}
	return d, f, nil
}

// Update applies fn to the stored form and writes it back in one transaction.
// If fn fails nothing is written. An edit discards the payload kept from a
// partial submission, so a later retry cannot send data older than the form.
func (r *Repo) Update(ctx context.Context, id string, fn func(*scorecard.Form) error) (Draft, *scorecard.Form, error) {
	var (
		out  Draft
		form *scorecard.Form
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := r.get(tx, id)
		if err != nil {
			return err
		}
		f, err := decodeForm(d)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
		body, err := encodeForm(f)
		if err != nil {
			return err
		}
		d.Form = body
		d.Phase, d.Payload = string(scorecard.PhaseNone), nil
		d.UpdatedAt = time.Now().UTC()
		if err := tx.Model(&Draft{}).Where("id = ?", id).
			Updates(map[string]any{"form": d.Form, "phase": d.Phase, "payload": nil, "updated_at": d.UpdatedAt}).Error; err != nil {
			return err
		}
		out, form = d, f
		return nil
	})
	return out, form, err
}

// SetPhase records how far a submission got, with the payload that was sent.
func (r *Repo) SetPhase(ctx context.Context, id string, phase scorecard.Phase, p *scorecard.Payload) error {
	var payload *string
	if p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = pstr(string(b))
	}
	res := r.db.WithContext(ctx).Model(&Draft{}).Where("id = ?", id).
		Updates(map[string]any{"phase": string(phase), "payload": payload, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// StoredPayload returns the payload kept from a partial submission.
func (r *Repo) StoredPayload(ctx context.Context, id string) (scorecard.Phase, *scorecard.Payload, error) {
	d, err := r.get(r.db.WithContext(ctx), id)
	if err != nil {
		return "", nil, err
	}
	if d.Payload == nil {
		return scorecard.Phase(d.Phase), nil, nil
	}
	var p scorecard.Payload
	if err := json.Unmarshal([]byte(*d.Payload), &p); err != nil {
		return "", nil, fmt.Errorf("decode payload: %w", err)
	}
	return scorecard.Phase(d.Phase), &p, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&Draft{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

func (r *Repo) ListByMatch(ctx context.Context, matchID int64) ([]Draft, error) {
	var out []Draft
	err := r.db.WithContext(ctx).Where("match_id = ?", matchID).Order("updated_at DESC").Find(&out).Error
	return out, err
}

func (r *Repo) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(&a).Error
}

func (r *Repo) Attempts(ctx context.Context, draftID string) ([]Attempt, error) {
	var out []Attempt
	err := r.db.WithContext(ctx).Where("draft_id = ?", draftID).Order("id").Find(&out).Error
	return out, err
}
