package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/stockdesk/internal/audit"
	"github.com/odyssey-erp/stockdesk/internal/shared"
)

// LabelField is one printable line of a label template.
type LabelField struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Visible bool   `json:"visible"`
	Order   int    `json:"order" validate:"gte=0"`
}

// LabelTemplate is a named, ordered set of label fields. Rendering is done by
// the client; only the layout is stored.
type LabelTemplate struct {
	ID     int64        `json:"id"`
	Name   string       `json:"name"`
	Fields []LabelField `json:"fields"`
}

// LabelTemplateInput carries the fields of a new template.
type LabelTemplateInput struct {
	Name   string       `json:"name" validate:"required"`
	Fields []LabelField `json:"fields" validate:"min=1,dive"`
}

// LabelTemplatePatch replaces the name and/or the whole field list.
type LabelTemplatePatch struct {
	Name   *string      `json:"name,omitempty"`
	Fields []LabelField `json:"fields,omitempty" validate:"omitempty,min=1,dive"`
}

func normalizeFields(fields []LabelField) ([]LabelField, error) {
	seen := make(map[string]bool, len(fields))
	out := make([]LabelField, 0, len(fields))
	for _, f := range fields {
		f.ID = strings.TrimSpace(f.ID)
		f.Name = strings.TrimSpace(f.Name)
		if seen[f.ID] {
			return nil, shared.Validationf("duplicate label field %q", f.ID)
		}
		seen[f.ID] = true
		out = append(out, f)
	}
	return out, nil
}

// ListLabelTemplates returns every template ordered by name.
func (s *Service) ListLabelTemplates(ctx context.Context) ([]LabelTemplate, error) {
	rows, err := s.repo.ListLabelTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list label templates: %w", err)
	}
	return nonNil(rows), nil
}

// AddLabelTemplate stores a template with a unique name.
func (s *Service) AddLabelTemplate(ctx context.Context, in LabelTemplateInput) (LabelTemplate, error) {
	name, err := validateName("label template", in.Name)
	if err != nil {
		return LabelTemplate{}, err
	}
	in.Name = name
	if in.Fields, err = normalizeFields(in.Fields); err != nil {
		return LabelTemplate{}, err
	}
	if err := check(in); err != nil {
		return LabelTemplate{}, err
	}
	id, err := s.createLookup(ctx, audit.EntityLabelTemplate, func(ctx context.Context, tx TxRepository) (int64, error) {
		return tx.InsertLabelTemplate(ctx, in)
	})
	if err != nil {
		return LabelTemplate{}, fmt.Errorf("catalog: add label template: %w", err)
	}
	return LabelTemplate{ID: id, Name: in.Name, Fields: in.Fields}, nil
}

// UpdateLabelTemplate renames a template or replaces its fields. It returns
// shared.ErrNotFound when id does not exist.
func (s *Service) UpdateLabelTemplate(ctx context.Context, id int64, patch LabelTemplatePatch) (LabelTemplate, error) {
	if patch.Name != nil {
		name, err := validateName("label template", *patch.Name)
		if err != nil {
			return LabelTemplate{}, err
		}
		patch.Name = &name
	}
	if patch.Name == nil && patch.Fields == nil {
		return LabelTemplate{}, shared.Validationf("label template patch is empty")
	}
	if patch.Fields != nil {
		if len(patch.Fields) == 0 {
			return LabelTemplate{}, shared.Validationf("fields must not be empty")
		}
		fields, err := normalizeFields(patch.Fields)
		if err != nil {
			return LabelTemplate{}, err
		}
		patch.Fields = fields
	}
	if err := check(patch); err != nil {
		return LabelTemplate{}, err
	}
	now := s.now()
	var updated LabelTemplate
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		affected, err := tx.UpdateLabelTemplate(ctx, id, patch)
		if err != nil {
			return err
		}
		if affected == 0 {
			return shared.ErrNotFound
		}
		if err := recordActivity(ctx, tx, audit.ActionUpdate, audit.EntityLabelTemplate, id, nil, now); err != nil {
			return err
		}
		updated, err = tx.GetLabelTemplate(ctx, id)
		return err
	})
	if err != nil {
		return LabelTemplate{}, fmt.Errorf("catalog: update label template %d: %w", id, err)
	}
	s.observe(audit.EntityLabelTemplate, audit.ActionUpdate)
	return updated, nil
}

// DeleteLabelTemplate removes a template. It reports false when id was absent.
func (s *Service) DeleteLabelTemplate(ctx context.Context, id int64) (bool, error) {
	return s.deleteLookup(ctx, audit.EntityLabelTemplate, id)
}
